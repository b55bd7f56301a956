package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ktx/core"
	"github.com/trezcool/ktx/core/room"
	"github.com/trezcool/ktx/core/student"
	"github.com/trezcool/ktx/storage/gateway"
	"github.com/trezcool/ktx/tests"
)

func Test_studentsAPI(t *testing.T) {
	app := setup(t)
	c := newClient(t, app)

	an := student.Student{Name: "An", MSSV: "1", Email: "an@test.vn"}
	anUpdated := student.Student{Name: "An Nguyen", MSSV: "1", Email: "an@test.vn", Phone: "0901234567"}

	tests := []httpTest{
		{name: "list (empty)", method: http.MethodGet, path: "/api/v1/students", wantCode: http.StatusOK, wantData: []byte(`[]`)},
		{
			name: "create", method: http.MethodPost, path: "/api/v1/students",
			body:     student.NewStudent{Name: "An", MSSV: "1", Email: "an@test.vn", Room: "101"},
			wantCode: http.StatusCreated, wantData: marshalObj(t, map[string]interface{}{"student": an, "updated": false}),
		},
		{
			name: "update", method: http.MethodPost, path: "/api/v1/students",
			body:     student.NewStudent{Name: "An Nguyen", MSSV: "1", Email: "an@test.vn", Phone: "0901234567"},
			wantCode: http.StatusOK, wantData: marshalObj(t, map[string]interface{}{"student": anUpdated, "updated": true}),
		},
		{
			name: "invalid", method: http.MethodPost, path: "/api/v1/students",
			body:     student.NewStudent{MSSV: "2", Email: "lol"},
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"name": "this field is required", "email": "email must be a valid email address"}`),
		},
		{name: "list", method: http.MethodGet, path: "/api/v1/students", wantCode: http.StatusOK, wantData: marshalObj(t, []student.Student{anUpdated})},
		{name: "get", method: http.MethodGet, path: "/api/v1/students/1", wantCode: http.StatusOK, wantData: marshalObj(t, anUpdated)},
		{name: "get (unknown)", method: http.MethodGet, path: "/api/v1/students/9", wantCode: http.StatusNotFound, wantData: marshalObj(t, httpErr{Error: "student not found"})},
		{
			name: "delete (anonymous)", method: http.MethodDelete, path: "/api/v1/students/1",
			wantCode: http.StatusForbidden, wantData: marshalObj(t, httpErr{Error: "admin login required"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, c.sendJSON(tt.method, tt.path, tt.body))
		})
	}

	c.loginAdmin()
	rec := c.sendJSON(http.MethodDelete, "/api/v1/students/1", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	students, err := app.students.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, students)
}

func Test_studentsAPI_strict(t *testing.T) {
	app := setup(t, func(conf *core.Config) { conf.Registration.AllowUpdate = false })
	c := newClient(t, app)
	testutil.CreateStudent(t, app.students, "An", "1", "an@test.vn")

	rec := c.sendJSON(http.MethodPost, "/api/v1/students", student.NewStudent{Name: "Other", MSSV: "1", Email: "other@test.vn"})
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusConflict,
		wantData: []byte(`{"mssv": "a student with this MSSV already exists"}`),
	}, rec)
}

func Test_adminAPI_room(t *testing.T) {
	app := setup(t)
	c := newClient(t, app)
	c.loginAdmin()

	rec := c.sendJSON(http.MethodPost, "/api/v1/students", student.NewStudent{Name: "An", MSSV: "1", Email: "an@test.vn", Room: "101"})
	assert.Equal(t, http.StatusCreated, rec.Code)
	usr, err := app.students.Get(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "101", usr.Room, "admins may set the room")
}

func Test_roomsAPI(t *testing.T) {
	app := setup(t)
	c := newClient(t, app)
	ctx := context.Background()

	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`[]`)}, c.get("/api/v1/rooms"))
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{}`)}, c.get("/api/v1/inventory"))
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: []byte(`{"rooms": [], "facilities": [], "counts": {}}`),
	}, c.get("/api/v1/matrix"))

	rooms := []room.Room{{ID: "101", Name: "Room 101"}, {ID: "102", Name: "Room 102"}}
	inv := room.Inventory{"101": {"Bed": 2}, "102": {"Fan": 1}}
	require.NoError(t, app.gw.Save(ctx, gateway.KeyRooms, rooms))
	require.NoError(t, app.gw.Save(ctx, gateway.KeyFacilities, inv))

	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshalObj(t, rooms)}, c.get("/api/v1/rooms"))
	checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marshalObj(t, inv)}, c.get("/api/v1/inventory"))

	rec := c.get("/api/v1/matrix")
	require.Equal(t, http.StatusOK, rec.Code)
	var matrix struct {
		Rooms      []string         `json:"rooms"`
		Facilities []string         `json:"facilities"`
		Counts     map[string][]int `json:"counts"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &matrix))
	assert.Equal(t, []string{"101", "102"}, matrix.Rooms)
	assert.Equal(t, []string{"Bed", "Fan"}, matrix.Facilities)
	assert.Equal(t, map[string][]int{"Bed": {2, 0}, "Fan": {0, 1}}, matrix.Counts)
}
