package view

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ktx/core/feedback"
	"github.com/trezcool/ktx/core/room"
	"github.com/trezcool/ktx/core/student"
)

var (
	testRooms = []room.Room{{ID: "101", Name: "Room 101"}, {ID: "102", Name: "Room 102"}, {ID: "103", Name: "Room 103"}}
	testUsers = []student.Student{
		{Name: "An", MSSV: "1", Room: "101"},
		{Name: "Binh", MSSV: "2", Room: "102"},
		{Name: "Chi", MSSV: "3", Room: "101"},
		{Name: "Dung", MSSV: "4"},
	}
)

func TestNewStudentTable(t *testing.T) {
	table := NewStudentTable(testUsers, true)
	require.Len(t, table.Rows, 4)
	assert.Equal(t, StudentRow{Index: 1, Name: "An", MSSV: "1", Room: "101"}, table.Rows[0])
	assert.Equal(t, 4, table.Rows[3].Index)
	assert.True(t, table.Admin)
	assert.True(t, NewStudentTable(nil, false).IsEmpty())
}

func TestNewRoomStudents(t *testing.T) {
	rs := NewRoomStudents(testRooms, testUsers)
	require.Len(t, rs.Rows, 3)
	assert.Equal(t, "An, Chi", rs.Rows[0].Label())
	assert.Equal(t, "Binh", rs.Rows[1].Label())
	assert.Equal(t, NoStudents, rs.Rows[2].Label())
}

func TestNewFacilityMatrix(t *testing.T) {
	inv := room.Inventory{
		"101": {"Bed": 2},
		"102": {"Fan": 1},
	}
	m := NewFacilityMatrix(testRooms, inv)

	require.Len(t, m.Rows, 2)
	assert.Equal(t, "Bed", m.Rows[0].Facility)
	assert.Equal(t, "Fan", m.Rows[1].Facility)
	for _, row := range m.Rows {
		assert.Len(t, row.Cells, len(testRooms))
	}
	assert.Equal(t, 2, m.Cell("Bed", "101"))
	assert.Equal(t, 0, m.Cell("Bed", "102"))
	assert.Equal(t, 1, m.Cell("Fan", "102"))
	assert.Equal(t, 0, m.Cell("Fan", "103"))
	assert.Equal(t, 0, m.Cell("Desk", "101"))

	assert.True(t, NewFacilityMatrix(testRooms, room.Inventory{}).IsEmpty())
}

func TestNewImagePanel(t *testing.T) {
	tests := []struct {
		count      int
		wantImages int
	}{
		{count: -1, wantImages: 1},
		{count: 0, wantImages: 1},
		{count: 1, wantImages: 1},
		{count: 3, wantImages: 3},
		{count: 4, wantImages: 4},
		{count: 9, wantImages: 4},
	}
	for _, tt := range tests {
		p := NewImagePanel(testRooms[0], "Bed", tt.count)
		assert.Len(t, p.Images, tt.wantImages, "count %d", tt.count)
		assert.Equal(t, tt.count, p.Count)
		assert.Equal(t, placeholderSrc, p.Images[0].Src)
		assert.Equal(t, "Bed 1 - Room 101", p.Images[0].Alt)
	}
}

func TestNewFeedbackList(t *testing.T) {
	t0 := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	entries := []feedback.Entry{
		{Name: "An", Text: "Fan is **broken**", Date: t0},
		{Text: "<script>alert(1)</script> see https://example.com", Date: t0.Add(time.Hour)},
	}
	list, err := NewFeedbackList(entries)
	require.NoError(t, err)
	require.Len(t, list.Items, 2)

	assert.Equal(t, "Anonymous", list.Items[0].Name)
	assert.NotContains(t, string(list.Items[0].HTML), "<script>")
	assert.Contains(t, string(list.Items[0].HTML), "&lt;script&gt;alert(1)&lt;/script&gt;")
	assert.Contains(t, string(list.Items[0].HTML), `<a href="https://example.com">`)

	assert.Equal(t, "An", list.Items[1].Name)
	assert.Contains(t, string(list.Items[1].HTML), "<strong>broken</strong>")
	assert.Equal(t, "An", entries[0].Name, "the input is not reordered")
}

func TestNewFeedbackList_escapesMarkup(t *testing.T) {
	list, err := NewFeedbackList([]feedback.Entry{{Text: "<b>Urgent</b>: the fan in room 101 is broken"}})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)

	html := string(list.Items[0].HTML)
	assert.Equal(t, "<p>&lt;b&gt;Urgent&lt;/b&gt;: the fan in room 101 is broken</p>\n", html)
	assert.NotContains(t, html, "raw HTML omitted")
}

func TestNewStudentHome(t *testing.T) {
	home := NewStudentHome(testUsers[0], testRooms, testUsers)
	assert.Equal(t, testRooms[0], home.Room)
	assert.Equal(t, []string{"Chi"}, home.Roommates)

	home = NewStudentHome(testUsers[3], testRooms, testUsers)
	assert.Equal(t, room.Room{}, home.Room)
	assert.Empty(t, home.Roommates)

	// unknown room ID
	home = NewStudentHome(student.Student{Name: "Em", MSSV: "5", Room: "999"}, testRooms, testUsers)
	assert.Equal(t, "999", home.Room.Name)
}

func TestNewStats(t *testing.T) {
	assert.Equal(t, Stats{Students: 4, Rooms: 3, Unroomed: 1}, NewStats(testRooms, testUsers))
}

func TestNormalizeAdminView(t *testing.T) {
	assert.Equal(t, AdminViewInventory, NormalizeAdminView("inventory"))
	assert.Equal(t, AdminViewStudents, NormalizeAdminView(""))
	assert.Equal(t, AdminViewStudents, NormalizeAdminView(strings.ToUpper("rooms")))
}
