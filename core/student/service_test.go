package student_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/ktx/core"
	"github.com/trezcool/ktx/core/student"
	emailsvc "github.com/trezcool/ktx/services/email"
	"github.com/trezcool/ktx/storage/gateway"
	"github.com/trezcool/ktx/tests"
)

func setup(t *testing.T, allowUpdate bool) *student.Service {
	t.Helper()
	conf := testutil.Config()
	conf.Registration.AllowUpdate = allowUpdate
	core.ParseEmailTemplates(conf, new(testutil.Logger))
	emailsvc.ResetSentMessages()

	gw, _, _ := testutil.PrepareGateway(t)
	return student.NewService(gateway.NewStudentRepository(gw), testutil.Validator(), emailsvc.NewConsoleServiceMock(conf), conf)
}

func TestService_Register(t *testing.T) {
	ctx := context.Background()
	svc := setup(t, true)

	usr, updated, err := svc.Register(ctx, student.NewStudent{Name: "  An Nguyen ", MSSV: " 20201234", Email: "an@test.vn", Phone: "0901 234 567"})
	require.NoError(t, err)
	assert.False(t, updated)
	assert.Equal(t, student.Student{Name: "An Nguyen", MSSV: "20201234", Email: "an@test.vn", Phone: "0901 234 567"}, usr)
	assert.Len(t, emailsvc.SentMessagesTo("an@test.vn"), 1)

	testutil.CreateStudent(t, svc, "Binh Tran", "20205678", "binh@test.vn")

	// same MSSV replaces in place
	usr, updated, err = svc.Register(ctx, student.NewStudent{Name: "An N.", MSSV: "20201234", Email: "an.n@test.vn"})
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, "An N.", usr.Name)
	assert.Empty(t, emailsvc.SentMessagesTo("an.n@test.vn"), "updates do not send a welcome email")

	students, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, "20201234", students[0].MSSV)
	assert.Equal(t, "an.n@test.vn", students[0].Email)
	assert.Equal(t, "20205678", students[1].MSSV)
}

func TestService_Register_validation(t *testing.T) {
	ctx := context.Background()
	svc := setup(t, true)

	tests := []struct {
		name    string
		ns      student.NewStudent
		wantFld string
	}{
		{name: "blank name", ns: student.NewStudent{Name: "   ", MSSV: "1", Email: "a@test.vn"}, wantFld: "name"},
		{name: "no mssv", ns: student.NewStudent{Name: "A", Email: "a@test.vn"}, wantFld: "mssv"},
		{name: "invalid mssv", ns: student.NewStudent{Name: "A", MSSV: "12 34", Email: "a@test.vn"}, wantFld: "mssv"},
		{name: "no email", ns: student.NewStudent{Name: "A", MSSV: "1"}, wantFld: "email"},
		{name: "invalid email", ns: student.NewStudent{Name: "A", MSSV: "1", Email: "lol"}, wantFld: "email"},
		{name: "invalid phone", ns: student.NewStudent{Name: "A", MSSV: "1", Email: "a@test.vn", Phone: "call me"}, wantFld: "phone"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Register(ctx, tt.ns)
			require.Error(t, err)

			vErr, ok := core.TranslateValidationErrors(err, core.NewTranslator()).(*core.ValidationError)
			require.True(t, ok, "want a validation error, got %v", err)
			var flds []string
			for _, f := range vErr.Fields {
				flds = append(flds, f.Field)
			}
			assert.Contains(t, flds, tt.wantFld)
		})
	}

	students, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, students, "rejected candidates are never stored")
}

func TestService_Register_keepsRoom(t *testing.T) {
	ctx := context.Background()
	svc := setup(t, true)

	testutil.CreateStudent(t, svc, "An", "1", "an@test.vn", "101")

	usr, updated, err := svc.Register(ctx, student.NewStudent{Name: "An", MSSV: "1", Email: "an@test.vn"})
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, "101", usr.Room)

	usr, _, err = svc.Register(ctx, student.NewStudent{Name: "An", MSSV: "1", Email: "an@test.vn", Room: "102"})
	require.NoError(t, err)
	assert.Equal(t, "102", usr.Room)
}

func TestService_Add(t *testing.T) {
	ctx := context.Background()

	for _, allowUpdate := range []bool{true, false} {
		svc := setup(t, allowUpdate)
		testutil.CreateStudent(t, svc, "An", "1", "an@test.vn")

		_, err := svc.Add(ctx, student.NewStudent{Name: "Other", MSSV: "1", Email: "other@test.vn"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, student.ErrDuplicateKey))
		assert.True(t, core.IsValidationError(err))

		usr, err := svc.Add(ctx, student.NewStudent{Name: "Binh", MSSV: "2", Email: "binh@test.vn"})
		require.NoError(t, err)
		assert.Equal(t, "2", usr.MSSV)

		students, err := svc.List(ctx)
		require.NoError(t, err)
		assert.Len(t, students, 2)
		assert.Equal(t, "An", students[0].Name, "the existing record is untouched")
	}
}

func TestService_Register_strict(t *testing.T) {
	ctx := context.Background()
	svc := setup(t, false)
	testutil.CreateStudent(t, svc, "An", "1", "an@test.vn")

	_, _, err := svc.Register(ctx, student.NewStudent{Name: "An 2", MSSV: "1", Email: "an@test.vn"})
	assert.True(t, errors.Is(err, student.ErrDuplicateKey))
}

func TestService_Get_Delete(t *testing.T) {
	ctx := context.Background()
	svc := setup(t, true)
	an := testutil.CreateStudent(t, svc, "An", "1", "an@test.vn")
	testutil.CreateStudent(t, svc, "Binh", "2", "binh@test.vn")

	usr, err := svc.Get(ctx, " 1 ")
	require.NoError(t, err)
	assert.Equal(t, an, usr)

	_, err = svc.Get(ctx, "3")
	assert.Equal(t, student.ErrNotFound, err)

	require.NoError(t, svc.Delete(ctx, "1"))
	_, err = svc.Get(ctx, "1")
	assert.Equal(t, student.ErrNotFound, err)

	// deleting an unknown MSSV is a no-op
	require.NoError(t, svc.Delete(ctx, "1"))
	students, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, students, 1)
}

func TestService_FindByCredentials(t *testing.T) {
	ctx := context.Background()
	svc := setup(t, true)
	an := testutil.CreateStudent(t, svc, "An", "1", "an@test.vn")

	tests := []struct {
		name    string
		mssv    string
		email   string
		wantErr error
	}{
		{name: "match", mssv: "1", email: "an@test.vn"},
		{name: "match with spaces", mssv: " 1 ", email: " an@test.vn "},
		{name: "wrong email", mssv: "1", email: "binh@test.vn", wantErr: student.ErrNotFound},
		{name: "wrong mssv", mssv: "2", email: "an@test.vn", wantErr: student.ErrNotFound},
		{name: "blank", wantErr: student.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			usr, err := svc.FindByCredentials(ctx, tt.mssv, tt.email)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, an, usr)
		})
	}
}

func TestService_FillRooms(t *testing.T) {
	ctx := context.Background()
	svc := setup(t, true)
	testutil.CreateStudent(t, svc, "A", "1", "a@test.vn")
	testutil.CreateStudent(t, svc, "B", "2", "b@test.vn", "999")
	testutil.CreateStudent(t, svc, "C", "3", "c@test.vn")

	var picked []int
	n, err := svc.FillRooms(ctx, func(index int) string {
		picked = append(picked, index)
		return "R" + string(rune('0'+index))
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []int{0, 2}, picked)

	students, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"R0", "999", "R2"}, []string{students[0].Room, students[1].Room, students[2].Room})

	// nothing left to fill
	n, err = svc.FillRooms(ctx, func(int) string { return "X" })
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestService_Import(t *testing.T) {
	ctx := context.Background()
	svc := setup(t, true)
	testutil.CreateStudent(t, svc, "An", "1", "an@test.vn", "101")

	candidates := []student.NewStudent{
		{Name: "An Nguyen", MSSV: "1", Email: "an@test.vn"},
		{Name: "Binh", MSSV: "2", Email: "binh@test.vn"},
	}

	t.Run("dry run", func(t *testing.T) {
		before, after, err := svc.Import(ctx, candidates, false, true)
		require.NoError(t, err)
		assert.Len(t, before, 1)
		require.Len(t, after, 2)
		assert.Equal(t, "An Nguyen", after[0].Name)
		assert.Equal(t, "101", after[0].Room)

		students, err := svc.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, before, students, "a dry run saves nothing")
	})

	t.Run("strict", func(t *testing.T) {
		_, _, err := svc.Import(ctx, candidates, true, false)
		assert.True(t, errors.Is(err, student.ErrDuplicateKey))
	})

	t.Run("invalid record", func(t *testing.T) {
		_, _, err := svc.Import(ctx, []student.NewStudent{{Name: "X"}}, false, false)
		assert.Error(t, err)
	})

	t.Run("save", func(t *testing.T) {
		_, after, err := svc.Import(ctx, candidates, false, false)
		require.NoError(t, err)
		students, err := svc.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, after, students)
	})
}

func TestMerge(t *testing.T) {
	students := []student.Student{{Name: "A", MSSV: "1", Room: "101"}}
	incoming := []student.Student{{Name: "A2", MSSV: "1"}, {Name: "B", MSSV: "2"}, {Name: "B2", MSSV: "2"}}

	merged, err := student.Merge(students, incoming, false)
	require.NoError(t, err)
	assert.Equal(t, []student.Student{{Name: "A2", MSSV: "1", Room: "101"}, {Name: "B2", MSSV: "2"}}, merged)
	assert.Equal(t, "A", students[0].Name, "the input is not modified")

	_, err = student.Merge(students, incoming, true)
	assert.True(t, errors.Is(err, student.ErrDuplicateKey))
}

func TestService_Register_addsPhone(t *testing.T) {
	ctx := context.Background()
	svc := setup(t, true)
	testutil.CreateStudent(t, svc, "A", "001", "a@x.com")

	_, updated, err := svc.Register(ctx, student.NewStudent{Name: "A", MSSV: "001", Email: "a@x.com", Phone: "0901234567"})
	require.NoError(t, err)
	assert.True(t, updated)

	students, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "0901234567", students[0].Phone)
}
