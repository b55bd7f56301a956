package gateway

import (
	"context"

	"github.com/trezcool/ktx/core/feedback"
	"github.com/trezcool/ktx/core/room"
	"github.com/trezcool/ktx/core/session"
	"github.com/trezcool/ktx/core/student"
)

type (
	studentRepository  struct{ g *Gateway }
	roomRepository     struct{ g *Gateway }
	sessionRepository  struct{ g *Gateway }
	feedbackRepository struct{ g *Gateway }
)

var (
	_ student.Repository  = (*studentRepository)(nil)
	_ room.Repository     = (*roomRepository)(nil)
	_ session.Repository  = (*sessionRepository)(nil)
	_ feedback.Repository = (*feedbackRepository)(nil)
)

func NewStudentRepository(g *Gateway) student.Repository   { return &studentRepository{g} }
func NewRoomRepository(g *Gateway) room.Repository         { return &roomRepository{g} }
func NewSessionRepository(g *Gateway) session.Repository   { return &sessionRepository{g} }
func NewFeedbackRepository(g *Gateway) feedback.Repository { return &feedbackRepository{g} }

func (repo *studentRepository) LoadStudents(ctx context.Context) ([]student.Student, error) {
	students := make([]student.Student, 0)
	if found, err := repo.g.Load(ctx, KeyStudents, &students); err != nil || !found {
		return []student.Student{}, err
	}
	return students, nil
}

func (repo *studentRepository) SaveStudents(ctx context.Context, students []student.Student) error {
	if students == nil {
		students = []student.Student{}
	}
	return repo.g.Save(ctx, KeyStudents, students)
}

func (repo *roomRepository) LoadRooms(ctx context.Context) ([]room.Room, error) {
	rooms := make([]room.Room, 0)
	if found, err := repo.g.Load(ctx, KeyRooms, &rooms); err != nil || !found {
		return []room.Room{}, err
	}
	return rooms, nil
}

func (repo *roomRepository) SaveRooms(ctx context.Context, rooms []room.Room) error {
	return repo.g.Save(ctx, KeyRooms, rooms)
}

func (repo *roomRepository) LoadInventory(ctx context.Context) (room.Inventory, error) {
	inv := make(room.Inventory)
	if found, err := repo.g.Load(ctx, KeyFacilities, &inv); err != nil || !found {
		return room.Inventory{}, err
	}
	return inv, nil
}

func (repo *roomRepository) SaveInventory(ctx context.Context, inv room.Inventory) error {
	return repo.g.Save(ctx, KeyFacilities, inv)
}

func (repo *sessionRepository) LoadStudent(ctx context.Context, scope string) (student.Student, bool, error) {
	var usr *student.Student
	found, err := repo.g.Load(ctx, StudentSessionKey(scope), &usr)
	if err != nil || !found || usr == nil {
		return student.Student{}, false, err
	}
	return *usr, true, nil
}

func (repo *sessionRepository) SaveStudent(ctx context.Context, scope string, usr student.Student) error {
	return repo.g.Save(ctx, StudentSessionKey(scope), usr)
}

func (repo *sessionRepository) RemoveStudent(ctx context.Context, scope string) error {
	return repo.g.Remove(ctx, StudentSessionKey(scope))
}

func (repo *sessionRepository) LoadAdmin(ctx context.Context, scope string) (bool, error) {
	var loggedIn bool
	if _, err := repo.g.Load(ctx, AdminSessionKey(scope), &loggedIn); err != nil {
		return false, err
	}
	return loggedIn, nil
}

func (repo *sessionRepository) SaveAdmin(ctx context.Context, scope string, loggedIn bool) error {
	return repo.g.Save(ctx, AdminSessionKey(scope), loggedIn)
}

func (repo *sessionRepository) RemoveAdmin(ctx context.Context, scope string) error {
	return repo.g.Remove(ctx, AdminSessionKey(scope))
}

func (repo *feedbackRepository) LoadFeedback(ctx context.Context) ([]feedback.Entry, error) {
	entries := make([]feedback.Entry, 0)
	if found, err := repo.g.Load(ctx, KeyFeedback, &entries); err != nil || !found {
		return []feedback.Entry{}, err
	}
	return entries, nil
}

func (repo *feedbackRepository) SaveFeedback(ctx context.Context, entries []feedback.Entry) error {
	return repo.g.Save(ctx, KeyFeedback, entries)
}
