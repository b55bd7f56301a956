package view

import (
	"github.com/trezcool/ktx/core/feedback"
	"github.com/trezcool/ktx/core/room"
	"github.com/trezcool/ktx/core/student"
)

// admin dashboard views
const (
	AdminViewStudents  = "students"
	AdminViewRooms     = "rooms"
	AdminViewInventory = "inventory"
	AdminViewFeedback  = "feedback"
)

var AdminViews = []string{AdminViewStudents, AdminViewRooms, AdminViewInventory, AdminViewFeedback}

type (
	RegisterForm struct {
		Form    student.NewStudent
		Editing bool
		Errors  map[string]string
		Table   StudentTable
	}

	LoginForm struct {
		MSSV  string
		Email string
	}

	AdminLoginForm struct {
		Username string
	}

	StudentHome struct {
		Student   student.Student
		Room      room.Room // zero until a room is assigned
		Roommates []string
	}

	AdminHome struct {
		View     string
		Views    []string
		Stats    Stats
		Students StudentTable
		Rooms    RoomStudents
		Matrix   FacilityMatrix
		Feedback FeedbackList
	}

	Stats struct {
		Students int
		Rooms    int
		Unroomed int
	}

	FeedbackForm struct {
		Form   feedback.NewEntry
		Errors map[string]string
	}
)

// NormalizeAdminView returns view when known, AdminViewStudents otherwise.
func NormalizeAdminView(view string) string {
	for _, v := range AdminViews {
		if v == view {
			return v
		}
	}
	return AdminViewStudents
}

func NewStudentHome(usr student.Student, rooms []room.Room, students []student.Student) StudentHome {
	home := StudentHome{Student: usr, Roommates: make([]string, 0)}
	if !usr.HasRoom() {
		return home
	}
	home.Room = room.Room{ID: usr.Room, Name: usr.Room}
	for _, r := range rooms {
		if r.ID == usr.Room {
			home.Room = r
			break
		}
	}
	for _, s := range students {
		if s.Room == usr.Room && s.MSSV != usr.MSSV {
			home.Roommates = append(home.Roommates, s.Name)
		}
	}
	return home
}

func NewStats(rooms []room.Room, students []student.Student) Stats {
	stats := Stats{Students: len(students), Rooms: len(rooms)}
	for _, s := range students {
		if !s.HasRoom() {
			stats.Unroomed++
		}
	}
	return stats
}
