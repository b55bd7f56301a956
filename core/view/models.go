package view

import (
	"bytes"
	"html/template"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/trezcool/ktx/core/feedback"
	"github.com/trezcool/ktx/core/room"
	"github.com/trezcool/ktx/core/student"
)

const (
	NoStudents = "(none)"

	minImages = 1
	maxImages = 4
)

var markdown = goldmark.New(goldmark.WithExtensions(extension.Linkify))

type (
	StudentRow struct {
		Index int // 1-based
		Name  string
		MSSV  string
		Email string
		Phone string
		Room  string
	}

	StudentTable struct {
		Rows  []StudentRow
		Admin bool   // admin variant shows edit and delete controls per row
		CSRF  string // token for the delete forms
	}

	RoomStudentsRow struct {
		Room     room.Room
		Students []string
	}

	RoomStudents struct {
		Rows []RoomStudentsRow
	}

	MatrixCell struct {
		RoomID   string
		Facility string
		Count    int
	}

	MatrixRow struct {
		Facility string
		Cells    []MatrixCell
	}

	// FacilityMatrix has one column per room and one row per facility type found in any room.
	FacilityMatrix struct {
		Rooms []room.Room
		Rows  []MatrixRow
	}

	Image struct {
		Src string
		Alt string
	}

	ImagePanel struct {
		Room     room.Room
		Facility string
		Count    int
		Images   []Image
	}

	FeedbackItem struct {
		Name string
		Date time.Time
		HTML template.HTML
	}

	FeedbackList struct {
		Items []FeedbackItem
	}
)

func (t StudentTable) IsEmpty() bool { return len(t.Rows) == 0 }

// Label is the comma separated student names, or NoStudents.
func (r RoomStudentsRow) Label() string {
	if len(r.Students) == 0 {
		return NoStudents
	}
	return strings.Join(r.Students, ", ")
}

func (m FacilityMatrix) IsEmpty() bool { return len(m.Rows) == 0 }

// Cell returns the count at (facility, roomID), 0 when either is unknown.
func (m FacilityMatrix) Cell(facility, roomID string) int {
	for _, row := range m.Rows {
		if row.Facility != facility {
			continue
		}
		for _, c := range row.Cells {
			if c.RoomID == roomID {
				return c.Count
			}
		}
	}
	return 0
}

func NewStudentTable(students []student.Student, admin bool) StudentTable {
	rows := make([]StudentRow, 0, len(students))
	for i, s := range students {
		rows = append(rows, StudentRow{
			Index: i + 1,
			Name:  s.Name,
			MSSV:  s.MSSV,
			Email: s.Email,
			Phone: s.Phone,
			Room:  s.Room,
		})
	}
	return StudentTable{Rows: rows, Admin: admin}
}

func NewRoomStudents(rooms []room.Room, students []student.Student) RoomStudents {
	rows := make([]RoomStudentsRow, 0, len(rooms))
	for _, r := range rooms {
		row := RoomStudentsRow{Room: r, Students: make([]string, 0)}
		for _, s := range students {
			if s.Room == r.ID {
				row.Students = append(row.Students, s.Name)
			}
		}
		rows = append(rows, row)
	}
	return RoomStudents{Rows: rows}
}

func NewFacilityMatrix(rooms []room.Room, inv room.Inventory) FacilityMatrix {
	facilities := inv.Facilities()
	rows := make([]MatrixRow, 0, len(facilities))
	for _, name := range facilities {
		row := MatrixRow{Facility: name, Cells: make([]MatrixCell, 0, len(rooms))}
		for _, r := range rooms {
			row.Cells = append(row.Cells, MatrixCell{RoomID: r.ID, Facility: name, Count: inv.Count(r.ID, name)})
		}
		rows = append(rows, row)
	}
	return FacilityMatrix{Rooms: rooms, Rows: rows}
}

// NewImagePanel shows between 1 and 4 placeholder images, count clamped into that range.
func NewImagePanel(r room.Room, facility string, count int) ImagePanel {
	n := count
	if n < minImages {
		n = minImages
	} else if n > maxImages {
		n = maxImages
	}
	images := make([]Image, 0, n)
	for i := 1; i <= n; i++ {
		images = append(images, Image{
			Src: placeholderSrc,
			Alt: facility + " " + strconv.Itoa(i) + " - " + r.Name,
		})
	}
	return ImagePanel{Room: r, Facility: facility, Count: count, Images: images}
}

// NewFeedbackList renders the entries newest first. Text is Markdown; raw HTML is escaped and shown as text.
func NewFeedbackList(entries []feedback.Entry) (FeedbackList, error) {
	sorted := make([]feedback.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.After(sorted[j].Date) })

	items := make([]FeedbackItem, 0, len(sorted))
	for _, e := range sorted {
		var buf bytes.Buffer
		if err := markdown.Convert([]byte(template.HTMLEscapeString(e.Text)), &buf); err != nil {
			return FeedbackList{}, err
		}
		name := e.Name
		if name == "" {
			name = "Anonymous"
		}
		items = append(items, FeedbackItem{
			Name: name,
			Date: e.Date,
			HTML: template.HTML(buf.String()),
		})
	}
	return FeedbackList{Items: items}, nil
}
