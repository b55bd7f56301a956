package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ktx/core/student"
	"github.com/trezcool/ktx/core/view"
)

type registerResponse struct {
	Student student.Student `json:"student"`
	Updated bool            `json:"updated"`
}

type matrixResponse struct {
	Rooms      []string         `json:"rooms"`
	Facilities []string         `json:"facilities"`
	Counts     map[string][]int `json:"counts"` // facility -> count per room, in rooms order
}

func (s *Server) registerAPI(g *echo.Group) {
	g.GET("/students", s.listStudents)
	g.POST("/students", s.createStudent)
	g.GET("/students/:mssv", s.getStudent)
	g.DELETE("/students/:mssv", s.destroyStudent, s.adminMiddleware)
	g.GET("/rooms", s.listRooms)
	g.GET("/inventory", s.getInventory)
	g.GET("/matrix", s.getMatrix)
}

func (s *Server) listStudents(ctx echo.Context) error {
	students, err := s.deps.StudentSvc.List(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, students)
}

func (s *Server) createStudent(ctx echo.Context) error {
	var ns student.NewStudent
	if err := ctx.Bind(&ns); err != nil {
		return err
	}
	if ok, _ := s.deps.SessionSvc.IsAdmin(ctx.Request().Context(), getScope(ctx)); !ok {
		ns.Room = ""
	}
	usr, updated, err := s.deps.StudentSvc.Register(ctx.Request().Context(), ns)
	if err != nil {
		s.metrics.registrations.WithLabelValues("rejected").Inc()
		return err
	}
	code := http.StatusCreated
	if updated {
		code = http.StatusOK
		s.metrics.registrations.WithLabelValues("updated").Inc()
	} else {
		s.metrics.registrations.WithLabelValues("created").Inc()
	}
	return ctx.JSON(code, registerResponse{Student: usr, Updated: updated})
}

func (s *Server) getStudent(ctx echo.Context) error {
	usr, err := s.deps.StudentSvc.Get(ctx.Request().Context(), ctx.Param("mssv"))
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return errStudentNotFound
		}
		return err
	}
	return ctx.JSON(http.StatusOK, usr)
}

func (s *Server) destroyStudent(ctx echo.Context) error {
	if err := s.deps.StudentSvc.Delete(ctx.Request().Context(), ctx.Param("mssv")); err != nil {
		return err
	}
	s.metrics.deletions.Inc()
	return ctx.NoContent(http.StatusNoContent)
}

func (s *Server) listRooms(ctx echo.Context) error {
	rooms, err := s.deps.RoomSvc.Rooms(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, rooms)
}

func (s *Server) getInventory(ctx echo.Context) error {
	inv, err := s.deps.RoomSvc.Inventory(ctx.Request().Context())
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (s *Server) getMatrix(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	rooms, err := s.deps.RoomSvc.Rooms(rctx)
	if err != nil {
		return err
	}
	inv, err := s.deps.RoomSvc.Inventory(rctx)
	if err != nil {
		return err
	}
	matrix := view.NewFacilityMatrix(rooms, inv)

	res := matrixResponse{
		Rooms:      make([]string, 0, len(rooms)),
		Facilities: make([]string, 0, len(matrix.Rows)),
		Counts:     make(map[string][]int, len(matrix.Rows)),
	}
	for _, r := range rooms {
		res.Rooms = append(res.Rooms, r.ID)
	}
	for _, row := range matrix.Rows {
		res.Facilities = append(res.Facilities, row.Facility)
		counts := make([]int, 0, len(row.Cells))
		for _, c := range row.Cells {
			counts = append(counts, c.Count)
		}
		res.Counts[row.Facility] = counts
	}
	return ctx.JSON(http.StatusOK, res)
}
