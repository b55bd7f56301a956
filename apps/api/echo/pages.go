package echoapi

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/ktx/core"
	"github.com/trezcool/ktx/core/feedback"
	"github.com/trezcool/ktx/core/room"
	"github.com/trezcool/ktx/core/session"
	"github.com/trezcool/ktx/core/student"
	"github.com/trezcool/ktx/core/view"
)

const (
	msgRequiredFields = "Please fill in all required fields."
	msgRegistered     = "Registration successful!"
	msgUpdated        = "Information updated successfully!"
	msgEditing        = "Editing student information..."
	msgBadCredentials = "Invalid MSSV or email."
	msgBadAdminLogin  = "Invalid username or password."
	msgFeedbackSent   = "Thank you for your feedback!"
	msgNotConfirmed   = "Action not confirmed."
	msgNoRooms        = "There are no rooms to assign students to."

	exportStudentsFilename = "students_log.json"
	exportAllFilename      = "ktx-data.json"
)

// Export is the full data export.
type Export struct {
	Rooms     []room.Room       `json:"rooms"`
	Inventory room.Inventory    `json:"inventory"`
	Students  []student.Student `json:"students"`
}

func (s *Server) registerPages() {
	s.app.GET("/", s.registerPage)
	s.app.POST("/register", s.register)
	s.app.GET("/login", s.loginPage)
	s.app.POST("/login", s.login)
	s.app.POST("/logout", s.logout)
	s.app.GET("/student", s.studentHome, s.studentMiddleware)
	s.app.GET("/feedback", s.feedbackPage)
	s.app.POST("/feedback", s.submitFeedback)
	s.app.GET("/students/:mssv/edit", s.editStudentPage, s.adminMiddleware)

	s.app.GET("/admin/login", s.adminLoginPage)
	s.app.POST("/admin/login", s.adminLogin)
	s.app.POST("/admin/logout", s.adminLogout)

	admin := s.app.Group("/admin", s.adminMiddleware)
	admin.GET("", s.adminHome)
	admin.GET("/viewer", s.viewer)
	admin.POST("/assign", s.assignRooms)
	admin.POST("/students/:mssv/delete", s.deleteStudent)
	admin.GET("/export", s.exportStudents)
	admin.GET("/export/all", s.exportAll)
	admin.POST("/clear", s.clearAll)
}

func (s *Server) isAdmin(ctx echo.Context) bool {
	return s.sessionState(ctx) == session.AdminSession
}

// fieldErrors splits a validation error into per-field messages and a status line.
func (s *Server) fieldErrors(err error) (map[string]string, string, bool) {
	vErr, ok := errors.Cause(core.TranslateValidationErrors(err, s.deps.Translator)).(*core.ValidationError)
	if !ok {
		return nil, "", false
	}
	flds := make(map[string]string, len(vErr.Fields))
	for _, f := range vErr.Fields {
		flds[f.Field] = f.Error
	}
	msg := msgRequiredFields
	if vErr.Err != nil {
		msg = vErr.Err.Error()
	}
	return flds, msg, true
}

func (s *Server) renderRegister(ctx echo.Context, code int, form view.RegisterForm, status *view.Status) error {
	students, err := s.deps.StudentSvc.List(ctx.Request().Context())
	if err != nil {
		return err
	}
	form.Table = view.NewStudentTable(students, s.isAdmin(ctx))
	form.Table.CSRF = csrfToken(ctx)
	return ctx.Render(code, "register", s.newPage(ctx, "Student registration", form, status))
}

func (s *Server) registerPage(ctx echo.Context) error {
	return s.renderRegister(ctx, http.StatusOK, view.RegisterForm{}, nil)
}

func (s *Server) register(ctx echo.Context) error {
	var ns student.NewStudent
	if err := ctx.Bind(&ns); err != nil {
		return err
	}
	editing := ctx.FormValue("editing") == "yes"
	if !s.isAdmin(ctx) {
		// only admins assign rooms through the edit form
		ns.Room = ""
		editing = false
	}

	usr, updated, err := s.deps.StudentSvc.Register(ctx.Request().Context(), ns)
	if err != nil {
		flds, msg, ok := s.fieldErrors(err)
		if !ok {
			return err
		}
		s.metrics.registrations.WithLabelValues("rejected").Inc()
		form := view.RegisterForm{Form: ns, Editing: editing, Errors: flds}
		return s.renderRegister(ctx, http.StatusBadRequest, form, view.Failure(msg))
	}

	msg := msgRegistered
	if updated {
		msg = msgUpdated
		s.metrics.registrations.WithLabelValues("updated").Inc()
	} else {
		s.metrics.registrations.WithLabelValues("created").Inc()
	}
	s.deps.Logger.Info("student registered", map[string]interface{}{"mssv": usr.MSSV, "updated": updated})
	return s.renderRegister(ctx, http.StatusOK, view.RegisterForm{}, view.Success(msg))
}

func (s *Server) editStudentPage(ctx echo.Context) error {
	usr, err := s.deps.StudentSvc.Get(ctx.Request().Context(), ctx.Param("mssv"))
	if err != nil {
		if errors.Cause(err) == student.ErrNotFound {
			return s.renderRegister(ctx, http.StatusNotFound, view.RegisterForm{}, view.Failure(student.ErrNotFound.Error()))
		}
		return err
	}
	form := view.RegisterForm{Form: student.FromStudent(usr), Editing: true}
	return s.renderRegister(ctx, http.StatusOK, form, view.Success(msgEditing))
}

func (s *Server) loginPage(ctx echo.Context) error {
	return ctx.Render(http.StatusOK, "login", s.newPage(ctx, "Student login", view.LoginForm{}, nil))
}

func (s *Server) login(ctx echo.Context) error {
	form := view.LoginForm{MSSV: ctx.FormValue("mssv"), Email: ctx.FormValue("email")}
	_, err := s.deps.SessionSvc.LoginStudent(ctx.Request().Context(), getScope(ctx), form.MSSV, form.Email)
	if err != nil {
		if errors.Cause(err) != student.ErrNotFound {
			return err
		}
		s.metrics.login("student", false)
		return ctx.Render(http.StatusUnauthorized, "login", s.newPage(ctx, "Student login", form, view.Failure(msgBadCredentials)))
	}
	s.metrics.login("student", true)
	return ctx.Redirect(http.StatusSeeOther, "/student")
}

func (s *Server) logout(ctx echo.Context) error {
	if err := s.deps.SessionSvc.LogoutStudent(ctx.Request().Context(), getScope(ctx)); err != nil {
		return err
	}
	return ctx.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) studentHome(ctx echo.Context) error {
	usr, _ := getContextStudent(ctx)
	rctx := ctx.Request().Context()

	// the session holds a snapshot; show the current record when it still exists
	if current, err := s.deps.StudentSvc.Get(rctx, usr.MSSV); err == nil {
		usr = current
	} else if errors.Cause(err) != student.ErrNotFound {
		return err
	}
	rooms, err := s.deps.RoomSvc.Rooms(rctx)
	if err != nil {
		return err
	}
	students, err := s.deps.StudentSvc.List(rctx)
	if err != nil {
		return err
	}
	home := view.NewStudentHome(usr, rooms, students)
	return ctx.Render(http.StatusOK, "student", s.newPage(ctx, "Welcome, "+usr.Name, home, nil))
}

func (s *Server) adminLoginPage(ctx echo.Context) error {
	if s.isAdmin(ctx) {
		return ctx.Redirect(http.StatusSeeOther, "/admin")
	}
	return ctx.Render(http.StatusOK, "admin_login", s.newPage(ctx, "Admin login", view.AdminLoginForm{}, nil))
}

func (s *Server) adminLogin(ctx echo.Context) error {
	form := view.AdminLoginForm{Username: ctx.FormValue("username")}
	err := s.deps.SessionSvc.LoginAdmin(ctx.Request().Context(), getScope(ctx), form.Username, ctx.FormValue("password"))
	if err != nil {
		if errors.Cause(err) != session.ErrInvalidCredentials {
			return err
		}
		s.metrics.login("admin", false)
		return ctx.Render(http.StatusUnauthorized, "admin_login", s.newPage(ctx, "Admin login", form, view.Failure(msgBadAdminLogin)))
	}
	s.metrics.login("admin", true)
	return ctx.Redirect(http.StatusSeeOther, "/admin")
}

func (s *Server) adminLogout(ctx echo.Context) error {
	if err := s.deps.SessionSvc.LogoutAdmin(ctx.Request().Context(), getScope(ctx)); err != nil {
		return err
	}
	return ctx.Redirect(http.StatusSeeOther, "/admin/login")
}

func (s *Server) renderAdmin(ctx echo.Context, code int, viewName string, status *view.Status) error {
	rctx := ctx.Request().Context()
	if err := s.deps.RoomSvc.EnsureSample(rctx); err != nil {
		return err
	}
	students, err := s.deps.StudentSvc.List(rctx)
	if err != nil {
		return err
	}
	rooms, err := s.deps.RoomSvc.Rooms(rctx)
	if err != nil {
		return err
	}

	home := view.AdminHome{
		View:     view.NormalizeAdminView(viewName),
		Views:    view.AdminViews,
		Stats:    view.NewStats(rooms, students),
		Students: view.NewStudentTable(students, true),
		Rooms:    view.NewRoomStudents(rooms, students),
	}
	home.Students.CSRF = csrfToken(ctx)

	switch home.View {
	case view.AdminViewInventory:
		inv, err := s.deps.RoomSvc.Inventory(rctx)
		if err != nil {
			return err
		}
		home.Matrix = view.NewFacilityMatrix(rooms, inv)
	case view.AdminViewFeedback:
		entries, err := s.deps.FeedbackSvc.List(rctx)
		if err != nil {
			return err
		}
		if home.Feedback, err = view.NewFeedbackList(entries); err != nil {
			return errors.Wrap(err, "rendering feedback")
		}
	}
	return ctx.Render(code, "admin", s.newPage(ctx, "Admin dashboard", home, status))
}

func (s *Server) adminHome(ctx echo.Context) error {
	return s.renderAdmin(ctx, http.StatusOK, ctx.QueryParam("view"), nil)
}

func (s *Server) viewer(ctx echo.Context) error {
	roomID, facility := core.CleanString(ctx.QueryParam("room")), core.CleanString(ctx.QueryParam("facility"))
	if roomID == "" || facility == "" {
		return errInvalidQueryArgs
	}
	rctx := ctx.Request().Context()
	r, err := s.deps.RoomSvc.Get(rctx, roomID)
	if err != nil {
		if errors.Cause(err) == room.ErrNotFound {
			return errRoomNotFound
		}
		return err
	}
	inv, err := s.deps.RoomSvc.Inventory(rctx)
	if err != nil {
		return err
	}
	return ctx.Render(http.StatusOK, "viewer", view.NewImagePanel(r, facility, inv.Count(r.ID, facility)))
}

func (s *Server) assignRooms(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	if err := s.deps.RoomSvc.EnsureSample(rctx); err != nil {
		return err
	}
	n, err := s.deps.RoomSvc.AssignUnroomedStudents(rctx)
	if err != nil {
		if errors.Cause(err) == room.ErrNoRooms {
			return s.renderAdmin(ctx, http.StatusConflict, view.AdminViewRooms, view.Failure(msgNoRooms))
		}
		return err
	}
	s.metrics.assignments.Add(float64(n))
	return ctx.Redirect(http.StatusSeeOther, "/admin?view="+view.AdminViewRooms)
}

func (s *Server) deleteStudent(ctx echo.Context) error {
	if ctx.FormValue("confirm") != "yes" {
		return s.renderAdmin(ctx, http.StatusBadRequest, view.AdminViewStudents, view.Failure(msgNotConfirmed))
	}
	if err := s.deps.StudentSvc.Delete(ctx.Request().Context(), ctx.Param("mssv")); err != nil {
		return err
	}
	s.metrics.deletions.Inc()
	return ctx.Redirect(http.StatusSeeOther, "/admin?view="+view.AdminViewStudents)
}

func attachJSON(ctx echo.Context, filename string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encoding export")
	}
	ctx.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+url.PathEscape(filename))
	return ctx.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, data)
}

func (s *Server) exportStudents(ctx echo.Context) error {
	students, err := s.deps.StudentSvc.List(ctx.Request().Context())
	if err != nil {
		return err
	}
	return attachJSON(ctx, exportStudentsFilename, students)
}

func (s *Server) exportAll(ctx echo.Context) error {
	rctx := ctx.Request().Context()
	var (
		data Export
		err  error
	)
	if data.Rooms, err = s.deps.RoomSvc.Rooms(rctx); err != nil {
		return err
	}
	if data.Inventory, err = s.deps.RoomSvc.Inventory(rctx); err != nil {
		return err
	}
	if data.Students, err = s.deps.StudentSvc.List(rctx); err != nil {
		return err
	}
	return attachJSON(ctx, exportAllFilename, data)
}

// clearAll wipes every collection and this client's session, logging the admin out.
func (s *Server) clearAll(ctx echo.Context) error {
	if ctx.FormValue("confirm") != "yes" {
		return s.renderAdmin(ctx, http.StatusBadRequest, view.AdminViewStudents, view.Failure(msgNotConfirmed))
	}
	if err := s.deps.Gateway.Wipe(ctx.Request().Context(), getScope(ctx)); err != nil {
		return err
	}
	s.deps.Logger.Warn("all data cleared", map[string]interface{}{"scope": getScope(ctx)})
	return ctx.Redirect(http.StatusSeeOther, "/admin/login")
}

func (s *Server) feedbackPage(ctx echo.Context) error {
	form := view.FeedbackForm{}
	if usr, ok, _ := s.deps.SessionSvc.CurrentStudent(ctx.Request().Context(), getScope(ctx)); ok {
		form.Form.Name, form.Form.Email = usr.Name, usr.Email
	}
	return ctx.Render(http.StatusOK, "feedback", s.newPage(ctx, "Feedback", form, nil))
}

func (s *Server) submitFeedback(ctx echo.Context) error {
	var ne feedback.NewEntry
	if err := ctx.Bind(&ne); err != nil {
		return err
	}
	if _, err := s.deps.FeedbackSvc.Submit(ctx.Request().Context(), ne); err != nil {
		flds, msg, ok := s.fieldErrors(err)
		if !ok {
			return err
		}
		form := view.FeedbackForm{Form: ne, Errors: flds}
		return ctx.Render(http.StatusBadRequest, "feedback", s.newPage(ctx, "Feedback", form, view.Failure(msg)))
	}
	return ctx.Render(http.StatusOK, "feedback", s.newPage(ctx, "Feedback", view.FeedbackForm{}, view.Success(msgFeedbackSent)))
}
