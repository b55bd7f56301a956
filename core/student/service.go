package student

import (
	"context"
	"net/mail"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/ktx/core"
)

var (
	// errors
	ErrNotFound     = errors.New("student not found")
	ErrDuplicateKey = errors.New("a student with this MSSV already exists")
)

type (
	// Repository persists the whole student collection, in insertion order.
	Repository interface {
		LoadStudents(ctx context.Context) ([]Student, error)
		SaveStudents(ctx context.Context, students []Student) error
	}

	// Service is the student directory. Every read-modify-write cycle runs under mu.
	Service struct {
		mu          sync.Mutex
		repo        Repository
		validate    *validator.Validate
		mailSvc     core.EmailService
		allowUpdate bool
	}
)

func NewService(repo Repository, validate *validator.Validate, mailSvc core.EmailService, conf *core.Config) *Service {
	return &Service{
		repo:        repo,
		validate:    validate,
		mailSvc:     mailSvc,
		allowUpdate: conf.Registration.AllowUpdate,
	}
}

func (svc *Service) List(ctx context.Context) ([]Student, error) {
	students, err := svc.repo.LoadStudents(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading students")
	}
	return students, nil
}

func (svc *Service) Get(ctx context.Context, mssv string) (Student, error) {
	students, err := svc.List(ctx)
	if err != nil {
		return Student{}, err
	}
	if idx := indexOf(students, core.CleanString(mssv)); idx >= 0 {
		return students[idx], nil
	}
	return Student{}, ErrNotFound
}

// Register admits a student from the registration form.
// A known MSSV replaces the existing record in place (keeping its room unless a new one is given),
// unless updates are disabled, in which case it fails like Add.
func (svc *Service) Register(ctx context.Context, ns NewStudent) (usr Student, updated bool, err error) {
	if !svc.allowUpdate {
		usr, err = svc.Add(ctx, ns)
		return usr, false, err
	}
	if err = ns.Validate(svc.validate); err != nil {
		return Student{}, false, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	students, err := svc.List(ctx)
	if err != nil {
		return Student{}, false, err
	}
	students, updated = upsert(students, ns.student())
	if err = svc.repo.SaveStudents(ctx, students); err != nil {
		return Student{}, false, errors.Wrap(err, "saving students")
	}
	usr = students[indexOf(students, ns.MSSV)]
	if !updated {
		svc.sendWelcome(usr)
	}
	return usr, updated, nil
}

// Add is the strict, add-only admission path.
func (svc *Service) Add(ctx context.Context, ns NewStudent) (Student, error) {
	if err := ns.Validate(svc.validate); err != nil {
		return Student{}, err
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	students, err := svc.List(ctx)
	if err != nil {
		return Student{}, err
	}
	if indexOf(students, ns.MSSV) >= 0 {
		return Student{}, duplicateKeyError(ns.MSSV)
	}
	usr := ns.student()
	if err = svc.repo.SaveStudents(ctx, append(students, usr)); err != nil {
		return Student{}, errors.Wrap(err, "saving students")
	}
	svc.sendWelcome(usr)
	return usr, nil
}

// Delete removes the student with the given MSSV; it is a no-op when there is none.
func (svc *Service) Delete(ctx context.Context, mssv string) error {
	mssv = core.CleanString(mssv)

	svc.mu.Lock()
	defer svc.mu.Unlock()

	students, err := svc.List(ctx)
	if err != nil {
		return err
	}
	idx := indexOf(students, mssv)
	if idx < 0 {
		return nil
	}
	students = append(students[:idx], students[idx+1:]...)
	return errors.Wrap(svc.repo.SaveStudents(ctx, students), "saving students")
}

// FindByCredentials returns the student matching both mssv and email exactly.
func (svc *Service) FindByCredentials(ctx context.Context, mssv, email string) (Student, error) {
	mssv = core.CleanString(mssv)
	email = core.CleanString(email)
	if mssv == "" || email == "" {
		return Student{}, ErrNotFound
	}

	students, err := svc.List(ctx)
	if err != nil {
		return Student{}, err
	}
	for _, s := range students {
		if s.MSSV == mssv && s.Email == email {
			return s, nil
		}
	}
	return Student{}, ErrNotFound
}

// FillRooms sets the room of every roomless student to pick(index), index being
// the student's position in the directory. Students that have a room are left alone.
func (svc *Service) FillRooms(ctx context.Context, pick func(index int) string) (int, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	students, err := svc.List(ctx)
	if err != nil {
		return 0, err
	}
	var n int
	for i := range students {
		if students[i].HasRoom() {
			continue
		}
		if room := pick(i); room != "" {
			students[i].Room = room
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	if err = svc.repo.SaveStudents(ctx, students); err != nil {
		return 0, errors.Wrap(err, "saving students")
	}
	return n, nil
}

// Import validates and merges candidates into the directory, returning the collection
// before and after. With strict, a known MSSV fails the whole import. With dryRun nothing is saved.
func (svc *Service) Import(ctx context.Context, candidates []NewStudent, strict, dryRun bool) (before, after []Student, err error) {
	incoming := make([]Student, 0, len(candidates))
	for i := range candidates {
		if err = candidates[i].Validate(svc.validate); err != nil {
			return nil, nil, errors.Wrapf(err, "record #%d", i+1)
		}
		incoming = append(incoming, candidates[i].student())
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	if before, err = svc.List(ctx); err != nil {
		return nil, nil, err
	}
	if after, err = Merge(before, incoming, strict); err != nil {
		return nil, nil, err
	}
	if !dryRun {
		if err = svc.repo.SaveStudents(ctx, after); err != nil {
			return nil, nil, errors.Wrap(err, "saving students")
		}
	}
	return before, after, nil
}

// Merge applies incoming records to a copy of students the way Register (or Add, when strict) does.
func Merge(students, incoming []Student, strict bool) ([]Student, error) {
	merged := make([]Student, len(students), len(students)+len(incoming))
	copy(merged, students)
	for _, s := range incoming {
		if strict && indexOf(merged, s.MSSV) >= 0 {
			return nil, duplicateKeyError(s.MSSV)
		}
		merged, _ = upsert(merged, s)
	}
	return merged, nil
}

func (svc *Service) sendWelcome(usr Student) {
	if svc.mailSvc == nil || usr.Email == "" {
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Registration complete",
		TemplateName: "student_registered",
		TemplateData: usr,
	})
}

func upsert(students []Student, cand Student) ([]Student, bool) {
	if idx := indexOf(students, cand.MSSV); idx >= 0 {
		if !cand.HasRoom() {
			cand.Room = students[idx].Room
		}
		students[idx] = cand
		return students, true
	}
	return append(students, cand), false
}

func indexOf(students []Student, mssv string) int {
	for i, s := range students {
		if s.MSSV == mssv {
			return i
		}
	}
	return -1
}

func duplicateKeyError(mssv string) error {
	return core.NewValidationError(ErrDuplicateKey, core.FieldError{Field: "mssv", Error: ErrDuplicateKey.Error()})
}
