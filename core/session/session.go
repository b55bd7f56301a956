package session

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/ktx/core"
	"github.com/trezcool/ktx/core/student"
)

// States
const (
	Anonymous State = iota
	StudentSession
	AdminSession
)

var ErrInvalidCredentials = errors.New("invalid username or password")

type (
	// State of a client. A client holding both flags is reported as AdminSession.
	State int

	// Repository stores the session flags of one client scope.
	Repository interface {
		LoadStudent(ctx context.Context, scope string) (student.Student, bool, error)
		SaveStudent(ctx context.Context, scope string, usr student.Student) error
		RemoveStudent(ctx context.Context, scope string) error
		LoadAdmin(ctx context.Context, scope string) (bool, error)
		SaveAdmin(ctx context.Context, scope string, loggedIn bool) error
		RemoveAdmin(ctx context.Context, scope string) error
	}

	// Directory is the part of the student directory used for student logins.
	Directory interface {
		FindByCredentials(ctx context.Context, mssv, email string) (student.Student, error)
	}

	// AdminAccount is the single admin login.
	AdminAccount struct {
		Username     string
		PasswordHash []byte
	}

	Service struct {
		repo  Repository
		dir   Directory
		admin AdminAccount
	}
)

func (s State) String() string {
	switch s {
	case StudentSession:
		return "student"
	case AdminSession:
		return "admin"
	default:
		return "anonymous"
	}
}

func NewAdminAccount(username, pwd string) (AdminAccount, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return AdminAccount{}, errors.Wrap(err, "hashing admin password")
	}
	return AdminAccount{Username: core.CleanString(username), PasswordHash: hash}, nil
}

func (a AdminAccount) Check(username, pwd string) bool {
	if a.Username == "" || core.CleanString(username) != a.Username {
		return false
	}
	return bcrypt.CompareHashAndPassword(a.PasswordHash, []byte(pwd)) == nil
}

func NewService(repo Repository, dir Directory, admin AdminAccount) *Service {
	return &Service{repo: repo, dir: dir, admin: admin}
}

// NewServiceFromConfig builds the admin account from the configured credentials.
func NewServiceFromConfig(repo Repository, dir Directory, conf *core.Config) (*Service, error) {
	admin, err := NewAdminAccount(conf.Admin.Username, conf.Admin.Password)
	if err != nil {
		return nil, err
	}
	return NewService(repo, dir, admin), nil
}

func (svc *Service) State(ctx context.Context, scope string) (State, error) {
	isAdmin, err := svc.IsAdmin(ctx, scope)
	if err != nil {
		return Anonymous, err
	}
	if isAdmin {
		return AdminSession, nil
	}
	if _, ok, err := svc.CurrentStudent(ctx, scope); err != nil {
		return Anonymous, err
	} else if ok {
		return StudentSession, nil
	}
	return Anonymous, nil
}

// LoginStudent stores a snapshot of the matching student as the scope's logged-in student.
// It returns student.ErrNotFound when mssv and email do not match a registered student.
func (svc *Service) LoginStudent(ctx context.Context, scope, mssv, email string) (student.Student, error) {
	usr, err := svc.dir.FindByCredentials(ctx, mssv, email)
	if err != nil {
		return student.Student{}, err
	}
	if err = svc.repo.SaveStudent(ctx, scope, usr); err != nil {
		return student.Student{}, errors.Wrap(err, "saving student session")
	}
	return usr, nil
}

func (svc *Service) CurrentStudent(ctx context.Context, scope string) (student.Student, bool, error) {
	usr, ok, err := svc.repo.LoadStudent(ctx, scope)
	if err != nil {
		return student.Student{}, false, errors.Wrap(err, "loading student session")
	}
	return usr, ok, nil
}

func (svc *Service) LogoutStudent(ctx context.Context, scope string) error {
	return errors.Wrap(svc.repo.RemoveStudent(ctx, scope), "removing student session")
}

func (svc *Service) LoginAdmin(ctx context.Context, scope, username, pwd string) error {
	if !svc.admin.Check(username, pwd) {
		return ErrInvalidCredentials
	}
	return errors.Wrap(svc.repo.SaveAdmin(ctx, scope, true), "saving admin session")
}

func (svc *Service) IsAdmin(ctx context.Context, scope string) (bool, error) {
	ok, err := svc.repo.LoadAdmin(ctx, scope)
	return ok, errors.Wrap(err, "loading admin session")
}

func (svc *Service) LogoutAdmin(ctx context.Context, scope string) error {
	return errors.Wrap(svc.repo.RemoveAdmin(ctx, scope), "removing admin session")
}

// CheckAdminPassword is used by the admin CLI to confirm destructive commands.
func (svc *Service) CheckAdminPassword(pwd string) bool {
	return svc.admin.Check(svc.admin.Username, pwd)
}
