package feedback

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/ktx/core"
)

var nowFunc = time.Now // mockable

type (
	Entry struct {
		Name  string    `json:"name"`
		Email string    `json:"email"`
		Text  string    `json:"text"`
		Date  time.Time `json:"date"`
	}

	NewEntry struct {
		Name  string `json:"name" form:"name" validate:"max=120"`
		Email string `json:"email" form:"email" validate:"omitempty,email"`
		Text  string `json:"text" form:"text" validate:"required,notblank,max=4000"`
	}

	Repository interface {
		LoadFeedback(ctx context.Context) ([]Entry, error)
		SaveFeedback(ctx context.Context, entries []Entry) error
	}

	// Service keeps the append-only feedback list.
	Service struct {
		mu       sync.Mutex
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

func (svc *Service) List(ctx context.Context) ([]Entry, error) {
	entries, err := svc.repo.LoadFeedback(ctx)
	return entries, errors.Wrap(err, "loading feedback")
}

func (svc *Service) Submit(ctx context.Context, ne NewEntry) (Entry, error) {
	ne.Name = core.CleanString(ne.Name)
	ne.Email = core.CleanString(ne.Email)
	ne.Text = core.CleanString(ne.Text)
	if err := svc.validate.Struct(ne); err != nil {
		return Entry{}, err
	}
	entry := Entry{
		Name:  ne.Name,
		Email: ne.Email,
		Text:  ne.Text,
		Date:  nowFunc().UTC(),
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()

	entries, err := svc.List(ctx)
	if err != nil {
		return Entry{}, err
	}
	if err = svc.repo.SaveFeedback(ctx, append(entries, entry)); err != nil {
		return Entry{}, errors.Wrap(err, "saving feedback")
	}
	return entry, nil
}
