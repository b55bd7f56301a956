package room

import (
	"context"
	"math/rand"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/ktx/core"
)

var (
	randIntn = rand.Intn // mockable

	// errors
	ErrNotFound = errors.New("room not found")
	ErrNoRooms  = errors.New("no rooms available")
)

type (
	Repository interface {
		LoadRooms(ctx context.Context) ([]Room, error)
		SaveRooms(ctx context.Context, rooms []Room) error
		LoadInventory(ctx context.Context) (Inventory, error)
		SaveInventory(ctx context.Context, inv Inventory) error
	}

	// StudentFiller is the part of the student directory the registry assigns rooms through.
	StudentFiller interface {
		FillRooms(ctx context.Context, pick func(index int) string) (int, error)
	}

	// Sample holds the constants of the bootstrap data set.
	Sample struct {
		Rooms      int
		Facilities []string
		MaxCount   int // exclusive
	}

	Registry struct {
		mu       sync.Mutex
		repo     Repository
		students StudentFiller
		sample   Sample
	}
)

func NewRegistry(repo Repository, students StudentFiller, conf *core.Config) *Registry {
	sample := Sample{
		Rooms:      conf.Sample.Rooms,
		Facilities: conf.Sample.Facilities,
		MaxCount:   conf.Sample.MaxCount,
	}
	if sample.MaxCount <= 0 {
		sample.MaxCount = 4
	}
	return &Registry{
		repo:     repo,
		students: students,
		sample:   sample,
	}
}

func (reg *Registry) Rooms(ctx context.Context) ([]Room, error) {
	rooms, err := reg.repo.LoadRooms(ctx)
	return rooms, errors.Wrap(err, "loading rooms")
}

func (reg *Registry) Get(ctx context.Context, id string) (Room, error) {
	rooms, err := reg.Rooms(ctx)
	if err != nil {
		return Room{}, err
	}
	id = core.CleanString(id)
	for _, r := range rooms {
		if r.ID == id {
			return r, nil
		}
	}
	return Room{}, ErrNotFound
}

func (reg *Registry) Inventory(ctx context.Context) (Inventory, error) {
	inv, err := reg.repo.LoadInventory(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "loading inventory")
	}
	if inv == nil {
		inv = make(Inventory)
	}
	return inv, nil
}

// EnsureSample bootstraps the sample rooms when there are none, and sample facility counts
// in [0, MaxCount) for every room when the inventory is empty. Existing data is never overwritten.
func (reg *Registry) EnsureSample(ctx context.Context) error {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	rooms, err := reg.Rooms(ctx)
	if err != nil {
		return err
	}
	if len(rooms) == 0 {
		rooms = make([]Room, 0, reg.sample.Rooms)
		for i := 1; i <= reg.sample.Rooms; i++ {
			id := strconv.Itoa(100 + i)
			rooms = append(rooms, Room{ID: id, Name: "Room " + id})
		}
		if err = reg.repo.SaveRooms(ctx, rooms); err != nil {
			return errors.Wrap(err, "saving sample rooms")
		}
	}

	inv, err := reg.Inventory(ctx)
	if err != nil {
		return err
	}
	if !inv.IsEmpty() || len(rooms) == 0 {
		return nil
	}
	for _, r := range rooms {
		items := make(map[string]int, len(reg.sample.Facilities))
		for _, name := range reg.sample.Facilities {
			items[name] = randIntn(reg.sample.MaxCount)
		}
		inv[r.ID] = items
	}
	return errors.Wrap(reg.repo.SaveInventory(ctx, inv), "saving sample inventory")
}

// AssignUnroomedStudents gives every student without a room rooms[index mod len(rooms)],
// index being the student's position in the directory. It is a one-time fill:
// students that already have a room keep it.
func (reg *Registry) AssignUnroomedStudents(ctx context.Context) (int, error) {
	rooms, err := reg.Rooms(ctx)
	if err != nil {
		return 0, err
	}
	if len(rooms) == 0 {
		return 0, ErrNoRooms
	}
	n, err := reg.students.FillRooms(ctx, func(index int) string {
		return rooms[index%len(rooms)].ID
	})
	return n, errors.Wrap(err, "assigning rooms")
}
