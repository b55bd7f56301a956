package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ktx/core"
	"github.com/trezcool/ktx/core/student"
	"github.com/trezcool/ktx/storage/gateway"
	"github.com/trezcool/ktx/storage/kv/inmem"
)

// Config returns the test configuration: memory store, no CSRF, welcome emails enabled.
func Config() *core.Config {
	conf := core.NewConfig()
	conf.Debug = false
	conf.TestMode = true
	conf.Store.Backend = "memory"
	conf.Server.CSRF = false
	conf.Admin.Username = "admin"
	conf.Admin.Password = "admin123"
	conf.Registration.AllowUpdate = true
	conf.Sample.Rooms = 5
	conf.Sample.Facilities = []string{"Bed", "Wardrobe", "Desk", "Chair", "Fan"}
	conf.Sample.MaxCount = 4
	return conf
}

// Validator returns a validator with the app's custom tags and translations.
func Validator() *validator.Validate {
	validate, _ := ValidatorWithTranslator()
	return validate
}

// ValidatorWithTranslator returns a validator and the translator its messages are registered on.
func ValidatorWithTranslator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	return validate, translator
}

type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// Logger is a core.Logger that records entries.
type Logger struct {
	mu      sync.Mutex
	Entries []LogEntry
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	l.Entries = append(l.Entries, LogEntry{Level: level, Msg: msg, Args: args})
	l.mu.Unlock()
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) {
	l.log("fatal", msg, args)
	panic(fmt.Sprintf("fatal: %s", msg))
}

// Count returns the number of entries logged at level.
func (l *Logger) Count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int
	for _, e := range l.Entries {
		if e.Level == level {
			n++
		}
	}
	return n
}

// PrepareGateway returns a gateway over a fresh in-memory store.
func PrepareGateway(t *testing.T) (*gateway.Gateway, *inmem.Store, *Logger) {
	t.Helper()
	store := inmem.NewStore()
	logger := new(Logger)
	return gateway.New(store, logger), store, logger
}

// SetRaw stores raw bytes under key, bypassing the gateway.
func SetRaw(t *testing.T, store core.KVStore, key, value string) {
	t.Helper()
	if err := store.Set(context.Background(), key, []byte(value)); err != nil {
		t.Fatalf("SetRaw() failed: %v", err)
	}
}

func CreateStudent(t *testing.T, svc *student.Service, name, mssv, email string, room ...string) student.Student {
	t.Helper()
	ns := student.NewStudent{Name: name, MSSV: mssv, Email: email}
	if len(room) > 0 {
		ns.Room = room[0]
	}
	usr, _, err := svc.Register(context.Background(), ns)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return usr
}
