package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/ktx/apps/api/echo"
	"github.com/trezcool/ktx/core"
	"github.com/trezcool/ktx/core/feedback"
	"github.com/trezcool/ktx/core/room"
	"github.com/trezcool/ktx/core/session"
	"github.com/trezcool/ktx/core/student"
	"github.com/trezcool/ktx/core/view"
	emailsvc "github.com/trezcool/ktx/services/email"
	logsvc "github.com/trezcool/ktx/services/logger"
	"github.com/trezcool/ktx/storage/gateway"
	"github.com/trezcool/ktx/storage/kv"
)

type StoreLoggerParam struct {
	dig.In
	Logger core.Logger `name:"storeLogger"`
}

type serverParams struct {
	dig.In
	Conf        *core.Config
	Logger      core.Logger
	Translator  ut.Translator
	Renderer    *view.Renderer
	Gateway     *gateway.Gateway
	StudentSvc  *student.Service
	RoomSvc     *room.Registry
	SessionSvc  *session.Service
	FeedbackSvc *feedback.Service
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newStoreLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "STORE : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

// NewKVStore opens the configured backend: memory (default), redis or postgres.
func NewKVStore(conf *core.Config, loggerParam StoreLoggerParam) core.KVStore {
	store, err := kv.Open(context.Background(), conf)
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up %s store: %v", conf.Store.Backend, err), err)
	}
	return store
}

func newGateway(store core.KVStore, loggerParam StoreLoggerParam) *gateway.Gateway {
	return gateway.New(store, loggerParam.Logger)
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(conf)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(p.Conf, &echoapi.Deps{
		Logger:      p.Logger,
		Translator:  p.Translator,
		Renderer:    p.Renderer,
		Gateway:     p.Gateway,
		StudentSvc:  p.StudentSvc,
		RoomSvc:     p.RoomSvc,
		SessionSvc:  p.SessionSvc,
		FeedbackSvc: p.FeedbackSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newStoreLogger, dig.Name("storeLogger")))
	must(c.Provide(NewKVStore))
	must(c.Provide(newGateway))
	must(c.Provide(gateway.NewStudentRepository))
	must(c.Provide(gateway.NewRoomRepository))
	must(c.Provide(gateway.NewSessionRepository))
	must(c.Provide(gateway.NewFeedbackRepository))
	must(c.Provide(newEmailService))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(student.NewService))
	must(c.Provide(func(svc *student.Service) room.StudentFiller { return svc }))
	must(c.Provide(func(svc *student.Service) session.Directory { return svc }))
	must(c.Provide(room.NewRegistry))
	must(c.Provide(session.NewServiceFromConfig))
	must(c.Provide(feedback.NewService))
	must(c.Provide(view.NewRenderer))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
