package main

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/ktx/core"
	"github.com/trezcool/ktx/core/room"
	"github.com/trezcool/ktx/core/session"
	"github.com/trezcool/ktx/core/student"
	emailsvc "github.com/trezcool/ktx/services/email"
	logsvc "github.com/trezcool/ktx/services/logger"
	"github.com/trezcool/ktx/storage/database"
	"github.com/trezcool/ktx/storage/gateway"
	"github.com/trezcool/ktx/storage/kv"
)

var logger *log.Logger

func main() {
	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf := core.NewConfig()
	storeLogger := logsvc.NewRollbarLogger(log.New(os.Stderr, "STORE : ", log.LstdFlags), conf)
	storeLogger.Enable(false)

	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())
	core.ParseEmailTemplates(conf, storeLogger)

	// set up store
	store, err := kv.Open(context.Background(), conf)
	errAndDie(err)
	defer func() { _ = store.Close() }()

	cli := commandLine{out: os.Stdout}
	if conf.Store.Backend == kv.Postgres {
		db, err := database.Open(conf)
		errAndDie(err)
		defer func() { _ = db.Close() }()
		cli.db = db.DB
	}

	// set up services
	cli.gw = gateway.New(store, storeLogger)
	cli.students = student.NewService(gateway.NewStudentRepository(cli.gw), validate, emailsvc.NewConsoleService(conf), conf)
	cli.rooms = room.NewRegistry(gateway.NewRoomRepository(cli.gw), cli.students, conf)
	cli.sessions, err = session.NewServiceFromConfig(gateway.NewSessionRepository(cli.gw), cli.students, conf)
	errAndDie(err)

	// start CLI
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
