package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/academic"
	"github.com/trezcool/academia/core/store"
	"github.com/trezcool/academia/core/user"
	emailsvc "github.com/trezcool/academia/services/email"
	"github.com/trezcool/academia/services/identity/local"
	logsvc "github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/storage/database"
)

func main() {
	conf := core.NewConfig()

	stdLogger := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	// set up the record store
	backend, closeBackend, err := database.OpenBackend(context.Background(), conf, logger)
	if err != nil {
		stdLogger.Fatal(err)
	}

	storeOpts := []store.Option{store.WithTimeout(conf.Store.Timeout)}
	cli := commandLine{
		conf:     conf,
		dir:      local.NewDirectory(backend, conf, validate, emailsvc.NewService(conf, logger), local.WithStoreOptions(storeOpts...)),
		profiles: user.NewAccessor(backend, storeOpts...),
		records:  academic.NewRecords(backend, storeOpts...),
		validate: validate,
		out:      os.Stdout,
	}
	if conf.Database.Engine == database.EnginePostgres {
		cli.openDB = func() (*sql.DB, error) { return database.Open(conf) }
	}

	// start CLI
	err = cli.run(os.Args)
	if cerr := closeBackend(); cerr != nil {
		stdLogger.Printf("closing the record store: %v", cerr)
	}
	if err != nil {
		if err != errHelp {
			stdLogger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
