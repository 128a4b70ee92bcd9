package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/dig"

	dig_container "github.com/trezcool/academia/apps/api/di/dig"
	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/academic"
	"github.com/trezcool/academia/core/user"
)

// api holds everything the api process runs and must release.
type api struct {
	dig.In

	Conf     *core.Config
	Logger   core.Logger
	DBLogger core.Logger `name:"dbLogger"`
	Backend  dig_container.Backend
	Profiles *user.Accessor
	Records  *academic.Records
	Server   *echoapi.Server
}

// flusher is implemented by the loggers that report asynchronously.
type flusher interface {
	Flush()
}

func startWithDig() {
	c := dig_container.New()

	var runErr error
	must(c.Invoke(func(app api) {
		runErr = app.run()
	}))
	if runErr != nil {
		log.Fatal(runErr)
	}
}

func (app api) run() error {
	// =========================================================================
	// Initialize App

	app.Logger.Info(fmt.Sprintf(
		"Application initializing : version %q, engine %q, cache %t",
		app.Conf.Build, app.Conf.Database.Engine, app.Conf.Redis.Addr != "",
	))
	defer app.release()

	ctx, cancel := context.WithTimeout(context.Background(), app.Conf.Store.Timeout)
	err := checkRecords(ctx, app.Profiles, app.Records, app.Logger)
	cancel()
	if err != nil {
		return errors.Wrap(err, "checking the record store")
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	expvar.NewString("build").Set(app.Conf.Build)
	expvar.NewString("env").Set(app.Conf.Env)
	expvar.NewString("engine").Set(app.Conf.Database.Engine)
	expvar.NewString("started").Set(time.Now().UTC().Format(time.RFC3339))

	go func() {
		if err := http.ListenAndServe(app.Conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			app.Logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	go app.Server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err := <-app.Server.Errors():
		return errors.Wrap(err, "server error")

	case sig := <-app.Server.ShutdownSignal():
		app.Logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		ctx, cancel := context.WithTimeout(context.Background(), app.Conf.Server.ShutdownTimeout)
		defer cancel()

		if err := app.Server.Shutdown(ctx); err != nil {
			app.Logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
			if err = app.Server.Close(); err != nil {
				return errors.Wrap(err, "could not force stop server")
			}
		}
	}
	return nil
}

// release closes the record store once no request can reach it, then flushes the pending reports.
func (app api) release() {
	if err := app.Backend.Close(); err != nil {
		app.DBLogger.Error("failed to close the record store", err)
	}
	app.Logger.Info("Application stopped")

	for _, l := range []core.Logger{app.DBLogger, app.Logger} {
		if f, ok := l.(flusher); ok {
			f.Flush()
		}
	}
}

// checkRecords reads the store once before serving, and warns about a deployment nobody can administer.
func checkRecords(ctx context.Context, profiles *user.Accessor, records *academic.Records, logger core.Logger) error {
	admins, err := profiles.ByRole(ctx, user.RoleAdmin)
	if err != nil {
		return err
	}
	if len(admins) == 0 {
		logger.Warn("no admin account yet, create one with `admin adduser -role admin`")
	}

	deps, err := records.Departments.All(ctx)
	if err != nil {
		return err
	}
	logger.Info(fmt.Sprintf("record store ready : %d admin(s), %d department(s)", len(admins), len(deps)))
	return nil
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
