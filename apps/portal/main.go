package main

import (
	"context"
	"log"
	"os"
	"strings"
	"syscall"

	"github.com/go-playground/validator/v10"
	"golang.org/x/term"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/session"
	"github.com/trezcool/academia/core/store"
	"github.com/trezcool/academia/core/user"
	emailsvc "github.com/trezcool/academia/services/email"
	"github.com/trezcool/academia/services/identity/local"
	logsvc "github.com/trezcool/academia/services/logger"
	"github.com/trezcool/academia/storage/database"
)

func main() {
	conf := core.NewConfig()

	stdLogger := log.New(os.Stderr, "PORTAL : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	backend, closeBackend, err := database.OpenBackend(context.Background(), conf, logger)
	if err != nil {
		stdLogger.Fatal(err)
	}
	defer func() { _ = closeBackend() }()

	storeOpts := []store.Option{store.WithTimeout(conf.Store.Timeout)}
	dir := local.NewDirectory(backend, conf, validate, emailsvc.NewService(conf, logger), local.WithStoreOptions(storeOpts...))
	svc := auth.NewService(
		dir.NewClient(),
		user.NewAccessor(backend, storeOpts...),
		validate,
		auth.WithTimeout(conf.Auth.Timeout),
		auth.WithLogger(logger),
	)

	var p *portal
	mgr := session.NewManager(svc, session.WithLogger(logger), session.WithNotifier(session.NotifierFunc(func(n session.Notice) {
		p.Notify(n)
	})))
	p = newPortal(mgr, os.Stdin, os.Stdout)
	if term.IsTerminal(int(syscall.Stdin)) {
		p.readPassword = func() (string, error) {
			pwd, err := term.ReadPassword(int(syscall.Stdin))
			p.printf("\n")
			return strings.TrimSpace(string(pwd)), err
		}
	}

	if err := mgr.Init(); err != nil {
		stdLogger.Fatal(err)
	}
	defer mgr.Dispose()

	if err := p.run(context.Background()); err != nil {
		stdLogger.Print(err)
	}
}
