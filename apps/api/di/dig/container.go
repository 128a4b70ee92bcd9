package dig_container

import (
	"context"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/academia/apps/api/echo"
	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/academic"
	"github.com/trezcool/academia/core/store"
	"github.com/trezcool/academia/core/user"
	emailsvc "github.com/trezcool/academia/services/email"
	"github.com/trezcool/academia/services/identity/local"
	logsvc "github.com/trezcool/academia/services/logger"
	metricsvc "github.com/trezcool/academia/services/metrics"
	"github.com/trezcool/academia/storage/database"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Backend is the record store and the func releasing it.
type Backend struct {
	store.Backend
	Close func() error
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newBackend(conf *core.Config, loggerParam DBLoggerParam) Backend {
	setUp := func() (Backend, error) {
		if conf.Database.Engine == database.EnginePostgres {
			if err := database.CreateIfNotExist(conf); err != nil {
				return Backend{}, err
			}
			db, err := database.Open(conf)
			if err != nil {
				return Backend{}, err
			}
			defer func() { _ = db.Close() }()
			if err = database.Migrate(db); err != nil {
				return Backend{}, err
			}
		}

		backend, closeFn, err := database.OpenBackend(context.Background(), conf, loggerParam.Logger)
		if err != nil {
			return Backend{}, err
		}
		return Backend{Backend: backend, Close: closeFn}, nil
	}

	backend, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal("setting up the record store", err)
	}
	return backend
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate
}

func storeOptions(conf *core.Config, metrics *metricsvc.Metrics) []store.Option {
	return []store.Option{store.WithTimeout(conf.Store.Timeout), store.WithObserver(metrics)}
}

func newDirectory(
	conf *core.Config,
	backend Backend,
	validate *validator.Validate,
	mailer core.EmailService,
	metrics *metricsvc.Metrics,
) *local.Directory {
	return local.NewDirectory(backend, conf, validate, mailer, local.WithStoreOptions(storeOptions(conf, metrics)...))
}

func newProfiles(conf *core.Config, backend Backend, metrics *metricsvc.Metrics) *user.Accessor {
	return user.NewAccessor(backend, storeOptions(conf, metrics)...)
}

func newRecords(conf *core.Config, backend Backend, metrics *metricsvc.Metrics) *academic.Records {
	return academic.NewRecords(backend, storeOptions(conf, metrics)...)
}

type depsParam struct {
	dig.In
	Directory  *local.Directory
	Profiles   *user.Accessor
	Records    *academic.Records
	Validate   *validator.Validate
	Translator ut.Translator
	Logger     core.Logger
	Metrics    *metricsvc.Metrics
}

func newDeps(p depsParam) *echoapi.Deps {
	return &echoapi.Deps{
		Directory:  p.Directory,
		Profiles:   p.Profiles,
		Records:    p.Records,
		Validate:   p.Validate,
		Translator: p.Translator,
		Logger:     p.Logger,
		Metrics:    p.Metrics,
	}
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newBackend))
	must(c.Provide(emailsvc.NewService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(metricsvc.New))
	must(c.Provide(newDirectory))
	must(c.Provide(newProfiles))
	must(c.Provide(newRecords))
	must(c.Provide(newDeps))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
