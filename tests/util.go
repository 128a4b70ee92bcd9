// Package testutil holds the fixtures shared by the surface tests: an in-memory stack and its users.
package testutil

import (
	"context"
	"net/mail"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/academic"
	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/store"
	"github.com/trezcool/academia/core/user"
	emailsvc "github.com/trezcool/academia/services/email"
	"github.com/trezcool/academia/services/identity/local"
	inmemdb "github.com/trezcool/academia/storage/database/inmem"
)

// Password satisfies the password policy.
const Password = "Str0ng!Pass"

func NewConfig() *core.Config {
	conf := &core.Config{
		Env:                       "TEST",
		AppName:                   "Academia",
		TestMode:                  true,
		SecretKey:                 "test-secret",
		FrontendBaseURL:           "http://localhost:8080",
		DefaultFromEmail:          mail.Address{Name: "Academia", Address: "noreply@localhost"},
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
	}
	conf.Server.JWTExpirationDelta = time.Hour
	conf.Server.JWTRefreshExpirationDelta = 4 * time.Hour
	conf.Server.AuthRateLimit = 1000
	conf.Server.AuthRateBurst = 1000
	conf.Database.Engine = "memory"
	return conf
}

func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	return validate, translator
}

// Env is a complete in-memory stack.
type Env struct {
	Conf       *core.Config
	DB         *inmemdb.DB
	Mailer     *emailsvc.ConsoleService
	Validate   *validator.Validate
	Translator ut.Translator
	Directory  *local.Directory
	Profiles   *user.Accessor
	Records    *academic.Records
}

func NewEnv(t *testing.T, opts ...store.Option) *Env {
	t.Helper()
	conf := NewConfig()
	validate, translator := NewValidator()
	db := inmemdb.NewDB()
	mailer := emailsvc.NewConsoleServiceMock(conf)
	return &Env{
		Conf:       conf,
		DB:         db,
		Mailer:     mailer,
		Validate:   validate,
		Translator: translator,
		Directory:  local.NewDirectory(db, conf, validate, mailer, local.WithHashCost(bcrypt.MinCost), local.WithStoreOptions(opts...)),
		Profiles:   user.NewAccessor(db, opts...),
		Records:    academic.NewRecords(db, opts...),
	}
}

// AuthService returns the auth flows over a fresh identity client.
func (env *Env) AuthService() *auth.Service {
	return auth.NewService(env.Directory.NewClient(), env.Profiles, env.Validate)
}

// CreateUser signs up an identity with Password and a profile of role, and returns the stored profile.
func (env *Env) CreateUser(t *testing.T, email, name string, role user.Role, isActive bool) user.Profile {
	t.Helper()
	ctx := context.Background()

	prof, err := env.AuthService().SignUp(ctx, email, Password, user.NewProfile{Role: role, DisplayName: name})
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	if !isActive {
		if err := env.Profiles.Update(ctx, prof.UID, store.Fields{"isActive": false}); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}

	stored, found, err := env.Profiles.Get(ctx, prof.UID)
	if err != nil || !found {
		t.Fatalf("CreateUser() failed: found=%v, err=%v", found, err)
	}
	return stored
}

// CreateCourse stores course and returns it with its id.
func (env *Env) CreateCourse(t *testing.T, course academic.Course) academic.Course {
	t.Helper()
	if course.EnrolledStudents == nil {
		course.EnrolledStudents = []string{}
	}
	id, err := env.Records.Courses.Create(context.Background(), course)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	course, _, err = env.Records.Courses.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return course
}
