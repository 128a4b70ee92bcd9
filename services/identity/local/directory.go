// Package local is a self-hosted identity provider: accounts with bcrypt password hashes
// kept in the record store, and password resets by email.
package local

import (
	"context"
	"net/mail"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/store"
	"github.com/trezcool/academia/core/user"
)

const (
	Collection = "identities"
	IDField    = "uid"

	passwordResetTemplate = "password_reset"
)

// Account is an identity with its credentials.
type Account struct {
	UID          string    `json:"uid"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"displayName"`
	PhotoURL     string    `json:"photoURL,omitempty"`
	PasswordHash []byte    `json:"passwordHash"`
	Disabled     bool      `json:"disabled"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	LastLogin    time.Time `json:"lastLogin"`
}

func (acc Account) Identity() auth.Identity {
	return auth.Identity{
		UID:         acc.UID,
		Email:       acc.Email,
		DisplayName: acc.DisplayName,
		PhotoURL:    acc.PhotoURL,
	}
}

type resetEmailData struct {
	Name  string
	UID   string
	Token string
}

// Directory manages the accounts. Email uniqueness is enforced within one process.
type Directory struct {
	accounts  *store.Collection[Account]
	tokens    tokenGenerator
	validate  *validator.Validate
	mailer    core.EmailService
	cost      int
	storeOpts []store.Option

	mu sync.Mutex // serializes account creation
}

type Option func(d *Directory)

// WithStoreOptions configures the accounts collection (timeout, observer, clock).
func WithStoreOptions(opts ...store.Option) Option {
	return func(d *Directory) { d.storeOpts = append(d.storeOpts, opts...) }
}

// WithHashCost sets the bcrypt cost. Tests lower it to bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(d *Directory) { d.cost = cost }
}

func NewDirectory(
	backend store.Backend,
	conf *core.Config,
	validate *validator.Validate,
	mailer core.EmailService,
	opts ...Option,
) *Directory {
	d := &Directory{
		tokens:   tokenGenerator{secretKey: []byte(conf.SecretKey), timeout: conf.PasswordResetTimeoutDelta},
		validate: validate,
		mailer:   mailer,
		cost:     bcrypt.DefaultCost,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.accounts = store.NewCollection[Account](backend, Collection, append(d.storeOpts, store.WithIDField(IDField))...)
	return d
}

func (d *Directory) hash(password string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), d.cost)
	if err != nil {
		return nil, errors.Wrap(err, "hashing password")
	}
	return hash, nil
}

func (d *Directory) checkPassword(password string, attrs ...string) error {
	if tag := user.PasswordViolation(password, attrs...); tag != "" {
		return auth.NewError(auth.KindWeakPassword, errors.New(tag))
	}
	return nil
}

// CreateAccount registers a new identity.
func (d *Directory) CreateAccount(ctx context.Context, email, password, displayName string) (Account, error) {
	email = core.CleanString(email, true /* lower */)
	displayName = core.CleanString(displayName)
	if err := d.validate.Var(email, "required,email"); err != nil {
		return Account{}, auth.NewError(auth.KindInvalidEmail, errors.New(email))
	}
	if err := d.checkPassword(password, email, displayName); err != nil {
		return Account{}, err
	}
	hash, err := d.hash(password)
	if err != nil {
		return Account{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, found, err := d.findByEmail(ctx, email); err != nil {
		return Account{}, err
	} else if found {
		return Account{}, auth.NewError(auth.KindEmailInUse, errors.New(email))
	}

	acc := Account{
		UID:          uuid.NewString(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
	}
	if _, err := d.accounts.Create(ctx, acc, acc.UID); err != nil {
		return Account{}, err
	}
	acc, _, err = d.accounts.GetByID(ctx, acc.UID)
	return acc, err
}

// Authenticate checks the credentials and records the login.
func (d *Directory) Authenticate(ctx context.Context, email, password string) (Account, error) {
	email = core.CleanString(email, true /* lower */)
	acc, found, err := d.findByEmail(ctx, email)
	if err != nil {
		return Account{}, err
	}
	if !found {
		return Account{}, auth.NewError(auth.KindInvalidCredential, nil)
	}
	if err := bcrypt.CompareHashAndPassword(acc.PasswordHash, []byte(password)); err != nil {
		return Account{}, auth.NewError(auth.KindInvalidCredential, nil)
	}
	if acc.Disabled {
		return Account{}, auth.NewError(auth.KindUserDisabled, errors.New(email))
	}

	acc.LastLogin = NowFunc().UTC()
	if err := d.accounts.Update(ctx, acc.UID, store.Fields{"lastLogin": acc.LastLogin}); err != nil {
		return Account{}, err
	}
	return acc, nil
}

func (d *Directory) Get(ctx context.Context, uid string) (Account, bool, error) {
	return d.accounts.GetByID(ctx, uid)
}

func (d *Directory) GetByEmail(ctx context.Context, email string) (Account, bool, error) {
	return d.findByEmail(ctx, core.CleanString(email, true /* lower */))
}

func (d *Directory) DeleteAccount(ctx context.Context, uid string) error {
	return d.accounts.Delete(ctx, uid)
}

func (d *Directory) SetDisabled(ctx context.Context, uid string, disabled bool) error {
	return d.accounts.Update(ctx, uid, store.Fields{"disabled": disabled})
}

// SetPassword replaces the password of an account, subject to the password policy.
func (d *Directory) SetPassword(ctx context.Context, uid, password string) error {
	acc, found, err := d.accounts.GetByID(ctx, uid)
	if err != nil {
		return err
	}
	if !found {
		return auth.NewError(auth.KindNotFound, &store.NotFoundError{Collection: Collection, ID: uid})
	}
	if err := d.checkPassword(password, acc.Email, acc.DisplayName); err != nil {
		return err
	}
	hash, err := d.hash(password)
	if err != nil {
		return err
	}
	return d.accounts.Update(ctx, uid, store.Fields{"passwordHash": hash})
}

// SendPasswordReset emails a reset link to the account holder.
func (d *Directory) SendPasswordReset(ctx context.Context, email string) error {
	acc, found, err := d.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !found {
		return auth.NewError(auth.KindNotFound, errors.New(email))
	}

	token, err := d.tokens.MakeToken(acc)
	if err != nil {
		return errors.Wrap(err, "making reset token")
	}
	d.mailer.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: acc.DisplayName, Address: acc.Email}},
		Subject:      "Password Reset",
		TemplateName: passwordResetTemplate,
		TemplateData: resetEmailData{Name: acc.DisplayName, UID: EncodeUID(acc.UID), Token: token},
	})
	return nil
}

// ErrInvalidResetLink is returned for an unknown, tampered or expired reset link.
var ErrInvalidResetLink = errors.New("invalid or expired password reset link")

// ConfirmPasswordReset sets a new password with the uid and token of a reset email.
func (d *Directory) ConfirmPasswordReset(ctx context.Context, encodedUID, token, password string) error {
	uid, err := decodeUID(encodedUID)
	if err != nil {
		return ErrInvalidResetLink
	}
	acc, found, err := d.accounts.GetByID(ctx, uid)
	if err != nil {
		return err
	}
	if !found {
		return ErrInvalidResetLink
	}
	if err := d.tokens.verifyToken(acc, token); err != nil {
		return errors.Wrap(ErrInvalidResetLink, err.Error())
	}
	return d.SetPassword(ctx, uid, password)
}

func (d *Directory) findByEmail(ctx context.Context, email string) (Account, bool, error) {
	accs, err := d.accounts.Query(ctx, store.Where("email", email), store.Limit(1))
	if err != nil || len(accs) == 0 {
		return Account{}, false, err
	}
	return accs[0], true, nil
}
