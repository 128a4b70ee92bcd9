package auth

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/store"
	"github.com/trezcool/academia/core/user"
)

// ProfileStore is where profiles live, keyed by identity uid.
type ProfileStore interface {
	Get(ctx context.Context, uid string) (user.Profile, bool, error)
	Create(ctx context.Context, p user.Profile) error
	SetLastLogin(ctx context.Context, uid string, at time.Time) error
}

var _ ProfileStore = (*user.Accessor)(nil)

type Option func(svc *Service)

// WithTimeout bounds each provider and profile call.
func WithTimeout(d time.Duration) Option {
	return func(svc *Service) { svc.timeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(svc *Service) { svc.now = now }
}

func WithLogger(log core.Logger) Option {
	return func(svc *Service) { svc.log = log }
}

// Service runs the authentication flows of one provider client against the profile store.
// It holds no session state: see package session for that.
type Service struct {
	provider Provider
	profiles ProfileStore
	validate *validator.Validate
	timeout  time.Duration
	now      func() time.Time
	log      core.Logger
}

func NewService(provider Provider, profiles ProfileStore, validate *validator.Validate, opts ...Option) *Service {
	svc := &Service{
		provider: provider,
		profiles: profiles,
		validate: validate,
		now:      time.Now,
		log:      core.NopLogger{},
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (svc *Service) Provider() Provider { return svc.provider }

// SignIn authenticates the identity and returns its profile.
// A valid identity without a profile is a corrupt account: it is signed out and KindNotFound is returned.
func (svc *Service) SignIn(ctx context.Context, email, password string) (user.Profile, error) {
	email = core.CleanString(email, true /* lower */)

	var id Identity
	err := svc.call(ctx, "auth.signIn", func(ctx context.Context) error {
		var err error
		id, err = svc.provider.SignIn(ctx, email, password)
		return err
	})
	if err != nil {
		return user.Profile{}, classify(err)
	}

	p, found, err := svc.getProfile(ctx, id.UID)
	if err != nil {
		return user.Profile{}, classify(err)
	}
	if !found {
		svc.log.Warn("signing out identity without profile", map[string]interface{}{"uid": id.UID})
		if err := svc.SignOut(ctx); err != nil {
			svc.log.Error("forced sign-out failed", err, map[string]interface{}{"uid": id.UID})
		}
		return user.Profile{}, NewError(KindNotFound, &store.NotFoundError{Collection: user.Collection, ID: id.UID})
	}

	// best-effort
	now := svc.now().UTC()
	err = svc.call(ctx, "auth.setLastLogin", func(ctx context.Context) error {
		return svc.profiles.SetLastLogin(ctx, p.UID, now)
	})
	if err != nil {
		svc.log.Warn("updating last login", err, p)
	} else {
		p.LastLogin = now
	}
	return Merge(p, id), nil
}

// SignUp creates the identity, then its profile. When the profile cannot be written,
// the identity is deleted again; if that fails too, the orphaned identity is logged
// and will be signed out as a corrupt account on its next sign-in.
func (svc *Service) SignUp(ctx context.Context, email, password string, np user.NewProfile) (user.Profile, error) {
	email = core.CleanString(email, true /* lower */)
	if err := np.Validate(svc.validate); err != nil {
		return user.Profile{}, err
	}

	var id Identity
	err := svc.call(ctx, "auth.signUp", func(ctx context.Context) error {
		var err error
		id, err = svc.provider.SignUp(ctx, email, password, np.DisplayName)
		return err
	})
	if err != nil {
		return user.Profile{}, classify(err)
	}

	p := np.Build(id.UID, id.Email, svc.now())
	err = svc.call(ctx, "auth.createProfile", func(ctx context.Context) error {
		return svc.profiles.Create(ctx, p)
	})
	if err != nil {
		cerr := svc.call(ctx, "auth.deleteAccount", func(ctx context.Context) error {
			return svc.provider.DeleteAccount(ctx)
		})
		if cerr != nil {
			svc.log.Error("orphaned identity: profile creation and account rollback failed", cerr,
				map[string]interface{}{"uid": id.UID, "email": id.Email, "cause": err.Error()})
		}
		return user.Profile{}, classify(err)
	}
	return Merge(p, id), nil
}

func (svc *Service) SignOut(ctx context.Context) error {
	return classify(svc.call(ctx, "auth.signOut", svc.provider.SignOut))
}

func (svc *Service) ResetPassword(ctx context.Context, email string) error {
	email = core.CleanString(email, true /* lower */)
	return classify(svc.call(ctx, "auth.resetPassword", func(ctx context.Context) error {
		return svc.provider.SendPasswordReset(ctx, email)
	}))
}

// Resolve returns the profile of a signed-in identity, with identity fields as fallbacks.
func (svc *Service) Resolve(ctx context.Context, id Identity) (user.Profile, bool, error) {
	p, found, err := svc.getProfile(ctx, id.UID)
	if err != nil || !found {
		return user.Profile{}, false, classify(err)
	}
	return Merge(p, id), true, nil
}

func (svc *Service) getProfile(ctx context.Context, uid string) (user.Profile, bool, error) {
	var (
		p     user.Profile
		found bool
	)
	err := svc.call(ctx, "auth.getProfile", func(ctx context.Context) error {
		var err error
		p, found, err = svc.profiles.Get(ctx, uid)
		return err
	})
	return p, found, err
}

func (svc *Service) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	return core.WithDeadline(ctx, svc.timeout, op, fn)
}

// Merge fills the empty identity fields of p from id.
func Merge(p user.Profile, id Identity) user.Profile {
	if p.Email == "" {
		p.Email = id.Email
	}
	if p.DisplayName == "" {
		p.DisplayName = id.DisplayName
	}
	if p.PhotoURL == "" {
		p.PhotoURL = id.PhotoURL
	}
	return p
}

// classify turns store faults into network errors. Auth, validation and timeout errors are kept.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var aerr *AuthError
	if errors.As(err, &aerr) || core.IsTimeout(err) {
		return err
	}
	if store.IsStoreError(err) || store.IsNotFound(err) {
		return NewError(KindNetwork, err)
	}
	return NewError(KindUnknown, err)
}
