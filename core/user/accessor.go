package user

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/store"
)

const (
	Collection = "users"
	IDField    = "uid"
)

var ErrRoleImmutable = errors.New("the role and uid of a profile cannot be changed")

// Accessor reads and writes profiles in the users collection.
type Accessor struct {
	coll *store.Collection[Profile]
}

func NewAccessor(backend store.Backend, opts ...store.Option) *Accessor {
	opts = append(opts, store.WithIDField(IDField))
	return &Accessor{coll: store.NewCollection[Profile](backend, Collection, opts...)}
}

func (a *Accessor) Get(ctx context.Context, uid string) (Profile, bool, error) {
	return a.coll.GetByID(ctx, uid)
}

// Create stores p under its uid, replacing any previous profile of that identity.
// A previous profile with another role is kept and ErrRoleImmutable returned.
func (a *Accessor) Create(ctx context.Context, p Profile) error {
	if p.UID == "" {
		return errors.New("creating profile: empty uid")
	}
	if !p.Role().Valid() {
		return errors.Wrap(ErrInvalidRole, "creating profile")
	}
	prev, found, err := a.coll.GetByID(ctx, p.UID)
	if err != nil {
		return errors.Wrap(err, "creating profile")
	}
	if found && prev.Role() != p.Role() {
		return ErrRoleImmutable
	}
	_, err = a.coll.Create(ctx, p, p.UID)
	return err
}

// Update merges fields into the profile. Changing the role (or uid) is refused.
func (a *Accessor) Update(ctx context.Context, uid string, fields store.Fields) error {
	if _, ok := fields["role"]; ok {
		return ErrRoleImmutable
	}
	if _, ok := fields[IDField]; ok {
		return ErrRoleImmutable
	}
	return a.coll.Update(ctx, uid, fields)
}

func (a *Accessor) SetLastLogin(ctx context.Context, uid string, at time.Time) error {
	return a.coll.Update(ctx, uid, store.Fields{"lastLogin": at.UTC()})
}

func (a *Accessor) Delete(ctx context.Context, uid string) error {
	return a.coll.Delete(ctx, uid)
}

func (a *Accessor) ByRole(ctx context.Context, role Role) ([]Profile, error) {
	return a.coll.Query(ctx, store.Where("role", string(role)), store.OrderBy("displayName", store.Asc))
}
