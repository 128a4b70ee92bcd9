package local

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/auth"
)

// Client is one session's view of the directory: it remembers the signed-in identity.
type Client struct {
	dir *Directory

	mu        sync.Mutex
	current   *auth.Identity
	listeners map[int]func(*auth.Identity)
	nextKey   int
}

var _ auth.Provider = (*Client)(nil)

func (d *Directory) NewClient() *Client {
	return &Client{dir: d, listeners: make(map[int]func(*auth.Identity))}
}

func (c *Client) SignUp(ctx context.Context, email, password, displayName string) (auth.Identity, error) {
	acc, err := c.dir.CreateAccount(ctx, email, password, displayName)
	if err != nil {
		return auth.Identity{}, asAuthError(err)
	}
	return c.signedIn(acc), nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (auth.Identity, error) {
	acc, err := c.dir.Authenticate(ctx, email, password)
	if err != nil {
		return auth.Identity{}, asAuthError(err)
	}
	return c.signedIn(acc), nil
}

func (c *Client) SignOut(context.Context) error {
	c.setCurrent(nil)
	return nil
}

func (c *Client) SendPasswordReset(ctx context.Context, email string) error {
	return asAuthError(c.dir.SendPasswordReset(ctx, email))
}

func (c *Client) DeleteAccount(ctx context.Context) error {
	current := c.Current()
	if current == nil {
		return auth.NewError(auth.KindInvalidCredential, errors.New("not signed in"))
	}
	if err := c.dir.DeleteAccount(ctx, current.UID); err != nil {
		return asAuthError(err)
	}
	c.setCurrent(nil)
	return nil
}

func (c *Client) Subscribe(listener func(*auth.Identity)) func() {
	c.mu.Lock()
	c.nextKey++
	key := c.nextKey
	c.listeners[key] = listener
	current := copyIdentity(c.current)
	c.mu.Unlock()

	listener(current)
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, key)
	}
}

// Current returns the signed-in identity, nil when signed out.
func (c *Client) Current() *auth.Identity {
	c.mu.Lock()
	defer c.mu.Unlock()
	return copyIdentity(c.current)
}

func (c *Client) signedIn(acc Account) auth.Identity {
	id := acc.Identity()
	id.Token = uuid.NewString()
	c.setCurrent(&id)
	return id
}

func (c *Client) setCurrent(id *auth.Identity) {
	c.mu.Lock()
	c.current = copyIdentity(id)
	listeners := make([]func(*auth.Identity), 0, len(c.listeners))
	for _, l := range c.listeners {
		listeners = append(listeners, l)
	}
	c.mu.Unlock()

	for _, l := range listeners {
		l(copyIdentity(id))
	}
}

// asAuthError reports directory faults other than auth and timeout errors as network errors.
func asAuthError(err error) error {
	if err == nil {
		return nil
	}
	var aerr *auth.AuthError
	if errors.As(err, &aerr) || core.IsTimeout(err) {
		return err
	}
	return auth.NewError(auth.KindNetwork, err)
}

func copyIdentity(id *auth.Identity) *auth.Identity {
	if id == nil {
		return nil
	}
	cp := *id
	return &cp
}
