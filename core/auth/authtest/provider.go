// Package authtest provides an in-memory auth.Provider for tests.
package authtest

import (
	"context"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core/auth"
)

type account struct {
	identity auth.Identity
	password string
}

// Provider is an in-memory identity provider. Its exported fields inject failures.
type Provider struct {
	mu        sync.Mutex
	accounts  map[string]*account // by email
	current   *auth.Identity
	listeners map[int]func(*auth.Identity)
	nextID    int

	SignInErr    error
	DeleteErr    error
	SignOutCalls int
	DeleteCalls  int
}

var _ auth.Provider = (*Provider)(nil)

func NewProvider() *Provider {
	return &Provider{
		accounts:  make(map[string]*account),
		listeners: make(map[int]func(*auth.Identity)),
	}
}

// AddAccount registers an identity without signing it in.
func (p *Provider) AddAccount(email, password, displayName string) auth.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.addAccount(email, password, displayName)
}

func (p *Provider) addAccount(email, password, displayName string) auth.Identity {
	p.nextID++
	id := auth.Identity{UID: "uid-" + strconv.Itoa(p.nextID), Email: email, DisplayName: displayName, Token: "token-" + strconv.Itoa(p.nextID)}
	p.accounts[email] = &account{identity: id, password: password}
	return id
}

func (p *Provider) SignUp(_ context.Context, email, password, displayName string) (auth.Identity, error) {
	p.mu.Lock()
	if _, ok := p.accounts[email]; ok {
		p.mu.Unlock()
		return auth.Identity{}, auth.NewError(auth.KindEmailInUse, errors.New(email))
	}
	if len(password) < 6 {
		p.mu.Unlock()
		return auth.Identity{}, auth.NewError(auth.KindWeakPassword, nil)
	}
	id := p.addAccount(email, password, displayName)
	p.mu.Unlock()

	p.setCurrent(&id)
	return id, nil
}

func (p *Provider) SignIn(_ context.Context, email, password string) (auth.Identity, error) {
	p.mu.Lock()
	if p.SignInErr != nil {
		err := p.SignInErr
		p.mu.Unlock()
		return auth.Identity{}, err
	}
	acc, ok := p.accounts[email]
	if !ok || acc.password != password {
		p.mu.Unlock()
		return auth.Identity{}, auth.NewError(auth.KindInvalidCredential, nil)
	}
	id := acc.identity
	p.mu.Unlock()

	p.setCurrent(&id)
	return id, nil
}

func (p *Provider) SignOut(context.Context) error {
	p.mu.Lock()
	p.SignOutCalls++
	p.mu.Unlock()
	p.setCurrent(nil)
	return nil
}

func (p *Provider) SendPasswordReset(_ context.Context, email string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.accounts[email]; !ok {
		return auth.NewError(auth.KindNotFound, nil)
	}
	return nil
}

func (p *Provider) DeleteAccount(context.Context) error {
	p.mu.Lock()
	p.DeleteCalls++
	if p.DeleteErr != nil {
		err := p.DeleteErr
		p.mu.Unlock()
		return err
	}
	if p.current == nil {
		p.mu.Unlock()
		return auth.NewError(auth.KindInvalidCredential, errors.New("not signed in"))
	}
	delete(p.accounts, p.current.Email)
	p.mu.Unlock()

	p.setCurrent(nil)
	return nil
}

func (p *Provider) Subscribe(listener func(*auth.Identity)) func() {
	p.mu.Lock()
	p.nextID++
	key := p.nextID
	p.listeners[key] = listener
	current := copyIdentity(p.current)
	p.mu.Unlock()

	listener(current)
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, key)
	}
}

// HasAccount reports whether an identity exists for email.
func (p *Provider) HasAccount(email string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.accounts[email]
	return ok
}

func (p *Provider) Current() *auth.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return copyIdentity(p.current)
}

func (p *Provider) setCurrent(id *auth.Identity) {
	p.mu.Lock()
	p.current = copyIdentity(id)
	listeners := make([]func(*auth.Identity), 0, len(p.listeners))
	for _, l := range p.listeners {
		listeners = append(listeners, l)
	}
	p.mu.Unlock()

	for _, l := range listeners {
		l(copyIdentity(id))
	}
}

func copyIdentity(id *auth.Identity) *auth.Identity {
	if id == nil {
		return nil
	}
	cp := *id
	return &cp
}
