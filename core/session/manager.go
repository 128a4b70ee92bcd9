package session

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/trezcool/academia/core"
	"github.com/trezcool/academia/core/auth"
	"github.com/trezcool/academia/core/user"
)

var (
	ErrAlreadyInitialized = errors.New("session manager already initialized")
	ErrNotInitialized     = errors.New("session manager not initialized")
	ErrDisposed           = errors.New("session manager disposed")
)

type (
	// identityChanged is posted by the provider subscription.
	identityChanged struct {
		identity *auth.Identity
	}

	// resolved is posted by an explicit operation once it has its profile.
	resolved struct {
		profile user.Profile
		ack     chan struct{}
	}

	// settle re-checks the last reported identity after a failed operation.
	settle struct{}

	// barrier is acknowledged once every event posted before it has been applied.
	barrier struct {
		ack chan struct{}
	}
)

type Option func(m *Manager)

func WithNotifier(n Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

func WithLogger(log core.Logger) Option {
	return func(m *Manager) { m.log = log }
}

// Manager owns the Session of one client. A single goroutine applies every state change,
// in the order events were posted; everything else only reads snapshots.
type Manager struct {
	svc      *auth.Service
	notifier Notifier
	log      core.Logger

	mu          sync.Mutex
	session     Session
	identity    *auth.Identity // last reported by the provider
	inflight    int            // explicit sign-in/sign-up operations running
	watchers    map[int]func(Session)
	nextWatcher int
	mailbox     []interface{}
	started     bool
	disposed    bool

	wake        chan struct{}
	done        chan struct{}
	stopped     chan struct{}
	ready       chan struct{}
	readyOnce   sync.Once
	unsubscribe func()
	ctx         context.Context
	cancel      context.CancelFunc
}

func NewManager(svc *auth.Service, opts ...Option) *Manager {
	m := &Manager{
		svc:      svc,
		notifier: nopNotifier{},
		log:      core.NopLogger{},
		session:  newSession(Uninitialized, nil),
		watchers: make(map[int]func(Session)),
		wake:     make(chan struct{}, 1),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init moves the session to Loading and subscribes to the identity provider.
// The session settles once the first identity notification is resolved: see WaitReady.
func (m *Manager) Init() error {
	m.mu.Lock()
	switch {
	case m.disposed:
		m.mu.Unlock()
		return ErrDisposed
	case m.started:
		m.mu.Unlock()
		return ErrAlreadyInitialized
	}
	m.started = true
	m.ctx, m.cancel = context.WithCancel(context.Background())
	m.mu.Unlock()

	m.setState(newSession(Loading, nil))
	go m.loop()
	m.unsubscribe = m.svc.Provider().Subscribe(func(id *auth.Identity) {
		m.post(identityChanged{identity: id})
	})
	return nil
}

// Dispose stops the subscription and the loop. The manager cannot be reused.
func (m *Manager) Dispose() {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	m.disposed = true
	started := m.started
	m.mu.Unlock()

	if !started {
		return
	}
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
	m.cancel()
	close(m.done)
	<-m.stopped
}

// Session returns a snapshot of the current state.
func (m *Manager) Session() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copySession(m.session)
}

// OnChange calls fn, from the manager goroutine, after every state change. fn must not block.
func (m *Manager) OnChange(fn func(Session)) (cancel func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextWatcher++
	key := m.nextWatcher
	m.watchers[key] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.watchers, key)
	}
}

// WaitReady blocks until the session has left the Loading state for the first time.
func (m *Manager) WaitReady(ctx context.Context) error {
	select {
	case <-m.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) SignIn(ctx context.Context, email, password string) (user.Profile, error) {
	if err := m.checkRunning(); err != nil {
		return user.Profile{}, err
	}
	m.begin()
	p, err := m.svc.SignIn(ctx, email, password)
	m.end()
	if err != nil {
		m.notifyFailure(err, msgSignInFailed)
		m.post(settle{})
		_ = m.sync(ctx)
		return user.Profile{}, err
	}
	if err := m.apply(ctx, p); err != nil {
		return user.Profile{}, err
	}
	m.notifier.Notify(Notice{Level: LevelSuccess, Message: msgSignedIn})
	return p, nil
}

func (m *Manager) SignUp(ctx context.Context, email, password string, np user.NewProfile) (user.Profile, error) {
	if err := m.checkRunning(); err != nil {
		return user.Profile{}, err
	}
	m.begin()
	p, err := m.svc.SignUp(ctx, email, password, np)
	m.end()
	if err != nil {
		m.notifyFailure(err, msgSignUpFailed)
		m.post(settle{})
		_ = m.sync(ctx)
		return user.Profile{}, err
	}
	if err := m.apply(ctx, p); err != nil {
		return user.Profile{}, err
	}
	m.notifier.Notify(Notice{Level: LevelSuccess, Message: msgAccountCreated})
	return p, nil
}

func (m *Manager) SignOut(ctx context.Context) error {
	if err := m.checkRunning(); err != nil {
		return err
	}
	if err := m.svc.SignOut(ctx); err != nil {
		m.notifyFailure(err, msgSignOutFailed)
		return err
	}
	if err := m.sync(ctx); err != nil {
		return err
	}
	m.notifier.Notify(Notice{Level: LevelSuccess, Message: msgSignedOut})
	return nil
}

func (m *Manager) ResetPassword(ctx context.Context, email string) error {
	if err := m.svc.ResetPassword(ctx, email); err != nil {
		m.notifyFailure(err, msgResetFailed)
		return err
	}
	m.notifier.Notify(Notice{Level: LevelSuccess, Message: msgResetSent})
	return nil
}

// begin marks an explicit operation as running: identities it signs in are resolved
// by the operation itself, not by the loop, as their profile may not be written yet.
func (m *Manager) begin() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inflight++
}

func (m *Manager) end() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inflight--
}

func (m *Manager) notifyFailure(err error, fallback string) {
	m.notifier.Notify(Notice{Level: LevelError, Message: failureMessage(err, fallback)})
}

func (m *Manager) checkRunning() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch {
	case m.disposed:
		return ErrDisposed
	case !m.started:
		return ErrNotInitialized
	}
	return nil
}

// apply hands p to the loop and waits until it is applied.
func (m *Manager) apply(ctx context.Context, p user.Profile) error {
	ack := make(chan struct{})
	m.post(resolved{profile: p, ack: ack})
	return m.await(ctx, ack)
}

// sync waits until every event posted so far has been applied.
func (m *Manager) sync(ctx context.Context) error {
	ack := make(chan struct{})
	m.post(barrier{ack: ack})
	return m.await(ctx, ack)
}

func (m *Manager) await(ctx context.Context, ack chan struct{}) error {
	select {
	case <-ack:
		return nil
	case <-m.done:
		return ErrDisposed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// post queues ev without blocking.
func (m *Manager) post(ev interface{}) {
	m.mu.Lock()
	m.mailbox = append(m.mailbox, ev)
	m.mu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) loop() {
	defer close(m.stopped)
	for {
		select {
		case <-m.done:
			return
		case <-m.wake:
		}

		m.mu.Lock()
		events := m.mailbox
		m.mailbox = nil
		m.mu.Unlock()

		for _, ev := range events {
			select {
			case <-m.done:
				return
			default:
			}
			m.handle(ev)
		}
	}
}

func (m *Manager) handle(ev interface{}) {
	switch ev := ev.(type) {
	case identityChanged:
		m.onIdentity(ev.identity)
	case resolved:
		// a sign-out (or another account) may have been reported since the operation succeeded
		if id := m.lastIdentity(); id != nil && id.UID == ev.profile.UID {
			p := ev.profile
			m.setState(newSession(Authenticated, &p))
		}
		close(ev.ack)
	case settle:
		if id := m.lastIdentity(); id != nil {
			m.resolve(id)
		}
	case barrier:
		close(ev.ack)
	}
}

func (m *Manager) onIdentity(id *auth.Identity) {
	m.mu.Lock()
	m.identity = id
	inflight := m.inflight
	m.mu.Unlock()

	if id == nil {
		m.setState(newSession(Anonymous, nil))
		return
	}
	if inflight > 0 {
		return
	}
	m.resolve(id)
}

// resolve moves the session to the profile of id, or signs id out when it has no profile.
func (m *Manager) resolve(id *auth.Identity) {
	if cur := m.Session(); cur.State == Authenticated && cur.CurrentUser.UID == id.UID {
		return
	}
	m.setState(newSession(Loading, nil))

	p, found, err := m.svc.Resolve(m.ctx, *id)
	switch {
	case err != nil:
		m.log.Error("loading user profile", err, map[string]interface{}{"uid": id.UID})
		m.notifier.Notify(Notice{Level: LevelError, Message: msgProfileError})
		m.setState(newSession(Anonymous, nil))
	case !found:
		// corrupt account: an identity without a profile is signed out
		m.log.Warn("signing out identity without profile", map[string]interface{}{"uid": id.UID})
		if err := m.svc.SignOut(m.ctx); err != nil {
			m.log.Error("forced sign-out failed", err, map[string]interface{}{"uid": id.UID})
		}
		m.setState(newSession(Anonymous, nil))
	default:
		m.setState(newSession(Authenticated, &p))
	}
}

func (m *Manager) lastIdentity() *auth.Identity {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.identity
}

func (m *Manager) setState(s Session) {
	m.mu.Lock()
	m.session = s
	watchers := make([]func(Session), 0, len(m.watchers))
	for _, w := range m.watchers {
		watchers = append(watchers, w)
	}
	m.mu.Unlock()

	if !s.IsLoading {
		m.readyOnce.Do(func() { close(m.ready) })
	}
	for _, w := range watchers {
		w(copySession(s))
	}
}

func copySession(s Session) Session {
	if s.CurrentUser != nil {
		p := *s.CurrentUser
		s.CurrentUser = &p
	}
	return s
}
