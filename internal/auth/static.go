package auth

import (
	"context"
	"crypto/subtle"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// StaticProvider authenticates against a fixed email/password table. It
// backs local development and tests; production deployments plug a hosted
// identity service into the Provider interface instead.
type StaticProvider struct {
	mu       sync.Mutex
	accounts map[string]string
	sessions map[string]Session
	watchers map[int]chan State
	nextID   int
}

// NewStaticProvider builds a provider over the given email→password table.
// Emails are matched case-insensitively.
func NewStaticProvider(accounts map[string]string) *StaticProvider {
	normalized := make(map[string]string, len(accounts))
	for email, password := range accounts {
		normalized[strings.ToLower(email)] = password
	}
	return &StaticProvider{
		accounts: normalized,
		sessions: make(map[string]Session),
		watchers: make(map[int]chan State),
	}
}

func (p *StaticProvider) SignIn(ctx context.Context, email, password string) (Session, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.Contains(email, "@") {
		return Session{}, ErrInvalidEmail
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	want, ok := p.accounts[email]
	if !ok {
		return Session{}, ErrUserNotFound
	}
	if subtle.ConstantTimeCompare([]byte(want), []byte(password)) != 1 {
		return Session{}, ErrInvalidCredential
	}

	sess := Session{
		UserID: uuid.NewSHA1(uuid.NameSpaceOID, []byte(email)).String(),
		Email:  email,
		Token:  uuid.NewString(),
	}
	p.sessions[sess.Token] = sess
	p.notifyLocked(State{Session: &sess})
	return sess, nil
}

func (p *StaticProvider) SignOut(ctx context.Context, token string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.sessions[token]; !ok {
		return ErrInvalidToken
	}
	delete(p.sessions, token)
	p.notifyLocked(State{})
	return nil
}

func (p *StaticProvider) Verify(ctx context.Context, token string) (Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	sess, ok := p.sessions[token]
	if !ok {
		return Session{}, ErrInvalidToken
	}
	return sess, nil
}

// Watch emits the current state immediately, then every sign-in and
// sign-out. Slow consumers drop intermediate states; the latest one is
// always delivered.
func (p *StaticProvider) Watch(ctx context.Context) <-chan State {
	ch := make(chan State, 1)

	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.watchers[id] = ch
	sendState(ch, p.currentLocked())
	p.mu.Unlock()

	go func() {
		<-ctx.Done()
		p.mu.Lock()
		delete(p.watchers, id)
		close(ch)
		p.mu.Unlock()
	}()
	return ch
}

func (p *StaticProvider) currentLocked() State {
	for _, sess := range p.sessions {
		s := sess
		return State{Session: &s}
	}
	return State{}
}

func (p *StaticProvider) notifyLocked(st State) {
	for _, ch := range p.watchers {
		sendState(ch, st)
	}
}

// sendState overwrites any undelivered state so the channel always holds
// the most recent one.
func sendState(ch chan State, st State) {
	for {
		select {
		case ch <- st:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
