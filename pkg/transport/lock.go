package transport

import (
	"context"
	"sync"

	"github.com/jihwankim/remoteperf/pkg/logging"
)

type ownerTokenKey struct{}

// WithOwnerToken attaches an opaque per-caller token to ctx so a
// CommandLock can recognize when the same logical caller re-enters a
// locked section instead of a genuinely concurrent caller blocking on
// it. Go has no thread-local storage to detect this implicitly, so the
// token is threaded explicitly through context.Context.
func WithOwnerToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ownerTokenKey{}, token)
}

func ownerTokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(ownerTokenKey{}).(string)
	return token
}

// CommandLock serializes access to a Transport's single underlying
// connection. Unlike a plain mutex, it recognizes the caller already
// holding the lock entering it again (by owner token): that call is
// logged as a LockMisuseError, since it nearly always indicates a bug in
// calling code, and then runs without waiting for the lock instead of
// deadlocking. Callers without a matching token block as usual.
type CommandLock struct {
	mu          sync.Mutex
	stateMu     sync.Mutex
	held        bool
	holderToken string
	log         *logging.Logger
}

// NewCommandLock builds a CommandLock that reports reentrancy attempts
// through log (or a no-op logger if nil).
func NewCommandLock(log *logging.Logger) *CommandLock {
	if log == nil {
		log = logging.Noop()
	}
	return &CommandLock{log: log}
}

// Run acquires the lock, invokes fn, and releases it. If ctx carries an
// owner token equal to the token currently holding the lock, the
// reentrancy is logged and fn runs at once without acquiring the lock.
func (l *CommandLock) Run(ctx context.Context, fn func() error) error {
	token := ownerTokenFrom(ctx)

	l.stateMu.Lock()
	if l.held && token != "" && token == l.holderToken {
		l.stateMu.Unlock()
		l.log.Warn((&LockMisuseError{Owner: token}).Error(), "owner", token)
		return fn()
	}
	l.stateMu.Unlock()

	l.mu.Lock()
	l.stateMu.Lock()
	l.held = true
	l.holderToken = token
	l.stateMu.Unlock()

	defer func() {
		l.stateMu.Lock()
		l.held = false
		l.holderToken = ""
		l.stateMu.Unlock()
		l.mu.Unlock()
	}()

	return fn()
}
