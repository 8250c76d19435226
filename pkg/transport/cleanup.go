package transport

import (
	"context"
	"sync"
	"time"

	"github.com/jihwankim/remoteperf/pkg/logging"
)

// CleanupEntry is one registered remote path awaiting removal when a
// session closes, plus the outcome once it has been attempted.
type CleanupEntry struct {
	Path      string
	Flags     []string
	Attempted bool
	Err       error
	At        time.Time
}

// CleanupRegistry accumulates remote paths a Transport should remove
// when its session ends, and runs them in registration order, logging
// each outcome. Embed it in a Transport implementation and call
// runCleanup from Disconnect or Session.Close.
type CleanupRegistry struct {
	mu      sync.Mutex
	entries []*CleanupEntry
	remove  func(ctx context.Context, path string, flags []string) error
	log     *logging.Logger
}

// NewCleanupRegistry builds a registry that removes paths via remove,
// a transport-specific callback (e.g. "rm -f <path>" over the wire).
func NewCleanupRegistry(remove func(ctx context.Context, path string, flags []string) error, log *logging.Logger) *CleanupRegistry {
	if log == nil {
		log = logging.Noop()
	}
	return &CleanupRegistry{remove: remove, log: log}
}

// AddCleanup registers path for removal, with optional transport-specific
// flags (e.g. "-r" for a directory).
func (r *CleanupRegistry) AddCleanup(path string, flags ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, &CleanupEntry{Path: path, Flags: flags})
}

// Entries returns a snapshot of the registered cleanup actions and
// their outcomes, for tests and diagnostics.
func (r *CleanupRegistry) Entries() []CleanupEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]CleanupEntry, len(r.entries))
	for i, e := range r.entries {
		out[i] = *e
	}
	return out
}

// runCleanup removes every registered path in registration order,
// logging each outcome. A failed removal does not stop the remaining
// entries from being attempted.
func (r *CleanupRegistry) runCleanup(ctx context.Context) {
	r.mu.Lock()
	entries := r.entries
	r.entries = nil
	r.mu.Unlock()

	for _, e := range entries {
		e.Attempted = true
		e.At = time.Now()
		e.Err = r.remove(ctx, e.Path, e.Flags)
		if e.Err != nil {
			r.log.Warn("cleanup failed", "path", e.Path, "error", e.Err)
			continue
		}
		r.log.Debug("cleanup succeeded", "path", e.Path)
	}
}
