// Package gate caches the signed-in user's permission set and answers
// capability checks against it. A Gate fails closed: when the set cannot be
// loaded it is empty and every check is false.
package gate

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// State of a Gate
type State int

const (
	Unloaded State = iota
	Loading
	Ready
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	}
	return "unknown"
}

// ErrNoSession is returned by a Loader when there is no signed-in user
var ErrNoSession = errors.New("no active session")

// Grant is one permission as returned for a role
type Grant struct {
	Name   string
	Active bool
}

// Loader fetches the grants of the current user's role
type Loader interface {
	LoadGrants(ctx context.Context) ([]Grant, error)
}

// Gate holds one session's permission set
type Gate struct {
	loader Loader
	logger *logrus.Logger

	mu          sync.RWMutex
	state       State
	generation  uint64
	permissions map[string]struct{}
}

// New returns an unloaded gate
func New(loader Loader, logger *logrus.Logger) *Gate {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Gate{loader: loader, logger: logger}
}

// Load fetches the permission set once. It does nothing unless the gate is Unloaded.
func (g *Gate) Load(ctx context.Context) error {
	g.mu.RLock()
	state := g.state
	g.mu.RUnlock()
	if state != Unloaded {
		return nil
	}
	return g.Refresh(ctx)
}

// Refresh discards the cached set and fetches it again. Any failure leaves
// the gate Ready with an empty set; the error is returned for the caller to log.
func (g *Gate) Refresh(ctx context.Context) error {
	g.mu.Lock()
	g.generation++
	generation := g.generation
	g.state = Loading
	g.permissions = nil
	g.mu.Unlock()

	var grants []Grant
	var err error
	if g.loader == nil {
		err = ErrNoSession
	} else {
		grants, err = g.loader.LoadGrants(ctx)
	}

	permissions := make(map[string]struct{}, len(grants))
	if err == nil {
		for _, grant := range grants {
			if grant.Active && grant.Name != "" {
				permissions[grant.Name] = struct{}{}
			}
		}
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	// A newer Refresh owns the result
	if generation != g.generation {
		return err
	}
	g.state = Ready
	if err != nil {
		g.permissions = map[string]struct{}{}
		if errors.Is(err, ErrNoSession) {
			g.logger.Debug("No session, permission set is empty")
			return nil
		}
		g.logger.WithError(err).Warn("Failed to load permissions, denying all")
		return err
	}
	g.permissions = permissions
	g.logger.WithField("count", len(permissions)).Debug("Loaded permissions")
	return nil
}

// State returns the current state
func (g *Gate) State() State {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.state
}

// HasPermission reports exact membership of name in the set
func (g *Gate) HasPermission(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.permissions[name]
	return ok
}

// HasAny reports whether at least one of names is held
func (g *Gate) HasAny(names ...string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, name := range names {
		if _, ok := g.permissions[name]; ok {
			return true
		}
	}
	return false
}

// HasAll reports whether every one of names is held. It is false when
// names is empty or the set is empty.
func (g *Gate) HasAll(names ...string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if len(names) == 0 || len(g.permissions) == 0 {
		return false
	}
	for _, name := range names {
		if _, ok := g.permissions[name]; !ok {
			return false
		}
	}
	return true
}

// Permissions returns the cached names sorted
func (g *Gate) Permissions() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.permissions))
	for name := range g.permissions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
