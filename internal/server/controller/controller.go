// Package controller implements the generic entity-management workflow:
// one list query plus create/update/delete mutations against a single
// entity type. Mutation success invalidates the entity's list cache key
// and closes the open modal; failure surfaces the remote message and
// leaves cache, modal and selection untouched so the user can retry.
package controller

import (
	"context"
	"errors"
	"sync"

	"github.com/transdovic/backoffice/internal/common"
	"github.com/transdovic/backoffice/internal/logging"
	"github.com/transdovic/backoffice/internal/server/querycache"
	"github.com/transdovic/backoffice/internal/server/session"
)

// ErrMutationInFlight is returned by Delete when a previous mutation has
// not yet resolved. The confirm control is expected to be disabled via
// Mutating; this is the enforced backstop behind it.
var ErrMutationInFlight = errors.New("mutation in flight")

// Store is the Remote Store surface one controller needs.
type Store[E any] interface {
	Select(ctx context.Context) ([]E, error)
	Insert(ctx context.Context, draft E) (E, error)
	Update(ctx context.Context, entity E) error
	Delete(ctx context.Context, id string) error
}

// Notifier receives user-facing failure notifications, verbatim.
type Notifier interface {
	Notify(message string)
}

// Config wires one controller instance.
type Config[E any] struct {
	// Key is the entity-type tag used as the list cache key.
	Key      string
	Store    Store[E]
	Cache    *querycache.Cache[[]E]
	Session  *session.Session[E]
	Notifier Notifier
	Logger   logging.Logger
}

// Controller orchestrates the workflow for one entity type.
type Controller[E any] struct {
	key      string
	store    Store[E]
	cache    *querycache.Cache[[]E]
	session  *session.Session[E]
	notifier Notifier
	logger   logging.Logger

	mu       sync.Mutex
	mutating bool
}

// New builds a controller from cfg. Key, Store and Cache are required;
// Session, Notifier and Logger may be nil.
func New[E any](cfg Config[E]) *Controller[E] {
	return &Controller[E]{
		key:      cfg.Key,
		store:    cfg.Store,
		cache:    cfg.Cache,
		session:  cfg.Session,
		notifier: cfg.Notifier,
		logger:   cfg.Logger,
	}
}

// Key returns the controller's cache key (its entity-type tag).
func (c *Controller[E]) Key() string { return c.key }

// Session returns the controller's modal session, if one is attached.
func (c *Controller[E]) Session() *session.Session[E] { return c.session }

// List returns the cached list snapshot, triggering a fetch if none has
// ever run. It never blocks on the network.
func (c *Controller[E]) List(ctx context.Context) querycache.Entry[[]E] {
	return c.cache.Get(ctx, c.key)
}

// Mutating reports whether a mutation dispatched through this controller
// has not yet resolved. The UI disables confirm/submit controls on it.
func (c *Controller[E]) Mutating() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mutating
}

func (c *Controller[E]) begin() {
	c.mu.Lock()
	c.mutating = true
	c.mu.Unlock()
}

func (c *Controller[E]) end() {
	c.mu.Lock()
	c.mutating = false
	c.mu.Unlock()
}

// Create inserts a draft. On success the list cache is invalidated and the
// open modal is closed; on failure the draft's modal stays open.
func (c *Controller[E]) Create(ctx context.Context, draft E) error {
	c.begin()
	defer c.end()

	_, err := c.store.Insert(ctx, draft)
	return c.settle(ctx, "create", err)
}

// Update rewrites an existing entity, keyed by its id. Same contract as
// Create.
func (c *Controller[E]) Update(ctx context.Context, entity E) error {
	c.begin()
	defer c.end()

	err := c.store.Update(ctx, entity)
	return c.settle(ctx, "update", err)
}

// Delete removes the entity with the given id. A call arriving while a
// previous mutation is still in flight is rejected without dispatching:
// the in-flight flag, not a debounce, gates duplicate confirms.
func (c *Controller[E]) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	if c.mutating {
		c.mu.Unlock()
		return ErrMutationInFlight
	}
	c.mutating = true
	c.mu.Unlock()
	defer c.end()

	err := c.store.Delete(ctx, id)
	return c.settle(ctx, "delete", err)
}

// settle applies the shared success/failure contract. Invalidation fires
// even if the user has already dismissed the modal: dispatch commits the
// side effect.
func (c *Controller[E]) settle(ctx context.Context, op string, err error) error {
	if err != nil {
		msg := err.Error()
		var remote *common.RemoteError
		if errors.As(err, &remote) {
			msg = remote.Message
		}
		if c.notifier != nil {
			c.notifier.Notify(msg)
		}
		if c.logger != nil {
			c.logger.Warn(ctx, "mutation failed", "entity", c.key, "op", op, "error", msg)
		}
		return err
	}

	c.cache.Invalidate(ctx, c.key)
	if c.session != nil {
		c.session.Close()
	}
	return nil
}
