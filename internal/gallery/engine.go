package gallery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/smelek/gallerysync/internal/models"
)

// ErrOrderNotFound is returned by an OrderStore when no order has been saved
// for a gallery key.
var ErrOrderNotFound = errors.New("gallery order not found")

// ErrPermissionDenied is returned when a mutating operation is attempted
// while the engine is not editable. No state is mutated.
var ErrPermissionDenied = errors.New("permission denied")

// OrderStore persists gallery orders keyed by gallery key.
// UpsertOrder has overwrite semantics: the last call to complete wins.
type OrderStore interface {
	GetOrder(ctx context.Context, galleryKey string) (*models.OrderRecord, error)
	UpsertOrder(ctx context.Context, galleryKey string, order []string, actor string, at time.Time) error
}

// AdminResolver reports whether the current actor holds the admin
// capability. Implementations must fail closed: any failure resolves false.
type AdminResolver interface {
	Resolve(ctx context.Context) bool
}

// Notifier receives transient user-facing notices. Implementations must not
// block: notices are fired from commit goroutines.
type Notifier interface {
	Notify(n models.Notice)
}

// NopNotifier discards all notices.
type NopNotifier struct{}

func (NopNotifier) Notify(models.Notice) {}

// EngineOptions tune engine behavior.
type EngineOptions struct {
	// Actor is recorded as updated_by on committed orders.
	Actor string
	// RollbackOnFailure restores the previous order when a commit fails.
	// Off by default: the optimistic state is kept and only a notice is
	// surfaced, matching the responsive-UI trade-off.
	RollbackOnFailure bool
	// CommitTimeout bounds each background commit. Zero means no timeout.
	CommitTimeout time.Duration
}

// Engine owns the displayed order of one gallery. It loads a persisted order,
// reconciles it against the caller-supplied default items, and applies
// move/insert/remove operations optimistically with asynchronous best-effort
// persistence.
//
// All operations read and write the in-memory order synchronously before any
// network work begins, so local ordering always matches the order the user
// issued operations in. Commits are not serialized against each other; the
// last commit to complete wins at the store.
type Engine struct {
	store  OrderStore
	gate   AdminResolver
	notify Notifier
	opts   EngineOptions

	mu       sync.Mutex
	key      string
	items    Collection[models.GalleryItem]
	isAdmin  bool
	editMode bool
	loading  bool
	loaded   bool

	commits sync.WaitGroup
}

// NewEngine creates an engine. gate and notify may be nil.
func NewEngine(store OrderStore, gate AdminResolver, notify Notifier, opts EngineOptions) *Engine {
	if notify == nil {
		notify = NopNotifier{}
	}
	return &Engine{store: store, gate: gate, notify: notify, opts: opts}
}

// Load initializes (or re-initializes) the engine for a gallery key.
// The admin capability is resolved once here; it is not reactive to role
// changes mid-session. A missing saved order or a fetch failure is not
// fatal — the default order is used as-is.
func (e *Engine) Load(ctx context.Context, galleryKey string, defaultItems []models.GalleryItem) error {
	e.mu.Lock()
	e.loading = true
	e.loaded = false
	e.key = galleryKey
	e.mu.Unlock()

	isAdmin := false
	if e.gate != nil {
		isAdmin = e.gate.Resolve(ctx)
	}

	items := NewCollection(defaultItems)
	rec, err := e.store.GetOrder(ctx, galleryKey)
	if err == nil && rec != nil && len(rec.Order) > 0 {
		items = Reconcile(rec.Order, items.Items())
	}

	e.mu.Lock()
	e.isAdmin = isAdmin
	e.items = items
	e.loading = false
	e.loaded = true
	e.mu.Unlock()

	if err != nil && !errors.Is(err, ErrOrderNotFound) {
		return fmt.Errorf("load order for %s: %w", galleryKey, err)
	}
	return nil
}

// Loading reports whether a Load is in progress.
func (e *Engine) Loading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loading
}

// Key returns the gallery key of the last Load.
func (e *Engine) Key() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.key
}

// Items returns a snapshot of the current displayed order.
func (e *Engine) Items() []models.GalleryItem {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.items.Items()
}

// IDs returns the current identity order.
func (e *Engine) IDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.items.IDs()
}

// IsAdmin reports the admin capability resolved at Load time.
func (e *Engine) IsAdmin() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isAdmin
}

// IsEditable is derived fresh on every read: admin capability OR the manual
// edit-mode override. Never stored combined, so a late-resolving admin check
// cannot leave a stale flag behind.
func (e *Engine) IsEditable() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isAdmin || e.editMode
}

// ToggleEditMode flips the manual override and reports the new state.
func (e *Engine) ToggleEditMode() bool {
	e.mu.Lock()
	e.editMode = !e.editMode
	on := e.editMode
	e.mu.Unlock()

	if on {
		e.notify.Notify(models.Notice{Level: models.NoticeSuccess, Message: "Edit mode enabled - you can now reorder items"})
	} else {
		e.notify.Notify(models.Notice{Level: models.NoticeInfo, Message: "Edit mode disabled"})
	}
	return on
}

// ApplyMove moves the item at from to position to, visible immediately, and
// commits the new order in the background.
func (e *Engine) ApplyMove(from, to int) error {
	return e.apply(func(c Collection[models.GalleryItem]) (Collection[models.GalleryItem], error) {
		return c.Move(from, to)
	})
}

// ApplyInsert appends an item to the end of the gallery and commits.
func (e *Engine) ApplyInsert(item models.GalleryItem) error {
	return e.apply(func(c Collection[models.GalleryItem]) (Collection[models.GalleryItem], error) {
		if c.IndexOf(item.Identity()) >= 0 {
			return c, fmt.Errorf("item %q already present", item.Identity())
		}
		return c.Append(item), nil
	})
}

// ApplyRemove deletes the item with the given identity and commits the
// re-derived dense order. Removing an absent identity is a no-op.
func (e *Engine) ApplyRemove(id string) error {
	return e.apply(func(c Collection[models.GalleryItem]) (Collection[models.GalleryItem], error) {
		out, ok := c.RemoveID(id)
		if !ok {
			return c, nil
		}
		return out, nil
	})
}

func (e *Engine) apply(mutate func(Collection[models.GalleryItem]) (Collection[models.GalleryItem], error)) error {
	e.mu.Lock()
	if !(e.isAdmin || e.editMode) {
		e.mu.Unlock()
		e.notify.Notify(models.Notice{Level: models.NoticeError, Message: "You do not have permission to edit this gallery"})
		return ErrPermissionDenied
	}

	prev := e.items
	next, err := mutate(e.items)
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if next.SameOrder(prev) {
		e.mu.Unlock()
		return nil
	}

	// Optimistic update: visible before any network round trip.
	e.items = next
	key := e.key
	e.mu.Unlock()

	e.commits.Add(1)
	go e.commit(key, next, prev)
	return nil
}

func (e *Engine) commit(key string, next, prev Collection[models.GalleryItem]) {
	defer e.commits.Done()

	ctx := context.Background()
	if e.opts.CommitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.CommitTimeout)
		defer cancel()
	}

	err := e.store.UpsertOrder(ctx, key, next.IDs(), e.opts.Actor, time.Now().UTC())
	if err == nil {
		e.notify.Notify(models.Notice{Level: models.NoticeSuccess, Message: "Gallery order saved"})
		return
	}

	if e.opts.RollbackOnFailure {
		e.mu.Lock()
		// Restore only if no later apply has moved past this commit's state;
		// rolling back a stale snapshot would clobber newer moves.
		if e.key == key && e.items.SameOrder(next) {
			e.items = prev
		}
		e.mu.Unlock()
	}
	e.notify.Notify(models.Notice{Level: models.NoticeError, Message: "Failed to save gallery order"})
}

// Wait blocks until all in-flight commits settle. Intended for CLI exit
// paths and tests; a long-lived view never needs it.
func (e *Engine) Wait() {
	e.commits.Wait()
}
