package gallery

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/smelek/gallerysync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memOrderStore is an in-memory OrderStore for tests.
type memOrderStore struct {
	mu        sync.Mutex
	orders    map[string][]string
	getErr    error
	putErr    error
	failOrder []string      // when set, upserts of exactly this order fail
	block     chan struct{} // when set, UpsertOrder blocks until closed
	upserts   int
}

func newMemOrderStore() *memOrderStore {
	return &memOrderStore{orders: map[string][]string{}}
}

func (s *memOrderStore) GetOrder(_ context.Context, key string) (*models.OrderRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	order, ok := s.orders[key]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return &models.OrderRecord{GalleryKey: key, Order: order}, nil
}

func (s *memOrderStore) UpsertOrder(_ context.Context, key string, order []string, _ string, _ time.Time) error {
	if s.block != nil {
		<-s.block
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if s.putErr != nil {
		return s.putErr
	}
	if s.failOrder != nil && slices.Equal(order, s.failOrder) {
		return errors.New("write refused")
	}
	s.orders[key] = append([]string(nil), order...)
	return nil
}

type staticGate bool

func (g staticGate) Resolve(context.Context) bool { return bool(g) }

// recordNotifier collects notices.
type recordNotifier struct {
	mu      sync.Mutex
	notices []models.Notice
}

func (n *recordNotifier) Notify(notice models.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
}

func (n *recordNotifier) all() []models.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.Notice(nil), n.notices...)
}

func TestEngineLoad_ReconcilesSavedOrder(t *testing.T) {
	st := newMemOrderStore()
	st.orders["kitchen-remodel"] = []string{"C", "A"}

	e := NewEngine(st, staticGate(true), nil, EngineOptions{})
	err := e.Load(context.Background(), "kitchen-remodel", itemsOf("A", "B", "C", "D"))
	require.NoError(t, err)

	assert.Equal(t, []string{"C", "A", "B", "D"}, e.IDs())
	assert.False(t, e.Loading())
	assert.True(t, e.IsAdmin())
}

func TestEngineLoad_NoSavedOrderUsesDefaults(t *testing.T) {
	st := newMemOrderStore()

	e := NewEngine(st, staticGate(false), nil, EngineOptions{})
	err := e.Load(context.Background(), "kitchen-remodel", itemsOf("A", "B"))
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, e.IDs())
}

func TestEngineLoad_FetchFailureFallsBackToDefaults(t *testing.T) {
	st := newMemOrderStore()
	st.getErr = errors.New("store unavailable")

	e := NewEngine(st, staticGate(true), nil, EngineOptions{})
	err := e.Load(context.Background(), "kitchen-remodel", itemsOf("A", "B"))
	require.Error(t, err)

	// The failure is not fatal: the default order is in place and the
	// loading flag is cleared.
	assert.Equal(t, []string{"A", "B"}, e.IDs())
	assert.False(t, e.Loading())
}

func TestApplyMove_OptimisticBeforeCommitSettles(t *testing.T) {
	st := newMemOrderStore()
	st.block = make(chan struct{})

	e := NewEngine(st, staticGate(true), nil, EngineOptions{})
	require.NoError(t, e.Load(context.Background(), "g", itemsOf("A", "B", "C", "D")))

	require.NoError(t, e.ApplyMove(0, 2))

	// The commit has not settled (the store is blocked) but the new order
	// is already visible.
	assert.Equal(t, []string{"B", "C", "A", "D"}, e.IDs())

	close(st.block)
	e.Wait()
	assert.Equal(t, []string{"B", "C", "A", "D"}, st.orders["g"])
}

func TestApplyMove_NotEditable(t *testing.T) {
	st := newMemOrderStore()
	n := &recordNotifier{}

	e := NewEngine(st, staticGate(false), n, EngineOptions{})
	require.NoError(t, e.Load(context.Background(), "g", itemsOf("A", "B")))

	err := e.ApplyMove(0, 1)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, []string{"A", "B"}, e.IDs())

	notices := n.all()
	require.Len(t, notices, 1)
	assert.Equal(t, models.NoticeError, notices[0].Level)
}

func TestApplyMove_EditModeOverridesAdmin(t *testing.T) {
	st := newMemOrderStore()

	e := NewEngine(st, staticGate(false), nil, EngineOptions{})
	require.NoError(t, e.Load(context.Background(), "g", itemsOf("A", "B")))

	assert.False(t, e.IsEditable())
	e.ToggleEditMode()
	assert.True(t, e.IsEditable())

	require.NoError(t, e.ApplyMove(0, 1))
	e.Wait()
	assert.Equal(t, []string{"B", "A"}, st.orders["g"])
}

func TestApplyMove_CommitFailureKeepsOptimisticState(t *testing.T) {
	st := newMemOrderStore()
	st.putErr = errors.New("write refused")
	n := &recordNotifier{}

	e := NewEngine(st, staticGate(true), n, EngineOptions{})
	require.NoError(t, e.Load(context.Background(), "g", itemsOf("A", "B", "C")))

	require.NoError(t, e.ApplyMove(0, 2))
	e.Wait()

	assert.Equal(t, []string{"B", "C", "A"}, e.IDs())
	notices := n.all()
	require.Len(t, notices, 1)
	assert.Equal(t, models.NoticeError, notices[0].Level)
}

func TestApplyMove_RollbackOnFailureOption(t *testing.T) {
	st := newMemOrderStore()
	st.putErr = errors.New("write refused")

	e := NewEngine(st, staticGate(true), nil, EngineOptions{RollbackOnFailure: true})
	require.NoError(t, e.Load(context.Background(), "g", itemsOf("A", "B", "C")))

	require.NoError(t, e.ApplyMove(0, 2))
	e.Wait()

	assert.Equal(t, []string{"A", "B", "C"}, e.IDs())
}

func TestApplyMove_StaleRollbackDoesNotClobberNewerMove(t *testing.T) {
	st := newMemOrderStore()
	st.block = make(chan struct{})
	st.failOrder = []string{"B", "C", "A", "D"}

	e := NewEngine(st, staticGate(true), nil, EngineOptions{RollbackOnFailure: true})
	require.NoError(t, e.Load(context.Background(), "g", itemsOf("A", "B", "C", "D")))

	// The first move's commit will fail; a second move lands while both
	// commits are still in flight at the store.
	require.NoError(t, e.ApplyMove(0, 2))
	assert.Equal(t, []string{"B", "C", "A", "D"}, e.IDs())
	require.NoError(t, e.ApplyMove(0, 1))
	assert.Equal(t, []string{"C", "B", "A", "D"}, e.IDs())

	close(st.block)
	e.Wait()

	// The failed first commit must not restore its own pre-move snapshot
	// over the newer order.
	assert.Equal(t, []string{"C", "B", "A", "D"}, e.IDs())
	assert.Equal(t, []string{"C", "B", "A", "D"}, st.orders["g"])
}

func TestApplyMove_IndexOutOfRange(t *testing.T) {
	st := newMemOrderStore()

	e := NewEngine(st, staticGate(true), nil, EngineOptions{})
	require.NoError(t, e.Load(context.Background(), "g", itemsOf("A", "B")))

	err := e.ApplyMove(0, 5)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
	e.Wait()
	assert.Zero(t, st.upserts)
}

func TestApplyInsertAndRemove(t *testing.T) {
	st := newMemOrderStore()

	e := NewEngine(st, staticGate(true), nil, EngineOptions{Actor: "admin-1"})
	require.NoError(t, e.Load(context.Background(), "g", itemsOf("A", "B")))

	require.NoError(t, e.ApplyInsert(models.GalleryItem{ID: "C", URL: "/images/C.jpg"}))
	assert.Equal(t, []string{"A", "B", "C"}, e.IDs())

	err := e.ApplyInsert(models.GalleryItem{ID: "C"})
	assert.Error(t, err)

	require.NoError(t, e.ApplyRemove("A"))
	assert.Equal(t, []string{"B", "C"}, e.IDs())

	// Removing an absent id is a no-op and does not commit.
	before := e.IDs()
	require.NoError(t, e.ApplyRemove("nope"))
	assert.Equal(t, before, e.IDs())

	e.Wait()
	assert.Equal(t, []string{"B", "C"}, st.orders["g"])
}

func TestLoad_ReplacesStateOnKeyChange(t *testing.T) {
	st := newMemOrderStore()
	st.orders["first"] = []string{"B", "A"}

	e := NewEngine(st, staticGate(true), nil, EngineOptions{})
	require.NoError(t, e.Load(context.Background(), "first", itemsOf("A", "B")))
	assert.Equal(t, []string{"B", "A"}, e.IDs())

	require.NoError(t, e.Load(context.Background(), "second", itemsOf("X", "Y")))
	assert.Equal(t, "second", e.Key())
	assert.Equal(t, []string{"X", "Y"}, e.IDs())
}
