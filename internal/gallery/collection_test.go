package gallery

import (
	"testing"

	"github.com/smelek/gallerysync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func itemsOf(ids ...string) []models.GalleryItem {
	out := make([]models.GalleryItem, len(ids))
	for i, id := range ids {
		out[i] = models.GalleryItem{ID: id, URL: "/images/" + id + ".jpg"}
	}
	return out
}

func TestMove_RemoveThenInsert(t *testing.T) {
	c := NewCollection(itemsOf("A", "B", "C", "D"))

	moved, err := c.Move(0, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C", "A", "D"}, moved.IDs())

	// Original is untouched
	assert.Equal(t, []string{"A", "B", "C", "D"}, c.IDs())
}

func TestMove_SamePositionIsNoOp(t *testing.T) {
	c := NewCollection(itemsOf("A", "B", "C"))

	moved, err := c.Move(1, 1)
	require.NoError(t, err)
	assert.True(t, moved.SameOrder(c))
}

func TestMove_Invertible(t *testing.T) {
	c := NewCollection(itemsOf("A", "B", "C", "D"))

	moved, err := c.Move(0, 2)
	require.NoError(t, err)

	// The moved item A is now at index 2; moving it back to 0 restores
	// the original order.
	back, err := moved.Move(2, 0)
	require.NoError(t, err)
	assert.Equal(t, c.IDs(), back.IDs())
}

func TestMove_OutOfRange(t *testing.T) {
	c := NewCollection(itemsOf("A", "B"))

	_, err := c.Move(-1, 0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = c.Move(0, 2)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)

	_, err = c.Move(2, 0)
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestInsertRemove(t *testing.T) {
	c := NewCollection(itemsOf("A", "B"))

	c2, err := c.InsertAt(1, models.GalleryItem{ID: "X"})
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "X", "B"}, c2.IDs())

	c3 := c2.Append(models.GalleryItem{ID: "Y"})
	assert.Equal(t, []string{"A", "X", "B", "Y"}, c3.IDs())

	c4, err := c3.RemoveAt(0)
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "B", "Y"}, c4.IDs())

	c5, ok := c4.RemoveID("B")
	assert.True(t, ok)
	assert.Equal(t, []string{"X", "Y"}, c5.IDs())

	_, ok = c5.RemoveID("missing")
	assert.False(t, ok)

	_, err = c5.InsertAt(5, models.GalleryItem{ID: "Z"})
	assert.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestNewCollection_DropsDuplicateIdentities(t *testing.T) {
	c := NewCollection(itemsOf("A", "B", "A", "C", "B"))
	assert.Equal(t, []string{"A", "B", "C"}, c.IDs())
}

func TestReconcile_SavedOrderFirstThenNewItems(t *testing.T) {
	available := itemsOf("A", "B", "C", "D")

	got := Reconcile([]string{"C", "A"}, available)
	assert.Equal(t, []string{"C", "A", "B", "D"}, got.IDs())
}

func TestReconcile_DropsStaleIdentifiers(t *testing.T) {
	available := itemsOf("A", "B")

	got := Reconcile([]string{"gone", "B", "also-gone", "A"}, available)
	assert.Equal(t, []string{"B", "A"}, got.IDs())
}

func TestReconcile_Idempotent(t *testing.T) {
	available := itemsOf("A", "B", "C", "D")

	once := Reconcile([]string{"D", "B"}, available)
	twice := Reconcile(once.IDs(), available)
	assert.Equal(t, once.IDs(), twice.IDs())
}

func TestReconcile_Complete(t *testing.T) {
	available := itemsOf("A", "B", "C")

	cases := [][]string{
		nil,
		{},
		{"A"},
		{"C", "B", "A"},
		{"X", "Y"},
		{"B", "B", "X", "A"},
	}
	for _, canonical := range cases {
		got := Reconcile(canonical, available)
		require.Equal(t, 3, got.Len(), "canonical=%v", canonical)

		seen := map[string]int{}
		for _, id := range got.IDs() {
			seen[id]++
		}
		for _, want := range []string{"A", "B", "C"} {
			assert.Equal(t, 1, seen[want], "canonical=%v id=%s", canonical, want)
		}
	}
}

func TestSameOrder(t *testing.T) {
	a := NewCollection(itemsOf("A", "B"))
	b := NewCollection(itemsOf("A", "B"))
	c := NewCollection(itemsOf("B", "A"))
	d := NewCollection(itemsOf("A"))

	assert.True(t, a.SameOrder(b))
	assert.False(t, a.SameOrder(c))
	assert.False(t, a.SameOrder(d))
}
