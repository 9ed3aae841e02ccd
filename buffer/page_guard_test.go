package buffer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageGuard_Drop_Releases_The_Pin_Once(t *testing.T) {
	b := newTestPool(t, 2, 2)

	g, err := b.NewPageGuarded()
	require.NoError(t, err)
	pid := g.PageId()

	g.Drop()
	assert.False(t, g.IsValid())

	// the pin is gone, a second drop must not release anything again
	g.Drop()
	assert.False(t, b.Unpin(pid, false))
}

func TestPageGuard_Move_Transfers_Ownership(t *testing.T) {
	b := newTestPool(t, 2, 2)

	g, err := b.NewPageGuarded()
	require.NoError(t, err)
	pid := g.PageId()
	g.SetDirty()

	var dst PageGuard
	g.MoveTo(&dst)

	assert.False(t, g.IsValid())
	require.True(t, dst.IsValid())
	assert.Equal(t, pid, dst.PageId())

	// dropping the source is a no-op, the page stays pinned
	g.Drop()
	p, err := b.FetchPage(pid)
	require.NoError(t, err)
	assert.Equal(t, 2, p.GetPinCount())
	require.True(t, b.Unpin(pid, false))

	// the accumulated dirty flag moved along
	dst.Drop()
	assert.True(t, p.IsDirty())
	assert.Equal(t, 0, p.GetPinCount())
}

func TestPageGuard_Move_Onto_A_Valid_Guard_Releases_It_First(t *testing.T) {
	b := newTestPool(t, 4, 2)

	g1, err := b.NewPageGuarded()
	require.NoError(t, err)
	pid1 := g1.PageId()

	g2, err := b.NewPageGuarded()
	require.NoError(t, err)

	g2.MoveTo(g1)

	// g1's original pin was released by the move
	assert.False(t, b.Unpin(pid1, false))
	require.True(t, g1.IsValid())
	g1.Drop()
}

func TestWritePageGuard_Lifetime(t *testing.T) {
	b := newTestPool(t, 2, 2)

	var pid uint64
	func() {
		g, err := b.NewPageWrite()
		require.NoError(t, err)

		var moved WritePageGuard
		g.MoveTo(&moved)
		defer moved.Drop()

		assert.False(t, g.IsValid())
		pid = moved.PageId()
		copy(moved.GetDataMut(), "guarded")
	}()

	// the pin is released, the dirty flag stuck, and the latch is free for readers
	p, err := b.FetchPage(pid)
	require.NoError(t, err)
	assert.Equal(t, 1, p.GetPinCount())
	assert.True(t, p.IsDirty())
	require.True(t, b.Unpin(pid, false))

	r, err := b.FetchPageRead(pid)
	require.NoError(t, err)
	assert.Equal(t, []byte("guarded"), r.GetData()[:7])
	r.Drop()
}

func TestReadPageGuards_Share_The_Latch(t *testing.T) {
	b := newTestPool(t, 2, 2)

	g, err := b.NewPageGuarded()
	require.NoError(t, err)
	pid := g.PageId()
	g.Drop()

	r1, err := b.FetchPageRead(pid)
	require.NoError(t, err)
	r2, err := b.FetchPageRead(pid)
	require.NoError(t, err)

	r1.Drop()
	r2.Drop()
}

func TestWritePageGuard_Blocks_Readers_Until_Dropped(t *testing.T) {
	b := newTestPool(t, 2, 2)

	w, err := b.NewPageWrite()
	require.NoError(t, err)
	pid := w.PageId()
	copy(w.GetDataMut(), "x")

	acquired := make(chan struct{})
	go func() {
		r, err := b.FetchPageRead(pid)
		assert.NoError(t, err)
		close(acquired)
		r.Drop()
	}()

	select {
	case <-acquired:
		t.Fatal("read latch acquired while the write guard was held")
	case <-time.After(50 * time.Millisecond):
	}

	w.Drop()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("read latch was not acquired after the write guard dropped")
	}
}
