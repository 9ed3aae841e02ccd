package buffer

import (
	"kovan/disk/pages"
)

// PageGuard owns one pin on a page and releases it exactly once. A guard is either valid or
// empty; every method on an empty guard is a no-op, except MoveTo, which still releases whatever
// dst held. Ownership moves with MoveTo, after which the source guard is empty.
type PageGuard struct {
	pool  *BufferPool
	page  *pages.RawPage
	dirty bool
}

// FetchPageBasic fetches the page and wraps the pin in a guard.
func (b *BufferPool) FetchPageBasic(pageId uint64) (*PageGuard, error) {
	p, err := b.FetchPage(pageId)
	if err != nil {
		return nil, err
	}
	return &PageGuard{pool: b, page: p}, nil
}

// NewPageGuarded allocates a new page and wraps the pin in a guard.
func (b *BufferPool) NewPageGuarded() (*PageGuard, error) {
	p, err := b.NewPage()
	if err != nil {
		return nil, err
	}
	return &PageGuard{pool: b, page: p}, nil
}

func (g *PageGuard) IsValid() bool {
	return g.pool != nil && g.page != nil
}

func (g *PageGuard) PageId() uint64 {
	if !g.IsValid() {
		return pages.InvalidPageID
	}
	return g.page.GetPageId()
}

func (g *PageGuard) GetData() []byte {
	if !g.IsValid() {
		return nil
	}
	return g.page.GetData()
}

// GetDataMut returns the page content for writing and marks the guard dirty, so that the pin is
// released with the dirty flag set.
func (g *PageGuard) GetDataMut() []byte {
	if !g.IsValid() {
		return nil
	}
	g.dirty = true
	return g.page.GetData()
}

func (g *PageGuard) SetDirty() {
	g.dirty = true
}

// Drop releases the pin with the accumulated dirty flag and empties the guard.
func (g *PageGuard) Drop() {
	if !g.IsValid() {
		return
	}

	g.pool.Unpin(g.page.GetPageId(), g.dirty)
	g.pool = nil
	g.page = nil
	g.dirty = false
}

// MoveTo transfers ownership of the pin to dst. Whatever dst held before is released first. The
// receiver is empty afterwards.
func (g *PageGuard) MoveTo(dst *PageGuard) {
	if g == dst {
		return
	}

	dst.Drop()
	dst.pool, dst.page, dst.dirty = g.pool, g.page, g.dirty
	g.pool, g.page, g.dirty = nil, nil, false
}

// ReadPageGuard is a PageGuard which additionally holds the page's read latch. The latch is
// acquired after the pool released its own lock. On Drop the pin is released first, while the
// latch is still held, and the latch is given back afterwards.
type ReadPageGuard struct {
	guard PageGuard
}

func (b *BufferPool) FetchPageRead(pageId uint64) (*ReadPageGuard, error) {
	p, err := b.FetchPage(pageId)
	if err != nil {
		return nil, err
	}

	p.RLatch()
	return &ReadPageGuard{guard: PageGuard{pool: b, page: p}}, nil
}

func (g *ReadPageGuard) IsValid() bool {
	return g.guard.IsValid()
}

func (g *ReadPageGuard) PageId() uint64 {
	return g.guard.PageId()
}

func (g *ReadPageGuard) GetData() []byte {
	return g.guard.GetData()
}

func (g *ReadPageGuard) Drop() {
	if !g.guard.IsValid() {
		return
	}

	p := g.guard.page
	g.guard.Drop()
	p.RUnLatch()
}

func (g *ReadPageGuard) MoveTo(dst *ReadPageGuard) {
	if g == dst {
		return
	}

	dst.Drop()
	g.guard.MoveTo(&dst.guard)
}

// WritePageGuard is a PageGuard which additionally holds the page's write latch.
type WritePageGuard struct {
	guard PageGuard
}

func (b *BufferPool) FetchPageWrite(pageId uint64) (*WritePageGuard, error) {
	p, err := b.FetchPage(pageId)
	if err != nil {
		return nil, err
	}

	p.WLatch()
	return &WritePageGuard{guard: PageGuard{pool: b, page: p}}, nil
}

// NewPageWrite allocates a new page and returns it write latched.
func (b *BufferPool) NewPageWrite() (*WritePageGuard, error) {
	p, err := b.NewPage()
	if err != nil {
		return nil, err
	}

	p.WLatch()
	return &WritePageGuard{guard: PageGuard{pool: b, page: p}}, nil
}

func (g *WritePageGuard) IsValid() bool {
	return g.guard.IsValid()
}

func (g *WritePageGuard) PageId() uint64 {
	return g.guard.PageId()
}

func (g *WritePageGuard) GetData() []byte {
	return g.guard.GetData()
}

func (g *WritePageGuard) GetDataMut() []byte {
	return g.guard.GetDataMut()
}

func (g *WritePageGuard) SetDirty() {
	g.guard.SetDirty()
}

func (g *WritePageGuard) SetPageLSN(lsn pages.LSN) {
	if !g.guard.IsValid() {
		return
	}
	g.guard.page.SetPageLSN(lsn)
	g.guard.dirty = true
}

func (g *WritePageGuard) Drop() {
	if !g.guard.IsValid() {
		return
	}

	p := g.guard.page
	g.guard.Drop()
	p.WUnlatch()
}

func (g *WritePageGuard) MoveTo(dst *WritePageGuard) {
	if g == dst {
		return
	}

	dst.Drop()
	g.guard.MoveTo(&dst.guard)
}
