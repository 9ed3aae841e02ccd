package buffer

import (
	"errors"
	"fmt"
	"kovan/disk"
	"kovan/disk/pages"
	"kovan/disk/wal"
	"sync"
)

// ErrNoFreeFrame is returned when every frame is pinned and nothing can be evicted. It is an
// expected outcome, not a failure: callers should release pins and retry.
var ErrNoFreeFrame = errors.New("no free frame and no evictable frame in the pool")

type Pool interface {
	// NewPage allocates a fresh page id, pins it into a frame and returns the page. The content
	// is zeroed, nothing is read from disk.
	NewPage() (*pages.RawPage, error)

	// FetchPage returns the page pinned into a frame, reading it from disk on a miss.
	FetchPage(pageId uint64) (*pages.RawPage, error)

	// Unpin releases one pin on the page. isDirty accumulates: once a caller reports the page
	// dirty it stays dirty until written back. Returns false if the page is not resident or its
	// pin count is already zero.
	Unpin(pageId uint64, isDirty bool) bool

	// FlushPage writes the page to disk and marks it clean. Pins and residency are unaffected.
	// Returns false if the page is not resident.
	FlushPage(pageId uint64) (bool, error)

	// FlushAll writes every resident page to disk in no particular order.
	FlushAll() error

	// DeletePage drops the page from the pool and gives its id back to the disk manager. Deleting
	// a page that is not resident succeeds. Deleting a pinned page fails with false. Nothing is
	// flushed, the caller owns durability of deleted pages.
	DeletePage(pageId uint64) bool

	// EmptyFrameSize returns the number of frames which do not hold data of any physical page.
	EmptyFrameSize() int
}

var _ Pool = &BufferPool{}

type BufferPool struct {
	poolSize    int
	frames      []*pages.RawPage
	pageTable   map[uint64]int // physical page_id => frame index which keeps that page
	freeList    []int          // indexes of frames which hold no page
	replacer    Replacer
	diskManager disk.IDiskManager
	logManager  wal.LogManager
	lock        sync.Mutex
	stats       *Stats
}

func NewBufferPool(dbFile string, poolSize, replacerK int) (*BufferPool, error) {
	dm, _, err := disk.NewDiskManager(dbFile)
	if err != nil {
		return nil, err
	}

	return NewBufferPoolWithDM(poolSize, replacerK, dm, nil), nil
}

func NewBufferPoolWithDM(poolSize, replacerK int, dm disk.IDiskManager, logManager wal.LogManager) *BufferPool {
	if logManager == nil {
		logManager = wal.NoopLM
	}

	frames := make([]*pages.RawPage, poolSize)
	freeList := make([]int, poolSize)
	for i := 0; i < poolSize; i++ {
		frames[i] = pages.NewRawPage(pages.InvalidPageID)
		freeList[i] = i
	}

	return &BufferPool{
		poolSize:    poolSize,
		frames:      frames,
		pageTable:   map[uint64]int{},
		freeList:    freeList,
		replacer:    NewLRUKReplacer(poolSize, replacerK),
		diskManager: dm,
		logManager:  logManager,
		stats:       newStats(),
	}
}

func (b *BufferPool) NewPage() (*pages.RawPage, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	frameId, err := b.pickReplacementFrame()
	if err != nil {
		return nil, err
	}

	pageId := b.diskManager.AllocatePage()

	p := b.frames[frameId]
	p.Reset()
	p.SetPageId(pageId)
	p.IncrPinCount()

	b.pageTable[pageId] = frameId
	b.replacer.RecordAccess(frameId)
	b.replacer.SetEvictable(frameId, false)

	b.stats.news.Inc()
	return p, nil
}

func (b *BufferPool) FetchPage(pageId uint64) (*pages.RawPage, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if frameId, ok := b.pageTable[pageId]; ok {
		p := b.frames[frameId]
		p.IncrPinCount()
		b.replacer.RecordAccess(frameId)
		b.replacer.SetEvictable(frameId, false)

		b.stats.hits.Inc()
		return p, nil
	}

	frameId, err := b.pickReplacementFrame()
	if err != nil {
		return nil, err
	}

	p := b.frames[frameId]
	p.Reset()
	if err := b.diskManager.ReadPage(pageId, p.GetData()); err != nil {
		// the frame was already detached from its old page, put it back to the free list
		b.freeList = append(b.freeList, frameId)
		return nil, fmt.Errorf("FetchPage failed: %w", err)
	}

	p.SetPageId(pageId)
	p.IncrPinCount()
	b.pageTable[pageId] = frameId
	b.replacer.RecordAccess(frameId)
	b.replacer.SetEvictable(frameId, false)

	b.stats.misses.Inc()
	return p, nil
}

func (b *BufferPool) Unpin(pageId uint64, isDirty bool) bool {
	b.lock.Lock()
	defer b.lock.Unlock()

	frameId, ok := b.pageTable[pageId]
	if !ok {
		return false
	}

	p := b.frames[frameId]
	if p.GetPinCount() <= 0 {
		return false
	}

	if isDirty {
		p.SetDirty()
	}

	p.DecrPinCount()
	if p.GetPinCount() == 0 {
		b.replacer.SetEvictable(frameId, true)
	}

	return true
}

func (b *BufferPool) FlushPage(pageId uint64) (bool, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	if pageId == pages.InvalidPageID {
		return false, nil
	}

	frameId, ok := b.pageTable[pageId]
	if !ok {
		return false, nil
	}

	if err := b.writeBack(b.frames[frameId]); err != nil {
		return false, err
	}

	b.stats.flushes.Inc()
	return true, nil
}

func (b *BufferPool) FlushAll() error {
	b.lock.Lock()
	defer b.lock.Unlock()

	for _, frameId := range b.pageTable {
		if err := b.writeBack(b.frames[frameId]); err != nil {
			return err
		}
	}

	return nil
}

func (b *BufferPool) DeletePage(pageId uint64) bool {
	b.lock.Lock()
	defer b.lock.Unlock()

	frameId, ok := b.pageTable[pageId]
	if !ok {
		return true
	}

	p := b.frames[frameId]
	if p.GetPinCount() != 0 {
		return false
	}

	delete(b.pageTable, pageId)
	b.replacer.Remove(frameId)
	b.freeList = append(b.freeList, frameId)
	p.Reset()

	b.diskManager.DeallocatePage(pageId)
	return true
}

func (b *BufferPool) EmptyFrameSize() int {
	b.lock.Lock()
	defer b.lock.Unlock()

	return len(b.freeList)
}

func (b *BufferPool) Stats() StatsSnapshot {
	return b.stats.snapshot()
}

// pickReplacementFrame detaches a frame from whatever page it holds and returns its index. The
// free list is tried first, then the replacer. A dirty victim is written back before its page
// table entry is erased. Caller must hold b.lock.
func (b *BufferPool) pickReplacementFrame() (int, error) {
	if len(b.freeList) > 0 {
		frameId := b.freeList[0]
		b.freeList = b.freeList[1:]
		return frameId, nil
	}

	frameId, ok := b.replacer.Evict()
	if !ok {
		return 0, ErrNoFreeFrame
	}

	victim := b.frames[frameId]
	if victim.GetPinCount() != 0 {
		panic(fmt.Sprintf("a page is chosen as victim while its pin count is not zero. pin count: %v, page_id: %v",
			victim.GetPinCount(), victim.GetPageId()))
	}

	if victim.IsDirty() {
		if err := b.writeBack(victim); err != nil {
			// roll back so that the frame stays resident and evictable
			b.replacer.RecordAccess(frameId)
			b.replacer.SetEvictable(frameId, true)
			return 0, err
		}
		b.stats.writebacks.Inc()
	}

	delete(b.pageTable, victim.GetPageId())
	b.stats.evictions.Inc()
	return frameId, nil
}

// writeBack syncs a frame's content to disk and marks it clean. If log records for the page are
// not flushed yet, the log manager is flushed first so that the log never lags the data file.
func (b *BufferPool) writeBack(p *pages.RawPage) error {
	if p.GetPageLSN() > b.logManager.GetFlushedLSN() {
		if err := b.logManager.Flush(); err != nil {
			return err
		}
	}

	if err := b.diskManager.WritePage(p.GetData(), p.GetPageId()); err != nil {
		return err
	}

	p.SetClean()
	return nil
}
