package pages

import (
	"kovan/disk"
	"sync"
)

// InvalidPageID marks a frame that currently holds no physical page.
const InvalidPageID = disk.InvalidPageID

// IPage is a wrapper for actual physical pages in the file system. It can provide the actual content of the
// physical page as a byte array. It also keeps some useful information about the page for buffer pool.
type IPage interface {
	GetData() []byte

	// GetPageId returns the page_id of the physical page.
	GetPageId() uint64
	GetPinCount() int
	IsDirty() bool
	SetDirty()
	SetClean()
	GetPageLSN() LSN
	SetPageLSN(LSN)
	WLatch()
	WUnlatch()
	RLatch()
	RUnLatch()
	IncrPinCount()
	DecrPinCount()
}

var _ IPage = &RawPage{}

type RawPage struct {
	pageId   uint64
	isDirty  bool
	pageLSN  LSN
	rwLatch  sync.RWMutex
	PinCount int
	Data     []byte
}

func NewRawPage(pageId uint64) *RawPage {
	return &RawPage{
		pageId:   pageId,
		isDirty:  false,
		rwLatch:  sync.RWMutex{},
		PinCount: 0,
		Data:     make([]byte, disk.PageSize),
	}
}

func (p *RawPage) IncrPinCount() {
	p.PinCount++
}

func (p *RawPage) DecrPinCount() {
	p.PinCount--
}

func (p *RawPage) GetData() []byte {
	return p.Data
}

func (p *RawPage) GetPageId() uint64 {
	return p.pageId
}

func (p *RawPage) SetPageId(pageId uint64) {
	p.pageId = pageId
}

func (p *RawPage) GetPinCount() int {
	return p.PinCount
}

func (p *RawPage) IsDirty() bool {
	return p.isDirty
}

func (p *RawPage) SetDirty() {
	p.isDirty = true
}

func (p *RawPage) SetClean() {
	p.isDirty = false
}

func (p *RawPage) GetPageLSN() LSN {
	return p.pageLSN
}

func (p *RawPage) SetPageLSN(lsn LSN) {
	p.pageLSN = lsn
}

func (p *RawPage) WLatch() {
	p.rwLatch.Lock()
}

func (p *RawPage) WUnlatch() {
	p.rwLatch.Unlock()
}

func (p *RawPage) RLatch() {
	p.rwLatch.RLock()
}

func (p *RawPage) RUnLatch() {
	p.rwLatch.RUnlock()
}

// Reset zeroes page content and metadata so that the frame can be handed to a new owner.
func (p *RawPage) Reset() {
	for i := range p.Data {
		p.Data[i] = 0
	}
	p.pageId = InvalidPageID
	p.isDirty = false
	p.pageLSN = ZeroLSN
	p.PinCount = 0
}
