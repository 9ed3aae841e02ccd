package disk

import (
	"encoding/binary"
	"fmt"
	"io"
	"kovan/common"
	"os"
	"sync"
)

// PageSize is the size of a physical page. It is fixed at build time and every read and write
// against the database file is done in multiples of it.
const PageSize int = 4096

// FlushInstantly should normally be set to true. If it is false then data might be lost even after a successful write
// operation when power loss occurs before os flushes its io buffers. But when it is false, tests run faster
// thanks to io scheduling of os, so for development it could be set to false. Setting it to false should not change
// the validity of any tests unless a test is simulating a power loss.
const FlushInstantly bool = false

// InvalidPageID is the sentinel for the absence of a page.
const InvalidPageID = ^uint64(0)

type IDiskManager interface {
	// ReadPage fills dest, which must be PageSize long, with the content of the page. A page that has
	// never been written reads as zeroes.
	ReadPage(pageId uint64, dest []byte) error

	// WritePage persists data, which must be PageSize long, as the content of the page.
	WritePage(data []byte, pageId uint64) error

	// AllocatePage returns an unused page id. Deallocated pages are reused before the file is grown.
	AllocatePage() uint64

	// DeallocatePage gives a page id back so that a later AllocatePage may hand it out again.
	DeallocatePage(pageId uint64)

	Sync() error
	Close() error

	GetLogWriter() io.Writer
}

var _ IDiskManager = &Manager{}

// Manager is a file backed IDiskManager. Page 0 of the file is a reserved header page which keeps
// the head and the tail of the free list of deallocated pages. The free list is threaded through
// the deallocated pages themselves: the first 8 bytes of each page in the list hold the id of the
// next one. Page id p lives at file offset (p+1)*PageSize so that ids handed out by AllocatePage
// start at 0.
type Manager struct {
	file        *os.File
	filename    string
	logFile     *os.File
	logFileName string
	nextPageId  uint64
	mu          sync.Mutex
	header      *header
}

func NewDiskManager(file string) (*Manager, bool, error) {
	d := Manager{}
	d.filename = file
	d.logFileName = file + ".log"

	f, err := os.OpenFile(file, os.O_CREATE|os.O_RDWR, os.ModePerm)
	if err != nil {
		return nil, false, err
	}

	lf, err := os.OpenFile(d.logFileName, os.O_CREATE|os.O_RDWR, os.ModePerm)
	if err != nil {
		return nil, false, err
	}

	d.logFile = lf
	d.file = f

	stats, err := f.Stat()
	if err != nil {
		return nil, false, err
	}

	filesize := stats.Size()
	if filesize == 0 {
		// a new db file. reserve the header page so that data pages start right after it.
		d.nextPageId = 0
		d.initHeader()
		return &d, true, nil
	}

	d.nextPageId = uint64(int(filesize)/PageSize) - 1
	return &d, false, nil
}

func (d *Manager) WritePage(data []byte, pageId uint64) error {
	if len(data) != PageSize {
		panic("written bytes are not equal to page size")
	}

	if err := d.writeAt(data, int64(pageId+1)*int64(PageSize)); err != nil {
		return fmt.Errorf("WritePage failed for page %v: %w", pageId, err)
	}

	if FlushInstantly {
		if err := d.file.Sync(); err != nil {
			panic(err)
		}
	}

	return nil
}

func (d *Manager) ReadPage(pageId uint64, dest []byte) error {
	if len(dest) != PageSize {
		panic("read destination is not equal to page size")
	}

	n, err := d.file.ReadAt(dest, int64(pageId+1)*int64(PageSize))
	if err == io.EOF {
		// the page has not been materialized on disk yet, the rest of it reads as zeroes
		for i := n; i < PageSize; i++ {
			dest[i] = 0
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("ReadPage failed for page %v: %w", pageId, err)
	}

	return nil
}

func (d *Manager) AllocatePage() (pageId uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// if pop free list is successful return popped page
	if p, ok := d.popFreeList(); ok {
		return p
	}

	// else allocate new page
	pageId = d.nextPageId
	d.nextPageId++
	return pageId
}

// DeallocatePage appends page with given id to the free list and sets it as tail.
func (d *Manager) DeallocatePage(pageId uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	h := d.getHeader()

	// if free list is empty
	if h.freeListHead == InvalidPageID {
		h.freeListHead = pageId
		h.freeListTail = pageId
		d.setHeader(h)
		return
	}

	// link the new tail from the current one. the tail page may not have been written yet in which
	// case it reads as zeroes, which is fine since only its next pointer matters from now on.
	data := make([]byte, PageSize)
	common.PanicIfErr(d.ReadPage(h.freeListTail, data))

	binary.BigEndian.PutUint64(data, pageId)
	common.PanicIfErr(d.WritePage(data, h.freeListTail))

	h.freeListTail = pageId
	d.setHeader(h)
}

func (d *Manager) Sync() error {
	return d.file.Sync()
}

func (d *Manager) Close() error {
	if err := d.logFile.Close(); err != nil {
		return err
	}
	return d.file.Close()
}

func (d *Manager) GetLogWriter() io.Writer {
	return d.logFile
}

func (d *Manager) writeAt(data []byte, offset int64) error {
	n, err := d.file.WriteAt(data, offset)
	if err != nil {
		return err
	}
	if n != len(data) {
		panic("written bytes are not equal to page size")
	}
	return nil
}

func (d *Manager) popFreeList() (pageId uint64, ok bool) {
	h := d.getHeader()
	if h.freeListHead == InvalidPageID {
		return 0, false
	}

	// if there is only one entry in free list return that and set head and tail to invalid
	if h.freeListHead == h.freeListTail {
		pageId = h.freeListHead
		h.freeListHead, h.freeListTail = InvalidPageID, InvalidPageID
		d.setHeader(h)
		return pageId, true
	}

	// else pop head, read new head from its next pointer and update header
	pageId = h.freeListHead

	data := make([]byte, PageSize)
	common.PanicIfErr(d.ReadPage(h.freeListHead, data))

	h.freeListHead = binary.BigEndian.Uint64(data)
	d.setHeader(h)
	return pageId, true
}

func (d *Manager) getHeader() header {
	if d.header != nil {
		return *d.header
	}

	data := make([]byte, PageSize)
	n, err := d.file.ReadAt(data, 0)
	if err == io.EOF && n == 0 {
		d.initHeader()
		return *d.header
	} else if err != nil && err != io.EOF {
		panic(err)
	}

	h := readHeader(data)
	d.header = &h
	return h
}

func (d *Manager) setHeader(h header) {
	d.header = &h
	page := make([]byte, PageSize)
	writeHeader(h, page)
	common.PanicIfErr(d.writeAt(page, 0))
}

func (d *Manager) initHeader() {
	d.setHeader(header{
		freeListHead: InvalidPageID,
		freeListTail: InvalidPageID,
	})
}

type header struct {
	freeListHead uint64
	freeListTail uint64
}

func readHeader(data []byte) header {
	return header{
		freeListHead: binary.BigEndian.Uint64(data),
		freeListTail: binary.BigEndian.Uint64(data[8:]),
	}
}

func writeHeader(h header, dest []byte) {
	binary.BigEndian.PutUint64(dest, h.freeListHead)
	binary.BigEndian.PutUint64(dest[8:], h.freeListTail)
}
