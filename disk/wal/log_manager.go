package wal

import (
	"fmt"
	"io"
	"kovan/disk/pages"
	"sync"
	"sync/atomic"
)

// LogManager is what the buffer pool needs from a write ahead log. Before a dirty page whose
// PageLSN is beyond GetFlushedLSN may be written back, Flush must be called so that the log
// always reaches disk before the page does.
type LogManager interface {
	// AppendLog appends a log record to the log buffer, sets its lsn and returns it. It does not
	// flush the buffer.
	AppendLog(lr *LogRecord) pages.LSN

	// Flush persists the buffered records and advances the flushed lsn.
	Flush() error

	// GetFlushedLSN returns the latest lsn persisted to disk.
	GetFlushedLSN() pages.LSN
}

var _ LogManager = &BufferedLogManager{}

// BufferedLogManager collects serialized records in memory and writes them out as length prefixed,
// snappy compressed frames on Flush.
type BufferedLogManager struct {
	serde LogRecordSerDe

	currLsn    uint64
	flushedLsn uint64

	bufM sync.Mutex
	buf  []byte
	w    io.Writer
}

func NewBufferedLogManager(w io.Writer) *BufferedLogManager {
	return &BufferedLogManager{
		serde: NewDefaultSerDe(),
		buf:   make([]byte, 0, 1024*64),
		w:     w,
	}
}

func (l *BufferedLogManager) AppendLog(lr *LogRecord) pages.LSN {
	l.bufM.Lock()
	defer l.bufM.Unlock()

	l.currLsn++
	lr.Lsn = pages.LSN(l.currLsn)

	frame := l.serde.Serialize(lr)
	l.buf = appendFrame(l.buf, frame)
	return lr.Lsn
}

func (l *BufferedLogManager) Flush() error {
	l.bufM.Lock()
	defer l.bufM.Unlock()

	if len(l.buf) > 0 {
		if _, err := l.w.Write(l.buf); err != nil {
			return fmt.Errorf("log flush failed: %w", err)
		}
		l.buf = l.buf[:0]
	}

	atomic.StoreUint64(&l.flushedLsn, l.currLsn)
	return nil
}

func (l *BufferedLogManager) GetFlushedLSN() pages.LSN {
	return pages.LSN(atomic.LoadUint64(&l.flushedLsn))
}
