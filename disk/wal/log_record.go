package wal

import (
	"kovan/disk/pages"
)

// TxnID identifies the transaction a log record belongs to. The buffer pool core does not run
// transactions itself; higher layers stamp their own ids.
type TxnID uint64

type LogRecordType uint8

const (
	TypeInvalid LogRecordType = iota
	TypeAllocPage
	TypeFreePage
	TypePageUpdate
)

type LogRecord struct {
	T     LogRecordType
	TxnID TxnID
	Lsn   pages.LSN

	PageID uint64

	// for page update
	Idx        uint16
	Payload    []byte
	OldPayload []byte
}

func (l *LogRecord) Type() LogRecordType {
	return l.T
}

func NewAllocPageLogRecord(txnID TxnID, pageID uint64) *LogRecord {
	return &LogRecord{T: TypeAllocPage, TxnID: txnID, PageID: pageID}
}

func NewFreePageLogRecord(txnID TxnID, pageID uint64) *LogRecord {
	return &LogRecord{T: TypeFreePage, TxnID: txnID, PageID: pageID}
}

func NewPageUpdateLogRecord(txnID TxnID, idx uint16, payload, oldPayload []byte, pageID uint64) *LogRecord {
	return &LogRecord{T: TypePageUpdate, TxnID: txnID, Idx: idx, Payload: payload, OldPayload: oldPayload, PageID: pageID}
}
