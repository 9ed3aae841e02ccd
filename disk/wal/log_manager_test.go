package wal

import (
	"bytes"
	"testing"

	"kovan/disk/pages"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBinarySerDe_Round_Trip(t *testing.T) {
	serde := NewDefaultSerDe()

	lr := NewPageUpdateLogRecord(7, 3, []byte("new value"), []byte("old value"), 42)
	lr.Lsn = 11

	got := LogRecord{}
	serde.Deserialize(serde.Serialize(lr), &got)

	assert.Equal(t, TypePageUpdate, got.Type())
	assert.Equal(t, TxnID(7), got.TxnID)
	assert.Equal(t, pages.LSN(11), got.Lsn)
	assert.Equal(t, uint64(42), got.PageID)
	assert.Equal(t, uint16(3), got.Idx)
	assert.Equal(t, []byte("new value"), got.Payload)
	assert.Equal(t, []byte("old value"), got.OldPayload)
}

func TestBinarySerDe_Should_Panic_On_Invalid_Records(t *testing.T) {
	serde := NewDefaultSerDe()

	assert.Panics(t, func() {
		serde.Serialize(&LogRecord{})
	})
}

func TestBufferedLogManager_Assigns_Increasing_Lsns(t *testing.T) {
	var out bytes.Buffer
	lm := NewBufferedLogManager(&out)

	first := lm.AppendLog(NewAllocPageLogRecord(1, 0))
	second := lm.AppendLog(NewAllocPageLogRecord(1, 1))

	assert.Equal(t, pages.LSN(1), first)
	assert.Equal(t, pages.LSN(2), second)
}

func TestBufferedLogManager_Flush_Advances_The_Flushed_Lsn(t *testing.T) {
	var out bytes.Buffer
	lm := NewBufferedLogManager(&out)

	lsn := lm.AppendLog(NewAllocPageLogRecord(3, 9))
	assert.Equal(t, pages.ZeroLSN, lm.GetFlushedLSN())
	assert.Zero(t, out.Len())

	require.NoError(t, lm.Flush())
	assert.Equal(t, lsn, lm.GetFlushedLSN())
	assert.NotZero(t, out.Len())
}

func TestBufferedLogManager_Flushed_Records_Can_Be_Read_Back(t *testing.T) {
	var out bytes.Buffer
	lm := NewBufferedLogManager(&out)

	lm.AppendLog(NewAllocPageLogRecord(1, 5))
	lm.AppendLog(NewPageUpdateLogRecord(1, 0, []byte("v"), nil, 5))
	lm.AppendLog(NewFreePageLogRecord(2, 5))
	require.NoError(t, lm.Flush())

	records, err := ReadLogRecords(out.Bytes())
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, TypeAllocPage, records[0].Type())
	assert.Equal(t, TypePageUpdate, records[1].Type())
	assert.Equal(t, TypeFreePage, records[2].Type())
	for i, lr := range records {
		assert.Equal(t, pages.LSN(i+1), lr.Lsn)
		assert.Equal(t, uint64(5), lr.PageID)
	}
}

func TestReadLogRecords_Rejects_Truncated_Streams(t *testing.T) {
	var out bytes.Buffer
	lm := NewBufferedLogManager(&out)

	lm.AppendLog(NewAllocPageLogRecord(1, 5))
	require.NoError(t, lm.Flush())

	_, err := ReadLogRecords(out.Bytes()[:out.Len()-1])
	assert.ErrorIs(t, err, ErrCorruptLog)
}
