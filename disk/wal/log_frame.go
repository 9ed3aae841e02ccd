package wal

import (
	"encoding/binary"
	"errors"
)

var ErrCorruptLog = errors.New("corrupt log stream")

func appendFrame(dst, frame []byte) []byte {
	dst = binary.AppendUvarint(dst, uint64(len(frame)))
	return append(dst, frame...)
}

// ReadLogRecords parses a stream of length prefixed frames as produced by BufferedLogManager.
func ReadLogRecords(data []byte) ([]*LogRecord, error) {
	serde := NewDefaultSerDe()
	records := make([]*LogRecord, 0)

	offset := 0
	for offset < len(data) {
		frameLen, n := binary.Uvarint(data[offset:])
		if n <= 0 {
			return nil, ErrCorruptLog
		}
		offset += n

		if offset+int(frameLen) > len(data) {
			return nil, ErrCorruptLog
		}

		lr := LogRecord{}
		serde.Deserialize(data[offset:offset+int(frameLen)], &lr)
		records = append(records, &lr)
		offset += int(frameLen)
	}

	return records, nil
}
