package wal

import (
	"encoding/binary"
	"kovan/common"
	"kovan/disk/pages"

	"github.com/golang/snappy"
)

type LogRecordSerDe interface {
	Serialize(lr *LogRecord) []byte
	Deserialize(d []byte, lr *LogRecord)
}

type BinarySerDe struct {
}

var _ LogRecordSerDe = &BinarySerDe{}

func NewDefaultSerDe() *BinarySerDe {
	return &BinarySerDe{}
}

func (b *BinarySerDe) Serialize(lr *LogRecord) []byte {
	common.Assert(lr.T != TypeInvalid, "tried to serialize invalid log record type")

	res := make([]byte, 0, 64)
	res = append(res, byte(lr.T))
	res = binary.AppendUvarint(res, uint64(lr.TxnID))
	res = binary.AppendUvarint(res, uint64(lr.Lsn))
	res = binary.AppendUvarint(res, lr.PageID)
	res = binary.AppendUvarint(res, uint64(lr.Idx))

	res = binary.AppendUvarint(res, uint64(len(lr.Payload)))
	res = append(res, lr.Payload...)

	res = binary.AppendUvarint(res, uint64(len(lr.OldPayload)))
	res = append(res, lr.OldPayload...)

	return snappy.Encode(nil, res)
}

func (b *BinarySerDe) Deserialize(d []byte, lr *LogRecord) {
	data, err := snappy.Decode(nil, d)
	if err != nil {
		panic("corrupt log")
	}

	lr.T = LogRecordType(data[0])
	offset := 1
	uvarint := func() uint64 {
		res, n := binary.Uvarint(data[offset:])
		if n <= 0 {
			panic("corrupt log")
		}
		offset += n

		return res
	}

	lr.TxnID = TxnID(uvarint())
	lr.Lsn = pages.LSN(uvarint())
	lr.PageID = uvarint()
	lr.Idx = uint16(uvarint())

	payloadLen := uvarint()
	lr.Payload = data[offset : offset+int(payloadLen)]
	offset += int(payloadLen)

	oldPayloadLen := uvarint()
	lr.OldPayload = data[offset : offset+int(oldPayloadLen)]
}
