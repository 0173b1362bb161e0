// Package ulogtest builds small synthetic ULog files for tests.
package ulogtest

import (
	"encoding/binary"
	"strconv"

	"flightreview/internal/ulog"
)

// Builder assembles a ULog byte stream message by message.
type Builder struct {
	buf []byte
}

// New starts a log with a valid header and the given start timestamp.
func New(startTimestamp uint64) *Builder {
	b := &Builder{}
	b.buf = append(b.buf, ulog.Magic...)
	b.buf = append(b.buf, 0x01) // version
	b.buf = binary.LittleEndian.AppendUint64(b.buf, startTimestamp)
	return b
}

func (b *Builder) message(msgType byte, payload []byte) *Builder {
	b.buf = binary.LittleEndian.AppendUint16(b.buf, uint16(len(payload)))
	b.buf = append(b.buf, msgType)
	b.buf = append(b.buf, payload...)
	return b
}

// FlagBits appends the mandatory flag-bits message.
func (b *Builder) FlagBits() *Builder {
	return b.message('B', make([]byte, 40))
}

// Info appends a char[N] info message, e.g. Info("sys_uuid", "0047...").
func (b *Builder) Info(name, value string) *Builder {
	key := []byte("char[" + strconv.Itoa(len(value)) + "] " + name)
	payload := append([]byte{byte(len(key))}, key...)
	payload = append(payload, value...)
	return b.message('I', payload)
}

// Dropout appends a dropout message with the given duration in ms.
func (b *Builder) Dropout(durationMS uint16) *Builder {
	return b.message('O', binary.LittleEndian.AppendUint16(nil, durationMS))
}

// Sync appends a sync message with its fixed magic payload.
func (b *Builder) Sync() *Builder {
	return b.message('S', []byte{0x2F, 0x73, 0x13, 0x20, 0x25, 0x0C, 0xBB, 0x12})
}

// Message appends a raw message of an arbitrary type.
func (b *Builder) Message(msgType byte, payload []byte) *Builder {
	return b.message(msgType, payload)
}

// Data appends a logged-data message with the given timestamp.
func (b *Builder) Data(msgID uint16, timestamp uint64) *Builder {
	payload := binary.LittleEndian.AppendUint16(nil, msgID)
	payload = binary.LittleEndian.AppendUint64(payload, timestamp)
	return b.message('D', payload)
}

// Bytes returns the assembled log.
func (b *Builder) Bytes() []byte { return b.buf }

// Truncated returns the log with its last n bytes cut off.
func (b *Builder) Truncated(n int) []byte {
	if n >= len(b.buf) {
		return nil
	}
	return b.buf[:len(b.buf)-n]
}
