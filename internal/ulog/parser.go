// Package ulog reads the header and metadata of ULog telemetry files. It
// deliberately stops short of decoding logged sensor data: the review
// service only needs the info fields (vehicle hardware id, software
// versions) and an estimate of the flight duration.
package ulog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// Magic is the fixed 7-byte prefix of every ULog file.
var Magic = []byte{0x55, 0x4C, 0x6F, 0x67, 0x01, 0x12, 0x35}

// ErrCorrupt marks a file that carries the ULog magic but cannot be read
// to the end of its metadata: truncated, or structurally invalid.
var ErrCorrupt = errors.New("ulog: corrupt or truncated file")

// ULog message types, per the file format definition.
const (
	msgFlagBits     = 'B'
	msgFormat       = 'F'
	msgInfo         = 'I'
	msgInfoMulti    = 'M'
	msgParameter    = 'P'
	msgParamDefault = 'Q'
	msgAddLogged    = 'A'
	msgRemoveLogged = 'R'
	msgData         = 'D'
	msgLoggedString = 'L'
	msgTaggedString = 'C'
	msgSync         = 'S'
	msgDropout      = 'O'
)

// Meta is the metadata extracted from one log file.
type Meta struct {
	Version        uint8
	StartTimestamp uint64 // microseconds since boot

	// Info holds string-typed (char[N]) info messages keyed by field
	// name, e.g. sys_uuid, ver_hw, ver_sw.
	Info map[string]string

	// FlightTime spans the first to last logged data timestamp.
	FlightTime time.Duration
}

// VehicleUUID returns the vehicle hardware identifier, "" when the log
// carries none.
func (m *Meta) VehicleUUID() string { return m.Info["sys_uuid"] }

// ParseFile reads the metadata of the log file at path.
func ParseFile(path string) (*Meta, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ulog: open %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads ULog metadata from r. The reader is consumed to the end of
// the file; malformed input yields an error wrapping ErrCorrupt.
func Parse(r io.Reader) (*Meta, error) {
	header := make([]byte, 16)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("%w: short header", ErrCorrupt)
	}
	for i, b := range Magic {
		if header[i] != b {
			return nil, fmt.Errorf("%w: bad magic", ErrCorrupt)
		}
	}

	meta := &Meta{
		Version:        header[7],
		StartTimestamp: binary.LittleEndian.Uint64(header[8:16]),
		Info:           make(map[string]string),
	}

	var (
		msgHeader [3]byte
		minTS     uint64
		maxTS     uint64
		sawData   bool
	)
	for {
		if _, err := io.ReadFull(r, msgHeader[:]); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("%w: torn message header", ErrCorrupt)
		}
		size := binary.LittleEndian.Uint16(msgHeader[0:2])
		payload := make([]byte, size)
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, fmt.Errorf("%w: torn message body", ErrCorrupt)
		}

		switch msgHeader[2] {
		case msgInfo:
			key, value, ok := splitInfo(payload)
			if !ok {
				return nil, fmt.Errorf("%w: bad info message", ErrCorrupt)
			}
			if name, str, isString := stringInfo(key, value); isString {
				meta.Info[name] = str
			}
		case msgData:
			if len(payload) < 10 {
				return nil, fmt.Errorf("%w: short data message", ErrCorrupt)
			}
			// The first field of every logged message is its uint64
			// timestamp, directly after the 2-byte message id.
			ts := binary.LittleEndian.Uint64(payload[2:10])
			if !sawData || ts < minTS {
				minTS = ts
			}
			if ts > maxTS {
				maxTS = ts
			}
			sawData = true
		case msgFlagBits, msgFormat, msgInfoMulti, msgParameter, msgParamDefault,
			msgAddLogged, msgRemoveLogged, msgLoggedString, msgTaggedString,
			msgSync, msgDropout:
			// Not needed for review metadata.
		default:
			// Unknown message types are skipped, not fatal: the size
			// framing is enough to step over them, and newer logger
			// versions may add types this reader has no use for.
		}
	}

	if sawData && maxTS > minTS {
		meta.FlightTime = time.Duration(maxTS-minTS) * time.Microsecond
	}
	return meta, nil
}

// splitInfo decodes an info message payload: a length-prefixed "type name"
// key followed by the raw value.
func splitInfo(payload []byte) (key string, value []byte, ok bool) {
	if len(payload) < 1 {
		return "", nil, false
	}
	keyLen := int(payload[0])
	if len(payload) < 1+keyLen {
		return "", nil, false
	}
	return string(payload[1 : 1+keyLen]), payload[1+keyLen:], true
}

// stringInfo extracts char[N]-typed info values; other value types are not
// used by the review pipeline.
func stringInfo(key string, value []byte) (name, str string, ok bool) {
	typ, name, found := strings.Cut(key, " ")
	if !found || !strings.HasPrefix(typ, "char[") {
		return "", "", false
	}
	return name, string(value), true
}
