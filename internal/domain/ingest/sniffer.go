package ingest

import (
	"bytes"
	"strings"

	"flightreview/internal/ulog"
)

// FileKind classifies an upload by its leading bytes.
type FileKind int

const (
	KindUnknown FileKind = iota
	KindNativeLog
	KindArchive
)

// zipMagics are the local-file-header, end-of-central-directory and
// spanned-archive signatures of the zip family.
var zipMagics = [][]byte{
	{0x50, 0x4B, 0x03, 0x04},
	{0x50, 0x4B, 0x05, 0x06},
	{0x50, 0x4B, 0x07, 0x08},
}

// SniffLen is the number of leading bytes Sniff needs to classify a file.
var SniffLen = len(ulog.Magic)

// Sniff classifies a file by exact prefix match against the ULog magic or
// the first four bytes against the zip signatures.
func Sniff(prefix []byte) FileKind {
	if len(prefix) >= len(ulog.Magic) && bytes.Equal(prefix[:len(ulog.Magic)], ulog.Magic) {
		return KindNativeLog
	}
	if len(prefix) >= 4 {
		for _, m := range zipMagics {
			if bytes.Equal(prefix[:4], m) {
				return KindArchive
			}
		}
	}
	return KindUnknown
}

// RejectUnknown maps an unclassifiable upload to its rejection error,
// special-casing the known-obsolete px4log extension so the user gets an
// actionable message.
func RejectUnknown(filename string) error {
	if strings.HasSuffix(strings.ToLower(filename), ".px4log") {
		return ErrLegacyFormat
	}
	return ErrInvalidFormat
}

// acceptedLogExtension reports whether an entry/file extension is
// admitted from archives and bulk directories.
func acceptedLogExtension(ext string) bool {
	switch strings.ToLower(ext) {
	case ".ulg", ".ulog":
		return true
	}
	return false
}
