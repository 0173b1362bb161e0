package ingest

import "errors"

var (
	// ErrInvalidFormat marks an upload whose bytes are neither a native
	// log nor a zip archive.
	ErrInvalidFormat = errors.New("invalid file: not a ULog or zip archive")

	// ErrLegacyFormat is the specialized rejection for px4log uploads,
	// which belong on the legacy service.
	ErrLegacyFormat = errors.New("invalid file: this seems to be a px4log file, upload it to http://logs.uaventure.com instead")

	// ErrCorruptLog marks a well-typed file that failed metadata
	// parsing. Client fault.
	ErrCorruptLog = errors.New("failed to parse the file, it is most likely corrupt")

	// ErrIdentifierExhausted fires after repeated identifier collisions,
	// which indicates a storage problem rather than bad luck.
	ErrIdentifierExhausted = errors.New("could not allocate a free log identifier")
)
