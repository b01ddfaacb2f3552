package prompt

import "errors"

var (
	// ErrSectionExists is returned when inserting a section whose name is taken and
	// replacement was disallowed.
	ErrSectionExists = errors.New("section already exists")

	// ErrCodecUnavailable is returned when a wire format has no registered codec,
	// e.g. YAML without importing pkg/prompt/yamlcodec.
	ErrCodecUnavailable = errors.New("codec unavailable")

	// ErrInvalidDocument is returned when interchange data cannot be decoded into a
	// builder: bad syntax, a non-mapping root, or fields of the wrong type.
	ErrInvalidDocument = errors.New("invalid prompt document")
)
