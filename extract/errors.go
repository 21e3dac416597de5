package extract

import "errors"

var (
	// ErrUnsupportedFormat is returned when file content is neither valid
	// CSV nor a JSON shape the extractor accepts. This is a caller error,
	// not a transient failure; retrying the same bytes will not help.
	ErrUnsupportedFormat = errors.New("unsupported or invalid file, provide CSV or JSON")
)
