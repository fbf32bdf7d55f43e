package scan

import "errors"

var (
	ErrEmptyFile     = errors.New("scan file is empty")
	ErrInvalidScanID = errors.New("scan id is required")
)
