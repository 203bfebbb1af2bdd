package workbook

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	ErrSheetNotFound  = errors.New("sheet not found")
	ErrLegacyDisabled = errors.New("legacy .xls input requires the office bridge, which is disabled")
	ErrEncrypted      = errors.New("workbook is password protected")
	ErrPictureMissing = errors.New("picture not found at anchor")
)

// DocumentError reports a failure reading or writing a workbook. It is fatal
// for a run because no output can be produced.
type DocumentError struct {
	Path  string
	Sheet string
	Op    string
	Err   error
}

func (e *DocumentError) Error() string {
	if e.Sheet != "" {
		return fmt.Sprintf("%s %s [%s]: %v", e.Op, e.Path, e.Sheet, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }
