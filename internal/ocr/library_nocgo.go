//go:build !cgo

package ocr

import "errors"

const libraryBuilt = false

func newLibraryEngine(opts Options) (Engine, error) {
	return nil, &UnavailableError{
		Backend: BackendLibrary,
		Err:     errors.New("binary built without cgo; use the command backend"),
	}
}
