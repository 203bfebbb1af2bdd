package ocr

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
)

// commonInstallPaths lists where tesseract usually lives when it is not on
// $PATH.
func commonInstallPaths() []string {
	if runtime.GOOS == "windows" {
		paths := []string{
			`C:\Program Files\Tesseract-OCR\tesseract.exe`,
			`C:\Program Files (x86)\Tesseract-OCR\tesseract.exe`,
		}
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			paths = append(paths, filepath.Join(local, "Programs", "Tesseract-OCR", "tesseract.exe"))
		}
		return paths
	}
	return []string{
		"/usr/bin/tesseract",
		"/usr/local/bin/tesseract",
		"/opt/homebrew/bin/tesseract",
		"/opt/local/bin/tesseract",
		"/snap/bin/tesseract",
	}
}

// LocateBinary resolves the tesseract executable. An explicit path wins and
// must exist; otherwise $PATH is searched, then common install locations.
func LocateBinary(explicit string) (string, error) {
	if explicit != "" {
		if isExecutableFile(explicit) {
			return explicit, nil
		}
		if p, err := exec.LookPath(explicit); err == nil {
			return p, nil
		}
		return "", &UnavailableError{
			Backend: BackendCommand,
			Err:     fmt.Errorf("tesseract not found at %s", explicit),
		}
	}

	if p, err := exec.LookPath("tesseract"); err == nil {
		return p, nil
	}
	for _, p := range commonInstallPaths() {
		if isExecutableFile(p) {
			return p, nil
		}
	}
	return "", &UnavailableError{
		Backend: BackendCommand,
		Err:     errors.New("tesseract executable not found on PATH or in common install locations"),
	}
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
