package workbook

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/richardlehane/mscfb"

	"github.com/ironsheep/sheet-redact/internal/logging"
)

// Container identifies the physical format of a workbook file.
type Container int

const (
	ContainerUnknown Container = iota
	ContainerOOXML
	ContainerLegacy
)

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// Sniff reports the container of the workbook at path by content, not by
// extension. An OLE2 file holding an EncryptedPackage stream is a
// password-protected .xlsx and yields ErrEncrypted.
func Sniff(path string) (Container, error) {
	f, err := os.Open(path)
	if err != nil {
		return ContainerUnknown, err
	}
	defer f.Close()

	head := make([]byte, len(oleMagic))
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return ContainerUnknown, err
	}
	head = head[:n]

	switch {
	case bytes.HasPrefix(head, zipMagic):
		return ContainerOOXML, nil
	case bytes.Equal(head, oleMagic):
		return sniffCompound(f)
	}
	return ContainerUnknown, nil
}

func sniffCompound(r io.ReaderAt) (Container, error) {
	doc, err := mscfb.New(r)
	if err != nil {
		return ContainerUnknown, err
	}
	legacy := false
	for {
		entry, err := doc.Next()
		if err != nil {
			break
		}
		switch entry.Name {
		case "EncryptedPackage":
			return ContainerUnknown, ErrEncrypted
		case "Workbook", "Book":
			legacy = true
		}
	}
	if legacy {
		return ContainerLegacy, nil
	}
	return ContainerUnknown, nil
}

// IsLegacy reports whether path is a binary .xls workbook.
func IsLegacy(path string) bool {
	c, err := Sniff(path)
	return err == nil && c == ContainerLegacy
}

// Converter changes a workbook between formats. Convert writes the result
// into outDir and returns its path.
type Converter interface {
	Convert(ctx context.Context, src, outDir, format string) (string, error)
}

// SofficeConverter converts with a headless LibreOffice.
type SofficeConverter struct {
	Path string
}

// Convert runs soffice --headless --convert-to.
func (c SofficeConverter) Convert(ctx context.Context, src, outDir, format string) (string, error) {
	bin := c.Path
	if bin == "" {
		bin = "soffice"
	}
	cmd := exec.CommandContext(ctx, bin, "--headless", "--convert-to", format, "--outdir", outDir, src)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("%s: %w: %s", bin, err, strings.TrimSpace(stderr.String()))
	}

	out := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))+"."+format)
	if _, err := os.Stat(out); err != nil {
		return "", fmt.Errorf("%s produced no %s output", bin, format)
	}
	return out, nil
}

// LegacyStore handles .xls workbooks by converting them to .xlsx, working on
// the copy with an ExcelStore, and converting the result back.
type LegacyStore struct {
	inner     *ExcelStore
	converter Converter
	logger    *logging.Logger
}

// NewLegacyStore creates a LegacyStore.
func NewLegacyStore(conv Converter, logger *logging.Logger) *LegacyStore {
	if logger == nil {
		logger = logging.Discard()
	}
	return &LegacyStore{inner: NewExcelStore(logger), converter: conv, logger: logger}
}

func (s *LegacyStore) toModern(ctx context.Context, path string) (string, string, error) {
	dir, err := os.MkdirTemp("", "sheet-redact-*")
	if err != nil {
		return "", "", err
	}
	out, err := s.converter.Convert(ctx, path, dir, "xlsx")
	if err != nil {
		os.RemoveAll(dir)
		return "", "", &DocumentError{Path: path, Op: "convert to xlsx", Err: err}
	}
	s.logger.Debug("converted legacy workbook", "path", path, "copy", out)
	return out, dir, nil
}

func (s *LegacyStore) Extract(ctx context.Context, path string, sheets []string) ([]ImageRecord, error) {
	modern, dir, err := s.toModern(ctx, path)
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)
	return s.inner.Extract(ctx, modern, sheets)
}

func (s *LegacyStore) Open(ctx context.Context, path string) (Session, error) {
	modern, dir, err := s.toModern(ctx, path)
	if err != nil {
		return nil, err
	}
	inner, err := s.inner.Open(ctx, modern)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	return &legacySession{Session: inner, dir: dir, converter: s.converter}, nil
}

// legacySession saves to .xlsx in its work directory and converts back to
// the legacy format when the output asks for it.
type legacySession struct {
	Session
	dir       string
	converter Converter
}

func (s *legacySession) Save(ctx context.Context, output string) error {
	ext := strings.ToLower(filepath.Ext(output))
	if ext != ".xls" {
		return s.Session.Save(ctx, output)
	}

	// The converted source lives in s.dir, so the edited copy goes to a
	// directory of its own.
	outDir := filepath.Join(s.dir, "out")
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}
	modern := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(output), filepath.Ext(output))+".xlsx")
	if err := s.Session.Save(ctx, modern); err != nil {
		return err
	}
	converted, err := s.converter.Convert(ctx, modern, outDir, "xls")
	if err != nil {
		return &DocumentError{Path: output, Op: "convert to xls", Err: err}
	}
	return copyFile(converted, output)
}

func (s *legacySession) Close() error {
	err := s.Session.Close()
	os.RemoveAll(s.dir)
	return err
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Options selects how NewStore handles a file.
type Options struct {
	LegacyBridge bool
	SofficePath  string
	// Converter overrides the soffice converter, mainly for tests.
	Converter Converter
	Logger    *logging.Logger
}

// NewStore returns the Store for the workbook at path.
func NewStore(path string, opts Options) (Store, error) {
	c, err := Sniff(path)
	if err != nil {
		return nil, &DocumentError{Path: path, Op: "open", Err: err}
	}
	switch c {
	case ContainerOOXML:
		return NewExcelStore(opts.Logger), nil
	case ContainerLegacy:
		if !opts.LegacyBridge {
			return nil, &DocumentError{Path: path, Op: "open", Err: ErrLegacyDisabled}
		}
		conv := opts.Converter
		if conv == nil {
			conv = SofficeConverter{Path: opts.SofficePath}
		}
		return NewLegacyStore(conv, opts.Logger), nil
	}
	return nil, &DocumentError{Path: path, Op: "open", Err: errors.New("not a spreadsheet workbook")}
}
