package workbook

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ironsheep/sheet-redact/internal/imaging"
)

// pictureEdit is a pending change to one picture. A nil data removes it.
type pictureEdit struct {
	anchor *pictureAnchor
	data   []byte
}

type contentTypesXML struct {
	XMLName   xml.Name          `xml:"http://schemas.openxmlformats.org/package/2006/content-types Types"`
	Defaults  []contentDefault  `xml:"Default"`
	Overrides []contentOverride `xml:"Override"`
}

type contentDefault struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type contentOverride struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type splice struct {
	start, end int
	text       []byte
}

// newPart is a part that does not exist in the source package.
type newPart struct {
	name string
	data []byte
}

// packageWriter applies picture edits to a copy of a package. Parts that
// are not edited are copied byte for byte.
type packageWriter struct {
	pkg      *packageReader
	changed  map[string][]byte
	added    []newPart
	dropped  map[string]bool
	names    map[string]bool
	newExts  map[string]string // extension -> content type
	rels     map[string][]relationship
	orphaned map[string]bool // media parts that may have lost their last reference
}

func newPackageWriter(pkg *packageReader) *packageWriter {
	names := make(map[string]bool, len(pkg.files))
	for name := range pkg.files {
		names[name] = true
	}
	return &packageWriter{
		pkg:      pkg,
		changed:  make(map[string][]byte),
		dropped:  make(map[string]bool),
		names:    names,
		newExts:  make(map[string]string),
		rels:     make(map[string][]relationship),
		orphaned: make(map[string]bool),
	}
}

// apply rewrites the drawings touched by edits.
func (w *packageWriter) apply(edits []*pictureEdit) error {
	byDrawing := make(map[string][]*pictureEdit)
	var drawings []string
	for _, e := range edits {
		p := e.anchor.Drawing
		if _, ok := byDrawing[p]; !ok {
			drawings = append(drawings, p)
		}
		byDrawing[p] = append(byDrawing[p], e)
	}
	sort.Strings(drawings)

	for _, p := range drawings {
		d := w.pkg.drawingFor(p)
		if d == nil {
			return fmt.Errorf("drawing %s not indexed", p)
		}
		if err := w.rewriteDrawing(d, byDrawing[p]); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	if err := w.collectMedia(); err != nil {
		return err
	}
	return w.updateContentTypes()
}

func (w *packageWriter) rewriteDrawing(d *drawingPart, edits []*pictureEdit) error {
	data, err := w.pkg.readPart(d.Path)
	if err != nil {
		return err
	}
	rels := append([]relationship(nil), d.Rels...)
	ids := make(map[string]bool, len(rels))
	relType := make(map[string]string, len(rels))
	for _, r := range rels {
		ids[r.ID] = true
		relType[r.ID] = r.Type
	}

	var (
		splices   []splice
		oldEmbeds []string
	)
	for _, e := range edits {
		a := e.anchor
		oldEmbeds = append(oldEmbeds, a.Embed)
		w.orphaned[a.Media] = true
		if e.data == nil {
			splices = append(splices, splice{start: a.start, end: a.end})
			continue
		}

		ext := mediaExtension(e.data, a.Media)
		name := w.mediaName(ext)
		w.added = append(w.added, newPart{name: name, data: e.data})
		id := nextRelID(ids)
		rels = append(rels, relationship{
			ID:     id,
			Type:   relType[a.Embed],
			Target: relativeTarget(path.Dir(d.Path), name),
		})
		splices = append(splices, splice{start: a.embedStart, end: a.embedEnd, text: []byte(id)})
	}

	data = applySplices(data, splices)

	kept := rels[:0]
	for _, r := range rels {
		if containsString(oldEmbeds, r.ID) && !referencesRelID(data, r.ID) {
			continue
		}
		kept = append(kept, r)
	}

	relsData, err := marshalPart(relationshipsXML{Relationships: kept})
	if err != nil {
		return err
	}
	w.changed[d.Path] = data
	w.changed[d.RelsPath] = relsData
	w.rels[d.RelsPath] = kept
	return nil
}

// collectMedia drops media parts that no relationship points to any more,
// so no copy of a replaced picture survives in the output.
func (w *packageWriter) collectMedia() error {
	if len(w.orphaned) == 0 {
		return nil
	}
	refs := make(map[string]int)
	for _, name := range w.pkg.relsNames() {
		rels, ok := w.rels[name]
		if !ok {
			var parsed relationshipsXML
			if err := w.pkg.decodePart(name, &parsed); err != nil {
				return err
			}
			rels = parsed.Relationships
		}
		dir := relsSourceDir(name)
		for _, r := range rels {
			if !r.external() {
				refs[resolvePartPath(dir, r.Target)]++
			}
		}
	}
	for media := range w.orphaned {
		if refs[media] == 0 {
			w.dropped[media] = true
		}
	}
	return nil
}

func (w *packageWriter) updateContentTypes() error {
	if len(w.newExts) == 0 && len(w.dropped) == 0 {
		return nil
	}
	var ct contentTypesXML
	if err := w.pkg.decodePart(partContentTypes, &ct); err != nil {
		return err
	}
	dirty := false

	have := make(map[string]bool, len(ct.Defaults))
	for _, d := range ct.Defaults {
		have[strings.ToLower(d.Extension)] = true
	}
	exts := make([]string, 0, len(w.newExts))
	for ext := range w.newExts {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	for _, ext := range exts {
		if !have[ext] {
			ct.Defaults = append(ct.Defaults, contentDefault{Extension: ext, ContentType: w.newExts[ext]})
			dirty = true
		}
	}

	overrides := ct.Overrides[:0]
	for _, o := range ct.Overrides {
		if w.dropped[strings.TrimPrefix(o.PartName, "/")] {
			dirty = true
			continue
		}
		overrides = append(overrides, o)
	}
	ct.Overrides = overrides

	if !dirty {
		return nil
	}
	data, err := marshalPart(ct)
	if err != nil {
		return err
	}
	w.changed[partContentTypes] = data
	return nil
}

// mediaName picks an unused part name for a new picture.
func (w *packageWriter) mediaName(ext string) string {
	for n := 1; ; n++ {
		name := fmt.Sprintf("xl/media/redacted%d%s", n, ext)
		if !w.names[name] {
			w.names[name] = true
			if ct := contentTypeFor(ext); ct != "" {
				w.newExts[strings.TrimPrefix(ext, ".")] = ct
			}
			return name
		}
	}
}

// write stores the edited package at output. The file is written under a
// temporary name in the same directory and renamed into place.
func (w *packageWriter) write(output string) (err error) {
	dir, base := filepath.Split(output)
	if dir == "" {
		dir = "."
	}
	ext := filepath.Ext(base)
	tmp, err := os.CreateTemp(dir, ".~"+strings.TrimSuffix(base, ext)+"-*"+ext)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	zw := zip.NewWriter(tmp)
	for _, f := range w.pkg.zr.File {
		if w.dropped[f.Name] {
			continue
		}
		data, ok := w.changed[f.Name]
		if !ok {
			if err := zw.Copy(f); err != nil {
				return fmt.Errorf("copy %s: %w", f.Name, err)
			}
			continue
		}
		if err := writeEntry(zw, f.Name, data, f.Modified); err != nil {
			return err
		}
	}
	for _, p := range w.added {
		if err := writeEntry(zw, p.name, p.data, time.Time{}); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), output)
}

func writeEntry(zw *zip.Writer, name string, data []byte, modified time.Time) error {
	hdr := &zip.FileHeader{Name: name, Method: zip.Deflate}
	if !modified.IsZero() {
		hdr.Modified = modified
	}
	fw, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := io.Copy(fw, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

// applySplices replaces byte ranges of data. Ranges must not overlap.
func applySplices(data []byte, splices []splice) []byte {
	sort.Slice(splices, func(i, j int) bool { return splices[i].start < splices[j].start })
	var buf bytes.Buffer
	buf.Grow(len(data))
	pos := 0
	for _, s := range splices {
		buf.Write(data[pos:s.start])
		buf.Write(s.text)
		pos = s.end
	}
	buf.Write(data[pos:])
	return buf.Bytes()
}

// referencesRelID reports whether any attribute in a part still carries id.
func referencesRelID(data []byte, id string) bool {
	return bytes.Contains(data, []byte(`"`+id+`"`)) || bytes.Contains(data, []byte(`'`+id+`'`))
}

func nextRelID(ids map[string]bool) string {
	for n := len(ids) + 1; ; n++ {
		id := fmt.Sprintf("rId%d", n)
		if !ids[id] {
			ids[id] = true
			return id
		}
	}
}

func marshalPart(v any) ([]byte, error) {
	data, err := xml.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append([]byte(xmlDeclaration), data...), nil
}

// mediaExtension names the encoding of data, falling back to the extension
// of the part it replaces.
func mediaExtension(data []byte, replaced string) string {
	if f, err := imaging.DetectFormat(data); err == nil {
		return f.Extension()
	}
	return strings.ToLower(path.Ext(replaced))
}

func contentTypeFor(ext string) string {
	return imaging.FormatFromExtension(ext).MIMEType()
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
