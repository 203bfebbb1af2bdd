package workbook

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"
)

// emuPerPixel converts drawing EMUs to pixels at 96 DPI.
const emuPerPixel = 9525

// Anchor kinds as they appear in drawing parts.
const (
	positionTwoCell  = "twoCell"
	positionOneCell  = "oneCell"
	positionAbsolute = "absolute"
)

const (
	partContentTypes = "[Content_Types].xml"
	xmlDeclaration   = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"
)

// marker is a cell corner in a drawing part. Col and Row are 0-based.
type marker struct {
	Col    int   `xml:"col"`
	ColOff int64 `xml:"colOff"`
	Row    int   `xml:"row"`
	RowOff int64 `xml:"rowOff"`
}

// pictureAnchor is one embedded picture of a sheet drawing.
type pictureAnchor struct {
	ID    string
	Sheet string
	Cell  string
	// Seq counts pictures anchored to the same cell, in drawing order.
	Seq         int
	Kind        string
	Positioning string
	From        marker
	// To is set for two-cell anchors only.
	To *marker
	// Cx and Cy are the explicit extent, zero when the part has none.
	Cx, Cy int64
	Descr  string

	Embed   string // relationship id of the blip
	Media   string // package path of the picture bytes
	Drawing string // package path of the owning drawing part

	// Byte ranges inside the drawing part: the whole anchor element and the
	// value of the blip's r:embed attribute.
	start, end           int
	embedStart, embedEnd int
}

func (a *pictureAnchor) offsetPixels() (int, int) {
	return int(a.From.ColOff / emuPerPixel), int(a.From.RowOff / emuPerPixel)
}

func (a *pictureAnchor) extentPixels() (int, int) {
	return int(a.Cx / emuPerPixel), int(a.Cy / emuPerPixel)
}

type xdrAnchor struct {
	EditAs string     `xml:"editAs,attr"`
	From   marker     `xml:"from"`
	To     *marker    `xml:"to"`
	Pos    *xdrPoint  `xml:"pos"`
	Ext    *xdrExtent `xml:"ext"`
	Pic    *xdrPic    `xml:"pic"`
}

type xdrPoint struct {
	X int64 `xml:"x,attr"`
	Y int64 `xml:"y,attr"`
}

type xdrExtent struct {
	Cx int64 `xml:"cx,attr"`
	Cy int64 `xml:"cy,attr"`
}

type xdrPic struct {
	CNvPr struct {
		Name  string `xml:"name,attr"`
		Descr string `xml:"descr,attr"`
	} `xml:"nvPicPr>cNvPr"`
	Ext *xdrExtent `xml:"spPr>xfrm>ext"`
}

type workbookXML struct {
	Sheets []struct {
		Name string `xml:"name,attr"`
		RID  string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships id,attr"`
	} `xml:"sheets>sheet"`
}

type relationshipsXML struct {
	XMLName       xml.Name       `xml:"http://schemas.openxmlformats.org/package/2006/relationships Relationships"`
	Relationships []relationship `xml:"Relationship"`
}

type relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

func (r relationship) external() bool {
	return strings.EqualFold(r.TargetMode, "External")
}

// drawingPart is a sheet drawing and the pictures it embeds.
type drawingPart struct {
	Path     string
	RelsPath string
	Rels     []relationship
	Pictures []*pictureAnchor
}

// packageReader gives access to the parts of an open workbook package.
type packageReader struct {
	zr    *zip.ReadCloser
	files map[string]*zip.File
	// drawings is keyed by sheet name.
	drawings map[string]*drawingPart
}

// openPackage opens the workbook at filePath and indexes the pictures of
// every sheet.
func openPackage(filePath string) (*packageReader, error) {
	zr, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, fmt.Errorf("open package: %w", err)
	}
	p := &packageReader{
		zr:       zr,
		files:    make(map[string]*zip.File, len(zr.File)),
		drawings: make(map[string]*drawingPart),
	}
	for _, f := range zr.File {
		p.files[f.Name] = f
	}
	if err := p.index(); err != nil {
		zr.Close()
		return nil, err
	}
	return p, nil
}

func (p *packageReader) Close() error {
	return p.zr.Close()
}

func (p *packageReader) index() error {
	var wb workbookXML
	if err := p.decodePart("xl/workbook.xml", &wb); err != nil {
		return err
	}
	var wbRels relationshipsXML
	if err := p.decodePart("xl/_rels/workbook.xml.rels", &wbRels); err != nil {
		return err
	}
	targets := make(map[string]string, len(wbRels.Relationships))
	for _, r := range wbRels.Relationships {
		targets[r.ID] = r.Target
	}

	for _, sheet := range wb.Sheets {
		target, ok := targets[sheet.RID]
		if !ok {
			continue
		}
		drawingPath, ok, err := p.sheetDrawingPath(resolvePartPath("xl", target))
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if _, ok := p.files[drawingPath]; !ok {
			continue
		}
		d, err := p.readDrawing(sheet.Name, drawingPath)
		if err != nil {
			return fmt.Errorf("%s: %w", drawingPath, err)
		}
		p.drawings[sheet.Name] = d
	}
	return nil
}

// sheetDrawingPath follows the sheet's relationships to its drawing part.
func (p *packageReader) sheetDrawingPath(sheetPath string) (string, bool, error) {
	relsPath := relsPathFor(sheetPath)
	if _, ok := p.files[relsPath]; !ok {
		return "", false, nil
	}
	var rels relationshipsXML
	if err := p.decodePart(relsPath, &rels); err != nil {
		return "", false, err
	}
	for _, r := range rels.Relationships {
		// vmlDrawing parts hold comment shapes, not pictures.
		if strings.HasSuffix(r.Type, "/drawing") && !r.external() {
			return resolvePartPath(path.Dir(sheetPath), r.Target), true, nil
		}
	}
	return "", false, nil
}

func (p *packageReader) readDrawing(sheet, drawingPath string) (*drawingPart, error) {
	d := &drawingPart{Path: drawingPath, RelsPath: relsPathFor(drawingPath)}
	if _, ok := p.files[d.RelsPath]; ok {
		var rels relationshipsXML
		if err := p.decodePart(d.RelsPath, &rels); err != nil {
			return nil, err
		}
		d.Rels = rels.Relationships
	}
	data, err := p.readPart(drawingPath)
	if err != nil {
		return nil, err
	}
	media := make(map[string]string, len(d.Rels))
	for _, r := range d.Rels {
		if !r.external() {
			media[r.ID] = resolvePartPath(path.Dir(drawingPath), r.Target)
		}
	}
	pics, err := parseDrawingPart(data, media)
	if err != nil {
		return nil, err
	}

	perCell := make(map[string]int)
	for i, a := range pics {
		a.Sheet = sheet
		a.Drawing = drawingPath
		a.ID = fmt.Sprintf("%s#%d", sheet, i+1)
		cell, err := excelize.CoordinatesToCellName(a.From.Col+1, a.From.Row+1)
		if err != nil {
			return nil, err
		}
		a.Cell = cell
		a.Seq = perCell[cell]
		perCell[cell]++
	}
	d.Pictures = pics
	return d, nil
}

func (p *packageReader) readPart(name string) ([]byte, error) {
	f, ok := p.files[name]
	if !ok {
		return nil, fmt.Errorf("missing part %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (p *packageReader) decodePart(name string, v any) error {
	data, err := p.readPart(name)
	if err != nil {
		return err
	}
	if err := xml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

// pictures returns every indexed picture keyed by ID.
func (p *packageReader) pictures() map[string]*pictureAnchor {
	out := make(map[string]*pictureAnchor)
	for _, d := range p.drawings {
		for _, a := range d.Pictures {
			out[a.ID] = a
		}
	}
	return out
}

// drawingFor returns the drawing part stored at partPath.
func (p *packageReader) drawingFor(partPath string) *drawingPart {
	for _, d := range p.drawings {
		if d.Path == partPath {
			return d
		}
	}
	return nil
}

// relsNames lists the relationship parts of the package in a stable order.
func (p *packageReader) relsNames() []string {
	var names []string
	for name := range p.files {
		if strings.HasSuffix(name, ".rels") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// relsPathFor returns the relationships part that belongs to partPath.
func relsPathFor(partPath string) string {
	dir, base := path.Split(partPath)
	return path.Join(dir, "_rels", base+".rels")
}

// relsSourceDir is the directory relationship targets in relsPath are
// resolved against.
func relsSourceDir(relsPath string) string {
	return path.Dir(path.Dir(relsPath))
}

// resolvePartPath resolves a relationship target against the directory of
// the part that owns it. Targets starting with "/" are package-absolute.
func resolvePartPath(baseDir, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return path.Clean(path.Join(baseDir, target))
}

// relativeTarget is the inverse of resolvePartPath for parts in the package.
func relativeTarget(baseDir, partPath string) string {
	from := strings.Split(path.Clean(baseDir), "/")
	to := strings.Split(path.Clean(partPath), "/")
	if baseDir == "" || baseDir == "." {
		from = nil
	}
	i := 0
	for i < len(from) && i < len(to)-1 && from[i] == to[i] {
		i++
	}
	parts := make([]string, 0, len(from)-i+len(to)-i)
	for range from[i:] {
		parts = append(parts, "..")
	}
	parts = append(parts, to[i:]...)
	return strings.Join(parts, "/")
}

var (
	blipTag   = regexp.MustCompile(`<(?:[A-Za-z_][\w.-]*:)?blip[\s/>]`)
	embedAttr = regexp.MustCompile(`\s(?:[A-Za-z_][\w.-]*:)?embed\s*=\s*(?:"([^"]*)"|'([^']*)')`)
)

// locateEmbed finds the r:embed value of the first blip in an anchor
// element and returns its byte range.
func locateEmbed(fragment []byte) (start, end int, ok bool) {
	loc := blipTag.FindIndex(fragment)
	if loc == nil {
		return 0, 0, false
	}
	tagEnd := bytes.IndexByte(fragment[loc[0]:], '>')
	if tagEnd < 0 {
		return 0, 0, false
	}
	m := embedAttr.FindSubmatchIndex(fragment[loc[0] : loc[0]+tagEnd])
	if m == nil {
		return 0, 0, false
	}
	start, end = m[2], m[3]
	if start < 0 {
		start, end = m[4], m[5]
	}
	return loc[0] + start, loc[0] + end, true
}

// parseDrawingPart walks the top-level anchors of a drawing part and keeps
// the pictures whose bytes live in the package. media maps relationship ids
// to part paths.
func parseDrawingPart(data []byte, media map[string]string) ([]*pictureAnchor, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var anchors []*pictureAnchor
	depth := 0
	for {
		offset := int(dec.InputOffset())
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			// Anchors are direct children of the wsDr root.
			if depth != 2 {
				continue
			}
			kind := anchorKind(t.Name.Local)
			if kind == "" {
				if err := dec.Skip(); err != nil {
					return nil, err
				}
				depth--
				continue
			}

			var raw xdrAnchor
			if err := dec.DecodeElement(&raw, &t); err != nil {
				return nil, err
			}
			depth--
			end := int(dec.InputOffset())
			if raw.Pic == nil {
				continue
			}
			es, ee, ok := locateEmbed(data[offset:end])
			if !ok {
				continue
			}
			embed := string(data[offset+es : offset+ee])
			mediaPath, ok := media[embed]
			if !ok {
				continue
			}
			a := toPictureAnchor(kind, raw)
			a.Embed, a.Media = embed, mediaPath
			a.start, a.end = offset, end
			a.embedStart, a.embedEnd = offset+es, offset+ee
			anchors = append(anchors, a)
		case xml.EndElement:
			depth--
		}
	}
	return anchors, nil
}

func anchorKind(local string) string {
	switch local {
	case "twoCellAnchor":
		return positionTwoCell
	case "oneCellAnchor":
		return positionOneCell
	case "absoluteAnchor":
		return positionAbsolute
	}
	return ""
}

func toPictureAnchor(kind string, raw xdrAnchor) *pictureAnchor {
	a := &pictureAnchor{
		Kind:        kind,
		Positioning: kind,
		From:        raw.From,
		Descr:       raw.Pic.CNvPr.Descr,
	}
	switch kind {
	case positionTwoCell:
		if raw.EditAs != "" {
			a.Positioning = raw.EditAs
		}
		a.To = raw.To
	case positionAbsolute:
		// Absolute pictures are reported against A1.
		if raw.Pos != nil {
			a.From = marker{ColOff: raw.Pos.X, RowOff: raw.Pos.Y}
		}
	}
	switch {
	case raw.Pic.Ext != nil && raw.Pic.Ext.Cx > 0 && raw.Pic.Ext.Cy > 0:
		a.Cx, a.Cy = raw.Pic.Ext.Cx, raw.Pic.Ext.Cy
	case raw.Ext != nil:
		a.Cx, a.Cy = raw.Ext.Cx, raw.Ext.Cy
	}
	return a
}
