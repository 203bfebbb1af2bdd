package ocr

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os/exec"
	"strconv"
	"strings"
)

// tsvColumns is the column count of tesseract's TSV output.
const tsvColumns = 12

// tsvWordLevel is the TSV "level" value for word rows.
const tsvWordLevel = 5

// CommandEngine runs the tesseract executable once per tile.
type CommandEngine struct {
	opts Options
}

// NewCommandEngine creates an engine that shells out to tesseract. The binary
// is resolved lazily so a missing install surfaces from Available.
func NewCommandEngine(opts Options) *CommandEngine {
	return &CommandEngine{opts: opts}
}

func (e *CommandEngine) Name() string { return BackendCommand }

// Available checks that the binary exists and has data for every language in
// lang ("eng+deu" style).
func (e *CommandEngine) Available(ctx context.Context, lang string) error {
	bin, err := LocateBinary(e.opts.BinaryPath)
	if err != nil {
		return err
	}

	out, err := e.command(ctx, bin, "--list-langs").CombinedOutput()
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &UnavailableError{Backend: e.Name(), Err: fmt.Errorf("%s --list-langs: %w", bin, err)}
	}

	installed := make(map[string]bool)
	for _, line := range strings.Split(string(out), "\n") {
		installed[strings.TrimSpace(line)] = true
	}
	for _, l := range strings.Split(lang, "+") {
		if l = strings.TrimSpace(l); l != "" && !installed[l] {
			return &UnavailableError{Backend: e.Name(), Err: fmt.Errorf("language data %q not installed", l)}
		}
	}
	return nil
}

// Version returns the first line of tesseract --version.
func (e *CommandEngine) Version(ctx context.Context) (string, error) {
	bin, err := LocateBinary(e.opts.BinaryPath)
	if err != nil {
		return "", err
	}
	out, err := e.command(ctx, bin, "--version").CombinedOutput()
	if err != nil {
		return "", err
	}
	line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
	return strings.TrimSpace(line), nil
}

// Recognize runs tesseract over every tile of the image.
func (e *CommandEngine) Recognize(ctx context.Context, in Input) ([]Word, error) {
	bin, err := LocateBinary(e.opts.BinaryPath)
	if err != nil {
		return nil, err
	}

	return recognizeTiled(ctx, in, e.opts, func(ctx context.Context, data []byte) ([]rawWord, bool, error) {
		args := []string{"stdin", "stdout"}
		if in.Language != "" {
			args = append(args, "-l", in.Language)
		}
		if e.opts.PageSegMode > 0 {
			args = append(args, "--psm", strconv.Itoa(e.opts.PageSegMode))
		}
		if e.opts.TessdataPrefix != "" {
			args = append(args, "--tessdata-dir", e.opts.TessdataPrefix)
		}
		args = append(args, "tsv")

		cmd := e.command(ctx, bin, args...)
		cmd.Stdin = bytes.NewReader(data)
		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			if errors.Is(err, exec.ErrNotFound) {
				return nil, false, &UnavailableError{Backend: e.Name(), Err: err}
			}
			if ctx.Err() != nil {
				return nil, false, ctx.Err()
			}
			msg := strings.TrimSpace(stderr.String())
			return nil, false, fmt.Errorf("tesseract: %w: %s", err, msg)
		}

		words, err := parseTSV(stdout.Bytes())
		return words, false, err
	})
}

func (e *CommandEngine) command(ctx context.Context, bin string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, bin, args...)
	if e.opts.TessdataPrefix != "" {
		cmd.Env = append(cmd.Environ(), "TESSDATA_PREFIX="+e.opts.TessdataPrefix)
	}
	return cmd
}

// parseTSV extracts word rows from tesseract TSV output. Rows with a negative
// confidence are layout rows and are skipped.
func parseTSV(data []byte) ([]rawWord, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return nil, err
		}
		return nil, errors.New("empty TSV response")
	}
	header := strings.Split(strings.TrimRight(sc.Text(), "\r"), "\t")
	if len(header) < tsvColumns || header[0] != "level" {
		return nil, fmt.Errorf("unexpected TSV header %q", sc.Text())
	}

	var words []rawWord
	lineNo := 1
	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", tsvColumns)
		if len(fields) < tsvColumns-1 {
			return nil, fmt.Errorf("TSV line %d: %d columns", lineNo, len(fields))
		}

		level, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("TSV line %d: level %q", lineNo, fields[0])
		}
		if level != tsvWordLevel {
			continue
		}

		var nums [4]int
		for i := range nums {
			if nums[i], err = strconv.Atoi(fields[6+i]); err != nil {
				return nil, fmt.Errorf("TSV line %d: column %d %q", lineNo, 7+i, fields[6+i])
			}
		}
		conf, err := strconv.ParseFloat(fields[10], 64)
		if err != nil {
			return nil, fmt.Errorf("TSV line %d: confidence %q", lineNo, fields[10])
		}
		if conf < 0 {
			continue
		}

		text := ""
		if len(fields) == tsvColumns {
			text = fields[11]
		}
		words = append(words, rawWord{
			Text:       text,
			Box:        image.Rect(nums[0], nums[1], nums[0]+nums[2], nums[1]+nums[3]),
			Confidence: conf,
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return words, nil
}
