// Package extract reads symbol-dump files produced by an extraction
// pipeline: JSON Lines, one symbol record per line, in files named
// <artifact>.symbols.jsonl.
//
// The dump file is the unit of reindexing. Every record read from a
// dump carries the dump's path as its provenance, regardless of what
// the line itself claims, so removing that path from the index clears
// exactly the dump's symbols before fresh ones land.
package extract

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	symerrors "github.com/codenav/symdex/internal/errors"
	"github.com/codenav/symdex/internal/schema"
)

// DumpSuffix is the file name suffix identifying symbol-dump files.
const DumpSuffix = ".symbols.jsonl"

// maxLineSize bounds a single dump line. Symbol records are short; a
// line this long is corruption, not data.
const maxLineSize = 1 << 20

// Reader reads symbol-dump files. Blank lines are skipped; malformed
// lines and lines with an unrecognized kind are logged and skipped so
// one bad record never sinks a whole dump.
type Reader struct {
	logger *slog.Logger
}

// Option configures the reader.
type Option func(*Reader)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reader) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewReader creates a dump reader.
func NewReader(opts ...Option) *Reader {
	r := &Reader{logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FileResult is one dump file's parsed contents.
type FileResult struct {
	Path    string
	Symbols []schema.SourceSymbolInfo
}

// IsDump reports whether path names a symbol-dump file.
func IsDump(path string) bool {
	return strings.HasSuffix(path, DumpSuffix)
}

// ReadFile parses one dump file. The returned records all carry path
// as their provenance.
func (r *Reader) ReadFile(path string) ([]schema.SourceSymbolInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, symerrors.New(symerrors.ErrCodeDumpUnreadable,
			fmt.Sprintf("cannot open symbol dump %s", path), err)
	}
	defer f.Close()

	symbols := make([]schema.SourceSymbolInfo, 0, 64)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec schema.SourceSymbolInfo
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			r.logger.Warn("dump_line_malformed",
				slog.String("path", path),
				slog.Int("line", lineNo),
				slog.String("error", err.Error()))
			continue
		}
		if !rec.Kind.Valid() {
			r.logger.Warn("dump_line_unknown_kind",
				slog.String("path", path),
				slog.Int("line", lineNo),
				slog.String("fqn", rec.FQN),
				slog.String("kind", string(rec.Kind)))
			continue
		}

		rec.File = path
		symbols = append(symbols, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, symerrors.New(symerrors.ErrCodeDumpUnreadable,
			fmt.Sprintf("cannot read symbol dump %s", path), err)
	}

	return symbols, nil
}

// ListDumps returns the dump files under dir, recursively, in path
// order.
func ListDumps(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && IsDump(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, symerrors.New(symerrors.ErrCodeDumpUnreadable,
			fmt.Sprintf("cannot walk dump directory %s", dir), err)
	}
	sort.Strings(paths)
	return paths, nil
}

// ReadDir parses every dump file under dir, recursively, in path
// order. An unreadable dump is logged and skipped; only a failed walk
// aborts.
func (r *Reader) ReadDir(dir string) ([]FileResult, error) {
	paths, err := ListDumps(dir)
	if err != nil {
		return nil, err
	}

	results := make([]FileResult, 0, len(paths))
	for _, path := range paths {
		symbols, err := r.ReadFile(path)
		if err != nil {
			r.logger.Warn("dump_file_skipped",
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}
		results = append(results, FileResult{Path: path, Symbols: symbols})
	}
	return results, nil
}
