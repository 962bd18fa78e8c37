package snapshot

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"unicode/utf8"

	"pricecollector/internal/apperror"

	"go.uber.org/zap"
)

// DefaultDelimiter separates cells in the persisted table.
const DefaultDelimiter = ';'

// FileStore keeps the snapshot table in a single delimited file.
type FileStore struct {
	path      string
	delimiter rune
	logger    *zap.Logger
}

func NewFileStore(path string, delimiter rune, logger *zap.Logger) *FileStore {
	if delimiter == 0 {
		delimiter = DefaultDelimiter
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{path: path, delimiter: delimiter, logger: logger}
}

func (s *FileStore) Path() string { return s.path }

// Load reads the table. A missing file yields an empty table; a file that
// exists but cannot be parsed is reported as STORE_CORRUPT.
func (s *FileStore) Load() (Table, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info("snapshot table not found, starting empty", zap.String("path", s.path))
		return Table{}, nil
	}
	if err != nil {
		return Table{}, apperror.Wrapf(apperror.StoreCorrupt, "store.load", err, "read %s", s.path)
	}

	t, err := s.decode(data)
	if err != nil {
		return Table{}, apperror.Wrapf(apperror.StoreCorrupt, "store.load", err, "parse %s", s.path)
	}

	s.logger.Debug("snapshot table loaded",
		zap.String("path", s.path),
		zap.Int("columns", len(t.Symbols)),
		zap.Int("rows", len(t.Rows)))
	return t, nil
}

func (s *FileStore) decode(data []byte) (Table, error) {
	if !utf8.Valid(data) {
		return Table{}, errors.New("content is not valid UTF-8")
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = s.delimiter
	r.FieldsPerRecord = 0 // every record must match the header width

	header, err := r.Read()
	if err != nil {
		return Table{}, fmt.Errorf("read header: %w", err)
	}
	if header[0] != TimeColumn {
		return Table{}, fmt.Errorf("first column is %q, want %q", header[0], TimeColumn)
	}

	seen := make(map[string]struct{}, len(header))
	for i, name := range header {
		if name == "" {
			return Table{}, fmt.Errorf("column %d has an empty name", i+1)
		}
		if _, dup := seen[name]; dup {
			return Table{}, fmt.Errorf("duplicate column %q", name)
		}
		seen[name] = struct{}{}
	}

	rows, err := r.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("read rows: %w", err)
	}

	return Table{
		Symbols: append([]string(nil), header[1:]...),
		Rows:    rows,
	}, nil
}

// Persist writes t to a temporary file next to the target and renames it
// into place, so an interrupted write leaves the previous table intact.
func (s *FileStore) Persist(t Table) error {
	if err := validate(t); err != nil {
		return apperror.Wrap(apperror.Persistence, "store.persist", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperror.Wrapf(apperror.Persistence, "store.persist", err, "create directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return apperror.Wrapf(apperror.Persistence, "store.persist", err, "create temp file")
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	bw := bufio.NewWriter(tmp)
	w := csv.NewWriter(bw)
	w.Comma = s.delimiter
	if err := w.Write(t.Header()); err != nil {
		return apperror.Wrapf(apperror.Persistence, "store.persist", err, "write header")
	}
	if err := w.WriteAll(t.Rows); err != nil {
		return apperror.Wrapf(apperror.Persistence, "store.persist", err, "write rows")
	}
	if err := bw.Flush(); err != nil {
		return apperror.Wrapf(apperror.Persistence, "store.persist", err, "flush")
	}
	if err := tmp.Sync(); err != nil {
		return apperror.Wrapf(apperror.Persistence, "store.persist", err, "sync")
	}
	if err := tmp.Close(); err != nil {
		return apperror.Wrapf(apperror.Persistence, "store.persist", err, "close temp file")
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		return apperror.Wrapf(apperror.Persistence, "store.persist", err, "replace %s", s.path)
	}
	committed = true

	syncDir(dir)

	s.logger.Debug("snapshot table persisted",
		zap.String("path", s.path),
		zap.Int("columns", len(t.Symbols)),
		zap.Int("rows", len(t.Rows)))
	return nil
}

// syncDir flushes the rename to disk where the platform allows it.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}

func validate(t Table) error {
	width := len(t.Symbols) + 1
	for i, row := range t.Rows {
		if len(row) != width {
			return fmt.Errorf("row %d has %d cells, want %d", i+1, len(row), width)
		}
	}
	return nil
}
