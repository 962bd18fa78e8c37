package universe

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"pricecollector/internal/apperror"

	"go.uber.org/zap"
)

// DefaultColumn holds the symbol names in the input list.
const DefaultColumn = "name"

// FileSource reads the symbol universe from a comma-separated file with a header row.
type FileSource struct {
	Path   string
	Column string
	Logger *zap.Logger
}

// Symbols returns the deduplicated symbols of the list, in file order.
func (l *FileSource) Symbols(ctx context.Context) ([]string, error) {
	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	f, err := os.Open(l.Path)
	if err != nil {
		return nil, apperror.Wrapf(apperror.Configuration, "symbols.load", err, "open symbol list")
	}
	defer f.Close()

	ch := make(chan string, 100)
	set := NewSymbolSet()
	done := make(chan struct{})
	go func() {
		set.Collect(ch)
		close(done)
	}()

	streamErr := l.stream(ctx, f, ch)
	<-done
	if streamErr != nil {
		return nil, streamErr
	}

	if set.Len() == 0 {
		return nil, apperror.New(apperror.Configuration, "symbols.load",
			fmt.Sprintf("symbol list %s contains no symbols", l.Path))
	}

	logger.Info("loaded symbols", zap.String("path", l.Path), zap.Int("count", set.Len()))
	return set.GetAll(), nil
}

// stream parses r and sends every non-blank name into ch, closing ch when done.
func (l *FileSource) stream(ctx context.Context, r io.Reader, ch chan<- string) error {
	defer close(ch)

	column := l.Column
	if column == "" {
		column = DefaultColumn
	}

	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return apperror.New(apperror.Configuration, "symbols.load", "symbol list is empty")
	}
	if err != nil {
		return apperror.Wrapf(apperror.Configuration, "symbols.load", err, "read header")
	}

	idx := -1
	for i, h := range header {
		if strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) == column {
			idx = i
			break
		}
	}
	if idx < 0 {
		return apperror.New(apperror.Configuration, "symbols.load",
			fmt.Sprintf("symbol list has no %q column", column))
	}

	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return apperror.Wrapf(apperror.Configuration, "symbols.load", err, "read symbol list")
		}

		name := strings.TrimSpace(record[idx])
		if name == "" {
			continue
		}

		select {
		case ch <- name:
		case <-ctx.Done():
			return apperror.Wrap(apperror.Configuration, "symbols.load", ctx.Err())
		}
	}
}

// StaticSource serves a fixed list, deduplicated and trimmed.
type StaticSource []string

func (s StaticSource) Symbols(context.Context) ([]string, error) {
	set := NewSymbolSet()
	for _, sym := range s {
		if sym = strings.TrimSpace(sym); sym != "" {
			set.Add(sym)
		}
	}
	if set.Len() == 0 {
		return nil, apperror.New(apperror.Configuration, "symbols.load", "no symbols configured")
	}
	return set.GetAll(), nil
}
