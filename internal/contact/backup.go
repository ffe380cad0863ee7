package contact

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/xuri/excelize/v2"
)

// column widths for Name, Email, Issue, Timestamp
var backupWidths = []struct {
	col   string
	width float64
}{
	{"A", 20}, {"B", 30}, {"C", 50}, {"D", 20},
}

// BackupSink appends submissions to a local .xlsx workbook. Writes are
// read-modify-write and serialized within the process only.
type BackupSink struct {
	path  string
	sheet string

	mu sync.Mutex
}

// NewBackupSink writes to the DefaultSheetName tab of the workbook at path,
// whatever tab the spreadsheet sink is configured with.
func NewBackupSink(path string) *BackupSink {
	return &BackupSink{path: path, sheet: DefaultSheetName}
}

func (b *BackupSink) Name() string { return "backup" }

// Path returns the workbook location.
func (b *BackupSink) Path() string { return b.path }

func (b *BackupSink) Deliver(ctx context.Context, sub Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	f, err := b.open()
	if err != nil {
		return err
	}
	defer f.Close()

	rows, err := f.GetRows(b.sheet)
	if err != nil {
		return fmt.Errorf("reading backup rows: %w", err)
	}
	cell := fmt.Sprintf("A%d", len(rows)+1)
	values := toCells(sub.Row())
	if err := f.SetSheetRow(b.sheet, cell, &values); err != nil {
		return fmt.Errorf("writing backup row: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(b.path), 0o755); err != nil {
		return fmt.Errorf("creating backup directory: %w", err)
	}
	if err := f.SaveAs(b.path); err != nil {
		return fmt.Errorf("saving backup: %w", err)
	}
	return nil
}

// open loads the workbook, creating it (or the sheet) with a header row
// when missing.
func (b *BackupSink) open() (*excelize.File, error) {
	_, err := os.Stat(b.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		f := excelize.NewFile()
		if err := f.SetSheetName("Sheet1", b.sheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("naming backup sheet: %w", err)
		}
		if err := b.writeHeader(f); err != nil {
			f.Close()
			return nil, err
		}
		return f, nil
	case err != nil:
		return nil, fmt.Errorf("checking backup file: %w", err)
	}

	f, err := excelize.OpenFile(b.path)
	if err != nil {
		return nil, fmt.Errorf("opening backup: %w", err)
	}
	idx, err := f.GetSheetIndex(b.sheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("looking up backup sheet: %w", err)
	}
	if idx < 0 {
		if _, err := f.NewSheet(b.sheet); err != nil {
			f.Close()
			return nil, fmt.Errorf("adding backup sheet: %w", err)
		}
		if err := b.writeHeader(f); err != nil {
			f.Close()
			return nil, err
		}
	}
	return f, nil
}

func (b *BackupSink) writeHeader(f *excelize.File) error {
	header := toCells(Header)
	if err := f.SetSheetRow(b.sheet, "A1", &header); err != nil {
		return fmt.Errorf("writing backup header: %w", err)
	}
	for _, w := range backupWidths {
		if err := f.SetColWidth(b.sheet, w.col, w.col, w.width); err != nil {
			return fmt.Errorf("sizing backup column %s: %w", w.col, err)
		}
	}
	return nil
}

// List reads every submission from the workbook, skipping the header row.
// A missing file yields no rows.
func (b *BackupSink) List(ctx context.Context) ([]Row, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	f, err := excelize.OpenFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []Row{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("opening backup: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(b.sheet)
	if err != nil {
		return nil, fmt.Errorf("reading backup rows: %w", err)
	}
	out := make([]Row, 0, len(rows))
	for i, cells := range rows {
		if i == 0 {
			continue
		}
		out = append(out, rowFromCells(cells))
	}
	return out, nil
}
