package contact

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/arvocap/arvochat/internal/credentials"
)

// DefaultSheetName is the tab submissions are appended to.
const DefaultSheetName = "Contact Submissions"

// ErrNotConfigured is returned when no spreadsheet credentials are set.
var ErrNotConfigured = errors.New("google sheets not configured")

// SheetsSink appends submissions to a Google spreadsheet. Credentials are read
// from the runtime store on every call and the API client is rebuilt when
// they change.
type SheetsSink struct {
	creds      *credentials.Store
	sheetName  string
	clientOpts []option.ClientOption

	mu         sync.Mutex
	svc        *sheets.Service
	svcVersion uint64
}

// SheetsOption customizes a SheetsSink.
type SheetsOption func(*SheetsSink)

// WithClientOptions replaces service-account authentication with the given
// client options (emulators, tests).
func WithClientOptions(opts ...option.ClientOption) SheetsOption {
	return func(s *SheetsSink) { s.clientOpts = opts }
}

func NewSheetsSink(creds *credentials.Store, sheetName string, opts ...SheetsOption) *SheetsSink {
	if sheetName == "" {
		sheetName = DefaultSheetName
	}
	s := &SheetsSink{creds: creds, sheetName: sheetName}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *SheetsSink) Name() string { return "sheets" }

// SpreadsheetURL returns the browser URL of the configured spreadsheet.
func (s *SheetsSink) SpreadsheetURL() string {
	id := s.creds.Google().SpreadsheetID
	if id == "" {
		return ""
	}
	return "https://docs.google.com/spreadsheets/d/" + id
}

func (s *SheetsSink) dataRange() string   { return fmt.Sprintf("'%s'!A:D", s.sheetName) }
func (s *SheetsSink) headerRange() string { return fmt.Sprintf("'%s'!A1:D1", s.sheetName) }

func (s *SheetsSink) service() (*sheets.Service, credentials.Google, error) {
	g, version := s.creds.GoogleWithVersion()
	if g.SpreadsheetID == "" {
		return nil, g, fmt.Errorf("%w: spreadsheet id missing", ErrNotConfigured)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.svc != nil && s.svcVersion == version {
		return s.svc, g, nil
	}

	opts := s.clientOpts
	if opts == nil {
		if !g.Complete() {
			return nil, g, fmt.Errorf("%w: client email or private key missing", ErrNotConfigured)
		}
		data, err := g.ServiceAccountJSON()
		if err != nil {
			return nil, g, err
		}
		opts = []option.ClientOption{
			option.WithCredentialsJSON(data),
			option.WithScopes(sheets.SpreadsheetsScope),
		}
	}

	// the service outlives any single request
	svc, err := sheets.NewService(context.Background(), opts...)
	if err != nil {
		return nil, g, fmt.Errorf("creating sheets service: %w", err)
	}
	s.svc, s.svcVersion = svc, version
	return svc, g, nil
}

// Deliver appends one row. If the tab does not exist yet it is created with
// a header row and the append is retried once.
func (s *SheetsSink) Deliver(ctx context.Context, sub Submission) error {
	svc, g, err := s.service()
	if err != nil {
		return err
	}

	err = s.append(ctx, svc, g.SpreadsheetID, sub)
	if err == nil {
		return nil
	}
	if !isMissingSheet(err) {
		return friendly(err, g)
	}

	if err := s.createSheet(ctx, svc, g.SpreadsheetID); err != nil {
		return friendly(err, g)
	}
	if err := s.append(ctx, svc, g.SpreadsheetID, sub); err != nil {
		return friendly(err, g)
	}
	return nil
}

func (s *SheetsSink) append(ctx context.Context, svc *sheets.Service, id string, sub Submission) error {
	vr := &sheets.ValueRange{Values: [][]interface{}{toCells(sub.Row())}}
	_, err := svc.Spreadsheets.Values.Append(id, s.dataRange(), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	return err
}

func (s *SheetsSink) createSheet(ctx context.Context, svc *sheets.Service, id string) error {
	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: s.sheetName},
			},
		}},
	}
	if _, err := svc.Spreadsheets.BatchUpdate(id, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("adding sheet %q: %w", s.sheetName, err)
	}

	header := &sheets.ValueRange{Values: [][]interface{}{toCells(Header)}}
	if _, err := svc.Spreadsheets.Values.Update(id, s.headerRange(), header).
		ValueInputOption("RAW").
		Context(ctx).
		Do(); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	return nil
}

// List reads all submissions back, skipping the header row.
func (s *SheetsSink) List(ctx context.Context) ([]Row, error) {
	svc, g, err := s.service()
	if err != nil {
		return nil, err
	}
	resp, err := svc.Spreadsheets.Values.Get(g.SpreadsheetID, s.dataRange()).Context(ctx).Do()
	if err != nil {
		return nil, friendly(err, g)
	}

	rows := make([]Row, 0, len(resp.Values))
	for i, vals := range resp.Values {
		if i == 0 {
			continue
		}
		cells := make([]string, len(vals))
		for j, v := range vals {
			cells[j] = fmt.Sprint(v)
		}
		rows = append(rows, rowFromCells(cells))
	}
	return rows, nil
}

func toCells(vals []string) []interface{} {
	out := make([]interface{}, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}

func isMissingSheet(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusBadRequest {
		return true
	}
	return strings.Contains(err.Error(), "Unable to parse range")
}

func friendly(err error, g credentials.Google) error {
	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return err
	}
	switch gerr.Code {
	case http.StatusForbidden:
		return fmt.Errorf("permission denied: share the spreadsheet with %s as Editor: %w", g.ClientEmail, err)
	case http.StatusNotFound:
		return fmt.Errorf("spreadsheet %s not found or not accessible: %w", g.SpreadsheetID, err)
	}
	return err
}
