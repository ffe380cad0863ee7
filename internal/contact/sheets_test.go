package contact

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/arvocap/arvochat/internal/credentials"
)

// fakeSheets emulates the handful of Sheets v4 endpoints the sink uses.
type fakeSheets struct {
	mu          sync.Mutex
	sheetExists bool
	status      int // forced status for every call when non-zero
	rows        [][]string
	calls       []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	switch {
	case strings.HasSuffix(path, ":append"):
		f.calls = append(f.calls, "append")
	case strings.HasSuffix(path, ":batchUpdate"):
		f.calls = append(f.calls, "addSheet")
	case r.Method == http.MethodPut:
		f.calls = append(f.calls, "header")
	case r.Method == http.MethodGet:
		f.calls = append(f.calls, "get")
	}

	w.Header().Set("Content-Type", "application/json")
	if f.status != 0 {
		w.WriteHeader(f.status)
		io.WriteString(w, `{"error":{"code":`+strconv.Itoa(f.status)+`,"message":"forced"}}`)
		return
	}

	switch {
	case strings.HasSuffix(path, ":append"):
		if !f.sheetExists {
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"error":{"code":400,"message":"Unable to parse range: 'Contact Submissions'!A:D","status":"INVALID_ARGUMENT"}}`)
			return
		}
		f.rows = append(f.rows, decodeValues(r)...)
		io.WriteString(w, `{"spreadsheetId":"sheet-1"}`)
	case strings.HasSuffix(path, ":batchUpdate"):
		f.sheetExists = true
		io.WriteString(w, `{"spreadsheetId":"sheet-1"}`)
	case r.Method == http.MethodPut:
		f.rows = append([][]string{}, decodeValues(r)...)
		io.WriteString(w, `{"spreadsheetId":"sheet-1"}`)
	case r.Method == http.MethodGet:
		vals := make([][]string, len(f.rows))
		copy(vals, f.rows)
		json.NewEncoder(w).Encode(map[string]any{"range": "'Contact Submissions'!A1:D10", "values": vals})
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func decodeValues(r *http.Request) [][]string {
	var body struct {
		Values [][]string `json:"values"`
	}
	json.NewDecoder(r.Body).Decode(&body)
	return body.Values
}

func newFakeSheetsSink(t *testing.T, fake *fakeSheets) *SheetsSink {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	creds := credentials.New()
	creds.SetGoogle(credentials.Google{SpreadsheetID: "sheet-1"})
	return NewSheetsSink(creds, "", WithClientOptions(
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	))
}

func sampleSubmission() Submission {
	return Submission{Name: "A", Email: "a@b.com", Issue: "X", Timestamp: time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)}
}

func TestSheetsSink_CreatesMissingSheetAndRetries(t *testing.T) {
	fake := &fakeSheets{}
	sink := newFakeSheetsSink(t, fake)

	require.NoError(t, sink.Deliver(context.Background(), sampleSubmission()))

	assert.Equal(t, []string{"append", "addSheet", "header", "append"}, fake.calls)
	require.Len(t, fake.rows, 2)
	assert.Equal(t, Header, fake.rows[0])
	assert.Equal(t, []string{"A", "a@b.com", "X", "2025-02-03T04:05:06Z"}, fake.rows[1])
}

func TestSheetsSink_AppendsToExistingSheet(t *testing.T) {
	fake := &fakeSheets{sheetExists: true}
	sink := newFakeSheetsSink(t, fake)

	require.NoError(t, sink.Deliver(context.Background(), sampleSubmission()))
	assert.Equal(t, []string{"append"}, fake.calls)
}

func TestSheetsSink_PermissionDenied(t *testing.T) {
	fake := &fakeSheets{status: http.StatusForbidden}
	sink := newFakeSheetsSink(t, fake)

	err := sink.Deliver(context.Background(), sampleSubmission())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission denied")
	assert.Equal(t, []string{"append"}, fake.calls)
}

func TestSheetsSink_List(t *testing.T) {
	fake := &fakeSheets{sheetExists: true, rows: [][]string{
		Header,
		{"A", "a@b.com", "X", "2025-02-03T04:05:06Z"},
		{"B", "b@c.com"},
	}}
	sink := newFakeSheetsSink(t, fake)

	rows, err := sink.List(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].Name)
	assert.Equal(t, Row{Name: "B", Email: "b@c.com"}, rows[1])
}

func TestSheetsSink_NotConfigured(t *testing.T) {
	sink := NewSheetsSink(credentials.New(), "")
	err := sink.Deliver(context.Background(), sampleSubmission())
	assert.True(t, errors.Is(err, ErrNotConfigured))
	assert.Empty(t, sink.SpreadsheetURL())

	// spreadsheet id alone is not enough without a service account
	creds := credentials.New()
	creds.SetGoogle(credentials.Google{SpreadsheetID: "s"})
	sink = NewSheetsSink(creds, "")
	assert.ErrorIs(t, sink.Deliver(context.Background(), sampleSubmission()), ErrNotConfigured)
	assert.Equal(t, "https://docs.google.com/spreadsheets/d/s", sink.SpreadsheetURL())
}
