package sheets

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/jonathan/climatewash/internal/export"
)

func TestColumnName(t *testing.T) {
	assert.Equal(t, "A", ColumnName(1))
	assert.Equal(t, "K", ColumnName(11))
	assert.Equal(t, "Z", ColumnName(26))
	assert.Equal(t, "AA", ColumnName(27))
	assert.Equal(t, "AZ", ColumnName(52))
}

func TestCellRange(t *testing.T) {
	assert.Equal(t, "'Results'!K2", CellRange("Results", 2, 11))
	assert.Equal(t, "'Bob''s sheet'!A1", CellRange("Bob's sheet", 1, 1))
}

func newTestStore(t *testing.T, handler http.HandlerFunc) *Store {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store, err := New(context.Background(), "",
		option.WithEndpoint(server.URL+"/"),
		option.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)
	return store
}

func TestOpen_NotFound(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Requested entity was not found."}}`))
	})

	_, err := store.Open(context.Background(), "missing")
	assert.ErrorIs(t, err, export.ErrNotFound)
}

func TestOpen_SheetLookupAndValues(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.Contains(r.URL.Path, "/values/"):
			_, _ = w.Write([]byte(`{"range":"Results!A1:K2","values":[["Diagnosis Time","Content Type"],["2025/01/02 4:18:03", 45]]}`))
		default:
			_, _ = w.Write([]byte(`{"sheets":[{"properties":{"title":"Results","sheetId":0}}]}`))
		}
	})

	wb, err := store.Open(context.Background(), "sheet-id")
	require.NoError(t, err)

	_, err = wb.Sheet(context.Background(), "Other")
	assert.ErrorIs(t, err, export.ErrNotFound)

	sh, err := wb.Sheet(context.Background(), "Results")
	require.NoError(t, err)
	values, err := sh.Values(context.Background())
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Diagnosis Time", "Content Type"}, {"2025/01/02 4:18:03", "45"}}, values)
}

func TestInputOption(t *testing.T) {
	for col := 1; col <= len(export.Header); col++ {
		want := "RAW"
		if col == export.ColumnTimestamp || col == export.ColumnScore || col == export.ColumnViolationCount {
			want = "USER_ENTERED"
		}
		assert.Equal(t, want, InputOption(col), export.Header[col-1])
	}
}

func TestUpdateCell_ContentIsStoredRaw(t *testing.T) {
	options := map[string]string{}
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if strings.Contains(r.URL.Path, "/values/") {
			cell := r.URL.Path[strings.LastIndex(r.URL.Path, "!")+1:]
			options[cell] = r.URL.Query().Get("valueInputOption")
			_, _ = w.Write([]byte(`{}`))
			return
		}
		_, _ = w.Write([]byte(`{"sheets":[{"properties":{"title":"Results","sheetId":0}}]}`))
	})

	wb, err := store.Open(context.Background(), "sheet-id")
	require.NoError(t, err)
	sh, err := wb.Sheet(context.Background(), "Results")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, sh.UpdateCell(ctx, 2, export.ColumnTimestamp, "2025-01-02 04:18:03"))
	require.NoError(t, sh.UpdateCell(ctx, 2, 3, `=IMPORTXML("https://example.com","//a")`))
	require.NoError(t, sh.UpdateCell(ctx, 2, export.ColumnScore, "45"))
	require.NoError(t, sh.UpdateCell(ctx, 2, 11, "0123"))

	assert.Equal(t, map[string]string{
		"A2": "USER_ENTERED",
		"C2": "RAW",
		"G2": "USER_ENTERED",
		"K2": "RAW",
	}, options)
}
