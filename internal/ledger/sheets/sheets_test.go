package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"budgetboard/internal/core"
	"budgetboard/internal/ledger"
	"budgetboard/internal/log"
)

func TestParseValues(t *testing.T) {
	values := [][]interface{}{
		{"日期", "金额", "分类", "支付人"},
		{"2024-01-05", "100", "Food", "Alice"},
		{"", "", "", ""},
		{"2024-01-06", 12.5, "Rent"},
	}
	recs, err := parseValues(values)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, core.RawRecord{Row: 2, Date: "2024-01-05", Amount: "100", Category: "Food", Payer: "Alice"}, recs[0])
	assert.Equal(t, core.RawRecord{Row: 4, Date: "2024-01-06", Amount: "12.5", Category: "Rent", Payer: ""}, recs[1])
}

func TestParseValues_EmptyAndMissingHeader(t *testing.T) {
	recs, err := parseValues(nil)
	require.NoError(t, err)
	assert.NotNil(t, recs)
	assert.Empty(t, recs)

	_, err = parseValues([][]interface{}{{"when", "amount", "category", "payer"}})
	assert.ErrorIs(t, err, ledger.ErrMissingColumn)
}

func TestRowValuesFollowsHeaderOrder(t *testing.T) {
	cols, err := ledger.MapHeader([]string{"payer", "note", "amount", "date", "category"})
	require.NoError(t, err)
	row := rowValues(cols, core.RawRecord{Date: "d", Amount: "a", Category: "c", Payer: "p"})
	assert.Equal(t, []any{"p", "", "a", "d", "c"}, row)
}

func TestNew_MissingSettings(t *testing.T) {
	_, err := New(context.Background(), Options{SheetName: "Ledger", CredentialsJSON: "{}"}, log.Discard())
	assert.Error(t, err)

	_, err = New(context.Background(), Options{SpreadsheetID: "id", SheetName: "Ledger"}, log.Discard())
	assert.ErrorContains(t, err, "missing service account credentials")

	_, err = New(context.Background(), Options{SpreadsheetID: "id", SheetName: "Ledger", CredentialsFile: "/non/existent.json"}, log.Discard())
	assert.ErrorContains(t, err, "read service account file")
}

// fakeSheets serves the two values endpoints the client uses.
func fakeSheets(t *testing.T, rows [][]any, appended *[][]any) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
			var body gsheet.ValueRange
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode append body: %v", err)
			}
			*appended = append(*appended, body.Values...)
			json.NewEncoder(w).Encode(map[string]any{
				"updates": map[string]any{"updatedRange": "Ledger!A3:D3"},
			})
		case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "1:1"):
			json.NewEncoder(w).Encode(map[string]any{"values": rows[:1]})
		case r.Method == http.MethodGet:
			json.NewEncoder(w).Encode(map[string]any{"values": rows})
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return NewWithService(svc, "sheet-id", "Ledger", log.Discard())
}

func TestClient_SnapshotAndAppend(t *testing.T) {
	var appended [][]any
	rows := [][]any{
		{"category", "payer", "date", "amount"},
		{"Food", "Alice", "2024-01-05", "100"},
	}
	c := fakeSheets(t, rows, &appended)

	recs, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Alice", recs[0].Payer)

	ref, err := c.Append(context.Background(), core.Transaction{
		Date:     core.NewDate(2024, 1, 6),
		Amount:   decimal.RequireFromString("7.25"),
		Category: "Fun",
		Payer:    "Bob",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ledger!A3:D3", ref)
	require.Len(t, appended, 1)
	assert.Equal(t, []any{"Fun", "Bob", "2024-01-06T00:00:00Z", "7.25"}, appended[0])
}
