package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"budgetboard/internal/core"
)

const (
	maxRecordBody = 16 << 10
	maxImportBody = 8 << 20
)

// transactionRequest is the body of POST /api/transactions.
type transactionRequest struct {
	Date     string `json:"date"`
	Amount   string `json:"amount"`
	Category string `json:"category"`
	Payer    string `json:"payer"`
}

func (t transactionRequest) record() core.RawRecord {
	return core.RawRecord{Row: 1, Date: t.Date, Amount: t.Amount, Category: t.Category, Payer: t.Payer}
}

// decodeTransaction reads one JSON object. Amounts may be sent as JSON
// numbers or strings.
func decodeTransaction(w http.ResponseWriter, r *http.Request) (transactionRequest, error) {
	var raw struct {
		Date     string          `json:"date"`
		Amount   json.RawMessage `json:"amount"`
		Category string          `json:"category"`
		Payer    string          `json:"payer"`
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRecordBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return transactionRequest{}, fmt.Errorf("invalid JSON body: %w", err)
	}
	if dec.More() {
		return transactionRequest{}, errors.New("invalid JSON body: more than one object")
	}

	amount := strings.TrimSpace(string(raw.Amount))
	if strings.HasPrefix(amount, `"`) {
		if err := json.Unmarshal(raw.Amount, &amount); err != nil {
			return transactionRequest{}, fmt.Errorf("invalid amount: %w", err)
		}
	}
	if amount == "null" {
		amount = ""
	}
	return transactionRequest{Date: raw.Date, Amount: amount, Category: raw.Category, Payer: raw.Payer}, nil
}

// parseBudget reads ideal and max from the query, falling back to the
// configured values for whichever is missing.
func parseBudget(r *http.Request, fallback core.Budget) (core.Budget, error) {
	q := r.URL.Query()
	ideal := strings.TrimSpace(q.Get("ideal"))
	maximum := strings.TrimSpace(q.Get("max"))
	if ideal == "" {
		ideal = fallback.Ideal.String()
	}
	if maximum == "" {
		maximum = fallback.Max.String()
	}
	b, err := core.NewBudget(ideal, maximum)
	if err != nil {
		return core.Budget{}, err
	}
	return b, b.Validate()
}

func isCSV(r *http.Request) bool {
	ct := strings.ToLower(r.Header.Get("Content-Type"))
	return ct == "" || strings.HasPrefix(ct, "text/csv") || strings.HasPrefix(ct, "text/plain")
}

func importBody(w http.ResponseWriter, r *http.Request) io.Reader {
	return http.MaxBytesReader(w, r.Body, maxImportBody)
}
