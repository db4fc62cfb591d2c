// Package api is the typed HTTP client for the ledger service. The sync
// layer and the agent both go through it; neither talks to the store
// directly.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mico/internal/core"
)

type Client struct {
	baseURL string
	hc      *http.Client
}

// New builds a client against baseURL. A nil httpClient gets a default with
// a 10 second timeout.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      httpClient,
	}
}

// APIError is a non-2xx response with the server's error message.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

type wireTransaction struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
	Category    string `json:"category"`
	Status      string `json:"status"`
}

func (w wireTransaction) toDomain() (core.Transaction, error) {
	d, err := core.ParseDate(w.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", w.ID, err)
	}
	return core.Transaction{
		ID:          w.ID,
		Date:        d,
		Description: w.Description,
		Amount:      core.Money{Cents: w.Amount},
		Category:    w.Category,
		Status:      core.Status(w.Status),
	}, nil
}

// ListTransactions fetches every transaction, newest first, plus the signed
// grand total in cents.
func (c *Client) ListTransactions(ctx context.Context) ([]core.Transaction, int64, error) {
	var resp struct {
		Transactions []wireTransaction   `json:"transactions"`
		TotalAmount  []map[string]string `json:"totalAmount"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/transactions", nil, &resp); err != nil {
		return nil, 0, err
	}

	txns := make([]core.Transaction, 0, len(resp.Transactions))
	for _, w := range resp.Transactions {
		t, err := w.toDomain()
		if err != nil {
			return nil, 0, err
		}
		txns = append(txns, t)
	}

	// The total rides in a single-element array of stringified cents.
	var total int64
	if len(resp.TotalAmount) > 0 {
		v, err := strconv.ParseInt(resp.TotalAmount[0]["totalAmount"], 10, 64)
		if err != nil {
			return nil, 0, fmt.Errorf("parse total amount: %w", err)
		}
		total = v
	}
	return txns, total, nil
}

func (c *Client) CreateTransaction(ctx context.Context, t core.Transaction) error {
	body := map[string]any{
		"date":        t.Date.UTC().Format(time.RFC3339),
		"description": t.Description,
		"amount":      t.Amount.Cents,
		"category":    t.Category,
		"status":      string(t.Status),
	}
	return c.do(ctx, http.MethodPost, "/api/transactions", body, nil)
}

// UpdateTransaction sends a partial update carrying only the given fields.
func (c *Client) UpdateTransaction(ctx context.Context, id string, updates []core.FieldUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	body := make(map[string]any, len(updates))
	for _, u := range updates {
		u.Encode(body)
	}
	return c.do(ctx, http.MethodPut, "/api/transactions/"+id, body, nil)
}

func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/transactions/"+id, nil, nil)
}

// QuerySummary runs a filtered aggregation server-side.
func (c *Client) QuerySummary(ctx context.Context, f core.QueryFilter) (core.Summary, error) {
	body := map[string]any{}
	if f.StartDate != nil {
		body["startDate"] = f.StartDate.UTC().Format(time.RFC3339)
	}
	if f.EndDate != nil {
		body["endDate"] = f.EndDate.UTC().Format(time.RFC3339)
	}
	if f.Category != nil {
		body["category"] = *f.Category
	}

	var resp struct {
		Summary struct {
			TotalAmount *int64 `json:"totalAmount"`
			Count       int    `json:"count"`
		} `json:"summary"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/transactions/query", body, &resp); err != nil {
		return core.Summary{}, err
	}
	return core.Summary{TotalAmount: resp.Summary.TotalAmount, Count: resp.Summary.Count}, nil
}

// do runs one request. Non-2xx responses become *APIError; a 404 also
// matches core.ErrNotFound so callers can branch on it.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var failure struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&failure)
		if failure.Error == "" {
			failure.Error = resp.Status
		}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%w: %s", core.ErrNotFound, failure.Error)
		}
		return &APIError{Status: resp.StatusCode, Message: failure.Error}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
