// Package txsource resolves queued transaction references to full signed
// transactions, the way the transaction service exposes them.
package txsource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.wheelz.io/wchain/types"
)

// ErrTransactionNotFound is returned when the source has no transaction with
// the requested id.
var ErrTransactionNotFound = errors.New("transaction not found")

// Source resolves a transaction reference to the full signed transaction.
type Source interface {
	GetByID(ctx context.Context, id string) (*types.VehicleTransaction, error)
}

// HTTPSource fetches transactions over the transaction service REST API.
type HTTPSource struct {
	baseURL string
	token   string
	client  *http.Client
}

var _ Source = (*HTTPSource)(nil)

// NewHTTPSource returns a Source fetching GET {baseURL}/transactions/{id}
// with the given bearer token.
func NewHTTPSource(baseURL, token string) *HTTPSource {
	return &HTTPSource{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: 20 * time.Second},
	}
}

func (s *HTTPSource) GetByID(ctx context.Context, id string) (*types.VehicleTransaction, error) {
	endpoint := fmt.Sprintf("%s/transactions/%s", s.baseURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrTransactionNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("transaction service returned %d: %s", resp.StatusCode, body)
	}
	tx := &types.VehicleTransaction{}
	if err := json.NewDecoder(resp.Body).Decode(tx); err != nil {
		return nil, fmt.Errorf("cannot decode transaction %s: %w", id, err)
	}
	return tx, nil
}

// Static is an in-process Source for full-payload topologies and tests.
type Static struct {
	lock sync.RWMutex
	txs  map[string]types.VehicleTransaction
}

var _ Source = (*Static)(nil)

// NewStatic returns an empty in-process source.
func NewStatic() *Static {
	return &Static{txs: make(map[string]types.VehicleTransaction)}
}

// Add registers a transaction under its id.
func (s *Static) Add(tx types.VehicleTransaction) {
	s.lock.Lock()
	s.txs[tx.ID] = tx
	s.lock.Unlock()
}

func (s *Static) GetByID(_ context.Context, id string) (*types.VehicleTransaction, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	tx, ok := s.txs[id]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	return &tx, nil
}
