package blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultEpochs is how long Walrus keeps a blob when no value is configured.
const DefaultEpochs = 5

// WalrusConfig configures the Walrus HTTP store.
type WalrusConfig struct {
	PublisherURL  string
	AggregatorURL string
	Epochs        int
	HTTPClient    *http.Client
}

// Walrus stores blobs through a Walrus publisher and reads them back from an
// aggregator.
type Walrus struct {
	publisher  string
	aggregator string
	epochs     int
	httpClient *http.Client
}

var _ Store = (*Walrus)(nil)

// NewWalrus creates a Walrus store.
func NewWalrus(cfg WalrusConfig) (*Walrus, error) {
	if cfg.PublisherURL == "" || cfg.AggregatorURL == "" {
		return nil, errors.New("blob: walrus publisher and aggregator urls are required")
	}
	w := &Walrus{
		publisher:  strings.TrimSuffix(cfg.PublisherURL, "/"),
		aggregator: strings.TrimSuffix(cfg.AggregatorURL, "/"),
		epochs:     cfg.Epochs,
		httpClient: cfg.HTTPClient,
	}
	if w.epochs <= 0 {
		w.epochs = DefaultEpochs
	}
	if w.httpClient == nil {
		w.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return w, nil
}

type blobObject struct {
	BlobID string          `json:"blobId"`
	Size   json.RawMessage `json:"size"`
}

type storeResponse struct {
	NewlyCreated *struct {
		BlobObject blobObject `json:"blobObject"`
	} `json:"newlyCreated"`
	AlreadyCertified *struct {
		BlobID     string     `json:"blobId"`
		BlobObject blobObject `json:"blobObject"`
	} `json:"alreadyCertified"`
}

// Put uploads data for the configured number of epochs.
func (w *Walrus) Put(ctx context.Context, data []byte) (string, error) {
	u := w.publisher + "/v1/blobs?" + url.Values{"epochs": {strconv.Itoa(w.epochs)}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, u, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("blob: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("blob: walrus put failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("blob: read walrus response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("blob: walrus put returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var sr storeResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return "", fmt.Errorf("blob: decode walrus response: %w", err)
	}
	switch {
	case sr.NewlyCreated != nil && sr.NewlyCreated.BlobObject.BlobID != "":
		return sr.NewlyCreated.BlobObject.BlobID, nil
	case sr.AlreadyCertified != nil && sr.AlreadyCertified.BlobObject.BlobID != "":
		return sr.AlreadyCertified.BlobObject.BlobID, nil
	case sr.AlreadyCertified != nil && sr.AlreadyCertified.BlobID != "":
		return sr.AlreadyCertified.BlobID, nil
	}
	return "", fmt.Errorf("blob: unexpected walrus response: %s", strings.TrimSpace(string(body)))
}

// Get downloads a blob from the aggregator.
func (w *Walrus) Get(ctx context.Context, id string) ([]byte, error) {
	resp, err := w.do(ctx, http.MethodGet, id)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("blob: walrus get returned status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (w *Walrus) do(ctx context.Context, method, id string) (*http.Response, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	req, err := http.NewRequestWithContext(ctx, method, w.aggregator+"/v1/blobs/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, fmt.Errorf("blob: create request: %w", err)
	}
	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("blob: walrus %s failed: %w", strings.ToLower(method), err)
	}
	return resp, nil
}
