package nitro

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultFetchTimeout = 30 * time.Second
	defaultMaxDocSize   = 1 << 20 // 1 MiB, documents are a few KiB in practice
)

// Fetcher retrieves raw attestation documents from an enclave's HTTP
// endpoint. Documents are fetched fresh per verification attempt and never
// cached.
type Fetcher struct {
	// Endpoint is the full URL of the raw document endpoint,
	// e.g. http://<ip:port>/attestation/raw.
	Endpoint string

	// Timeout bounds the whole fetch. Defaults to 30s.
	Timeout time.Duration

	// MaxSize caps the response body. Defaults to 1 MiB.
	MaxSize int64

	// Client overrides http.DefaultClient when set.
	Client *http.Client
}

// Fetch retrieves the document bytes, consuming the response in full
// before returning.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, error) {
	timeout := f.Timeout
	if timeout == 0 {
		timeout = defaultFetchTimeout
	}
	maxSize := f.MaxSize
	if maxSize == 0 {
		maxSize = defaultMaxDocSize
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("creating HTTP request: %w", err)
	}

	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling attestation endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("attestation endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	docBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading attestation document: %w", err)
	}
	if int64(len(docBytes)) > maxSize {
		return nil, fmt.Errorf("attestation document exceeds %d bytes", maxSize)
	}
	return docBytes, nil
}
