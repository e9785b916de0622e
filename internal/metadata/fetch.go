package metadata

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Fetch failure modes, matching the deployment guide's troubleshooting
// section.
var (
	// ErrUnreachable is returned when the hosted metadata URL cannot be
	// retrieved.
	ErrUnreachable = errors.New("metadata url unreachable")

	// ErrHashMismatch is returned when the hosted document does not hash
	// to the recorded reference_hash.
	ErrHashMismatch = errors.New("hosted document does not match reference_hash")
)

// maxDocumentSize caps the hosted document read. The ITLX document is a
// few KB; anything near this limit is a hosting mistake.
const maxDocumentSize = 1 << 20

// Fetcher retrieves hosted metadata documents over HTTP.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a fetcher with the given timeout.
func NewFetcher(timeout time.Duration) *Fetcher {
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{client: &http.Client{Timeout: timeout}}
}

// Fetch retrieves the document at url and returns its raw bytes.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUnreachable, err)
	}
	if len(raw) > maxDocumentSize {
		return nil, fmt.Errorf("document at %s exceeds %d bytes", url, maxDocumentSize)
	}

	return raw, nil
}

// FetchAndVerify retrieves the document and checks it hashes to
// referenceHash. Returns the raw bytes on success.
func (f *Fetcher) FetchAndVerify(ctx context.Context, url string, referenceHash []byte) ([]byte, error) {
	raw, err := f.Fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	if !bytes.Equal(ReferenceHash(raw), referenceHash) {
		return nil, fmt.Errorf("%w: got %s", ErrHashMismatch, ReferenceHashBase64(raw))
	}

	return raw, nil
}
