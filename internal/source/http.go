package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"panorama-viewer/internal/tilecoord"
)

// HTTPSource fetches tile payloads from a URL template containing
// {z}, {x} and {y} placeholders.
type HTTPSource struct {
	template string
	client   *http.Client
}

// NewHTTPSource creates an HTTP source. A nil client gets a default
// with a 30 second timeout.
func NewHTTPSource(template string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPSource{template: template, client: client}
}

var _ Source = (*HTTPSource)(nil)

// Fetch downloads the payload for coord.
func (s *HTTPSource) Fetch(ctx context.Context, coord tilecoord.Coordinate) ([]byte, error) {
	url := expandTemplate(s.template, coord)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", coord, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch tile %s: %w", coord, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch tile %s: unexpected status %d", coord, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read tile %s: %w", coord, err)
	}
	return data, nil
}
