package poller

import (
	"context"
	"strconv"

	drepo "SigmaSync/internal/domain/repository"
	xhttp "SigmaSync/pkg/http"
)

// HTTPSource fetches snapshots from the upstream snapshot endpoint:
// GET <url>?limit=N.
type HTTPSource struct {
	client *xhttp.Client
	url    string
}

func NewHTTPSource(client *xhttp.Client, url string) drepo.PullSource {
	return &HTTPSource{client: client, url: url}
}

func (s *HTTPSource) Fetch(ctx context.Context, limit int) ([]byte, error) {
	opts := &xhttp.RequestOptions{
		Method:  xhttp.MethodGet,
		URL:     s.url,
		Headers: map[string]string{"Accept": "application/json", "Cache-Control": "no-store"},
	}
	if limit > 0 {
		opts.QueryParams = map[string][]string{"limit": {strconv.Itoa(limit)}}
	}
	var body []byte
	if err := s.client.SendAndParse(ctx, opts, &body); err != nil {
		return nil, err
	}
	return body, nil
}
