package marker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	apperrors "github.com/gazelab/bluffing.eyes/internal/platform/errors"
	"github.com/gazelab/bluffing.eyes/internal/platform/timeouts"
)

// Marker is the wire form of one mirrored event. Critical markers travel
// without TsUnixNS so the device stamps them with its own clock.
type Marker struct {
	Name     string            `json:"name"`
	TsUnixNS *int64            `json:"ts_unix_ns,omitempty"`
	KV       map[string]string `json:"kv"`
}

// Client posts markers to one tracker endpoint.
type Client struct {
	endpoint Endpoint
	httpc    *http.Client
}

// NewClient builds a marker client for the endpoint.
func NewClient(endpoint Endpoint) *Client {
	return &Client{
		endpoint: endpoint,
		httpc:    &http.Client{Timeout: timeouts.MarkerRequest},
	}
}

// Endpoint returns the endpoint this client talks to.
func (c *Client) Endpoint() Endpoint {
	return c.endpoint
}

// Send posts one marker. Transport failures classify as unreachable and
// non-2xx responses as rejected; both belong to the delivery family.
func (c *Client) Send(ctx context.Context, mark Marker) error {
	body, err := json.Marshal(mark)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeEndpointRejected, "encode marker", err)
	}

	url := c.endpoint.BaseURL() + "/marker"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return apperrors.Wrap(apperrors.CodeEndpointUnreachable, "build marker request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeEndpointUnreachable, fmt.Sprintf("post marker to %s", c.endpoint), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.New(apperrors.CodeEndpointRejected, fmt.Sprintf("marker rejected by %s: status %d", c.endpoint, resp.StatusCode))
	}
	return nil
}
