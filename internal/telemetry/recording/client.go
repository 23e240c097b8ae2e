// Package recording drives a tracker's recording API and journals control
// commands that could not be delivered, so the session record keeps the
// operator's intent even when a device is offline.
package recording

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/gazelab/bluffing.eyes/internal/platform/errors"
	"github.com/gazelab/bluffing.eyes/internal/platform/timeouts"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/marker"
)

// busyMessage is the fragment tracker firmware returns when a start hits a
// recording that was never stopped.
const busyMessage = "previous recording not completed"

// connectDelays spaces the attempts Connect makes before giving up.
var connectDelays = []time.Duration{
	time.Second,
	1500 * time.Millisecond,
	2 * time.Second,
}

// Status is the tracker's recording state.
type Status struct {
	Active bool `json:"active"`
}

// Client controls recordings on one tracker endpoint.
type Client struct {
	endpoint marker.Endpoint
	httpc    *http.Client
	journal  *Journal
}

// Option adjusts client behavior.
type Option func(*Client)

// WithJournal journals control commands that could not be delivered.
func WithJournal(journal *Journal) Option {
	return func(c *Client) { c.journal = journal }
}

// NewClient builds a recording client for the endpoint.
func NewClient(endpoint marker.Endpoint, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		httpc:    &http.Client{Timeout: timeouts.MarkerRequest},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the endpoint this client talks to.
func (c *Client) Endpoint() marker.Endpoint {
	return c.endpoint
}

// Connect verifies the endpoint answers its status route, retrying with
// fixed delays before giving up.
func (c *Client) Connect(ctx context.Context) error {
	attempts := len(connectDelays)
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		_, err := c.Status(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		log.Printf("connect %s attempt %d/%d: %v", c.endpoint, attempt, attempts, err)

		if attempt < attempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(connectDelays[attempt-1]):
			}
		}
	}
	return lastErr
}

// StartRecording starts a recording. A busy tracker still holding the
// previous recording is stopped once and the start retried.
func (c *Client) StartRecording(ctx context.Context) error {
	err := c.post(ctx, "/recording:start", map[string]string{"action": "START"})
	if err == nil {
		return nil
	}
	if !isBusy(err) {
		c.journalFallback("recording:start", err)
		return err
	}

	log.Printf("recording busy on %s, stopping previous recording", c.endpoint)
	if stopErr := c.post(ctx, "/recording:stop", struct{}{}); stopErr != nil {
		log.Printf("clear busy recording on %s: %v", c.endpoint, stopErr)
		c.journalFallback("recording:start", err)
		return err
	}
	if err := c.post(ctx, "/recording:start", map[string]string{"action": "START"}); err != nil {
		c.journalFallback("recording:start", err)
		return err
	}
	return nil
}

// StopRecording stops the active recording.
func (c *Client) StopRecording(ctx context.Context) error {
	if err := c.post(ctx, "/recording:stop", struct{}{}); err != nil {
		c.journalFallback("recording:stop", err)
		return err
	}
	return nil
}

// Status queries the tracker's recording state.
func (c *Client) Status(ctx context.Context) (Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint.BaseURL()+"/recording:status", nil)
	if err != nil {
		return Status{}, apperrors.Wrap(apperrors.CodeEndpointUnreachable, "build status request", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return Status{}, apperrors.Wrap(apperrors.CodeEndpointUnreachable, fmt.Sprintf("query status of %s", c.endpoint), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Status{}, apperrors.New(apperrors.CodeEndpointRejected, fmt.Sprintf("status rejected by %s: status %d", c.endpoint, resp.StatusCode))
	}
	var status Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return Status{}, apperrors.Wrap(apperrors.CodeEndpointRejected, "decode status response", err)
	}
	return status, nil
}

// DeviceTimeNS reads the tracker's clock in unix nanoseconds. Devices
// without a usable time route get an error; callers decide whether host
// time is an acceptable substitute.
func (c *Client) DeviceTimeNS(ctx context.Context) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint.BaseURL()+"/time", nil)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeEndpointUnreachable, "build time request", err)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeEndpointUnreachable, fmt.Sprintf("query time of %s", c.endpoint), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, apperrors.New(apperrors.CodeEndpointRejected, fmt.Sprintf("time rejected by %s: status %d", c.endpoint, resp.StatusCode))
	}
	var body struct {
		UnixTimeNS int64 `json:"unix_time_ns"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, apperrors.Wrap(apperrors.CodeEndpointRejected, "decode time response", err)
	}
	if body.UnixTimeNS <= 0 {
		return 0, apperrors.New(apperrors.CodeEndpointRejected, fmt.Sprintf("%s reported no usable device time", c.endpoint))
	}
	return body.UnixTimeNS, nil
}

// post sends one control command. Rejections keep the response status and
// message as metadata so callers can recognize the busy answer.
func (c *Client) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeRecordingControl, "encode control command", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint.BaseURL()+path, bytes.NewReader(body))
	if err != nil {
		return apperrors.Wrap(apperrors.CodeEndpointUnreachable, "build control request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeRecordingControl, fmt.Sprintf("post %s to %s", path, c.endpoint), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}
	message := responseMessage(resp.Body)
	return apperrors.WithMetadata(
		apperrors.CodeRecordingControl,
		fmt.Sprintf("%s rejected by %s: status %d", path, c.endpoint, resp.StatusCode),
		map[string]string{
			"status":  strconv.Itoa(resp.StatusCode),
			"message": message,
		},
	)
}

func (c *Client) journalFallback(command string, cause error) {
	if c.journal == nil {
		return
	}
	c.journal.Record(Entry{
		Command:  command,
		Endpoint: c.endpoint.String(),
		Detail:   cause.Error(),
	})
}

// isBusy recognizes the 400 response trackers return while the previous
// recording is still open.
func isBusy(err error) bool {
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) {
		return false
	}
	if appErr.Metadata["status"] != strconv.Itoa(http.StatusBadRequest) {
		return false
	}
	return strings.Contains(strings.ToLower(appErr.Metadata["message"]), busyMessage)
}

// responseMessage extracts the human-readable part of an error response,
// accepting {"message": ...}, {"error": ...}, or plain text.
func responseMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return strings.TrimSpace(string(raw))
}
