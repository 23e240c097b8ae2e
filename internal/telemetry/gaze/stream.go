package gaze

import (
	"context"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gazelab/bluffing.eyes/internal/platform/timeouts"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/marker"
)

// DefaultPath is the websocket path trackers serve their gaze feed on.
const DefaultPath = "/gaze"

const (
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 5 * time.Second
)

// Stream consumes one tracker's websocket gaze feed and writes every decoded
// sample to the sink. The feed starts streaming on connect; no subscribe
// message is needed.
type Stream struct {
	endpoint marker.Endpoint
	path     string
	player   string
	sink     *Sink
	dialer   *websocket.Dialer
}

// StreamOption adjusts stream behavior.
type StreamOption func(*Stream)

// WithPath overrides the websocket path for firmwares that serve the feed
// elsewhere.
func WithPath(path string) StreamOption {
	return func(s *Stream) { s.path = path }
}

// NewStream builds a stream for one tracker endpoint, tagging samples with
// the player label.
func NewStream(endpoint marker.Endpoint, player string, sink *Sink, opts ...StreamOption) *Stream {
	s := &Stream{
		endpoint: endpoint,
		path:     DefaultPath,
		player:   player,
		sink:     sink,
		dialer:   &websocket.Dialer{HandshakeTimeout: timeouts.EndpointDial},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// URL returns the websocket URL the stream connects to.
func (s *Stream) URL() string {
	return "ws://" + s.endpoint.String() + s.path
}

// Run connects and consumes the feed until ctx is canceled, reconnecting
// after dial failures and dropped connections with doubling backoff from
// 0.5s up to a 5s cap. A successful connection resets the backoff.
func (s *Stream) Run(ctx context.Context) error {
	backoff := initialBackoff
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn, resp, err := s.dialer.DialContext(ctx, s.URL(), nil)
		if err == nil {
			backoff = initialBackoff
			s.consume(ctx, conn)
		} else {
			if resp != nil {
				resp.Body.Close()
			}
			if ctx.Err() == nil {
				log.Printf("dial gaze stream %s: %v (retrying in %s)", s.URL(), err, backoff)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// consume reads the connection until it fails or ctx is canceled. Messages
// that do not decode into a sample are skipped, matching the feed's mix of
// gaze data and status chatter.
func (s *Stream) consume(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	// ReadMessage has no context support; closing the connection unblocks it.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-watchDone:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Printf("gaze stream %s read: %v", s.endpoint, err)
			}
			return
		}

		sample, ok := decodeSample(message)
		if !ok {
			continue
		}
		sample.Player = s.player
		if err := s.sink.Write(ctx, sample); err != nil {
			log.Printf("persist gaze sample for %s: %v", s.player, err)
		}
	}
}
