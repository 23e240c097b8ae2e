package marker

import (
	"context"
	"log"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gazelab/bluffing.eyes/internal/platform/timeouts"
	"github.com/gazelab/bluffing.eyes/internal/telemetry/event"
)

// queueCapacity bounds each endpoint's send queue. A full queue drops the
// newest marker; a stale marker is as useless as a missing one.
const queueCapacity = 1000

type sender struct {
	label  string
	client *Client
	queue  chan Marker
	quit   chan struct{}
	done   chan struct{}
	drops  atomic.Uint64
}

func (s *sender) run() {
	defer close(s.done)
	for {
		select {
		case <-s.quit:
			return
		default:
		}
		select {
		case <-s.quit:
			return
		case mark := <-s.queue:
			ctx, cancel := context.WithTimeout(context.Background(), timeouts.MarkerRequest)
			if err := s.client.Send(ctx, mark); err != nil {
				log.Printf("deliver marker %s to %s: %v", mark.Name, s.label, err)
			}
			cancel()
		}
	}
}

// Mirror fans session events out to the configured tracker endpoints. Every
// endpoint gets its own queue and sender so one unreachable tracker cannot
// delay the other or the persistence path.
type Mirror struct {
	senders   []*sender
	sealed    atomic.Bool
	closeOnce sync.Once
}

// NewMirror starts one background sender per client. Zero clients yields a
// mirror that silently discards everything.
func NewMirror(clients ...*Client) *Mirror {
	m := &Mirror{}
	for _, client := range clients {
		if client == nil {
			continue
		}
		s := &sender{
			label:  client.Endpoint().String(),
			client: client,
			queue:  make(chan Marker, queueCapacity),
			quit:   make(chan struct{}),
			done:   make(chan struct{}),
		}
		m.senders = append(m.senders, s)
		go s.run()
	}
	return m
}

// Mirror enqueues the event for every endpoint without blocking. Critical
// kinds go out without host time so the device clock stamps them; everything
// else carries the wall clock sampled now.
func (m *Mirror) Mirror(evt event.Event) {
	if m == nil || len(m.senders) == 0 || m.sealed.Load() {
		return
	}

	mark := Marker{
		Name: string(evt.Kind),
		KV: map[string]string{
			"event_id": evt.EventID,
			"seq":      strconv.FormatUint(evt.Seq, 10),
		},
	}
	if !evt.Kind.Critical() {
		ts := time.Now().UnixNano()
		mark.TsUnixNS = &ts
	}

	for _, s := range m.senders {
		select {
		case s.queue <- mark:
		default:
			dropped := s.drops.Add(1)
			log.Printf("marker queue for %s saturated, dropping %s (%d dropped)", s.label, evt.Kind, dropped)
		}
	}
}

// Drops reports how many markers each endpoint has dropped so far.
func (m *Mirror) Drops() map[string]uint64 {
	if m == nil {
		return nil
	}
	counts := make(map[string]uint64, len(m.senders))
	for _, s := range m.senders {
		counts[s.label] = s.drops.Load()
	}
	return counts
}

// Close stops the senders and discards whatever is still queued. Markers are
// time-sensitive; anything unsent at seal time is stale.
func (m *Mirror) Close() {
	if m == nil {
		return
	}
	m.closeOnce.Do(func() {
		m.sealed.Store(true)
		for _, s := range m.senders {
			close(s.quit)
		}
		deadline := time.Now().Add(timeouts.Shutdown)
		for _, s := range m.senders {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				log.Printf("marker sender %s still stopping at seal deadline", s.label)
				continue
			}
			select {
			case <-s.done:
			case <-time.After(remaining):
				log.Printf("marker sender %s still stopping at seal deadline", s.label)
			}
		}
	})
}
