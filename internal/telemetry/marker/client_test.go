package marker

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	apperrors "github.com/gazelab/bluffing.eyes/internal/platform/errors"
)

// newMarkerServer runs a capture endpoint that forwards raw marker bodies.
func newMarkerServer(t *testing.T) (*httptest.Server, chan []byte) {
	t.Helper()

	received := make(chan []byte, 16)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/marker" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var raw json.RawMessage
		if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		received <- raw
		w.Write([]byte("{}"))
	}))
	t.Cleanup(ts.Close)
	return ts, received
}

func endpointFor(t *testing.T, ts *httptest.Server) Endpoint {
	t.Helper()

	parsed, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatalf("parse test server url: %v", err)
	}
	endpoint, err := ParseEndpoint(parsed.Host)
	if err != nil {
		t.Fatalf("parse test server endpoint: %v", err)
	}
	return endpoint
}

func TestClientSendWireFormat(t *testing.T) {
	ts, received := newMarkerServer(t)
	client := NewClient(endpointFor(t, ts))

	hostNS := int64(1_700_000_000_123_456_789)
	mark := Marker{
		Name:     "ui.click",
		TsUnixNS: &hostNS,
		KV:       map[string]string{"event_id": "ev-000001", "seq": "1"},
	}
	if err := client.Send(context.Background(), mark); err != nil {
		t.Fatalf("send marker: %v", err)
	}

	var got map[string]json.RawMessage
	if err := json.Unmarshal(<-received, &got); err != nil {
		t.Fatalf("decode received marker: %v", err)
	}
	var name string
	if err := json.Unmarshal(got["name"], &name); err != nil || name != "ui.click" {
		t.Fatalf("unexpected name %s (%v)", got["name"], err)
	}
	var ts2 int64
	if err := json.Unmarshal(got["ts_unix_ns"], &ts2); err != nil || ts2 != hostNS {
		t.Fatalf("unexpected ts_unix_ns %s (%v)", got["ts_unix_ns"], err)
	}
	var kv map[string]string
	if err := json.Unmarshal(got["kv"], &kv); err != nil || kv["event_id"] != "ev-000001" {
		t.Fatalf("unexpected kv %s (%v)", got["kv"], err)
	}
}

func TestClientSendOmitsHostTimeWhenUnset(t *testing.T) {
	ts, received := newMarkerServer(t)
	client := NewClient(endpointFor(t, ts))

	mark := Marker{Name: "fix.flash_start", KV: map[string]string{"event_id": "ev-000002"}}
	if err := client.Send(context.Background(), mark); err != nil {
		t.Fatalf("send marker: %v", err)
	}

	var got map[string]json.RawMessage
	if err := json.Unmarshal(<-received, &got); err != nil {
		t.Fatalf("decode received marker: %v", err)
	}
	if _, present := got["ts_unix_ns"]; present {
		t.Fatalf("critical marker carried ts_unix_ns: %s", got["ts_unix_ns"])
	}
}

func TestClientSendUnreachableEndpoint(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	endpoint := endpointFor(t, ts)
	ts.Close()

	client := NewClient(endpoint)
	err := client.Send(context.Background(), Marker{Name: "ui.click"})
	if err == nil {
		t.Fatal("expected unreachable error")
	}
	if !apperrors.IsDelivery(err) {
		t.Fatalf("expected delivery class, got %v", err)
	}
	if !errorHasCode(err, apperrors.CodeEndpointUnreachable) {
		t.Fatalf("expected unreachable code, got %v", err)
	}
}

func TestClientSendRejectedEndpoint(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	t.Cleanup(ts.Close)

	client := NewClient(endpointFor(t, ts))
	err := client.Send(context.Background(), Marker{Name: "ui.click"})
	if err == nil {
		t.Fatal("expected rejected error")
	}
	if !errorHasCode(err, apperrors.CodeEndpointRejected) {
		t.Fatalf("expected rejected code, got %v", err)
	}
}

func errorHasCode(err error, code apperrors.Code) bool {
	domainErr, ok := err.(*apperrors.Error)
	return ok && domainErr.Code == code
}
