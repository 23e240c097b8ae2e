// Package timeouts defines shared timeout constants used across the pipeline.
// Centralizing these values prevents drift between components and makes the
// durations discoverable.
package timeouts

import "time"

// MarkerRequest caps a single marker or control request to a tracker
// endpoint. Markers are time-sensitive, so this stays short.
const MarkerRequest = 1500 * time.Millisecond

// EndpointDial caps the wait time when dialing a tracker endpoint.
const EndpointDial = 2 * time.Second

// StorageAppend bounds one durable append so a wedged disk surfaces as an
// error instead of hanging the session.
const StorageAppend = 5 * time.Second

// Shutdown limits how long session seal waits for background senders to
// drain before handles are closed.
const Shutdown = 5 * time.Second
