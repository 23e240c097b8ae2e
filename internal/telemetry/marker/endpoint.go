// Package marker mirrors session events to tracker endpoints as annotation
// markers. Mirroring is fire-and-forget: a bounded queue per endpoint feeds a
// background sender, so a slow or absent tracker never stalls persistence.
package marker

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// DefaultPort is the tracker REST port assumed when an endpoint omits one.
const DefaultPort = 8080

// Endpoint addresses one tracker unit's REST API.
type Endpoint struct {
	Host string
	Port int
}

// ParseEndpoint reads "host:port" or a bare host, defaulting the port.
func ParseEndpoint(raw string) (Endpoint, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Endpoint{}, fmt.Errorf("tracker endpoint is empty")
	}

	host, portText, err := net.SplitHostPort(trimmed)
	if err != nil {
		return Endpoint{Host: trimmed, Port: DefaultPort}, nil
	}
	if host == "" {
		return Endpoint{}, fmt.Errorf("tracker endpoint %q has no host", raw)
	}
	port, err := strconv.Atoi(portText)
	if err != nil || port < 1 || port > 65535 {
		return Endpoint{}, fmt.Errorf("tracker endpoint %q has an invalid port", raw)
	}
	return Endpoint{Host: host, Port: port}, nil
}

// IsZero reports whether the endpoint is unset.
func (e Endpoint) IsZero() bool {
	return e.Host == ""
}

// String returns the endpoint as host:port.
func (e Endpoint) String() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// BaseURL returns the endpoint's HTTP base URL.
func (e Endpoint) BaseURL() string {
	return "http://" + e.String()
}
