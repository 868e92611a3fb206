// Package httpclient builds the outbound HTTP clients used for the language
// model, the Sui node and the blob stores.
package httpclient

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Options configures a client.
type Options struct {
	Timeout time.Duration
	// DenyPrivate refuses connections that land on loopback, private or
	// link-local addresses.
	DenyPrivate bool
}

// New returns a traced client.
func New(opts Options) *http.Client {
	base := http.DefaultTransport.(*http.Transport).Clone()
	if opts.DenyPrivate {
		base.DialContext = dialPublic
	}
	return &http.Client{
		Timeout:   opts.Timeout,
		Transport: otelhttp.NewTransport(base),
	}
}

// dialPublic checks the address actually connected to, so DNS answers that
// point inside the network are caught too.
func dialPublic(ctx context.Context, network, addr string) (net.Conn, error) {
	dialer := &net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}
	conn, err := dialer.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}

	host, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
	ip := net.ParseIP(host)
	if ip == nil {
		conn.Close()
		return nil, fmt.Errorf("failed to parse remote IP for %q", addr)
	}
	if !allowed(ip) {
		conn.Close()
		return nil, fmt.Errorf("access to private IP %s is denied", ip)
	}
	return conn, nil
}

func allowed(ip net.IP) bool {
	return !ip.IsLoopback() && !ip.IsPrivate() && !ip.IsLinkLocalUnicast() && !ip.IsUnspecified()
}
