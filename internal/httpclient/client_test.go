package httpclient

import (
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestAllowed(t *testing.T) {
	tests := []struct {
		ip   string
		want bool
	}{
		{"127.0.0.1", false},
		{"::1", false},
		{"10.1.2.3", false},
		{"192.168.0.10", false},
		{"172.16.5.4", false},
		{"169.254.169.254", false},
		{"0.0.0.0", false},
		{"8.8.8.8", true},
		{"2606:4700:4700::1111", true},
	}
	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			if got := allowed(net.ParseIP(tt.ip)); got != tt.want {
				t.Errorf("allowed(%s) = %v, want %v", tt.ip, got, tt.want)
			}
		})
	}
}

func TestNew(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	t.Run("loopback allowed by default", func(t *testing.T) {
		c := New(Options{Timeout: time.Second})
		resp, err := c.Get(srv.URL)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Errorf("status = %d", resp.StatusCode)
		}
		if c.Timeout != time.Second {
			t.Errorf("Timeout = %v", c.Timeout)
		}
	})

	t.Run("loopback denied", func(t *testing.T) {
		c := New(Options{Timeout: time.Second, DenyPrivate: true})
		_, err := c.Get(srv.URL)
		if err == nil || !strings.Contains(err.Error(), "denied") {
			t.Errorf("Get() error = %v, want private address denial", err)
		}
	})
}
