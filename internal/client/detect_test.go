package client

import (
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
)

func hostPort(t *testing.T, srv *httptest.Server) (string, int) {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parse server URL: %v", err)
	}
	_, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatalf("split server host: %v", err)
	}
	port, _ := strconv.Atoi(portStr)
	return u.Host, port
}

func TestProbeFamilyUnifiOS(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-CSRF-Token", "probe-token")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	addr, _ := hostPort(t, srv)
	c := New(ClientConfig{Address: addr})

	if got := c.probeFamily(); got != FamilyUnifiOS {
		t.Fatalf("probeFamily() = %v, want FamilyUnifiOS", got)
	}
	if !c.KeepaliveEnabled() {
		t.Error("detecting the unified OS should enable connection keepalive")
	}
}

func TestProbeFamilyLegacy(t *testing.T) {
	// Bare-address probe answers but carries no CSRF token.
	primary := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer primary.Close()

	legacy := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer legacy.Close()

	addr, _ := hostPort(t, primary)
	_, legacyPort := hostPort(t, legacy)

	c := New(ClientConfig{Address: addr})
	c.legacyPort = legacyPort

	if got := c.probeFamily(); got != FamilyLegacy {
		t.Fatalf("probeFamily() = %v, want FamilyLegacy", got)
	}
	if c.KeepaliveEnabled() {
		t.Error("legacy detection should not enable keepalive")
	}
}

func TestProbeFamilyUnknownIsRetryable(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	addr, port := hostPort(t, srv)
	srv.Close() // both probes now hit a dead port

	c := New(ClientConfig{Address: addr})
	c.legacyPort = port

	if got := c.probeFamily(); got != FamilyUnknown {
		t.Fatalf("probeFamily() = %v, want FamilyUnknown", got)
	}
	// Detection failure is not sticky: once the controller answers again,
	// the same client resolves a family.
	revived := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-CSRF-Token", "probe-token")
		w.WriteHeader(http.StatusOK)
	}))
	defer revived.Close()
	c.cfg.Address, _ = hostPort(t, revived)

	if got := c.probeFamily(); got != FamilyUnifiOS {
		t.Fatalf("probeFamily() after recovery = %v, want FamilyUnifiOS", got)
	}
}
