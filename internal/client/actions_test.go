package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"protect-cli/pkg/models"
)

// seedSession puts the client straight into an authenticated state so
// action tests exercise only the executor.
func seedSession(c *ProtectClient, admin bool) {
	c.storeSession(&session{
		family:        FamilyUnifiOS,
		authenticated: true,
		loginTime:     c.now(),
		headers:       http.Header{"Cookie": []string{"TOKEN=session-jwt"}, "X-Csrf-Token": []string{"tok"}},
	})
	c.mu.Lock()
	c.isAdmin = admin
	c.adminKnown = true
	c.mu.Unlock()
}

func TestEnableRTSPIdempotent(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	addr, _ := hostPort(t, srv)
	c := New(ClientConfig{Address: addr})
	seedSession(c, true)

	device := cam("aa:bb:cc:dd:ee:01", "Porch", true)
	device.Channels = []models.Channel{
		{ID: 0, IsRTSPEnabled: true},
		{ID: 1, IsRTSPEnabled: true},
	}

	got, err := c.EnableRTSP(device)
	if err != nil {
		t.Fatalf("EnableRTSP() error = %v", err)
	}
	if requests.Load() != 0 {
		t.Errorf("network calls = %d, want 0 when every channel is already enabled", requests.Load())
	}
	if !got.AllChannelsRTSPEnabled() || len(got.Channels) != 2 {
		t.Errorf("EnableRTSP() = %+v, want the device unchanged", got)
	}
}

func TestEnableRTSPNonAdmin(t *testing.T) {
	var requests atomic.Int32
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	addr, _ := hostPort(t, srv)
	c := New(ClientConfig{Address: addr})
	seedSession(c, false)

	device := cam("aa:bb:cc:dd:ee:01", "Porch", true)
	device.Channels = []models.Channel{{ID: 0, IsRTSPEnabled: false}}

	got, err := c.EnableRTSP(device)
	if err != nil {
		t.Fatalf("EnableRTSP() error = %v", err)
	}
	if requests.Load() != 0 {
		t.Errorf("network calls = %d, want 0 for a non-admin session", requests.Load())
	}
	if got.Channels[0].IsRTSPEnabled {
		t.Error("non-admin EnableRTSP must return the device unchanged")
	}
}

func TestEnableRTSPNonCameraKind(t *testing.T) {
	c := New(ClientConfig{Address: "127.0.0.1:1"})
	seedSession(c, true)

	device := cam("aa:bb:cc:dd:ee:01", "Doorbell Chime", true)
	device.ModelKey = "chime"
	device.Channels = []models.Channel{{ID: 0, IsRTSPEnabled: false}}

	got, err := c.EnableRTSP(device)
	if err != nil {
		t.Fatalf("EnableRTSP() error = %v", err)
	}
	if got.Channels[0].IsRTSPEnabled {
		t.Error("non-camera device kinds must be returned unchanged")
	}
}

func TestEnableRTSPConfirmedByController(t *testing.T) {
	device := cam("aa:bb:cc:dd:ee:01", "Porch", true)
	device.Channels = []models.Channel{
		{ID: 0, IsRTSPEnabled: true},
		{ID: 1, IsRTSPEnabled: false},
	}

	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("controller saw method %s, want PATCH", r.Method)
		}
		var body struct {
			Channels []models.Channel `json:"channels"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		confirmed := device
		confirmed.Channels = body.Channels
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(confirmed)
	}))
	defer srv.Close()

	addr, _ := hostPort(t, srv)
	c := New(ClientConfig{Address: addr})
	seedSession(c, true)

	got, err := c.EnableRTSP(device)
	if err != nil {
		t.Fatalf("EnableRTSP() error = %v", err)
	}
	if !got.AllChannelsRTSPEnabled() {
		t.Errorf("EnableRTSP() = %+v, want every channel confirmed enabled", got)
	}
	// The caller's copy is controller-confirmed, not locally assumed: the
	// original device value stays untouched.
	if device.Channels[1].IsRTSPEnabled {
		t.Error("EnableRTSP must not mutate the caller's device in place")
	}
}

func TestEnableRTSPPermissionDenied(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	addr, _ := hostPort(t, srv)
	c := New(ClientConfig{Address: addr})
	seedSession(c, true)

	device := cam("aa:bb:cc:dd:ee:01", "Porch", true)
	device.Channels = []models.Channel{
		{ID: 0, IsRTSPEnabled: true},
		{ID: 1, IsRTSPEnabled: false},
	}

	got, err := c.EnableRTSP(device)
	if err != nil {
		t.Fatalf("EnableRTSP() on 403 should report best-known state, got error %v", err)
	}
	if !got.Channels[0].IsRTSPEnabled || got.Channels[1].IsRTSPEnabled {
		t.Errorf("EnableRTSP() = %+v, want the pre-call channel state back", got)
	}
	// 403 keeps the session: the credentials are fine, the role is not.
	if !c.Authenticated() {
		t.Error("permission denial must not clear the session")
	}
}

func TestUpdateCameraRequiresAdmin(t *testing.T) {
	c := New(ClientConfig{Address: "127.0.0.1:1"})
	seedSession(c, false)

	device := cam("aa:bb:cc:dd:ee:01", "Porch", true)
	if _, err := c.UpdateCamera(device, map[string]any{"name": "Front Porch"}); err != ErrNotAdmin {
		t.Errorf("UpdateCamera() error = %v, want ErrNotAdmin", err)
	}
}

func TestUpdateCameraConfirmed(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		confirmed := cam("aa:bb:cc:dd:ee:01", "Front Porch", true)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(confirmed)
	}))
	defer srv.Close()

	addr, _ := hostPort(t, srv)
	c := New(ClientConfig{Address: addr})
	seedSession(c, true)

	got, err := c.UpdateCamera(cam("aa:bb:cc:dd:ee:01", "Porch", true), map[string]any{"name": "Front Porch"})
	if err != nil {
		t.Fatalf("UpdateCamera() error = %v", err)
	}
	if got.Name != "Front Porch" {
		t.Errorf("UpdateCamera().Name = %q, want the controller-confirmed %q", got.Name, "Front Porch")
	}
}
