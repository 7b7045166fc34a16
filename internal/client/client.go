package client

import (
	"crypto/tls"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"protect-cli/pkg/models"
)

// Family identifies which controller firmware generation we are talking to.
type Family int

const (
	// FamilyUnknown means detection has not run or both probes failed.
	FamilyUnknown Family = iota
	// FamilyUnifiOS is the unified controller OS: cookie + CSRF token auth,
	// realtime updates socket, keepalive-friendly HTTP stack.
	FamilyUnifiOS
	// FamilyLegacy is the standalone NVR firmware reachable on a fixed
	// alternate port, authenticating with a bearer token. No realtime feed.
	FamilyLegacy
)

func (f Family) String() string {
	switch f {
	case FamilyUnifiOS:
		return "UniFi OS"
	case FamilyLegacy:
		return "Legacy NVR"
	default:
		return "Unknown"
	}
}

// Defaults for the fixed tuning knobs. All of them are fields on the client
// so tests can shrink the windows.
const (
	defaultLegacyPort      = 7443
	defaultRefreshInterval = 12 * time.Hour
	defaultErrorThreshold  = 5
	defaultErrorCooldown   = time.Minute
	defaultHeartbeatWindow = 30 * time.Second
	requestTimeout         = 30 * time.Second
)

// Hooks are the outbound notifications the client emits. All fields are
// optional; nil hooks are skipped. Hooks are invoked synchronously from
// whichever goroutine triggered them, so they must not block.
type Hooks struct {
	// Connected fires once, on the first successful bootstrap.
	Connected func(nvr models.NVR)
	// DeviceDiscovered fires for each managed camera newly present in a
	// bootstrap compared to the previous one.
	DeviceDiscovered func(cam models.Camera)
	// DeviceRemoved fires for each camera that disappeared from a bootstrap.
	DeviceRemoved func(cam models.Camera)
	// RoleChanged fires when the authenticated user's admin status flips
	// between bootstraps. It does not fire on the first bootstrap.
	RoleChanged func(admin bool)
	// Update fires for every decoded message from the realtime feed.
	Update func(upd models.Update)
}

// ClientConfig carries everything needed to reach a controller.
type ClientConfig struct {
	// Address is the controller's host or host:port, without scheme.
	Address  string
	Username string
	Password string
	Hooks    Hooks
	// Logger defaults to a nop logger when nil.
	Logger *zap.Logger
}

// ProtectClient talks to a single controller. One instance per controller;
// all methods are safe for concurrent use.
type ProtectClient struct {
	http *resty.Client
	cfg  ClientConfig
	log  *zap.Logger
	gov  *governor
	now  func() time.Time

	// loginMu serializes authentication so concurrent callers cannot race
	// an in-flight login.
	loginMu sync.Mutex

	// mu guards the session, snapshot and derived state below.
	mu         sync.Mutex
	session    *session
	bootstrap  *models.Bootstrap
	isAdmin    bool
	adminKnown bool
	connected  bool

	// listenerMu guards the realtime listener handle.
	listenerMu sync.Mutex
	listener   *eventListener

	// Tuning knobs, overridable in tests.
	legacyPort      int
	refreshInterval time.Duration
	heartbeatWindow time.Duration

	// keepalive mirrors the connection-reuse mode chosen at detection
	// time. Guarded by mu.
	keepalive bool
}

// New builds a client for the controller at cfg.Address. No network traffic
// happens until the first operation.
func New(cfg ClientConfig) *ProtectClient {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := resty.New()
	r.SetHeader("Content-Type", "application/json")
	r.SetHeader("Accept", "application/json")
	r.SetTimeout(requestTimeout)

	// Controllers ship self-signed certificates; verification stays off for
	// every call, including the realtime socket.
	r.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})

	// Session headers are managed explicitly per request; an implicit jar
	// would let stale cookies outlive a cleared session.
	r.SetCookieJar(nil)

	// Until detection proves we are on the unified OS, assume the embedded
	// HTTP stack mishandles connection reuse.
	r.SetCloseConnection(true)

	return &ProtectClient{
		http:            r,
		cfg:             cfg,
		log:             log,
		gov:             newGovernor(defaultErrorThreshold, defaultErrorCooldown),
		now:             time.Now,
		session:         &session{},
		legacyPort:      defaultLegacyPort,
		refreshInterval: defaultRefreshInterval,
		heartbeatWindow: defaultHeartbeatWindow,
	}
}

// Address returns the configured controller address.
func (c *ProtectClient) Address() string {
	return c.cfg.Address
}

// baseURL returns the HTTPS origin for the given family. The legacy family
// lives on a fixed alternate port of the same host.
func (c *ProtectClient) baseURL(f Family) string {
	if f == FamilyLegacy {
		host, _, err := net.SplitHostPort(c.cfg.Address)
		if err != nil {
			host = c.cfg.Address
		}
		return fmt.Sprintf("https://%s", net.JoinHostPort(host, fmt.Sprint(c.legacyPort)))
	}
	return "https://" + c.cfg.Address
}

func (c *ProtectClient) authURL(f Family) string {
	if f == FamilyLegacy {
		return c.baseURL(f) + "/api/auth"
	}
	return c.baseURL(f) + "/api/auth/login"
}

func (c *ProtectClient) bootstrapURL(f Family) string {
	if f == FamilyLegacy {
		return c.baseURL(f) + "/api/bootstrap"
	}
	return c.baseURL(f) + "/proxy/protect/api/bootstrap"
}

func (c *ProtectClient) cameraURL(f Family, id string) string {
	if f == FamilyLegacy {
		return c.baseURL(f) + "/api/cameras/" + id
	}
	return c.baseURL(f) + "/proxy/protect/api/cameras/" + id
}

// eventsURL points at the realtime updates socket. Only the unified OS
// family exposes one. lastUpdateID resumes the feed from the bootstrap's
// snapshot point.
func (c *ProtectClient) eventsURL(lastUpdateID string) string {
	u := "wss://" + c.cfg.Address + "/proxy/protect/ws/updates"
	if lastUpdateID != "" {
		u += "?lastUpdateId=" + url.QueryEscape(lastUpdateID)
	}
	return u
}

// do routes one outbound call through the transport governor: throttled
// calls are rejected before touching the network, and the outcome feeds the
// consecutive-error count. Failures are classified per the error taxonomy
// here so call sites stay small.
func (c *ProtectClient) do(op string, fn func() error) error {
	if !c.gov.allow() {
		c.log.Warn("call rejected by transport governor",
			zap.String("op", op),
			zap.Int("consecutive_errors", c.gov.consecutiveErrors()),
		)
		return ErrThrottled
	}

	err := fn()
	if err == nil {
		c.gov.success()
		return nil
	}
	c.gov.failure()

	switch {
	case isAuthError(err):
		c.log.Error("controller rejected credentials, clearing session",
			zap.String("op", op), zap.Error(err))
		c.clearSession()
	case isPermissionError(err):
		// The session itself is fine; the account lacks the capability.
		c.log.Warn("controller denied operation: insufficient permissions",
			zap.String("op", op), zap.Error(err))
	case isDecodeError(err):
		// An otherwise reachable host handing back garbage usually means
		// the session is stale. Clearing it forces a clean re-login.
		c.log.Warn("unintelligible controller response, clearing session",
			zap.String("op", op), zap.Error(err))
		c.clearSession()
	default:
		c.log.Warn("controller call failed",
			zap.String("op", op), zap.Error(err))
	}
	return err
}

// KeepaliveEnabled reports whether detection switched the HTTP transport to
// connection reuse (unified OS only).
func (c *ProtectClient) KeepaliveEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.keepalive
}

// ConsecutiveErrors exposes the governor's current failure streak, for the
// exporter.
func (c *ProtectClient) ConsecutiveErrors() int {
	return c.gov.consecutiveErrors()
}

// Cameras returns a copy of the camera inventory from the last successful
// bootstrap, or nil before one has completed.
func (c *ProtectClient) Cameras() []models.Camera {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bootstrap == nil {
		return nil
	}
	out := make([]models.Camera, len(c.bootstrap.Cameras))
	copy(out, c.bootstrap.Cameras)
	return out
}

// NVRInfo returns the controller identity from the last successful
// bootstrap.
func (c *ProtectClient) NVRInfo() (models.NVR, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bootstrap == nil {
		return models.NVR{}, false
	}
	return c.bootstrap.NVR, true
}

// IsAdmin reports whether the authenticated user held camera write access
// as of the last bootstrap.
func (c *ProtectClient) IsAdmin() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isAdmin
}

// Shutdown stops the realtime listener and discards session state. The
// client may be reused afterwards; the next operation re-detects and
// re-authenticates.
func (c *ProtectClient) Shutdown() {
	c.listenerMu.Lock()
	l := c.listener
	c.listener = nil
	c.listenerMu.Unlock()
	if l != nil {
		l.stop()
	}
	c.clearSession()
}
