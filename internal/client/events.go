package client

import (
	"crypto/tls"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"protect-cli/pkg/models"
)

const wsHandshakeTimeout = 10 * time.Second

// eventListener owns one realtime updates connection and its heartbeat
// deadline. Nothing outside this type touches the socket or the timer.
//
// Liveness is heartbeat-based: the deadline is armed on connect and pushed
// out on every inbound frame or ping. If the silence window elapses, the
// underlying connection is closed outright — a graceful websocket close
// handshake can hang forever against a wedged controller. The listener
// never reconnects itself; the next RefreshDevices cycle does.
type eventListener struct {
	id       string
	log      *zap.Logger
	window   time.Duration
	onUpdate func(models.Update)
	onDown   func(*eventListener)

	mu        sync.Mutex
	conn      *websocket.Conn
	heartbeat *time.Timer
	stopped   bool
}

func newEventListener(log *zap.Logger, window time.Duration, onUpdate func(models.Update), onDown func(*eventListener)) *eventListener {
	return &eventListener{
		id:       uuid.NewString(),
		log:      log,
		window:   window,
		onUpdate: onUpdate,
		onDown:   onDown,
	}
}

// connect dials the updates endpoint and arms the heartbeat deadline. The
// read loop must be started separately.
func (l *eventListener) connect(wsURL string, header http.Header) error {
	dialer := websocket.Dialer{
		TLSClientConfig:  &tls.Config{InsecureSkipVerify: true},
		HandshakeTimeout: wsHandshakeTimeout,
	}
	conn, _, err := dialer.Dial(wsURL, header)
	if err != nil {
		return err
	}

	conn.SetPingHandler(func(appData string) error {
		l.beat()
		// Ignore write failures here; a dead socket surfaces in the read
		// loop and tears the listener down anyway.
		_ = conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
		return nil
	})

	l.mu.Lock()
	l.conn = conn
	l.heartbeat = time.AfterFunc(l.window, l.expire)
	l.mu.Unlock()

	l.log.Info("realtime event feed connected",
		zap.String("listener", l.id),
		zap.String("url", wsURL),
	)
	return nil
}

// beat pushes the silence deadline out again.
func (l *eventListener) beat() {
	l.mu.Lock()
	if l.heartbeat != nil {
		l.heartbeat.Reset(l.window)
	}
	l.mu.Unlock()
}

// expire fires when the controller has gone silent past the window. The
// socket is closed immediately; the read loop notices and cleans up.
func (l *eventListener) expire() {
	l.mu.Lock()
	conn := l.conn
	l.mu.Unlock()
	if conn == nil {
		return
	}
	l.log.Warn("controller event feed went silent, terminating connection",
		zap.String("listener", l.id),
		zap.Duration("window", l.window),
	)
	_ = conn.Close()
}

// stop is the caller-initiated shutdown. Read-loop errors after stop are
// expected and not logged as failures.
func (l *eventListener) stop() {
	l.mu.Lock()
	l.stopped = true
	conn := l.conn
	if l.heartbeat != nil {
		l.heartbeat.Stop()
	}
	l.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// run reads messages until the connection dies, then clears the listener
// handle so the next synchronization cycle can reconnect.
func (l *eventListener) run() {
	defer func() {
		l.mu.Lock()
		if l.heartbeat != nil {
			l.heartbeat.Stop()
		}
		conn := l.conn
		stopped := l.stopped
		l.mu.Unlock()
		if conn != nil {
			_ = conn.Close()
		}
		if !stopped {
			l.log.Info("realtime event feed disconnected", zap.String("listener", l.id))
		}
		if l.onDown != nil {
			l.onDown(l)
		}
	}()

	for {
		l.mu.Lock()
		conn := l.conn
		l.mu.Unlock()
		_, msg, err := conn.ReadMessage()
		if err != nil {
			l.mu.Lock()
			stopped := l.stopped
			l.mu.Unlock()
			if !stopped {
				l.log.Warn("realtime event feed read failed",
					zap.String("listener", l.id),
					zap.Error(err),
				)
			}
			return
		}
		l.beat()

		var upd models.Update
		if err := json.Unmarshal(msg, &upd); err != nil {
			l.log.Debug("undecodable realtime message skipped",
				zap.String("listener", l.id),
				zap.Int("bytes", len(msg)),
			)
			continue
		}
		if l.onUpdate != nil {
			l.onUpdate(upd)
		}
	}
}

// ensureListener starts the realtime listener if it is not already running.
// Idempotent: a live listener is left alone. A failed dial is only logged;
// the next RefreshDevices cycle tries again.
func (c *ProtectClient) ensureListener(lastUpdateID string) {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	if c.listener != nil {
		return
	}

	sess := c.currentSession()
	if !sess.authenticated {
		return
	}
	// Only the session cookie authenticates the socket; the CSRF token is
	// for mutating HTTP calls.
	header := http.Header{}
	if cookie := sess.headers.Get("Cookie"); cookie != "" {
		header.Set("Cookie", cookie)
	}

	l := newEventListener(c.log, c.heartbeatWindow, c.cfg.Hooks.Update, c.dropListener)
	if err := l.connect(c.eventsURL(lastUpdateID), header); err != nil {
		c.log.Warn("realtime event feed connection failed",
			zap.String("address", c.cfg.Address),
			zap.Error(err),
		)
		return
	}
	c.listener = l
	go l.run()
}

// dropListener clears the handle once a listener dies, making the client
// eligible to reconnect on the next synchronization cycle.
func (c *ProtectClient) dropListener(l *eventListener) {
	c.listenerMu.Lock()
	if c.listener == l {
		c.listener = nil
	}
	c.listenerMu.Unlock()
}

// ListenerActive reports whether a realtime connection is currently up.
func (c *ProtectClient) ListenerActive() bool {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	return c.listener != nil
}
