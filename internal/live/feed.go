// Package live keeps one websocket subscription to the marketplace feed.
// Its only job is to turn ORDER_UPDATED notifications into cache
// invalidation; the views refetch on their own.
package live

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// EventOrderUpdated is the only message type acted upon; everything else is
// ignored silently.
const EventOrderUpdated = "ORDER_UPDATED"

type envelope struct {
	Type string `json:"type"`
}

type Config struct {
	URL string

	// ReconnectDelay is the fixed wait between a close and the next dial.
	// MaxAttempts caps consecutive failed connections; 0 retries forever.
	ReconnectDelay time.Duration
	MaxAttempts    int
}

type Feed struct {
	cfg        Config
	token      func() string
	invalidate func()
	log        *slog.Logger
	dialer     *websocket.Dialer

	mu   sync.Mutex
	conn *websocket.Conn

	closed    chan struct{}
	done      chan struct{}
	started   bool
	closeOnce sync.Once
	startOnce sync.Once
	doneOnce  sync.Once
}

// NewFeed wires the feed to a token source and an invalidation hook. The
// hook runs on the feed's goroutine and must not block.
func NewFeed(cfg Config, token func() string, invalidate func(), log *slog.Logger) *Feed {
	return &Feed{
		cfg:        cfg,
		token:      token,
		invalidate: invalidate,
		log:        log,
		dialer:     websocket.DefaultDialer,
		closed:     make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start launches the connect/read/reconnect loop.
func (f *Feed) Start() {
	f.startOnce.Do(func() {
		f.mu.Lock()
		f.started = true
		f.mu.Unlock()
		go f.run()
	})
}

// Done closes when the loop has given up (attempt cap reached) or was shut
// down via Close.
func (f *Feed) Done() <-chan struct{} {
	return f.done
}

// Close tears the feed down; no reconnection follows.
func (f *Feed) Close() {
	f.closeOnce.Do(func() {
		close(f.closed)
		f.mu.Lock()
		if f.conn != nil {
			f.conn.Close()
		}
		started := f.started
		f.mu.Unlock()
		if !started {
			f.doneOnce.Do(func() { close(f.done) })
		}
	})
	<-f.done
}

func (f *Feed) run() {
	defer f.doneOnce.Do(func() { close(f.done) })
	failures := 0
	for {
		select {
		case <-f.closed:
			return
		default:
		}

		connected, err := f.connectAndRead()
		select {
		case <-f.closed:
			return
		default:
		}
		if err != nil {
			f.log.Warn("live feed connection lost", "err", err)
		}
		if connected {
			failures = 0
		} else {
			failures++
			if f.cfg.MaxAttempts > 0 && failures >= f.cfg.MaxAttempts {
				f.log.Error("live feed giving up", "attempts", failures)
				return
			}
		}

		// One reconnection per close, after a fixed delay.
		select {
		case <-f.closed:
			return
		case <-time.After(f.cfg.ReconnectDelay):
		}
	}
}

// connectAndRead dials, then pumps messages until the connection drops.
// The returned bool says whether the dial itself succeeded, which resets
// the failure counter.
func (f *Feed) connectAndRead() (bool, error) {
	conn, _, err := f.dialer.Dial(f.feedURL(), nil)
	if err != nil {
		return false, fmt.Errorf("dial feed: %w", err)
	}
	f.mu.Lock()
	f.conn = conn
	// Close may have run while the handshake was in flight, before there
	// was a conn for it to tear down.
	select {
	case <-f.closed:
		f.mu.Unlock()
		conn.Close()
		return true, nil
	default:
	}
	f.mu.Unlock()
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return true, fmt.Errorf("parse feed message: %w", err)
		}
		if env.Type == EventOrderUpdated {
			f.invalidate()
		}
	}
}

func (f *Feed) feedURL() string {
	return f.cfg.URL + "?token=" + url.QueryEscape(f.token())
}
