// Package realtime maintains the station's push channel to the backend.
// A single multiplexed WebSocket carries every topic; the channel decodes
// each event and fans it out to the registered callbacks.
package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Pause between reconnect attempts
	defaultReconnectDelay = 5 * time.Second
)

// Topics multiplexed over the channel.
const (
	TopicOrders      = "orders"
	TopicOrderUpdate = "orders/update"
	TopicTables      = "tables"
	TopicStockAlerts = "stock/alerts"
)

// Event is the wire envelope. Topic tags the payload type.
type Event struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// Callbacks receive decoded events. Nil callbacks are skipped. OnConnect
// fires after every successful (re)connect, OnDisconnect whenever the
// connection drops with the error that killed it.
type Callbacks struct {
	OnEvent      func(Event)
	OnConnect    func()
	OnDisconnect func(error)
}

// TokenSource supplies the bearer token for the connection handshake.
type TokenSource interface {
	Token() string
}

// Options tune the channel. Zero values pick the defaults.
type Options struct {
	ReconnectDelay time.Duration
	Tokens         TokenSource
}

// Channel is a live connection that keeps itself connected until Close.
type Channel struct {
	url    string
	cb     Callbacks
	opts   Options
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Dial starts the connection loop and returns immediately. The loop dials,
// pumps events, and on any failure waits ReconnectDelay before dialing
// again, forever, until ctx is cancelled or Close is called.
func Dial(ctx context.Context, url string, cb Callbacks, opts Options) *Channel {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = defaultReconnectDelay
	}

	ctx, cancel := context.WithCancel(ctx)
	c := &Channel{url: url, cb: cb, opts: opts, cancel: cancel}
	c.wg.Add(1)
	go c.run(ctx)
	return c
}

// Close tears down the connection and waits for the loop to exit.
func (c *Channel) Close() {
	c.cancel()
	c.wg.Wait()
}

func (c *Channel) run(ctx context.Context) {
	defer c.wg.Done()

	for {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, c.header())
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("ERROR: websocket dial %s: %v", c.url, err)
			if c.cb.OnDisconnect != nil {
				c.cb.OnDisconnect(err)
			}
		} else {
			if c.cb.OnConnect != nil {
				c.cb.OnConnect()
			}
			err = c.pump(ctx, conn)
			conn.Close()
			if ctx.Err() != nil {
				return
			}
			if c.cb.OnDisconnect != nil {
				c.cb.OnDisconnect(err)
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(c.opts.ReconnectDelay):
		}
	}
}

func (c *Channel) header() http.Header {
	h := http.Header{}
	if c.opts.Tokens != nil {
		if token := c.opts.Tokens.Token(); token != "" {
			h.Set("Authorization", "Bearer "+token)
		}
	}
	return h
}

// pump reads events until the connection dies, pinging on a ticker so a
// dead peer is detected within pongWait.
func (c *Channel) pump(ctx context.Context, conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			case <-ctx.Done():
				conn.Close()
				return
			case <-done:
				return
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("websocket error: %v", err)
			}
			return err
		}

		var event Event
		if err := json.Unmarshal(message, &event); err != nil {
			log.Printf("ERROR: malformed event: %v", err)
			continue
		}
		if c.cb.OnEvent != nil {
			c.cb.OnEvent(event)
		}
	}
}
