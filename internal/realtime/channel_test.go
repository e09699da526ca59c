package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/khanabook/pos-station/internal/model"
	"github.com/shopspring/decimal"
)

var upgrader = websocket.Upgrader{}

type staticToken string

func (s staticToken) Token() string { return string(s) }

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func TestReceiveEvents(t *testing.T) {
	order := model.Order{ID: 7, Version: 1, Status: "NEW", TotalAmount: decimal.NewFromInt(250)}
	payload, _ := json.Marshal(order)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteJSON(Event{Topic: TopicOrders, Payload: payload})
		// Hold the connection open until the client goes away.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	got := make(chan model.Order, 1)
	dispatcher := Dispatcher{OnOrder: func(o model.Order) { got <- o }}

	channel := Dial(context.Background(), wsURL(server), Callbacks{
		OnEvent: dispatcher.Dispatch,
	}, Options{ReconnectDelay: 10 * time.Millisecond})
	defer channel.Close()

	select {
	case o := <-got:
		if o.ID != 7 || o.Status != "NEW" {
			t.Errorf("decoded order = %+v", o)
		}
		if !o.TotalAmount.Equal(decimal.NewFromInt(250)) {
			t.Errorf("totalAmount = %s, want 250", o.TotalAmount)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no order event received")
	}
}

func TestReconnectAfterDrop(t *testing.T) {
	connects := make(chan struct{}, 8)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		connects <- struct{}{}
		// Drop every connection straight away to force a reconnect.
		conn.Close()
	}))
	defer server.Close()

	channel := Dial(context.Background(), wsURL(server), Callbacks{}, Options{
		ReconnectDelay: 10 * time.Millisecond,
	})
	defer channel.Close()

	for i := 0; i < 2; i++ {
		select {
		case <-connects:
		case <-time.After(2 * time.Second):
			t.Fatalf("connection %d never arrived", i+1)
		}
	}
}

func TestBearerTokenOnHandshake(t *testing.T) {
	headers := make(chan string, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers <- r.Header.Get("Authorization")
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer server.Close()

	channel := Dial(context.Background(), wsURL(server), Callbacks{}, Options{
		ReconnectDelay: time.Hour,
		Tokens:         staticToken("tok-123"),
	})
	defer channel.Close()

	select {
	case h := <-headers:
		if h != "Bearer tok-123" {
			t.Errorf("Authorization = %q, want Bearer tok-123", h)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("handshake never arrived")
	}
}

func TestOnConnectAndOnDisconnect(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer server.Close()

	connected := make(chan struct{}, 4)
	dropped := make(chan error, 4)
	channel := Dial(context.Background(), wsURL(server), Callbacks{
		OnConnect:    func() { connected <- struct{}{} },
		OnDisconnect: func(err error) { dropped <- err },
	}, Options{ReconnectDelay: 10 * time.Millisecond})
	defer channel.Close()

	select {
	case <-connected:
	case <-time.After(2 * time.Second):
		t.Fatal("OnConnect never fired")
	}
	select {
	case err := <-dropped:
		if err == nil {
			t.Error("OnDisconnect should carry the read error")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnDisconnect never fired")
	}
}

func TestDispatcherIgnoresUnknownTopic(t *testing.T) {
	called := false
	d := Dispatcher{OnOrder: func(model.Order) { called = true }}
	d.Dispatch(Event{Topic: "menu/changed", Payload: []byte(`{}`)})
	if called {
		t.Error("unknown topic must not reach a callback")
	}
}

func TestDispatcherTypedPayloads(t *testing.T) {
	var table model.TableUpdate
	var alert string
	d := Dispatcher{
		OnTable:      func(u model.TableUpdate) { table = u },
		OnStockAlert: func(msg string) { alert = msg },
	}

	d.Dispatch(Event{Topic: TopicTables, Payload: []byte(`{"tableNumber":"T2","status":"OCCUPIED","orderId":9}`)})
	if table.TableNumber != "T2" || table.OrderID != 9 {
		t.Errorf("table update = %+v", table)
	}

	// Stock alerts are bare strings on the wire, not objects.
	d.Dispatch(Event{Topic: TopicStockAlerts, Payload: []byte(`"Paneer Tikka out of stock"`)})
	if alert != "Paneer Tikka out of stock" {
		t.Errorf("stock alert = %q", alert)
	}
}
