package marketdata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestQuoteStream_ReceivesQuotes(t *testing.T) {
	upgrader := websocket.Upgrader{}
	received := make(chan subscribeRequest, 1)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		var sub subscribeRequest
		if err := conn.ReadJSON(&sub); err != nil {
			t.Errorf("read subscribe: %v", err)
			return
		}
		received <- sub

		quotes := []Quote{
			{Instrument: "CDX_IG_5Y", Timestamp: time.Date(2024, 5, 1, 15, 0, 0, 0, time.UTC), Spread: 101.5},
			{Instrument: "CDX_IG_5Y", Timestamp: time.Date(2024, 5, 1, 15, 1, 0, 0, time.UTC), Spread: 101.25},
		}
		for _, q := range quotes {
			if err := conn.WriteJSON(q); err != nil {
				return
			}
		}

		// Hold the connection open until the client closes it.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	endpoint := "ws" + strings.TrimPrefix(srv.URL, "http")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stream, err := OpenQuoteStream(ctx, endpoint, nil)
	if err != nil {
		t.Fatalf("OpenQuoteStream: %v", err)
	}
	defer stream.Close()

	if err := stream.Subscribe([]string{"CDX_IG_5Y"}); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	select {
	case sub := <-received:
		if sub.Op != "subscribe" || len(sub.Instruments) != 1 || sub.Instruments[0] != "CDX_IG_5Y" {
			t.Errorf("unexpected subscribe request: %+v", sub)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server never saw the subscribe request")
	}

	for i, wantSpread := range []float64{101.5, 101.25} {
		select {
		case q := <-stream.Quotes():
			if q.Spread != wantSpread {
				t.Errorf("quote %d spread = %v, want %v", i, q.Spread, wantSpread)
			}
			if q.Instrument != "CDX_IG_5Y" {
				t.Errorf("quote %d instrument = %q", i, q.Instrument)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for quote %d", i)
		}
	}
}

func TestQuoteStream_CloseIsIdempotent(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	endpoint := "ws" + strings.TrimPrefix(srv.URL, "http")
	stream, err := OpenQuoteStream(context.Background(), endpoint, nil)
	if err != nil {
		t.Fatalf("OpenQuoteStream: %v", err)
	}

	if err := stream.Close(); err != nil {
		t.Errorf("first close: %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}

	if _, ok := <-stream.Quotes(); ok {
		t.Error("quote channel not closed after Close")
	}
}
