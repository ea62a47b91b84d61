package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/orbitwar/internal/snapshot"
)

// closingServer sends an id and one snapshot, then closes the connection normally.
func closingServer(t *testing.T) string {
	t.Helper()
	codec, err := snapshot.NewCodec(snapshot.CodecJSON)
	require.NoError(t, err)

	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		id, _ := codec.EncodeID(7)
		snap, _ := codec.EncodeSnapshot(&snapshot.Snapshot{
			Tick:  1,
			Ships: []snapshot.ShipState{{ID: 7, X: 10, Y: 20}},
		})
		_ = conn.WriteMessage(websocket.TextMessage, id)
		_ = conn.WriteMessage(websocket.TextMessage, snap)

		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutting down")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))

		// Wait for the client's close reply.
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(ts.Close)

	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func testOptions(url string) options {
	return options{
		url:      url,
		codec:    snapshot.CodecJSON,
		ups:      10,
		size:     200,
		report:   10 * time.Millisecond,
		logLevel: "error",
	}
}

func TestRun_ReturnsWhenServerCloses(t *testing.T) {
	opts := testOptions(closingServer(t))

	done := make(chan error, 1)
	go func() { done <- run(context.Background(), opts) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run still blocked after the server closed the connection")
	}
}

func TestRun_ReturnsOnCancel(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
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
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, testOptions("ws"+strings.TrimPrefix(ts.URL, "http"))) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("run did not return after cancel")
	}
}

func TestReadLoop_AppliesFramesUntilClose(t *testing.T) {
	opts := testOptions(closingServer(t))
	codec, err := snapshot.NewCodec(opts.codec)
	require.NoError(t, err)

	conn, resp, err := websocket.DefaultDialer.Dial(opts.url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	defer conn.Close()

	v := &view{ip: newViewInterpolator(opts)}
	require.NoError(t, readLoop(conn, codec, v))

	assert.Equal(t, uint64(7), v.shipID)
	assert.Equal(t, uint64(1), v.ip.Tick())
	own, ok := v.ip.Ship(7, time.Now())
	require.True(t, ok)
	assert.Equal(t, 10.0, own.Position.X)
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, "DEBUG", parseLogLevel("debug").String())
	assert.Equal(t, "WARN", parseLogLevel("warn").String())
	assert.Equal(t, "INFO", parseLogLevel("bogus").String())
}
