package gameserver

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/orbitwar/internal/config"
	"github.com/udisondev/orbitwar/internal/model"
	"github.com/udisondev/orbitwar/internal/sim"
	"github.com/udisondev/orbitwar/internal/snapshot"
	"github.com/udisondev/orbitwar/internal/world"
)

type testServer struct {
	cfg   config.Server
	loop  *sim.Loop
	srv   *Server
	codec snapshot.Codec
	url   string
}

func testServerConfig(codec string) config.Server {
	cfg := config.DefaultServer()
	cfg.Codec = codec
	cfg.Simulation.AsteroidCount = 0
	cfg.Simulation.UpdatesPerSecond = 20
	cfg.Simulation.Seed = 3
	return cfg
}

func startServer(t *testing.T, cfg config.Server) *testServer {
	t.Helper()

	codec, err := snapshot.NewCodec(cfg.Codec)
	require.NoError(t, err)

	clients := NewClientManager()
	loop, err := sim.NewLoop(cfg.Simulation, NewBroadcaster(clients, codec))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = loop.Run(ctx)
	}()

	srv := NewServer(cfg, loop, clients, codec)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		<-loopDone
	})

	return &testServer{
		cfg:   cfg,
		loop:  loop,
		srv:   srv,
		codec: codec,
		url:   "ws" + strings.TrimPrefix(ts.URL, "http") + cfg.Path,
	}
}

func (ts *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(ts.url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (ts *testServer) read(t *testing.T, conn *websocket.Conn) (int, snapshot.Message) {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	frameType, data, err := conn.ReadMessage()
	require.NoError(t, err)
	msg, err := ts.codec.Decode(data)
	require.NoError(t, err)
	return frameType, msg
}

func (ts *testServer) shipTurn(t *testing.T, id uint64) (float64, bool) {
	t.Helper()
	var (
		turn  float64
		found bool
	)
	err := ts.loop.Do(context.Background(), func(w *world.World) {
		if e, err := w.Get(id); err == nil && e.Kind == model.KindShip {
			turn, found = e.Ship.Turn, true
		}
	})
	if err != nil {
		t.Errorf("inspecting world: %v", err)
	}
	return turn, found
}

func TestServer_IDThenSnapshots(t *testing.T) {
	ts := startServer(t, testServerConfig(snapshot.CodecJSON))
	conn := ts.dial(t)

	frameType, msg := ts.read(t, conn)
	require.Equal(t, snapshot.TypeID, msg.Type)
	assert.Equal(t, websocket.TextMessage, frameType)
	shipID := msg.ID
	assert.NotZero(t, shipID)

	_, msg = ts.read(t, conn)
	require.Equal(t, snapshot.TypeSnapshot, msg.Type)
	require.Len(t, msg.Snapshot.Planets, 1)

	var seen bool
	for _, s := range msg.Snapshot.Ships {
		seen = seen || s.ID == shipID
	}
	assert.True(t, seen, "own ship is in the snapshot")
}

func TestServer_IntentsReachSimulation(t *testing.T) {
	ts := startServer(t, testServerConfig(snapshot.CodecJSON))
	conn := ts.dial(t)
	_, msg := ts.read(t, conn)
	shipID := msg.ID

	data, err := snapshot.EncodeDir(1)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))

	require.Eventually(t, func() bool {
		turn, ok := ts.shipTurn(t, shipID)
		return ok && turn == 1
	}, 2*time.Second, 10*time.Millisecond)

	// Malformed intents are ignored and the connection stays usable.
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"t":"warp"}`)))
	data, err = snapshot.EncodeDir(-0.5)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))

	require.Eventually(t, func() bool {
		turn, _ := ts.shipTurn(t, shipID)
		return turn == -0.5
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServer_DisconnectRemovesShip(t *testing.T) {
	ts := startServer(t, testServerConfig(snapshot.CodecJSON))
	conn := ts.dial(t)
	_, msg := ts.read(t, conn)
	shipID := msg.ID

	require.Eventually(t, func() bool { return ts.srv.ClientManager().Count() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, conn.Close())

	require.Eventually(t, func() bool {
		_, ok := ts.shipTurn(t, shipID)
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, ts.srv.ClientManager().Count())
}

func TestServer_MaxClients(t *testing.T) {
	cfg := testServerConfig(snapshot.CodecJSON)
	cfg.MaxClients = 1
	ts := startServer(t, cfg)

	conn := ts.dial(t)
	ts.read(t, conn)
	require.Eventually(t, func() bool { return ts.srv.ClientManager().Count() == 1 }, time.Second, 5*time.Millisecond)

	_, resp, err := websocket.DefaultDialer.Dial(ts.url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServer_BinaryCodec(t *testing.T) {
	ts := startServer(t, testServerConfig(snapshot.CodecMsgpackLZ4))
	conn := ts.dial(t)

	frameType, msg := ts.read(t, conn)
	assert.Equal(t, websocket.BinaryMessage, frameType)
	assert.Equal(t, snapshot.TypeID, msg.Type)

	_, msg = ts.read(t, conn)
	assert.Equal(t, snapshot.TypeSnapshot, msg.Type)
	assert.NotNil(t, msg.Snapshot)
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	cfg := testServerConfig(snapshot.CodecJSON)
	codec, err := snapshot.NewCodec(cfg.Codec)
	require.NoError(t, err)
	fake := &fakeSim{}
	srv := NewServer(cfg, fake, NewClientManager(), codec)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	require.Eventually(t, func() bool { return srv.Addr() != nil }, time.Second, 5*time.Millisecond)
	conn, resp, err := websocket.DefaultDialer.Dial("ws://"+srv.Addr().String()+cfg.Path, nil)
	require.NoError(t, err)
	resp.Body.Close()
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	require.NoError(t, err, "id frame")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return")
	}

	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "server closed the connection")
}
