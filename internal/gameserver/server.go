package gameserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/udisondev/orbitwar/internal/config"
	"github.com/udisondev/orbitwar/internal/snapshot"
)

const shutdownTimeout = 5 * time.Second

// Server accepts WebSocket clients and binds each one to a ship.
type Server struct {
	cfg     config.Server
	sim     Simulation
	clients *ClientManager
	codec   snapshot.Codec

	upgrader websocket.Upgrader

	listener net.Listener
	mu       sync.Mutex
	wg       sync.WaitGroup
}

// NewServer creates a server. clients must be the manager the snapshot
// Broadcaster writes to.
func NewServer(cfg config.Server, sim Simulation, clients *ClientManager, codec snapshot.Codec) *Server {
	return &Server{
		cfg:     cfg,
		sim:     sim,
		clients: clients,
		codec:   codec,
		upgrader: websocket.Upgrader{
			// Browser clients may be served from anywhere.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Addr returns the listener address, or nil before Run/Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ClientManager returns the connected clients.
func (s *Server) ClientManager() *ClientManager {
	return s.clients
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	path := s.cfg.Path
	if path == "" {
		path = "/ws"
	}
	mux := http.NewServeMux()
	mux.HandleFunc(path, s.ServeWS)
	return mux
}

// Run listens on the configured address and serves until ctx is canceled.
func (s *Server) Run(ctx context.Context) error {
	addr := s.cfg.Addr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until ctx is canceled, then closes every
// client and waits for their handlers to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	slog.Info("game server started",
		"address", ln.Addr(),
		"path", s.cfg.Path,
		"codec", s.codec.Name())

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.clients.CloseAll()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("http shutdown", "error", err)
		}

		done := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-shutdownCtx.Done():
			// Peers that never answered the close frame.
			s.clients.ForEachClient(func(c *Client) bool {
				_ = c.Close()
				return true
			})
			<-done
		}

		slog.Info("game server stopped")
		return nil

	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving http: %w", err)
	}
}

// ServeWS upgrades the request, creates a ship, sends its id and then feeds
// the client's intents into the simulation until the connection closes.
func (s *Server) ServeWS(w http.ResponseWriter, r *http.Request) {
	if !s.clients.Reserve(s.cfg.MaxClients) {
		http.Error(w, "server full", http.StatusServiceUnavailable)
		return
	}
	claimed := false
	defer func() {
		if !claimed {
			s.clients.Release()
		}
	}()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		slog.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	s.wg.Add(1)
	defer s.wg.Done()

	ctx := r.Context()
	ip := remoteHost(r.RemoteAddr)

	shipID, err := s.sim.Connect(ctx)
	if err != nil {
		slog.Error("creating ship", "client", ip, "error", err)
		conn.Close()
		return
	}

	idFrame, err := s.codec.EncodeID(shipID)
	if err != nil {
		slog.Error("encoding id", "shipID", shipID, "error", err)
		_ = s.sim.Disconnect(context.WithoutCancel(ctx), shipID)
		conn.Close()
		return
	}

	client := NewClient(conn, ip, shipID, ClientOptions{
		SendQueueSize: s.cfg.SendQueueSize,
		WriteTimeout:  s.cfg.WriteTimeout,
		ReadTimeout:   s.cfg.ReadTimeout,
		IntentRate:    s.cfg.IntentRate,
		IntentBurst:   s.cfg.IntentBurst,
		Binary:        s.codec.Binary(),
	})
	// Queue the id before registering so it precedes every snapshot.
	client.Send(idFrame)
	s.clients.Claim(client)
	claimed = true
	go client.writePump()

	defer func() {
		OnDisconnection(ctx, client, s.clients, s.sim)
		client.Close()
	}()

	slog.Info("client connected", "shipID", shipID, "client", ip, "clients", s.clients.Count())

	client.readPump(func(data []byte) {
		if err := HandleIntent(ctx, s.sim, shipID, data); err != nil {
			slog.Warn("rejected intent", "shipID", shipID, "client", ip, "error", err)
		}
	})
}

func remoteHost(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
