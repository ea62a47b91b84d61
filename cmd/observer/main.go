// Command observer is a headless client: it joins the game, optionally flies
// its ship and logs the interpolated view of the universe.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/udisondev/orbitwar/internal/interp"
	"github.com/udisondev/orbitwar/internal/model"
	"github.com/udisondev/orbitwar/internal/snapshot"
)

type options struct {
	url      string
	codec    string
	ups      int
	size     float64
	report   time.Duration
	duration time.Duration
	turn     float64
	thrust   bool
	shoot    bool
	logLevel string
}

func main() {
	var opts options
	flag.StringVar(&opts.url, "url", "ws://127.0.0.1:8888/ws", "game server websocket URL")
	flag.StringVar(&opts.codec, "codec", snapshot.CodecJSON, "server snapshot codec: json | msgpack | msgpack+lz4")
	flag.IntVar(&opts.ups, "ups", 10, "server updates per second")
	flag.Float64Var(&opts.size, "size", 200, "universe size for wrap-aware blending (0 disables)")
	flag.DurationVar(&opts.report, "report", time.Second, "interval between view reports")
	flag.DurationVar(&opts.duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	flag.Float64Var(&opts.turn, "turn", 0, "turn coefficient to hold, -1..1")
	flag.BoolVar(&opts.thrust, "thrust", false, "hold thrust")
	flag.BoolVar(&opts.shoot, "shoot", false, "hold fire")
	flag.StringVar(&opts.logLevel, "log-level", "info", "debug | info | warn | error")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("shutting down", "signal", sig)
		cancel()
	}()

	if opts.duration > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, opts.duration)
		defer stop()
	}

	if err := run(ctx, opts); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

// view is the interpolator shared by the reader and the reporter.
type view struct {
	mu     sync.Mutex
	ip     *interp.Interpolator
	shipID uint64
}

func run(ctx context.Context, opts options) error {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(opts.logLevel),
	})))

	if opts.ups <= 0 {
		return fmt.Errorf("ups must be positive, got %d", opts.ups)
	}
	codec, err := snapshot.NewCodec(opts.codec)
	if err != nil {
		return err
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, opts.url, nil)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", opts.url, err)
	}
	resp.Body.Close()
	defer conn.Close()
	slog.Info("connected", "url", opts.url, "codec", codec.Name())

	v := &view{ip: newViewInterpolator(opts)}

	if err := sendControls(conn, opts); err != nil {
		return err
	}

	// A clean close from the server ends the session like a cancellation does.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-gctx.Done()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		_ = conn.Close()
		return nil
	})

	g.Go(func() error {
		defer cancel()
		err := readLoop(conn, codec, v)
		if gctx.Err() != nil {
			return nil
		}
		return err
	})

	g.Go(func() error {
		reportLoop(gctx, v, opts.report)
		return nil
	})

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}

func newViewInterpolator(opts options) *interp.Interpolator {
	return interp.New(time.Second/time.Duration(opts.ups), opts.size)
}

func sendControls(conn *websocket.Conn, opts options) error {
	var frames [][]byte
	if opts.turn != 0 {
		data, err := snapshot.EncodeDir(opts.turn)
		if err != nil {
			return err
		}
		frames = append(frames, data)
	}
	for typ, on := range map[string]bool{snapshot.TypeAcc: opts.thrust, snapshot.TypeShoot: opts.shoot} {
		if !on {
			continue
		}
		data, err := snapshot.EncodeFlag(typ, true)
		if err != nil {
			return err
		}
		frames = append(frames, data)
	}

	for _, f := range frames {
		if err := conn.WriteMessage(websocket.TextMessage, f); err != nil {
			return fmt.Errorf("sending controls: %w", err)
		}
	}
	return nil
}

func readLoop(conn *websocket.Conn, codec snapshot.Codec, v *view) error {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return fmt.Errorf("reading: %w", err)
		}

		msg, err := codec.Decode(data)
		if err != nil {
			slog.Warn("undecodable frame", "bytes", len(data), "error", err)
			continue
		}

		v.mu.Lock()
		switch msg.Type {
		case snapshot.TypeID:
			// A new session: nothing from an earlier connection carries over.
			v.ip.Reset()
			v.shipID = msg.ID
			slog.Info("ship assigned", "shipID", msg.ID)
		case snapshot.TypeSnapshot:
			if !v.ip.Apply(msg.Snapshot, time.Now()) {
				slog.Debug("stale snapshot", "tick", msg.Snapshot.Tick)
			}
		}
		v.mu.Unlock()
	}
}

func reportLoop(ctx context.Context, v *view, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			v.report(now)
		}
	}
}

func (v *view) report(now time.Time) {
	v.mu.Lock()
	defer v.mu.Unlock()

	counts := make(map[model.Kind]int, 4)
	for _, b := range v.ip.All(now) {
		counts[b.Kind]++
	}

	attrs := []any{
		"tick", v.ip.Tick(),
		"fraction", v.ip.Fraction(now),
		"ships", counts[model.KindShip],
		"bullets", counts[model.KindBullet],
		"asteroids", counts[model.KindAsteroid],
	}
	if own, ok := v.ip.Ship(v.shipID, now); ok {
		attrs = append(attrs,
			"x", own.Position.X,
			"y", own.Position.Y,
			"angle", own.Angle)
	}
	slog.Info("view", attrs...)
}

// parseLogLevel converts string log level to slog.Level.
// Defaults to Info if invalid or empty.
func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
