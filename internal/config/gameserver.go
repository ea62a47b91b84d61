package config

import (
	"fmt"
	"time"
)

// Server holds all configuration for the game server.
type Server struct {
	// Network
	BindAddress string `yaml:"bind_address"`
	Port        int    `yaml:"port"`
	Path        string `yaml:"path"` // WebSocket endpoint

	// Logging: debug | info | warn | error
	LogLevel string `yaml:"log_level"`

	// Snapshot wire codec: json | msgpack | msgpack+lz4
	Codec string `yaml:"codec"`

	// Write queue / timeouts
	WriteTimeout  time.Duration `yaml:"write_timeout"`   // per-write deadline (default: 5s)
	ReadTimeout   time.Duration `yaml:"read_timeout"`    // idle client disconnect (default: 60s)
	SendQueueSize int           `yaml:"send_queue_size"` // per-client outbox capacity (default: 32)
	MaxClients    int           `yaml:"max_clients"`

	// Flood protection for intent messages
	IntentRate  float64 `yaml:"intent_rate"` // messages per second
	IntentBurst int     `yaml:"intent_burst"`

	// Profiling: "" | cpu | mem
	Profile string `yaml:"profile"`

	Simulation Simulation `yaml:"simulation"`
}

// DefaultServer returns Server config with sensible defaults.
func DefaultServer() Server {
	return Server{
		BindAddress:   "0.0.0.0",
		Port:          8888,
		Path:          "/ws",
		LogLevel:      "info",
		Codec:         "json",
		WriteTimeout:  5 * time.Second,
		ReadTimeout:   60 * time.Second,
		SendQueueSize: 32,
		MaxClients:    128,
		IntentRate:    50,
		IntentBurst:   20,
		Simulation:    DefaultSimulation(),
	}
}

// Addr returns host:port for the listener.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.BindAddress, s.Port)
}

// Validate checks server and simulation settings.
func (s Server) Validate() error {
	switch s.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level=%q: %w", s.LogLevel, ErrInvalidLevel)
	}
	switch s.Codec {
	case "json", "msgpack", "msgpack+lz4":
	default:
		return fmt.Errorf("codec=%q: %w", s.Codec, ErrInvalidCodec)
	}
	if err := s.Simulation.Validate(); err != nil {
		return fmt.Errorf("simulation: %w", err)
	}
	return nil
}
