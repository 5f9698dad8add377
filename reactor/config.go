package reactor

import (
	"io"
	"time"

	"github.com/dogmatiq/streamrpc"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DefaultReadTimeout is the idle-timeout applied to a client connection
// when Config.ReadTimeout is zero.
const DefaultReadTimeout = 60 * time.Second

// DefaultReadBufferSize is the per-client line-framed read buffer
// capacity applied when Config.ReadBufferSize is zero.
const DefaultReadBufferSize = 4096

// MinReadBufferSize is the smallest Config.ReadBufferSize New accepts:
// large enough to hold the shortest legal JSON-RPC request line
// (`{"jsonrpc":"2.0","method":"x"}`) with room to spare for compaction.
// New rejects a smaller ReadBufferSize with streamrpc.ErrBufferTooSmall.
const MinReadBufferSize = 64

// Config configures a Reactor.
type Config struct {
	// BindAddress is the "host:port" the listening socket binds to.
	BindAddress string

	// MaxClients is the hard cap on concurrent connections. It also
	// sets the initial capacity of the reactor's client table; the
	// client pool itself is not sized by it. Zero is invalid.
	MaxClients int

	// ReadTimeout is the idle-timeout applied to a connection that has
	// made no read progress. Zero selects DefaultReadTimeout.
	ReadTimeout time.Duration

	// ReadBufferSize is the per-client line-framed read buffer
	// capacity, bounding the largest frame a client may send. Zero
	// selects DefaultReadBufferSize.
	ReadBufferSize int

	// Handler is invoked once per readiness event with every frame
	// drained from the triggering client. It is required.
	Handler Handler

	// Logger receives reactor-level diagnostics (failed accepts, idle
	// timeouts, and read, write, handler and serialization failures).
	// Successful accepts and closes are not logged. A nil Logger
	// discards them.
	Logger *zap.Logger

	// ExchangeLogger is carried in the configuration (and left untouched
	// by FileConfig.Apply), but the Reactor does not read it. A Handler
	// built with NewExchangerHandler takes its ExchangeLogger as an
	// argument instead.
	ExchangeLogger streamrpc.ExchangeLogger

	// Metrics records reactor-level Prometheus instrumentation. A nil
	// Metrics disables instrumentation.
	Metrics *Metrics
}

func (c Config) readTimeout() time.Duration {
	if c.ReadTimeout <= 0 {
		return DefaultReadTimeout
	}
	return c.ReadTimeout
}

func (c Config) readBufferSize() int {
	if c.ReadBufferSize <= 0 {
		return DefaultReadBufferSize
	}
	return c.ReadBufferSize
}

func (c Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// FileConfig holds the subset of Config that can be expressed as plain
// data and loaded from a YAML document; Handler, Logger, ExchangeLogger
// and Metrics have no on-disk representation and are left for the
// caller to wire up in code.
type FileConfig struct {
	BindAddress    string        `yaml:"bindAddress"`
	MaxClients     int           `yaml:"maxClients"`
	ReadTimeout    time.Duration `yaml:"readTimeout"`
	ReadBufferSize int           `yaml:"readBufferSize"`
}

// LoadFileConfig decodes a FileConfig from r.
func LoadFileConfig(r io.Reader) (FileConfig, error) {
	var fc FileConfig
	if err := yaml.NewDecoder(r).Decode(&fc); err != nil {
		return FileConfig{}, err
	}
	return fc, nil
}

// Apply copies fc's fields into cfg, leaving Handler, Logger,
// ExchangeLogger and Metrics untouched.
func (fc FileConfig) Apply(cfg *Config) {
	cfg.BindAddress = fc.BindAddress
	cfg.MaxClients = fc.MaxClients
	cfg.ReadTimeout = fc.ReadTimeout
	cfg.ReadBufferSize = fc.ReadBufferSize
}
