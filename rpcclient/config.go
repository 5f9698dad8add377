package rpcclient

import (
	"io"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DefaultReadBufferSize is the per-connection line-framed read buffer
// capacity applied when Config.ReadBufferSize is zero.
const DefaultReadBufferSize = 4096

// MinReadBufferSize is the smallest Config.ReadBufferSize Dial and
// DialNonBlocking accept: large enough to hold the shortest legal
// JSON-RPC response line with room to spare for compaction. A smaller
// ReadBufferSize is rejected with streamrpc.ErrBufferTooSmall.
const MinReadBufferSize = 64

// DefaultDialTimeout bounds how long Dial waits to establish the TCP
// connection when Config.DialTimeout is zero.
const DefaultDialTimeout = 10 * time.Second

// Config configures a Client.
type Config struct {
	// PeerAddress is the "host:port" of the streamrpc server to dial.
	PeerAddress string

	// ReadBufferSize is the line-framed read buffer capacity, bounding
	// the largest response frame the client can receive. Zero selects
	// DefaultReadBufferSize.
	ReadBufferSize int

	// DialTimeout bounds the initial TCP handshake. Zero selects
	// DefaultDialTimeout.
	DialTimeout time.Duration

	// Logger receives client diagnostics: Client logs each response it
	// discards for an unrecognized or duplicate id. Dial, Close and I/O
	// errors are returned, not logged. A nil Logger discards them.
	Logger *zap.Logger
}

func (c Config) readBufferSize() int {
	if c.ReadBufferSize <= 0 {
		return DefaultReadBufferSize
	}
	return c.ReadBufferSize
}

func (c Config) dialTimeout() time.Duration {
	if c.DialTimeout <= 0 {
		return DefaultDialTimeout
	}
	return c.DialTimeout
}

func (c Config) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// FileConfig holds the subset of Config that can be expressed as plain
// data and loaded from a YAML document; Logger has no on-disk
// representation and is left for the caller to wire up in code.
type FileConfig struct {
	PeerAddress    string        `yaml:"peerAddress"`
	ReadBufferSize int           `yaml:"readBufferSize"`
	DialTimeout    time.Duration `yaml:"dialTimeout"`
}

// LoadFileConfig decodes a FileConfig from r.
func LoadFileConfig(r io.Reader) (FileConfig, error) {
	var fc FileConfig
	if err := yaml.NewDecoder(r).Decode(&fc); err != nil {
		return FileConfig{}, err
	}
	return fc, nil
}

// Apply copies fc's fields into cfg, leaving Logger untouched.
func (fc FileConfig) Apply(cfg *Config) {
	cfg.PeerAddress = fc.PeerAddress
	cfg.ReadBufferSize = fc.ReadBufferSize
	cfg.DialTimeout = fc.DialTimeout
}
