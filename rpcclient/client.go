package rpcclient

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dogmatiq/streamrpc"
	"github.com/dogmatiq/streamrpc/linestream"
	"go.uber.org/zap"
)

// Client is a blocking JSON-RPC peer over one persistent, line-framed
// TCP connection. A Client is safe for concurrent use: Call and Notify
// each take an internal lock for the duration of their write (and, for
// Call, the matching read), serializing the connection the same way a
// single reactor client serializes its own frames.
type Client struct {
	conn   net.Conn
	reader *linestream.Reader
	writer *linestream.Writer
	log    *zap.Logger

	mu sync.Mutex
}

// Dial establishes a TCP connection to cfg.PeerAddress and returns a
// ready-to-use Client.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if n := cfg.readBufferSize(); n < MinReadBufferSize {
		return nil, errors.Wrapf(streamrpc.ErrBufferTooSmall, "rpcclient: Config.ReadBufferSize must be at least %d bytes (got %d)", MinReadBufferSize, n)
	}

	dialer := net.Dialer{Timeout: cfg.dialTimeout()}

	conn, err := dialer.DialContext(ctx, "tcp", cfg.PeerAddress)
	if err != nil {
		return nil, errors.Wrapf(err, "rpcclient: dial %s", cfg.PeerAddress)
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		// Matches the reactor's own TCP_NODELAY choice (see
		// reactor/socket_linux.go): JSON-RPC frames are small and
		// latency-sensitive, and neither side coalesces them itself.
		_ = tc.SetNoDelay(true)
	}

	return &Client{
		conn:   conn,
		reader: linestream.NewReader(cfg.readBufferSize()),
		writer: &linestream.Writer{},
		log:    cfg.logger(),
	}, nil
}

// Close releases the underlying connection. Any Call or Notify in
// progress will observe an I/O error.
func (c *Client) Close() error {
	return c.conn.Close()
}

// CallOne issues a single request and waits for its response. It is a
// convenience wrapper around Call for the common case of one
// non-notification request.
func (c *Client) CallOne(ctx context.Context, req streamrpc.Request) (streamrpc.Response, error) {
	responses, err := c.Call(ctx, streamrpc.One(req))
	if err != nil {
		return nil, err
	}
	return responses.Get(0), nil
}

// Call writes every request in reqs as its own LF-terminated frame,
// then reads responses until one has arrived for each non-notification
// request, matching them back to their request by ID (the wire gives
// no ordering guarantee across a batch).
//
// Notifications embedded in reqs are written but contribute no expected
// response; a reqs consisting entirely of notifications returns an
// empty set without attempting a read.
func (c *Client) Call(ctx context.Context, reqs streamrpc.BatchOrSingle[streamrpc.Request]) (streamrpc.BatchOrSingle[streamrpc.Response], error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cancelDeadline := c.applyDeadline(ctx)
	defer cancelDeadline()

	awaiting := make(map[string]int, reqs.Len())
	responses := make([]streamrpc.Response, reqs.Len())
	present := make([]bool, reqs.Len())

	var frames []byte
	for i := 0; i < reqs.Len(); i++ {
		req := reqs.Get(i)

		line, err := req.AppendLine(nil)
		if err != nil {
			return streamrpc.BatchOrSingle[streamrpc.Response]{}, errors.Wrap(err, "rpcclient: serialize request")
		}
		frames = append(frames, line...)

		if !req.IsNotification() {
			awaiting[string(req.ID)] = i
		}
	}

	if err := c.write(frames); err != nil {
		return streamrpc.BatchOrSingle[streamrpc.Response]{}, err
	}

	for len(awaiting) > 0 {
		line, err := c.reader.ReadOne(c.conn)
		if err != nil {
			return streamrpc.BatchOrSingle[streamrpc.Response]{}, classifyIOError(err)
		}

		res, err := streamrpc.ParseResponseLine(line)
		if err != nil {
			return streamrpc.BatchOrSingle[streamrpc.Response]{}, errors.Wrap(err, "rpcclient: parse response")
		}

		id := responseRequestID(res)
		i, ok := awaiting[string(id)]
		if !ok {
			c.log.Warn("discarding response with an unrecognized or duplicate id", zap.ByteString("id", id))
			continue
		}

		responses[i] = res
		present[i] = true
		delete(awaiting, string(id))
	}

	ordered := make([]streamrpc.Response, 0, len(responses))
	for i, ok := range present {
		if ok {
			ordered = append(ordered, responses[i])
		}
	}

	if reqs.IsBatch() || reqs.Len() > 1 {
		return streamrpc.Many(ordered...), nil
	}
	if len(ordered) == 0 {
		return streamrpc.BatchOrSingle[streamrpc.Response]{}, nil
	}
	return streamrpc.One(ordered[0]), nil
}

// NotifyOne is a convenience wrapper around Notify for a single request.
func (c *Client) NotifyOne(ctx context.Context, req streamrpc.Request) error {
	return c.Notify(ctx, streamrpc.One(req))
}

// Notify writes every request in reqs as its own frame and returns
// without reading; a notification never produces a response, so
// nothing would arrive to read even for a call-type request mistakenly
// passed here.
func (c *Client) Notify(ctx context.Context, reqs streamrpc.BatchOrSingle[streamrpc.Request]) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	cancelDeadline := c.applyDeadline(ctx)
	defer cancelDeadline()

	var frames []byte
	for i := 0; i < reqs.Len(); i++ {
		line, err := reqs.Get(i).AppendLine(nil)
		if err != nil {
			return errors.Wrap(err, "rpcclient: serialize request")
		}
		frames = append(frames, line...)
	}

	return c.write(frames)
}

// write enqueues frames and flushes them to the connection. Flush
// completes in one pass on a blocking net.Conn: Write either sends
// everything or fails, so the would-block path linestream.Writer.Flush
// supports for the reactor's non-blocking sockets never triggers here.
func (c *Client) write(frames []byte) error {
	if len(frames) == 0 {
		return nil
	}

	c.writer.Enqueue(frames)
	done, err := c.writer.Flush(c.conn)
	if err != nil {
		return classifyIOError(err)
	}
	if !done {
		return errors.New("rpcclient: partial write on a blocking connection")
	}
	return nil
}

// applyDeadline derives a net.Conn deadline from ctx and returns a
// cancel function that must be called once the operation completes, to
// stop the background watcher and clear the deadline.
//
// net.Conn has no direct notion of context.Context; this mirrors the
// watcher-goroutine pattern used throughout the Go ecosystem to let a
// context cancellation interrupt a blocking Read/Write.
func (c *Client) applyDeadline(ctx context.Context) (cancel func()) {
	if deadline, ok := ctx.Deadline(); ok {
		_ = c.conn.SetDeadline(deadline)
	}

	if ctx.Done() == nil {
		return func() {}
	}

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = c.conn.SetDeadline(time.Now())
		case <-stop:
		}
	}()

	return func() {
		close(stop)
		_ = c.conn.SetDeadline(time.Time{})
	}
}

// classifyIOError maps a net.Conn timeout (triggered by applyDeadline's
// watcher, or a caller-set deadline) onto streamrpc.ErrTimeout, and a
// graceful close onto streamrpc.ErrClosed, so callers can use errors.Is
// against the package's sentinels regardless of transport.
func classifyIOError(err error) error {
	if errors.Is(err, streamrpc.ErrClosed) {
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return errors.Mark(errors.Wrap(err, "rpcclient: deadline exceeded"), streamrpc.ErrTimeout)
	}

	return errors.Wrap(err, "rpcclient: I/O error")
}

// responseRequestID extracts the id field common to both response
// variants without a type switch at every call site.
func responseRequestID(res streamrpc.Response) json.RawMessage {
	switch r := res.(type) {
	case streamrpc.SuccessResponse:
		return r.RequestID
	case streamrpc.ErrorResponse:
		return r.RequestID
	default:
		return nil
	}
}
