//go:build linux

package reactor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/dogmatiq/streamrpc"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reactor is a single-threaded, readiness-driven JSON-RPC server. See
// the package doc comment for its scheduling model.
type Reactor struct {
	cfg     Config
	log     *zap.Logger
	poll    poller
	listen  int
	clients map[int]*client
	pool    *clientPool
	timeout timeoutList

	// listening tracks whether the listening socket is currently
	// registered for read-readiness. It is deselected once the client
	// table is full and re-enabled the next time a slot frees.
	listening bool
}

// New constructs a Reactor bound to cfg.BindAddress. The listening
// socket is created immediately; call Run to start serving.
func New(cfg Config) (*Reactor, error) {
	if cfg.MaxClients <= 0 {
		return nil, errors.New("reactor: Config.MaxClients must be positive")
	}
	if cfg.Handler == nil {
		return nil, errors.New("reactor: Config.Handler is required")
	}
	if n := cfg.readBufferSize(); n < MinReadBufferSize {
		return nil, errors.Wrapf(streamrpc.ErrBufferTooSmall, "reactor: Config.ReadBufferSize must be at least %d bytes (got %d)", MinReadBufferSize, n)
	}

	listenFd, err := listen(cfg.BindAddress)
	if err != nil {
		return nil, errors.Wrapf(err, "reactor: bind %s", cfg.BindAddress)
	}

	p, err := newEpollPoller()
	if err != nil {
		_ = fdConn(listenFd).Close()
		return nil, errors.Wrap(err, "reactor: create poller")
	}

	if err := p.add(listenFd, interestRead); err != nil {
		_ = fdConn(listenFd).Close()
		_ = p.close()
		return nil, errors.Wrap(err, "reactor: register listener")
	}

	return &Reactor{
		cfg:       cfg,
		log:       cfg.logger(),
		poll:      p,
		listen:    listenFd,
		clients:   make(map[int]*client, cfg.MaxClients),
		pool:      newClientPool(cfg.readBufferSize()),
		listening: true,
	}, nil
}

// Addr returns the "host:port" the listening socket is bound to. Useful
// when Config.BindAddress requested an ephemeral port (":0").
func (r *Reactor) Addr() (string, error) {
	return localAddr(r.listen)
}

// Close releases the reactor's listening socket and poller, and closes
// every currently-open client connection. It does not wait for Run to
// return; cancel Run's context first if it is still running.
func (r *Reactor) Close() error {
	for _, c := range r.clients {
		r.closeClient(c, closeReasonShutdown)
	}

	err := fdConn(r.listen).Close()
	if perr := r.poll.close(); err == nil {
		err = perr
	}
	return err
}

// Run drives the event loop until ctx is canceled or a fatal error
// occurs accepting connections or waiting on the poller. Per-connection
// errors never reach this return value; they are logged and the
// offending connection is closed.
func (r *Reactor) Run(ctx context.Context) error {
	var events []readiness

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		timeout := r.nextPollTimeout()

		var err error
		events, err = r.poll.wait(events[:0], timeout)
		if err != nil {
			return errors.Wrap(err, "reactor: poll wait")
		}

		now := timeNow()
		for _, c := range r.timeout.expired(now) {
			r.log.Debug("client idle timeout", zap.String("client", c.id.String()))
			// shutdown(recv) lets any in-flight write finish draining;
			// the next read attempt observes graceful close and the
			// client is removed then.
			_ = fdConn(c.fd).shutdownRecv()
		}

		for _, ev := range events {
			if ev.fd == r.listen {
				r.acceptLoop()
				continue
			}

			c, ok := r.clients[ev.fd]
			if !ok {
				continue // client was already closed earlier in this batch
			}

			if ev.events&interestWrite != 0 && c.isWriting() {
				r.handleWritable(ctx, c)
			}
			if _, stillOpen := r.clients[ev.fd]; stillOpen && ev.events&interestRead != 0 && !c.isWriting() {
				r.handleReadable(ctx, c)
			}
		}
	}
}

// nextPollTimeout computes how long the poller may block: just long
// enough to reach the oldest client's deadline.
func (r *Reactor) nextPollTimeout() time.Duration {
	deadline, ok := r.timeout.nextDeadline()
	if !ok {
		return -1
	}

	d := deadline.Sub(timeNow())
	if d < 0 {
		return 0
	}
	return d
}

// acceptLoop accepts connections until the listener would block or the
// client table is full.
func (r *Reactor) acceptLoop() {
	for len(r.clients) < r.cfg.MaxClients {
		fd, err := acceptOne(r.listen)
		if err != nil {
			if errors.Is(err, streamrpc.ErrWouldBlock) {
				return
			}
			r.log.Warn("accept failed", zap.Error(err))
			return
		}

		id := ClientID(uuid.New())
		c := r.pool.get()
		c.reset(fd, id, timeNow().Add(r.cfg.readTimeout()))

		if err := r.poll.add(fd, interestRead); err != nil {
			r.log.Warn("failed to register accepted client", zap.Error(err))
			_ = fdConn(fd).Close()
			r.pool.put(c)
			continue
		}

		r.clients[fd] = c
		r.timeout.pushBack(c)
		r.cfg.Metrics.clientAccepted()
	}

	if len(r.clients) >= r.cfg.MaxClients && r.listening {
		_ = r.poll.remove(r.listen)
		r.listening = false
	}
}

// handleReadable drains every complete frame currently available on c,
// invokes the handler once with the whole batch, and queues the
// resulting responses for writing.
func (r *Reactor) handleReadable(ctx context.Context, c *client) {
	lines, err := c.reader.Drain(fdConn(c.fd))
	if err != nil {
		r.closeClientForReadError(c, err)
		return
	}

	r.timeout.moveToBack(c, timeNow().Add(r.cfg.readTimeout()))

	if len(lines) == 0 {
		return
	}

	r.cfg.Metrics.framesRead(len(lines))

	reqs, parseErr := streamrpc.ParseRequests(joinLines(lines))
	if parseErr != nil {
		// A malformed batch still gets a best-effort error response. The
		// offending request's id is salvaged when ParseRequestLine could
		// recover one (it validates the id before anything else for
		// exactly this reason); only an id that could not be parsed or
		// validated at all falls back to id:null. The connection itself
		// stays open since this is the peer's mistake, not ours.
		var id json.RawMessage
		if reqs.Len() > 0 {
			id = reqs.Get(0).ID
		}
		res := streamrpc.NewErrorResponse(id, classifyParseError(parseErr))
		r.enqueueResponses(c, []streamrpc.Response{res})
		return
	}

	start := timeNow()
	responses, handlerErr := r.cfg.Handler(ctx, c.id, reqs)
	r.cfg.Metrics.handlerDuration(timeNow().Sub(start).Seconds())

	if handlerErr != nil {
		r.log.Warn("handler returned an error; closing client",
			zap.String("client", c.id.String()),
			zap.Error(handlerErr),
		)
		r.closeClient(c, closeReasonHandler)
		return
	}

	if len(responses) == 0 {
		return
	}

	r.enqueueResponses(c, responses)
}

func (r *Reactor) enqueueResponses(c *client, responses []streamrpc.Response) {
	frames := make([][]byte, 0, len(responses))
	for _, res := range responses {
		line, err := res.AppendLine(nil)
		if err != nil {
			r.log.Error("failed to serialize response", zap.Error(err))
			continue
		}
		frames = append(frames, line)
	}

	if len(frames) == 0 {
		return
	}

	c.writer.Enqueue(frames...)
	r.flushWriter(c)
}

// flushWriter attempts to drain c's pending writes immediately. If
// bytes remain, it flips c's interest mask to write-only so the reactor
// stops reading from a client whose peer cannot keep up.
func (r *Reactor) flushWriter(c *client) {
	done, err := c.writer.Flush(fdConn(c.fd))
	if err != nil {
		r.log.Warn("write failed; closing client",
			zap.String("client", c.id.String()),
			zap.Error(err),
		)
		r.closeClient(c, closeReasonError)
		return
	}

	if done {
		r.cfg.Metrics.framesWritten(1)
		if c.isWriting() {
			c.finishWriting()
			c.interest = interestRead
			_ = r.poll.modify(c.fd, interestRead)
		}
		return
	}

	if !c.isWriting() {
		c.beginWriting()
	}
	c.interest = interestWrite
	_ = r.poll.modify(c.fd, interestWrite)
}

func (r *Reactor) handleWritable(_ context.Context, c *client) {
	r.flushWriter(c)
}

func (r *Reactor) closeClientForReadError(c *client, err error) {
	switch {
	case errors.Is(err, streamrpc.ErrClosed):
		r.closeClient(c, closeReasonPeer)
	default:
		r.log.Warn("read failed; closing client",
			zap.String("client", c.id.String()),
			zap.Error(err),
		)
		r.closeClient(c, closeReasonError)
	}
}

func (r *Reactor) closeClient(c *client, reason string) {
	r.timeout.remove(c)
	delete(r.clients, c.fd)
	_ = r.poll.remove(c.fd)
	_ = fdConn(c.fd).Close()
	r.cfg.Metrics.clientClosed(reason)
	r.pool.put(c)

	if !r.listening && len(r.clients) < r.cfg.MaxClients {
		if err := r.poll.add(r.listen, interestRead); err == nil {
			r.listening = true
		}
	}
}

// joinLines re-concatenates the LF-delimited frames drained from one
// client.reader.Drain call into the single buffer streamrpc.ParseRequests
// expects, restoring the newline each Drain call strips when it carves
// out a frame.
func joinLines(lines [][]byte) []byte {
	n := 0
	for _, l := range lines {
		n += len(l) + 1
	}

	buf := make([]byte, 0, n)
	for _, l := range lines {
		buf = append(buf, l...)
		buf = append(buf, '\n')
	}
	return buf
}

// classifyParseError maps a streamrpc request-parsing failure onto the
// JSON-RPC error code prescribed for an unparseable request.
func classifyParseError(err error) streamrpc.Error {
	if errors.Is(err, streamrpc.ErrSyntax) {
		return streamrpc.NewErrorWithReservedCode(streamrpc.ParseErrorCode, streamrpc.WithMessage("Parse error"), streamrpc.WithCause(err))
	}
	return streamrpc.NewErrorWithReservedCode(streamrpc.InvalidRequestCode, streamrpc.WithMessage("Invalid Request"), streamrpc.WithCause(err))
}

// timeNow is a seam over time.Now so tests can control the reactor's
// notion of "now" without sleeping real wall-clock time.
var timeNow = time.Now
