// Package linestream implements the buffered, resumable JSON Lines framer
// that sits between a raw byte stream and the JSON-RPC object model.
//
// A Reader extracts zero or more complete LF-delimited frames from
// whatever bytes a connection has produced so far, tolerating partial
// reads, multiple frames per read, and buffer compaction. A Writer
// accumulates pre-serialized frames and flushes them with a single
// vectored write, resuming automatically across partial writes.
//
// Neither type performs socket I/O itself or assumes blocking or
// non-blocking semantics; both operate purely in terms of io.Reader and
// io.Writer, reporting streamrpc.ErrWouldBlock when the supplied source
// or destination cannot make progress right now. streamrpc/reactor
// drives these types over a non-blocking, epoll-registered file
// descriptor; streamrpc/rpcclient drives them over an ordinary blocking
// net.Conn.
package linestream
