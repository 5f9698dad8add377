// Package rpcclient implements a client peer that dials a streamrpc
// server, issues calls and notifications over a persistent, line-framed
// TCP connection, and decodes the responses.
//
// Client operates in blocking mode, reusing linestream.Reader/Writer
// over a plain *net.TCPConn exactly as the reactor reuses them over a
// raw, non-blocking socket descriptor; the framing layer does not care
// which. DialNonBlocking (Linux only) gives advanced callers the same
// primitives over a non-blocking descriptor, for embedding a client
// inside their own readiness loop instead of a dedicated goroutine.
package rpcclient
