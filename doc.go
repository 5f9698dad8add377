// Package streamrpc implements JSON-RPC 2.0 over a persistent TCP byte
// stream, using newline-delimited JSON ("JSON Lines") as the frame
// delimiter instead of the HTTP or JSON-array-batch transports normally
// associated with JSON-RPC.
//
// The package provides the request/response object model and error
// taxonomy used by every other package in this module:
//
//   - streamrpc/linestream parses and serializes LF-delimited frames from
//     a non-blocking byte stream.
//   - streamrpc/reactor is a single-threaded, readiness-driven server that
//     multiplexes many client connections over that framing.
//   - streamrpc/rpcclient is a client built from the same framing.
//
// See https://www.jsonrpc.org/specification for the wire protocol this
// package is based on. Batching departs from that specification
// deliberately: a batch here is a run of LF-delimited JSON objects within
// one read, not a single JSON array. See BatchOrSingle.
package streamrpc
