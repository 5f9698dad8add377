package reactor

import "sync"

// clientPool hands out *client values sized to readBufferSize, reusing
// released instances (and their already-allocated read buffers) across
// connections.
//
// A Reactor owns exactly one clientPool rather than reaching for a
// package-level singleton; two reactors never share a pool.
type clientPool struct {
	readBufferSize int
	pool           sync.Pool
}

func newClientPool(readBufferSize int) *clientPool {
	p := &clientPool{readBufferSize: readBufferSize}
	p.pool.New = func() any {
		return newClient(p.readBufferSize)
	}
	return p
}

func (p *clientPool) get() *client {
	return p.pool.Get().(*client)
}

// put returns c to the pool. c must already be fully unlinked from the
// reactor's timeout list and client table; put does not do that
// bookkeeping itself, it only releases the memory for reuse.
func (p *clientPool) put(c *client) {
	c.fd = -1
	p.pool.Put(c)
}
