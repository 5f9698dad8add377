package streamrpc

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ExchangeMessages resolves every request in reqs against e, returning one
// Response per call-type request, in the same order those requests
// appeared in reqs. Notifications contribute no response.
//
// If reqs contains more than one request, each is dispatched to e on its
// own goroutine (mirroring the JSON-RPC specification's requirement that
// batched requests may be processed in any order) and responses are
// collected back into request order; a single (non-batched) request is
// handled inline, without the overhead of starting a goroutine.
//
// This is the shared implementation behind streamrpc/reactor's default
// per-connection handler and is equally usable by any other transport
// that drains a set of frames and wants JSON-RPC dispatch semantics.
func ExchangeMessages(
	ctx context.Context,
	e Exchanger,
	reqs BatchOrSingle[Request],
	l ExchangeLogger,
) []Response {
	if l == nil {
		l = DefaultExchangeLogger{}
	}

	if reqs.Len() == 1 {
		req := reqs.Get(0)
		res, ok := exchangeOne(ctx, e, req, l)
		if !ok {
			return nil
		}
		return []Response{res}
	}

	return exchangeMany(ctx, e, reqs, l)
}

// exchangeOne dispatches a single request to e, returning ok=false for a
// notification (which has no response).
func exchangeOne(ctx context.Context, e Exchanger, req Request, l ExchangeLogger) (Response, bool) {
	if req.IsNotification() {
		e.Notify(ctx, req)
		l.LogNotification(ctx, req)
		return nil, false
	}

	res := e.Call(ctx, req)
	l.LogCall(ctx, req, res)
	return res, true
}

// exchangeMany dispatches every request in reqs concurrently, preserving
// request order in the returned slice.
func exchangeMany(ctx context.Context, e Exchanger, reqs BatchOrSingle[Request], l ExchangeLogger) []Response {
	n := reqs.Len()
	responses := make([]Response, n)
	present := make([]bool, n)

	var (
		m sync.Mutex
		g errgroup.Group
	)

	for i := 0; i < n; i++ {
		i := i
		req := reqs.Get(i)

		g.Go(func() error {
			res, ok := exchangeOne(ctx, e, req, l)
			if ok {
				m.Lock()
				responses[i] = res
				present[i] = true
				m.Unlock()
			}
			return nil
		})
	}

	_ = g.Wait() // exchangeOne never returns a non-nil error.

	out := make([]Response, 0, n)
	for i, ok := range present {
		if ok {
			out = append(out, responses[i])
		}
	}

	return out
}
