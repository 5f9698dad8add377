package streamrpc

import (
	"context"
	"fmt"

	"github.com/dogmatiq/streamrpc/internal/jsonx"
)

// UntypedHandler produces a result value (or error) for a request for a
// specific method.
//
// res is the result value to include in a successful response, not the
// response itself; if err is non-nil an error response is produced
// instead and res is ignored. If req is a notification, res is always
// ignored.
type UntypedHandler func(ctx context.Context, req Request) (res any, err error)

// Router is an Exchanger that dispatches to different handlers based on
// the JSON-RPC method name.
type Router struct {
	routes map[string]UntypedHandler
}

// NewRouter returns a new Router with the given routes installed.
func NewRouter(options ...RouterOption) *Router {
	r := &Router{}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Call handles a call request and returns its response.
//
// If no handler is registered for the request's method it returns a
// "method not found" error response.
func (r *Router) Call(ctx context.Context, req Request) Response {
	h, ok := r.routes[req.Method]
	if !ok {
		return NewErrorResponse(req.ID, MethodNotFound())
	}

	result, err := h(ctx, req)
	if err != nil {
		return NewErrorResponse(req.ID, err)
	}

	return NewSuccessResponse(req.ID, result)
}

// Notify handles a notification request.
//
// If no handler is registered for the request's method, it does nothing.
func (r *Router) Notify(ctx context.Context, req Request) {
	if h, ok := r.routes[req.Method]; ok {
		_, _ = h(ctx, req)
	}
}

// HasRoute returns true if a handler is registered for method.
func (r *Router) HasRoute(method string) bool {
	_, ok := r.routes[method]
	return ok
}

// RouterOption configures a single route on a Router.
type RouterOption func(*Router)

// WithRoute returns a RouterOption that routes method m to h.
//
// P is the type request parameters are unmarshaled into; R is the type
// marshaled into a successful response's result.
func WithRoute[P, R any](
	m string,
	h func(context.Context, P) (R, error),
	options ...jsonx.UnmarshalOption,
) RouterOption {
	return WithUntypedRoute(
		m,
		func(ctx context.Context, req Request) (any, error) {
			var params P
			if err := req.UnmarshalParameters(&params, options...); err != nil {
				return nil, err
			}
			return h(ctx, params)
		},
	)
}

// NoResult adapts a handler function with no JSON-RPC result value so it
// can be used with WithRoute.
func NoResult[P any](h func(context.Context, P) error) func(context.Context, P) (any, error) {
	return func(ctx context.Context, params P) (any, error) {
		return nil, h(ctx, params)
	}
}

// WithUntypedRoute returns a RouterOption that routes method m to the
// untyped handler h.
func WithUntypedRoute(m string, h UntypedHandler) RouterOption {
	return func(r *Router) {
		if _, ok := r.routes[m]; ok {
			panic(fmt.Sprintf("duplicate route for %q method", m))
		}
		if r.routes == nil {
			r.routes = map[string]UntypedHandler{}
		}
		r.routes[m] = h
	}
}
