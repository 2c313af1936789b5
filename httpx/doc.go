// Package httpx provides the net/http middlewares of the operational server.
//
// Compose them with Wrap; the first middleware is the outermost:
//
//	h := httpx.Wrap(mux,
//		httpx.RequestID(),
//		httpx.AccessLog(logger),
//		httpx.Recover(logger),
//	)
//
// Write endpoints can additionally be protected with TokenGuard.
package httpx
