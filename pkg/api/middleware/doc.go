// Package middleware provides the HTTP middleware of the model store.
//
// All middleware follows the standard pattern: func(http.Handler) http.Handler
//
//	handler := middleware.Recovery(logger)(mux)
//	handler = middleware.RequestID()(handler)
//	handler = middleware.Logging(logger)(handler)
package middleware
