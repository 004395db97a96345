package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/flighthours/internal/core"
)

// withRequestMetadata adds the client IP and User-Agent to ctx for import logging.
func withRequestMetadata(ctx context.Context, r *http.Request) context.Context {
	ctx = core.ContextWithClientIP(ctx, clientIP(r))
	ctx = core.ContextWithUserAgent(ctx, r.UserAgent())
	return ctx
}
