package ratelimit

import (
	xhttp "SigmaSync/pkg/http"

	"github.com/labstack/echo/v4"
)

// Middleware rejects clients over their budget with a 429. Clients are keyed
// by echo's RealIP.
func Middleware(l *Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !l.Allow(c.RealIP()) {
				return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("rate limit exceeded"))
			}
			return next(c)
		}
	}
}
