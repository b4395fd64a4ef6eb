package echoapi

import (
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/admissions/core/account"
	"github.com/trezcool/admissions/services/ratelimit"
)

func adminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if account.IsAdminRole(claims.Role) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// roleMiddleware only lets through tokens carrying one of `roles`.
func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			for _, role := range roles {
				if claims.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

// rateLimitMiddleware throttles requests per client IP; `scope` keeps the endpoints' counters apart.
func rateLimitMiddleware(limiter ratelimit.Limiter, scope string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if limiter == nil {
				return next(ctx)
			}
			if !limiter.Allow(scope + ":" + ctx.RealIP()) {
				return errTooManyRequests
			}
			return next(ctx)
		}
	}
}
