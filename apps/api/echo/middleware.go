package echoapi

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

func adminMiddleware(a *authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := a.currentUser(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context user")
			}
			if usr.IsAdmin() {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// optionalAuth applies jwt only to requests carrying an Authorization header.
func optionalAuth(jwt echo.MiddlewareFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		authed := jwt(next)
		return func(ctx echo.Context) error {
			if ctx.Request().Header.Get(echo.HeaderAuthorization) == "" {
				return next(ctx)
			}
			return authed(ctx)
		}
	}
}

func requestLogger(zl *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			start := time.Now()
			err := next(ctx)
			if err != nil {
				ctx.Error(err) // commits the response, so the status below is final
			}

			req, res := ctx.Request(), ctx.Response()
			fields := []zap.Field{
				zap.String("request_id", res.Header().Get(echo.HeaderXRequestID)),
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.Int("status", res.Status),
				zap.Int64("bytes_out", res.Size),
				zap.Duration("latency", time.Since(start)),
				zap.String("remote_ip", ctx.RealIP()),
			}
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				fields = append(fields, zap.String("user_id", claims.Subject))
			}

			switch {
			case res.Status >= 500:
				zl.Error("request", fields...)
			case res.Status >= 400:
				zl.Warn("request", fields...)
			default:
				zl.Info("request", fields...)
			}
			return nil
		}
	}
}
