package echoapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/profpay/profpay/core/navigation"
	"github.com/profpay/profpay/core/user"
	metricsvc "github.com/profpay/profpay/services/metrics"
)

const (
	contentSecurityPolicy = "default-src 'self'; img-src 'self' data:; style-src 'self' 'unsafe-inline'; frame-ancestors 'none'"
	permissionsPolicy     = "geolocation=(), microphone=(), camera=()"
)

// cookieTokenMiddleware copies the access token cookie to the Authorization header when it is missing.
func cookieTokenMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		req := ctx.Request()
		if req.Header.Get(echo.HeaderAuthorization) == "" {
			if ck, err := ctx.Cookie(accessCookie); err == nil && ck.Value != "" {
				req.Header.Set(echo.HeaderAuthorization, middleware.DefaultJWTConfig.AuthScheme+" "+ck.Value)
			}
		}
		return next(ctx)
	}
}

// userMiddleware rejects refresh tokens and loads the active user of the token.
func userMiddleware(svc *user.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if claims.Type != tokenTypeAccess {
				return errInvalidToken
			}

			usr, err := svc.GetByID(ctx.Request().Context(), claims.UserID)
			if err != nil {
				if errors.Cause(err) == user.ErrNotFound {
					return errInvalidToken
				}
				return errors.Wrap(err, "finding user by ID")
			}
			if !usr.IsActive {
				return errAccountDeactivated
			}
			ctx.Set(userContextKey, usr)
			return next(ctx)
		}
	}
}

func rolesMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			usr, err := getContextUser(ctx)
			if err != nil {
				return err
			}
			if usr.HasAnyRole(roles...) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

var (
	writerMiddleware = rolesMiddleware(user.WriteRoles...)
	adminMiddleware  = rolesMiddleware(user.RoleAdmin)
)

// throttleMiddleware drops repeated triggers of an action by the same user within the throttle window.
// A dropped request is answered with 204 and does nothing.
func throttleMiddleware(throttle *navigation.Throttle, metrics *metricsvc.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			key := ctx.RealIP()
			if claims, err := getContextClaims(ctx); err == nil {
				key = fmt.Sprintf("user:%d", claims.UserID)
			}
			if throttle.Allow(key + " " + ctx.Request().Method + " " + ctx.Path()) {
				return next(ctx)
			}
			if metrics != nil {
				metrics.Throttled(ctx.Path())
			}
			return ctx.NoContent(http.StatusNoContent)
		}
	}
}

func securityMiddleware() echo.MiddlewareFunc {
	secure := middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		ContentSecurityPolicy: contentSecurityPolicy,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	})
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return secure(func(ctx echo.Context) error {
			ctx.Response().Header().Set("Permissions-Policy", permissionsPolicy)
			return next(ctx)
		})
	}
}

func corsMiddleware(origins []string) echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		ExposeHeaders:    []string{"Link", echo.HeaderXRequestID, echo.HeaderContentDisposition},
		AllowCredentials: true,
	})
}

func requestIDMiddleware() echo.MiddlewareFunc {
	return middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.New().String() },
	})
}

// skipPaths skips the request logs of the probes.
func skipPaths(paths ...string) middleware.Skipper {
	return func(ctx echo.Context) bool {
		p := ctx.Request().URL.Path
		for _, path := range paths {
			if strings.HasPrefix(p, path) {
				return true
			}
		}
		return false
	}
}
