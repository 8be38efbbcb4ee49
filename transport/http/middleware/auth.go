package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"lodge/config"
	"lodge/infras/jwt"
	"lodge/infras/otel"
	"lodge/permissions"
	"lodge/shared/constant"
	"lodge/shared/failure"
	"lodge/transport/http/response"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type SkipAuthKey string

const skipAuthKey = SkipAuthKey("skip")

// Auth defines the interface for authentication middleware
type Auth interface {
	Auth(http.Handler) http.Handler
	APIKey(http.Handler) http.Handler
}

// Role defines the interface for role-based access control middleware
type Role interface {
	RBAC(http.Handler) http.Handler
}

// AuthRole combines all middleware interfaces
type AuthRole interface {
	Auth
	Role
}

type authRoleImpl struct {
	jwtService jwt.JWT
	otel       otel.Otel
	permission *permissions.PermissionData
	cfg        *config.Config
}

func NewAuthRoleMiddleware(jwtService jwt.JWT, otel otel.Otel, permissions *permissions.PermissionData, cfg *config.Config) AuthRole {
	return &authRoleImpl{
		jwtService: jwtService,
		otel:       otel,
		permission: permissions,
		cfg:        cfg,
	}
}

// routePermission resolves the permission entry of the route the request will hit.
// Unknown routes get the zero Permission, which requires a token but no particular role.
func (m *authRoleImpl) routePermission(request *http.Request) (string, permissions.Permission) {
	rctx := chi.RouteContext(request.Context())
	if rctx == nil || rctx.Routes == nil {
		return request.URL.Path, permissions.Permission{}
	}

	path := normalizePattern(rctx.Routes.Find(chi.NewRouteContext(), request.Method, request.URL.Path))

	if m.permission == nil {
		return path, permissions.Permission{}
	}

	permission, _ := m.permission.FindPermissions(path, request.Method)

	return path, permission
}

// normalizePattern folds the trailing slash chi leaves on sub router index routes.
func normalizePattern(pattern string) string {
	for strings.Contains(pattern, "//") {
		pattern = strings.ReplaceAll(pattern, "//", "/")
	}

	if len(pattern) > 1 {
		pattern = strings.TrimSuffix(pattern, "/")
	}

	return pattern
}

// Auth validates the bearer token and places the caller's identity in the context.
// Routes marked optional accept anonymous callers; routes marked skip never look at the token.
func (m *authRoleImpl) Auth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		ctx := request.Context()
		_, scope := m.otel.NewScope(ctx, constant.OtelHandlerScopeName, "auth.middleware")

		if skip, _ := ctx.Value(skipAuthKey).(bool); skip {
			scope.End()
			next.ServeHTTP(writer, request)

			return
		}

		path, permission := m.routePermission(request)

		scope.SetAttributes(map[string]any{
			"middleware.type": "auth",
			"http.path":       path,
			"http.method":     request.Method,
		})

		if permission.Skip {
			scope.End()
			next.ServeHTTP(writer, request)

			return
		}

		authHeader := request.Header.Get(constant.RequestHeaderAuthorization)
		if authHeader == constant.Empty {
			if permission.Optional {
				scope.End()
				next.ServeHTTP(writer, request)

				return
			}

			err := failure.Unauthorized("Missing authorization header")
			response.WithError(writer, err)

			scope.TraceError(err)
			scope.End()

			return
		}

		tokenString, err := jwt.ExtractTokenFromHeader(authHeader)
		if err != nil {
			err := failure.Unauthorized("Invalid authorization header format")
			response.WithError(writer, err)

			scope.TraceError(err)
			scope.End()

			return
		}

		claims, err := m.jwtService.ValidateToken(tokenString)
		if err != nil {
			var message string

			switch {
			case errors.Is(err, jwt.ErrExpiredToken):
				message = "Token has expired"
			case errors.Is(err, jwt.ErrInvalidToken):
				message = "Invalid token"
			default:
				message = "Token validation failed"
			}

			err := failure.Unauthorized(message)
			response.WithError(writer, err)

			scope.TraceError(err)
			scope.End()

			return
		}

		if claims.Email == constant.Empty {
			log.Error().Str("userId", claims.UserID).Msg("JWT claims: Email is empty")

			err := failure.Unauthorized("Invalid token claims")
			response.WithError(writer, err)

			scope.TraceError(err)
			scope.End()

			return
		}

		role := claims.Role
		if role == constant.Empty || role == constant.RoleSystem {
			// system is reserved for API key callers
			role = constant.RoleCustomer
		}

		ctx = context.WithValue(ctx, constant.ContextKeyUserID, claims.UserID)
		ctx = context.WithValue(ctx, constant.ContextKeyUserEmail, claims.Email)
		ctx = context.WithValue(ctx, constant.ContextKeyUserRole, role)
		ctx = context.WithValue(ctx, constant.ContextKeyTokenID, claims.TokenID)

		scope.End()

		next.ServeHTTP(writer, request.WithContext(ctx))
	})
}

// RBAC checks the caller's role against the route's allowed roles.
// Requires prior authentication via Auth or APIKey.
func (m *authRoleImpl) RBAC(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		ctx := request.Context()
		_, scope := m.otel.NewScope(ctx, constant.OtelHandlerScopeName, "rbac.middleware")

		if m.permission == nil {
			scope.End()
			response.WithError(writer, failure.ForbiddenError)

			return
		}

		if m.permission.Skip {
			scope.End()
			next.ServeHTTP(writer, request)

			return
		}

		_, permission := m.routePermission(request)

		if permission.Skip {
			scope.End()
			next.ServeHTTP(writer, request)

			return
		}

		userRole, _ := ctx.Value(constant.ContextKeyUserRole).(string)

		if !permission.Allows(userRole) {
			var err error = failure.ForbiddenError
			if userRole == constant.Empty {
				err = failure.UnauthenticatedError
			}

			scope.TraceError(err)
			scope.SetAttributes(map[string]any{
				"user_role":     userRole,
				"allowed_roles": permission.Permissions,
				"reason":        "role_not_allowed",
			})
			scope.End()
			response.WithError(writer, err)

			return
		}

		scope.End()
		next.ServeHTTP(writer, request)
	})
}

// APIKey authenticates the payment subsystem. A matching X-API-Key makes the caller the system actor
// and bypasses token validation; a wrong key is rejected outright.
func (m *authRoleImpl) APIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		ctx := request.Context()
		_, scope := m.otel.NewScope(ctx, constant.OtelHandlerScopeName, "api_key.middleware")

		apiKey := request.Header.Get(constant.RequestHeaderAPIKey)

		if apiKey == constant.Empty {
			scope.SetAttribute("http.source", "client")
			scope.End()
			next.ServeHTTP(writer, request)

			return
		}

		scope.SetAttribute("http.source", "internal")

		expected := m.cfg.App.APIKey
		if expected == constant.Empty || subtle.ConstantTimeCompare([]byte(apiKey), []byte(expected)) != 1 {
			err := failure.ForbiddenError

			response.WithError(writer, err)

			scope.TraceError(err)
			scope.End()

			return
		}

		ctx = context.WithValue(ctx, skipAuthKey, true)
		ctx = context.WithValue(ctx, constant.ContextKeyUserID, constant.Empty)
		ctx = context.WithValue(ctx, constant.ContextKeyUserRole, constant.RoleSystem)

		scope.End()
		next.ServeHTTP(writer, request.WithContext(ctx))
	})
}
