package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/edulive/classpulse/core"
	"github.com/edulive/classpulse/core/session"
)

const contextTokenKey = "roleToken"

// Claims represents the role claims transmitted via a JWT: which portal the
// caller picked and, for students, their display name.
type Claims struct {
	jwt.StandardClaims
	Role        session.Role `json:"role,omitempty"`
	StudentName string       `json:"student_name,omitempty"`
}

func (c Claims) IsTeacher() bool { return c.Role == session.RoleTeacher }
func (c Claims) IsStudent() bool { return c.Role == session.RoleStudent }

func newJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    contextTokenKey,
		Claims:        new(Claims),
	}
}

// GetRoleClaims builds the claims issued when a caller picks a role.
func GetRoleClaims(conf *core.Config, sessionID string, role session.Role, studentName string) *Claims {
	now := time.Now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   sessionID,
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  now.Unix(),
		},
		Role:        role,
		StudentName: studentName,
	}
}

// GenerateToken generates a signed JWT token string representing the Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)
	return token.SignedString([]byte(conf.SecretKey))
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(contextTokenKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

// teacherMiddleware restricts a route to callers holding a teacher token.
func teacherMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(session.RoleTeacher)
}

// studentMiddleware restricts a route to callers holding a student token.
func studentMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(session.RoleStudent)
}

func roleMiddleware(role session.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			if claims.Role != role {
				return errHttpForbidden
			}
			return next(ctx)
		}
	}
}
