package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/nikhilkumar000/Intern/internal/utils"
)

type apiError struct {
	Success bool       `json:"success"`
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

// accountClaims matches tokens issued by the account service: the user id is
// carried in "id" (older tokens) or "sub".
type accountClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"id"`
	Role   string `json:"role"`
}

var (
	errMissingToken = errors.New("missing token")
	errInvalidToken = errors.New("invalid token")
)

// JWTAuth rejects requests without a valid HS256 token.
func JWTAuth(secret string) gin.HandlerFunc {
	return jwtAuth(secret, true)
}

// OptionalJWT sets user_id and role when a token is present. Requests without
// one pass through anonymously; a bad token is still rejected.
func OptionalJWT(secret string) gin.HandlerFunc {
	return jwtAuth(secret, false)
}

func jwtAuth(secret string, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			if !required {
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusInternalServerError, apiError{
				Code:    utils.CodeInternal,
				Message: "JWT_SECRET is not set",
			})
			return
		}

		userID, role, err := authenticate(c, secret)
		if err != nil {
			if !required && errors.Is(err, errMissingToken) {
				c.Next()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, apiError{
				Code:    utils.CodeUnauthorized,
				Message: err.Error(),
			})
			return
		}

		c.Set("user_id", userID)
		c.Set("role", role)
		c.Next()
	}
}

func authenticate(c *gin.Context, secret string) (string, string, error) {
	raw := bearer(c)
	if raw == "" {
		return "", "", errMissingToken
	}

	claims := &accountClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || tok == nil || !tok.Valid {
		return "", "", errInvalidToken
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return "", "", errors.New("missing subject")
	}

	role := strings.ToLower(strings.TrimSpace(claims.Role))
	if role == "" {
		role = "user"
	}
	return userID, role, nil
}

// bearer reads the Authorization header, falling back to the token cookie.
func bearer(c *gin.Context) string {
	if auth := c.GetHeader("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	if v, err := c.Cookie("token"); err == nil {
		return strings.TrimSpace(v)
	}
	return ""
}
