package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"persona-probe/internal/service"
)

const (
	readerClaimsKey  = "reader_claims"
	readerSubjectKey = "reader_subject"
)

// JWTAuthMiddleware exige un token de lectura valido en Authorization: Bearer.
func JWTAuthMiddleware(jwtSvc *service.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if jwtSvc == nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "jwt not configured"})
			return
		}
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			unauthorized(c, "missing token")
			return
		}
		claims, err := jwtSvc.ParseReaderToken(token)
		switch {
		case errors.Is(err, service.ErrJWTExpired):
			unauthorized(c, "token expired")
			return
		case errors.Is(err, service.ErrJWTRevoked):
			unauthorized(c, "token revoked")
			return
		case err != nil:
			unauthorized(c, "invalid token")
			return
		}
		c.Set(readerClaimsKey, claims)
		c.Set(readerSubjectKey, claims.Subject)
		c.Next()
	}
}

// GetAuthClaims devuelve los claims que dejo el middleware.
func GetAuthClaims(c *gin.Context) (service.Claims, bool) {
	v, ok := c.Get(readerClaimsKey)
	if !ok {
		return service.Claims{}, false
	}
	claims, ok := v.(service.Claims)
	return claims, ok
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="persona-probe"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}
