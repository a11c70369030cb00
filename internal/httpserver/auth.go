package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"wexcommerce/internal/auth"
	"wexcommerce/internal/domain"
	usersvc "wexcommerce/internal/service/user"
)

const claimsKey = "claims"

type signInRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	CartID   string `json:"cartId"`
}

type signInResponse struct {
	User        *domain.User `json:"user"`
	AccessToken string       `json:"accessToken"`
	TokenType   string       `json:"tokenType"`
}

func (h *handlers) signUp(c *gin.Context) {
	var req usersvc.SignUpInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid body")
		return
	}
	u, err := h.deps.UserSvc.SignUp(c.Request.Context(), req)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (h *handlers) signIn(c *gin.Context) {
	var req signInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "email and password are required")
		return
	}
	u, token, err := h.deps.UserSvc.SignIn(c.Request.Context(), req.Email, req.Password, req.CartID)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, signInResponse{User: u, AccessToken: token, TokenType: "Bearer"})
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// optionalAuth attaches claims when a valid token is present and ignores
// missing or invalid ones.
func optionalAuth(tokens tokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if claims, err := tokens.Parse(token); err == nil {
				c.Set(claimsKey, claims)
			}
		}
		c.Next()
	}
}

func requireAuth(tokens tokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := tokens.Parse(bearerToken(c))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse{Message: "unauthorized"})
			return
		}
		c.Set(claimsKey, claims)
		c.Next()
	}
}

func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := claimsFrom(c)
		if claims == nil || !claims.IsAdmin() {
			c.AbortWithStatusJSON(http.StatusForbidden, errorResponse{Message: "forbidden"})
			return
		}
		c.Next()
	}
}

// sameUser rejects requests whose :user path parameter is not the caller.
func sameUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := claimsFrom(c)
		if claims == nil || claims.UserID() != c.Param("user") {
			c.AbortWithStatusJSON(http.StatusForbidden, errorResponse{Message: "forbidden"})
			return
		}
		c.Next()
	}
}

// queryToken lets browsers, which cannot set headers on websocket upgrades,
// pass the token as ?token=.
func queryToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if t := c.Query("token"); t != "" && c.GetHeader("Authorization") == "" {
			c.Request.Header.Set("Authorization", "Bearer "+t)
		}
		c.Next()
	}
}

func claimsFrom(c *gin.Context) *auth.Claims {
	v, ok := c.Get(claimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*auth.Claims)
	return claims
}

func callerID(c *gin.Context) string {
	if claims := claimsFrom(c); claims != nil {
		return claims.UserID()
	}
	return ""
}

func callerIsAdmin(c *gin.Context) bool {
	claims := claimsFrom(c)
	return claims != nil && claims.IsAdmin()
}
