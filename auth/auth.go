// Package auth guards the admin surface: a static credential login
// that issues a bearer token, and middleware for mutating routes.
package auth

import (
	"errors"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"betcompare/common"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

const tokenTTL = 24 * time.Hour

type AuthModule struct{}

func NewAuthModule() *AuthModule {
	return &AuthModule{}
}

func (a *AuthModule) RegisterRoutes(router *gin.Engine) {
	group := router.Group("/api/auth")
	{
		group.POST("/login", a.login)
		group.GET("/verify", a.verify)
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *AuthModule) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.BadRequest(c, "invalid JSON payload")
		return
	}

	if err := checkCredentials(req.Username, req.Password); err != nil {
		common.Unauthorized(c, "invalid credentials")
		return
	}

	token, err := IssueToken(req.Username)
	if err != nil {
		common.ServerError(c, err)
		return
	}

	common.OK(c, gin.H{"token": token, "expires_in": int(tokenTTL.Seconds())})
}

func (a *AuthModule) verify(c *gin.Context) {
	username, err := bearerUsername(c)
	if err != nil {
		common.Unauthorized(c, "invalid token")
		return
	}
	common.OK(c, gin.H{"username": username})
}

// RequireAuth rejects requests without a valid bearer token.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		username, err := bearerUsername(c)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false, "message": "authorization required",
			})
			return
		}
		c.Set("username", username)
		c.Next()
	}
}

// checkCredentials compares against the static admin account from the
// environment. ADMIN_PASSWORD_HASH (bcrypt) wins over ADMIN_PASSWORD.
func checkCredentials(username, password string) error {
	adminUser := os.Getenv("ADMIN_USERNAME")
	if adminUser == "" || username != adminUser {
		return ErrInvalidCredentials
	}

	if hash := os.Getenv("ADMIN_PASSWORD_HASH"); hash != "" {
		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
			return ErrInvalidCredentials
		}
		return nil
	}

	if plain := os.Getenv("ADMIN_PASSWORD"); plain != "" && password == plain {
		return nil
	}
	return ErrInvalidCredentials
}

func jwtSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Println("JWT_SECRET not set - auth routes will reject all tokens")
	}
	return []byte(secret)
}

// IssueToken signs a short-lived admin token for the given username.
func IssueToken(username string) (string, error) {
	claims := jwt.MapClaims{
		"sub": username,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret())
}

func bearerUsername(c *gin.Context) (string, error) {
	header := c.GetHeader("Authorization")
	parts := strings.Split(header, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errors.New("invalid authorization header")
	}

	secret := jwtSecret()
	if len(secret) == 0 {
		return "", errors.New("jwt secret not configured")
	}

	token, err := jwt.Parse(parts[1], func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("missing subject")
	}
	return sub, nil
}
