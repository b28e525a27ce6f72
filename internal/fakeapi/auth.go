package fakeapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

const currentUserKey = "currentUser"

// claims identify the user by name in the subject, the way the API's tokens do.
type claims struct {
	UserID int64 `json:"uid"`
	jwt.RegisteredClaims
}

func (s *Server) issueToken(p core.Profile) (string, error) {
	now := s.now()
	c := &claims{
		UserID: p.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

func (s *Server) parseToken(tokenStr string) (*claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &claims{}, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return c, nil
}

func bearer(c *gin.Context) string {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
		return strings.TrimSpace(parts[1])
	}
	return ""
}

// authenticated resolves the bearer token to a live user.
func (s *Server) authenticated(c *gin.Context) (core.Profile, error) {
	tokenStr := bearer(c)
	if tokenStr == "" {
		return core.Profile{}, errors.New("missing bearer token")
	}
	cl, err := s.parseToken(tokenStr)
	if err != nil {
		return core.Profile{}, err
	}
	p, _, ok := s.store.userByID(cl.UserID)
	if !ok || p.Username != cl.Subject {
		return core.Profile{}, errUserNotFound
	}
	return p, nil
}

func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := s.authenticated(c)
		if err != nil {
			s.logger.DebugContext(c.Request.Context(), "Rejected request", log.FieldPath, c.Request.URL.Path, log.FieldError, err)
			fail(c, http.StatusUnauthorized, "Unauthorized")
			return
		}
		c.Set(currentUserKey, p)
		c.Next()
	}
}

func currentUser(c *gin.Context) core.Profile {
	return c.MustGet(currentUserKey).(core.Profile)
}

func (s *Server) respondWithToken(c *gin.Context, p core.Profile) {
	token, err := s.issueToken(p)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Could not issue token")
		return
	}
	c.JSON(http.StatusOK, core.AuthResponse{
		Token:    token,
		Type:     "Bearer",
		ID:       p.ID,
		Username: p.Username,
		Email:    p.Email,
	})
}

func (s *Server) register(c *gin.Context) {
	var req core.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if err := req.Validate(); err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	p, err := s.store.createUser(core.Profile{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		CreatedAt: core.Timestamp{Time: s.now()},
	}, hash)
	if err != nil {
		fail(c, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.InfoContext(c.Request.Context(), "User registered", log.FieldUsername, p.Username)
	s.respondWithToken(c, p)
}

func (s *Server) login(c *gin.Context) {
	var req core.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body")
		return
	}
	p, hash, ok := s.store.lookup(strings.TrimSpace(req.UsernameOrEmail))
	if !ok || bcrypt.CompareHashAndPassword(hash, []byte(req.Password)) != nil {
		fail(c, http.StatusBadRequest, "Invalid username/email or password")
		return
	}
	s.respondWithToken(c, p)
}

func (s *Server) validate(c *gin.Context) {
	if bearer(c) == "" {
		fail(c, http.StatusBadRequest, "Invalid token")
		return
	}
	p, err := s.authenticated(c)
	if err != nil {
		fail(c, http.StatusBadRequest, "Token validation failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"valid":    true,
		"id":       p.ID,
		"username": p.Username,
		"email":    p.Email,
	})
}

func (s *Server) checkUsername(c *gin.Context) {
	c.JSON(http.StatusOK, core.Availability{Available: s.store.usernameAvailable(c.Param("username"))})
}

func (s *Server) checkEmail(c *gin.Context) {
	c.JSON(http.StatusOK, core.Availability{Available: s.store.emailAvailable(c.Param("email"))})
}
