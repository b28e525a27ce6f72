// Package fakeapi is an in-memory implementation of the expense tracker REST
// API. It backs the client integration tests and the local dev server.
package fakeapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"expensetracker/internal/log"
)

// Config holds the token and hashing settings of the server.
type Config struct {
	JWTSecret string
	TokenTTL  time.Duration
	HashCost  int
	// Now defaults to time.Now. Tests pin it to make month boundaries stable.
	Now func() time.Time
}

// Server serves the REST API from memory.
type Server struct {
	store  *store
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time
	logger *log.Logger
	engine *gin.Engine
}

// New builds the server and its routes. Everything lives under /api.
func New(cfg Config, logger *log.Logger) *Server {
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 24 * time.Hour
	}
	if cfg.HashCost < bcrypt.MinCost || cfg.HashCost > bcrypt.MaxCost {
		cfg.HashCost = bcrypt.DefaultCost
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	s := &Server{
		store:  newStore(),
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.TokenTTL,
		cost:   cfg.HashCost,
		now:    cfg.Now,
		logger: log.OrDiscard(logger).WithComponent(log.ComponentFakeAPI),
	}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	api := r.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", s.register)
	auth.POST("/login", s.login)
	auth.POST("/validate", s.validate)
	auth.GET("/check-username/:username", s.checkUsername)
	auth.GET("/check-email/:email", s.checkEmail)

	expenses := api.Group("/expenses", s.requireAuth())
	expenses.GET("", s.listExpenses)
	expenses.POST("", s.createExpense)
	expenses.GET("/current-month", s.currentMonth)
	expenses.GET("/statistics", s.statistics)
	expenses.GET("/chart/category", s.categoryChart)
	expenses.GET("/chart/monthly", s.monthlyChart)
	expenses.GET("/:id", s.getExpense)
	expenses.PUT("/:id", s.updateExpense)
	expenses.DELETE("/:id", s.deleteExpense)

	user := api.Group("/user", s.requireAuth())
	user.GET("/profile", s.profile)
	user.PUT("/profile", s.updateProfile)
	user.PUT("/password", s.updatePassword)
	user.DELETE("/account", s.deleteAccount)

	return r
}

// Handler exposes the router for http.Server and httptest.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header("X-Request-ID", requestID)

		c.Next()

		fields := log.NewFields().WithHTTP(c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Milliseconds())
		s.logger.InfoContext(c.Request.Context(), "Request handled",
			append([]any{log.FieldRequestID, requestID}, fields.ToSlice()...)...)
	}
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func message(c *gin.Context, msg string) {
	c.JSON(http.StatusOK, gin.H{"message": msg})
}
