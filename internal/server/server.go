package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/emilythestrangee/designarena/backend/internal/config"
	"github.com/emilythestrangee/designarena/backend/internal/database"
	"github.com/emilythestrangee/designarena/backend/internal/events"
	"github.com/emilythestrangee/designarena/backend/internal/handlers"
	"github.com/emilythestrangee/designarena/backend/internal/middleware"
	"github.com/emilythestrangee/designarena/backend/internal/score"
	"github.com/emilythestrangee/designarena/backend/internal/vote"
)

type Server struct {
	cfg       *config.Config
	db        database.Service
	redis     *redis.Client
	publisher events.Publisher
	handler   *handlers.Handler
	auth      *middleware.Auth
	limiter   middleware.Limiter
}

// New connects to every configured backend and wires the handlers.
func New(cfg *config.Config) (*Server, error) {
	db, err := database.New(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	s := &Server{
		cfg:       cfg,
		db:        db,
		publisher: events.NopPublisher{},
		auth:      middleware.NewAuth(cfg.Auth.JWTSecret),
	}

	var cache score.Cache
	if cfg.Redis.Enabled() {
		s.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.redis.Ping(ctx).Err(); err != nil {
			log.Printf("⚠️  Redis unreachable at %s, continuing without cache: %v", cfg.Redis.Addr, err)
		} else {
			log.Println("✅ Redis connected successfully")
		}
		cache = score.NewRedisCache(s.redis, cfg.Redis.LeaderboardTTL)
		s.limiter = middleware.NewRedisLimiter(s.redis)
	}

	if cfg.Kafka.Enabled() {
		s.publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		log.Printf("✅ Publishing vote events to %s", cfg.Kafka.Topic)
	}

	gormDB := db.GetDB()
	board := score.NewBoard(score.NewGormSource(gormDB), cache)
	votes := vote.NewService(
		vote.NewGormLedger(gormDB),
		vote.WithPublisher(s.publisher),
		vote.WithInvalidator(board),
	)
	s.handler = handlers.NewHandler(gormDB, votes, board, cfg.Auth)

	return s, nil
}

// HTTPServer builds the http.Server serving the API.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         "0.0.0.0:" + s.cfg.Server.Port,
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  s.cfg.Server.IdleTimeout,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.LogAPI())

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * 3600,
	}))

	r.GET("/health", s.health)

	limit := middleware.RateLimit(s.limiter, s.cfg.RateLimit.Requests, s.cfg.RateLimit.Window)

	api := r.Group("/api")
	{
		// Auth routes (public)
		api.POST("/register", s.handler.Auth.Register)
		api.POST("/login", s.handler.Auth.Login)

		// Public reads
		api.GET("/challenges", s.handler.Challenge.GetChallenges)
		api.GET("/challenges/:id", s.handler.Challenge.GetChallenge)
		api.GET("/challenges/:id/solutions", s.handler.Solution.GetSolutions)
		api.GET("/solutions/:id", s.handler.Solution.GetSolution)
		api.GET("/solutions/:id/comments", s.handler.Comment.GetComments)
		api.GET("/leaderboard", s.handler.Leaderboard.GetLeaderboard)
		api.GET("/users/:id", s.handler.User.GetUserProfile)
		api.GET("/users/:id/stats", s.handler.Leaderboard.GetUserStats)

		// Votes resolve identity themselves so an anonymous mutation gets the
		// sign-in error rather than a generic auth failure.
		votes := api.Group("/votes", s.auth.OptionalAuth())
		{
			votes.GET("/user-vote/:entityType/:entityId", s.handler.Vote.GetUserVote)
			votes.POST("", limit, s.handler.Vote.CastVote)
			votes.DELETE("/:entityType/:entityId", limit, s.handler.Vote.RemoveVote)
		}

		// Protected routes (authentication required)
		protected := api.Group("")
		protected.Use(s.auth.RequireAuth())
		{
			protected.GET("/me", s.handler.Auth.GetMe)

			protected.POST("/challenges", s.handler.Challenge.CreateChallenge)
			protected.POST("/challenges/:id/solutions", s.handler.Solution.CreateSolution)
			protected.POST("/solutions/:id/comments", s.handler.Comment.CreateComment)
			protected.PUT("/comments/:commentId", s.handler.Comment.UpdateComment)
			protected.DELETE("/comments/:commentId", s.handler.Comment.DeleteComment)

			protected.PUT("/users/:id", s.handler.User.UpdateUserProfile)
		}
	}

	return r
}

func (s *Server) health(c *gin.Context) {
	status := gin.H{"status": "ok"}
	code := http.StatusOK

	if s.db != nil {
		dbHealth := s.db.Health()
		status["database"] = dbHealth
		if dbHealth["status"] != "up" {
			status["status"] = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	if s.redis != nil {
		if err := s.redis.Ping(c.Request.Context()).Err(); err != nil {
			status["redis"] = gin.H{"status": "down", "error": err.Error()}
		} else {
			status["redis"] = gin.H{"status": "up"}
		}
	}

	c.JSON(code, status)
}

// Close flushes pending events and releases every connection.
func (s *Server) Close() error {
	if err := s.publisher.Close(); err != nil {
		log.Printf("failed to close event publisher: %v", err)
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Printf("failed to close redis: %v", err)
		}
	}
	return s.db.Close()
}
