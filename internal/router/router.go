package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/speakeval/speakeval-backend/internal/config"
	"github.com/speakeval/speakeval-backend/internal/handler"
	"github.com/speakeval/speakeval-backend/internal/middleware"
	"github.com/speakeval/speakeval-backend/internal/response"
	"github.com/speakeval/speakeval-backend/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	Exam       *handler.ExamHandler
	Attempt    *handler.AttemptHandler
	Answer     *handler.AnswerHandler
	Proctoring *handler.ProctoringHandler
	Monitor    *handler.MonitorHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// Restrict CORS to the configured origins; allow all when unset so dev
	// works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Request IDs go on globally so every response carries metadata.
	router.Use(response.RequestIDMiddleware())

	// Serve stored answer recordings.
	router.Static("/uploads", cfg.UploadDir)

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for the unauthenticated auth routes (30 per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// Auth group: public login/register, authenticated profile routes.
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/register", authLimiter.Middleware(), handlers.Auth.Register)
		auth.POST("/login", authLimiter.Middleware(), handlers.Auth.Login)

		auth.POST("/logout", middleware.RequireJWT(authService), handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireJWT(authService), handlers.Auth.Me)
	}

	// Exam catalog: any authenticated user; creation is educator-gated.
	exams := router.Group("/api/v1/exams")
	exams.Use(middleware.RequireJWT(authService), middleware.CheckSingleDeviceSession(authService))
	{
		exams.GET("", handlers.Exam.List)
		exams.POST("", middleware.RequireEducatorJWT(authService), handlers.Exam.Create)
		exams.GET("/:id", handlers.Exam.Detail)
		exams.POST("/:id/start", middleware.RequireStudentJWT(authService), handlers.Exam.Start)
	}

	// Attempt reads and the exam-taking workflow: students only, with the
	// single-device session check.
	studentAPI := router.Group("/api/v1")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		studentAPI.GET("/attempts/:id", handlers.Attempt.Info)
		studentAPI.GET("/attempts/:id/current", handlers.Attempt.Current)
		studentAPI.GET("/attempts/:id/results", handlers.Attempt.Results)
		studentAPI.GET("/attempts/:id/state", handlers.Attempt.State)
		studentAPI.POST("/attempts/complete", handlers.Answer.Complete)
		studentAPI.POST("/attempts/end", handlers.Answer.Complete)

		studentAPI.POST("/answers/evaluate", handlers.Answer.Evaluate)
		studentAPI.POST("/answers/submit", handlers.Answer.SubmitAudio)
		studentAPI.POST("/answers/transcript", handlers.Answer.AppendTranscript)
		studentAPI.POST("/answers/skip", handlers.Answer.Skip)
		studentAPI.POST("/answers/move-next", handlers.Answer.MoveNext)
		studentAPI.POST("/answers/voice-command", handlers.Answer.VoiceCommand)

		studentAPI.POST("/proctoring/face-check", handlers.Proctoring.FaceCheck)
	}

	// WebSocket group: token comes in as a query param.
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireWSAuth(authService))
	{
		ws.GET("/attempts/:id/monitor", handlers.Monitor.MonitorAttempt)
	}

	return router
}
