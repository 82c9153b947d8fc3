package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/speakeval/speakeval-backend/internal/config"
	"github.com/speakeval/speakeval-backend/internal/database"
	"github.com/speakeval/speakeval-backend/internal/handler"
	"github.com/speakeval/speakeval-backend/internal/logger"
	"github.com/speakeval/speakeval-backend/internal/oracle"
	"github.com/speakeval/speakeval-backend/internal/repository"
	"github.com/speakeval/speakeval-backend/internal/router"
	"github.com/speakeval/speakeval-backend/internal/service"
	"github.com/speakeval/speakeval-backend/internal/validator"
	"github.com/speakeval/speakeval-backend/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting SpeakEval Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Initialize Repositories ───────────────────────────────────────
	userRepo := repository.NewUserRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	answerRepo := repository.NewAnswerRepository(pool)
	proctoringRepo := repository.NewProctoringRepository(pool)

	// ─── Initialize Oracles ────────────────────────────────────────────
	var similarity oracle.Similarity
	var transcriber oracle.Transcriber
	if cfg.OpenAIAPIKey != "" {
		similarity = oracle.NewEmbeddingSimilarity(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.EmbeddingModel, log)
		transcriber = oracle.NewWhisperTranscriber(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.TranscriptionModel)
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set, spoken answers will score zero and audio submission is disabled")
		similarity = oracle.UnavailableSimilarity{}
	}

	var vision oracle.Vision
	if cfg.GeminiAPIKey != "" {
		geminiVision, err := oracle.NewGeminiVision(ctx, cfg.GeminiAPIKey, cfg.VisionModel)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize vision oracle")
		}
		defer geminiVision.Close()
		vision = geminiVision
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set, proctoring face checks are disabled")
	}

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	userService := service.NewUserService(userRepo, authService, log)
	examService := service.NewExamService(examRepo, questionRepo, log)
	scoringPolicy := service.NewScoringPolicy(cfg.SimilarityThreshold)
	ledgerService := service.NewLedgerService(answerRepo, questionRepo, attemptRepo, similarity, scoringPolicy, log)
	attemptService := service.NewAttemptService(attemptRepo, answerRepo, questionRepo, examRepo, rdb, log)
	dispatcher := service.NewCommandDispatcher(ledgerService, attemptService)
	audioService := service.NewAudioService(cfg)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:       handler.NewAuthHandler(authService, userService),
		Exam:       handler.NewExamHandler(examService, attemptService),
		Attempt:    handler.NewAttemptHandler(attemptService, ledgerService),
		Answer:     handler.NewAnswerHandler(ledgerService, attemptService, dispatcher, audioService, transcriber, log),
		Proctoring: handler.NewProctoringHandler(vision, attemptService, rdb, log),
		Monitor:    handler.NewMonitorHandler(rdb, examService, attemptService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	proctoringWorker := worker.NewProctoringWorker(proctoringRepo, rdb, log)
	go proctoringWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop background workers and wait for queues to drain.
	workerCancel()
	time.Sleep(2 * time.Second) // Allow workers to drain.

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
