package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/Vovarama1992/go-utils/logger"

	"github.com/medvani/webchat/internal/assistant"
	"github.com/medvani/webchat/internal/delivery"
	"github.com/medvani/webchat/internal/infra"
	"github.com/medvani/webchat/internal/ports"
	"github.com/medvani/webchat/internal/retrieval"
	"github.com/medvani/webchat/internal/sarvam"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

func main() {

	// =========================================================================
	// ENV / DB INIT
	// =========================================================================

	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8000"
	}

	baseLogger, _ := zap.NewProduction()
	defer baseLogger.Sync()
	zl := logger.NewZapLogger(baseLogger.Sugar())

	// без DATABASE_URL сессии живут в памяти процесса
	var sessionRepo ports.SessionRepo
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		db, err := sql.Open("postgres", dsn)
		if err != nil {
			log.Fatalf("failed to connect to postgres: %v", err)
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := db.PingContext(ctx); err != nil {
			cancel()
			log.Fatalf("db ping failed: %v", err)
		}
		if err := infra.EnsureSchema(ctx, db); err != nil {
			cancel()
			log.Fatalf("schema init failed: %v", err)
		}
		cancel()

		sessionRepo = infra.NewSessionRepo(db)
	} else {
		log.Println("DATABASE_URL not set, using in-memory session store")
		sessionRepo = infra.NewMemorySessionRepo()
	}

	// =========================================================================
	// CLIENTS (LLM / SPEECH / STORAGE)
	// =========================================================================

	var llm ports.LLMClient
	if groq, err := assistant.NewGroqClient(); err != nil {
		log.Printf("groq disabled: %v", err)
	} else {
		llm = groq
	}

	var speech ports.SpeechClient
	if sv, err := sarvam.NewClient(); err != nil {
		log.Printf("sarvam disabled: %v", err)
	} else {
		speech = sv
	}

	var media ports.MediaStore
	if os.Getenv("S3_ENDPOINT") != "" {
		s3, err := infra.NewS3MediaStore()
		if err != nil {
			log.Fatalf("failed to init s3: %v", err)
		}
		media = s3
	}

	retriever := retrieval.NewMemory()

	// =========================================================================
	// DOMAIN SERVICES
	// =========================================================================

	assistantService := assistant.NewService(llm, speech, sessionRepo, retriever, media)

	// =========================================================================
	// HTTP ROUTER
	// =========================================================================

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:3000", "http://localhost:3001"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))
	r.Use(httprate.LimitByIP(120, time.Minute))

	chatHandler := delivery.NewChatHandler(assistantService, zl)
	delivery.RegisterRoutes(r, chatHandler)

	// =========================================================================
	// START SERVER
	// =========================================================================

	addr := ":" + port
	zl.Log(logger.LogEntry{
		Level:   "info",
		Message: "listening at " + addr,
		Service: "medvani-api",
	})

	if err := http.ListenAndServe(addr, r); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
