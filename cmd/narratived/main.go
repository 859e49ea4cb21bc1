// Command narratived runs the detection pipeline as a long-lived daemon,
// processing the most recent closed week once a day.
package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"news-narratives/internal/database"
	"news-narratives/internal/llm"
	"news-narratives/internal/services"
	"news-narratives/internal/worker"

	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	dbConfig := database.LoadConfig()
	if err := database.Connect(dbConfig); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer database.Close()

	if err := database.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	generator, err := llm.NewOpenAIGenerator()
	if err != nil {
		log.Fatal("Failed to initialize text generation:", err)
	}

	var cache llm.Cache
	if redisCache, err := llm.NewRedisCache(llm.DefaultCacheTTL); err != nil {
		log.Printf("LLM cache unavailable (%v), every call will hit the API", err)
		cache = llm.NewMemoryCache(llm.DefaultCacheTTL)
	} else {
		defer redisCache.Close()
		cache = redisCache
	}

	namer := llm.NewClient(generator, cache)
	detector := services.NewDetector(database.DB, namer, services.DefaultDetectorConfig())

	workerService := worker.NewWorkerService(database.DB, detector, namer, 24*time.Hour)
	if err := workerService.Start(); err != nil {
		log.Fatal("Failed to start detection worker:", err)
	}

	// Block until a shutdown signal arrives
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	log.Println("Received shutdown signal, gracefully shutting down...")
	workerService.Stop()
	log.Println("Shutdown complete")
}
