// Package worker runs the narrative detector on a schedule: once a day it
// checks whether the most recent closed week still needs processing and runs
// the pipeline for it.
package worker

import (
	"context"
	"log"
	"sync"
	"time"

	"news-narratives/internal/llm"
	"news-narratives/internal/models"
	"news-narratives/internal/services"

	"gorm.io/gorm"
)

// WorkerService manages the scheduled detection run.
type WorkerService struct {
	db       *gorm.DB
	detector *services.Detector
	namer    *llm.Client
	interval time.Duration

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.RWMutex
}

// NewWorkerService creates a worker that checks for an unprocessed week at
// the given interval.
func NewWorkerService(db *gorm.DB, detector *services.Detector, namer *llm.Client, interval time.Duration) *WorkerService {
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerService{
		db:       db,
		detector: detector,
		namer:    namer,
		interval: interval,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start launches the background loop.
func (ws *WorkerService) Start() error {
	ws.mu.Lock()
	defer ws.mu.Unlock()

	if ws.running {
		return nil // Already running
	}

	log.Println("Starting narrative detection worker...")

	ws.wg.Add(1)
	go func() {
		defer ws.wg.Done()
		ws.run()
	}()

	ws.running = true
	return nil
}

// Stop shuts the loop down and waits for an in-flight window to finish.
func (ws *WorkerService) Stop() {
	ws.mu.Lock()
	if !ws.running {
		ws.mu.Unlock()
		return
	}
	ws.running = false
	ws.mu.Unlock()

	log.Println("Stopping narrative detection worker...")
	ws.cancel()
	ws.wg.Wait()
	log.Println("Narrative detection worker stopped")
}

// IsRunning reports whether the worker loop is active.
func (ws *WorkerService) IsRunning() bool {
	ws.mu.RLock()
	defer ws.mu.RUnlock()
	return ws.running
}

func (ws *WorkerService) run() {
	// Check once at startup, then on every tick
	ws.processLastClosedWeek()

	ticker := time.NewTicker(ws.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ws.ctx.Done():
			return
		case <-ticker.C:
			ws.processLastClosedWeek()
		}
	}
}

// processLastClosedWeek runs the detector for the most recent full 7-day
// window unless a previous run already produced timeline events in it.
func (ws *WorkerService) processLastClosedWeek() {
	end := time.Now().Truncate(24 * time.Hour)
	start := end.AddDate(0, 0, -7)

	var existing int64
	err := ws.db.Model(&models.TimelineEvent{}).
		Where("event_date >= ? AND event_date < ?", start, end).
		Count(&existing).Error
	if err != nil {
		log.Printf("worker: failed to check processed week: %v", err)
		return
	}
	if existing > 0 {
		return
	}

	result, err := ws.detector.ProcessWindow(ws.ctx, start, end)
	if err != nil {
		log.Printf("worker: window %s failed: %v", start.Format("2006-01-02"), err)
		return
	}

	usage := ws.namer.Usage()
	if result.Skipped {
		log.Printf("worker: window %s skipped (insufficient data)", start.Format("2006-01-02"))
	} else {
		log.Printf("worker: window %s done, %d narratives, %d LLM calls (~$%.3f)",
			start.Format("2006-01-02"), len(result.Narratives), usage.Calls, usage.CostUSD)
	}
	ws.namer.ResetUsage()
}
