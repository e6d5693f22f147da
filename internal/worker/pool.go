package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"testwise-backend/internal/models"
	"testwise-backend/internal/repository"
	"testwise-backend/internal/services"
)

// Pool runs background jobs popped off the Redis work queue. Today that is
// PDF text extraction for uploaded subsection material.
type Pool struct {
	redis          *redis.Client
	files          *services.FileService
	subsectionRepo *repository.SubsectionRepo
	workerCount    int
	stopChan       chan struct{}
}

func NewPool(redisClient *redis.Client, files *services.FileService, subsectionRepo *repository.SubsectionRepo, workerCount int) *Pool {
	return &Pool{
		redis:          redisClient,
		files:          files,
		subsectionRepo: subsectionRepo,
		workerCount:    workerCount,
		stopChan:       make(chan struct{}),
	}
}

func (p *Pool) Start() {
	queues := []string{
		"queue:" + models.JobPDFExtraction,
	}

	for i := 0; i < p.workerCount; i++ {
		go p.worker(i, queues)
	}

	log.Printf("Started %d worker goroutines", p.workerCount)
}

func (p *Pool) Stop() {
	close(p.stopChan)
}

func (p *Pool) worker(id int, queues []string) {
	for {
		select {
		case <-p.stopChan:
			log.Printf("Worker %d shutting down", id)
			return
		default:
		}

		ctx := context.Background()

		// BLPOP with 30s timeout
		result, err := p.redis.BLPop(ctx, 30*time.Second, queues...).Result()
		if err != nil {
			continue // Timeout or error, retry
		}

		if len(result) < 2 {
			continue
		}

		var job models.Job
		if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
			log.Printf("Worker %d: failed to parse job: %v", id, err)
			continue
		}

		// Try to acquire lock
		lockKey := fmt.Sprintf("job_lock:%s", job.ID.String())
		locked, err := p.redis.SetNX(ctx, lockKey, "1", 10*time.Minute).Result()
		if err != nil || !locked {
			continue // Another worker has this job
		}

		log.Printf("Worker %d: processing job %s (type: %s)", id, job.ID, job.Type)

		var processErr error
		switch job.Type {
		case models.JobPDFExtraction:
			processErr = p.processPDF(ctx, &job)
		default:
			processErr = fmt.Errorf("unknown job type: %s", job.Type)
		}

		if processErr != nil {
			log.Printf("Worker %d: job %s failed: %v", id, job.ID, processErr)
		} else {
			log.Printf("Worker %d: job %s done", id, job.ID)
		}

		// Release lock
		p.redis.Del(ctx, lockKey)
	}
}

// processPDF extracts the uploaded PDF's text and stores it as the
// subsection content so students can read it inline.
func (p *Pool) processPDF(ctx context.Context, job *models.Job) error {
	if _, err := p.subsectionRepo.GetSubsection(ctx, job.SubsectionID); err != nil {
		return fmt.Errorf("failed to load subsection: %w", err)
	}

	text, err := p.files.ExtractText(job.FilePath)
	if err != nil {
		return fmt.Errorf("failed to extract pdf text: %w", err)
	}

	if err := p.subsectionRepo.UpdateContent(ctx, job.SubsectionID, text); err != nil {
		return fmt.Errorf("failed to store extracted text: %w", err)
	}
	return nil
}
