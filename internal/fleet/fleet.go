// Package fleet runs the document pipeline across a directory of
// documents with bounded parallelism.
package fleet

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bookbrief/internal/book"
	"bookbrief/internal/source"
)

// Processor runs the pipeline for one document. Satisfied by
// book.Orchestrator.
type Processor interface {
	Process(ctx context.Context, doc *source.Document) *book.Result
}

// Stats aggregates the outcome of one fleet run.
type Stats struct {
	RunID             string
	Documents         int
	Succeeded         int
	Failed            int
	SectionsCompleted int
	SectionsResumed   int
	Elapsed           time.Duration
	MeanPerDocument   time.Duration
	MeanPerSection    time.Duration
}

// Scheduler fans documents out to a fixed-size worker pool. Documents
// are isolated: one failing does not stop the others.
type Scheduler struct {
	processor   Processor
	maxParallel int
	logger      *zap.Logger
}

func NewScheduler(processor Processor, maxParallel int, logger *zap.Logger) *Scheduler {
	if maxParallel < 1 {
		maxParallel = 1
	}
	return &Scheduler{processor: processor, maxParallel: maxParallel, logger: logger}
}

// Run processes every document and returns aggregate stats. On context
// cancellation, running documents stop at their next section boundary
// and queued documents are not started.
func (s *Scheduler) Run(ctx context.Context, docs []*source.Document) *Stats {
	stats := &Stats{
		RunID:     uuid.NewString(),
		Documents: len(docs),
	}
	start := time.Now()

	log := s.logger.With(zap.String("run_id", stats.RunID))
	log.Info("starting run",
		zap.Int("documents", len(docs)),
		zap.Int("max_parallel", s.maxParallel))

	jobs := make(chan *source.Document)
	results := make(chan *book.Result, len(docs))

	var wg sync.WaitGroup
	for i := 0; i < s.maxParallel; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for doc := range jobs {
				results <- s.processor.Process(ctx, doc)
			}
		}()
	}

	for _, doc := range docs {
		if ctx.Err() != nil {
			break
		}
		jobs <- doc
	}
	close(jobs)
	wg.Wait()
	close(results)

	for res := range results {
		stats.SectionsCompleted += res.SectionsCompleted
		stats.SectionsResumed += res.SectionsResumed
		if res.Status == book.StatusDone {
			stats.Succeeded++
		} else {
			stats.Failed++
			log.Warn("document did not finish",
				zap.String("document", res.DocumentID),
				zap.Error(res.Err))
		}
	}
	// Documents never started still count as failed.
	stats.Failed += stats.Documents - stats.Succeeded - stats.Failed

	stats.Elapsed = time.Since(start)
	if stats.Documents > 0 {
		stats.MeanPerDocument = stats.Elapsed / time.Duration(stats.Documents)
	}
	if n := stats.SectionsCompleted + stats.SectionsResumed; n > 0 {
		stats.MeanPerSection = stats.Elapsed / time.Duration(n)
	}

	log.Info("run finished",
		zap.Int("succeeded", stats.Succeeded),
		zap.Int("failed", stats.Failed),
		zap.Int("sections_completed", stats.SectionsCompleted),
		zap.Int("sections_resumed", stats.SectionsResumed),
		zap.Duration("elapsed", stats.Elapsed))
	return stats
}
