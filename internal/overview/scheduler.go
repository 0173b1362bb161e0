// Package overview schedules generation of derived display data (the
// browse-page preview image) for freshly admitted logs. Generation is
// best-effort: admission never waits on it and never fails because of it.
package overview

import (
	"log"
	"sync"
)

// GenerateFunc renders the overview for one log identifier.
type GenerateFunc func(logID string) error

// Scheduler runs overview generation on a single background worker fed by
// a bounded queue. A full queue drops the request with a log line rather
// than blocking an upload.
type Scheduler struct {
	gen     GenerateFunc
	queue   chan string
	wg      sync.WaitGroup
	closing sync.Once
}

func New(gen GenerateFunc, queueSize int) *Scheduler {
	s := &Scheduler{
		gen:   gen,
		queue: make(chan string, queueSize),
	}
	s.wg.Add(1)
	go s.run()
	return s
}

// Schedule enqueues generation for a log. Never blocks.
func (s *Scheduler) Schedule(logID string) {
	select {
	case s.queue <- logID:
	default:
		log.Printf("overview: queue full, skipping generation for log %s", logID)
	}
}

// Close stops accepting work and waits for the queue to drain.
func (s *Scheduler) Close() {
	s.closing.Do(func() { close(s.queue) })
	s.wg.Wait()
}

func (s *Scheduler) run() {
	defer s.wg.Done()
	for id := range s.queue {
		if err := s.gen(id); err != nil {
			log.Printf("overview: generation failed for log %s: %v", id, err)
		}
	}
}
