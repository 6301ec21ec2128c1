package delivery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"report-workers/internal/models"
)

var (
	ErrJobNotFound        = errors.New("delivery job not found")
	ErrJobExists          = errors.New("delivery job already exists")
	ErrUnresolvedTemplate = errors.New("document contains unresolved template markers")
)

// JobStore keeps delivery jobs by ID. Get returns ErrJobNotFound for unknown IDs.
type JobStore interface {
	Open(ctx context.Context) error
	Close() error
	Save(ctx context.Context, job *models.DeliveryJob) error
	Get(ctx context.Context, id string) (*models.DeliveryJob, error)
}

// IdempotencyStore remembers successful deliveries for a bounded time.
type IdempotencyStore interface {
	Open(ctx context.Context) error
	Close() error
	Get(ctx context.Context, key string) (*models.DeliveryOutcome, bool, error)
	Put(ctx context.Context, key string, outcome *models.DeliveryOutcome, ttl time.Duration) error
}

// MemoryJobStore is process-local; its contents are lost on restart.
type MemoryJobStore struct {
	mu   sync.RWMutex
	jobs map[string]*models.DeliveryJob
}

func NewMemoryJobStore() *MemoryJobStore {
	return &MemoryJobStore{jobs: make(map[string]*models.DeliveryJob)}
}

func (s *MemoryJobStore) Open(context.Context) error { return nil }
func (s *MemoryJobStore) Close() error               { return nil }

func (s *MemoryJobStore) Save(_ context.Context, job *models.DeliveryJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job.Clone()
	return nil
}

// Create stores a new job. A job that ended in error may be replaced and is returned as the
// previous attempt; any other job with the same ID makes Create fail with ErrJobExists.
func (s *MemoryJobStore) Create(_ context.Context, job *models.DeliveryJob) (*models.DeliveryJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.jobs[job.ID]
	if ok && prev.Status != models.JobError {
		return nil, ErrJobExists
	}
	s.jobs[job.ID] = job.Clone()
	if !ok {
		return nil, nil
	}
	return prev.Clone(), nil
}

// Transition moves a job from one status to another in a single step.
func (s *MemoryJobStore) Transition(_ context.Context, id string, from, to models.JobStatus, at time.Time) (*models.DeliveryJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	if job.Status != from {
		return nil, fmt.Errorf("job is %s, want %s", job.Status, from)
	}
	job.Status = to
	job.UpdatedAt = at
	return job.Clone(), nil
}

func (s *MemoryJobStore) Get(_ context.Context, id string) (*models.DeliveryJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return job.Clone(), nil
}

type idempotencyEntry struct {
	outcome models.DeliveryOutcome
	expires time.Time
}

// MemoryIdempotencyStore expires entries lazily on read and write.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]idempotencyEntry
	now     func() time.Time
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{entries: make(map[string]idempotencyEntry), now: time.Now}
}

func (s *MemoryIdempotencyStore) Open(context.Context) error { return nil }
func (s *MemoryIdempotencyStore) Close() error               { return nil }

func (s *MemoryIdempotencyStore) Get(_ context.Context, key string) (*models.DeliveryOutcome, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !s.now().Before(entry.expires) {
		delete(s.entries, key)
		return nil, false, nil
	}
	out := entry.outcome
	out.MailErrors = append([]string(nil), entry.outcome.MailErrors...)
	return &out, true, nil
}

func (s *MemoryIdempotencyStore) Put(_ context.Context, key string, outcome *models.DeliveryOutcome, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	for k, e := range s.entries {
		if !now.Before(e.expires) {
			delete(s.entries, k)
		}
	}
	s.entries[key] = idempotencyEntry{outcome: *outcome, expires: now.Add(ttl)}
	return nil
}
