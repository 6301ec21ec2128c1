// Package delivery turns rendered report HTML into an idempotent PDF and mail delivery with
// per-job status tracking.
package delivery

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"report-workers/internal/common/logger"
	"report-workers/internal/common/metrics"
	"report-workers/internal/common/observability"
	"report-workers/internal/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// Request is one delivery order. An empty JobID gets a generated one.
type Request struct {
	JobID     string
	Recipient string
	Language  string
	HTML      string
	Payload   map[string]interface{}
}

type Options struct {
	IdempotencyTTL time.Duration
	GuardWindow    int
	Warmup         bool
}

// Warmer is the optional PDF service pre-flight.
type Warmer interface {
	Warmup(ctx context.Context) error
}

// Coordinator owns the job lifecycle queued → running → done | error. Jobs are kept in
// memory; the optional persistent store mirrors them for lookups after a restart.
type Coordinator struct {
	jobs       *MemoryJobStore
	persistent JobStore
	idem       IdempotencyStore
	dispatcher Dispatcher
	warmer     Warmer
	alerter    Alerter
	opts       Options
	obs        *observability.Observability
	logger     logger.Logger
	now        func() time.Time
	wg         sync.WaitGroup
}

// Dependencies groups the collaborators; only Dispatcher is required.
type Dependencies struct {
	Dispatcher  Dispatcher
	Idempotency IdempotencyStore
	Persistent  JobStore
	Warmer      Warmer
	Alerter     Alerter
	Obs         *observability.Observability
}

func NewCoordinator(deps Dependencies, opts Options, log logger.Logger) *Coordinator {
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = 30 * time.Minute
	}
	if opts.GuardWindow <= 0 {
		opts.GuardWindow = 400
	}
	if deps.Idempotency == nil {
		deps.Idempotency = NewMemoryIdempotencyStore()
	}
	if deps.Obs == nil {
		deps.Obs = observability.NewNoop()
	}
	return &Coordinator{
		jobs:       NewMemoryJobStore(),
		persistent: deps.Persistent,
		idem:       deps.Idempotency,
		dispatcher: deps.Dispatcher,
		warmer:     deps.Warmer,
		alerter:    deps.Alerter,
		opts:       opts,
		obs:        deps.Obs,
		logger:     log.WithFields(map[string]interface{}{"component": "delivery-coordinator"}),
		now:        time.Now,
	}
}

// Submit registers a queued job and runs it in the background. The returned snapshot is the
// queued state; poll Status for progress.
func (c *Coordinator) Submit(ctx context.Context, req Request) (*models.DeliveryJob, error) {
	job, err := c.enqueue(ctx, req)
	if err != nil {
		return nil, err
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if _, err := c.Run(context.WithoutCancel(ctx), job.ID); err != nil {
			c.logger.Error("Delivery job could not run", map[string]interface{}{"jobId": job.ID, "error": err.Error()})
		}
	}()
	return job, nil
}

// Deliver registers a job and runs it to completion. A job ID whose previous run ended in
// error is accepted again, so a retried task reaches the dispatcher.
func (c *Coordinator) Deliver(ctx context.Context, req Request) (*models.DeliveryJob, error) {
	job, err := c.enqueue(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.Run(ctx, job.ID)
}

func (c *Coordinator) enqueue(ctx context.Context, req Request) (*models.DeliveryJob, error) {
	if c.dispatcher == nil {
		return nil, fmt.Errorf("delivery coordinator has no dispatcher")
	}
	id := req.JobID
	if id == "" {
		id = uuid.NewString()
	}
	now := c.now().UTC()
	job := &models.DeliveryJob{
		ID:        id,
		Recipient: strings.TrimSpace(req.Recipient),
		Language:  models.NormalizeLanguage(req.Language),
		Payload:   req.Payload,
		HTML:      req.HTML,
		Status:    models.JobQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	prev, err := c.jobs.Create(ctx, job)
	if err != nil {
		return nil, fmt.Errorf("delivery job %s: %w", id, err)
	}
	if prev != nil {
		c.logger.Info("Retrying failed delivery job", map[string]interface{}{"jobId": id, "previousError": prev.Error})
	}
	c.mirror(ctx, job)
	return job.Clone(), nil
}

// Run executes a queued job. The returned error is only set when the job does not exist or is
// not queued; delivery failures end up in the job's status.
func (c *Coordinator) Run(ctx context.Context, id string) (*models.DeliveryJob, error) {
	job, err := c.jobs.Transition(ctx, id, models.JobQueued, models.JobRunning, c.now().UTC())
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", id, err)
	}
	c.mirror(ctx, job)

	start := c.now()
	ctx, span := c.obs.StartSpan(ctx, "report.deliver", attribute.String("job.id", id))
	defer span.End()

	metrics.DeliveryJobsActive.Inc()
	defer metrics.DeliveryJobsActive.Dec()

	log := c.logger.WithFields(map[string]interface{}{"jobId": id})

	if c.opts.Warmup && c.warmer != nil {
		if err := c.warmer.Warmup(ctx); err != nil {
			log.Warn("PDF service warm-up failed", map[string]interface{}{"error": err.Error()})
		}
	}

	job.IdempotencyKey = IdempotencyKey(job.Recipient, job.Payload, job.HTML)

	prev, hit, err := c.idem.Get(ctx, job.IdempotencyKey)
	if err != nil {
		log.Warn("Idempotency lookup failed, delivering anyway", map[string]interface{}{"error": err.Error()})
	}
	if hit {
		job.Outcome = prev
		job.Deduplicated = true
		c.finish(ctx, job, models.JobDone, start)
		log.Info("Duplicate delivery suppressed", nil)
		return job.Clone(), nil
	}

	if HasUnresolvedTemplate(job.HTML, c.opts.GuardWindow) {
		c.fail(ctx, job, ErrUnresolvedTemplate, start)
		return job.Clone(), nil
	}

	outcome, err := c.dispatcher.Dispatch(ctx, job)
	if err != nil {
		span.RecordError(err)
		c.fail(ctx, job, err, start)
		return job.Clone(), nil
	}

	if err := c.idem.Put(ctx, job.IdempotencyKey, outcome, c.opts.IdempotencyTTL); err != nil {
		log.Warn("Failed to record idempotency key", map[string]interface{}{"error": err.Error()})
	}
	job.Outcome = outcome
	c.finish(ctx, job, models.JobDone, start)
	log.Info("Report delivered", map[string]interface{}{
		"pdfBytes":    outcome.PDFBytes,
		"userMailed":  outcome.UserMailed,
		"adminMailed": outcome.AdminMailed,
		"mailErrors":  len(outcome.MailErrors),
	})
	return job.Clone(), nil
}

// Status returns a snapshot of the job, checking memory before the persistent store.
func (c *Coordinator) Status(ctx context.Context, id string) (*models.DeliveryJob, error) {
	job, err := c.jobs.Get(ctx, id)
	if err == nil {
		return job, nil
	}
	if c.persistent == nil {
		return nil, err
	}
	job, perr := c.persistent.Get(ctx, id)
	if perr != nil {
		if errors.Is(perr, ErrJobNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("status %s: %w", id, perr)
	}
	return job, nil
}

// Wait blocks until background jobs finish or ctx ends.
func (c *Coordinator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Coordinator) fail(ctx context.Context, job *models.DeliveryJob, cause error, start time.Time) {
	job.Error = cause.Error()
	c.finish(ctx, job, models.JobError, start)
	c.logger.Error("Delivery failed", map[string]interface{}{"jobId": job.ID, "error": job.Error})

	if c.alerter == nil {
		return
	}
	if err := c.alerter.Alert(ctx, job); err != nil {
		c.logger.Warn("Failed to publish delivery alert", map[string]interface{}{"jobId": job.ID, "error": err.Error()})
	}
}

func (c *Coordinator) finish(ctx context.Context, job *models.DeliveryJob, status models.JobStatus, start time.Time) {
	c.transition(ctx, job, status)
	metrics.Deliveries.WithLabelValues(string(status), fmt.Sprint(job.Deduplicated)).Inc()
	c.obs.RecordJobProcessed(ctx, string(status))
	c.obs.RecordJobDuration(ctx, c.now().Sub(start), string(status))
}

func (c *Coordinator) transition(ctx context.Context, job *models.DeliveryJob, status models.JobStatus) {
	job.Status = status
	job.UpdatedAt = c.now().UTC()
	c.save(ctx, job)
}

// save writes memory first; mirror failures are logged only.
func (c *Coordinator) save(ctx context.Context, job *models.DeliveryJob) {
	_ = c.jobs.Save(ctx, job)
	c.mirror(ctx, job)
}

func (c *Coordinator) mirror(ctx context.Context, job *models.DeliveryJob) {
	if c.persistent == nil {
		return
	}
	if err := c.persistent.Save(ctx, job); err != nil {
		c.logger.Warn("Failed to mirror delivery job", map[string]interface{}{"jobId": job.ID, "error": err.Error()})
	}
}

// IdempotencyKey hashes the normalized recipient, the canonical payload JSON and the HTML.
// encoding/json sorts map keys, which makes the payload serialization deterministic.
func IdempotencyKey(recipient string, payload map[string]interface{}, html string) string {
	canonical, err := json.Marshal(payload)
	if err != nil {
		canonical = []byte(fmt.Sprintf("%v", payload))
	}

	h := sha256.New()
	h.Write([]byte(strings.ToLower(strings.TrimSpace(recipient))))
	h.Write([]byte{'|'})
	h.Write(canonical)
	if html != "" {
		sum := sha256.Sum256([]byte(html))
		h.Write([]byte{'|'})
		h.Write([]byte(hex.EncodeToString(sum[:])))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// HasUnresolvedTemplate scans the first window runes for template markers.
func HasUnresolvedTemplate(html string, window int) bool {
	head := html
	if window > 0 {
		runes := []rune(html)
		if len(runes) > window {
			head = string(runes[:window])
		}
	}
	return strings.Contains(head, "{{") || strings.Contains(head, "{%")
}
