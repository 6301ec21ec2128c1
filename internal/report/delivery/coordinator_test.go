package delivery

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"report-workers/internal/common/logger"
	"report-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDispatcher struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, job *models.DeliveryJob) (*models.DeliveryOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &models.DeliveryOutcome{PDFBytes: 2048, UserMailed: true, CompletedAt: time.Now().UTC()}, nil
}

func (f *fakeDispatcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeWarmer struct{ calls int }

func (f *fakeWarmer) Warmup(ctx context.Context) error {
	f.calls++
	return errors.New("service asleep")
}

type fakeAlerter struct{ jobs []string }

func (f *fakeAlerter) Alert(ctx context.Context, job *models.DeliveryJob) error {
	f.jobs = append(f.jobs, job.ID)
	return nil
}

const reportHTML = "<!DOCTYPE html><html><body><h1>KI-Statusbericht</h1></body></html>"

func request(id string) Request {
	return Request{
		JobID:     id,
		Recipient: "Kunde@Example.com ",
		Language:  "de",
		HTML:      reportHTML,
		Payload:   map[string]interface{}{"branche": "beratung", "sprache": "de"},
	}
}

func newCoordinator(t *testing.T, d Dispatcher, deps Dependencies) *Coordinator {
	t.Helper()
	deps.Dispatcher = d
	return NewCoordinator(deps, Options{}, logger.NewTestLogger(t))
}

func TestDeliver_SuccessAndDuplicateSuppression(t *testing.T) {
	ctx := context.Background()
	d := &fakeDispatcher{}
	c := newCoordinator(t, d, Dependencies{})

	first, err := c.Deliver(ctx, request("job-1"))
	require.NoError(t, err)
	assert.Equal(t, models.JobDone, first.Status)
	assert.False(t, first.Deduplicated)
	require.NotNil(t, first.Outcome)
	assert.Equal(t, 2048, first.Outcome.PDFBytes)
	assert.Equal(t, "kunde@example.com", strings.ToLower(first.Recipient))

	second, err := c.Deliver(ctx, request("job-2"))
	require.NoError(t, err)
	assert.Equal(t, models.JobDone, second.Status)
	assert.True(t, second.Deduplicated)
	assert.Equal(t, first.Outcome.PDFBytes, second.Outcome.PDFBytes)
	assert.Equal(t, first.IdempotencyKey, second.IdempotencyKey)
	assert.Equal(t, 1, d.count())

	changed := request("job-3")
	changed.HTML = reportHTML + "<!-- v2 -->"
	third, err := c.Deliver(ctx, changed)
	require.NoError(t, err)
	assert.False(t, third.Deduplicated)
	assert.Equal(t, 2, d.count())
}

func TestDeliver_GuardRejectsUnresolvedTemplate(t *testing.T) {
	ctx := context.Background()
	d := &fakeDispatcher{}
	c := newCoordinator(t, d, Dependencies{})

	req := request("job-guard")
	req.HTML = "<html><body><h1>{{ title }}</h1></body></html>"
	job, err := c.Deliver(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, models.JobError, job.Status)
	assert.Equal(t, ErrUnresolvedTemplate.Error(), job.Error)
	assert.Equal(t, 0, d.count())

	late := request("job-late-marker")
	late.HTML = "<html>" + strings.Repeat("ä", 500) + "{% endif %}</html>"
	job, err = c.Deliver(ctx, late)
	require.NoError(t, err)
	assert.Equal(t, models.JobDone, job.Status)
	assert.Equal(t, 1, d.count())
}

func TestDeliver_FailureIsNotRecorded(t *testing.T) {
	ctx := context.Background()
	d := &fakeDispatcher{err: errors.New("pdf service returned 502")}
	alerter := &fakeAlerter{}
	warmer := &fakeWarmer{}
	c := NewCoordinator(Dependencies{Dispatcher: d, Alerter: alerter, Warmer: warmer},
		Options{Warmup: true}, logger.NewTestLogger(t))

	job, err := c.Deliver(ctx, request("job-fail"))
	require.NoError(t, err)
	assert.Equal(t, models.JobError, job.Status)
	assert.Contains(t, job.Error, "502")
	assert.Equal(t, []string{"job-fail"}, alerter.jobs)
	assert.Equal(t, 1, warmer.calls)

	d.mu.Lock()
	d.err = nil
	d.mu.Unlock()

	retry, err := c.Deliver(ctx, request("job-retry"))
	require.NoError(t, err)
	assert.Equal(t, models.JobDone, retry.Status)
	assert.False(t, retry.Deduplicated)
	assert.Equal(t, 2, d.count())
}

func TestDeliver_DuplicateJobID(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator(t, &fakeDispatcher{}, Dependencies{})

	_, err := c.Deliver(ctx, request("same"))
	require.NoError(t, err)
	_, err = c.Deliver(ctx, request("same"))
	assert.Error(t, err)
}

func TestDeliver_FailedJobIDCanBeRetried(t *testing.T) {
	ctx := context.Background()
	d := &fakeDispatcher{err: errors.New("pdf service returned 502")}
	c := newCoordinator(t, d, Dependencies{})

	failed, err := c.Deliver(ctx, request("report-1"))
	require.NoError(t, err)
	assert.Equal(t, models.JobError, failed.Status)

	d.mu.Lock()
	d.err = nil
	d.mu.Unlock()

	retried, err := c.Deliver(ctx, request("report-1"))
	require.NoError(t, err)
	assert.Equal(t, "report-1", retried.ID)
	assert.Equal(t, models.JobDone, retried.Status)
	assert.Empty(t, retried.Error)
	assert.Equal(t, 2, d.count())

	_, err = c.Deliver(ctx, request("report-1"))
	assert.ErrorIs(t, err, ErrJobExists)
	assert.Equal(t, 2, d.count())
}

func TestRun_ConcurrentCallsDispatchOnce(t *testing.T) {
	ctx := context.Background()
	d := &fakeDispatcher{}
	c := newCoordinator(t, d, Dependencies{})

	job, err := c.enqueue(ctx, request("race"))
	require.NoError(t, err)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		rejected int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Run(ctx, job.ID); err != nil {
				mu.Lock()
				rejected++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, d.count())
	assert.Equal(t, 7, rejected)
	status, err := c.Status(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobDone, status.Status)
}

func TestSubmit_RunsInBackground(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator(t, &fakeDispatcher{}, Dependencies{})

	req := request("")
	job, err := c.Submit(ctx, req)
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, models.JobQueued, job.Status)

	waitCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, c.Wait(waitCtx))

	status, err := c.Status(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobDone, status.Status)
	assert.True(t, status.Status.Terminal())
}

func TestStatus_UnknownAndPersistentFallback(t *testing.T) {
	ctx := context.Background()
	persistent := NewMemoryJobStore()
	c := newCoordinator(t, &fakeDispatcher{}, Dependencies{Persistent: persistent})

	_, err := c.Status(ctx, "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)

	require.NoError(t, persistent.Save(ctx, &models.DeliveryJob{ID: "before-restart", Status: models.JobDone}))
	job, err := c.Status(ctx, "before-restart")
	require.NoError(t, err)
	assert.Equal(t, models.JobDone, job.Status)

	delivered, err := c.Deliver(ctx, request("mirrored"))
	require.NoError(t, err)
	mirrored, err := persistent.Get(ctx, delivered.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobDone, mirrored.Status)
}

func TestRun_RejectsNonQueuedJob(t *testing.T) {
	ctx := context.Background()
	c := newCoordinator(t, &fakeDispatcher{}, Dependencies{})

	_, err := c.Deliver(ctx, request("done-already"))
	require.NoError(t, err)
	_, err = c.Run(ctx, "done-already")
	assert.Error(t, err)

	_, err = c.Run(ctx, "nope")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestIdempotencyKey(t *testing.T) {
	a := IdempotencyKey(" User@Example.com", map[string]interface{}{"a": 1, "b": "x"}, "<p>x</p>")
	b := IdempotencyKey("user@example.com", map[string]interface{}{"b": "x", "a": 1}, "<p>x</p>")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	assert.NotEqual(t, a, IdempotencyKey("user@example.com", map[string]interface{}{"a": 2, "b": "x"}, "<p>x</p>"))
	assert.NotEqual(t, a, IdempotencyKey("user@example.com", map[string]interface{}{"a": 1, "b": "x"}, "<p>y</p>"))
	assert.NotEqual(t, a, IdempotencyKey("user@example.com", map[string]interface{}{"a": 1, "b": "x"}, ""))
}

func TestHasUnresolvedTemplate(t *testing.T) {
	assert.True(t, HasUnresolvedTemplate("<p>{{x}}</p>", 400))
	assert.True(t, HasUnresolvedTemplate("<p>{% if %}</p>", 400))
	assert.False(t, HasUnresolvedTemplate("<p>{ {</p>", 400))
	assert.False(t, HasUnresolvedTemplate(strings.Repeat("x", 400)+"{{", 400))
	assert.True(t, HasUnresolvedTemplate(strings.Repeat("x", 400)+"{{", 0))
}
