package warm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/ytcache/cache"
	"github.com/briangreenhill/ytcache/internal/jobs"
	"github.com/briangreenhill/ytcache/youtube"
)

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// RequestSpec is one request to warm.
type RequestSpec struct {
	Endpoint string              `json:"endpoint"`
	Params   map[string][]string `json:"params"`
	Handle   string              `json:"handle"`
}

// Batch is the body accepted by the warm endpoint.
type Batch struct {
	Requests []RequestSpec `json:"requests"`
	Handles  []string      `json:"handles"`
}

// ErrEmptyBatch is returned for a batch with nothing to warm.
var ErrEmptyBatch = errors.New("warm: empty batch")

func taskOptions() []asynq.Option {
	return []asynq.Option{
		asynq.TaskID(uuid.NewString()),
		asynq.Queue(jobs.QueueWarm),
		asynq.MaxRetry(3),
		asynq.Timeout(2 * time.Minute),
	}
}

func NewWarmRequestTask(p jobs.WarmRequestPayload) (*asynq.Task, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(jobs.TaskWarmRequest, b, taskOptions()...), nil
}

func NewWarmChannelTask(p jobs.WarmChannelPayload) (*asynq.Task, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(jobs.TaskWarmChannel, b, taskOptions()...), nil
}

// Enqueue validates the batch and enqueues one task per entry. Requests
// naming an endpoint outside the allow-list fail the whole batch before
// anything is enqueued. It returns the batch id and the number of tasks
// enqueued; on error some tasks may already be queued.
func Enqueue(ctx context.Context, enq Enqueuer, batch Batch) (string, int, error) {
	if len(batch.Requests) == 0 && len(batch.Handles) == 0 {
		return "", 0, ErrEmptyBatch
	}
	for _, r := range batch.Requests {
		if _, err := cache.ParseEndpoint(r.Endpoint); err != nil {
			return "", 0, err
		}
	}

	batchID := uuid.NewString()
	var tasks []*asynq.Task
	for _, r := range batch.Requests {
		t, err := NewWarmRequestTask(jobs.WarmRequestPayload{
			BatchID:  batchID,
			Endpoint: r.Endpoint,
			Params:   r.Params,
			Handle:   r.Handle,
		})
		if err != nil {
			return "", 0, err
		}
		tasks = append(tasks, t)
	}
	for _, h := range batch.Handles {
		t, err := NewWarmChannelTask(jobs.WarmChannelPayload{BatchID: batchID, Handle: h})
		if err != nil {
			return "", 0, err
		}
		tasks = append(tasks, t)
	}

	enqueued := 0
	for _, t := range tasks {
		if _, err := enq.EnqueueContext(ctx, t); err != nil {
			return batchID, enqueued, fmt.Errorf("warm: enqueue %s: %w", t.Type(), err)
		}
		enqueued++
	}
	return batchID, enqueued, nil
}

// Register installs the task handlers on mux.
func (w *Warmer) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(jobs.TaskWarmRequest, w.HandleWarmRequest)
	mux.HandleFunc(jobs.TaskWarmChannel, w.HandleWarmChannel)
}

func (w *Warmer) HandleWarmRequest(ctx context.Context, t *asynq.Task) error {
	var p jobs.WarmRequestPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("%w: bad payload: %v", asynq.SkipRetry, err)
	}
	start := time.Now()
	provenance, err := w.WarmRequest(ctx, p.Endpoint, url.Values(p.Params), p.Handle)
	log := w.log.With().Str("batch_id", p.BatchID).Str("endpoint", p.Endpoint).Dur("duration", time.Since(start)).Logger()
	if err != nil {
		return w.classify(log.Error(), err)
	}
	log.Info().Str("x_cache", provenance).Msg("request warmed")
	return nil
}

func (w *Warmer) HandleWarmChannel(ctx context.Context, t *asynq.Task) error {
	var p jobs.WarmChannelPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("%w: bad payload: %v", asynq.SkipRetry, err)
	}
	if _, err := w.WarmChannel(ctx, p.Handle); err != nil {
		return w.classify(w.log.Error().Str("batch_id", p.BatchID).Str("handle", p.Handle), err)
	}
	return nil
}

// classify logs err and returns it, wrapped in asynq.SkipRetry when a retry
// would fail the same way.
func (w *Warmer) classify(ev *zerolog.Event, err error) error {
	if isRetryableError(err) {
		ev.Err(err).Msg("warm failed, will retry")
		return err
	}
	ev.Err(err).Msg("warm failed permanently, dropping job")
	return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
}

// isRetryableError reports whether a failed warm may succeed later.
// Transport failures, store outages, throttling and upstream 5xx retry.
func isRetryableError(err error) bool {
	switch {
	case errors.Is(err, cache.ErrForbiddenEndpoint), errors.Is(err, ErrChannelNotFound):
		return false
	case youtube.IsPermanent(err):
		return false
	}
	return true
}
