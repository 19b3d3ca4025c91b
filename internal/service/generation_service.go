package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/digkill/BizPlanGen/internal/llm"
	"github.com/digkill/BizPlanGen/internal/metrics"
	"github.com/digkill/BizPlanGen/internal/models"
	"github.com/digkill/BizPlanGen/internal/storage"
)

type Completer interface {
	Model() string
	Complete(ctx context.Context, req llm.CompletionRequest) (string, error)
}

type PlanStore interface {
	Save(ctx context.Context, sessionID, text string) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

type GenerationLogger interface {
	Log(ctx context.Context, sessionID, jobID, model, outcome, errorKind string) error
}

type job struct {
	models.GenerationJob
	cancel context.CancelFunc
}

type GenerationService struct {
	log         *slog.Logger
	sessions    *SessionStore
	llm         Completer
	store       PlanStore
	generations GenerationLogger
	notifier    Notifier

	baseCtx    context.Context
	stop       context.CancelFunc
	wg         sync.WaitGroup
	mu         sync.Mutex
	jobs       map[string]*job
	latestJobs map[string]string
	now        func() time.Time
}

// NewGenerationService builds the generator. generations and notifier may be nil.
func NewGenerationService(log *slog.Logger, sessions *SessionStore, completer Completer, store PlanStore, generations GenerationLogger, notifier Notifier) *GenerationService {
	ctx, stop := context.WithCancel(context.Background())
	return &GenerationService{
		log:         log,
		sessions:    sessions,
		llm:         completer,
		store:       store,
		generations: generations,
		notifier:    notifier,
		baseCtx:     ctx,
		stop:        stop,
		jobs:        make(map[string]*job),
		latestJobs:  make(map[string]string),
		now:         time.Now,
	}
}

// Generate runs one completion for a paid session and saves the text as the session's plan.
// Any failure leaves the session and the stored plan untouched.
func (s *GenerationService) Generate(ctx context.Context, sessionID string) (*models.GeneratedPlan, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !session.Paid {
		return nil, ErrPaymentRequired
	}

	prompt := BuildPrompt(WithDefaults(session.Fields))
	text, err := s.llm.Complete(ctx, llm.CompletionRequest{
		System:      systemPrompt,
		User:        prompt,
		Temperature: planTemperature,
		MaxTokens:   planMaxTokens,
	})
	if err != nil {
		switch {
		case errors.Is(err, llm.ErrAPIKeyMissing):
			return nil, wrap(ErrConfigurationMissing, err)
		case ctx.Err() != nil:
			return nil, ctx.Err()
		default:
			return nil, wrap(ErrProviderFailure, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key, err := s.store.Save(ctx, sessionID, text)
	if err != nil {
		return nil, wrap(ErrStorageFailure, err)
	}
	if _, err := s.sessions.Update(sessionID, func(sess *models.Session) { sess.PlanKey = key }); err != nil {
		return nil, err
	}

	return &models.GeneratedPlan{
		SessionID: sessionID,
		Text:      text,
		Key:       key,
		CreatedAt: s.now().UTC(),
	}, nil
}

// Start runs Generate in the background and returns the pending job. A session has at
// most one unfinished job.
func (s *GenerationService) Start(sessionID string) (models.GenerationJob, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return models.GenerationJob{}, ErrSessionNotFound
	}
	if !session.Paid {
		return models.GenerationJob{}, ErrPaymentRequired
	}

	s.mu.Lock()
	if prevID, ok := s.latestJobs[sessionID]; ok {
		if prev := s.jobs[prevID]; prev != nil {
			if !prev.State.Done() {
				s.mu.Unlock()
				return models.GenerationJob{}, ErrJobInProgress
			}
			delete(s.jobs, prevID)
		}
	}
	if err := s.baseCtx.Err(); err != nil {
		s.mu.Unlock()
		return models.GenerationJob{}, err
	}
	ctx, cancel := context.WithCancel(s.baseCtx)
	j := &job{
		GenerationJob: models.GenerationJob{
			ID:        uuid.NewString(),
			SessionID: sessionID,
			State:     models.JobPending,
			StartedAt: s.now().UTC(),
		},
		cancel: cancel,
	}
	s.jobs[j.ID] = j
	s.latestJobs[sessionID] = j.ID
	snapshot := j.GenerationJob
	s.wg.Add(1)
	s.mu.Unlock()

	go s.run(ctx, j.ID, sessionID)
	return snapshot, nil
}

func (s *GenerationService) run(ctx context.Context, jobID, sessionID string) {
	defer s.wg.Done()
	s.setState(jobID, func(j *job) { j.State = models.JobRunning })
	s.log.Info("generation started", "job_id", jobID, "session_id", sessionID)

	plan, err := s.Generate(ctx, sessionID)

	var final models.GenerationJob
	s.setState(jobID, func(j *job) {
		j.FinishedAt = s.now().UTC()
		switch {
		case err == nil:
			j.State = models.JobSucceeded
			j.PlanKey = plan.Key
		case errors.Is(err, context.Canceled):
			j.State = models.JobCanceled
			j.ErrorKind = ErrorKind(err)
			j.Message = UserMessage(err)
		default:
			j.State = models.JobFailed
			j.ErrorKind = ErrorKind(err)
			j.Message = UserMessage(err)
		}
		j.cancel()
		final = j.GenerationJob
	})

	metrics.RecordGeneration(string(final.State), final.FinishedAt.Sub(final.StartedAt))
	if err != nil {
		s.log.Error("generation finished without plan", "job_id", jobID, "session_id", sessionID, "state", final.State, "err", err)
	} else {
		s.log.Info("generation succeeded", "job_id", jobID, "session_id", sessionID, "key", plan.Key)
		s.notify(fmt.Sprintf("Business plan generated for session %s", sessionID))
	}

	if s.generations != nil {
		logCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if logErr := s.generations.Log(logCtx, sessionID, jobID, s.llm.Model(), string(final.State), final.ErrorKind); logErr != nil {
			s.log.Error("failed to log generation", "err", logErr)
		}
	}
}

func (s *GenerationService) setState(jobID string, fn func(*job)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if j, ok := s.jobs[jobID]; ok {
		fn(j)
	}
}

// Status returns the job if it belongs to sessionID.
func (s *GenerationService) Status(sessionID, jobID string) (models.GenerationJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok || j.SessionID != sessionID {
		return models.GenerationJob{}, ErrJobNotFound
	}
	return j.GenerationJob, nil
}

// Cancel stops a running job. Cancelling a finished job is a no-op.
func (s *GenerationService) Cancel(sessionID, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.jobs[jobID]
	if !ok || j.SessionID != sessionID {
		return ErrJobNotFound
	}
	if !j.State.Done() {
		j.cancel()
	}
	return nil
}

// Prune drops finished jobs that ended more than maxAge ago and returns how many went.
// Unfinished jobs are kept whatever their age.
func (s *GenerationService) Prune(maxAge time.Duration) int {
	cutoff := s.now().UTC().Add(-maxAge)
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, j := range s.jobs {
		if !j.State.Done() || !j.FinishedAt.Before(cutoff) {
			continue
		}
		delete(s.jobs, id)
		if s.latestJobs[j.SessionID] == id {
			delete(s.latestJobs, j.SessionID)
		}
		removed++
	}
	return removed
}

// Jobs reports how many jobs are held in memory.
func (s *GenerationService) Jobs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// OpenPlan returns the session's latest saved plan.
func (s *GenerationService) OpenPlan(ctx context.Context, sessionID string) (io.ReadCloser, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, ErrSessionNotFound
	}
	if session.PlanKey == "" {
		return nil, storage.ErrNotFound
	}
	rc, err := s.store.Open(ctx, session.PlanKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, err
		}
		return nil, wrap(ErrStorageFailure, err)
	}
	return rc, nil
}

// Shutdown cancels running jobs and waits for them, or for ctx to end.
func (s *GenerationService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.stop()
	s.mu.Unlock()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *GenerationService) notify(text string) {
	if s.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.notifier.Notify(ctx, text); err != nil {
		s.log.Error("operator notification failed", "err", err)
	}
}
