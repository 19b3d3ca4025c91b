package service

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/digkill/BizPlanGen/internal/models"
	"github.com/digkill/BizPlanGen/internal/storage"
	"github.com/digkill/BizPlanGen/pkg/logger"
)

type generationFixture struct {
	svc       *GenerationService
	sessions  *SessionStore
	completer *fakeCompleter
	dir       string
	history   *fakeGenerationLog
}

func newGenerationFixture(t *testing.T) generationFixture {
	t.Helper()
	store, dir := newLocalStore(t)
	f := generationFixture{
		sessions:  NewSessionStore(),
		completer: &fakeCompleter{text: "# Plan A"},
		dir:       dir,
		history:   &fakeGenerationLog{},
	}
	f.svc = NewGenerationService(logger.Discard(), f.sessions, f.completer, store, f.history, &recordingNotifier{})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = f.svc.Shutdown(ctx)
	})
	return f
}

func (f generationFixture) paidSession(t *testing.T) models.Session {
	t.Helper()
	s := f.sessions.Create()
	s, err := f.sessions.MarkPaid(s.ID)
	require.NoError(t, err)
	return s
}

func (f generationFixture) planFile(sessionID string) string {
	return filepath.Join(f.dir, sessionID, storage.FileName)
}

func readPlan(t *testing.T, f generationFixture, sessionID string) string {
	t.Helper()
	rc, err := f.svc.OpenPlan(context.Background(), sessionID)
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestGenerateRequiresPayment(t *testing.T) {
	f := newGenerationFixture(t)
	s := f.sessions.Create()

	_, err := f.svc.Generate(context.Background(), s.ID)
	assert.ErrorIs(t, err, ErrPaymentRequired)
	_, err = f.svc.Start(s.ID)
	assert.ErrorIs(t, err, ErrPaymentRequired)

	assert.Zero(t, f.completer.callCount())
	assert.NoFileExists(t, f.planFile(s.ID))
}

func TestGenerateSendsPromptAndSavesText(t *testing.T) {
	f := newGenerationFixture(t)
	s := f.paidSession(t)

	plan, err := f.svc.Generate(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, "# Plan A", plan.Text)

	require.Len(t, f.completer.calls, 1)
	call := f.completer.calls[0]
	assert.Equal(t, systemPrompt, call.System)
	assert.Equal(t, BuildPrompt(DefaultPlanRequest()), call.User)
	assert.InDelta(t, 0.7, call.Temperature, 0.0001)
	assert.Equal(t, 3000, call.MaxTokens)

	raw, err := os.ReadFile(f.planFile(s.ID))
	require.NoError(t, err)
	assert.Equal(t, "# Plan A", string(raw))
	assert.Equal(t, "# Plan A", readPlan(t, f, s.ID))
}

func TestGenerateTwiceReplacesFile(t *testing.T) {
	f := newGenerationFixture(t)
	s := f.paidSession(t)

	_, err := f.svc.Generate(context.Background(), s.ID)
	require.NoError(t, err)
	f.completer.set("# Plan B", nil)
	_, err = f.svc.Generate(context.Background(), s.ID)
	require.NoError(t, err)

	assert.Equal(t, "# Plan B", readPlan(t, f, s.ID))
}

func TestGenerateFailureLeavesStateUntouched(t *testing.T) {
	f := newGenerationFixture(t)
	s := f.paidSession(t)

	_, err := f.svc.Generate(context.Background(), s.ID)
	require.NoError(t, err)

	f.completer.set("", errors.New("quota exceeded"))
	_, err = f.svc.Generate(context.Background(), s.ID)
	assert.ErrorIs(t, err, ErrProviderFailure)
	assert.Equal(t, "provider", ErrorKind(err))

	session, _ := f.sessions.Get(s.ID)
	assert.True(t, session.Paid)
	assert.Equal(t, "# Plan A", readPlan(t, f, s.ID))
}

func TestGenerateFailureWithoutPriorPlan(t *testing.T) {
	f := newGenerationFixture(t)
	s := f.paidSession(t)
	f.completer.set("", errors.New("boom"))

	_, err := f.svc.Generate(context.Background(), s.ID)
	require.Error(t, err)

	assert.NoFileExists(t, f.planFile(s.ID))
	_, err = f.svc.OpenPlan(context.Background(), s.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGenerateStorageFailure(t *testing.T) {
	sessions := NewSessionStore()
	svc := NewGenerationService(logger.Discard(), sessions, &fakeCompleter{text: "x"}, failingStore{}, nil, nil)
	s := sessions.Create()
	_, err := sessions.MarkPaid(s.ID)
	require.NoError(t, err)

	_, err = svc.Generate(context.Background(), s.ID)
	assert.ErrorIs(t, err, ErrStorageFailure)
	session, _ := sessions.Get(s.ID)
	assert.Empty(t, session.PlanKey)
}

func waitForJob(t *testing.T, svc *GenerationService, sessionID, jobID string) models.GenerationJob {
	t.Helper()
	var job models.GenerationJob
	require.Eventually(t, func() bool {
		var err error
		job, err = svc.Status(sessionID, jobID)
		require.NoError(t, err)
		return job.State.Done()
	}, 2*time.Second, 10*time.Millisecond)
	return job
}

func TestStartRunsJobToCompletion(t *testing.T) {
	f := newGenerationFixture(t)
	s := f.paidSession(t)

	job, err := f.svc.Start(s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobPending, job.State)

	done := waitForJob(t, f.svc, s.ID, job.ID)
	assert.Equal(t, models.JobSucceeded, done.State)
	assert.Empty(t, done.ErrorKind)
	assert.Equal(t, "# Plan A", readPlan(t, f, s.ID))

	_, err = f.svc.Status("other-session", job.ID)
	assert.ErrorIs(t, err, ErrJobNotFound)

	require.Eventually(t, func() bool {
		f.history.mu.Lock()
		defer f.history.mu.Unlock()
		return len(f.history.outcomes) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestStartReportsFailureKind(t *testing.T) {
	f := newGenerationFixture(t)
	s := f.paidSession(t)
	f.completer.set("", errors.New("upstream 500"))

	job, err := f.svc.Start(s.ID)
	require.NoError(t, err)

	done := waitForJob(t, f.svc, s.ID, job.ID)
	assert.Equal(t, models.JobFailed, done.State)
	assert.Equal(t, "provider", done.ErrorKind)
	assert.NotEmpty(t, done.Message)
}

func TestCancelStopsRunningJob(t *testing.T) {
	f := newGenerationFixture(t)
	s := f.paidSession(t)
	f.completer.block = make(chan struct{})

	job, err := f.svc.Start(s.ID)
	require.NoError(t, err)

	_, err = f.svc.Start(s.ID)
	assert.ErrorIs(t, err, ErrJobInProgress)

	require.NoError(t, f.svc.Cancel(s.ID, job.ID))
	done := waitForJob(t, f.svc, s.ID, job.ID)
	assert.Equal(t, models.JobCanceled, done.State)
	assert.Equal(t, "canceled", done.ErrorKind)

	session, _ := f.sessions.Get(s.ID)
	assert.True(t, session.Paid)
	assert.NoFileExists(t, f.planFile(s.ID))

	assert.NoError(t, f.svc.Cancel(s.ID, job.ID))
	assert.ErrorIs(t, f.svc.Cancel(s.ID, "nope"), ErrJobNotFound)

	f.completer.mu.Lock()
	f.completer.block = nil
	f.completer.mu.Unlock()
	next, err := f.svc.Start(s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobSucceeded, waitForJob(t, f.svc, s.ID, next.ID).State)
}

func TestShutdownCancelsJobsAndRefusesNewOnes(t *testing.T) {
	f := newGenerationFixture(t)
	s := f.paidSession(t)
	f.completer.block = make(chan struct{})

	job, err := f.svc.Start(s.ID)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, f.svc.Shutdown(ctx))

	status, err := f.svc.Status(s.ID, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobCanceled, status.State)

	_, err = f.svc.Start(s.ID)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPruneDropsExpiredFinishedJobs(t *testing.T) {
	f := newGenerationFixture(t)

	var finished []models.GenerationJob
	for i := 0; i < 20; i++ {
		s := f.paidSession(t)
		job, err := f.svc.Start(s.ID)
		require.NoError(t, err)
		finished = append(finished, waitForJob(t, f.svc, s.ID, job.ID))
	}

	f.completer.mu.Lock()
	f.completer.block = make(chan struct{})
	f.completer.mu.Unlock()
	busy := f.paidSession(t)
	running, err := f.svc.Start(busy.ID)
	require.NoError(t, err)

	assert.Zero(t, f.svc.Prune(24*time.Hour))
	assert.Equal(t, 21, f.svc.Jobs())

	later := time.Now().Add(48 * time.Hour)
	f.svc.mu.Lock()
	f.svc.now = func() time.Time { return later }
	f.svc.mu.Unlock()

	assert.Equal(t, 20, f.svc.Prune(24*time.Hour))
	assert.Equal(t, 1, f.svc.Jobs())
	f.svc.mu.Lock()
	assert.Len(t, f.svc.latestJobs, 1)
	f.svc.mu.Unlock()

	_, err = f.svc.Status(finished[0].SessionID, finished[0].ID)
	assert.ErrorIs(t, err, ErrJobNotFound)
	status, err := f.svc.Status(busy.ID, running.ID)
	require.NoError(t, err)
	assert.False(t, status.State.Done())
}
