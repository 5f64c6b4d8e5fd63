package freelingo_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/freelingo"
	"github.com/aretw0/freelingo/pkg/adapters/memory"
	"github.com/aretw0/freelingo/pkg/domain"
	"github.com/aretw0/freelingo/pkg/policy"
	"github.com/aretw0/freelingo/pkg/ports"
	"github.com/aretw0/freelingo/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var history = []domain.Message{
	{Role: domain.RoleLearner, Text: ""},
	{Role: domain.RoleAI, Text: "Bonjour ! Où habites-tu ?"},
	{Role: domain.RoleLearner, Text: "j'habite à lisbonne"},
	{Role: domain.RoleAI, Text: "Tu aimes la ville ?"},
	{Role: domain.RoleLearner, Text: "Oui"},
}

func seeded(t *testing.T, userID string) *session.Manager {
	t.Helper()
	mgr := session.NewManager(memory.NewStore())
	require.NoError(t, mgr.AppendMessages(context.Background(), userID, history...))
	require.NoError(t, mgr.AddKnownWords(context.Background(), userID, domain.Word{Word: "oui", Translation: "yes"}))
	return mgr
}

func TestPipeline_EndSession_Validated(t *testing.T) {
	mgr := seeded(t, "learner-1")
	p := freelingo.New(memory.NewEvaluator(), freelingo.WithSessions(mgr))

	res := p.EndSession(context.Background(), "learner-1")

	require.NoError(t, res.Err)
	require.NotNil(t, res.State)
	assert.True(t, res.Available)
	assert.Empty(t, res.Notice)
	assert.Equal(t, domain.RunValidated, res.State.Status)
	assert.Equal(t, []domain.Stage{
		domain.StageFeedback, domain.StagePlanner, domain.StageWords, domain.StageReferee,
	}, res.State.StateTransitions)
	assert.Equal(t, 2, res.State.Transcript.Len(), "the empty opening trigger is skipped")
	assert.NotEmpty(t, res.State.RunID)
}

func TestPipeline_EndSession_BreakerTripped(t *testing.T) {
	mgr := seeded(t, "learner-1")
	reject := &domain.RefereeOutput{
		Violations: []string{domain.ViolationWordsOffTopic},
		Rationale:  domain.Rationale{ReasoningSummary: "words ignore the plan"},
	}
	p := freelingo.New(
		memory.NewEvaluator(memory.WithRefereeScript(reject)),
		freelingo.WithSessions(mgr),
	)

	res := p.EndSession(context.Background(), "learner-1")

	require.NoError(t, res.Err)
	assert.False(t, res.Available)
	assert.Equal(t, freelingo.UnavailableNotice, res.Notice)
	assert.Equal(t, domain.RunBreakerTripped, res.State.Status)
	assert.Equal(t, policy.DefaultStageRetries, res.State.AgentRetryCount[domain.StageWords])
}

func TestPipeline_EndSession_MissingSession(t *testing.T) {
	p := freelingo.New(memory.NewEvaluator(), freelingo.WithSessions(session.NewManager(memory.NewStore())))

	res := p.EndSession(context.Background(), "ghost")

	assert.ErrorIs(t, res.Err, domain.ErrSessionNotFound)
	assert.Nil(t, res.State)
	assert.False(t, res.Available)
	assert.Equal(t, freelingo.UnavailableNotice, res.Notice)
}

func TestPipeline_EndSession_WithoutManager(t *testing.T) {
	res := freelingo.New(memory.NewEvaluator()).EndSession(context.Background(), "learner-1")
	assert.ErrorIs(t, res.Err, freelingo.ErrNoSessions)
}

func TestPipeline_SnapshotIsolation(t *testing.T) {
	mgr := seeded(t, "learner-1")
	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once

	offline := memory.NewEvaluator()
	ev := ports.EvaluatorFuncs{
		FeedbackFunc: func(ctx context.Context, in domain.FeedbackBundle) (*domain.FeedbackOutput, error) {
			once.Do(func() { close(started) })
			<-release
			return offline.Feedback(ctx, in)
		},
		PlanFunc:    offline.Plan,
		WordsFunc:   offline.Words,
		RefereeFunc: offline.Referee,
	}
	p := freelingo.New(ev, freelingo.WithSessions(mgr))

	done := make(chan freelingo.Result)
	go func() { done <- p.EndSession(context.Background(), "learner-1") }()

	<-started
	require.NoError(t, mgr.AddKnownWords(context.Background(), "learner-1", domain.Word{Word: "ville"}))
	close(release)

	res := <-done
	require.NotNil(t, res.State)
	assert.Len(t, res.State.Snapshot.KnownWords, 1, "writes after the snapshot are not visible to the run")
}

func TestPipeline_DegradedConstruction(t *testing.T) {
	p := freelingo.New(memory.NewEvaluator(), freelingo.WithBudgets(policy.UniformBudgets(-1, 5)))

	require.Error(t, p.ConstructionErr())
	assert.Nil(t, p.Graph())

	state := p.Run(context.Background(), "learner-1", domain.SessionSnapshot{UserID: "learner-1"}, domain.BuildTranscript(history))
	assert.Equal(t, domain.RunDegraded, state.Status)
	assert.False(t, freelingo.ResultOf(state).Available)
	assert.NotNil(t, state.LastRefereeDecision)
}

func TestPipeline_RunIDsAndClock(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ids := []string{"run-a", "run-b"}
	var mu sync.Mutex
	next := func() string {
		mu.Lock()
		defer mu.Unlock()
		id := ids[0]
		ids = ids[1:]
		return id
	}
	p := freelingo.New(memory.NewEvaluator(),
		freelingo.WithRunIDs(next),
		freelingo.WithClock(func() time.Time { return fixed }),
	)

	first := p.Run(context.Background(), "u", domain.SessionSnapshot{}, domain.BuildTranscript(history))
	second := p.Run(context.Background(), "u", domain.SessionSnapshot{}, domain.BuildTranscript(history))

	assert.Equal(t, "run-a", first.RunID)
	assert.Equal(t, "run-b", second.RunID)
	assert.Equal(t, fixed, first.StartedAt)
	assert.Equal(t, fixed, first.FinishedAt)
}

func TestPipeline_Hooks(t *testing.T) {
	var completed []domain.RunStatus
	hooks := domain.LifecycleHooks{
		OnRunComplete: func(_ context.Context, ev *domain.RunEvent) {
			completed = append(completed, ev.Status)
		},
	}
	p := freelingo.New(memory.NewEvaluator(), freelingo.WithLifecycleHooks(hooks))

	p.Run(context.Background(), "u", domain.SessionSnapshot{}, domain.BuildTranscript(history))

	assert.Equal(t, []domain.RunStatus{domain.RunValidated}, completed)
}

func TestPipeline_EvaluatorTimeout(t *testing.T) {
	ev := ports.EvaluatorFuncs{
		FeedbackFunc: func(ctx context.Context, _ domain.FeedbackBundle) (*domain.FeedbackOutput, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	p := freelingo.New(ev, freelingo.WithEvaluatorTimeout(20*time.Millisecond))

	state := p.Run(context.Background(), "u", domain.SessionSnapshot{}, domain.BuildTranscript(history))

	assert.True(t, state.Status.IsTerminal())
	assert.Equal(t, domain.FallbackFeedback(), state.LastFeedback)
}
