package session

import (
	"context"
	"testing"
	"time"

	"github.com/ljankila/lingoscene/internal/ai"
	"github.com/ljankila/lingoscene/internal/errors"
	"github.com/ljankila/lingoscene/internal/models"
	"github.com/stretchr/testify/require"
)

func threeScenarios() []models.SituationSettings {
	return []models.SituationSettings{
		{Title: "Ramen shop", AgentDefs: []models.Profile{{Name: "Aoi"}}, DiscussionDuration: 60},
		{Title: "Job interview", AgentDefs: []models.Profile{{Name: "Hiro"}}, DiscussionDuration: 90},
		{Title: "Train station", AgentDefs: []models.Profile{{Name: "Yui"}}, DiscussionDuration: 45},
	}
}

func TestGenerateSituations(t *testing.T) {
	stub := &stubClient{
		scenariosFunc: func(_ context.Context, goal, instruction string) ([]models.SituationSettings, error) {
			require.Equal(t, "order food", goal)
			require.NotContains(t, instruction, "{{SCENARIOCOUNT}}", "placeholders must be substituted")
			return threeScenarios(), nil
		},
	}
	scope := newTestScope(stub)

	scope.GenerateSituations(context.Background(), "order food")

	require.Len(t, scope.Situations(), 3)
	require.Empty(t, scope.Errors())
	require.Equal(t, StageGenerate, scope.Stage(), "generation alone does not advance the stage")
}

func TestGenerateSituationsFailure(t *testing.T) {
	calls := 0
	stub := &stubClient{
		scenariosFunc: func(_ context.Context, _, _ string) ([]models.SituationSettings, error) {
			calls++
			if calls > 1 {
				return nil, errors.New("generate scenarios: no content")
			}
			return threeScenarios(), nil
		},
	}
	scope := newTestScope(stub)

	scope.GenerateSituations(context.Background(), "order food")
	require.Len(t, scope.Situations(), 3)

	scope.GenerateSituations(context.Background(), "order more food")

	require.Len(t, scope.Situations(), 3, "a failed generation must not append situations")
	require.Len(t, scope.Errors(), 1)
	require.Contains(t, scope.Errors()[0], "generate scenarios")
}

func TestCycleSituationsWrap(t *testing.T) {
	scope := newTestScope(&stubClient{})
	for _, scenario := range threeScenarios() {
		addSituation(scope, scenario, nil)
	}
	ctx := context.Background()

	scope.Start(ctx)
	require.Equal(t, 0, scope.ActiveIndex())

	scope.Previous(ctx)
	require.Equal(t, 2, scope.ActiveIndex(), "previous from the first situation wraps to the last")

	scope.Next(ctx)
	require.Equal(t, 0, scope.ActiveIndex(), "next from the last situation wraps to the first")
}

func TestAllCompleted(t *testing.T) {
	scope := newTestScope(&stubClient{})
	require.False(t, scope.AllCompleted(), "no situations means nothing is completed")

	for _, scenario := range threeScenarios()[:2] {
		addSituation(scope, scenario, nil)
	}
	ctx := context.Background()

	scope.Start(ctx)
	scope.FinishSituation(ctx)
	require.False(t, scope.AllCompleted())

	scope.Next(ctx)
	scope.FinishSituation(ctx)
	require.True(t, scope.AllCompleted())
}

func TestFinishSituationScoresOnce(t *testing.T) {
	stub := &stubClient{
		reportFunc: func(_ context.Context, _ []models.Message, _ models.SituationSettings, _ string) (*models.FinishReport, error) {
			return &models.FinishReport{
				Score:    models.FinishScores{Overall: 700, Grammar: 650, Fluency: 720, Role: 680},
				Analysis: "Solid ordering, some particle slips.",
			}, nil
		},
	}
	scope := newTestScope(stub)
	situation := addSituation(scope, threeScenarios()[0], nil)
	ctx := context.Background()

	scope.Start(ctx)
	scope.FinishSituation(ctx)
	require.NotNil(t, situation.Report())
	require.Equal(t, StageReport, scope.Stage())

	scope.FinishSituation(ctx)
	require.EqualValues(t, 1, stub.reportCalls.Load(), "an attached report is never regenerated")
}

func TestFinishSituationReportFailure(t *testing.T) {
	stub := &stubClient{
		reportFunc: func(_ context.Context, _ []models.Message, _ models.SituationSettings, _ string) (*models.FinishReport, error) {
			return nil, errors.New("generate report: no content")
		},
	}
	scope := newTestScope(stub)
	situation := addSituation(scope, threeScenarios()[0], nil)
	ctx := context.Background()

	scope.Start(ctx)
	scope.FinishSituation(ctx)

	require.Nil(t, situation.Report())
	require.Equal(t, StageReport, scope.Stage(), "the stage still advances on a failed scoring")
	require.NotEmpty(t, scope.Errors())
}

func TestActivatingReportedSituationSetsReportStage(t *testing.T) {
	scope := newTestScope(&stubClient{})
	situation := addSituation(scope, threeScenarios()[0], nil)
	situation.setReport(&models.FinishReport{})

	scope.Start(context.Background())
	require.Equal(t, StageReport, scope.Stage())
}

func TestRestart(t *testing.T) {
	scope := newTestScope(&stubClient{})
	for _, scenario := range threeScenarios() {
		addSituation(scope, scenario, nil)
	}
	ctx := context.Background()
	scope.Start(ctx)
	scope.FinishSituation(ctx)

	scope.Restart()

	require.Empty(t, scope.Situations())
	require.Equal(t, StageGenerate, scope.Stage())
	require.False(t, scope.AllCompleted())
	require.Nil(t, scope.ActiveSituation())
}

func TestTimerForcesFinish(t *testing.T) {
	reported := make(chan struct{})
	stub := &stubClient{
		reportFunc: func(_ context.Context, _ []models.Message, _ models.SituationSettings, _ string) (*models.FinishReport, error) {
			close(reported)
			return &models.FinishReport{}, nil
		},
	}
	scope := newTestScope(stub)

	settings := scope.Settings()
	settings.TimerEnabled = true
	scope.UpdateSettings(settings)

	// Duration 5 scales to half a second of countdown.
	situation := addSituation(scope, models.SituationSettings{
		Title:              "Speed round",
		AgentDefs:          []models.Profile{{Name: "Aoi"}},
		DiscussionDuration: 5,
	}, nil)

	scope.Start(context.Background())
	require.True(t, scope.Timer().Running())

	select {
	case <-reported:
	case <-time.After(3 * time.Second):
		t.Fatal("timer expiry did not force the situation to finish")
	}
	require.Eventually(t, func() bool { return situation.Report() != nil },
		time.Second, 10*time.Millisecond)
	require.Equal(t, StageReport, scope.Stage())
}

func TestSetProviderDropsAdapterState(t *testing.T) {
	scope := NewScope("test", nil, discardLogger())
	require.Equal(t, ai.ProviderGemini, scope.Provider())

	custom := models.GenerationSettings{MaxOutputTokens: 9999, Temperature: 0.1, TopP: 0.5, TopK: 2}
	scope.Client().SetGenerationSettings(custom)

	scope.SetProvider(ai.ProviderNone)
	require.Equal(t, ai.ProviderNone, scope.Provider())
	require.NotEqual(t, custom, scope.Client().GenerationSettings(),
		"a provider switch starts from the default generation settings")

	// Switching to the current provider keeps the adapter instance.
	client := scope.Client()
	scope.SetProvider(ai.ProviderNone)
	require.Same(t, client, scope.Client())
}

func TestSetProviderUnknownIsLoggedNotApplied(t *testing.T) {
	scope := NewScope("test", nil, discardLogger())
	scope.SetProvider("hal9000")

	require.Equal(t, ai.ProviderGemini, scope.Provider())
	require.NotEmpty(t, scope.Errors())
}

func TestUpdateAPIKeyReachesActiveAdapterOnly(t *testing.T) {
	scope := newTestScope(&stubClient{})
	scope.UpdateAPIKey("sk-google", ai.ProviderGemini)
	scope.UpdateAPIKey("sk-openai", ai.ProviderOpenAI)

	keys := scope.APIKeys()
	require.Equal(t, "sk-google", keys[ai.ProviderGemini])
	require.Equal(t, "sk-openai", keys[ai.ProviderOpenAI])
}

func TestGenerateTitle(t *testing.T) {
	stub := &stubClient{
		promptFunc: func(_ context.Context, log []models.Message, _, speaker string) string {
			require.Empty(t, speaker, "the title prompt is a scope-level call")
			require.Len(t, log, 1)
			return "Beach Scenarios"
		},
	}
	scope := newTestScope(stub)
	addSituation(scope, threeScenarios()[0], nil)

	scope.GenerateTitle(context.Background())
	require.Equal(t, "Beach Scenarios", scope.Name())
}

func TestGenerateTitleSoftFailureKeepsName(t *testing.T) {
	stub := &stubClient{
		promptFunc: func(_ context.Context, _ []models.Message, _, _ string) string {
			return ai.SoftFailure(errors.New("no content"))
		},
	}
	scope := newTestScope(stub)
	addSituation(scope, threeScenarios()[0], nil)

	scope.GenerateTitle(context.Background())
	require.Equal(t, "test", scope.Name())
	require.NotEmpty(t, scope.Errors())
}

func TestUserProfileMergeFeedsPromptValues(t *testing.T) {
	scope := newTestScope(&stubClient{})
	scope.UpdateUserProfile(models.Profile{Name: "Mika", Personality: "outgoing"})
	scope.UpdateUserProfile(models.Profile{Stats: models.Stats{Age: 28}})

	profile := scope.UserProfile()
	require.Equal(t, "Mika", profile.Name, "a merge without a name keeps the previous one")
	require.Equal(t, "outgoing", profile.Personality)
	require.Equal(t, 28, profile.Stats.Age)
	require.Equal(t, "Mika", scope.promptValues().User)
}
