package session

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ljankila/lingoscene/internal/models"
	"github.com/stretchr/testify/require"
)

func disableBatchGeneration(scope *Scope) {
	settings := scope.Settings()
	settings.MultiMessageGenerationEnabled = false
	scope.UpdateSettings(settings)
}

func TestSingleAgentCycleSkipsDecide(t *testing.T) {
	stub := &stubClient{
		promptFunc: func(_ context.Context, _ []models.Message, _, speaker string) string {
			require.Equal(t, "Aoi", speaker)
			return "いらっしゃいませ。"
		},
	}
	scope := newTestScope(stub)
	disableBatchGeneration(scope)

	situation := addSituation(scope, models.SituationSettings{
		Title:              "Ramen shop",
		AgentDefs:          []models.Profile{{Name: "Aoi", Personality: "brisk"}},
		DiscussionDuration: 60,
	}, nil)

	situation.StartSituation(context.Background())

	messages := situation.Messages()
	require.Len(t, messages, 1)
	require.Equal(t, models.Message{Sender: "Aoi", Content: "いらっしゃいませ。"}, messages[0])
	require.Zero(t, stub.decideCalls.Load(), "single-agent roster must not issue a decide call")
	require.False(t, situation.InputLocked())
	require.Empty(t, scope.Errors())
}

func TestMultiAgentCycleUsesDecide(t *testing.T) {
	stub := &stubClient{
		decideFunc: func(_ context.Context, _ []models.Message, choices []string, _ string) (int, error) {
			require.Equal(t, []string{"Aoi", "Hiro"}, choices)
			return 1, nil
		},
		promptFunc: func(_ context.Context, _ []models.Message, _, speaker string) string {
			require.Equal(t, "Hiro", speaker)
			return "どうぞこちらへ。"
		},
	}
	scope := newTestScope(stub)
	disableBatchGeneration(scope)

	situation := addSituation(scope, models.SituationSettings{
		Title:     "Ramen shop",
		AgentDefs: []models.Profile{{Name: "Aoi"}, {Name: "Hiro"}},
	}, nil)

	situation.StartSituation(context.Background())

	require.EqualValues(t, 1, stub.decideCalls.Load())
	messages := situation.Messages()
	require.Len(t, messages, 1)
	require.Equal(t, "Hiro", messages[0].Sender)
}

func TestSpeakerFailureLogsAndUnlocks(t *testing.T) {
	stub := &stubClient{
		promptFunc: func(_ context.Context, _ []models.Message, _, _ string) string {
			return ""
		},
	}
	scope := newTestScope(stub)
	disableBatchGeneration(scope)

	situation := addSituation(scope, models.SituationSettings{
		AgentDefs: []models.Profile{{Name: "Aoi"}},
	}, nil)

	situation.StartSituation(context.Background())

	require.Empty(t, situation.Messages(), "a failed turn must not append content")
	require.NotEmpty(t, scope.Errors())
	require.False(t, situation.InputLocked(), "a failed turn must still unlock input")
}

func TestFirstBatchCycleSeedsWithoutStreaming(t *testing.T) {
	opening := []models.Message{
		{Sender: models.SystemSender, Content: "The shop door slides open."},
		{Sender: "Aoi", Content: "いらっしゃいませ。"},
	}
	stub := &stubClient{
		multiFunc: func(_ context.Context, _ []models.Message, _ models.SituationSettings, _ string) ([]models.Message, error) {
			return opening, nil
		},
	}
	scope := newTestScope(stub)

	situation := addSituation(scope, models.SituationSettings{
		AgentDefs: []models.Profile{{Name: "Aoi"}},
	}, nil)

	start := time.Now()
	situation.StartSituation(context.Background())

	require.Equal(t, opening, situation.Messages(), "the seed turn must land fully formed")
	require.Less(t, time.Since(start), time.Second, "the seed turn must not be paced like a reveal")
}

func TestBatchCycleRevealsNewMessages(t *testing.T) {
	stub := &stubClient{
		multiFunc: func(_ context.Context, _ []models.Message, _ models.SituationSettings, _ string) ([]models.Message, error) {
			return []models.Message{{Sender: "Aoi", Content: "はい"}}, nil
		},
	}
	scope := newTestScope(stub)

	situation := addSituation(scope, models.SituationSettings{
		AgentDefs: []models.Profile{{Name: "Aoi"}},
	}, []models.Message{{Sender: "Aoi", Content: "いらっしゃいませ。"}})

	situation.Send(context.Background(), models.Message{Sender: "USER", Content: "すみません"})

	messages := situation.Messages()
	require.Len(t, messages, 3)
	require.Equal(t, models.Message{Sender: "Aoi", Content: "はい"}, messages[2],
		"the revealed message must end up complete")
}

func TestCycleMutualExclusion(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	stub := &stubClient{
		multiFunc: func(_ context.Context, _ []models.Message, _ models.SituationSettings, _ string) ([]models.Message, error) {
			entered <- struct{}{}
			<-release
			return []models.Message{{Sender: "Aoi", Content: "a"}}, nil
		},
	}
	scope := newTestScope(stub)

	situation := addSituation(scope, models.SituationSettings{
		AgentDefs: []models.Profile{{Name: "Aoi"}},
	}, nil)

	done := make(chan struct{})
	go func() {
		situation.StartSituation(context.Background())
		close(done)
	}()
	<-entered

	// A second cycle while one is in flight must return without
	// generating or appending anything.
	situation.StartSituation(context.Background())
	require.EqualValues(t, 1, stub.multiCalls.Load())

	close(release)
	<-done
	require.Len(t, situation.Messages(), 1)
}

func TestCancelRevealKeepsPrefixAndUnlocks(t *testing.T) {
	content := strings.Repeat("あ", 200)
	stub := &stubClient{
		multiFunc: func(_ context.Context, _ []models.Message, _ models.SituationSettings, _ string) ([]models.Message, error) {
			return []models.Message{{Sender: "Aoi", Content: content}}, nil
		},
	}
	scope := newTestScope(stub)

	situation := addSituation(scope, models.SituationSettings{
		AgentDefs: []models.Profile{{Name: "Aoi"}},
	}, []models.Message{{Sender: models.SystemSender, Content: "The scene is set."}})

	done := make(chan struct{})
	go func() {
		situation.Send(context.Background(), models.Message{Sender: "USER", Content: "こんにちは"})
		close(done)
	}()

	// Let the reveal get going, then abandon it mid-message.
	time.Sleep(150 * time.Millisecond)
	situation.CancelReveal()
	<-done

	messages := situation.Messages()
	last := messages[len(messages)-1]
	require.Equal(t, "Aoi", last.Sender)
	require.True(t, strings.HasPrefix(content, last.Content),
		"a cancelled reveal must leave a strict prefix, got %q", last.Content)
	require.Less(t, len(last.Content), len(content), "the reveal should not have finished yet")
	require.NotEmpty(t, last.Content, "the reveal should have started before cancellation")
	require.False(t, situation.InputLocked())
	require.Empty(t, scope.Errors(), "cancellation is not an error")
}

func TestDeleteMessagesTruncates(t *testing.T) {
	scope := newTestScope(&stubClient{})
	situation := addSituation(scope, models.SituationSettings{}, []models.Message{
		{Sender: "Aoi", Content: "one"},
		{Sender: "USER", Content: "two"},
		{Sender: "Aoi", Content: "three"},
	})

	situation.DeleteMessages(1)
	require.Len(t, situation.Messages(), 1)

	// Out-of-range indexes leave the log alone.
	situation.DeleteMessages(5)
	situation.DeleteMessages(-1)
	require.Len(t, situation.Messages(), 1)
}

func TestRefreshUnlocksInput(t *testing.T) {
	scope := newTestScope(&stubClient{})
	situation := addSituation(scope, models.SituationSettings{}, []models.Message{
		{Sender: "Aoi", Content: "one"},
	})

	require.True(t, situation.InputLocked(), "a fresh situation starts locked")
	situation.Refresh(context.Background())
	require.False(t, situation.InputLocked())
}

func TestScenarioAndObjectiveEdits(t *testing.T) {
	scope := newTestScope(&stubClient{})
	situation := addSituation(scope, models.SituationSettings{
		Scenario:  "A quiet counter.",
		Objective: "Order politely.",
	}, nil)

	situation.SetScenario("A packed counter at lunch rush.")
	situation.SetObjective("Order politely despite the noise.")
	require.Equal(t, "A packed counter at lunch rush.", situation.Scenario())
	require.Equal(t, "Order politely despite the noise.", situation.Objective())
}
