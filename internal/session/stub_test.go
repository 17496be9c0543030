package session

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"

	"github.com/ljankila/lingoscene/internal/ai"
	"github.com/ljankila/lingoscene/internal/models"
	"github.com/ljankila/lingoscene/internal/testhelpers"
)

func discardLogger() *slog.Logger {
	return testhelpers.NewLogger(io.Discard)
}

// stubClient is a scripted provider adapter for orchestration tests.
// Unset behaviors produce empty content, like the no-op provider.
type stubClient struct {
	promptFunc    func(ctx context.Context, log []models.Message, instruction, speaker string) string
	multiFunc     func(ctx context.Context, log []models.Message, settings models.SituationSettings, instruction string) ([]models.Message, error)
	decideFunc    func(ctx context.Context, log []models.Message, choices []string, instruction string) (int, error)
	scenariosFunc func(ctx context.Context, goal, instruction string) ([]models.SituationSettings, error)
	reportFunc    func(ctx context.Context, log []models.Message, settings models.SituationSettings, instruction string) (*models.FinishReport, error)

	promptCalls    atomic.Int32
	multiCalls     atomic.Int32
	decideCalls    atomic.Int32
	scenariosCalls atomic.Int32
	reportCalls    atomic.Int32

	gen models.GenerationSettings
}

var _ ai.Client = (*stubClient)(nil)

func (c *stubClient) Name() string                  { return "stub" }
func (c *stubClient) SetAPIKey(string)              {}
func (c *stubClient) Models() []string              { return []string{"stub-model"} }
func (c *stubClient) SetModel(string, ai.ModelRole) {}
func (c *stubClient) PrimaryModel() string          { return "stub-model" }
func (c *stubClient) UtilityModel() string          { return "stub-model" }

func (c *stubClient) GenerationSettings() models.GenerationSettings { return c.gen }
func (c *stubClient) SetGenerationSettings(gen models.GenerationSettings) {
	c.gen = gen
}

func (c *stubClient) Prompt(ctx context.Context, log []models.Message, instruction, speaker string) string {
	c.promptCalls.Add(1)
	if c.promptFunc == nil {
		return ""
	}
	return c.promptFunc(ctx, log, instruction, speaker)
}

func (c *stubClient) MultiPrompt(ctx context.Context, log []models.Message, settings models.SituationSettings, instruction string) ([]models.Message, error) {
	c.multiCalls.Add(1)
	if c.multiFunc == nil {
		return []models.Message{}, nil
	}
	return c.multiFunc(ctx, log, settings, instruction)
}

func (c *stubClient) Decide(ctx context.Context, log []models.Message, choices []string, instruction string) (int, error) {
	c.decideCalls.Add(1)
	if c.decideFunc == nil {
		return 0, nil
	}
	return c.decideFunc(ctx, log, choices, instruction)
}

func (c *stubClient) GenerateScenarios(ctx context.Context, goal, instruction string) ([]models.SituationSettings, error) {
	c.scenariosCalls.Add(1)
	if c.scenariosFunc == nil {
		return []models.SituationSettings{}, nil
	}
	return c.scenariosFunc(ctx, goal, instruction)
}

func (c *stubClient) GenerateReport(ctx context.Context, log []models.Message, settings models.SituationSettings, instruction string) (*models.FinishReport, error) {
	c.reportCalls.Add(1)
	if c.reportFunc == nil {
		return &models.FinishReport{}, nil
	}
	return c.reportFunc(ctx, log, settings, instruction)
}

// newTestScope builds a scope wired to the stub instead of a real vendor
// adapter.
func newTestScope(stub ai.Client) *Scope {
	scope := NewScope("test", nil, discardLogger())
	scope.mu.Lock()
	scope.provider = "stub"
	scope.client = stub
	scope.mu.Unlock()
	return scope
}

// addSituation registers a situation directly, bypassing scenario
// generation.
func addSituation(scope *Scope, settings models.SituationSettings, log []models.Message) *Situation {
	scope.mu.Lock()
	defer scope.mu.Unlock()
	situation := newSituation(scope, settings, log, scope.situationKey())
	scope.situations = append(scope.situations, situation)
	return situation
}
