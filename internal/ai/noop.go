package ai

import (
	"context"
	"log/slog"

	"github.com/ljankila/lingoscene/internal/models"
)

// noopClient is the debug provider: it accepts every call and produces
// empty content without touching the network.
type noopClient struct {
	catalog
}

func newNoop(logger *slog.Logger) *noopClient {
	return &noopClient{
		catalog: newCatalog([]string{"DEBUG_NO_MODEL"}, logger.With("source", "noopClient")),
	}
}

func (c *noopClient) Name() string { return ProviderNone }

func (c *noopClient) SetAPIKey(string) {}

func (c *noopClient) SetModel(name string, role ModelRole) {
	c.bind(name, role)
}

func (c *noopClient) Prompt(context.Context, []models.Message, string, string) string {
	return ""
}

func (c *noopClient) MultiPrompt(context.Context, []models.Message, models.SituationSettings, string) ([]models.Message, error) {
	return []models.Message{}, nil
}

func (c *noopClient) Decide(context.Context, []models.Message, []string, string) (int, error) {
	return 0, nil
}

func (c *noopClient) GenerateScenarios(context.Context, string, string) ([]models.SituationSettings, error) {
	return []models.SituationSettings{
		{
			Title:              "",
			AgentDefs:          []models.Profile{},
			Scenario:           "",
			Objective:          "",
			DiscussionDuration: 60,
		},
	}, nil
}

func (c *noopClient) GenerateReport(context.Context, []models.Message, models.SituationSettings, string) (*models.FinishReport, error) {
	return &models.FinishReport{
		Score:    models.FinishScores{},
		Analysis: "",
		Comments: []models.FinishComment{},
	}, nil
}
