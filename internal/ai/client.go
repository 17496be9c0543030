// Package ai abstracts the LLM vendors behind one client contract:
// free-text prompting, multi-message batch generation, discrete choice
// selection, structured scenario generation, and structured report
// generation.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ljankila/lingoscene/internal/errors"
	"github.com/ljankila/lingoscene/internal/models"
)

// Provider names accepted by New.
const (
	ProviderGemini   = "google"
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"
	ProviderNone     = "none"
)

// ErrUnknownProvider is returned by New for a provider name outside the catalog.
var ErrUnknownProvider = errors.NewSentinel("unknown provider")

// ModelRole selects which of the two bound models an operation uses.
type ModelRole string

const (
	RolePrimary ModelRole = "primary"
	RoleUtility ModelRole = "utility"
)

// Client is the uniform contract over the LLM vendors.
//
// Prompt never returns an error: failures come back as a string carrying
// the soft-failure marker, and the conversation continues without the
// missing turn. The structured operations always propagate their errors;
// callers are expected to catch those at the orchestration boundary.
type Client interface {
	// Name returns the provider name the client was constructed for.
	Name() string
	// SetAPIKey reconfigures the underlying vendor client. Safe to call repeatedly.
	SetAPIKey(key string)
	// Models returns the provider's fixed model catalog.
	Models() []string
	// SetModel binds a catalog model to the primary or utility role.
	// Names outside the catalog are ignored with a diagnostic.
	SetModel(name string, role ModelRole)
	PrimaryModel() string
	UtilityModel() string
	GenerationSettings() models.GenerationSettings
	SetGenerationSettings(models.GenerationSettings)

	// Prompt issues one free-text completion from the given speaker's
	// viewpoint (empty speaker means the scope-level viewpoint).
	Prompt(ctx context.Context, log []models.Message, instruction, speaker string) string
	// MultiPrompt generates several conversation turns in one call.
	MultiPrompt(ctx context.Context, log []models.Message, settings models.SituationSettings, instruction string) ([]models.Message, error)
	// Decide returns an index into choices.
	Decide(ctx context.Context, log []models.Message, choices []string, instruction string) (int, error)
	// GenerateScenarios turns a free-form goal into situation settings.
	GenerateScenarios(ctx context.Context, goal, instruction string) ([]models.SituationSettings, error)
	// GenerateReport scores the transcript of a finished situation.
	GenerateReport(ctx context.Context, log []models.Message, settings models.SituationSettings, instruction string) (*models.FinishReport, error)
}

// Providers returns the accepted provider names in presentation order.
func Providers() []string {
	return []string{ProviderGemini, ProviderOpenAI, ProviderDeepSeek, ProviderNone}
}

// New constructs a client for the named provider, seeded with whatever
// key is on file for it. The returned client starts with the provider's
// default model bindings and generation settings.
func New(provider string, keys models.APIKeys, logger *slog.Logger) (Client, error) {
	switch provider {
	case ProviderGemini:
		return newGemini(keys[ProviderGemini], logger), nil
	case ProviderOpenAI:
		return newOpenAI(keys[ProviderOpenAI], logger), nil
	case ProviderDeepSeek:
		return newDeepSeek(keys[ProviderDeepSeek], logger), nil
	case ProviderNone:
		return newNoop(logger), nil
	}
	return nil, errors.Wrap(ErrUnknownProvider, "new client", slog.String("provider", provider))
}

// softFailurePrefix marks a Prompt return value as a failed generation.
const softFailurePrefix = "Error: "

// SoftFailure renders err as the error-tagged string Prompt returns on failure.
func SoftFailure(err error) string {
	return softFailurePrefix + err.Error()
}

// IsSoftFailure reports whether a Prompt result is a failure marker
// instead of generated content.
func IsSoftFailure(s string) bool {
	return strings.HasPrefix(s, softFailurePrefix)
}

// defaultGenerationSettings are the settings every client starts with.
func defaultGenerationSettings() models.GenerationSettings {
	return models.GenerationSettings{
		MaxOutputTokens: 1200,
		Temperature:     1,
		TopP:            1,
		TopK:            1,
	}
}

// catalog implements the model-binding bookkeeping shared by all clients.
type catalog struct {
	models  []string
	primary string
	utility string
	gen     models.GenerationSettings
	logger  *slog.Logger
}

func newCatalog(names []string, logger *slog.Logger) catalog {
	return catalog{
		models:  names,
		primary: names[0],
		utility: names[0],
		gen:     defaultGenerationSettings(),
		logger:  logger,
	}
}

func (c *catalog) Models() []string {
	out := make([]string, len(c.models))
	copy(out, c.models)
	return out
}

// bind assigns name to the given role if it is in the catalog and
// reports whether it was.
func (c *catalog) bind(name string, role ModelRole) bool {
	found := false
	for _, m := range c.models {
		if m == name {
			found = true
			break
		}
	}
	if !found {
		c.logger.Warn("model does not exist in the current provider", slog.String("model", name))
		return false
	}
	if role == RolePrimary {
		c.primary = name
	} else {
		c.utility = name
	}
	return true
}

func (c *catalog) PrimaryModel() string { return c.primary }
func (c *catalog) UtilityModel() string { return c.utility }

func (c *catalog) GenerationSettings() models.GenerationSettings { return c.gen }

func (c *catalog) SetGenerationSettings(gen models.GenerationSettings) { c.gen = gen }

// conversationContext serializes the situation settings into the
// synthesized context turn injected by MultiPrompt and GenerateReport.
func conversationContext(settings models.SituationSettings) string {
	payload := struct {
		Description string           `json:"description"`
		Objective   string           `json:"objective"`
		Agents      []models.Profile `json:"agents"`
	}{
		Description: settings.Scenario,
		Objective:   settings.Objective,
		Agents:      settings.AgentDefs,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		// The settings struct always marshals; keep a readable fallback anyway.
		return fmt.Sprintf("CONVERSATION CONTEXT: %+v", payload)
	}
	return "CONVERSATION CONTEXT: " + string(raw)
}
