package ai

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"strings"

	"github.com/ljankila/lingoscene/internal/errors"
	"github.com/ljankila/lingoscene/internal/models"
	"google.golang.org/genai"
)

var errNoClient = errors.NewSentinel("gemini client is not configured")

// Roleplay scenarios routinely trip the default filters, so blocking is
// disabled across the board as in the hosted configuration.
var geminiSafetySettings = []*genai.SafetySetting{
	{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockNone},
	{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockNone},
}

// geminiClient drives the Gemini API, which enforces response schemas
// natively through the generation config.
type geminiClient struct {
	catalog
	api *genai.Client
}

func newGemini(key string, logger *slog.Logger) *geminiClient {
	c := &geminiClient{
		catalog: newCatalog(
			[]string{"gemini-2.5-flash-preview-05-20", "gemini-2.5-pro-preview-06-05", "gemini-2.0-flash"},
			logger.With("source", "geminiClient"),
		),
	}
	c.SetAPIKey(key)
	return c
}

func (c *geminiClient) Name() string { return ProviderGemini }

func (c *geminiClient) SetAPIKey(key string) {
	api, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		// Keep the previous client; calls fail with errNoClient if there was none.
		c.logger.Warn("could not configure gemini client", errors.SlogError(err))
		return
	}
	c.api = api
}

func (c *geminiClient) SetModel(name string, role ModelRole) {
	c.bind(name, role)
}

// geminiLog maps a message log into Gemini contents with the same
// viewpoint rules as chatLog, using the user/model role pair.
func geminiLog(log []models.Message, speaker string) []*genai.Content {
	out := make([]*genai.Content, 0, len(log))
	if speaker != "" {
		for _, m := range log {
			role := genai.Role(genai.RoleModel)
			text := m.Content
			if m.Sender != speaker {
				role = genai.Role(genai.RoleUser)
				text = m.Sender + ": " + m.Content
			}
			out = append(out, genai.NewContentFromText(text, role))
		}
		return out
	}
	for _, m := range log {
		role := genai.Role(genai.RoleModel)
		text := m.Sender + ": " + m.Content
		if m.Sender == "user" {
			role = genai.Role(genai.RoleUser)
			text = "USER: " + m.Content
		}
		out = append(out, genai.NewContentFromText(text, role))
	}
	return out
}

// config builds the generation config shared by all calls. The schema
// and MIME type are left empty for free-text prompting.
func (c *geminiClient) config(instruction string, schema *genai.Schema) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(instruction, genai.RoleUser),
		MaxOutputTokens:   int32(c.gen.MaxOutputTokens),
		Temperature:       genai.Ptr(c.gen.Temperature),
		TopP:              genai.Ptr(c.gen.TopP),
		TopK:              genai.Ptr(c.gen.TopK),
		SafetySettings:    geminiSafetySettings,
	}
	if schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseSchema = schema
	}
	return cfg
}

func (c *geminiClient) generate(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	cfg *genai.GenerateContentConfig,
) (string, error) {
	if c.api == nil {
		return "", errNoClient
	}
	resp, err := c.api.Models.GenerateContent(ctx, model, contents, cfg)
	if err != nil {
		return "", errors.Wrap(err, "generate content")
	}
	text := resp.Text()
	if text == "" {
		return "", errNoContent
	}
	return text, nil
}

func (c *geminiClient) Prompt(ctx context.Context, log []models.Message, instruction, speaker string) string {
	text, err := c.generate(ctx, c.primary, geminiLog(log, speaker), c.config(instruction, nil))
	if err != nil {
		return SoftFailure(err)
	}
	return text
}

func (c *geminiClient) MultiPrompt(
	ctx context.Context,
	log []models.Message,
	settings models.SituationSettings,
	instruction string,
) ([]models.Message, error) {
	contents := append(
		[]*genai.Content{genai.NewContentFromText(conversationContext(settings), genai.RoleModel)},
		geminiLog(log, "")...,
	)

	text, err := c.generate(ctx, c.primary, contents, c.config(instruction, geminiMessageArraySchema))
	if err != nil {
		return nil, errors.Wrap(err, "multi prompt")
	}
	var msgs []models.Message
	if err = json.Unmarshal([]byte(text), &msgs); err != nil {
		return nil, errors.Wrap(err, "multi prompt: parse messages")
	}
	return msgs, nil
}

func (c *geminiClient) Decide(
	ctx context.Context,
	log []models.Message,
	choices []string,
	instruction string,
) (int, error) {
	serialized, err := json.Marshal(choices)
	if err != nil {
		return 0, errors.Wrap(err, "decide: marshal choices")
	}
	contents := append(geminiLog(log, ""), genai.NewContentFromText(string(serialized), genai.RoleUser))

	text, err := c.generate(ctx, c.utility, contents, c.config(instruction, geminiIntegerSchema))
	if err != nil {
		return 0, errors.Wrap(err, "decide")
	}
	value, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, errors.Wrap(err, "decide: parse value", slog.String("text", text))
	}
	return value, nil
}

func (c *geminiClient) GenerateScenarios(ctx context.Context, goal, instruction string) ([]models.SituationSettings, error) {
	contents := []*genai.Content{genai.NewContentFromText(goal, genai.RoleUser)}

	text, err := c.generate(ctx, c.utility, contents, c.config(instruction, geminiScenarioSchema))
	if err != nil {
		return nil, errors.Wrap(err, "generate scenarios")
	}
	var scenarios []models.SituationSettings
	if err = json.Unmarshal([]byte(text), &scenarios); err != nil {
		return nil, errors.Wrap(err, "generate scenarios: parse scenarios")
	}
	return scenarios, nil
}

func (c *geminiClient) GenerateReport(
	ctx context.Context,
	log []models.Message,
	settings models.SituationSettings,
	instruction string,
) (*models.FinishReport, error) {
	contents := append(
		[]*genai.Content{genai.NewContentFromText(conversationContext(settings), genai.RoleModel)},
		geminiLog(log, "")...,
	)

	text, err := c.generate(ctx, c.primary, contents, c.config(instruction, geminiReportSchema))
	if err != nil {
		return nil, errors.Wrap(err, "generate report")
	}
	var report models.FinishReport
	if err = json.Unmarshal([]byte(text), &report); err != nil {
		return nil, errors.Wrap(err, "generate report: parse report")
	}
	return &report, nil
}

// Gemini's native schema dialect mirrors the definitions in schema.go.

var geminiIntegerSchema = &genai.Schema{
	Type:        genai.TypeInteger,
	Description: "The chosen index in the JS array.",
}

var geminiMessageSchema = &genai.Schema{
	Type:        genai.TypeObject,
	Description: "An individual message, either a system message or dialogue from the relevant non-user agents.",
	Properties: map[string]*genai.Schema{
		"sender": {
			Type:        genai.TypeString,
			Description: "The agent's name. Use SYSTEM if it's a 3rd-person narration element.",
		},
		"content": {
			Type:        genai.TypeString,
			Description: "Dialog of the agent, or narration if the SYSTEM.",
		},
	},
}

var geminiMessageArraySchema = &genai.Schema{
	Type:        genai.TypeArray,
	Description: "An array of new chronological messages that continue the scene, made of a variable length of messages that continues up until the user is expected to speak again. It should not contain any preexisting messages from the prompt.",
	Items:       geminiMessageSchema,
}

var geminiScenarioSchema = &genai.Schema{
	Type:        genai.TypeArray,
	Description: "An array of multiple chat scenarios",
	Items: &genai.Schema{
		Type:        genai.TypeObject,
		Description: "A scenario object with agentDefs, title, scenario, objective, and discussionDuration",
		Properties: map[string]*genai.Schema{
			"title": {
				Type:        genai.TypeString,
				Description: "A short title for this scenario.",
			},
			"scenario": {
				Type:        genai.TypeString,
				Description: "Two sentences that visually describe the starting scene.",
			},
			"objective": {
				Type:        genai.TypeString,
				Description: "The user's goal to 'win' or succeed in this situation.",
			},
			"discussionDuration": {
				Type:        genai.TypeInteger,
				Description: "A reasonable duration for the objective to be completed in this chat.",
			},
			"agentDefs": {
				Type:        genai.TypeArray,
				Description: "An array of the AI bots for this scenario, excluding the user's character",
				Items: &genai.Schema{
					Type:        genai.TypeObject,
					Description: "An agent.",
					Properties: map[string]*genai.Schema{
						"name": {
							Type:        genai.TypeString,
							Description: "A randomly generated name relevant to the language's home country",
						},
						"stats": {
							Type:        genai.TypeObject,
							Description: "The agent's stats, required to allow for accurate judgement of social context",
							Properties: map[string]*genai.Schema{
								"age":    {Type: genai.TypeNumber, Description: "The agent's age"},
								"gender": {Type: genai.TypeString, Description: "The agent's gender (f/m)"},
								"job":    {Type: genai.TypeString, Description: "The agent's job"},
							},
						},
						"relationToUser": {
							Type:        genai.TypeString,
							Description: "The relationship the agent has with user for the situation context, eg: Boss, Friend, Stranger, Senior, etc.",
						},
						"personality": {
							Type:        genai.TypeString,
							Description: "The agent's personality",
						},
					},
				},
			},
		},
	},
}

var geminiReportSchema = &genai.Schema{
	Type:        genai.TypeObject,
	Description: "A report analyzing the discussion",
	Properties: map[string]*genai.Schema{
		"score": {
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"overall": {
					Type:        genai.TypeInteger,
					Description: "A score from 0-1000 rating the user's overall performance.",
				},
				"grammar": {
					Type:        genai.TypeInteger,
					Description: "A score from 0-1000 rating the user's grammar.",
				},
				"fluency": {
					Type:        genai.TypeInteger,
					Description: "A score from 0-1000 rating the user's flow and natural use of expressions given the conversational context.",
				},
				"role": {
					Type:        genai.TypeInteger,
					Description: "A score from 0-1000 rating the user's use of language according to their social role and place in the conversation based on the language's implied societal norms and etiquette.",
				},
			},
		},
		"analysis": {
			Type:        genai.TypeString,
			Description: "An overall analysis that describes your perception of how the user performed in the conversation according to expectations.",
		},
		"comments": {
			Type:        genai.TypeArray,
			Description: "An array of comments to be made about specific sentences that the user made.",
			Items: &genai.Schema{
				Type:        genai.TypeObject,
				Description: "A comment for a specific sentence of note from the user.",
				Properties: map[string]*genai.Schema{
					"quote": {
						Type:        genai.TypeString,
						Description: "The exact quote of what the user typed.",
					},
					"analysis": {
						Type:        genai.TypeString,
						Description: "Your short comment or analysis of this sentence and its effect on the score.",
					},
				},
			},
		},
	},
}
