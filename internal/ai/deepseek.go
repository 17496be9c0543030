package ai

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/ljankila/lingoscene/internal/errors"
	"github.com/ljankila/lingoscene/internal/models"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
)

const deepSeekBaseURL = "https://api.deepseek.com/v1"

// deepSeekClient drives the DeepSeek API through its OpenAI-compatible
// endpoint. DeepSeek has no native schema enforcement: schemas are
// inlined as JSON text inside the instruction and responses are parsed
// from raw text. The API also rejects prompts that do not alternate
// user/assistant turns, so the mapped log goes through the alternation
// shims in mapping.go.
type deepSeekClient struct {
	catalog
	api *openai.Client
}

func newDeepSeek(key string, logger *slog.Logger) *deepSeekClient {
	c := &deepSeekClient{
		catalog: newCatalog(
			[]string{"deepseek-chat", "deepseek-reasoner"},
			logger.With("source", "deepSeekClient"),
		),
	}
	c.SetAPIKey(key)
	return c
}

func (c *deepSeekClient) Name() string { return ProviderDeepSeek }

func (c *deepSeekClient) SetAPIKey(key string) {
	cfg := openai.DefaultConfig(key)
	cfg.BaseURL = deepSeekBaseURL
	c.api = openai.NewClientWithConfig(cfg)
}

func (c *deepSeekClient) SetModel(name string, role ModelRole) {
	c.bind(name, role)
}

// parse maps the log for DeepSeek: optional system instruction first,
// then the role-mapped log with the final turn forced to the user role.
func deepSeekParse(log []models.Message, speaker, instruction string) []openai.ChatCompletionMessage {
	var msgs []openai.ChatCompletionMessage
	if instruction != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleSystem, Content: instruction})
	}
	msgs = append(msgs, chatLog(log, speaker)...)
	return forceLastUser(msgs)
}

func inlineSchema(schema jsonschema.Definition) string {
	raw, err := json.Marshal(schema)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func (c *deepSeekClient) request(model string, msgs []openai.ChatCompletionMessage) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		MaxTokens:   c.gen.MaxOutputTokens,
		Temperature: c.gen.Temperature,
		TopP:        c.gen.TopP,
	}
}

func (c *deepSeekClient) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", errors.Wrap(err, "create chat completion")
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errNoContent
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *deepSeekClient) Prompt(ctx context.Context, log []models.Message, instruction, speaker string) string {
	msgs := interweave(deepSeekParse(log, speaker, instruction))
	content, err := c.complete(ctx, c.request(c.primary, msgs))
	if err != nil {
		return SoftFailure(err)
	}
	return content
}

func (c *deepSeekClient) MultiPrompt(
	ctx context.Context,
	log []models.Message,
	settings models.SituationSettings,
	instruction string,
) ([]models.Message, error) {
	msgs := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: conversationContext(settings)},
	}
	msgs = append(msgs, deepSeekParse(log, "", "")...)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: "INSTRUCT: Respond with ONLY a JSON array of messages in the following schema: " + inlineSchema(messageArraySchema) + ". " + instruction,
	})

	req := c.request(c.primary, interweave(msgs))
	req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}

	content, err := c.complete(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "multi prompt")
	}
	var parsed struct {
		MessageArray []models.Message `json:"messageArray"`
	}
	if err = json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, errors.Wrap(err, "multi prompt: parse messages")
	}
	return parsed.MessageArray, nil
}

func (c *deepSeekClient) Decide(
	ctx context.Context,
	log []models.Message,
	choices []string,
	instruction string,
) (int, error) {
	serialized, err := json.Marshal(choices)
	if err != nil {
		return 0, errors.Wrap(err, "decide: marshal choices")
	}
	msgs := append(deepSeekParse(log, "", ""),
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: string(serialized)},
		openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: "INSTRUCT: Respond with ONLY a JSON integer representing the index of the chosen item in the array. Adhere to the following schema: " + inlineSchema(decisionSchema) + ". " + instruction,
		},
	)

	content, err := c.complete(ctx, c.request(c.utility, msgs))
	if err != nil {
		return 0, errors.Wrap(err, "decide")
	}
	var parsed decision
	if err = json.Unmarshal([]byte(content), &parsed); err != nil {
		return 0, errors.Wrap(err, "decide: parse value")
	}
	return parsed.Value, nil
}

func (c *deepSeekClient) GenerateScenarios(ctx context.Context, goal, instruction string) ([]models.SituationSettings, error) {
	msgs := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: goal},
		{Role: openai.ChatMessageRoleSystem, Content: instruction},
		{Role: openai.ChatMessageRoleUser, Content: "json: " + inlineSchema(scenarioSchema)},
	}

	req := c.request(c.utility, msgs)
	req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}

	content, err := c.complete(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "generate scenarios")
	}
	var parsed struct {
		ScenarioArray []models.SituationSettings `json:"scenarioArray"`
	}
	if err = json.Unmarshal([]byte(content), &parsed); err != nil {
		return nil, errors.Wrap(err, "generate scenarios: parse scenarios")
	}
	return parsed.ScenarioArray, nil
}

func (c *deepSeekClient) GenerateReport(
	ctx context.Context,
	log []models.Message,
	settings models.SituationSettings,
	instruction string,
) (*models.FinishReport, error) {
	msgs := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: conversationContext(settings)},
	}
	msgs = append(msgs, deepSeekParse(log, "", "")...)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: "INSTRUCT: Analyze the conversation and respond with ONLY a JSON object representing the report in the following schema: " + inlineSchema(reportSchema) + ". " + instruction,
	})

	content, err := c.complete(ctx, c.request(c.primary, msgs))
	if err != nil {
		return nil, errors.Wrap(err, "generate report")
	}
	var report models.FinishReport
	if err = json.Unmarshal([]byte(content), &report); err != nil {
		return nil, errors.Wrap(err, "generate report: parse report")
	}
	return &report, nil
}
