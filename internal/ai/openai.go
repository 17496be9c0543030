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

var errNoContent = errors.NewSentinel("no content returned from provider")

// openAIClient drives the OpenAI chat-completion API with the
// json_schema response format for every structured operation.
type openAIClient struct {
	catalog
	api *openai.Client
}

func newOpenAI(key string, logger *slog.Logger) *openAIClient {
	c := &openAIClient{
		catalog: newCatalog(
			[]string{"gpt-4o", "gpt-4o-mini", "o1", "o1-mini", "o3-mini"},
			logger.With("source", "openAIClient"),
		),
	}
	c.SetAPIKey(key)
	return c
}

func (c *openAIClient) Name() string { return ProviderOpenAI }

func (c *openAIClient) SetAPIKey(key string) {
	c.api = openai.NewClient(key)
}

func (c *openAIClient) SetModel(name string, role ModelRole) {
	c.bind(name, role)
}

// request assembles a completion request carrying the client's
// generation settings. Out-of-range values are passed through and any
// vendor-side rejection surfaces from the call itself.
func (c *openAIClient) request(model string, msgs []openai.ChatCompletionMessage) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model:       model,
		Messages:    msgs,
		MaxTokens:   c.gen.MaxOutputTokens,
		Temperature: c.gen.Temperature,
		TopP:        c.gen.TopP,
	}
}

func jsonSchemaFormat(name string, schema *jsonschema.Definition) *openai.ChatCompletionResponseFormat {
	return &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
		JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
			Name:   name,
			Schema: schema,
		},
	}
}

func (c *openAIClient) complete(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", errors.Wrap(err, "create chat completion")
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errNoContent
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *openAIClient) Prompt(ctx context.Context, log []models.Message, instruction, speaker string) string {
	msgs := append(
		[]openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleSystem, Content: instruction}},
		chatLog(log, speaker)...,
	)
	content, err := c.complete(ctx, c.request(c.primary, msgs))
	if err != nil {
		return SoftFailure(err)
	}
	return content
}

func (c *openAIClient) MultiPrompt(
	ctx context.Context,
	log []models.Message,
	settings models.SituationSettings,
	instruction string,
) ([]models.Message, error) {
	msgs := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: conversationContext(settings)},
	}
	msgs = append(msgs, chatLog(log, "")...)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: "INSTRUCT: Respond with ONLY a JSON array of messages in the given schema. " + instruction,
	})

	req := c.request(c.primary, msgs)
	req.ResponseFormat = jsonSchemaFormat("messageArray", &messageArraySchema)

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

func (c *openAIClient) Decide(
	ctx context.Context,
	log []models.Message,
	choices []string,
	instruction string,
) (int, error) {
	serialized, err := json.Marshal(choices)
	if err != nil {
		return 0, errors.Wrap(err, "decide: marshal choices")
	}
	msgs := append(chatLog(log, ""),
		openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: string(serialized)},
		openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: "INSTRUCT: Respond with ONLY a JSON object holding the index of the chosen item in the array. " + instruction,
		},
	)

	req := c.request(c.utility, msgs)
	req.ResponseFormat = jsonSchemaFormat("number", &decisionSchema)

	content, err := c.complete(ctx, req)
	if err != nil {
		return 0, errors.Wrap(err, "decide")
	}
	var parsed decision
	if err = json.Unmarshal([]byte(content), &parsed); err != nil {
		return 0, errors.Wrap(err, "decide: parse value")
	}
	return parsed.Value, nil
}

func (c *openAIClient) GenerateScenarios(ctx context.Context, goal, instruction string) ([]models.SituationSettings, error) {
	msgs := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: goal},
		{Role: openai.ChatMessageRoleSystem, Content: instruction},
	}

	req := c.request(c.utility, msgs)
	req.ResponseFormat = jsonSchemaFormat("scenarios", &scenarioSchema)

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

func (c *openAIClient) GenerateReport(
	ctx context.Context,
	log []models.Message,
	settings models.SituationSettings,
	instruction string,
) (*models.FinishReport, error) {
	msgs := []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: conversationContext(settings)},
	}
	msgs = append(msgs, chatLog(log, "")...)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: "INSTRUCT: Analyze the conversation and respond with ONLY a JSON object representing the report in the given schema. " + instruction,
	})

	req := c.request(c.primary, msgs)
	req.ResponseFormat = jsonSchemaFormat("report", &reportSchema)

	content, err := c.complete(ctx, req)
	if err != nil {
		return nil, errors.Wrap(err, "generate report")
	}
	var report models.FinishReport
	if err = json.Unmarshal([]byte(content), &report); err != nil {
		return nil, errors.Wrap(err, "generate report: parse report")
	}
	return &report, nil
}
