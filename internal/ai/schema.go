package ai

import (
	"github.com/sashabaranov/go-openai/jsonschema"
)

// Response schemas for the chat-completion providers. OpenAI enforces
// these natively through the json_schema response format; DeepSeek gets
// them inlined as JSON text inside the instruction.

// decisionSchema wraps the chosen index in an object because the
// json_schema response format only accepts object roots.
var decisionSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"value": {
			Type:        jsonschema.Integer,
			Description: "The chosen index in the JS array.",
		},
	},
}

// decision is the parsed form of a decisionSchema response.
type decision struct {
	Value int `json:"value"`
}

var agentDefSchema = jsonschema.Definition{
	Type:        jsonschema.Object,
	Description: "An agent.",
	Properties: map[string]jsonschema.Definition{
		"name": {
			Type:        jsonschema.String,
			Description: "A randomly generated name relevant to the language's home country",
		},
		"stats": {
			Type:        jsonschema.Object,
			Description: "The agent's stats, required to allow for accurate judgement of social context",
			Properties: map[string]jsonschema.Definition{
				"age":    {Type: jsonschema.Integer, Description: "The agent's age"},
				"gender": {Type: jsonschema.String, Description: "The agent's gender (f/m)"},
				"job":    {Type: jsonschema.String, Description: "The agent's job"},
			},
		},
		"relationToUser": {
			Type:        jsonschema.String,
			Description: "The relationship the agent has with user for the situation context, eg: Boss, Friend, Stranger, Senior, etc.",
		},
		"personality": {
			Type:        jsonschema.String,
			Description: "The agent's personality",
		},
	},
}

var scenarioSchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"scenarioArray": {
			Type:        jsonschema.Array,
			Description: "An array of multiple chat scenarios",
			Items: &jsonschema.Definition{
				Type:        jsonschema.Object,
				Description: "A scenario object with agentDefs, title, scenario, objective, and discussionDuration",
				Properties: map[string]jsonschema.Definition{
					"title": {
						Type:        jsonschema.String,
						Description: "A short title for this scenario.",
					},
					"scenario": {
						Type:        jsonschema.String,
						Description: "Two sentences that visually describe the starting scene.",
					},
					"objective": {
						Type:        jsonschema.String,
						Description: "The user's goal to 'win' or succeed in this situation.",
					},
					"discussionDuration": {
						Type:        jsonschema.Integer,
						Description: "A reasonable duration for the objective to be completed in this chat.",
					},
					"agentDefs": {
						Type:        jsonschema.Array,
						Description: "An array of the AI bots for this scenario, excluding the user's character",
						Items:       &agentDefSchema,
					},
				},
			},
		},
	},
}

var reportSchema = jsonschema.Definition{
	Type:        jsonschema.Object,
	Description: "A report analyzing the discussion",
	Properties: map[string]jsonschema.Definition{
		"score": {
			Type: jsonschema.Object,
			Properties: map[string]jsonschema.Definition{
				"overall": {
					Type:        jsonschema.Integer,
					Description: "A score from 0-1000 rating the user's overall performance.",
				},
				"grammar": {
					Type:        jsonschema.Integer,
					Description: "A score from 0-1000 rating the user's grammar.",
				},
				"fluency": {
					Type:        jsonschema.Integer,
					Description: "A score from 0-1000 rating the user's flow and natural use of expressions given the conversational context.",
				},
				"role": {
					Type:        jsonschema.Integer,
					Description: "A score from 0-1000 rating the user's use of language according to their social role and place in the conversation based on the language's implied societal norms and etiquette.",
				},
			},
		},
		"analysis": {
			Type:        jsonschema.String,
			Description: "An overall analysis that describes your perception of how the user performed in the conversation according to expectations.",
		},
		"comments": {
			Type:        jsonschema.Array,
			Description: "An array of comments to be made about specific sentences that the user made.",
			Items: &jsonschema.Definition{
				Type:        jsonschema.Object,
				Description: "A comment for a specific sentence of note from the user.",
				Properties: map[string]jsonschema.Definition{
					"quote": {
						Type:        jsonschema.String,
						Description: "The exact quote of what the user typed.",
					},
					"analysis": {
						Type:        jsonschema.String,
						Description: "Your short comment or analysis of this sentence and its effect on the score.",
					},
				},
			},
		},
	},
}

var messageSchema = jsonschema.Definition{
	Type:        jsonschema.Object,
	Description: "An individual message, either a system message or dialogue from the relevant non-user agents.",
	Properties: map[string]jsonschema.Definition{
		"sender": {
			Type:        jsonschema.String,
			Description: "The agent's name. Use SYSTEM if it's a 3rd-person narration element.",
		},
		"content": {
			Type:        jsonschema.String,
			Description: "Dialog of the agent, or narration if the SYSTEM.",
		},
	},
}

var messageArraySchema = jsonschema.Definition{
	Type: jsonschema.Object,
	Properties: map[string]jsonschema.Definition{
		"messageArray": {
			Type:        jsonschema.Array,
			Description: "An array of new chronological messages that continue the scene, made of a variable length of messages that continues up until the user is expected to speak again. It should not contain any preexisting messages from the prompt.",
			Items:       &messageSchema,
		},
	},
}
