// Package prompt holds the instruction templates for every model
// operation and the placeholder substitution that instantiates them.
package prompt

import (
	"strconv"
	"strings"
)

// Agent instructions.
const (
	// ContinueConversation asks the model to speak as the next agent.
	ContinueConversation = "Write only dialog from the first-person perspective of the next speaker. Don't include roleplay elements like * or (). Write only in {{LANGUAGE}} and don't add quotes."
)

// Situation instructions.
const (
	SelectAgent       = "Your task is to determine who will {{ACTION}} by providing the array index of the chosen character. The first index starts from 0."
	ScoreConversation = "Grade {{USER}} in {{NATIVELANGUAGE}} based on how they acted in conversation and provide objective, sharp, and constructively critical advice on the user's performance and achievement of the objective."
	MultiGen          = "You will always create NEW messages based on what has already occurred that simulate the continuation of the scenario with conversation and third-person narrated actions/scenes. Write only in {{LANGUAGE}}. Do not generate any messages for the user's character, {{USER}}. Adhere to the format for each message; Agent messages should only contain pure dialog and system messages should only contain narration."
	FirstMultiGen     = "Generate a short start to the scene with 1-2 messages that simulates the start of the scenario with conversation and third-person narrated actions/scenes up until the point before {{USER}} is expected to speak. Write only in {{LANGUAGE}}. Do not generate any messages for the user's character, {{USER}}. Adhere to the format for each message; agent messages should only contain dialog and system messages should only contain narration."
)

// Scope instructions.
const (
	GenerateScopeTitle = "Generate a short title that summarizes the kinds of scenarios embedded in the user's response. Your response should only contain the title string, e.g. 'Beach Scenarios'."

	GenerateNativeLanguageScenarios = "Create {{SCENARIOCOUNT}} roleplay scenarios for practicing {{LANGUAGE}} at the {{LANGUAGELEVEL}} level, based on the user's goal. Each scenario has between {{MINAGENTS}} and {{MAXAGENTS}} AI characters, excluding the user's character {{USER}}. The user is defined as: {{USERDEFINITION}}. Write titles, scene descriptions, and objectives in {{NATIVELANGUAGE}}; character names should fit the home country of {{LANGUAGE}}."

	GeneratePracticeLanguageScenarios = "Create {{SCENARIOCOUNT}} roleplay scenarios for practicing {{LANGUAGE}} at the {{LANGUAGELEVEL}} level, based on the user's goal. Each scenario has between {{MINAGENTS}} and {{MAXAGENTS}} AI characters, excluding the user's character {{USER}}. The user is defined as: {{USERDEFINITION}}. Write titles, scene descriptions, and objectives in {{LANGUAGE}} suitable for a {{LANGUAGELEVEL}} reader; character names should fit the home country of {{LANGUAGE}}."
)

// Values is the bag of named substitutions for Filter. Zero values count
// as absent and leave their placeholder untouched.
type Values struct {
	Agents         string
	Action         string
	Language       string
	NativeLanguage string
	User           string
	UserDefinition string
	LanguageLevel  string
	ScenarioCount  int
	MinAgents      int
	MaxAgents      int
}

// Filter replaces every occurrence of the recognized {{PLACEHOLDER}}
// tokens with the corresponding value from v. Placeholders whose value is
// absent pass through verbatim; unrecognized placeholders are never
// touched. Numeric values are rendered in decimal.
func Filter(template string, v Values) string {
	out := template
	if v.Agents != "" {
		out = strings.ReplaceAll(out, "{{AGENTS}}", v.Agents)
	}
	if v.Action != "" {
		out = strings.ReplaceAll(out, "{{ACTION}}", v.Action)
	}
	if v.Language != "" {
		out = strings.ReplaceAll(out, "{{LANGUAGE}}", v.Language)
	}
	if v.NativeLanguage != "" {
		out = strings.ReplaceAll(out, "{{NATIVELANGUAGE}}", v.NativeLanguage)
	}
	if v.User != "" {
		out = strings.ReplaceAll(out, "{{USER}}", v.User)
	}
	if v.UserDefinition != "" {
		out = strings.ReplaceAll(out, "{{USERDEFINITION}}", v.UserDefinition)
	}
	if v.LanguageLevel != "" {
		out = strings.ReplaceAll(out, "{{LANGUAGELEVEL}}", v.LanguageLevel)
	}
	if v.ScenarioCount != 0 {
		out = strings.ReplaceAll(out, "{{SCENARIOCOUNT}}", strconv.Itoa(v.ScenarioCount))
	}
	if v.MinAgents != 0 {
		out = strings.ReplaceAll(out, "{{MINAGENTS}}", strconv.Itoa(v.MinAgents))
	}
	if v.MaxAgents != 0 {
		out = strings.ReplaceAll(out, "{{MAXAGENTS}}", strconv.Itoa(v.MaxAgents))
	}
	return out
}
