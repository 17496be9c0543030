// Package models holds the shared data model for practice sessions:
// profiles, messages, situation settings, finish reports, and the
// serialized views used for persistence.
package models

// SystemSender is the sender name reserved for third-person narration messages.
const SystemSender = "SYSTEM"

// Message is one entry in a situation's conversation log.
type Message struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

// Stats are the descriptive attributes of a persona used for judging
// social context. All fields are optional.
type Stats struct {
	Age    int    `json:"age,omitempty"`
	Gender string `json:"gender,omitempty"`
	Job    string `json:"job,omitempty"`
}

// Memory is a weighted remembered event between two personas.
type Memory struct {
	Weight  int    `json:"weight"`
	Summary string `json:"summary"`
}

// Relation describes a persona's opinion of another named persona.
type Relation struct {
	Name         string   `json:"name"`
	ShortOpinion string   `json:"shortOpinion"`
	Memories     []Memory `json:"memories"`
}

// Profile identifies a conversational persona. Name is the identity and
// must be unique within a situation's roster; "USER" is reserved for the
// human participant.
type Profile struct {
	Name           string     `json:"name"`
	Stats          Stats      `json:"stats"`
	RelationToUser string     `json:"relationToUser,omitempty"`
	Personality    string     `json:"personality"`
	Relations      []Relation `json:"relations,omitempty"`
}

// Merge returns a copy of the profile with the non-zero descriptive
// fields of other applied. An empty other.Name keeps the original name.
func (p Profile) Merge(other Profile) Profile {
	merged := p
	if other.Name != "" {
		merged.Name = other.Name
	}
	if other.Stats != (Stats{}) {
		merged.Stats = other.Stats
	}
	if other.RelationToUser != "" {
		merged.RelationToUser = other.RelationToUser
	}
	if other.Personality != "" {
		merged.Personality = other.Personality
	}
	if other.Relations != nil {
		merged.Relations = other.Relations
	}
	return merged
}

// SituationSettings define one scenario: its agent roster, scene
// description, objective, and discussion duration in seconds.
type SituationSettings struct {
	Title              string    `json:"title"`
	AgentDefs          []Profile `json:"agentDefs"`
	Scenario           string    `json:"scenario"`
	Objective          string    `json:"objective"`
	DiscussionDuration int       `json:"discussionDuration"`
}

// FinishScores are the 0-1000 performance scores of a finished situation.
type FinishScores struct {
	Overall int `json:"overall"`
	Grammar int `json:"grammar"`
	Fluency int `json:"fluency"`
	Role    int `json:"role"`
}

// FinishComment is feedback on one specific quote from the user.
type FinishComment struct {
	Quote    string `json:"quote"`
	Analysis string `json:"analysis"`
}

// FinishReport is the scored, terminal evaluation of a completed
// situation. It is produced exactly once per situation.
type FinishReport struct {
	Score    FinishScores    `json:"score"`
	Analysis string          `json:"analysis"`
	Comments []FinishComment `json:"comments"`
}

// ScopeSettings are the per-scope practice settings.
type ScopeSettings struct {
	Language                      string `json:"language"`
	NativeLanguage                string `json:"nativeLanguage"`
	ScenarioCount                 int    `json:"scenarioCount"`
	MinAgents                     int    `json:"minAgents"`
	MaxAgents                     int    `json:"maxAgents"`
	LanguageLevel                 string `json:"languageLevel"`
	TimerEnabled                  bool   `json:"timerEnabled"`
	MultiMessageGenerationEnabled bool   `json:"multiMessageGenerationEnabled"`
	DescriptionsInNativeLanguage  bool   `json:"descriptionsInNativeLanguage"`
}

// GenerationSettings are the numeric sampling parameters applied to every
// provider call. Values are passed through to the vendor unvalidated.
type GenerationSettings struct {
	MaxOutputTokens int     `json:"maxOutputTokens"`
	Temperature     float32 `json:"temperature"`
	TopP            float32 `json:"topP"`
	TopK            float32 `json:"topK"`
}

// APIKeys maps a provider name to the user-supplied API key on file.
type APIKeys map[string]string

// InitGenerationSettings bundles the model bindings with the sampling
// parameters for persistence and re-application at startup.
type InitGenerationSettings struct {
	PrimaryModel       string             `json:"primaryModel"`
	UtilityModel       string             `json:"utilityModel"`
	GenerationSettings GenerationSettings `json:"generationSettings"`
}

// InitSettings are everything needed to initialize a scope from the
// persisted state.
type InitSettings struct {
	Settings               ScopeSettings          `json:"settings"`
	Provider               string                 `json:"provider"`
	APIKeys                APIKeys                `json:"apiKeys"`
	UserProfile            Profile                `json:"userProfile"`
	InitGenerationSettings InitGenerationSettings `json:"initGenerationSettings"`
}

// SituationView is the serialized form of a situation.
type SituationView struct {
	Settings      SituationSettings `json:"settings"`
	Messages      []Message         `json:"messages"`
	FinishReport  *FinishReport     `json:"situationFinishReport,omitempty"`
	AgentProfiles []Profile         `json:"agentProfiles"`
}

// ScopeView is the serialized form of a scope.
type ScopeView struct {
	Name           string          `json:"name"`
	SituationViews []SituationView `json:"situationViews"`
}
