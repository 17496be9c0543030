package session

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ljankila/lingoscene/internal/ai"
	"github.com/ljankila/lingoscene/internal/errors"
	"github.com/ljankila/lingoscene/internal/models"
	"github.com/ljankila/lingoscene/internal/prompt"
	"github.com/ljankila/lingoscene/internal/stream"
)

// Stage identifies the phase of a scope's lifecycle.
type Stage string

const (
	StageGenerate   Stage = "generate"
	StageSituations Stage = "situations"
	StageOverview   Stage = "overview"
	StageReport     Stage = "report"
)

// timerUnit scales a situation's discussion duration into wall time when
// the countdown is armed.
const timerUnit = 100 * time.Millisecond

// Scope is one practice session: its settings, user profile, provider
// selection, generated situations, timer, and error log. Orchestration
// failures never escape a Scope method; they land in the error log and
// leave the scope in a safe state.
type Scope struct {
	mu sync.Mutex

	name     string
	provider string
	client   ai.Client

	settings    models.ScopeSettings
	apiKeys     models.APIKeys
	userProfile models.Profile
	values      prompt.Values

	situations   []*Situation
	activeIndex  int
	active       *Situation
	stage        Stage
	errorLog     []string
	completed    int
	timer        *Timer
	situationSeq int

	broker *stream.Broker
	logger *slog.Logger
}

// NewScope creates a scope with the default practice settings and the
// default provider. The broker may be nil when nothing observes reveals.
func NewScope(name string, broker *stream.Broker, logger *slog.Logger) *Scope {
	s := &Scope{
		name:     name,
		provider: ai.ProviderGemini,
		settings: models.ScopeSettings{
			Language:                      "japanese",
			NativeLanguage:                "english",
			ScenarioCount:                 2,
			MinAgents:                     2,
			MaxAgents:                     4,
			LanguageLevel:                 "native",
			TimerEnabled:                  false,
			MultiMessageGenerationEnabled: true,
			DescriptionsInNativeLanguage:  true,
		},
		apiKeys:     models.APIKeys{},
		userProfile: models.Profile{Name: "USER"},
		stage:       StageGenerate,
		broker:      broker,
		logger:      logger.With("source", "scope", slog.String("scope", name)),
	}
	s.values = prompt.Values{
		Language:       s.settings.Language,
		NativeLanguage: s.settings.NativeLanguage,
		User:           s.userProfile.Name,
	}
	s.client = s.newClient(s.provider)
	return s
}

// newClient constructs an adapter for the named provider, falling back
// to the no-op adapter for an unknown name.
func (s *Scope) newClient(provider string) ai.Client {
	client, err := ai.New(provider, s.APIKeys(), s.logger)
	if err != nil {
		s.reportError(err)
		client, _ = ai.New(ai.ProviderNone, models.APIKeys{}, s.logger)
	}
	return client
}

// Initialize applies the persisted settings family, including the model
// bindings and generation settings of the active provider.
func (s *Scope) Initialize(init models.InitSettings) {
	s.UpdateSettings(init.Settings)

	s.mu.Lock()
	s.apiKeys = init.APIKeys
	if s.apiKeys == nil {
		s.apiKeys = models.APIKeys{}
	}
	s.mu.Unlock()

	s.SetProvider(init.Provider)
	s.UpdateUserProfile(init.UserProfile)

	client := s.Client()
	client.SetAPIKey(init.APIKeys[init.Provider])
	gen := init.InitGenerationSettings
	client.SetModel(gen.PrimaryModel, ai.RolePrimary)
	client.SetModel(gen.UtilityModel, ai.RoleUtility)
	client.SetGenerationSettings(gen.GenerationSettings)
}

func (s *Scope) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.name
}

func (s *Scope) SetName(name string) {
	s.mu.Lock()
	s.name = name
	s.mu.Unlock()
}

// Client returns the active provider adapter. Resolve it at call time;
// holding on to the result bypasses provider switches.
func (s *Scope) Client() ai.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

func (s *Scope) Provider() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.provider
}

// SetProvider switches to a fresh adapter for the named provider, seeded
// with the key on file. Model bindings and generation settings of the
// previous adapter are dropped; callers re-apply them after a switch. An
// unknown provider name lands in the error log and changes nothing.
func (s *Scope) SetProvider(provider string) {
	s.mu.Lock()
	if s.provider == provider {
		s.mu.Unlock()
		return
	}
	keys := maps.Clone(s.apiKeys)
	s.mu.Unlock()

	client, err := ai.New(provider, keys, s.logger)
	if err != nil {
		s.reportError(err)
		return
	}

	s.mu.Lock()
	s.provider = provider
	s.client = client
	s.mu.Unlock()
}

// UpdateAPIKey stores the key and reconfigures the active adapter when
// the key belongs to the active provider.
func (s *Scope) UpdateAPIKey(key, provider string) {
	s.mu.Lock()
	s.apiKeys[provider] = key
	activeProvider := s.provider == provider
	client := s.client
	s.mu.Unlock()
	if activeProvider {
		client.SetAPIKey(key)
	}
}

// UpdateSettings replaces the practice settings wholesale and refreshes
// the language values fed into prompt templates.
func (s *Scope) UpdateSettings(settings models.ScopeSettings) {
	s.mu.Lock()
	s.settings = settings
	s.values.Language = settings.Language
	s.values.NativeLanguage = settings.NativeLanguage
	s.mu.Unlock()
}

// UpdateUserProfile merge-updates the user profile.
func (s *Scope) UpdateUserProfile(profile models.Profile) {
	s.mu.Lock()
	s.userProfile = s.userProfile.Merge(profile)
	s.values.User = s.userProfile.Name
	s.mu.Unlock()
}

func (s *Scope) Settings() models.ScopeSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *Scope) UserProfile() models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userProfile
}

func (s *Scope) APIKeys() models.APIKeys {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.apiKeys)
}

// GenerationSettings snapshots the active adapter's model bindings and
// sampling parameters for persistence.
func (s *Scope) GenerationSettings() models.InitGenerationSettings {
	client := s.Client()
	return models.InitGenerationSettings{
		PrimaryModel:       client.PrimaryModel(),
		UtilityModel:       client.UtilityModel(),
		GenerationSettings: client.GenerationSettings(),
	}
}

func (s *Scope) promptValues() prompt.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values
}

// reportError funnels a caught failure into the append-only error log.
// Cancellations unwind through the same paths but are not failures.
func (s *Scope) reportError(err error) {
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	s.logger.Error("orchestration failure", errors.SlogError(err))
	s.mu.Lock()
	s.errorLog = append(s.errorLog, err.Error())
	s.mu.Unlock()
}

// Errors returns the accumulated error log in append order.
func (s *Scope) Errors() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.errorLog)
}

func (s *Scope) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stage
}

func (s *Scope) setStage(stage Stage) {
	s.mu.Lock()
	s.stage = stage
	s.mu.Unlock()
}

func (s *Scope) Situations() []*Situation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.situations)
}

func (s *Scope) ActiveSituation() *Situation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Scope) ActiveIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeIndex
}

func (s *Scope) Timer() *Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer
}

// situationKey issues a broker key for a new situation. Called with the
// scope lock held.
func (s *Scope) situationKey() string {
	key := fmt.Sprintf("%s/%d", s.name, s.situationSeq)
	s.situationSeq++
	return key
}

// GenerateSituations asks the provider for scenarios matching the goal
// and appends a situation per returned scenario. On failure nothing is
// appended and the error lands in the error log; situations from an
// earlier call stay untouched.
func (s *Scope) GenerateSituations(ctx context.Context, goal string) {
	s.mu.Lock()
	settings := s.settings
	values := prompt.Values{
		Language:       settings.Language,
		NativeLanguage: settings.NativeLanguage,
		LanguageLevel:  settings.LanguageLevel,
		ScenarioCount:  settings.ScenarioCount,
		MinAgents:      settings.MinAgents,
		MaxAgents:      settings.MaxAgents,
		User:           s.userProfile.Name,
		UserDefinition: jsonText(s.userProfile),
	}
	s.mu.Unlock()

	template := prompt.GeneratePracticeLanguageScenarios
	if settings.DescriptionsInNativeLanguage {
		template = prompt.GenerateNativeLanguageScenarios
	}

	scenarios, err := s.Client().GenerateScenarios(ctx, goal, prompt.Filter(template, values))
	if err != nil {
		s.reportError(err)
		return
	}

	s.mu.Lock()
	for _, scenario := range scenarios {
		s.situations = append(s.situations, newSituation(s, scenario, nil, s.situationKey()))
	}
	s.mu.Unlock()
}

// GenerateTitle renames the scope from a one-line summary of its
// scenarios. A failed generation leaves the name unchanged.
func (s *Scope) GenerateTitle(ctx context.Context) {
	type summary struct {
		ScenarioTitle string `json:"scenarioTitle"`
		Scenario      string `json:"scenario"`
	}

	s.mu.Lock()
	situations := slices.Clone(s.situations)
	values := s.values
	s.mu.Unlock()

	if len(situations) == 0 {
		return
	}
	summaries := make([]summary, 0, len(situations))
	for _, situation := range situations {
		summaries = append(summaries, summary{
			ScenarioTitle: situation.Title(),
			Scenario:      situation.Scenario(),
		})
	}

	title := s.Client().Prompt(ctx,
		[]models.Message{{Sender: models.SystemSender, Content: jsonText(summaries)}},
		prompt.Filter(prompt.GenerateScopeTitle, values),
		"",
	)
	if ai.IsSoftFailure(title) {
		s.reportError(errors.New(title))
		return
	}
	if title = strings.TrimSpace(title); title != "" {
		s.SetName(title)
	}
}

// SetActiveSituation selects the situation at index: the stage follows
// its report presence, an empty situation is started and a non-empty one
// refreshed, and the countdown is (re)armed when the timer is enabled.
// An out-of-range index does nothing.
func (s *Scope) SetActiveSituation(ctx context.Context, index int) {
	s.mu.Lock()
	if index < 0 || index >= len(s.situations) {
		s.mu.Unlock()
		return
	}
	s.activeIndex = index
	active := s.situations[index]
	s.active = active
	timerEnabled := s.settings.TimerEnabled
	s.mu.Unlock()

	if active.Report() != nil {
		s.setStage(StageReport)
	} else {
		s.setStage(StageSituations)
		if len(active.Messages()) == 0 {
			active.StartSituation(ctx)
		} else {
			active.Refresh(ctx)
		}
	}

	if timerEnabled {
		timer := NewTimer(func() {
			s.FinishSituation(context.Background())
		})
		s.mu.Lock()
		if s.timer != nil {
			s.timer.Stop()
		}
		s.timer = timer
		s.mu.Unlock()
		timer.Start(time.Duration(active.Settings().DiscussionDuration) * timerUnit)
	}
}

// Start activates the first situation.
func (s *Scope) Start(ctx context.Context) {
	s.SetActiveSituation(ctx, 0)
}

// Next activates the following situation, wrapping past the end.
func (s *Scope) Next(ctx context.Context) {
	s.cycleSituations(ctx, 1)
}

// Previous activates the preceding situation, wrapping past the start.
func (s *Scope) Previous(ctx context.Context) {
	s.cycleSituations(ctx, -1)
}

func (s *Scope) cycleSituations(ctx context.Context, delta int) {
	s.mu.Lock()
	count := len(s.situations)
	to := s.activeIndex + delta
	s.mu.Unlock()
	if count == 0 {
		return
	}
	if to < 0 {
		to = count - 1
	} else if to > count-1 {
		to = 0
	}
	s.SetActiveSituation(ctx, to)
}

// FinishSituation scores the active situation, moves to the report
// stage, and counts it as completed. A situation that already has a
// report is never re-scored.
func (s *Scope) FinishSituation(ctx context.Context) {
	s.mu.Lock()
	active := s.active
	values := s.values
	s.mu.Unlock()

	if active != nil && active.Report() == nil {
		report, err := s.Client().GenerateReport(ctx, active.Messages(), active.Settings(),
			prompt.Filter(prompt.ScoreConversation, values))
		if err != nil {
			s.reportError(err)
		} else {
			active.setReport(report)
		}
	}

	s.setStage(StageReport)
	s.mu.Lock()
	s.completed++
	s.mu.Unlock()
}

// AllCompleted reports whether every situation has been finished. It is
// false while the scope has no situations at all.
func (s *Scope) AllCompleted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.situations) > 0 && s.completed >= len(s.situations)
}

// Restart clears all situations and counters and returns to the
// generate stage.
func (s *Scope) Restart() {
	s.mu.Lock()
	timer := s.timer
	s.timer = nil
	s.active = nil
	s.activeIndex = 0
	s.completed = 0
	s.situations = nil
	s.stage = StageGenerate
	s.mu.Unlock()
	if timer != nil {
		timer.Stop()
	}
}

// LoadView rehydrates the scope from a persisted view and opens it in
// the overview stage. Saved agent profiles take precedence over the
// original roster definitions so that profile edits survive a reload.
func (s *Scope) LoadView(view models.ScopeView) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.name = view.Name
	s.situations = nil
	for _, sv := range view.SituationViews {
		settings := sv.Settings
		if len(sv.AgentProfiles) > 0 {
			settings.AgentDefs = sv.AgentProfiles
		}
		situation := newSituation(s, settings, sv.Messages, s.situationKey())
		situation.report = sv.FinishReport
		s.situations = append(s.situations, situation)
	}
	s.stage = StageOverview
}

// View snapshots the scope for persistence.
func (s *Scope) View() models.ScopeView {
	s.mu.Lock()
	name := s.name
	situations := slices.Clone(s.situations)
	s.mu.Unlock()

	views := make([]models.SituationView, 0, len(situations))
	for _, situation := range situations {
		views = append(views, situation.view())
	}
	return models.ScopeView{Name: name, SituationViews: views}
}
