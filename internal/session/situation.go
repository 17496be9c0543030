package session

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/ljankila/lingoscene/internal/errors"
	"github.com/ljankila/lingoscene/internal/models"
	"github.com/ljankila/lingoscene/internal/prompt"
	"github.com/ljankila/lingoscene/internal/stream"
)

const (
	// revealDelay is the pause between revealed characters. The text is
	// already fully generated; this is pacing, not token streaming.
	revealDelay = 25 * time.Millisecond
	// refreshDelay paces re-entry into an already-started situation.
	refreshDelay = 100 * time.Millisecond
)

// Situation owns one conversation thread: its settings, agent roster,
// message log, streaming reveal, and eventual finish report. A fresh
// situation starts with input locked until its first cycle completes.
type Situation struct {
	mu         sync.Mutex
	scope      *Scope
	settings   models.SituationSettings
	messages   []models.Message
	agents     map[string]*Agent
	agentOrder []string
	report     *models.FinishReport

	inputLocked  bool
	generating   bool
	cancelReveal context.CancelFunc

	revealKey string
	logger    *slog.Logger
}

func newSituation(scope *Scope, settings models.SituationSettings, log []models.Message, revealKey string) *Situation {
	s := &Situation{
		scope:       scope,
		settings:    settings,
		messages:    slices.Clone(log),
		agents:      map[string]*Agent{},
		agentOrder:  []string{},
		inputLocked: true,
		revealKey:   revealKey,
		logger:      scope.logger.With("source", "situation", slog.String("title", settings.Title)),
	}
	for _, def := range settings.AgentDefs {
		s.agents[def.Name] = newAgent(s, def)
		s.agentOrder = append(s.agentOrder, def.Name)
	}
	return s
}

// jsonText serializes v for embedding into prompt text. The data model
// always marshals; a failure falls back to an empty object.
func jsonText(v any) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

func (s *Situation) Title() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Title
}

func (s *Situation) Scenario() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Scenario
}

func (s *Situation) SetScenario(scenario string) {
	s.mu.Lock()
	s.settings.Scenario = scenario
	s.mu.Unlock()
}

func (s *Situation) Objective() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings.Objective
}

func (s *Situation) SetObjective(objective string) {
	s.mu.Lock()
	s.settings.Objective = objective
	s.mu.Unlock()
}

func (s *Situation) Settings() models.SituationSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

func (s *Situation) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

// Report returns the finish report, or nil while the situation is still
// in play. The returned report must be treated as immutable.
func (s *Situation) Report() *models.FinishReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.report
}

func (s *Situation) setReport(report *models.FinishReport) {
	s.mu.Lock()
	s.report = report
	s.mu.Unlock()
}

// Agents returns the roster in its generation order.
func (s *Situation) Agents() []*Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	agents := make([]*Agent, 0, len(s.agentOrder))
	for _, name := range s.agentOrder {
		agents = append(agents, s.agents[name])
	}
	return agents
}

// InputLocked reports whether the user may send a message right now.
func (s *Situation) InputLocked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inputLocked
}

// RevealKey identifies this situation's reveal channel on the broker.
func (s *Situation) RevealKey() string {
	return s.revealKey
}

// StartSituation generates the opening content for an empty situation.
func (s *Situation) StartSituation(ctx context.Context) {
	s.runCycle(ctx)
}

// Send appends the user's message and runs the next turn cycle.
func (s *Situation) Send(ctx context.Context, msg models.Message) {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	s.mu.Unlock()
	s.runCycle(ctx)
}

// Refresh unlocks input without generating new content, used when
// switching back into a situation that already has messages.
func (s *Situation) Refresh(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(refreshDelay):
	}
	s.mu.Lock()
	s.inputLocked = false
	s.mu.Unlock()
}

// DeleteMessages truncates the log to the given index. The report, if
// any, is unaffected.
func (s *Situation) DeleteMessages(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if index < 0 || index > len(s.messages) {
		return
	}
	s.messages = s.messages[:index]
}

// CancelReveal abandons an in-flight reveal and unlocks input. The log
// keeps whatever prefix had been revealed.
func (s *Situation) CancelReveal() {
	s.mu.Lock()
	cancel := s.cancelReveal
	s.inputLocked = false
	s.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// runCycle produces the next model content for the conversation. Only
// one cycle is live at a time per situation; a call while another cycle
// is in flight returns immediately without touching the log.
func (s *Situation) runCycle(ctx context.Context) {
	s.mu.Lock()
	if s.generating {
		s.mu.Unlock()
		return
	}
	s.generating = true
	s.inputLocked = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.generating = false
		s.inputLocked = false
		s.mu.Unlock()
	}()

	if s.scope.Settings().MultiMessageGenerationEnabled {
		s.runBatchCycle(ctx)
	} else {
		s.runSingleCycle(ctx)
	}
	s.logger.Debug("finished dialogue generation")
}

// runBatchCycle asks the provider for several turns at once. The first
// cycle of an empty log seeds the scene without streaming; later cycles
// reveal the new messages.
func (s *Situation) runBatchCycle(ctx context.Context) {
	userProfile := s.scope.UserProfile()
	values := s.scope.promptValues()

	s.mu.Lock()
	first := len(s.messages) == 0
	log := make([]models.Message, 0, len(s.messages)+2)
	log = append(log, models.Message{
		Sender: models.SystemSender,
		Content: fmt.Sprintf("The user is %s. %s's definition: %s",
			userProfile.Name, userProfile.Name, jsonText(userProfile)),
	})
	log = append(log, s.messages...)
	log = append(log, models.Message{Sender: models.SystemSender, Content: "Continuing the conversation..."})
	values.Agents = jsonText(s.agentOrder)
	settings := s.settings
	s.mu.Unlock()

	template := prompt.MultiGen
	if first {
		template = prompt.FirstMultiGen
	}

	generated, err := s.scope.Client().MultiPrompt(ctx, log, settings, prompt.Filter(template, values))
	if err != nil {
		s.scope.reportError(err)
		return
	}

	if first {
		s.mu.Lock()
		s.messages = append(s.messages, generated...)
		s.mu.Unlock()
		return
	}
	s.reveal(ctx, generated)
}

// runSingleCycle selects exactly one agent and appends its reply.
func (s *Situation) runSingleCycle(ctx context.Context) {
	speaker := s.nextSpeaker(ctx)
	if speaker == nil {
		s.scope.reportError(errors.New("unable to determine next speaker"))
		return
	}
	reply, ok := speaker.Reply(ctx, s.buildContext(speaker))
	if !ok {
		// The failure is already in the error log.
		return
	}
	if reply == "" {
		s.scope.reportError(errors.New("unable to generate response", slog.String("speaker", speaker.Name())))
		return
	}
	s.mu.Lock()
	s.messages = append(s.messages, models.Message{Sender: speaker.Name(), Content: reply})
	s.mu.Unlock()
}

// nextSpeaker picks who speaks next. A single-agent roster skips the
// model call entirely.
func (s *Situation) nextSpeaker(ctx context.Context) *Agent {
	s.mu.Lock()
	order := slices.Clone(s.agentOrder)
	log := slices.Clone(s.messages)
	s.mu.Unlock()

	if len(order) == 0 {
		return nil
	}
	if len(order) == 1 {
		return s.agents[order[0]]
	}

	values := s.scope.promptValues()
	values.Agents = jsonText(order)
	values.Action = "Speak Next"
	instruction := prompt.Filter(prompt.SelectAgent, values)

	choice, err := s.scope.Client().Decide(ctx, log, order, instruction)
	if err != nil {
		s.scope.reportError(err)
		return nil
	}
	if choice < 0 || choice >= len(order) {
		s.scope.reportError(errors.New("speaker choice out of range", slog.Int("choice", choice)))
		return nil
	}
	s.logger.Debug("selected next speaker", slog.String("speaker", order[choice]))
	return s.agents[order[choice]]
}

// buildContext assembles the prompt log for a single-speaker turn:
// scene, user definition, roster profiles, the conversation so far, and
// the next-speaker marker.
func (s *Situation) buildContext(next *Agent) []models.Message {
	userProfile := s.scope.UserProfile()

	s.mu.Lock()
	defer s.mu.Unlock()

	promptLog := []models.Message{
		{Sender: models.SystemSender, Content: "The conversation context is: " + s.settings.Scenario},
		{Sender: models.SystemSender, Content: "The user's definition: " + jsonText(userProfile)},
	}
	for _, name := range s.agentOrder {
		promptLog = append(promptLog, models.Message{Sender: name, Content: jsonText(s.agents[name].Profile())})
	}
	promptLog = append(promptLog, s.messages...)
	promptLog = append(promptLog, models.Message{
		Sender:  models.SystemSender,
		Content: "The next speaker will be " + next.Name(),
	})
	return promptLog
}

// reveal appends each generated message with empty content and fills it
// in character by character. Cancellation leaves the revealed prefix in
// the log and is never treated as an error.
func (s *Situation) reveal(ctx context.Context, generated []models.Message) {
	ctx, cancel := context.WithCancel(ctx)
	s.mu.Lock()
	s.cancelReveal = cancel
	s.mu.Unlock()
	defer func() {
		cancel()
		s.mu.Lock()
		s.cancelReveal = nil
		s.mu.Unlock()
	}()

	var updates chan stream.Update
	if broker := s.scope.broker; broker != nil {
		updates = broker.Open(s.revealKey)
		defer broker.Close(s.revealKey, updates)
	}

	for _, msg := range generated {
		if msg.Content == "" {
			s.logger.Debug("message has no content", slog.String("sender", msg.Sender))
			continue
		}

		s.mu.Lock()
		s.messages = append(s.messages, models.Message{Sender: msg.Sender})
		index := len(s.messages) - 1
		s.mu.Unlock()

		for _, r := range msg.Content {
			s.mu.Lock()
			if index >= len(s.messages) {
				// The log was truncated under the reveal.
				s.mu.Unlock()
				return
			}
			s.messages[index].Content += string(r)
			revealed := s.messages[index].Content
			s.mu.Unlock()

			if updates != nil {
				stream.Send(updates, stream.Update{Sender: msg.Sender, Content: revealed})
			}

			select {
			case <-ctx.Done():
				return
			case <-time.After(revealDelay):
			}
		}
		if updates != nil {
			stream.Send(updates, stream.Update{Sender: msg.Sender, Content: msg.Content, Done: true})
		}
	}
}

func (s *Situation) view() models.SituationView {
	s.mu.Lock()
	defer s.mu.Unlock()
	profiles := make([]models.Profile, 0, len(s.agentOrder))
	for _, name := range s.agentOrder {
		profiles = append(profiles, s.agents[name].Profile())
	}
	return models.SituationView{
		Settings:      s.settings,
		Messages:      slices.Clone(s.messages),
		FinishReport:  s.report,
		AgentProfiles: profiles,
	}
}
