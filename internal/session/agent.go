// Package session implements the practice-session hierarchy: agents
// speaking inside situations, situations grouped into scopes, and the
// manager that registers scopes and hands them to persistence.
package session

import (
	"context"
	"sync"

	"github.com/ljankila/lingoscene/internal/ai"
	"github.com/ljankila/lingoscene/internal/errors"
	"github.com/ljankila/lingoscene/internal/models"
	"github.com/ljankila/lingoscene/internal/prompt"
)

// Agent is one non-player persona in a situation. The provider client is
// resolved through the scope at call time, so switching providers takes
// effect immediately for new calls.
type Agent struct {
	mu        sync.Mutex
	profile   models.Profile
	situation *Situation
}

func newAgent(situation *Situation, profile models.Profile) *Agent {
	return &Agent{
		profile:   profile,
		situation: situation,
	}
}

// Name is the agent's identity and never changes after construction.
func (a *Agent) Name() string {
	return a.profile.Name
}

func (a *Agent) Profile() models.Profile {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.profile
}

// SetProfile merge-updates the descriptive fields; the name stays fixed.
func (a *Agent) SetProfile(profile models.Profile) {
	profile.Name = ""
	a.mu.Lock()
	a.profile = a.profile.Merge(profile)
	a.mu.Unlock()
}

// Reply asks the active provider for the agent's next utterance from its
// own viewpoint. A failed generation lands in the scope error log and is
// reported as ok false; the turn simply produces no content.
func (a *Agent) Reply(ctx context.Context, contextMessages []models.Message) (reply string, ok bool) {
	scope := a.situation.scope
	instruction := prompt.Filter(prompt.ContinueConversation, scope.promptValues())
	text := scope.Client().Prompt(ctx, contextMessages, instruction, a.Name())
	if ai.IsSoftFailure(text) {
		scope.reportError(errors.New(text))
		return "", false
	}
	return text, true
}
