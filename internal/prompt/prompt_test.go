package prompt_test

import (
	"testing"

	"github.com/ljankila/lingoscene/internal/prompt"
	"github.com/stretchr/testify/require"
)

func TestFilter(t *testing.T) {
	tests := []struct {
		name     string
		template string
		values   prompt.Values
		want     string
	}{
		{
			name:     "absent keys leave placeholders untouched",
			template: "Hi {{LANGUAGE}}",
			values:   prompt.Values{},
			want:     "Hi {{LANGUAGE}}",
		},
		{
			name:     "present key substitutes",
			template: "Hi {{LANGUAGE}}",
			values:   prompt.Values{Language: "french"},
			want:     "Hi french",
		},
		{
			name:     "every occurrence is replaced",
			template: "{{USER}} and {{USER}} again",
			values:   prompt.Values{User: "Maija"},
			want:     "Maija and Maija again",
		},
		{
			name:     "numbers render in decimal",
			template: "{{SCENARIOCOUNT}} scenarios, {{MINAGENTS}}-{{MAXAGENTS}} agents",
			values:   prompt.Values{ScenarioCount: 3, MinAgents: 2, MaxAgents: 4},
			want:     "3 scenarios, 2-4 agents",
		},
		{
			name:     "unrecognized placeholders pass through",
			template: "keep {{SOMETHING_ELSE}} as is in {{LANGUAGE}}",
			values:   prompt.Values{Language: "japanese"},
			want:     "keep {{SOMETHING_ELSE}} as is in japanese",
		},
		{
			name:     "mixed present and absent",
			template: "Grade {{USER}} in {{NATIVELANGUAGE}}",
			values:   prompt.Values{NativeLanguage: "english"},
			want:     "Grade {{USER}} in english",
		},
		{
			name:     "empty template",
			template: "",
			values:   prompt.Values{Language: "swedish"},
			want:     "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, prompt.Filter(tt.template, tt.values))
		})
	}
}
