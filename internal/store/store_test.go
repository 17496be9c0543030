package store_test

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/ljankila/lingoscene/internal/models"
	"github.com/ljankila/lingoscene/internal/store"
	"github.com/ljankila/lingoscene/internal/testhelpers"
	"github.com/stretchr/testify/require"
)

func newBackends(t *testing.T) map[string]store.KV {
	t.Helper()
	dir := t.TempDir()

	fileKV, err := store.NewFileKV(filepath.Join(dir, "store.json"))
	require.NoError(t, err)

	sqliteKV, err := store.NewSQLiteKV(filepath.Join(dir, "store.db"))
	require.NoError(t, err)

	return map[string]store.KV{
		"file":   fileKV,
		"sqlite": sqliteKV,
	}
}

func sampleView(name string) models.ScopeView {
	return models.ScopeView{
		Name: name,
		SituationViews: []models.SituationView{
			{
				Settings: models.SituationSettings{
					Title:              "Ramen shop",
					Scenario:           "Ordering at a busy ramen counter.",
					Objective:          "Order a full meal politely.",
					DiscussionDuration: 60,
				},
				Messages: []models.Message{
					{Sender: "Aoi", Content: "Irasshaimase!"},
				},
				AgentProfiles: []models.Profile{
					{Name: "Aoi", Personality: "brisk"},
				},
			},
		},
	}
}

func TestStoreScopeViews(t *testing.T) {
	for backend, kv := range newBackends(t) {
		t.Run(backend, func(t *testing.T) {
			s := store.New(kv, testhelpers.NewLogger(io.Discard))
			t.Cleanup(func() { _ = s.Close() })

			views, err := s.LoadScopeViews()
			require.NoError(t, err)
			require.Empty(t, views, "fresh store should have no views")

			require.NoError(t, s.SaveScope(sampleView("first")))
			require.NoError(t, s.SaveScope(sampleView("second")))

			// Saving an existing name replaces it instead of appending.
			updated := sampleView("first")
			updated.SituationViews[0].Settings.Title = "Izakaya"
			require.NoError(t, s.SaveScope(updated))

			views, err = s.LoadScopeViews()
			require.NoError(t, err)
			require.Len(t, views, 2)
			require.Equal(t, "Izakaya", views[0].SituationViews[0].Settings.Title)

			deleted, err := s.DeleteScope("first")
			require.NoError(t, err)
			require.True(t, deleted)

			deleted, err = s.DeleteScope("first")
			require.NoError(t, err)
			require.False(t, deleted, "second delete should report the view missing")

			views, err = s.LoadScopeViews()
			require.NoError(t, err)
			require.Len(t, views, 1)
			require.Equal(t, "second", views[0].Name)
		})
	}
}

func TestStoreSettingsRoundTrip(t *testing.T) {
	for backend, kv := range newBackends(t) {
		t.Run(backend, func(t *testing.T) {
			s := store.New(kv, testhelpers.NewLogger(io.Discard))
			t.Cleanup(func() { _ = s.Close() })

			_, found, err := s.LoadSettings()
			require.NoError(t, err)
			require.False(t, found)

			init := models.InitSettings{
				Settings: models.ScopeSettings{
					Language:                      "japanese",
					NativeLanguage:                "english",
					ScenarioCount:                 2,
					MinAgents:                     1,
					MaxAgents:                     3,
					LanguageLevel:                 "N3",
					MultiMessageGenerationEnabled: true,
				},
				Provider:    "deepseek",
				APIKeys:     models.APIKeys{"deepseek": "sk-test"},
				UserProfile: models.Profile{Name: "USER", Personality: "curious"},
				InitGenerationSettings: models.InitGenerationSettings{
					PrimaryModel: "deepseek-chat",
					UtilityModel: "deepseek-chat",
					GenerationSettings: models.GenerationSettings{
						MaxOutputTokens: 4096,
						Temperature:     0.7,
						TopP:            1,
						TopK:            40,
					},
				},
			}
			require.NoError(t, s.SaveAll(init))

			settings, found, err := s.LoadSettings()
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, init.Settings, settings)

			provider, found, err := s.LoadProvider()
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, "deepseek", provider)

			keys, found, err := s.LoadAPIKeys()
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, init.APIKeys, keys)

			profile, found, err := s.LoadUserProfile()
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, init.UserProfile, profile)

			gen, found, err := s.LoadGenerationSettings()
			require.NoError(t, err)
			require.True(t, found)
			require.Equal(t, init.InitGenerationSettings, gen)
		})
	}
}
