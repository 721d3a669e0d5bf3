package profile

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"SCHEDWISE_AI_ENABLED",
		"SCHEDWISE_AI_API_KEY",
		"SCHEDWISE_AI_BASE_URL",
		"SCHEDWISE_AI_MODEL",
		"SCHEDWISE_AI_MAX_TOKENS",
		"SCHEDWISE_TIMEZONE",
		"SCHEDWISE_ICS_FEED",
	} {
		os.Unsetenv(key)
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	p := &Profile{}
	p.FromEnv()

	require.False(t, p.AIEnabled)
	require.Equal(t, "https://api.openai.com/v1", p.AIBaseURL)
	require.Equal(t, "gpt-4o-mini", p.AIModel)
	require.Equal(t, 512, p.AIMaxTokens)
	require.Equal(t, "UTC", p.Timezone)
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SCHEDWISE_AI_ENABLED", "true")
	t.Setenv("SCHEDWISE_AI_API_KEY", "test-key")
	t.Setenv("SCHEDWISE_AI_MODEL", "gpt-4")
	t.Setenv("SCHEDWISE_AI_MAX_TOKENS", "1024")
	t.Setenv("SCHEDWISE_TIMEZONE", "America/New_York")
	t.Setenv("SCHEDWISE_ICS_FEED", "/data/calendar.ics")

	p := &Profile{}
	p.FromEnv()

	require.True(t, p.AIEnabled)
	require.Equal(t, "test-key", p.AIAPIKey)
	require.Equal(t, "gpt-4", p.AIModel)
	require.Equal(t, 1024, p.AIMaxTokens)
	require.Equal(t, "America/New_York", p.Timezone)
	require.Equal(t, "/data/calendar.ics", p.ICSFeed)
}

func TestIsAIEnabled(t *testing.T) {
	tests := []struct {
		name    string
		profile Profile
		want    bool
	}{
		{"disabled", Profile{AIEnabled: false, AIAPIKey: "key"}, false},
		{"enabled without key", Profile{AIEnabled: true}, false},
		{"enabled with key", Profile{AIEnabled: true, AIAPIKey: "key"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.profile.IsAIEnabled())
		})
	}
}

func TestValidateDefaults(t *testing.T) {
	p := &Profile{Mode: "demo", Data: t.TempDir()}
	require.NoError(t, p.Validate())

	require.Equal(t, "sqlite", p.Driver)
	require.NotEmpty(t, p.DSN)
	require.Equal(t, 9, p.WorkHoursStart)
	require.Equal(t, 17, p.WorkHoursEnd)
	require.Equal(t, 15, p.BufferMinutes)
	require.Equal(t, 7, p.SearchDays)
	require.Equal(t, 7, p.SessionRetentionDays)
}

func TestValidateRejectsBadInput(t *testing.T) {
	dir := t.TempDir()

	p := &Profile{Mode: "demo", Data: dir, WorkHoursStart: 18, WorkHoursEnd: 9}
	require.Error(t, p.Validate())

	p = &Profile{Mode: "demo", Data: dir, Timezone: "Not/A_Zone"}
	require.Error(t, p.Validate())

	p = &Profile{Mode: "demo", Data: dir, Driver: "postgres"}
	require.Error(t, p.Validate(), "postgres requires a DSN")
}

func TestLocationFallsBackToUTC(t *testing.T) {
	p := &Profile{Timezone: "Not/A_Zone"}
	require.Equal(t, "UTC", p.Location().String())

	p = &Profile{Timezone: "America/New_York"}
	require.Equal(t, "America/New_York", p.Location().String())
}
