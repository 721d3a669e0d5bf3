package profile

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration for the scheduling agent. It is built once at
// startup and passed into constructors; nothing in the core reads process-wide
// state.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Data is the data directory
	Data string
	// DSN points to where schedwise stores session data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of the binary
	Version string

	// Timezone is the IANA identifier used to resolve times for the user.
	Timezone string

	// Scheduling defaults.
	WorkHoursStart int // first hour of the working day, inclusive
	WorkHoursEnd   int // last hour of the working day, exclusive
	BufferMinutes  int // idle time required around existing commitments
	SearchDays     int // default search window when no date is given

	// SessionRetentionDays controls how long idle sessions are kept.
	SessionRetentionDays int

	// ICSFeed is an optional path to an ICS file backing the calendar.
	ICSFeed string

	// Dialogue engine configuration. The agent is fully functional with
	// AIEnabled=false; the engine only assists intent extraction.
	AIEnabled   bool   // SCHEDWISE_AI_ENABLED
	AIAPIKey    string // SCHEDWISE_AI_API_KEY
	AIBaseURL   string // SCHEDWISE_AI_BASE_URL (default: https://api.openai.com/v1)
	AIModel     string // SCHEDWISE_AI_MODEL (default: gpt-4o-mini)
	AIMaxTokens int    // SCHEDWISE_AI_MAX_TOKENS (default: 512)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if the dialogue engine is enabled and configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEnabled && p.AIAPIKey != ""
}

// Location resolves the configured timezone, falling back to UTC.
func (p *Profile) Location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnvOrDefault returns the environment variable value or the default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

// FromEnv loads configuration from SCHEDWISE_* environment variables.
func (p *Profile) FromEnv() {
	p.AIEnabled = os.Getenv("SCHEDWISE_AI_ENABLED") == "true"
	p.AIAPIKey = os.Getenv("SCHEDWISE_AI_API_KEY")
	p.AIBaseURL = getEnvOrDefault("SCHEDWISE_AI_BASE_URL", "https://api.openai.com/v1")
	p.AIModel = getEnvOrDefault("SCHEDWISE_AI_MODEL", "gpt-4o-mini")
	p.AIMaxTokens = getIntEnvOrDefault("SCHEDWISE_AI_MAX_TOKENS", 512)

	if p.Timezone == "" {
		p.Timezone = getEnvOrDefault("SCHEDWISE_TIMEZONE", "UTC")
	}
	if p.ICSFeed == "" {
		p.ICSFeed = os.Getenv("SCHEDWISE_ICS_FEED")
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.Driver == "" {
		p.Driver = "sqlite"
	}

	if p.WorkHoursStart == 0 && p.WorkHoursEnd == 0 {
		p.WorkHoursStart = 9
		p.WorkHoursEnd = 17
	}
	if p.WorkHoursStart < 0 || p.WorkHoursEnd > 24 || p.WorkHoursStart >= p.WorkHoursEnd {
		return errors.Errorf("invalid work hours %d-%d", p.WorkHoursStart, p.WorkHoursEnd)
	}
	if p.BufferMinutes < 0 {
		return errors.Errorf("invalid buffer minutes %d", p.BufferMinutes)
	}
	if p.BufferMinutes == 0 {
		p.BufferMinutes = 15
	}
	if p.SearchDays <= 0 {
		p.SearchDays = 7
	}
	if p.SessionRetentionDays <= 0 {
		p.SessionRetentionDays = 7
	}

	if p.Timezone != "" {
		if _, err := time.LoadLocation(p.Timezone); err != nil {
			return errors.Wrapf(err, "invalid timezone %q", p.Timezone)
		}
	}

	if p.Data == "" {
		p.Data = "."
	}
	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		return err
	}
	p.Data = dataDir

	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("schedwise_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("postgres driver requires a DSN")
	}

	return nil
}
