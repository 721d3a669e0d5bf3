package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/schedwise/schedwise/internal/profile"
	"github.com/schedwise/schedwise/plugin/dialogue"
	"github.com/schedwise/schedwise/plugin/timeparse"
	"github.com/schedwise/schedwise/server/availability"
	"github.com/schedwise/schedwise/server/calendar"
	"github.com/schedwise/schedwise/server/conversation"
	"github.com/schedwise/schedwise/store"
	"github.com/schedwise/schedwise/store/db"
)

const greeting = `Schedwise scheduling assistant. Tell me what you'd like to set up
(for example: "schedule a 30 minute meeting next Tuesday afternoon").
Type "quit" to exit.`

var (
	rootCmd = &cobra.Command{
		Use:   "schedwise",
		Short: "A conversational meeting scheduling assistant",
		Run: func(_ *cobra.Command, _ []string) {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := run(ctx); err != nil {
				slog.Error("schedwise exited with error", "error", err)
				os.Exit(1)
			}
		},
	}
)

func init() {
	viper.AutomaticEnv()
	viper.SetEnvPrefix("schedwise")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	rootCmd.PersistentFlags().String("mode", "demo", `mode of the assistant: "prod", "dev" or "demo"`)
	rootCmd.PersistentFlags().String("data", "", "data directory")
	rootCmd.PersistentFlags().String("driver", "sqlite", `database driver: "sqlite" or "postgres"`)
	rootCmd.PersistentFlags().String("dsn", "", "database source name")
	rootCmd.PersistentFlags().String("timezone", "UTC", "IANA timezone of the user")
	rootCmd.PersistentFlags().String("ics-feed", "", "path to an ICS file backing the calendar")
	rootCmd.PersistentFlags().Int("work-hours-start", 9, "first hour of the working day")
	rootCmd.PersistentFlags().Int("work-hours-end", 17, "last hour of the working day")
	rootCmd.PersistentFlags().Int("buffer-minutes", 15, "idle minutes required around existing commitments")
	rootCmd.PersistentFlags().Int("search-days", 7, "default search horizon in days")
	rootCmd.PersistentFlags().Int("session-retention-days", 7, "days to keep idle sessions")

	for _, flag := range []string{
		"mode", "data", "driver", "dsn", "timezone", "ics-feed",
		"work-hours-start", "work-hours-end", "buffer-minutes",
		"search-days", "session-retention-days",
	} {
		if err := viper.BindPFlag(flag, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(err)
		}
	}
}

func loadProfile() (*profile.Profile, error) {
	p := &profile.Profile{
		Mode:                 viper.GetString("mode"),
		Data:                 viper.GetString("data"),
		Driver:               viper.GetString("driver"),
		DSN:                  viper.GetString("dsn"),
		Timezone:             viper.GetString("timezone"),
		ICSFeed:              viper.GetString("ics-feed"),
		WorkHoursStart:       viper.GetInt("work-hours-start"),
		WorkHoursEnd:         viper.GetInt("work-hours-end"),
		BufferMinutes:        viper.GetInt("buffer-minutes"),
		SearchDays:           viper.GetInt("search-days"),
		SessionRetentionDays: viper.GetInt("session-retention-days"),
		Version:              "0.1.0",
	}
	p.FromEnv()
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func run(ctx context.Context) error {
	p, err := loadProfile()
	if err != nil {
		return fmt.Errorf("failed to load profile: %w", err)
	}

	logLevel := slog.LevelInfo
	if p.IsDev() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))

	driver, err := db.NewDriver(p)
	if err != nil {
		return fmt.Errorf("failed to create db driver: %w", err)
	}
	sessionStore := store.New(driver, p)
	defer func() {
		if err := sessionStore.Close(); err != nil {
			slog.Warn("failed to close session store", "error", err)
		}
	}()

	cal, err := newCalendar(p)
	if err != nil {
		return fmt.Errorf("failed to set up calendar: %w", err)
	}

	loc := p.Location()
	parser := timeparse.NewParser(cal, loc,
		timeparse.WithWorkHours(p.WorkHoursStart, p.WorkHoursEnd),
		timeparse.WithSearchDays(p.SearchDays),
	)
	engine := availability.NewEngine(cal,
		availability.WithWorkHours(p.WorkHoursStart, p.WorkHoursEnd),
		availability.WithBuffer(p.BufferMinutes),
	)

	opts := []conversation.ManagerOption{conversation.WithSearchDays(p.SearchDays)}
	if p.IsAIEnabled() {
		engineProvider, err := dialogue.NewProvider(&dialogue.Config{
			BaseURL:   p.AIBaseURL,
			APIKey:    p.AIAPIKey,
			Model:     p.AIModel,
			MaxTokens: p.AIMaxTokens,
		})
		if err != nil {
			slog.Warn("dialogue engine disabled", "error", err)
		} else {
			opts = append(opts, conversation.WithDialogueEngine(engineProvider))
			slog.Info("dialogue engine enabled", "model", p.AIModel)
		}
	}
	manager := conversation.NewManager(sessionStore, parser, engine, cal, opts...)

	scheduler := startCleanupScheduler(sessionStore, p)
	defer scheduler.Stop()

	slog.Info("schedwise started",
		"version", p.Version, "mode", p.Mode, "driver", p.Driver, "timezone", p.Timezone)
	return chatLoop(ctx, manager)
}

func newCalendar(p *profile.Profile) (calendar.Service, error) {
	if p.ICSFeed == "" {
		slog.Info("no ICS feed configured, using an empty in-memory calendar")
		return calendar.NewMockService(), nil
	}
	return calendar.NewICSBackend(p.ICSFeed, p.Location())
}

// startCleanupScheduler sweeps expired sessions once a day.
func startCleanupScheduler(sessionStore *store.Store, p *profile.Profile) *cron.Cron {
	retention := time.Duration(p.SessionRetentionDays) * 24 * time.Hour
	c := cron.New()
	_, err := c.AddFunc("@daily", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		n, err := sessionStore.DeleteExpiredSessions(ctx, retention)
		if err != nil {
			slog.Warn("session cleanup failed", "error", err)
			return
		}
		if n > 0 {
			slog.Info("expired sessions removed", "count", n)
		}
	})
	if err != nil {
		slog.Warn("failed to schedule session cleanup", "error", err)
	}
	c.Start()
	return c
}

func chatLoop(ctx context.Context, manager *conversation.Manager) error {
	session, err := manager.StartSession(ctx, "local")
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	sessionID := session.ID

	fmt.Println(greeting)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		fmt.Print("> ")
		select {
		case <-ctx.Done():
			fmt.Println()
			slog.Info("shutting down")
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			if text == "quit" || text == "exit" {
				return nil
			}

			reply, err := manager.HandleTurn(ctx, sessionID, text)
			if err != nil {
				slog.Error("turn failed", "error", err)
				fmt.Println("Something went wrong on my end. Please try again.")
				continue
			}
			sessionID = reply.SessionID
			fmt.Println(reply.Text)

			if reply.Done {
				session, err := manager.StartSession(ctx, "local")
				if err != nil {
					return fmt.Errorf("failed to start session: %w", err)
				}
				sessionID = session.ID
			}
		}
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
