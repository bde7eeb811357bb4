package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/slack-go/slack"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nn1ks/lsfbot/pkg/config"
	"github.com/nn1ks/lsfbot/pkg/handlers"
	"github.com/nn1ks/lsfbot/pkg/notify"
	"github.com/nn1ks/lsfbot/pkg/reminder"
	"github.com/nn1ks/lsfbot/pkg/scraper"
	"github.com/nn1ks/lsfbot/pkg/timetable"
	"github.com/nn1ks/lsfbot/pkg/users"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reminder bot",
	Long: `Scrape the timetable, start the reminder engine and serve the Slack
slash command endpoint until the process is stopped.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		debug, _ := cmd.Flags().GetBool("debug")
		return runServe(debug)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Bool("debug", false, "Enable debug logging")
}

func runServe(debug bool) error {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found")
	}

	logger, err := newLogger(debug)
	if err != nil {
		return err
	}
	defer logger.Sync()

	botToken := os.Getenv("SLACK_BOT_TOKEN")
	signingSecret := os.Getenv("SLACK_SIGNING_SECRET")
	if botToken == "" || signingSecret == "" {
		return fmt.Errorf("SLACK_BOT_TOKEN and SLACK_SIGNING_SECRET must be set")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store, err := users.Open(cfg.UsersFile)
	if err != nil {
		return fmt.Errorf("failed to open users file: %w", err)
	}

	slackClient := slack.New(botToken)
	sink := notify.NewSlackSink(slackClient)
	client := scraper.NewClient()
	snapshot := timetable.NewSnapshot()

	refresh := func(ctx context.Context) error {
		schedule, err := scraper.Extract(client, cfg.Sources(), logger)
		if err != nil {
			return err
		}
		snapshot.Store(schedule)
		scraper.WriteCache(schedule)
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := refresh(ctx); err != nil {
		cached, ok := scraper.ReadCache()
		if !ok {
			return fmt.Errorf("failed to fetch data from website: %w", err)
		}
		logger.Warn("initial extraction failed, falling back to cached schedule", zap.Error(err))
		snapshot.Store(cached)
	}

	engine, err := reminder.New(cfg, snapshot, store, sink, logger)
	if err != nil {
		return err
	}
	go engine.Run(ctx)

	// Re-scrape once a night so room changes and new dates are picked up
	// without anyone running the update command.
	cronRunner := cron.New()
	_, err = cronRunner.AddFunc("0 4 * * *", func() {
		if err := refresh(context.Background()); err != nil {
			logger.Error("nightly refresh failed, keeping previous schedule", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule nightly refresh: %w", err)
	}
	cronRunner.Start()
	defer cronRunner.Stop()

	handler, err := handlers.New(cfg, snapshot, store, sink, refresh, signingSecret, logger)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/slack/commands", handler.HandleSlashCommand)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK")
	})

	server := &http.Server{Addr: ":" + cfg.Port, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shut down server", zap.Error(err))
		}
	}()

	logger.Info("server starting", zap.String("port", cfg.Port))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
