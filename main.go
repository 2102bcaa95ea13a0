package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nudgly/nudgly/internal/bot"
	"github.com/nudgly/nudgly/internal/config"
	"github.com/nudgly/nudgly/internal/database"
	myopenai "github.com/nudgly/nudgly/internal/openai"
	"github.com/nudgly/nudgly/internal/parser"
	"github.com/nudgly/nudgly/internal/reminders"
	"github.com/nudgly/nudgly/internal/scheduler"
	"github.com/nudgly/nudgly/internal/store"
	"github.com/nudgly/nudgly/internal/twilio"
)

func main() {
	logger := log.New(os.Stdout, "[nudgly] ", log.LstdFlags|log.Lshortfile)
	cfg := config.Load()

	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("database init failed: %v", err)
	}

	reminderStore := store.New(db)
	service := reminders.New(reminderStore, cfg.LocalTimezone)

	openAIClient := myopenai.New(cfg.OpenAIAPIKey)
	twilioClient := twilio.New(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppNumber)

	var fallback parser.LLMFallback
	if openAIClient.Enabled() {
		fallback = openAIClient
	}
	extractor := parser.NewExtractor(cfg.LocalTimezone, cfg.ReminderKeywords, fallback)
	msgParser := parser.New(parser.Vocabulary{
		Reminder: cfg.ReminderKeywords,
		List:     cfg.ListKeywords,
		Done:     cfg.DoneKeywords,
		Cancel:   cfg.CancelKeywords,
	}, extractor)

	sched := scheduler.New(reminderStore, twilioClient, cfg.LocalTimezone, cfg.DailyDigestHour, cfg.NotifyLead, logger)
	if err := sched.Start(); err != nil {
		logger.Fatalf("scheduler start: %v", err)
	}

	reminderBot := bot.New(cfg, service, msgParser, openAIClient, twilioClient, sched, logger)

	mux := http.NewServeMux()
	mux.Handle("/twilio/whatsapp", reminderBot.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok","service":"nudgly"}`))
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: mux,
	}

	go func() {
		logger.Printf("server starting on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("server error: %v", err)
		}
	}()

	waitForShutdown(server, sched, logger)
}

func waitForShutdown(server *http.Server, sched *scheduler.Scheduler, logger *log.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Printf("server shutdown error: %v", err)
	}
	sched.Stop()
}
