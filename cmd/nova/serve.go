package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/spf13/cobra"

	"github.com/benhoenig/NOVA-II/internal/httpapi"
	"github.com/benhoenig/NOVA-II/internal/line"
	"github.com/benhoenig/NOVA-II/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the LINE bot, reminder scheduler, and dashboard API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	var callback http.HandlerFunc
	if a.cfg.LineChannelToken != "" && a.cfg.LineChannelSecret != "" {
		api, err := messaging_api.NewMessagingApiAPI(a.cfg.LineChannelToken)
		if err != nil {
			return fmt.Errorf("creating LINE client: %w", err)
		}
		bot := line.NewBot(api, a.cfg.LineChannelSecret, a.assistant, a.db)
		callback = bot.Callback

		sched := scheduler.New(a.evaluator, a.engine, a.db, bot.Push, a.loc)
		if err := sched.Start(a.cfg.ReminderCron); err != nil {
			return err
		}
		defer sched.Stop()
	} else {
		log.Printf("LINE credentials not set, serving the dashboard API only")
	}

	server := &http.Server{
		Addr:    a.cfg.HTTPAddr,
		Handler: httpapi.NewServer(a.repo, a.db, a.cfg.DashboardPIN, a.loc).Router(callback),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("http shutdown: %v", err)
		}
	}()

	log.Printf("listening on %s", a.cfg.HTTPAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Println("shutting down.")
	return nil
}
