package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/lesson-orchestrator/internal/config"
	"github.com/stemsi/lesson-orchestrator/internal/database"
	"github.com/stemsi/lesson-orchestrator/internal/logger"
	"github.com/stemsi/lesson-orchestrator/internal/narration"
	"github.com/stemsi/lesson-orchestrator/internal/playback"
	"github.com/stemsi/lesson-orchestrator/internal/session"
	"github.com/stemsi/lesson-orchestrator/internal/stream"
	"github.com/stemsi/lesson-orchestrator/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	if cfg.Token == "" {
		log.Fatal().Err(stream.ErrMissingCredential).Msg("LESSON_TOKEN is required")
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	// ─── Stream, Narrator, Player ──────────────────────────────────────
	client := stream.New(stream.Options{
		URL:       cfg.StreamURL,
		Token:     cfg.Token,
		SessionID: cfg.SessionID,
	}, log)

	narrator := narration.NewStreamNarrator(client, narration.PacedSink{
		BytesPerSecond: cfg.NarrationBytesPerSecond,
	}, log)
	go narrator.Start(runCtx)

	var player playback.Player
	if cfg.VideoBacked {
		player = playback.NewHeadlessPlayer(cfg.VideoDuration)
	}

	// ─── Transition Publisher (optional) ───────────────────────────────
	observers := []session.Observer{transitionLogger(log)}

	pubDone := make(chan struct{})
	pubCtx, pubCancel := context.WithCancel(context.Background())
	defer pubCancel()

	rdb, err := database.NewRedisClient(runCtx, cfg.RedisURL, log)
	switch {
	case errors.Is(err, database.ErrRedisDisabled):
		close(pubDone)
	case err != nil:
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	default:
		defer rdb.Close()
		publisher := worker.NewTransitionPublisher(rdb, log)
		observers = append(observers, publisher)
		go func() {
			defer close(pubDone)
			publisher.Start(pubCtx)
		}()
	}

	// ─── Session Controller ────────────────────────────────────────────
	ctrl := session.NewController(client, narrator, player, session.Options{
		SessionID:      client.SessionID(),
		VideoBacked:    cfg.VideoBacked,
		IntroNarration: cfg.IntroNarration,
		FeedbackDelay:  cfg.QuizFeedbackDelay,
		PollInterval:   cfg.PollInterval,
		PauseTolerance: cfg.PauseTolerance,
		Audio:          narrator,
		Observer:       fanOut(observers),
	}, log)

	// ─── Viewer Input ──────────────────────────────────────────────────
	go readViewer(bufio.NewScanner(os.Stdin), ctrl, os.Stdout)

	// A signal closes the session cleanly; the run is cut off if the
	// close does not finish in time.
	go func() {
		select {
		case <-runCtx.Done():
		case <-sigCtx.Done():
			log.Info().Msg("Closing session...")
			ctrl.Close()
			time.AfterFunc(2*time.Second, cancelRun)
		}
	}()

	log.Info().
		Str("session_id", client.SessionID()).
		Str("url", cfg.StreamURL).
		Bool("video_backed", cfg.VideoBacked).
		Msg("Starting lesson")

	ctrl.Start()
	runErr := ctrl.Run(runCtx)
	cancelRun()

	pubCancel()
	<-pubDone

	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		log.Fatal().Err(runErr).Msg("Lesson failed")
	}

	snap := ctrl.Snapshot()
	log.Info().
		Int("steps", snap.StepsSeen).
		Strs("acknowledged", ctrl.Ledger().Acknowledged.IDs()).
		Msg("Lesson ended")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}

func transitionLogger(log zerolog.Logger) session.Observer {
	log = logger.Component(log, "transitions")
	return session.ObserverFunc(func(t session.Transition) {
		log.Info().
			Str("from", string(t.From)).
			Str("to", string(t.To)).
			Str("step_id", t.StepID).
			Msg("Phase changed")
	})
}

func fanOut(observers []session.Observer) session.Observer {
	return session.ObserverFunc(func(t session.Transition) {
		for _, o := range observers {
			o.OnTransition(t)
		}
	})
}

const helpText = `commands:
  <n>          answer the current quiz question with option n (1-based)
  c            continue to the next step
  a            ask a question instead of continuing
  q <text>     send a question
  p / r        pause / resume the video
  s            show the current step
  x            close the session`

// readViewer turns stdin lines into viewer actions until input ends.
func readViewer(sc *bufio.Scanner, ctrl *session.Controller, out io.Writer) {
	fmt.Fprintln(out, helpText)
	for sc.Scan() {
		cmd, err := parseCommand(sc.Text())
		if err != nil {
			fmt.Fprintln(out, err)
			continue
		}
		switch cmd.kind {
		case cmdHelp:
			fmt.Fprintln(out, helpText)
			continue
		case cmdShow:
			printSnapshot(out, ctrl.Snapshot())
			continue
		}
		cmd.apply(ctrl)
	}
}
