// Copyright (c) 2025-2026 MurmurAI
// Recording demo - captures a microphone session end to end and prints the
// assembled transcript when it stops.

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/murmurai/api/recorder-api/config"
	internal_assembler "github.com/murmurai/api/recorder-api/internal/assembler"
	internal_capture "github.com/murmurai/api/recorder-api/internal/audio/capture"
	internal_playback "github.com/murmurai/api/recorder-api/internal/audio/playback"
	internal_connectivity "github.com/murmurai/api/recorder-api/internal/connectivity"
	internal_reconciler "github.com/murmurai/api/recorder-api/internal/reconciler"
	internal_recorder "github.com/murmurai/api/recorder-api/internal/recorder"
	internal_store "github.com/murmurai/api/recorder-api/internal/store"
	internal_textservice "github.com/murmurai/api/recorder-api/internal/textservice"
	internal_transcription "github.com/murmurai/api/recorder-api/internal/transcription"
	"github.com/murmurai/pkg/commons"
	"github.com/murmurai/pkg/connectors"
)

func main() {
	duration := flag.Duration("duration", 45*time.Second, "How long to record")
	markdown := flag.Bool("markdown", false, "Export the result as markdown")
	play := flag.Bool("play", false, "Replay the captured segments after the session")
	flag.Parse()

	vConfig, err := config.InitConfig()
	if err != nil {
		log.Fatalf("config init failed: %v", err)
	}
	cfg, err := config.GetApplicationConfig(vConfig)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	logger, err := commons.NewApplicationLogger(
		commons.WithLevel(cfg.LogLevel),
		commons.WithLogFile(cfg.LogFile),
	)
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Fatalf("data dir unavailable: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	if err := run(ctx, cfg, logger, *duration, *markdown, *play, sigChan); err != nil {
		log.Fatalf("recording session failed: %v", err)
	}
}

func run(
	ctx context.Context,
	cfg *config.AppConfig,
	logger commons.Logger,
	duration time.Duration,
	markdown bool,
	play bool,
	sigChan chan os.Signal,
) error {
	sqlite, err := connectors.NewSqliteConnector(logger, cfg.DataDir+"/recordings.db")
	if err != nil {
		return err
	}
	defer sqlite.Close()

	store, err := internal_store.NewStore(sqlite, logger)
	if err != nil {
		return err
	}

	monitor := internal_connectivity.NewMonitor(logger, cfg.ConnectivityConfig)
	monitor.Start(ctx)
	defer monitor.Stop()

	text := internal_textservice.NewTextService(logger, cfg.TranscriptionConfig)
	assembler := internal_assembler.NewAssembler(logger, store, text)
	worker := internal_transcription.NewWorker(
		logger,
		internal_transcription.NewRemoteTranscriber(logger, cfg.TranscriptionConfig),
		internal_transcription.NewWhisperRecognizer(logger, cfg.TranscriptionConfig),
		monitor,
		cfg.TranscriptionConfig,
	)
	reconciler := internal_reconciler.NewReconciler(logger, store, worker, assembler)
	monitor.Subscribe(reconciler.OnConnectivityChange)

	engine, err := internal_capture.NewEngine(logger, cfg.DataDir, cfg.MinFreeSpaceMB)
	if err != nil {
		return err
	}
	defer engine.Close()

	recorder := internal_recorder.NewRecorder(logger, engine, assembler, worker, cfg.SegmentDuration())

	recordingID, err := recorder.Start(ctx)
	if err != nil {
		return err
	}
	log.Printf("Recording %s for %v (Ctrl-C to stop early)...", recordingID, duration)

	timer := time.NewTimer(duration)
	defer timer.Stop()
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

recording:
	for {
		select {
		case <-timer.C:
			break recording
		case <-sigChan:
			log.Println("Interrupted, stopping...")
			break recording
		case <-ticker.C:
			log.Printf("level=%.2f state=%s", recorder.Level(), recorder.State())
		}
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := recorder.Stop(stopCtx); err != nil {
		return err
	}

	// Pick up anything that went to the offline queue during the session.
	if err := reconciler.Refresh(stopCtx); err != nil {
		logger.Warnf("queued segment sweep failed: %v", err)
	}

	exported, err := assembler.Export(stopCtx, recordingID, markdown)
	if err != nil {
		return err
	}
	fmt.Println(exported)

	if play {
		return replay(ctx, logger, store, recordingID)
	}
	return nil
}

// replay plays the session's segments back in order. Segments whose audio
// was removed by storage cleanup are reported and skipped.
func replay(ctx context.Context, logger commons.Logger, store internal_store.Store, recordingID string) error {
	recording, err := store.GetRecording(ctx, recordingID)
	if err != nil {
		return err
	}
	player := internal_playback.NewPlayer(logger)
	for _, segment := range recording.SortedSegments() {
		log.Printf("Playing segment at %.0fs...", segment.StartOffset)
		if err := player.PlaySegment(ctx, segment.FilePath); err != nil {
			if errors.Is(err, internal_playback.ErrAudioNotFound) {
				log.Printf("No audio on disk for segment %s, skipping", segment.Id)
				continue
			}
			return err
		}
	}
	return nil
}
