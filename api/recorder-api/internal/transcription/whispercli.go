// Copyright (c) 2025-2026 MurmurAI
//
// Licensed under GPL-2.0 with Murmur Additional Terms.
// See LICENSE.md for details.
package internal_transcription

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"regexp"
	"strings"

	"github.com/murmurai/api/recorder-api/config"
	"github.com/murmurai/pkg/commons"
)

// timestampPrefix matches whisper-cli's "[00:00:00.000 --> 00:00:05.000]"
// line prefixes.
var timestampPrefix = regexp.MustCompile(`^\[[0-9:.]+\s*-->\s*[0-9:.]+\]\s*`)

// whisperRecognizer shells out to a local whisper-cli binary. It is the
// fallback of last resort once remote retries are exhausted.
type whisperRecognizer struct {
	logger commons.Logger
	binary string
	model  string
}

func NewWhisperRecognizer(logger commons.Logger, cfg config.TranscriptionConfig) Recognizer {
	return &whisperRecognizer{
		logger: logger,
		binary: cfg.FallbackBinary,
		model:  cfg.FallbackModel,
	}
}

func (r *whisperRecognizer) Available() bool {
	if r.binary == "" {
		return false
	}
	if _, err := exec.LookPath(r.binary); err == nil {
		return true
	}
	_, err := os.Stat(r.binary)
	return err == nil
}

func (r *whisperRecognizer) Recognize(ctx context.Context, audioPath string) (string, error) {
	args := []string{"-f", audioPath, "-nt"}
	if r.model != "" {
		args = append(args, "-m", r.model)
	}
	cmd := exec.CommandContext(ctx, r.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debugf("transcription: running fallback recognizer %s on %s", r.binary, audioPath)
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "local recognizer failed"
		}
		return "", newError(FailureLocalRecognition, msg, err)
	}

	var lines []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(timestampPrefix.ReplaceAllString(line, ""))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, " "), nil
}
