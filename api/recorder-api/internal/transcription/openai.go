// Copyright (c) 2025-2026 MurmurAI
//
// Licensed under GPL-2.0 with Murmur Additional Terms.
// See LICENSE.md for details.
package internal_transcription

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/murmurai/api/recorder-api/config"
	"github.com/murmurai/pkg/commons"
)

// remoteTranscriber posts segment audio to an OpenAI-compatible
// transcription endpoint as multipart form data and returns the plain-text
// body. Retrying is the worker's job, so resty's own retry machinery stays
// off.
type remoteTranscriber struct {
	logger   commons.Logger
	client   *resty.Client
	endpoint string
	model    string
}

func NewRemoteTranscriber(logger commons.Logger, cfg config.TranscriptionConfig) Transcriber {
	client := resty.New().
		SetTimeout(60 * time.Second).
		SetRetryCount(0).
		SetAuthToken(cfg.ApiKey)
	return &remoteTranscriber{
		logger:   logger,
		client:   client,
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
	}
}

// apiError mirrors the endpoint's error envelope.
type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (t *remoteTranscriber) Transcribe(ctx context.Context, audioPath, language string) (string, error) {
	audio, err := os.ReadFile(audioPath)
	if err != nil {
		return "", newError(FailureClientError, fmt.Sprintf("unable to read segment audio %s", audioPath), err)
	}

	form := map[string]string{
		"model":           t.model,
		"response_format": "text",
	}
	// "auto" leaves language detection to the service.
	if language != "" && language != "auto" {
		form["language"] = language
	}

	t.logger.Debugf("transcription: posting %s (%d bytes) to %s", filepath.Base(audioPath), len(audio), t.endpoint)
	resp, err := t.client.R().
		SetContext(ctx).
		SetFileReader("file", filepath.Base(audioPath), bytes.NewReader(audio)).
		SetFormData(form).
		Post(t.endpoint)
	if err != nil {
		return "", newError(FailureServerError, "transcription request failed", err)
	}

	switch code := resp.StatusCode(); {
	case code == http.StatusOK:
		return resp.String(), nil
	case code == http.StatusTooManyRequests:
		return "", newError(FailureRateLimited, "transcription rate limited", nil)
	case code >= 500:
		return "", newError(FailureServerError, fmt.Sprintf("transcription server error (status %d)", code), nil)
	case code >= 400:
		var parsed apiError
		if jerr := json.Unmarshal(resp.Body(), &parsed); jerr == nil && parsed.Error.Message != "" {
			return "", newError(FailureClientError, parsed.Error.Message, nil)
		}
		return "", newError(FailureClientError, fmt.Sprintf("transcription rejected (status %d)", code), nil)
	default:
		return "", newError(FailureMalformedResponse, fmt.Sprintf("unexpected transcription response (status %d)", code), nil)
	}
}
