// Copyright (c) 2025-2026 MurmurAI
//
// Licensed under GPL-2.0 with Murmur Additional Terms.
// See LICENSE.md for details.
package internal_textservice

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/murmurai/api/recorder-api/config"
	"github.com/murmurai/pkg/commons"
	"github.com/murmurai/pkg/utils"
)

// Prompt inputs are truncated so a long session never blows the context
// window; the head of the transcript carries the most signal for naming.
const (
	maxTitleInput    = 2000
	maxSummaryInput  = 4000
	maxQuestionInput = 6000
	maxTitleTokens   = 12
	answerNotFound   = "Not found in transcript."
	defaultTitle     = "Voice Recording"
	maxKeywords      = 8
)

// Summary is the post-session digest: a short overview plus extracted action
// items.
type Summary struct {
	Overview    string   `json:"summary"`
	ActionItems []string `json:"todos"`
}

// TextService derives display text from a finished transcript. Every method
// degrades gracefully; callers always get something renderable.
type TextService interface {
	GenerateTitle(ctx context.Context, transcript string) string
	Summarize(ctx context.Context, transcript string) Summary
	Keywords(ctx context.Context, transcript string) []string
	Answer(ctx context.Context, transcript, question string) string
	Translate(ctx context.Context, text, targetLanguage string) string
}

type openaiTextService struct {
	logger commons.Logger
	client openai.Client
	model  string
}

func NewTextService(logger commons.Logger, cfg config.TranscriptionConfig) TextService {
	return &openaiTextService{
		logger: logger,
		client: openai.NewClient(option.WithAPIKey(cfg.ApiKey)),
		model:  cfg.ChatModel,
	}
}

func (s *openaiTextService) complete(ctx context.Context, system, user string, maxTokens int64) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	}
	if maxTokens > 0 {
		params.MaxTokens = openai.Int(maxTokens)
	}
	resp, err := s.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// GenerateTitle produces a 2-3 word recording title from the transcript
// head. Falls back to the transcript's first words so a recording never
// shows up nameless.
func (s *openaiTextService) GenerateTitle(ctx context.Context, transcript string) string {
	if utils.IsEmpty(transcript) {
		return defaultTitle
	}
	title, err := s.complete(ctx,
		"You generate very short titles. Reply with a 2-3 word title for the transcript, nothing else. No quotes, no punctuation.",
		utils.Truncate(transcript, maxTitleInput),
		maxTitleTokens,
	)
	if err != nil || utils.IsEmpty(title) {
		s.logger.Warnf("textservice: title generation failed, using transcript prefix: %v", err)
		return fallbackTitle(transcript)
	}
	return strings.Trim(title, `"'`)
}

func fallbackTitle(transcript string) string {
	words := strings.Fields(transcript)
	if len(words) > 4 {
		words = words[:4]
	}
	if len(words) == 0 {
		return defaultTitle
	}
	return strings.Join(words, " ")
}

// Summarize returns the overview and action items extracted from the
// transcript. On any failure the overview degrades to a transcript prefix.
func (s *openaiTextService) Summarize(ctx context.Context, transcript string) Summary {
	if utils.IsEmpty(transcript) {
		return Summary{}
	}
	raw, err := s.complete(ctx,
		`Summarize the transcript. Respond with strict JSON only, matching: {"summary": "<2-3 sentence summary>", "todos": ["<action item>", ...]}. Use an empty todos array when there are no action items.`,
		utils.Truncate(transcript, maxSummaryInput),
		0,
	)
	if err == nil {
		var summary Summary
		if jerr := json.Unmarshal([]byte(stripFence(raw)), &summary); jerr == nil && !utils.IsEmpty(summary.Overview) {
			return summary
		}
	}
	s.logger.Warnf("textservice: summary generation failed, using transcript prefix: %v", err)
	return Summary{Overview: utils.Truncate(transcript, 200)}
}

// Keywords extracts up to eight topic keywords. The service is asked for a
// JSON array; a comma-separated reply is accepted as a fallback.
func (s *openaiTextService) Keywords(ctx context.Context, transcript string) []string {
	if utils.IsEmpty(transcript) {
		return nil
	}
	raw, err := s.complete(ctx,
		`Extract up to 8 topic keywords from the transcript. Respond with strict JSON only: ["keyword", ...]. Lowercase, single words or short phrases.`,
		utils.Truncate(transcript, maxSummaryInput),
		0,
	)
	if err != nil {
		s.logger.Warnf("textservice: keyword extraction failed: %v", err)
		return nil
	}
	raw = stripFence(raw)

	var keywords []string
	if jerr := json.Unmarshal([]byte(raw), &keywords); jerr != nil {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				keywords = append(keywords, part)
			}
		}
	}
	if len(keywords) > maxKeywords {
		keywords = keywords[:maxKeywords]
	}
	return keywords
}

// Answer responds to a question strictly from transcript content.
func (s *openaiTextService) Answer(ctx context.Context, transcript, question string) string {
	if utils.IsEmpty(transcript) || utils.IsEmpty(question) {
		return answerNotFound
	}
	answer, err := s.complete(ctx,
		fmt.Sprintf("Answer the question using only the transcript below. If the transcript does not contain the answer, reply exactly %q. Answer in at most 2 sentences.\n\nTranscript:\n%s",
			answerNotFound, utils.Truncate(transcript, maxQuestionInput)),
		question,
		0,
	)
	if err != nil || utils.IsEmpty(answer) {
		s.logger.Warnf("textservice: question answering failed: %v", err)
		return answerNotFound
	}
	return answer
}

// Translate renders text in targetLanguage, returning the input untouched
// when translation is disabled or fails.
func (s *openaiTextService) Translate(ctx context.Context, text, targetLanguage string) string {
	if utils.IsEmpty(text) || utils.IsEmpty(targetLanguage) || targetLanguage == "auto" {
		return text
	}
	translated, err := s.complete(ctx,
		fmt.Sprintf("Translate the user's text to %s. Reply with the translation only.", targetLanguage),
		text,
		0,
	)
	if err != nil || utils.IsEmpty(translated) {
		s.logger.Warnf("textservice: translation to %s failed, returning original: %v", targetLanguage, err)
		return text
	}
	return translated
}

// stripFence removes a markdown code fence some models wrap JSON in.
func stripFence(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSuffix(raw, "```")
	}
	return strings.TrimSpace(raw)
}
