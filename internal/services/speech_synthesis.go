package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/chalkboard-backend/internal/logger"
)

// SpeechSynthesisService turns narration text into audio bytes via an
// OpenAI-compatible speech endpoint. Failures are per-chunk and the
// assembler degrades to a missing audio reference; nothing here is
// fatal to a generation run.
type SpeechSynthesisService interface {
	SynthesizeNarration(ctx context.Context, text string) ([]byte, error)
}

type speechSynthesisService struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	model      string
	voice      string
	httpClient *http.Client

	maxRetries int
}

func NewSpeechSynthesisService(log *logger.Logger) (SpeechSynthesisService, error) {
	apiKey := strings.TrimSpace(os.Getenv("TTS_API_KEY"))
	if apiKey == "" {
		apiKey = strings.TrimSpace(os.Getenv("OPENAI_API_KEY"))
	}
	if apiKey == "" {
		return nil, fmt.Errorf("missing TTS_API_KEY (or OPENAI_API_KEY)")
	}

	baseURL := os.Getenv("TTS_BASE_URL")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	model := os.Getenv("TTS_MODEL")
	if model == "" {
		model = "gpt-4o-mini-tts"
	}
	voice := os.Getenv("TTS_VOICE")
	if voice == "" {
		voice = "alloy"
	}

	timeoutSec := 120
	if v := os.Getenv("TTS_TIMEOUT_SECONDS"); v != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && parsed > 0 {
			timeoutSec = parsed
		}
	}

	return &speechSynthesisService{
		log:        log.With("service", "SpeechSynthesisService"),
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		voice:      voice,
		httpClient: &http.Client{Timeout: time.Duration(timeoutSec) * time.Second},
		maxRetries: 2,
	}, nil
}

type speechRequest struct {
	Model          string `json:"model"`
	Voice          string `json:"voice"`
	Input          string `json:"input"`
	ResponseFormat string `json:"response_format,omitempty"`
}

func (s *speechSynthesisService) SynthesizeNarration(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty narration text")
	}

	body, err := json.Marshal(speechRequest{
		Model:          s.model,
		Voice:          s.voice,
		Input:          text,
		ResponseFormat: "mp3",
	})
	if err != nil {
		return nil, err
	}

	backoff := 1 * time.Second
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		audio, err := s.doOnce(ctx, body)
		if err == nil {
			return audio, nil
		}
		lastErr = err
		if !isRetryableErr(err) || attempt == s.maxRetries {
			return nil, err
		}

		sleepFor := jitterSleep(backoff)
		s.log.Warn("Speech synthesis retrying",
			"attempt", attempt+1,
			"max_retries", s.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		time.Sleep(sleepFor)
		backoff *= 2
	}
	return nil, lastErr
}

func (s *speechSynthesisService) doOnce(ctx context.Context, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/audio/speech", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &upstreamHTTPError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty audio payload")
	}
	return raw, nil
}
