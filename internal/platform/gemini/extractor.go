package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/fennwald/triage-api/internal/config"
	"github.com/fennwald/triage-api/internal/extraction"
	"google.golang.org/genai"
)

// maxContextBytes bounds the formatted message blob sent to the model.
// When a batch exceeds it, the oldest lines are trimmed first.
const maxContextBytes = 16 * 1024

// maxBackoff caps the exponential retry delay.
const maxBackoff = 30 * time.Second

// responseSchema is the JSON shape the extraction prompt asks the model for.
type responseSchema struct {
	Tasks []taskSchema `json:"tasks"`
}

type taskSchema struct {
	Text             string  `json:"text"`
	SourceMessageIDs []int64 `json:"source_message_ids"`
}

// GeminiExtractor implements the extraction.Extractor interface using
// Google's Gemini API to extract actionable tasks from message batches.
type GeminiExtractor struct {
	logger *slog.Logger
	config config.LLMConfig

	// promptTemplate is the parsed template for creating prompts
	promptTemplate *template.Template

	// client is the Gemini API client for making requests
	client *genai.Client

	// model is the name of the Gemini model to use
	model string

	// generate performs one model call and returns the raw response text.
	// Swappable in tests.
	generate func(ctx context.Context, prompt string) (string, error)
}

// Ensure GeminiExtractor implements the extraction.Extractor interface
var _ extraction.Extractor = (*GeminiExtractor)(nil)

// NewGeminiExtractor creates a new GeminiExtractor with the provided
// dependencies, or an error if the configuration is invalid.
func NewGeminiExtractor(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*GeminiExtractor, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", extraction.ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", extraction.ErrInvalidConfig)
	}

	templateContent := defaultPromptTemplate
	if cfg.PromptTemplatePath != "" {
		raw, err := os.ReadFile(cfg.PromptTemplatePath)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read prompt template from %s: %v",
				extraction.ErrInvalidConfig, cfg.PromptTemplatePath, err)
		}
		templateContent = string(raw)
	}

	promptTemplate, err := template.New("extraction").Parse(templateContent)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse prompt template: %v",
			extraction.ErrInvalidConfig, err)
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v",
			extraction.ErrInvalidConfig, err)
	}

	e := &GeminiExtractor{
		logger:         logger.With("component", "gemini_extractor"),
		config:         cfg,
		promptTemplate: promptTemplate,
		client:         client,
		model:          cfg.ModelName,
	}
	e.generate = e.callModel

	return e, nil
}

// Extract submits the batch to the Gemini API and returns the extracted
// items. Transient failures are retried with exponential backoff; malformed
// or blocked responses fail immediately.
func (e *GeminiExtractor) Extract(ctx context.Context, req extraction.Request) ([]extraction.ExtractedItem, error) {
	if len(req.Messages) == 0 {
		return nil, extraction.ErrEmptyBatch
	}

	prompt, err := e.createPrompt(ctx, req)
	if err != nil {
		return nil, err
	}

	response, err := e.callWithRetry(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return e.parseResponse(ctx, response, req)
}

// createPrompt formats the batch into an attributed context blob and
// renders the prompt template around it.
func (e *GeminiExtractor) createPrompt(ctx context.Context, req extraction.Request) (string, error) {
	blob := formatMessagesContext(req.Messages)

	data := promptData{
		MessagesContext: blob,
	}

	e.logger.DebugContext(ctx, "generating extraction prompt",
		"conversation_id", req.ConversationID,
		"message_count", len(req.Messages),
		"context_bytes", len(blob))

	var promptBuffer bytes.Buffer
	if err := e.promptTemplate.Execute(&promptBuffer, data); err != nil {
		return "", fmt.Errorf("failed to execute prompt template: %w", err)
	}

	return promptBuffer.String(), nil
}

// formatMessagesContext renders one attributed line per message, ordered by
// timestamp, and trims the oldest lines when the blob exceeds
// maxContextBytes.
func formatMessagesContext(messages []extraction.SourceMessage) string {
	lines := make([]string, 0, len(messages))
	for _, m := range messages {
		lines = append(lines, fmt.Sprintf("[%d] %s %s: %s",
			m.ID,
			m.Timestamp.UTC().Format("2006-01-02 15:04"),
			m.Author,
			m.Text))
	}

	total := 0
	for _, l := range lines {
		total += len(l) + 1
	}

	start := 0
	for total > maxContextBytes && start < len(lines)-1 {
		total -= len(lines[start]) + 1
		start++
	}

	return strings.Join(lines[start:], "\n")
}

// callModel performs a single Gemini API call and returns the raw response
// text. Errors from this call are classified by callWithRetry.
func (e *GeminiExtractor) callModel(ctx context.Context, prompt string) (string, error) {
	resp, err := e.client.Models.GenerateContent(ctx, e.model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}

	return responseText(resp)
}

// responseText concatenates the text parts of the first candidate, rejecting
// nil, empty, and safety-blocked responses.
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil {
		return "", fmt.Errorf("%w: nil response", extraction.ErrInvalidResponse)
	}

	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", extraction.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]

	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: response blocked by safety filters", extraction.ErrContentBlocked)
	}

	if candidate.Content == nil {
		return "", fmt.Errorf("%w: empty content in response", extraction.ErrInvalidResponse)
	}

	var text strings.Builder
	for _, part := range candidate.Content.Parts {
		if part != nil {
			text.WriteString(part.Text)
		}
	}

	return text.String(), nil
}

// callWithRetry makes the model call with exponential backoff retry logic.
// It attempts the call up to MaxRetries+1 times, backing off with jitter
// between attempts for transient errors. Permanent errors (blocked content,
// unparseable responses) are returned immediately without retrying.
func (e *GeminiExtractor) callWithRetry(ctx context.Context, prompt string) (*responseSchema, error) {
	maxRetries := e.config.MaxRetries
	baseDelaySeconds := e.config.RetryDelaySeconds

	if maxRetries < 0 {
		e.logger.WarnContext(ctx, "invalid max retries value, using default", "max_retries", 2)
		maxRetries = 2
	}

	if baseDelaySeconds < 1 {
		baseDelaySeconds = 2
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		attemptNum := attempt + 1
		e.logger.InfoContext(ctx, "making extraction API call",
			"model", e.model,
			"attempt", attemptNum,
			"max_attempts", maxRetries+1)

		callCtx := ctx
		var cancel context.CancelFunc
		if e.config.RequestTimeoutSeconds > 0 {
			callCtx, cancel = context.WithTimeout(ctx, time.Duration(e.config.RequestTimeoutSeconds)*time.Second)
		}

		text, err := e.generate(callCtx, prompt)
		if cancel != nil {
			cancel()
		}

		if err == nil {
			var parsed responseSchema
			if jsonErr := json.Unmarshal([]byte(sanitizeModelOutput(text)), &parsed); jsonErr != nil {
				return nil, fmt.Errorf("%w: failed to parse JSON response: %v",
					extraction.ErrInvalidResponse, jsonErr)
			}
			e.logger.InfoContext(ctx, "extraction API call successful", "attempt", attemptNum)
			return &parsed, nil
		}

		// Permanent error classes fail without retry.
		if errors.Is(err, extraction.ErrInvalidResponse) || errors.Is(err, extraction.ErrContentBlocked) {
			e.logger.WarnContext(ctx, "permanent extraction error, not retrying", "error", err)
			return nil, err
		}

		// Everything else from the API boundary (timeouts, rate limits,
		// 5xx) is treated as transient.
		lastErr = err
		e.logger.ErrorContext(ctx, "extraction API call failed",
			"attempt", attemptNum,
			"error", err)

		if attempt >= maxRetries {
			break
		}

		// delay = baseDelay * 2^attempt * (0.5 + rand(0, 0.5)), capped
		backoffSeconds := float64(baseDelaySeconds) * math.Pow(2, float64(attempt))
		jitterFactor := 0.5 + rng.Float64()*0.5
		delay := time.Duration(backoffSeconds * jitterFactor * float64(time.Second))
		if delay > maxBackoff {
			delay = maxBackoff
		}

		e.logger.InfoContext(ctx, "retrying after delay",
			"attempt", attemptNum,
			"delay", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			e.logger.WarnContext(ctx, "extraction call cancelled during retry delay",
				"attempt", attemptNum,
				"ctx_err", ctx.Err())
			return nil, fmt.Errorf("%w: %v", extraction.ErrTransientFailure, ctx.Err())
		}
	}

	return nil, fmt.Errorf("%w: exceeded maximum retry attempts (%d): %v",
		extraction.ErrTransientFailure, maxRetries+1, lastErr)
}

// parseResponse converts a responseSchema into extraction items, validating
// each item against the request. Items whose source id list is empty
// inherit the full batch id set; ids outside the batch are dropped, and an
// item left with no valid ids is a malformed response.
func (e *GeminiExtractor) parseResponse(
	ctx context.Context,
	response *responseSchema,
	req extraction.Request,
) ([]extraction.ExtractedItem, error) {
	if response == nil {
		return nil, fmt.Errorf("%w: response is nil", extraction.ErrInvalidResponse)
	}

	batchIDs := make(map[int64]bool, len(req.Messages))
	allIDs := make([]int64, 0, len(req.Messages))
	for _, m := range req.Messages {
		batchIDs[m.ID] = true
		allIDs = append(allIDs, m.ID)
	}

	items := make([]extraction.ExtractedItem, 0, len(response.Tasks))
	for i, t := range response.Tasks {
		text := strings.TrimSpace(t.Text)
		if text == "" {
			return nil, fmt.Errorf("%w: task %d has empty text", extraction.ErrInvalidResponse, i)
		}

		ids := make([]int64, 0, len(t.SourceMessageIDs))
		for _, id := range t.SourceMessageIDs {
			if batchIDs[id] {
				ids = append(ids, id)
			}
		}

		if len(t.SourceMessageIDs) == 0 {
			// The model attributed nothing; fall back to the whole batch.
			ids = append(ids, allIDs...)
		} else if len(ids) == 0 {
			return nil, fmt.Errorf("%w: task %d references no message from the batch",
				extraction.ErrInvalidResponse, i)
		}

		items = append(items, extraction.ExtractedItem{
			Text:             text,
			SourceMessageIDs: ids,
		})
	}

	e.logger.InfoContext(ctx, "parsed extraction response",
		"conversation_id", req.ConversationID,
		"task_count", len(items))

	return items, nil
}

// sanitizeModelOutput strips markdown code fences the model sometimes wraps
// around JSON despite the prompt.
func sanitizeModelOutput(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	}
	return strings.TrimSpace(trimmed)
}
