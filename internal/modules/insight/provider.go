package insight

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	anthropicclient "github.com/anthropics/anthropic-sdk-go"
	anthropicoption "github.com/anthropics/anthropic-sdk-go/option"
	openaiclient "github.com/openai/openai-go/v2"
	openaioption "github.com/openai/openai-go/v2/option"
	"github.com/subsight/core/internal/config"
	jetai "go.jetify.com/ai"
	jetapi "go.jetify.com/ai/api"
	jetanthropic "go.jetify.com/ai/provider/anthropic"
	jetopenai "go.jetify.com/ai/provider/openai"
)

const generationMaxOutputTokens = 2048

// Generator produces schema-constrained JSON text from a prompt. It is the
// single injection point for the external generative model; tests substitute
// a deterministic stub.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, prompt string) (string, error)
}

// NewGenerator builds a Generator from the configured providers. Exactly one
// provider is selected: the extraction assignment's when set and enabled,
// else the first enabled one.
func NewGenerator(cfg config.AIConfig) (Generator, error) {
	provider := selectProvider(cfg)
	if provider == nil {
		return nil, errors.New("no enabled AI provider configured")
	}

	if isOpenAICompatibleProviderType(provider.Type) || isOpenRouterProviderType(provider.Type) {
		return newChatCompletionsGenerator(provider), nil
	}

	model, err := buildLanguageModel(provider)
	if err != nil {
		return nil, err
	}
	return &modelGenerator{model: model}, nil
}

func selectProvider(cfg config.AIConfig) *config.AIProvider {
	var providerID, overrideModel string
	if cfg.ExtractionModel != nil {
		providerID = strings.TrimSpace(cfg.ExtractionModel.ProviderID)
		overrideModel = strings.TrimSpace(cfg.ExtractionModel.Model)
	}

	pick := func(provider config.AIProvider) *config.AIProvider {
		selected := provider
		if overrideModel != "" {
			selected.DefaultModel = overrideModel
		}
		return &selected
	}

	if providerID != "" {
		for _, provider := range cfg.Providers {
			if provider.Enabled && strings.TrimSpace(provider.ID) == providerID {
				return pick(provider)
			}
		}
	}
	for _, provider := range cfg.Providers {
		if provider.Enabled {
			return pick(provider)
		}
	}
	return nil
}

func normalizeProviderType(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	t = strings.ReplaceAll(t, "_", "-")
	t = strings.ReplaceAll(t, " ", "")
	return t
}

func isOpenAICompatibleProviderType(raw string) bool {
	t := normalizeProviderType(raw)
	return t == "openai-compatible" || t == "openaicompatible"
}

func isAnthropicProviderType(raw string) bool {
	return normalizeProviderType(raw) == "anthropic"
}

func isOpenRouterProviderType(raw string) bool {
	return normalizeProviderType(raw) == "openrouter"
}

// modelGenerator drives a jetify language model wrapping the OpenAI or
// Anthropic SDK client. Single attempt; SDK retries are disabled.
type modelGenerator struct {
	model jetapi.LanguageModel
}

func (g *modelGenerator) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	messages := make([]jetapi.Message, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, &jetapi.SystemMessage{Content: systemPrompt})
	}
	messages = append(messages, &jetapi.UserMessage{Content: jetapi.ContentFromText(prompt)})

	resp, err := jetai.GenerateText(
		ctx,
		messages,
		jetai.WithModel(g.model),
		jetai.WithMaxOutputTokens(generationMaxOutputTokens),
	)
	if err != nil {
		return "", err
	}
	return extractTextFromResponse(resp)
}

func extractTextFromResponse(resp *jetapi.Response) (string, error) {
	if resp == nil {
		return "", errors.New("empty response from AI")
	}

	var full strings.Builder
	for _, block := range resp.Content {
		textBlock, ok := block.(*jetapi.TextBlock)
		if !ok || textBlock.Text == "" {
			continue
		}
		full.WriteString(textBlock.Text)
	}

	text := full.String()
	if strings.TrimSpace(text) == "" {
		return "", errors.New("empty response from AI")
	}
	return text, nil
}

func buildLanguageModel(provider *config.AIProvider) (jetapi.LanguageModel, error) {
	apiKey := strings.TrimSpace(provider.APIKey)
	if apiKey == "" {
		return nil, errors.New("AI provider api key is empty")
	}

	modelID := strings.TrimSpace(provider.DefaultModel)
	endpoint := strings.TrimSpace(provider.Endpoint)

	if isAnthropicProviderType(provider.Type) {
		if modelID == "" {
			modelID = "claude-haiku-4-5-20251001"
		}
		opts := []anthropicoption.RequestOption{
			anthropicoption.WithAPIKey(apiKey),
			anthropicoption.WithMaxRetries(0),
		}
		if endpoint != "" {
			opts = append(opts, anthropicoption.WithBaseURL(strings.TrimRight(endpoint, "/")))
		}
		client := anthropicclient.NewClient(opts...)
		return jetanthropic.NewLanguageModel(modelID, jetanthropic.WithClient(client)), nil
	}

	if modelID == "" {
		modelID = "gpt-4o-mini"
	}
	opts := []openaioption.RequestOption{
		openaioption.WithAPIKey(apiKey),
		openaioption.WithMaxRetries(0),
	}
	if normalized := normalizeOpenAIBaseURL(endpoint); normalized != "" {
		opts = append(opts, openaioption.WithBaseURL(normalized))
	}
	client := openaiclient.NewClient(opts...)
	return jetopenai.NewLanguageModel(modelID, jetopenai.WithClient(client)), nil
}

// chatCompletionsGenerator talks to an OpenAI-compatible endpoint directly,
// carrying the strict output schema as a response_format constraint.
type chatCompletionsGenerator struct {
	endpoint string
	apiKey   string
	model    string
	http     *http.Client
}

func newChatCompletionsGenerator(provider *config.AIProvider) *chatCompletionsGenerator {
	model := strings.TrimSpace(provider.DefaultModel)
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &chatCompletionsGenerator{
		endpoint: normalizeChatCompletionsEndpoint(provider.Endpoint, provider.Type),
		apiKey:   strings.TrimSpace(provider.APIKey),
		model:    model,
		http:     &http.Client{Timeout: 60 * time.Second},
	}
}

func (g *chatCompletionsGenerator) Generate(ctx context.Context, systemPrompt, prompt string) (string, error) {
	if g.apiKey == "" {
		return "", errors.New("AI provider api key is empty")
	}

	messages := make([]map[string]string, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, map[string]string{"role": "system", "content": systemPrompt})
	}
	messages = append(messages, map[string]string{"role": "user", "content": prompt})

	body, _ := json.Marshal(map[string]interface{}{
		"model":      g.model,
		"messages":   messages,
		"max_tokens": generationMaxOutputTokens,
		"response_format": map[string]interface{}{
			"type": "json_schema",
			"json_schema": map[string]interface{}{
				"name":   "discussion_insights",
				"strict": true,
				"schema": json.RawMessage(extractionSchemaJSON),
			},
		},
	})

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return "", fmt.Errorf("chat completions error: %s", strings.TrimSpace(string(respBody)))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", err
	}
	if result.Error != nil && strings.TrimSpace(result.Error.Message) != "" {
		return "", fmt.Errorf("chat completions error: %s", result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return "", errors.New("empty response from AI")
	}
	return result.Choices[0].Message.Content, nil
}

func normalizeChatCompletionsEndpoint(raw, providerType string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		if isOpenRouterProviderType(providerType) {
			return "https://openrouter.ai/api/v1/chat/completions"
		}
		return "https://api.openai.com/v1/chat/completions"
	}
	base = strings.TrimRight(base, "/")
	if strings.HasSuffix(base, "/chat/completions") {
		return base
	}
	// OpenRouter serves completions under /api/v1, not /v1.
	if isOpenRouterProviderType(providerType) {
		switch {
		case strings.HasSuffix(base, "/v1"):
		case strings.HasSuffix(base, "/api"):
			base += "/v1"
		default:
			base += "/api/v1"
		}
		return base + "/chat/completions"
	}
	if !strings.HasSuffix(base, "/v1") {
		base += "/v1"
	}
	return base + "/chat/completions"
}

func normalizeOpenAIBaseURL(raw string) string {
	base := strings.TrimSpace(raw)
	if base == "" {
		return ""
	}
	parsed, err := neturl.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return strings.TrimRight(base, "/")
	}

	path := strings.TrimRight(parsed.Path, "/")
	if !strings.HasSuffix(path, "/v1") {
		if path == "" {
			path = "/v1"
		} else {
			path += "/v1"
		}
	}
	parsed.Path = path
	return strings.TrimRight(parsed.String(), "/")
}
