package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/subsight/core/internal/models"
	"github.com/subsight/core/internal/modules/reddit"
)

// Extractor turns a fetched thread into a structured insight result with a
// single generation call.
type Extractor struct {
	gen Generator
}

func NewExtractor(gen Generator) *Extractor {
	return &Extractor{gen: gen}
}

// Extract sends the thread payload through the generator and parses the
// schema-constrained result. One attempt, no retry; the thread title is
// attached afterwards since the output schema does not carry it.
func (e *Extractor) Extract(ctx context.Context, thread *reddit.Thread) (*models.InsightResult, error) {
	payload, err := json.Marshal(thread)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	raw, err := e.gen.Generate(ctx, extractionSystemPrompt, buildExtractionPrompt(string(payload)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExtraction, err)
	}

	result, err := parseInsightJSON(raw)
	if err != nil {
		return nil, err
	}
	result.Title = thread.Title
	return result, nil
}

// parseInsightJSON decodes the model output, tolerating stray code fences or
// surrounding prose, then checks the four category arrays are all present.
func parseInsightJSON(raw string) (*models.InsightResult, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var result models.InsightResult
	if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
		start := strings.Index(cleaned, "{")
		end := strings.LastIndex(cleaned, "}")
		if start < 0 || end <= start {
			return nil, fmt.Errorf("%w: invalid JSON in model output", ErrExtraction)
		}
		if err := json.Unmarshal([]byte(cleaned[start:end+1]), &result); err != nil {
			return nil, fmt.Errorf("%w: invalid JSON in model output", ErrExtraction)
		}
	}

	if result.PainPoints == nil || result.BuyingIntent == nil ||
		result.RepeatedPatterns == nil || result.ExactUserQuotes == nil {
		return nil, fmt.Errorf("%w: output missing required categories", ErrExtraction)
	}
	return &result, nil
}
