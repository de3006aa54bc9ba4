package workflow

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/JaimeStill/concierge/pkg/formatting"
	"github.com/JaimeStill/concierge/pkg/llm"
)

// topicFallbackRunes bounds the topic derived from the message when the
// classifier omits one.
const topicFallbackRunes = 50

// Verdict is the normalized output of a Classifier.
type Verdict struct {
	Classification Classification
	Confidence     float64
	Reasoning      string
	ExtractedTopic string
}

// Customer identifies who sent a message. It is context for the
// classifier, not input to be labelled.
type Customer struct {
	ID   string
	Name string
}

// Classifier assigns a label and confidence to a message.
// Implementations do not retry; the engine's Boundary owns that.
type Classifier interface {
	Classify(ctx context.Context, message string, customer Customer) (Verdict, error)
}

type classifierOutput struct {
	ClassifiedType string  `json:"classified_type" jsonschema:"enum=positive_feedback,enum=negative_feedback,enum=query"`
	Confidence     float64 `json:"confidence"`
	Reasoning      string  `json:"reasoning"`
	ExtractedTopic string  `json:"extracted_topic"`
}

var classifierSchema = llm.GenerateSchema[classifierOutput]()

type llmClassifier struct {
	client llm.Client
}

// NewClassifier returns a Classifier backed by a chat completion client
// with deterministic decoding and a strict JSON schema.
func NewClassifier(client llm.Client) Classifier {
	return &llmClassifier{client: client}
}

func (c *llmClassifier) Classify(ctx context.Context, message string, customer Customer) (Verdict, error) {
	resp, err := c.client.Complete(ctx, llm.Request{
		SystemPrompt: classifySystemPrompt,
		UserPrompt:   classifyUserPrompt(message, customer),
		SchemaName:   "classification",
		Schema:       classifierSchema,
		MaxTokens:    classifyMaxTokens,
		Temperature:  llm.Temp(0),
	})
	if err != nil {
		return Verdict{}, err
	}

	out, err := formatting.Parse[classifierOutput](resp.Content)
	if err != nil {
		return Verdict{}, fmt.Errorf("%w: %w", ErrClassification, err)
	}

	return normalizeVerdict(out, message), nil
}

func normalizeVerdict(out classifierOutput, message string) Verdict {
	topic := strings.TrimSpace(out.ExtractedTopic)
	if topic == "" {
		topic = truncateRunes(strings.TrimSpace(message), topicFallbackRunes)
	}

	return Verdict{
		Classification: ParseClassification(out.ClassifiedType),
		Confidence:     clampConfidence(out.Confidence),
		Reasoning:      strings.TrimSpace(out.Reasoning),
		ExtractedTopic: topic,
	}
}

func clampConfidence(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
