package workflow

import (
	"context"
	"fmt"
	"log/slog"
)

type positiveHandler struct {
	generate generateFunc
	logger   *slog.Logger
}

func (h *positiveHandler) handle(ctx context.Context, st *State) (Outcome, error) {
	out := Outcome{AgentName: AgentPositive}

	text, err := h.generate(ctx, Prompt{
		System:      positiveSystemPrompt,
		User:        positiveUserPrompt(st),
		MaxTokens:   positiveMaxTokens,
		Temperature: responseTemperature,
	})
	if err != nil {
		logGenerationFallback(ctx, h.logger, err)
		out.record(KindGeneration, err)
		text = positiveFallback(st.CustomerName)
	}

	out.Response = text
	return out, nil
}

func positiveFallback(name string) string {
	return fmt.Sprintf(
		"Thank you for your kind feedback, %s! We're delighted to hear about your positive experience, and we'll share your message with our team.",
		name,
	)
}
