package workflow

import (
	"context"
	"fmt"
)

type escalationHandler struct{}

// handle never fails. It is also the terminal fallback for absorbed
// stage failures.
func (h *escalationHandler) handle(_ context.Context, st *State) (Outcome, error) {
	return escalationOutcome(st.CustomerName), nil
}

func escalationOutcome(name string) Outcome {
	greeting := "Thank you for reaching out."
	if name != "" {
		greeting = fmt.Sprintf("Thank you for reaching out, %s.", name)
	}

	return Outcome{
		AgentName:    AgentEscalation,
		ManualReview: true,
		Response: greeting + " We want to make sure your message gets the attention it deserves, " +
			"so it has been passed to a member of our support team who will review it and follow up with you shortly.",
	}
}
