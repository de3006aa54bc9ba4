package workflow

import (
	"fmt"
	"strings"
)

// Generation parameters per prompt.
const (
	classifyMaxTokens   = 200
	positiveMaxTokens   = 150
	negativeMaxTokens   = 200
	responseTemperature = 0.7
)

const classifySystemPrompt = `You are a customer support message classifier for a bank.

Classify the customer's message into exactly one category:
- positive_feedback: compliments, thanks, or satisfaction with a product or service.
- negative_feedback: complaints, problems, or dissatisfaction that need a support ticket.
- query: questions about the status of an existing support ticket.

Return a confidence between 0 and 1 reflecting how certain you are.
Keep reasoning to one sentence. The extracted topic is a short phrase
naming what the message is about.`

const positiveSystemPrompt = `You are a warm, professional customer support agent for a bank.
A customer has shared positive feedback. Thank them by name, acknowledge
what they appreciated, and keep the reply to 2-3 sentences. Do not add a
signature or closing line.`

const negativeSystemPrompt = `You are an empathetic, professional customer support agent for a bank.
A customer has reported a problem and a support ticket has been opened.
Apologize sincerely, acknowledge the issue, state the ticket number
exactly as given, and explain that the team will follow up. Keep the
reply to 3-4 sentences. Do not add a signature or closing line.`

func classifyUserPrompt(message string, customer Customer) string {
	return fmt.Sprintf("Customer: %s (id %s)\nCustomer message:\n%s", customer.Name, customer.ID, message)
}

func positiveUserPrompt(st *State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Customer name: %s\n", st.CustomerName)
	if st.ExtractedTopic != "" {
		fmt.Fprintf(&b, "Topic: %s\n", st.ExtractedTopic)
	}
	fmt.Fprintf(&b, "Message:\n%s", st.InputMessage)
	return b.String()
}

func negativeUserPrompt(st *State, ticketID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Customer name: %s\n", st.CustomerName)
	fmt.Fprintf(&b, "Ticket number: #%s\n", ticketID)
	if st.ExtractedTopic != "" {
		fmt.Fprintf(&b, "Topic: %s\n", st.ExtractedTopic)
	}
	fmt.Fprintf(&b, "Message:\n%s", st.InputMessage)
	return b.String()
}
