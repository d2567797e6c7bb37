// Package llm generates conversational email bodies through an
// OpenAI-compatible chat-completions endpoint.
package llm

import "context"

// Generator produces email bodies in markdown. Implementations: Client
// (HTTP, production) and test stubs.
type Generator interface {
	// GenerateInitial produces the opening email body for a recipient.
	GenerateInitial(ctx context.Context, name, email string) (string, error)

	// GenerateFollowUp produces the follow-up body for a thread at the
	// given step, responding to the recipient's latest reply excerpt.
	GenerateFollowUp(ctx context.Context, step int, email, excerpt string) (string, error)
}
