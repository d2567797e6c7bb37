package llm

import (
	"fmt"
	"os"
	"strings"
)

// excerptLimit bounds how much of a reply is quoted back into a prompt.
const excerptLimit = 500

// systemPromptTemplate defines the agent persona. %s is the agent name.
const systemPromptTemplate = `You are %[1]s, a friendly conversation agent managing email correspondence with a new contact. Your goal is to initiate and maintain a back-and-forth conversation that builds rapport.

Persona & Style: Write in a friendly, smart-casual, conversational tone. Emails must be easy to read and designed for a reply.

Initial Email: Start with a warm greeting, introduce yourself as %[1]s, and ask the contact about their interests and background. Do not provide recommendations; the goal is to encourage a reply.

Subsequent Emails: Continue the conversation with follow-up questions about their background, interests, and experiences. Keep responses engaging and question-based to prompt replies.

IMPORTANT: Output ONLY the final email body. Do not include reasoning, drafts, or internal thoughts.

MANDATORY FORMATTING RULES:
- Use **bold** for emphasis
- Use *italics* for subtle emphasis
- Use bullet points sparingly, each on a NEW LINE starting with "- "
- Use proper paragraphs with blank lines between them
- Ensure all lists are valid markdown so they convert to HTML correctly

Constraints: The entire response should be under 250 words and ready to send as-is.`

// initialPromptTemplate asks for the opening email. Args: name, email.
const initialPromptTemplate = "Generate only the body of the initial welcome email for new contact %s <%s>. " +
	"Do not include the subject line; the subject is set separately. Use a friendly, conversational tone. " +
	"You may use **bold** for emphasis where appropriate. " +
	"Use bullet points (starting with -) for any lists or questions to ensure proper formatting."

// followUpPrompts is the step-indexed prompt table. The key is the
// thread's current step when the reply arrives; args are the contact's
// email and a truncated excerpt of their reply.
var followUpPrompts = map[int]string{
	0: "The contact %s has replied to our initial welcome email. Their response was: '%s...' " +
		"Generate a follow-up email asking more about their background and interests, acknowledging their previous response.",
	1: "The contact %s has replied again. Their latest response was: '%s...' " +
		"Generate a more engaging follow-up email building on this conversation. The goal is to get to know them better.",
	2: "The contact %s replied with: '%s...' Based on the interests shown in this conversation, " +
		"generate a personalized response. Do not make recommendations; you are not aware of any upcoming plans.",
	3: "Generate a final message for %s based on their response: '%s...'. End the conversation politely " +
		"and encourage them to reach out anytime. IMPORTANT: MUST include this exact ending note at the end of the email: " +
		"'This concludes our conversation. Feel free to reach out anytime.'",
}

// initialPrompt builds the opening-email prompt.
func initialPrompt(name, email string) string {
	return fmt.Sprintf(initialPromptTemplate, name, email)
}

// followUpPrompt builds the prompt for a thread at the given step.
// Unknown steps get a generic follow-up request.
func followUpPrompt(step int, email, excerpt string) string {
	tmpl, ok := followUpPrompts[step]
	if !ok {
		return fmt.Sprintf("Generate a follow-up for %s", email)
	}
	return fmt.Sprintf(tmpl, email, truncate(excerpt, excerptLimit))
}

// truncate cuts s to at most n bytes, dropping any rune split at the cut.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "")
}

// SystemPrompt renders the persona prompt for an agent name, appending
// extra context from contextFile when it exists. A missing or unreadable
// context file is not an error; the base prompt is returned.
func SystemPrompt(agentName, contextFile string) string {
	prompt := fmt.Sprintf(systemPromptTemplate, agentName)
	if contextFile == "" {
		return prompt
	}
	data, err := os.ReadFile(contextFile)
	if err != nil {
		return prompt
	}
	return prompt + "\n\nAdditional context:\n" + string(data)
}
