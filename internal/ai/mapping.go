package ai

import (
	"github.com/ljankila/lingoscene/internal/models"
	"github.com/sashabaranov/go-openai"
)

// chatLog maps a message log into the chat-completion turn format.
//
// With a speaker, the log is seen from that agent's point of view: the
// agent's own messages become assistant turns with unprefixed content,
// everything else becomes user turns prefixed with the sender name.
// Without a speaker (scope-level operations), the literal sender "user"
// becomes a user turn labeled "USER:" and every other sender becomes an
// assistant turn prefixed with its name.
func chatLog(log []models.Message, speaker string) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(log))
	if speaker != "" {
		for _, m := range log {
			if m.Sender == speaker {
				out = append(out, openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleAssistant,
					Content: m.Content,
				})
			} else {
				out = append(out, openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleUser,
					Content: m.Sender + ": " + m.Content,
				})
			}
		}
		return out
	}
	for _, m := range log {
		if m.Sender == "user" {
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleUser,
				Content: "USER: " + m.Content,
			})
		} else {
			out = append(out, openai.ChatCompletionMessage{
				Role:    openai.ChatMessageRoleAssistant,
				Content: m.Sender + ": " + m.Content,
			})
		}
	}
	return out
}

// forceLastUser reassigns the final turn to the user role. DeepSeek
// rejects prompts ending in an assistant turn, so the mapped log is
// always closed out as if the user spoke last.
func forceLastUser(msgs []openai.ChatCompletionMessage) []openai.ChatCompletionMessage {
	if len(msgs) == 0 {
		return msgs
	}
	msgs[len(msgs)-1].Role = openai.ChatMessageRoleUser
	return msgs
}

// interweave reassigns roles as a strict user/assistant bounce starting
// at user. DeepSeek requires alternating roles; the original senders are
// still recoverable from the name prefixes in the content.
func interweave(msgs []openai.ChatCompletionMessage) []openai.ChatCompletionMessage {
	bounce := openai.ChatMessageRoleUser
	for i := range msgs {
		msgs[i].Role = bounce
		if bounce == openai.ChatMessageRoleUser {
			bounce = openai.ChatMessageRoleAssistant
		} else {
			bounce = openai.ChatMessageRoleUser
		}
	}
	return msgs
}
