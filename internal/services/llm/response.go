package llm

import "strings"

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type chatChoice struct {
	Message choiceMessage `json:"message"`
	// Some providers answer with the streaming shape even when stream=false.
	Delta        choiceMessage `json:"delta"`
	Text         string        `json:"text"`
	FinishReason string        `json:"finish_reason"`
}

type choiceMessage struct {
	Content string `json:"content"`
	Refusal string `json:"refusal"`
}

// text returns the first non-blank content across choices and shapes.
func (r chatCompletionResponse) text() string {
	for _, choice := range r.Choices {
		for _, candidate := range []string{choice.Message.Content, choice.Delta.Content, choice.Text} {
			if trimmed := strings.TrimSpace(candidate); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func (r chatCompletionResponse) finishReason() string {
	for _, choice := range r.Choices {
		if reason := strings.TrimSpace(choice.FinishReason); reason != "" {
			return reason
		}
	}
	return ""
}

func (r chatCompletionResponse) refusal() string {
	for _, choice := range r.Choices {
		for _, candidate := range []string{choice.Message.Refusal, choice.Delta.Refusal} {
			if trimmed := strings.TrimSpace(candidate); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

// StripCodeFence removes a surrounding markdown code fence and its language tag.
func StripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	body, ok := strings.CutPrefix(trimmed, "```")
	if !ok {
		return trimmed
	}
	if tag, rest, found := strings.Cut(body, "\n"); found && !strings.ContainsAny(strings.TrimSpace(tag), " \t") {
		body = rest
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

// snippet collapses whitespace and caps content for error messages.
func snippet(content string) string {
	clean := strings.Join(strings.Fields(content), " ")
	if clean == "" {
		return "<empty>"
	}
	const limit = 160
	if runes := []rune(clean); len(runes) > limit {
		return string(runes[:limit]) + "..."
	}
	return clean
}
