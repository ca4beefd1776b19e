package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// summarizerSystemPrompt is the fixed system prompt for the summarizer
// task (spec §4.7 step 8).
const summarizerSystemPrompt = "Answer using the provided sources. Respond in the query's language. Use Markdown. Only use flag emoji."

// buildSummaryPrompt renders snippets and the question per spec §4.7 step 8:
// `From "<title>" ![](<url>):\n"<text>"`, joined by blank lines, then the
// local time (RFC 2822), then the user's original question.
func buildSummaryPrompt(snippets []Snippet, question string) string {
	var parts []string
	for _, s := range snippets {
		parts = append(parts, fmt.Sprintf("From \"%s\" ![](%s):\n\"%s\"", s.Title, s.URL, s.Text))
	}
	body := strings.Join(parts, "\n\n")
	return body + "\n\n" + time.Now().Format(time.RFC1123Z) + "\n\n" + question
}

// summarize implements spec §4.7 step 8: stream the generative model's
// response, emitting one SummaryMsg per fragment.
func (e *Engine) summarize(ctx context.Context, question string, snippets []Snippet, ch chan Message) {
	prompt := buildSummaryPrompt(snippets, question)

	fragments, errc := e.gen.GenerateStream(ctx, summarizerSystemPrompt, prompt, nil)
	for frag := range fragments {
		if !sendMessage(ctx, ch, NewSummaryMessage(frag.Text, frag.Context)) {
			return
		}
	}
	if err := <-errc; err != nil {
		e.log.Warn("summarizer stream ended with error", "error", err)
	}
}
