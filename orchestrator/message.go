// Package orchestrator implements the search orchestration engine (C7):
// the streaming state machine that turns one query into a fan-in of ranked
// entries plus a confidence-gated summary, plus the snippet selector (C6)
// it depends on.
package orchestrator

import (
	"github.com/woutermans/searchllama/fetch"
	"github.com/woutermans/searchllama/vector"
)

// Entry is one streamed search result record (spec §3/§6). Not persisted.
type Entry struct {
	Score       float64 `json:"score"`
	URL         string  `json:"url"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
}

// Message is the wire shape shared by EntryMsg and SummaryMsg (spec §4.7,
// §6). An EntryMsg carries Results and an empty Summary; a SummaryMsg
// carries an empty Results and a non-empty Summary delta.
type Message struct {
	Results        []Entry `json:"results"`
	Summary        string  `json:"summary"`
	SummaryContext []int64 `json:"summary_context"`
}

// NewEntryMessage wraps entries as an EntryMsg.
func NewEntryMessage(entries []Entry) Message {
	return Message{Results: entries, Summary: ""}
}

// NewSummaryMessage wraps a summary delta (and optional updated opaque
// context) as a SummaryMsg.
func NewSummaryMessage(delta string, summaryContext []int64) Message {
	return Message{Results: []Entry{}, Summary: delta, SummaryContext: summaryContext}
}

// Snippet is a scored piece of evidence for the summarizer (spec §3).
// Mutable during recursive narrowing.
type Snippet struct {
	URL       string
	Title     string
	Text      string
	Embedding vector.Embedding
	Score     float64
	Images    []fetch.ImageRef
}
