// Package analyzer normalizes raw chat conversations into summaries used by
// the ticket reconciler.
package analyzer

import (
	"sort"
	"strings"
	"time"

	"github.com/aiqa-platform/helpdesk-backend/internal/model"
)

// systemAuthorID is the provider's sentinel identity for system messages.
const systemAuthorID = 0

// Analyzer derives conversation summaries. Classification is keyword-based
// and locale-specific; it is best-effort, not authoritative.
type Analyzer struct {
	// resolutionKeywords are lowercased substrings of the last message that
	// signal a resolved or closed conversation.
	resolutionKeywords []string
	// guestLabel is the display name the provider assigns to anonymous
	// visitors; such identities never count as participants.
	guestLabel string
}

// New creates an Analyzer with the given heuristics.
func New(resolutionKeywords []string, guestLabel string) *Analyzer {
	lowered := make([]string, len(resolutionKeywords))
	for i, kw := range resolutionKeywords {
		lowered[i] = strings.ToLower(kw)
	}
	return &Analyzer{
		resolutionKeywords: lowered,
		guestLabel:         guestLabel,
	}
}

// Summarize produces the normalized summary of a conversation. It is a pure
// function of its input: the conversation is not modified.
func (a *Analyzer) Summarize(conv *model.Conversation) *model.ConversationSummary {
	summary := &model.ConversationSummary{
		ChatID:         conv.ChatID,
		ParticipantIDs: []int{},
		Dialogue:       map[string]time.Time{},
	}
	if len(conv.Messages) == 0 {
		return summary
	}

	sorted := make([]model.Message, len(conv.Messages))
	copy(sorted, conv.Messages)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	first := sorted[0].Timestamp
	last := sorted[len(sorted)-1].Timestamp
	summary.FirstMessageAt = &first
	summary.LastMessageAt = &last

	guests := make(map[int]bool, len(conv.Participants))
	for _, p := range conv.Participants {
		if p.Name == a.guestLabel {
			guests[p.ID] = true
		}
	}

	seen := make(map[int]bool)
	for _, m := range sorted {
		if m.AuthorID == systemAuthorID || guests[m.AuthorID] {
			continue
		}
		if !seen[m.AuthorID] {
			seen[m.AuthorID] = true
			summary.ParticipantIDs = append(summary.ParticipantIDs, m.AuthorID)
		}
	}
	sort.Ints(summary.ParticipantIDs)

	lastText := strings.ToLower(sorted[len(sorted)-1].Text)
	for _, kw := range a.resolutionKeywords {
		if strings.Contains(lastText, kw) {
			summary.Resolved = true
			break
		}
	}

	// Duplicate texts collapse to the latest timestamp. Accepted lossy
	// projection; the full message list is not persisted.
	for _, m := range sorted {
		summary.Dialogue[m.Text] = m.Timestamp
	}

	return summary
}
