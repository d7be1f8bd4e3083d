package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiqa-platform/helpdesk-backend/internal/model"
)

func newTestAnalyzer() *Analyzer {
	return New([]string{"решен", "закрыт"}, "Гость")
}

func ts(sec int) time.Time {
	return time.Date(2024, 3, 1, 12, 0, sec, 0, time.UTC)
}

func TestSummarizeEmptyConversation(t *testing.T) {
	a := newTestAnalyzer()

	summary := a.Summarize(&model.Conversation{ChatID: "chat42"})

	assert.Equal(t, "chat42", summary.ChatID)
	assert.Nil(t, summary.FirstMessageAt)
	assert.Nil(t, summary.LastMessageAt)
	assert.False(t, summary.Resolved)
	assert.Empty(t, summary.ParticipantIDs)
	assert.NotNil(t, summary.ParticipantIDs)
	assert.Empty(t, summary.Dialogue)
	assert.NotNil(t, summary.Dialogue)
}

func TestSummarizeTimestampBounds(t *testing.T) {
	a := newTestAnalyzer()

	// Deliberately out of order; the summary must reflect min and max.
	conv := &model.Conversation{
		ChatID: "chat1",
		Messages: []model.Message{
			{ID: 2, AuthorID: 5, Timestamp: ts(30), Text: "second"},
			{ID: 3, AuthorID: 5, Timestamp: ts(45), Text: "third"},
			{ID: 1, AuthorID: 5, Timestamp: ts(10), Text: "first"},
		},
	}

	summary := a.Summarize(conv)

	require.NotNil(t, summary.FirstMessageAt)
	require.NotNil(t, summary.LastMessageAt)
	assert.Equal(t, ts(10), *summary.FirstMessageAt)
	assert.Equal(t, ts(45), *summary.LastMessageAt)
}

func TestSummarizeParticipants(t *testing.T) {
	a := newTestAnalyzer()

	conv := &model.Conversation{
		ChatID: "chat1",
		Messages: []model.Message{
			{ID: 1, AuthorID: 0, Timestamp: ts(1), Text: "session started"},
			{ID: 2, AuthorID: 9, Timestamp: ts(2), Text: "hello"},
			{ID: 3, AuthorID: 7, Timestamp: ts(3), Text: "hi there"},
			{ID: 4, AuthorID: 7, Timestamp: ts(4), Text: "how can I help"},
			{ID: 5, AuthorID: 3, Timestamp: ts(5), Text: "me too"},
		},
		Participants: []model.Participant{
			{ID: 9, Name: "Гость"},
			{ID: 7, Name: "Anna"},
			{ID: 3, Name: "Boris"},
		},
	}

	summary := a.Summarize(conv)

	// System author 0 and the guest are excluded; the rest are deduplicated
	// and sorted.
	assert.Equal(t, []int{3, 7}, summary.ParticipantIDs)
}

func TestSummarizeResolution(t *testing.T) {
	tests := []struct {
		name     string
		lastText string
		resolved bool
	}{
		{"keyword present", "Вопрос решен, спасибо", true},
		{"second keyword present", "диалог закрыт", true},
		{"keyword case-insensitive", "РЕШЕН", true},
		{"no keyword", "спасибо за помощь", false},
		{"keyword only in earlier message", "ещё вопрос", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAnalyzer()
			conv := &model.Conversation{
				ChatID: "chat1",
				Messages: []model.Message{
					{ID: 1, AuthorID: 7, Timestamp: ts(1), Text: "решен"},
					{ID: 2, AuthorID: 7, Timestamp: ts(2), Text: tt.lastText},
				},
			}

			summary := a.Summarize(conv)
			assert.Equal(t, tt.resolved, summary.Resolved)
		})
	}
}

func TestSummarizeResolutionUsesChronologicalLast(t *testing.T) {
	a := newTestAnalyzer()

	// The resolving message arrives out of order but is chronologically last.
	conv := &model.Conversation{
		ChatID: "chat1",
		Messages: []model.Message{
			{ID: 2, AuthorID: 7, Timestamp: ts(20), Text: "закрыт"},
			{ID: 1, AuthorID: 7, Timestamp: ts(10), Text: "hello"},
		},
	}

	summary := a.Summarize(conv)
	assert.True(t, summary.Resolved)
}

func TestSummarizeDialogue(t *testing.T) {
	a := newTestAnalyzer()

	conv := &model.Conversation{
		ChatID: "chat1",
		Messages: []model.Message{
			{ID: 1, AuthorID: 7, Timestamp: ts(1), Text: "hello"},
			{ID: 2, AuthorID: 9, Timestamp: ts(2), Text: "ok"},
			{ID: 3, AuthorID: 9, Timestamp: ts(3), Text: "ok"},
		},
	}

	summary := a.Summarize(conv)

	// Duplicate texts collapse to the latest timestamp.
	require.Len(t, summary.Dialogue, 2)
	assert.Equal(t, ts(1), summary.Dialogue["hello"])
	assert.Equal(t, ts(3), summary.Dialogue["ok"])
}

func TestSummarizeDoesNotMutateInput(t *testing.T) {
	a := newTestAnalyzer()

	conv := &model.Conversation{
		ChatID: "chat1",
		Messages: []model.Message{
			{ID: 2, AuthorID: 7, Timestamp: ts(20), Text: "b"},
			{ID: 1, AuthorID: 7, Timestamp: ts(10), Text: "a"},
		},
	}

	a.Summarize(conv)

	assert.Equal(t, int64(2), conv.Messages[0].ID)
	assert.Equal(t, int64(1), conv.Messages[1].ID)
}
