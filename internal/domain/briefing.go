package domain

import (
	"encoding/json"
	"time"
)

const (
	briefingKeyPrefix = "briefing:"
	// keyTimeLayout mirrors JavaScript's Date.toISOString output.
	keyTimeLayout = "2006-01-02T15:04:05.000Z"
)

// MatchIndex maps a topic position to the positions of matching articles.
// Positions are local to one classification call.
type MatchIndex map[int][]int

// TopicBriefing groups the matched articles of one interest.
type TopicBriefing struct {
	Title    string       `json:"title"`
	Summary  string       `json:"summary"`
	Articles []ArticleRef `json:"articles"`
}

// Briefing is the per-user daily digest.
type Briefing struct {
	Date        string          `json:"date"`
	Topics      []TopicBriefing `json:"topics"`
	GeneratedAt time.Time       `json:"generatedAt"`
	UserID      string          `json:"userId"`
}

// MarshalJSON keeps topics an array even when nothing matched.
func (b Briefing) MarshalJSON() ([]byte, error) {
	type alias Briefing
	if b.Topics == nil {
		b.Topics = []TopicBriefing{}
	}
	return json.Marshal(alias(b))
}

// IsZero reports whether the briefing carries no data at all.
func (b Briefing) IsZero() bool {
	return b.Date == "" && len(b.Topics) == 0 && b.GeneratedAt.IsZero() && b.UserID == ""
}

// NewBriefing returns an empty briefing stamped at now.
func NewBriefing(userID string, now time.Time) Briefing {
	return Briefing{
		Date:        FormatBriefingDate(now),
		Topics:      []TopicBriefing{},
		GeneratedAt: now,
		UserID:      userID,
	}
}

// FormatBriefingDate renders t as a long date, e.g. "October 18, 2026".
func FormatBriefingDate(t time.Time) string {
	return t.Format("January 2, 2006")
}

// BriefingKey builds the storage key of a briefing generated at t.
func BriefingKey(email string, t time.Time) string {
	return briefingKeyPrefix + email + ":" + t.UTC().Format(keyTimeLayout)
}
