package models

import "time"

// Entry is one logged cigarette. Entries are immutable once created; the
// only mutation is deletion.
type Entry struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	SmokedAt time.Time `json:"smoked_at"`
	Reason   *string   `json:"reason,omitempty"`
}

// ReasonText returns the reason or an empty string.
func (e Entry) ReasonText() string {
	if e.Reason == nil {
		return ""
	}
	return *e.Reason
}

// Reason is one of the suggested answers to "why did you smoke?".
type Reason struct {
	Title string
	Color string
}

// Reasons is the suggested reason list, in display order.
var Reasons = []Reason{
	{Title: "Stress", Color: "#FF6B6B"},
	{Title: "Boredom", Color: "#4ECDC4"},
	{Title: "Habit", Color: "#45B7D1"},
	{Title: "Socializing", Color: "#96CEB4"},
	{Title: "Concentration", Color: "#FFEAA7"},
	{Title: "Relaxation", Color: "#DDA0DD"},
	{Title: "Other", Color: "#A8A8A8"},
}
