package storage

// ReviewEntry is one low-confidence turn captured for offline review.
type ReviewEntry struct {
	ID         int64    `json:"id"`
	UserID     string   `json:"user_id"`
	Text       string   `json:"text"`
	Intent     string   `json:"intent"`
	Confidence float64  `json:"confidence"`
	Issues     []string `json:"issues,omitempty"`
	CreatedAt  int64    `json:"created_at"`
}
