package models

import "time"

// Project is a persisted, named container that conversations and files
// graduate into.
type Project struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	Messages    []Message `json:"messages,omitempty"`
	Summaries   []string  `json:"summaries,omitempty"`
}
