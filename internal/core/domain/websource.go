package domain

import "time"

// WebSource is a crawled legal website. Pages reference the source they
// came from; classification rules may be scoped to one source.
type WebSource struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	BaseURL   string    `json:"base_url"`
	Host      string    `json:"host"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
