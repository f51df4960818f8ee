package driving

import (
	"context"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
)

// CreateWebSourceRequest holds the fields for registering a crawled site
type CreateWebSourceRequest struct {
	Name    string `json:"name"`
	BaseURL string `json:"base_url"`
}

// UpdateWebSourceRequest holds optional web source updates
type UpdateWebSourceRequest struct {
	Name    *string `json:"name,omitempty"`
	BaseURL *string `json:"base_url,omitempty"`
	Enabled *bool   `json:"enabled,omitempty"`
}

// WebSourceService manages the registry of crawled legal websites
type WebSourceService interface {
	// Create registers a web source. The host is derived from the base URL
	// and must be unique.
	Create(ctx context.Context, req CreateWebSourceRequest) (*domain.WebSource, error)

	// Get retrieves a web source by ID
	Get(ctx context.Context, id string) (*domain.WebSource, error)

	// List retrieves all web sources
	List(ctx context.Context) ([]*domain.WebSource, error)

	// Update applies the non-nil fields of the request
	Update(ctx context.Context, id string, req UpdateWebSourceRequest) (*domain.WebSource, error)

	// Delete removes a web source. Pages keep their source ID.
	Delete(ctx context.Context, id string) error
}
