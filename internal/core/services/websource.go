package services

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
	"github.com/qadhya-labs/qanun-core/internal/core/ports/driven"
	"github.com/qadhya-labs/qanun-core/internal/core/ports/driving"
)

// Ensure webSourceService implements WebSourceService
var _ driving.WebSourceService = (*webSourceService)(nil)

// webSourceService implements the WebSourceService interface
type webSourceService struct {
	sourceStore driven.WebSourceStore
}

// NewWebSourceService creates a new WebSourceService
func NewWebSourceService(sourceStore driven.WebSourceStore) driving.WebSourceService {
	return &webSourceService{
		sourceStore: sourceStore,
	}
}

// Create registers a web source (admin only)
func (s *webSourceService) Create(ctx context.Context, req driving.CreateWebSourceRequest) (*domain.WebSource, error) {
	name := strings.TrimSpace(req.Name)
	host, err := hostFromURL(req.BaseURL)
	if name == "" || err != nil {
		return nil, domain.ErrInvalidInput
	}

	// Host is the identity crawled pages resolve against
	existing, _ := s.sourceStore.GetByHost(ctx, host)
	if existing != nil {
		return nil, domain.ErrAlreadyExists
	}

	now := time.Now()
	source := &domain.WebSource{
		ID:        domain.GenerateID(),
		Name:      name,
		BaseURL:   strings.TrimSpace(req.BaseURL),
		Host:      host,
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.sourceStore.Save(ctx, source); err != nil {
		return nil, err
	}

	return source, nil
}

// Get retrieves a web source by ID
func (s *webSourceService) Get(ctx context.Context, id string) (*domain.WebSource, error) {
	return s.sourceStore.Get(ctx, id)
}

// List retrieves all web sources
func (s *webSourceService) List(ctx context.Context) ([]*domain.WebSource, error) {
	return s.sourceStore.List(ctx)
}

// Update applies the non-nil fields of the request (admin only)
func (s *webSourceService) Update(ctx context.Context, id string, req driving.UpdateWebSourceRequest) (*domain.WebSource, error) {
	source, err := s.sourceStore.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidInput
		}
		source.Name = name
	}

	if req.BaseURL != nil {
		host, err := hostFromURL(*req.BaseURL)
		if err != nil {
			return nil, domain.ErrInvalidInput
		}
		if host != source.Host {
			existing, _ := s.sourceStore.GetByHost(ctx, host)
			if existing != nil && existing.ID != id {
				return nil, domain.ErrAlreadyExists
			}
		}
		source.BaseURL = strings.TrimSpace(*req.BaseURL)
		source.Host = host
	}

	if req.Enabled != nil {
		source.Enabled = *req.Enabled
	}

	source.UpdatedAt = time.Now()

	if err := s.sourceStore.Save(ctx, source); err != nil {
		return nil, err
	}

	return source, nil
}

// Delete removes a web source (admin only)
func (s *webSourceService) Delete(ctx context.Context, id string) error {
	return s.sourceStore.Delete(ctx, id)
}

// hostFromURL extracts the lowercase host from a base URL
func hostFromURL(raw string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if parsed.Host == "" {
		return "", domain.ErrInvalidInput
	}
	return strings.ToLower(parsed.Host), nil
}
