package citation

import (
	"net/url"
	"sort"
	"strings"
	"sync"

	"github.com/qadhya-labs/qanun-core/internal/core/domain"
	"github.com/qadhya-labs/qanun-core/internal/core/ports/driven"
)

// Verify interface compliance
var _ driven.CitationRegistry = (*Registry)(nil)

// Registry implements CitationRegistry with priority-based selection.
// When multiple normalisers claim a host, the highest priority one is used.
type Registry struct {
	mu          sync.RWMutex
	normalisers []driven.CitationNormaliser
}

// NewRegistry creates a new citation registry.
func NewRegistry() *Registry {
	return &Registry{
		normalisers: make([]driven.CitationNormaliser, 0),
	}
}

// Register registers a normaliser.
// Normalisers are stored and later selected by priority.
func (r *Registry) Register(normaliser driven.CitationNormaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.normalisers = append(r.normalisers, normaliser)
}

// Get retrieves the best-matching normaliser for a host.
// Returns nil if no normaliser claims the host.
// When multiple claim it, the highest priority normaliser is returned.
func (r *Registry) Get(host string) driven.CitationNormaliser {
	matches := r.GetAll(host)
	if len(matches) == 0 {
		return nil
	}
	return matches[0] // Already sorted by priority (highest first)
}

// GetAll retrieves all normalisers claiming a host, sorted by priority (highest first).
func (r *Registry) GetAll(host string) []driven.CitationNormaliser {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []driven.CitationNormaliser

	for _, n := range r.normalisers {
		if matchesHost(n.Hosts(), host) {
			matches = append(matches, n)
		}
	}

	// Sort by priority (highest first)
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Priority() > matches[j].Priority()
	})

	return matches
}

// List returns all registered hosts.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hostSet := make(map[string]struct{})
	for _, n := range r.normalisers {
		for _, h := range n.Hosts() {
			hostSet[h] = struct{}{}
		}
	}

	hosts := make([]string, 0, len(hostSet))
	for h := range hostSet {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}

// Normalise resolves the identity for a page using the best normaliser
// for the page's host. Pages no normaliser recognises get a zero identity.
func (r *Registry) Normalise(page *domain.Page) domain.DocumentIdentity {
	host := hostOf(page.URL)
	for _, n := range r.GetAll(host) {
		if identity := n.Normalise(page); !identity.IsZero() {
			return identity
		}
	}
	return domain.DocumentIdentity{}
}

// matchesHost checks if any of the claimed hosts match the given host.
// A bare "*" claims every host; a "www." prefix on the page host is ignored.
func matchesHost(hosts []string, host string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimPrefix(host, "www.")

	for _, claimed := range hosts {
		claimed = strings.ToLower(strings.TrimSpace(claimed))
		if claimed == "*" {
			return true
		}
		if strings.TrimPrefix(claimed, "www.") == host {
			return true
		}
	}

	return false
}

// hostOf extracts the lowercased host from a raw URL.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// pathSegments splits a URL path into its non-empty segments.
func pathSegments(rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	var segments []string
	for _, s := range strings.Split(u.Path, "/") {
		if s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}

// DefaultRegistry creates a registry with the built-in normalisers.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	r.Register(NewNineAnounNormaliser())
	r.Register(&GenericNormaliser{})

	return r
}
