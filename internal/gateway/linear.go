package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/shurcooL/graphql"

	"github.com/naka-gawa/github-digest/internal/domain"
	"github.com/naka-gawa/github-digest/internal/ticket"
)

// ErrInvalidTicketID is returned for ids that fail ticket validation. Such ids
// are never sent to the ticket system.
var ErrInvalidTicketID = errors.New("invalid ticket id")

// TicketLookup resolves ticket ids to tickets.
type TicketLookup interface {
	LookupTicket(ctx context.Context, id string) (*domain.Ticket, error)
}

// LinearGateway looks tickets up through the Linear GraphQL API.
type LinearGateway struct {
	client  *graphql.Client
	pattern *ticket.Pattern
	logger  *log.Logger
}

type issueQuery struct {
	Issue struct {
		Identifier string
		Title      string
		URL        string `graphql:"url"`
	} `graphql:"issue(id: $id)"`
}

// apiKeyTransport sets the raw API key header Linear expects for personal keys.
type apiKeyTransport struct {
	key  string
	base http.RoundTripper
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", t.key)
	return t.base.RoundTrip(clone)
}

// NewLinearGateway creates a LinearGateway talking to apiURL.
func NewLinearGateway(apiURL, apiKey string, pattern *ticket.Pattern, logger *log.Logger) *LinearGateway {
	httpClient := &http.Client{
		Transport: &apiKeyTransport{key: apiKey, base: http.DefaultTransport},
	}
	return &LinearGateway{
		client:  graphql.NewClient(apiURL, httpClient),
		pattern: pattern,
		logger:  logger,
	}
}

// LookupTicket fetches the title and URL of the ticket id.
func (l *LinearGateway) LookupTicket(ctx context.Context, id string) (*domain.Ticket, error) {
	if !l.pattern.Validate(id) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTicketID, id)
	}
	var q issueQuery
	variables := map[string]interface{}{
		"id": graphql.String(id),
	}
	if err := l.client.Query(ctx, &q, variables); err != nil {
		return nil, fmt.Errorf("failed to look up ticket %s: %w", id, err)
	}
	l.logger.Printf("  Resolved ticket %s.\n", id)

	t := &domain.Ticket{ID: id, URL: q.Issue.URL}
	if q.Issue.Title != "" {
		title := q.Issue.Title
		t.Title = &title
	}
	return t, nil
}

// BareTickets is the TicketLookup used when no ticket system is configured.
// It returns the id alone.
type BareTickets struct{}

func (BareTickets) LookupTicket(_ context.Context, id string) (*domain.Ticket, error) {
	return &domain.Ticket{ID: id}, nil
}
