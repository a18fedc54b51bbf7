// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/naka-gawa/github-digest/internal/calendar"
	"github.com/naka-gawa/github-digest/internal/domain"
	"github.com/naka-gawa/github-digest/internal/gateway"
	"github.com/naka-gawa/github-digest/internal/ticket"
	"golang.org/x/sync/errgroup"
)

// Request selects whose activity is reported and for which day.
type Request struct {
	Date calendar.Date
	// User defaults to the owner of the token.
	User string
	Org  string
}

// Digest is the use case for building a daily activity report.
// It orchestrates fetching, classification and ticket lookups.
type Digest struct {
	fetcher     gateway.Fetcher
	tickets     gateway.TicketLookup
	pattern     *ticket.Pattern
	loc         *time.Location
	concurrency int
	logger      *log.Logger
}

// NewDigest creates a new Digest instance.
func NewDigest(fetcher gateway.Fetcher, tickets gateway.TicketLookup, pattern *ticket.Pattern, loc *time.Location, concurrency int, logger *log.Logger) *Digest {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Digest{
		fetcher:     fetcher,
		tickets:     tickets,
		pattern:     pattern,
		loc:         loc,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Build fetches every category concurrently and partitions the result into
// report sections. A category that cannot be fetched is reported as empty;
// only a failure to identify the user aborts the run.
func (d *Digest) Build(ctx context.Context, req Request) (*domain.Report, error) {
	d.logger.Printf("Usecase: Starting digest for %s...\n", req.Date)

	user := req.User
	if user == "" {
		viewer, err := d.fetcher.FetchViewer(ctx)
		if err != nil {
			return nil, err
		}
		user = viewer
	}

	from, to := req.Date.Bounds(d.loc)
	q := gateway.Query{User: user, Org: req.Org, Date: req.Date, From: from, To: to}

	var (
		c                           = Candidates{Viewer: user}
		reviewEvents, commentEvents domain.EventLog
	)

	// Use an errgroup to fetch all data concurrently. Failures are absorbed
	// per category, so the group itself never fails.
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		prs, err := d.fetcher.FetchAuthoredPRs(egCtx, q)
		if err != nil {
			d.logger.Printf("Usecase: authored pull requests unavailable: %v\n", err)
			return nil
		}
		c.Authored = prs
		return nil
	})

	eg.Go(func() error {
		prs, events, err := d.fetcher.FetchReviewedPRs(egCtx, q)
		if err != nil {
			d.logger.Printf("Usecase: reviewed pull requests unavailable: %v\n", err)
			return nil
		}
		c.Reviewed, reviewEvents = prs, events
		return nil
	})

	eg.Go(func() error {
		prs, events, err := d.fetcher.FetchCommentedPRs(egCtx, q)
		if err != nil {
			d.logger.Printf("Usecase: commented pull requests unavailable: %v\n", err)
			return nil
		}
		c.Commented, commentEvents = prs, events
		return nil
	})

	eg.Go(func() error {
		commits, err := d.fetcher.FetchCommits(egCtx, q)
		if err != nil {
			d.logger.Printf("Usecase: commits unavailable: %v\n", err)
			return nil
		}
		c.Commits = commits
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.logger.Println("Usecase: All data fetched.")

	onDate := func(t time.Time) bool { return req.Date.Contains(t, d.loc) }
	c.ReviewConfirmed = reviewEvents.Confirmer(onDate)
	c.CommentConfirmed = commentEvents.Confirmer(onDate)

	result := Classify(c, d.pattern, d.logger)
	if result.Skipped > 0 {
		d.logger.Printf("Usecase: %d malformed records skipped.\n", result.Skipped)
	}

	tickets := d.lookupTickets(ctx, d.ticketIDs(result))

	report := &domain.Report{
		Date:     req.Date.String(),
		Weekday:  calendar.DayName(req.Date),
		User:     user,
		Authored: make([]domain.Entry, 0, len(result.Authored)),
		Reviewed: make([]domain.Entry, 0, len(result.Reviewed)),
		Commits:  make([]domain.Entry, 0, len(result.Groups)+len(result.Unattributed)),
	}
	for _, pr := range result.Authored {
		report.Authored = append(report.Authored, d.pullRequestEntry(domain.CategoryAuthored, pr, tickets))
	}
	for _, pr := range result.Reviewed {
		report.Reviewed = append(report.Reviewed, d.pullRequestEntry(domain.CategoryReviewed, pr, tickets))
	}
	for _, g := range result.Groups {
		count := g.CommitCount
		e := domain.Entry{
			Category:   domain.CategoryBranch,
			Title:      g.Branch,
			Repository: groupRepository(g),
			Ticket:     ticketFor(g.TicketID, tickets),
			Count:      &count,
		}
		if g.PR != nil {
			e.Link = g.PR.URL
		}
		report.Commits = append(report.Commits, e)
	}
	for _, u := range result.Unattributed {
		report.Commits = append(report.Commits, domain.Entry{
			Category:   domain.CategoryUnattributed,
			Title:      u.Commit.Headline,
			Link:       u.Commit.URL,
			Repository: u.Commit.Repository,
			Ticket:     ticketFor(u.TicketID, tickets),
		})
	}

	report.Summary = domain.Summarize(report)
	if report.Empty() {
		report.Message = fmt.Sprintf("No activity found for %s (%s).", report.Date, report.Weekday)
	}

	d.logger.Println("Usecase: Digest complete.")
	return report, nil
}

// prTicketID takes the ticket from the branch name, falling back to the title.
func (d *Digest) prTicketID(pr domain.PullRequest) *string {
	if pr.Branch != nil {
		if id := d.pattern.Extract(*pr.Branch); id != nil {
			return id
		}
	}
	return d.pattern.Extract(pr.Title)
}

func (d *Digest) pullRequestEntry(category domain.Category, pr domain.PullRequest, tickets map[string]*domain.Ticket) domain.Entry {
	return domain.Entry{
		Category:   category,
		Title:      pr.Title,
		Link:       pr.URL,
		Repository: pr.Repository,
		Ticket:     ticketFor(d.prTicketID(pr), tickets),
	}
}

// ticketIDs lists the distinct ticket ids of a classification in report order.
func (d *Digest) ticketIDs(result Classification) []string {
	var ids []string
	seen := make(map[string]struct{})
	add := func(id *string) {
		if id == nil {
			return
		}
		if _, ok := seen[*id]; ok {
			return
		}
		seen[*id] = struct{}{}
		ids = append(ids, *id)
	}
	for _, pr := range result.Authored {
		add(d.prTicketID(pr))
	}
	for _, pr := range result.Reviewed {
		add(d.prTicketID(pr))
	}
	for _, g := range result.Groups {
		add(g.TicketID)
	}
	for _, u := range result.Unattributed {
		add(u.TicketID)
	}
	return ids
}

// lookupTickets resolves ids concurrently. An id that fails validation or
// lookup is kept bare, without a title.
func (d *Digest) lookupTickets(ctx context.Context, ids []string) map[string]*domain.Ticket {
	found := make([]*domain.Ticket, len(ids))

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(d.concurrency)
	for i, id := range ids {
		eg.Go(func() error {
			if !d.pattern.Validate(id) {
				d.logger.Printf("Usecase: refusing to look up malformed ticket id %q\n", id)
				return nil
			}
			t, err := d.tickets.LookupTicket(egCtx, id)
			if err != nil {
				d.logger.Printf("Usecase: ticket lookup failed, showing bare id: %v\n", err)
				return nil
			}
			found[i] = t
			return nil
		})
	}
	_ = eg.Wait()

	tickets := make(map[string]*domain.Ticket, len(ids))
	for i, id := range ids {
		t := found[i]
		if t == nil {
			t = &domain.Ticket{ID: id}
		}
		tickets[id] = t
	}
	return tickets
}

// groupRepository names every repository of a group; equal branch names in
// different repositories share one group.
func groupRepository(g domain.BranchGroup) string {
	if len(g.Repositories) == 0 {
		return g.Repository
	}
	return strings.Join(g.Repositories, ", ")
}

func ticketFor(id *string, tickets map[string]*domain.Ticket) *domain.Ticket {
	if id == nil {
		return nil
	}
	if t, ok := tickets[*id]; ok {
		return t
	}
	return &domain.Ticket{ID: *id}
}
