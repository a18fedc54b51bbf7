// Package gateway provides a gateway to the GitHub API and the ticket system,
// abstracting away the underlying REST and GraphQL clients.
package gateway

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/shurcooL/githubv4"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/naka-gawa/github-digest/internal/calendar"
	"github.com/naka-gawa/github-digest/internal/domain"
)

// Query scopes every fetch of one run.
type Query struct {
	User string
	Org  string
	Date calendar.Date
	// From and To bound the target date in the configured time zone.
	From time.Time
	To   time.Time
}

// Fetcher defines the behavior of a gateway for fetching activity from GitHub.
type Fetcher interface {
	FetchViewer(ctx context.Context) (string, error)
	FetchAuthoredPRs(ctx context.Context, q Query) ([]domain.PullRequest, error)
	// FetchReviewedPRs returns review candidates with the user's review times.
	FetchReviewedPRs(ctx context.Context, q Query) ([]domain.PullRequest, domain.EventLog, error)
	// FetchCommentedPRs returns comment candidates with the user's comment times.
	FetchCommentedPRs(ctx context.Context, q Query) ([]domain.PullRequest, domain.EventLog, error)
	FetchCommits(ctx context.Context, q Query) ([]domain.Commit, error)
}

// GitHubGateway is the concrete implementation of the Fetcher interface.
type GitHubGateway struct {
	restClient    *github.Client
	graphqlClient *githubv4.Client
	concurrency   int
	logger        *log.Logger
}

type pageInfo struct {
	HasNextPage bool
	EndCursor   githubv4.String
}

type prFields struct {
	Number      int
	Title       string
	URL         string `graphql:"url"`
	HeadRefName string
	CreatedAt   githubv4.DateTime
	Author      struct {
		Login string
	}
	Repository struct {
		NameWithOwner string
	}
}

func (f prFields) toDomain() domain.PullRequest {
	pr := domain.PullRequest{
		Number:     f.Number,
		Title:      f.Title,
		URL:        f.URL,
		Repository: f.Repository.NameWithOwner,
		Author:     f.Author.Login,
		CreatedAt:  f.CreatedAt.Time,
	}
	if f.HeadRefName != "" {
		branch := f.HeadRefName
		pr.Branch = &branch
	}
	return pr
}

// authoredSearchQuery finds pull requests opened by the user.
type authoredSearchQuery struct {
	Search struct {
		PageInfo pageInfo
		Edges    []struct {
			Node struct {
				Typename    string   `graphql:"__typename"`
				PullRequest prFields `graphql:"... on PullRequest"`
			}
		}
	} `graphql:"search(query: $query, type: ISSUE, first: 50, after: $cursor)"`
}

// reviewedSearchQuery finds pull requests reviewed by the user, with the
// submission times of the user's own reviews.
type reviewedSearchQuery struct {
	Search struct {
		PageInfo pageInfo
		Edges    []struct {
			Node struct {
				Typename    string   `graphql:"__typename"`
				PullRequest prFields `graphql:"... on PullRequest"`
				Activity    struct {
					Reviews struct {
						Nodes []struct {
							SubmittedAt githubv4.DateTime
						}
					} `graphql:"reviews(author: $login, last: 50)"`
				} `graphql:"... on PullRequest"`
			}
		}
	} `graphql:"search(query: $query, type: ISSUE, first: 50, after: $cursor)"`
}

// commentedSearchQuery finds pull requests the user commented on.
// The comments connection cannot be filtered by author, so the gateway does it.
type commentedSearchQuery struct {
	Search struct {
		PageInfo pageInfo
		Edges    []struct {
			Node struct {
				Typename    string   `graphql:"__typename"`
				PullRequest prFields `graphql:"... on PullRequest"`
				Activity    struct {
					Comments struct {
						Nodes []struct {
							CreatedAt githubv4.DateTime
							Author    struct {
								Login string
							}
						}
					} `graphql:"comments(last: 100)"`
				} `graphql:"... on PullRequest"`
			}
		}
	} `graphql:"search(query: $query, type: ISSUE, first: 50, after: $cursor)"`
}

// contributionsQuery lists the repositories the user committed to in a window.
type contributionsQuery struct {
	User struct {
		ID                      githubv4.ID
		ContributionsCollection struct {
			CommitContributionsByRepository []struct {
				Repository struct {
					NameWithOwner string
				}
			} `graphql:"commitContributionsByRepository(maxRepositories: 50)"`
		} `graphql:"contributionsCollection(from: $from, to: $to)"`
	} `graphql:"user(login: $login)"`
}

type commitNode struct {
	Oid             githubv4.GitObjectID
	URL             string `graphql:"url"`
	MessageHeadline string
	Author          struct {
		Name string
		User struct {
			Login string
		}
	}
	AssociatedPullRequests struct {
		Nodes []struct {
			Number      int
			URL         string `graphql:"url"`
			HeadRefName string
			Repository  struct {
				NameWithOwner string
			}
		}
	} `graphql:"associatedPullRequests(first: 1)"`
}

// refHistoryQuery walks every branch of one repository and returns the
// user's commits inside the window on each of them.
type refHistoryQuery struct {
	Repository struct {
		Refs struct {
			PageInfo pageInfo
			Nodes    []struct {
				Name   string
				Target struct {
					Commit struct {
						History struct {
							Nodes []commitNode
						} `graphql:"history(first: 100, since: $since, until: $until, author: $author)"`
					} `graphql:"... on Commit"`
				}
			}
		} `graphql:"refs(refPrefix: \"refs/heads/\", first: 25, after: $cursor)"`
	} `graphql:"repository(owner: $owner, name: $name)"`
}

// NewGitHubGateway is a constructor that creates a new instance of GitHubGateway.
func NewGitHubGateway(token string, concurrency int, logger *log.Logger) (Fetcher, error) {
	rateLimitWaiter, err := github_ratelimit.NewRateLimitWaiter(nil, github_ratelimit.WithSingleSleepLimit(1*time.Hour, nil))
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit waiter: %w", err)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Base:   rateLimitWaiter,
			Source: ts,
		},
	}
	if concurrency < 1 {
		concurrency = 1
	}
	return &GitHubGateway{
		restClient:    github.NewClient(httpClient),
		graphqlClient: githubv4.NewClient(httpClient),
		concurrency:   concurrency,
		logger:        logger,
	}, nil
}

// FetchViewer returns the login of the token's owner.
func (g *GitHubGateway) FetchViewer(ctx context.Context) (string, error) {
	user, _, err := g.restClient.Users.Get(ctx, "")
	if err != nil {
		return "", fmt.Errorf("failed to fetch authenticated user: %w", err)
	}
	if user.GetLogin() == "" {
		return "", fmt.Errorf("failed to fetch authenticated user: empty login")
	}
	return user.GetLogin(), nil
}

func (g *GitHubGateway) FetchAuthoredPRs(ctx context.Context, q Query) ([]domain.PullRequest, error) {
	g.logger.Println("[1/4] Fetching authored pull requests...")
	query := fmt.Sprintf("is:pr author:%s created:%s%s", q.User, createdWithin(q), orgFilter(q.Org))
	variables := map[string]interface{}{
		"query":  githubv4.String(query),
		"cursor": (*githubv4.String)(nil),
	}

	var prs []domain.PullRequest
	err := paginate(variables, func() (pageInfo, error) {
		var sq authoredSearchQuery
		if err := g.graphqlClient.Query(ctx, &sq, variables); err != nil {
			return pageInfo{}, err
		}
		for _, edge := range sq.Search.Edges {
			if edge.Node.Typename != "PullRequest" {
				continue
			}
			prs = append(prs, edge.Node.PullRequest.toDomain())
		}
		return sq.Search.PageInfo, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute GraphQL query for authored pull requests: %w", err)
	}
	g.logger.Printf("Completed fetching authored pull requests: %d found.\n", len(prs))
	return prs, nil
}

func (g *GitHubGateway) FetchReviewedPRs(ctx context.Context, q Query) ([]domain.PullRequest, domain.EventLog, error) {
	g.logger.Println("[2/4] Fetching reviewed pull requests...")
	query := fmt.Sprintf("is:pr reviewed-by:%s updated:>=%s%s", q.User, updatedSince(q), orgFilter(q.Org))
	variables := map[string]interface{}{
		"query":  githubv4.String(query),
		"login":  githubv4.String(q.User),
		"cursor": (*githubv4.String)(nil),
	}

	var prs []domain.PullRequest
	events := make(domain.EventLog)
	err := paginate(variables, func() (pageInfo, error) {
		var sq reviewedSearchQuery
		if err := g.graphqlClient.Query(ctx, &sq, variables); err != nil {
			return pageInfo{}, err
		}
		for _, edge := range sq.Search.Edges {
			if edge.Node.Typename != "PullRequest" {
				continue
			}
			pr := edge.Node.PullRequest.toDomain()
			prs = append(prs, pr)
			for _, review := range edge.Node.Activity.Reviews.Nodes {
				// Pending reviews have no submission time.
				if review.SubmittedAt.IsZero() {
					continue
				}
				events.Add(pr.Repository, pr.Number, review.SubmittedAt.Time)
			}
		}
		return sq.Search.PageInfo, nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to execute GraphQL query for reviewed pull requests: %w", err)
	}
	g.logger.Printf("Completed fetching reviewed pull requests: %d candidates.\n", len(prs))
	return prs, events, nil
}

func (g *GitHubGateway) FetchCommentedPRs(ctx context.Context, q Query) ([]domain.PullRequest, domain.EventLog, error) {
	g.logger.Println("[3/4] Fetching commented pull requests...")
	query := fmt.Sprintf("is:pr commenter:%s updated:>=%s%s", q.User, updatedSince(q), orgFilter(q.Org))
	variables := map[string]interface{}{
		"query":  githubv4.String(query),
		"cursor": (*githubv4.String)(nil),
	}

	var prs []domain.PullRequest
	events := make(domain.EventLog)
	err := paginate(variables, func() (pageInfo, error) {
		var sq commentedSearchQuery
		if err := g.graphqlClient.Query(ctx, &sq, variables); err != nil {
			return pageInfo{}, err
		}
		for _, edge := range sq.Search.Edges {
			if edge.Node.Typename != "PullRequest" {
				continue
			}
			pr := edge.Node.PullRequest.toDomain()
			prs = append(prs, pr)
			for _, comment := range edge.Node.Activity.Comments.Nodes {
				if !strings.EqualFold(comment.Author.Login, q.User) {
					continue
				}
				events.Add(pr.Repository, pr.Number, comment.CreatedAt.Time)
			}
		}
		return sq.Search.PageInfo, nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to execute GraphQL query for commented pull requests: %w", err)
	}
	g.logger.Printf("Completed fetching commented pull requests: %d candidates.\n", len(prs))
	return prs, events, nil
}

// FetchCommits returns the user's commits inside the window, one entry per
// branch the commit was found on. Repositories are queried concurrently; a
// repository that fails is logged and skipped.
func (g *GitHubGateway) FetchCommits(ctx context.Context, q Query) ([]domain.Commit, error) {
	g.logger.Println("[4/4] Fetching commits...")
	authorID, repos, err := g.fetchCommitRepositories(ctx, q)
	if err != nil {
		return nil, err
	}

	perRepo := make([][]domain.Commit, len(repos))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)
	for i, repo := range repos {
		eg.Go(func() error {
			commits, err := g.fetchRepositoryCommits(egCtx, repo, authorID, q)
			if err != nil {
				g.logger.Printf("  Skipping commits of %s: %v\n", repo, err)
				return nil
			}
			perRepo[i] = commits
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var commits []domain.Commit
	for _, c := range perRepo {
		commits = append(commits, c...)
	}
	g.logger.Printf("Completed fetching commits: %d found in %d repositories.\n", len(commits), len(repos))
	return commits, nil
}

func (g *GitHubGateway) fetchCommitRepositories(ctx context.Context, q Query) (githubv4.ID, []string, error) {
	var cq contributionsQuery
	variables := map[string]interface{}{
		"login": githubv4.String(q.User),
		"from":  githubv4.DateTime{Time: q.From},
		"to":    githubv4.DateTime{Time: q.To},
	}
	if err := g.graphqlClient.Query(ctx, &cq, variables); err != nil {
		return nil, nil, fmt.Errorf("failed to execute GraphQL query for contributions: %w", err)
	}

	seen := make(map[string]struct{})
	var repos []string
	add := func(repo string) {
		if repo == "" {
			return
		}
		if q.Org != "" && !strings.EqualFold(strings.SplitN(repo, "/", 2)[0], q.Org) {
			return
		}
		if _, ok := seen[repo]; ok {
			return
		}
		seen[repo] = struct{}{}
		repos = append(repos, repo)
	}
	for _, c := range cq.User.ContributionsCollection.CommitContributionsByRepository {
		add(c.Repository.NameWithOwner)
	}

	// Contributions only count the default branch. Repositories with open
	// work of the user are added so feature branches are walked too.
	active, err := g.fetchActiveRepositories(ctx, q)
	if err != nil {
		g.logger.Printf("  Could not list repositories with recent pull requests: %v\n", err)
	}
	for _, repo := range active {
		add(repo)
	}
	return cq.User.ID, repos, nil
}

func (g *GitHubGateway) fetchActiveRepositories(ctx context.Context, q Query) ([]string, error) {
	query := fmt.Sprintf("is:pr author:%s updated:>=%s%s", q.User, updatedSince(q), orgFilter(q.Org))
	variables := map[string]interface{}{
		"query":  githubv4.String(query),
		"cursor": (*githubv4.String)(nil),
	}
	var repos []string
	err := paginate(variables, func() (pageInfo, error) {
		var sq authoredSearchQuery
		if err := g.graphqlClient.Query(ctx, &sq, variables); err != nil {
			return pageInfo{}, err
		}
		for _, edge := range sq.Search.Edges {
			repos = append(repos, edge.Node.PullRequest.Repository.NameWithOwner)
		}
		return sq.Search.PageInfo, nil
	})
	if err != nil {
		return nil, err
	}
	return repos, nil
}

func (g *GitHubGateway) fetchRepositoryCommits(ctx context.Context, repo string, authorID githubv4.ID, q Query) ([]domain.Commit, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok {
		return nil, fmt.Errorf("invalid repository name %q", repo)
	}
	variables := map[string]interface{}{
		"owner":  githubv4.String(owner),
		"name":   githubv4.String(name),
		"since":  githubv4.GitTimestamp{Time: q.From},
		"until":  githubv4.GitTimestamp{Time: q.To},
		"author": githubv4.CommitAuthor{ID: &authorID},
		"cursor": (*githubv4.String)(nil),
	}

	var commits []domain.Commit
	err := paginate(variables, func() (pageInfo, error) {
		var rq refHistoryQuery
		if err := g.graphqlClient.Query(ctx, &rq, variables); err != nil {
			return pageInfo{}, err
		}
		for _, ref := range rq.Repository.Refs.Nodes {
			for _, node := range ref.Target.Commit.History.Nodes {
				commits = append(commits, node.toDomain(repo, ref.Name))
			}
		}
		return rq.Repository.Refs.PageInfo, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to execute GraphQL query for commit history: %w", err)
	}
	return commits, nil
}

func (n commitNode) toDomain(repo, ref string) domain.Commit {
	c := domain.Commit{
		OID:        string(n.Oid),
		Headline:   n.MessageHeadline,
		URL:        n.URL,
		Author:     n.Author.User.Login,
		Repository: repo,
		Ref:        &ref,
	}
	if c.Author == "" {
		c.Author = n.Author.Name
	}
	if len(n.AssociatedPullRequests.Nodes) > 0 {
		pr := n.AssociatedPullRequests.Nodes[0]
		c.PR = &domain.PullRequestRef{
			Number:     pr.Number,
			URL:        pr.URL,
			Repository: pr.Repository.NameWithOwner,
		}
		if pr.HeadRefName != "" {
			branch := pr.HeadRefName
			c.PR.Branch = &branch
		}
	}
	return c
}

// paginate calls round until the connection reports no next page, moving the
// cursor variable forward after each round.
func paginate(variables map[string]interface{}, round func() (pageInfo, error)) error {
	for {
		info, err := round()
		if err != nil {
			return err
		}
		if !info.HasNextPage {
			return nil
		}
		variables["cursor"] = githubv4.NewString(info.EndCursor)
	}
}

func orgFilter(org string) string {
	if org == "" {
		return ""
	}
	// Note: The leading space is important for concatenation.
	return " org:" + org
}

// createdWithin is the window as an inclusive UTC timestamp range. A bare
// date would be read as a UTC day, not the day in the configured zone.
func createdWithin(q Query) string {
	return q.From.UTC().Format(time.RFC3339) + ".." + q.To.Add(-time.Second).UTC().Format(time.RFC3339)
}

// updatedSince is the UTC date of the window start. Search qualifiers are
// evaluated in UTC, which can be a day earlier than the local target date.
func updatedSince(q Query) string {
	return q.From.UTC().Format(calendar.Layout)
}
