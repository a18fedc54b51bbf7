package usecase

import (
	"github.com/naka-gawa/github-digest/internal/domain"
	"github.com/naka-gawa/github-digest/internal/ticket"
)

// GroupCommits groups commits by branch in encounter order.
//
// A group keeps the first ticket id found in its members' branch names and the
// first associated pull request. Groups whose branch or pull request is already
// in seen are dropped; the keys of the others are marked. Commits without a
// branch are returned individually.
func GroupCommits(commits []domain.Commit, seen domain.SeenSet, pattern *ticket.Pattern) ([]domain.BranchGroup, []domain.UnattributedCommit, domain.SeenSet) {
	var (
		groups       []*domain.BranchGroup
		byBranch     = make(map[string]*domain.BranchGroup)
		unattributed []domain.UnattributedCommit
	)

	for _, c := range commits {
		branch := c.Branch()
		if branch == nil {
			unattributed = append(unattributed, domain.UnattributedCommit{
				Commit:   c,
				TicketID: pattern.Extract(c.Headline),
			})
			continue
		}

		g, ok := byBranch[*branch]
		if !ok {
			g = &domain.BranchGroup{Branch: *branch, Repository: c.Repository}
			byBranch[*branch] = g
			groups = append(groups, g)
		}
		g.AddRepository(c.Repository)
		g.CommitCount++
		g.Commits = append(g.Commits, c)
		if g.TicketID == nil {
			g.TicketID = memberTicket(c, *branch, pattern)
		}
		if g.PR == nil && c.PR != nil {
			pr := *c.PR
			g.PR = &pr
		}
	}

	emitted := make([]domain.BranchGroup, 0, len(groups))
	for _, g := range groups {
		keys := g.Keys()
		if seen.ContainsAny(keys...) {
			continue
		}
		seen = seen.With(keys...)
		emitted = append(emitted, *g)
	}
	return emitted, unattributed, seen
}

// memberTicket looks for a ticket id in the branch a commit is grouped under,
// then in the ref it was discovered on.
func memberTicket(c domain.Commit, branch string, pattern *ticket.Pattern) *string {
	if id := pattern.Extract(branch); id != nil {
		return id
	}
	if c.Ref != nil {
		return pattern.Extract(*c.Ref)
	}
	return nil
}
