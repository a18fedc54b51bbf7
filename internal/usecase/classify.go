package usecase

import (
	"log"
	"sort"

	"github.com/naka-gawa/github-digest/internal/domain"
	"github.com/naka-gawa/github-digest/internal/ticket"
)

// Candidates are the raw, possibly overlapping record sets of one run.
type Candidates struct {
	Viewer           string
	Authored         []domain.PullRequest
	Reviewed         []domain.PullRequest
	Commented        []domain.PullRequest
	Commits          []domain.Commit
	ReviewConfirmed  domain.Confirmer
	CommentConfirmed domain.Confirmer
}

// Classification is the disjoint partition of the candidates.
type Classification struct {
	Authored     []domain.PullRequest
	Reviewed     []domain.PullRequest
	Groups       []domain.BranchGroup
	Unattributed []domain.UnattributedCommit
	Seen         domain.SeenSet
	Skipped      int
}

// Classify runs the stages in order: authored, reviewed or commented, commits,
// branch groups. Each stage sees the keys claimed by the stages before it.
func Classify(c Candidates, pattern *ticket.Pattern, logger *log.Logger) Classification {
	var result Classification
	skip := func(err error) {
		result.Skipped++
		logger.Printf("Skipping record: %v", err)
	}

	seen := domain.NewSeenSet()
	result.Authored, seen = SelectAuthored(c.Authored, seen, skip)
	result.Reviewed, seen = SelectReviewed(ReviewInput{
		Viewer:           c.Viewer,
		Reviewed:         c.Reviewed,
		Commented:        c.Commented,
		ReviewConfirmed:  c.ReviewConfirmed,
		CommentConfirmed: c.CommentConfirmed,
	}, seen, skip)
	commits := SelectCommits(c.Commits, seen, skip)
	result.Groups, result.Unattributed, seen = GroupCommits(commits, seen, pattern)
	result.Seen = seen
	return result
}

// SelectAuthored returns the authored section and marks every key of its members.
// Malformed records are passed to skip and left out.
func SelectAuthored(prs []domain.PullRequest, seen domain.SeenSet, skip func(error)) ([]domain.PullRequest, domain.SeenSet) {
	authored := make([]domain.PullRequest, 0, len(prs))
	var keys []domain.IdentityKey
	for _, pr := range prs {
		if err := pr.Validate(); err != nil {
			skip(err)
			continue
		}
		authored = append(authored, pr)
		keys = append(keys, pr.Keys()...)
	}
	return authored, seen.With(keys...)
}

// ReviewInput holds the review and comment candidates with their confirmations.
type ReviewInput struct {
	Viewer           string
	Reviewed         []domain.PullRequest
	Commented        []domain.PullRequest
	ReviewConfirmed  domain.Confirmer
	CommentConfirmed domain.Confirmer
}

// SelectReviewed returns the reviewed-or-commented section.
//
// A review candidate qualifies when its review is confirmed on the target date
// and someone else wrote the pull request. A comment candidate qualifies the
// same way unless it already qualified as reviewed. The union is sorted by
// number, and anything already in seen is dropped before the survivors are marked.
func SelectReviewed(in ReviewInput, seen domain.SeenSet, skip func(error)) ([]domain.PullRequest, domain.SeenSet) {
	merged := make(map[domain.IdentityKey]domain.PullRequest)
	var order []domain.IdentityKey

	collect := func(prs []domain.PullRequest, confirmed domain.Confirmer) {
		for _, pr := range prs {
			if err := pr.Validate(); err != nil {
				skip(err)
				continue
			}
			if confirmed == nil || !confirmed(pr.Number, pr.Repository) || pr.Author == in.Viewer {
				continue
			}
			key := domain.PRNumberKey(pr.Repository, pr.Number)
			if _, ok := merged[key]; ok {
				continue
			}
			merged[key] = pr
			order = append(order, key)
		}
	}
	collect(in.Reviewed, in.ReviewConfirmed)
	collect(in.Commented, in.CommentConfirmed)

	candidates := make([]domain.PullRequest, 0, len(order))
	for _, key := range order {
		candidates = append(candidates, merged[key])
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Number != candidates[j].Number {
			return candidates[i].Number < candidates[j].Number
		}
		return candidates[i].Repository < candidates[j].Repository
	})

	reviewed := make([]domain.PullRequest, 0, len(candidates))
	var keys []domain.IdentityKey
	// Survivors are checked against the earlier sections only, so two reviewed
	// pull requests sharing a branch name (e.g. fork PRs from main) both stay.
	for _, pr := range candidates {
		if seen.ContainsAny(pr.Keys()...) {
			continue
		}
		reviewed = append(reviewed, pr)
		keys = append(keys, pr.Keys()...)
	}
	return reviewed, seen.With(keys...)
}

// SelectCommits drops malformed commits, repeated OIDs, and commits whose pull
// request has already been reported. It marks nothing; that is left to GroupCommits.
func SelectCommits(commits []domain.Commit, seen domain.SeenSet, skip func(error)) []domain.Commit {
	kept := make([]domain.Commit, 0, len(commits))
	oids := make(map[string]struct{}, len(commits))
	for _, c := range commits {
		if err := c.Validate(); err != nil {
			skip(err)
			continue
		}
		if _, dup := oids[c.OID]; dup {
			continue
		}
		oids[c.OID] = struct{}{}
		if c.PR != nil && c.PR.URL != "" && seen.Contains(domain.PRURLKey(c.PR.URL)) {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}
