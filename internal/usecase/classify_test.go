package usecase

import (
	"fmt"
	"io"
	"log"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/naka-gawa/github-digest/internal/domain"
	"github.com/naka-gawa/github-digest/internal/ticket"
)

const viewer = "octocat"

func newPR(number int, repo, author, branch string) domain.PullRequest {
	pr := domain.PullRequest{
		Number:     number,
		Title:      fmt.Sprintf("PR %d", number),
		URL:        fmt.Sprintf("https://github.com/%s/pull/%d", repo, number),
		Repository: repo,
		Author:     author,
	}
	if branch != "" {
		pr.Branch = &branch
	}
	return pr
}

func confirmAll(int, string) bool { return true }

func confirmOnly(numbers ...int) domain.Confirmer {
	return func(number int, _ string) bool {
		for _, n := range numbers {
			if n == number {
				return true
			}
		}
		return false
	}
}

func numbers(prs []domain.PullRequest) []int {
	out := make([]int, 0, len(prs))
	for _, pr := range prs {
		out = append(out, pr.Number)
	}
	return out
}

func mustPattern(t *testing.T) *ticket.Pattern {
	t.Helper()
	p, err := ticket.New("CHE")
	require.NoError(t, err)
	return p
}

func discard() *log.Logger { return log.New(io.Discard, "", 0) }

func noSkip(t *testing.T) func(error) {
	return func(err error) { t.Errorf("unexpected skip: %v", err) }
}

func TestClassify_AuthoredNeverReappears(t *testing.T) {
	authored := newPR(123, "acme/api", viewer, "feature/CHE-1-a")
	c := Candidates{
		Viewer:   viewer,
		Authored: []domain.PullRequest{authored},
		Reviewed: []domain.PullRequest{
			authored,
			newPR(125, "acme/api", "hubot", "feature/b"),
		},
		ReviewConfirmed:  confirmAll,
		CommentConfirmed: confirmAll,
	}

	result := Classify(c, mustPattern(t), discard())

	assert.Equal(t, []int{123}, numbers(result.Authored))
	assert.Equal(t, []int{125}, numbers(result.Reviewed))
	assert.Empty(t, result.Groups)
	assert.Empty(t, result.Unattributed)
}

func TestSelectAuthored(t *testing.T) {
	var skipped []error
	prs := []domain.PullRequest{
		newPR(1, "acme/api", viewer, "feature/one"),
		{Number: 0, URL: "https://github.com/acme/api/pull/0", Repository: "acme/api"},
		newPR(2, "acme/api", viewer, ""),
	}

	authored, seen := SelectAuthored(prs, domain.NewSeenSet(), func(err error) { skipped = append(skipped, err) })

	assert.Equal(t, []int{1, 2}, numbers(authored))
	require.Len(t, skipped, 1)
	assert.ErrorIs(t, skipped[0], domain.ErrRecordShape)
	assert.True(t, seen.Contains(domain.PRNumberKey("acme/api", 1)))
	assert.True(t, seen.Contains(domain.PRURLKey("https://github.com/acme/api/pull/2")))
	assert.True(t, seen.Contains(domain.BranchKey("feature/one")))
	assert.Equal(t, 5, seen.Len(), "two number keys, two url keys, one branch key")
}

func TestSelectReviewed(t *testing.T) {
	testCases := []struct {
		name     string
		in       ReviewInput
		seen     domain.SeenSet
		expected []int
	}{
		{
			name: "unconfirmed review is dropped",
			in: ReviewInput{
				Reviewed:        []domain.PullRequest{newPR(5, "acme/api", "hubot", ""), newPR(6, "acme/api", "hubot", "")},
				ReviewConfirmed: confirmOnly(6),
			},
			expected: []int{6},
		},
		{
			name: "pull requests by the viewer are dropped",
			in: ReviewInput{
				Reviewed:         []domain.PullRequest{newPR(5, "acme/api", viewer, "")},
				Commented:        []domain.PullRequest{newPR(7, "acme/api", viewer, "")},
				ReviewConfirmed:  confirmAll,
				CommentConfirmed: confirmAll,
			},
			expected: []int{},
		},
		{
			name: "comment-only interactions are included and merged sorted",
			in: ReviewInput{
				Reviewed:         []domain.PullRequest{newPR(30, "acme/api", "hubot", "")},
				Commented:        []domain.PullRequest{newPR(4, "acme/web", "hubot", ""), newPR(30, "acme/api", "hubot", "")},
				ReviewConfirmed:  confirmAll,
				CommentConfirmed: confirmAll,
			},
			expected: []int{4, 30},
		},
		{
			name: "comment confirmation is independent of review confirmation",
			in: ReviewInput{
				Reviewed:         []domain.PullRequest{newPR(8, "acme/api", "hubot", "")},
				Commented:        []domain.PullRequest{newPR(8, "acme/api", "hubot", "")},
				ReviewConfirmed:  confirmOnly(),
				CommentConfirmed: confirmAll,
			},
			expected: []int{8},
		},
		{
			name: "same number in different repositories is two pull requests",
			in: ReviewInput{
				Reviewed:        []domain.PullRequest{newPR(9, "acme/web", "hubot", ""), newPR(9, "acme/api", "hubot", "")},
				ReviewConfirmed: confirmAll,
			},
			expected: []int{9, 9},
		},
		{
			name: "nil confirmer confirms nothing",
			in: ReviewInput{
				Reviewed: []domain.PullRequest{newPR(10, "acme/api", "hubot", "")},
			},
			expected: []int{},
		},
		{
			name: "already seen by url is dropped",
			in: ReviewInput{
				Reviewed:        []domain.PullRequest{newPR(11, "acme/api", "hubot", "")},
				ReviewConfirmed: confirmAll,
			},
			seen:     domain.NewSeenSet(domain.PRURLKey("https://github.com/acme/api/pull/11")),
			expected: []int{},
		},
		{
			name: "already seen by branch is dropped",
			in: ReviewInput{
				Reviewed:        []domain.PullRequest{newPR(12, "acme/api", "hubot", "feature/shared")},
				ReviewConfirmed: confirmAll,
			},
			seen:     domain.NewSeenSet(domain.BranchKey("feature/shared")),
			expected: []int{},
		},
		{
			name: "reviewed pull requests sharing a branch name both stay",
			in: ReviewInput{
				Reviewed:        []domain.PullRequest{newPR(14, "acme/api", "hubot", "main"), newPR(15, "acme/api", "monalisa", "main")},
				ReviewConfirmed: confirmAll,
			},
			expected: []int{14, 15},
		},
		{
			name: "number key does not match a longer number",
			in: ReviewInput{
				Reviewed:        []domain.PullRequest{newPR(123, "acme/api", "hubot", "")},
				ReviewConfirmed: confirmAll,
			},
			seen:     domain.NewSeenSet(domain.PRNumberKey("acme/api", 12)),
			expected: []int{123},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.in.Viewer = viewer
			before := tc.seen.Len()

			reviewed, seen := SelectReviewed(tc.in, tc.seen, noSkip(t))

			assert.Equal(t, tc.expected, numbers(reviewed))
			assert.Equal(t, before, tc.seen.Len(), "input set must not be modified")
			for _, pr := range reviewed {
				assert.True(t, seen.ContainsAny(pr.Keys()...))
			}
		})
	}
}

func TestSelectReviewed_SkipsMalformed(t *testing.T) {
	var skipped int
	in := ReviewInput{
		Viewer:          viewer,
		Reviewed:        []domain.PullRequest{{Number: 3, Repository: "acme/api"}, newPR(4, "acme/api", "hubot", "")},
		ReviewConfirmed: confirmAll,
	}

	reviewed, _ := SelectReviewed(in, domain.NewSeenSet(), func(error) { skipped++ })

	assert.Equal(t, []int{4}, numbers(reviewed))
	assert.Equal(t, 1, skipped)
}

func TestSelectCommits(t *testing.T) {
	seenURL := "https://github.com/acme/api/pull/42"
	commits := []domain.Commit{
		{OID: "a", PR: &domain.PullRequestRef{Number: 42, URL: seenURL, Repository: "acme/api"}},
		{OID: "b"},
		{OID: "b", Headline: "same commit on another branch"},
		{OID: "", Headline: "broken"},
		{OID: "c", PR: &domain.PullRequestRef{Number: 43, URL: "https://github.com/acme/api/pull/43", Repository: "acme/api"}},
	}
	var skipped int

	kept := SelectCommits(commits, domain.NewSeenSet(domain.PRURLKey(seenURL)), func(error) { skipped++ })

	require.Len(t, kept, 2)
	assert.Equal(t, "b", kept[0].OID)
	assert.Empty(t, kept[0].Headline, "first occurrence wins")
	assert.Equal(t, "c", kept[1].OID)
	assert.Equal(t, 1, skipped)
}

// TestClassify_Partition checks on generated inputs that no identity key ends
// up in two sections, and that every accepted record is claimed by a section
// directly or through a duplicate.
func TestClassify_Partition(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	repos := []string{"acme/api", "acme/web"}
	branches := []string{"", "feature/CHE-1-a", "feature/CHE-2-b", "fix/c", "main"}
	authors := []string{viewer, "hubot", "monalisa"}

	randomPR := func(author string) domain.PullRequest {
		return newPR(1+rng.Intn(12), repos[rng.Intn(len(repos))], author, branches[rng.Intn(len(branches))])
	}

	for round := 0; round < 200; round++ {
		var c Candidates
		c.Viewer = viewer
		for i := rng.Intn(4); i > 0; i-- {
			c.Authored = append(c.Authored, randomPR(viewer))
		}
		for i := rng.Intn(5); i > 0; i-- {
			c.Reviewed = append(c.Reviewed, randomPR(authors[rng.Intn(len(authors))]))
		}
		for i := rng.Intn(5); i > 0; i-- {
			c.Commented = append(c.Commented, randomPR(authors[rng.Intn(len(authors))]))
		}
		for i := rng.Intn(8); i > 0; i-- {
			commit := domain.Commit{OID: fmt.Sprintf("%d-%d", round, i), Repository: repos[rng.Intn(len(repos))]}
			if b := branches[rng.Intn(len(branches))]; b != "" {
				commit.Ref = &b
			}
			if rng.Intn(2) == 0 {
				ref := randomPR(viewer).Ref()
				commit.PR = &ref
			}
			c.Commits = append(c.Commits, commit)
		}
		reviewOK := rng.Intn(13)
		c.ReviewConfirmed = func(n int, _ string) bool { return n%2 == 0 || n == reviewOK }
		c.CommentConfirmed = func(n int, _ string) bool { return n%3 == 0 }

		result := Classify(c, mustPattern(t), discard())

		sections := map[string][]domain.IdentityKey{}
		for _, pr := range result.Authored {
			sections["authored"] = append(sections["authored"], pr.Keys()...)
		}
		for _, pr := range result.Reviewed {
			sections["reviewed"] = append(sections["reviewed"], pr.Keys()...)
		}
		for _, g := range result.Groups {
			sections["commits"] = append(sections["commits"], g.Keys()...)
		}
		owner := map[domain.IdentityKey]string{}
		for name, keys := range sections {
			for _, k := range keys {
				if prev, ok := owner[k]; ok && prev != name {
					t.Fatalf("round %d: key %s in both %s and %s", round, k, prev, name)
				}
				owner[k] = name
			}
		}

		// Coverage: every authored PR is reported.
		assert.Len(t, result.Authored, len(c.Authored))

		// Every accepted review or comment was claimed by some section, either
		// through its own keys or through a duplicate sharing its number.
		var accepted []domain.PullRequest
		for _, pr := range c.Reviewed {
			if pr.Author != viewer && c.ReviewConfirmed(pr.Number, pr.Repository) {
				accepted = append(accepted, pr)
			}
		}
		for _, pr := range c.Commented {
			if pr.Author != viewer && c.CommentConfirmed(pr.Number, pr.Repository) {
				accepted = append(accepted, pr)
			}
		}
		for _, pr := range accepted {
			claimed := result.Seen.ContainsAny(pr.Keys()...)
			for _, other := range accepted {
				if other.Number == pr.Number && other.Repository == pr.Repository && result.Seen.ContainsAny(other.Keys()...) {
					claimed = true
				}
			}
			assert.True(t, claimed, "round %d: PR %d lost", round, pr.Number)
		}

		// Every commit is reported on its own, or its branch group or pull
		// request was claimed.
		unattributed := map[string]bool{}
		for _, u := range result.Unattributed {
			unattributed[u.Commit.OID] = true
		}
		for _, commit := range c.Commits {
			claimed := commit.PR != nil && result.Seen.ContainsAny(commit.PR.Keys()...)
			if commit.Branch() == nil {
				assert.True(t, claimed || unattributed[commit.OID], "round %d: commit %s lost", round, commit.OID)
				continue
			}
			for _, other := range c.Commits {
				if other.Branch() == nil || *other.Branch() != *commit.Branch() {
					continue
				}
				if result.Seen.Contains(domain.BranchKey(*other.Branch())) ||
					(other.PR != nil && result.Seen.ContainsAny(other.PR.Keys()...)) {
					claimed = true
				}
			}
			assert.True(t, claimed, "round %d: commit %s lost", round, commit.OID)
		}
	}
}
