package domain

// BranchGroup aggregates the commits that share one branch name.
// TicketID and PR keep the first value encountered. Repository is the first
// repository seen; Repositories lists every one in encounter order and is
// for display only.
type BranchGroup struct {
	Branch       string          `json:"branch"`
	Repository   string          `json:"repository"`
	Repositories []string        `json:"repositories"`
	CommitCount  int             `json:"commit_count"`
	TicketID     *string         `json:"ticket_id,omitempty"`
	PR           *PullRequestRef `json:"pull_request,omitempty"`
	Commits      []Commit        `json:"commits"`
}

// Keys returns the branch key and, when present, the representative PR's keys.
func (g BranchGroup) Keys() []IdentityKey {
	keys := []IdentityKey{BranchKey(g.Branch)}
	if g.PR != nil {
		keys = append(keys, g.PR.Keys()...)
	}
	return keys
}

// AddRepository records repo in Repositories unless it is already there.
func (g *BranchGroup) AddRepository(repo string) {
	if repo == "" {
		return
	}
	for _, r := range g.Repositories {
		if r == repo {
			return
		}
	}
	g.Repositories = append(g.Repositories, repo)
}

// UnattributedCommit is a commit with no resolvable branch, reported on its own.
type UnattributedCommit struct {
	Commit   Commit  `json:"commit"`
	TicketID *string `json:"ticket_id,omitempty"`
}
