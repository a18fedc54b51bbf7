// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrRecordShape is returned when an upstream record lacks a required field.
// Callers skip the record and keep going.
var ErrRecordShape = errors.New("malformed activity record")

// PullRequest is a pull request as returned by the fetch stage.
type PullRequest struct {
	Number     int       `json:"number"`
	Title      string    `json:"title"`
	URL        string    `json:"url"`
	Repository string    `json:"repository"`
	Author     string    `json:"author"`
	Branch     *string   `json:"branch,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Validate reports whether the pull request carries every field the pipeline needs.
func (p PullRequest) Validate() error {
	switch {
	case p.Number <= 0:
		return fmt.Errorf("%w: pull request without number (%q)", ErrRecordShape, p.URL)
	case p.URL == "":
		return fmt.Errorf("%w: pull request #%d without url", ErrRecordShape, p.Number)
	case p.Repository == "":
		return fmt.Errorf("%w: pull request #%d without repository", ErrRecordShape, p.Number)
	}
	return nil
}

// Ref returns the reference form of the pull request, as attached to commits.
func (p PullRequest) Ref() PullRequestRef {
	return PullRequestRef{
		Number:     p.Number,
		URL:        p.URL,
		Repository: p.Repository,
		Branch:     p.Branch,
	}
}

// Keys returns every identity key of the pull request.
func (p PullRequest) Keys() []IdentityKey {
	return p.Ref().Keys()
}

// PullRequestRef is the pull request a commit is associated with.
type PullRequestRef struct {
	Number     int     `json:"number"`
	URL        string  `json:"url"`
	Repository string  `json:"repository"`
	Branch     *string `json:"branch,omitempty"`
}

// Keys returns the identity keys of the referenced pull request.
// Fields that are missing produce no key.
func (r PullRequestRef) Keys() []IdentityKey {
	keys := make([]IdentityKey, 0, 3)
	if r.Number > 0 && r.Repository != "" {
		keys = append(keys, PRNumberKey(r.Repository, r.Number))
	}
	if r.URL != "" {
		keys = append(keys, PRURLKey(r.URL))
	}
	if r.Branch != nil {
		keys = append(keys, BranchKey(*r.Branch))
	}
	return keys
}

// Commit is a commit authored by the user on the target date.
// Ref is the branch the commit was discovered on.
type Commit struct {
	OID        string          `json:"oid"`
	Headline   string          `json:"headline"`
	Author     string          `json:"author"`
	Repository string          `json:"repository"`
	URL        string          `json:"url,omitempty"`
	Ref        *string         `json:"ref,omitempty"`
	PR         *PullRequestRef `json:"pull_request,omitempty"`
}

// Validate reports whether the commit carries every field the pipeline needs.
func (c Commit) Validate() error {
	if c.OID == "" {
		return fmt.Errorf("%w: commit without oid (%q)", ErrRecordShape, c.Headline)
	}
	return nil
}

// Branch resolves the branch a commit is grouped under: the associated pull
// request's head branch first, then the ref it was discovered on.
func (c Commit) Branch() *string {
	if c.PR != nil && c.PR.Branch != nil {
		return c.PR.Branch
	}
	return c.Ref
}
