package domain

import (
	"github.com/montanaflynn/stats"
)

// Category tags the report section an entry belongs to.
type Category string

const (
	CategoryAuthored     Category = "authored"
	CategoryReviewed     Category = "reviewed"
	CategoryBranch       Category = "branch"
	CategoryUnattributed Category = "commit"
)

// Ticket is a ticket reference attached to an entry.
// Title is nil when the ticket system could not be reached.
type Ticket struct {
	ID    string  `json:"id" yaml:"id"`
	Title *string `json:"title,omitempty" yaml:"title,omitempty"`
	URL   string  `json:"url,omitempty" yaml:"url,omitempty"`
}

// Entry is one line of a report section, ready for rendering.
type Entry struct {
	Category   Category `json:"category" yaml:"category"`
	Title      string   `json:"title" yaml:"title"`
	Link       string   `json:"link,omitempty" yaml:"link,omitempty"`
	Repository string   `json:"repository" yaml:"repository"`
	Ticket     *Ticket  `json:"ticket,omitempty" yaml:"ticket,omitempty"`
	Count      *int     `json:"count,omitempty" yaml:"count,omitempty"`
}

// Summary holds the totals printed under a report.
type Summary struct {
	Authored               int     `json:"authored" yaml:"authored"`
	Reviewed               int     `json:"reviewed" yaml:"reviewed"`
	Commits                int     `json:"commits" yaml:"commits"`
	Branches               int     `json:"branches" yaml:"branches"`
	MedianCommitsPerBranch float64 `json:"median_commits_per_branch" yaml:"median_commits_per_branch"`
}

// Report is the daily digest handed to a renderer.
type Report struct {
	Date     string  `json:"date" yaml:"date"`
	Weekday  string  `json:"weekday" yaml:"weekday"`
	User     string  `json:"user" yaml:"user"`
	Authored []Entry `json:"authored" yaml:"authored"`
	Reviewed []Entry `json:"reviewed" yaml:"reviewed"`
	Commits  []Entry `json:"commits" yaml:"commits"`
	Summary  Summary `json:"summary" yaml:"summary"`
	Message  string  `json:"message,omitempty" yaml:"message,omitempty"`
}

// Empty reports whether no section has entries.
func (r *Report) Empty() bool {
	return len(r.Authored) == 0 && len(r.Reviewed) == 0 && len(r.Commits) == 0
}

// Summarize counts the report's entries. Branch entries contribute their
// commit count; unattributed commits count once each.
func Summarize(r *Report) Summary {
	s := Summary{
		Authored: len(r.Authored),
		Reviewed: len(r.Reviewed),
	}
	var perBranch []int
	for _, e := range r.Commits {
		n := 1
		if e.Count != nil {
			n = *e.Count
		}
		s.Commits += n
		if e.Category == CategoryBranch {
			s.Branches++
			perBranch = append(perBranch, n)
		}
	}
	if len(perBranch) > 0 {
		median, err := stats.Median(stats.LoadRawData(perBranch))
		if err == nil {
			s.MedianCommitsPerBranch = median
		}
	}
	return s
}
