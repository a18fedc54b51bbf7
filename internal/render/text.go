package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize/english"
	"github.com/fatih/color"

	"github.com/naka-gawa/github-digest/internal/domain"
)

// Text renders the report as an indented list, one section per heading.
type Text struct {
	heading *color.Color
	ticket  *color.Color
	link    *color.Color
	dim     *color.Color
}

// NewText returns a Text renderer. Colors are forced on or off by opts so
// the same report can go to a terminal and to the clipboard.
func NewText(opts Options) *Text {
	t := &Text{
		heading: color.New(color.Bold, color.FgCyan),
		ticket:  color.New(color.FgYellow),
		link:    color.New(color.FgBlue),
		dim:     color.New(color.Faint),
	}
	for _, c := range []*color.Color{t.heading, t.ticket, t.link, t.dim} {
		if opts.Color {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return t
}

func (t *Text) Render(w io.Writer, r *domain.Report) error {
	var b strings.Builder
	if r.Empty() {
		fmt.Fprintln(&b, r.Message)
		_, err := io.WriteString(w, b.String())
		return err
	}

	t.heading.Fprintf(&b, "Daily digest for %s, %s %s\n", r.User, r.Weekday, r.Date)
	t.section(&b, "Authored pull requests", r.Authored)
	t.section(&b, "Reviewed or commented", r.Reviewed)
	t.section(&b, "Commits", r.Commits)

	s := r.Summary
	fmt.Fprintf(&b, "\n%s, %s, %s on %s\n",
		english.Plural(s.Authored, "authored pull request", ""),
		english.Plural(s.Reviewed, "review", ""),
		english.Plural(s.Commits, "commit", ""),
		english.Plural(s.Branches, "branch", "branches"),
	)

	_, err := io.WriteString(w, b.String())
	return err
}

func (t *Text) section(b *strings.Builder, title string, entries []domain.Entry) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintln(b)
	t.heading.Fprintln(b, title)
	for _, e := range entries {
		fmt.Fprintf(b, "  - %s", e.Title)
		if e.Count != nil {
			fmt.Fprintf(b, " (%s)", english.Plural(*e.Count, "commit", ""))
		}
		if e.Ticket != nil {
			t.ticket.Fprintf(b, " [%s]", ticketLabel(e.Ticket))
		}
		t.dim.Fprintf(b, " %s", e.Repository)
		if e.Link != "" {
			b.WriteString(" ")
			t.link.Fprint(b, e.Link)
		}
		b.WriteString("\n")
	}
}
