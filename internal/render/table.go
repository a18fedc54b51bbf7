package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/naka-gawa/github-digest/internal/domain"
)

var sectionNames = map[domain.Category]string{
	domain.CategoryAuthored:     "Authored",
	domain.CategoryReviewed:     "Reviewed",
	domain.CategoryBranch:       "Branch",
	domain.CategoryUnattributed: "Commit",
}

// Table renders the report as one go-pretty table.
type Table struct{}

func (Table) Render(w io.Writer, r *domain.Report) error {
	if r.Empty() {
		_, err := fmt.Fprintln(w, r.Message)
		return err
	}

	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.SetTitle(fmt.Sprintf("%s %s (%s)", r.Weekday, r.Date, r.User))
	tbl.AppendHeader(table.Row{"Section", "Title", "Repository", "Ticket", "Commits", "Link"})

	for _, section := range [][]domain.Entry{r.Authored, r.Reviewed, r.Commits} {
		for _, e := range section {
			count := ""
			if e.Count != nil {
				count = strconv.Itoa(*e.Count)
			}
			tbl.AppendRow(table.Row{sectionNames[e.Category], e.Title, e.Repository, ticketLabel(e.Ticket), count, e.Link})
		}
		if len(section) > 0 {
			tbl.AppendSeparator()
		}
	}

	s := r.Summary
	tbl.AppendFooter(table.Row{
		"Total",
		fmt.Sprintf("%d authored, %d reviewed", s.Authored, s.Reviewed),
		"",
		"",
		s.Commits,
		fmt.Sprintf("%d branches, median %.1f commits", s.Branches, s.MedianCommitsPerBranch),
	})
	tbl.Render()
	return nil
}
