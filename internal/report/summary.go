package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/rodaine/table"

	"github.com/olgkv/linkchecker/internal/archive"
	"github.com/olgkv/linkchecker/internal/domain"
)

// PrintSummary writes a table of broken links followed by archive totals when sum is set.
func PrintSummary(w io.Writer, verdicts domain.LinkReport, sum *archive.Summary) {
	dead := DeadLinks(verdicts)
	fmt.Fprintf(w, "Checked %d links, %d broken\n", len(verdicts), len(dead))

	if len(dead) > 0 {
		tbl := table.New("Link", "Status", "Reason").WithWriter(w)
		for _, link := range dead {
			final, _ := verdicts.Final(link)
			status := "-"
			if code, ok := final.Status(); ok {
				status = strconv.Itoa(code)
			}
			tbl.AddRow(link, status, final.Reason)
		}
		tbl.Print()
	}

	if sum != nil {
		tbl := table.New("Archived", "Not archived", "Excluded", "Invalid").WithWriter(w)
		tbl.AddRow(len(sum.Archived), len(sum.Failed), len(sum.Excluded), len(sum.Invalid))
		tbl.Print()
	}
}
