package pdf

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/olgkv/linkchecker/internal/domain"
)

// BuildLinksReport renders the final verdict of every link in tasks.
func BuildLinksReport(tasks []*domain.Task) ([]byte, error) {
	p := gofpdf.New("P", "mm", "A4", "")
	p.SetAutoPageBreak(true, 15)
	p.AddPage()
	tr := p.UnicodeTranslatorFromDescriptor("")

	p.SetFont("Arial", "B", 14)
	p.Cell(40, 10, "Links report")
	p.Ln(12)

	for _, t := range tasks {
		p.SetFont("Arial", "B", 12)
		p.Cell(40, 10, fmt.Sprintf("Task #%d", t.ID))
		p.Ln(8)
		p.SetFont("Arial", "", 10)
		for _, link := range t.Links {
			p.MultiCell(0, 6, tr(line(t.Result, link)), "", "L", false)
		}
		p.Ln(4)
	}

	var buf bytes.Buffer
	if err := p.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func line(report domain.LinkReport, link string) string {
	final, ok := report.Final(link)
	if !ok {
		return fmt.Sprintf("%s - pending", link)
	}
	status := "-"
	if code, has := final.Status(); has {
		status = fmt.Sprintf("%d", code)
	}
	s := fmt.Sprintf("%s - %s %s", link, status, final.Reason)
	if final.ResolvedURL != "" && final.ResolvedURL != final.RequestedURL {
		s += " -> " + final.ResolvedURL
	} else if chain := report[link]; len(chain) > 1 {
		s += " -> " + final.RequestedURL
	}
	return s
}
