package pdf

import (
	"bytes"
	"testing"

	"github.com/olgkv/linkchecker/internal/domain"
)

func TestBuildLinksReport(t *testing.T) {
	tasks := []*domain.Task{
		{
			ID:    1,
			Links: []string{"https://ok.example", "https://gone.example", "http://ww.example"},
			Result: domain.LinkReport{
				"https://ok.example":   {{RequestedURL: "https://ok.example/", ResolvedURL: "https://ok.example/", OK: true, StatusCode: domain.StatusPtr(200), Reason: "OK"}},
				"https://gone.example": {{RequestedURL: "https://gone.example/", ResolvedURL: "https://gone.example/", StatusCode: domain.StatusPtr(404), Reason: "Not Found", Kind: domain.KindHTTPError}},
				"http://ww.example":    {domain.TransportFailure("http://ww.example/")},
			},
		},
		{ID: 2, Links: []string{"https://pending.example"}},
	}

	out, err := BuildLinksReport(tasks)
	if err != nil {
		t.Fatalf("BuildLinksReport: %v", err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF-")) {
		t.Fatalf("output is not a PDF: %q", out[:min(len(out), 16)])
	}
}

func TestLine(t *testing.T) {
	report := domain.LinkReport{
		"http://a.example": {
			{RequestedURL: "http://a.example/", ResolvedURL: "https://a.example/", StatusCode: domain.StatusPtr(301), Reason: "Moved Permanently", Kind: domain.KindRedirect},
			{RequestedURL: "https://a.example/", ResolvedURL: "https://a.example/", OK: true, StatusCode: domain.StatusPtr(200), Reason: "OK"},
		},
		"http://ww.example": {domain.TransportFailure("http://ww.example/")},
	}

	tests := map[string]string{
		"http://a.example":  "http://a.example - 200 OK -> https://a.example/",
		"http://ww.example": "http://ww.example - - Error resolving URL",
		"missing":           "missing - pending",
	}
	for link, want := range tests {
		if got := line(report, link); got != want {
			t.Fatalf("line(%q) = %q, want %q", link, got, want)
		}
	}
}
