// Package report turns link verdicts into per-document reports.
package report

import (
	"github.com/olgkv/linkchecker/internal/domain"
	"github.com/olgkv/linkchecker/internal/extract"
)

type LinkResult struct {
	Text  string               `json:"text"`
	URL   string               `json:"url"`
	Chain []domain.LinkVerdict `json:"chain"`
	OK    bool                 `json:"ok"`
}

type SessionReport struct {
	Title string       `json:"title"`
	Links []LinkResult `json:"links"`
}

type DocumentReport struct {
	Metadata extract.Metadata `json:"metadata"`
	Sessions []SessionReport  `json:"sessions"`
}

// ByDocument joins extracted documents with the verdicts for their links. The broken
// reports keep only failing links and drop sessions that have none.
func ByDocument(docs []*extract.Document, verdicts domain.LinkReport) (all, broken []DocumentReport) {
	for _, doc := range docs {
		full := DocumentReport{Metadata: doc.Metadata, Sessions: []SessionReport{}}
		bad := DocumentReport{Metadata: doc.Metadata, Sessions: []SessionReport{}}

		for _, sec := range doc.Sections {
			s := SessionReport{Title: sec.Title, Links: []LinkResult{}}
			var failing []LinkResult
			for _, l := range sec.Links {
				chain := verdicts[l.URL]
				final, ok := verdicts.Final(l.URL)
				res := LinkResult{Text: l.Text, URL: l.URL, Chain: chain, OK: ok && final.OK}
				s.Links = append(s.Links, res)
				if !res.OK {
					failing = append(failing, res)
				}
			}
			full.Sessions = append(full.Sessions, s)
			if len(failing) > 0 {
				bad.Sessions = append(bad.Sessions, SessionReport{Title: sec.Title, Links: failing})
			}
		}
		all = append(all, full)
		broken = append(broken, bad)
	}
	return all, broken
}

// DeadLinks returns the input URLs whose final verdict is not ok, sorted.
func DeadLinks(verdicts domain.LinkReport) []string {
	return sortedKeys(verdicts.Broken())
}
