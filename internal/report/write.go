package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/olgkv/linkchecker/internal/domain"
)

const (
	AllJSON      = "all_links_report.json"
	AllCSV       = "all_links_report.csv"
	BrokenJSON   = "broken_links_report.json"
	BrokenCSV    = "broken_links_report.csv"
	RedirectsCSV = "redirect_report.csv"
)

// Envelope wraps per-document reports with run information.
type Envelope struct {
	RunID       string           `json:"run_id"`
	GeneratedAt time.Time        `json:"generated_at"`
	Documents   []DocumentReport `json:"documents"`
}

type csvRow struct {
	File     string `csv:"file"`
	Code     string `csv:"code"`
	Title    string `csv:"title"`
	Item     string `csv:"item"`
	Session  string `csv:"session"`
	LinkText string `csv:"linktext"`
	Link     string `csv:"link"`
	Status   string `csv:"status"`
	Reason   string `csv:"reason"`
}

type RedirectRow struct {
	ItemTitle string `csv:"itemtitle"`
	File      string `csv:"file"`
	Session   string `csv:"session"`
	OldURL    string `csv:"old_url"`
	NewURL    string `csv:"new_url"`
}

func WriteJSON(w io.Writer, env Envelope) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(env)
}

// WriteCSV writes one row per link occurrence, ordered by file.
func WriteCSV(w io.Writer, docs []DocumentReport) error {
	rows := []*csvRow{}
	for _, d := range docs {
		for _, s := range d.Sessions {
			for _, l := range s.Links {
				row := &csvRow{
					File:     d.Metadata.File,
					Code:     d.Metadata.CourseCode,
					Title:    d.Metadata.CourseTitle,
					Item:     d.Metadata.ItemTitle,
					Session:  s.Title,
					LinkText: l.Text,
					Link:     l.URL,
				}
				if n := len(l.Chain); n > 0 {
					final := l.Chain[n-1]
					if code, ok := final.Status(); ok {
						row.Status = strconv.Itoa(code)
					}
					row.Reason = final.Reason
				}
				rows = append(rows, row)
			}
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].File < rows[j].File })
	return gocsv.Marshal(&rows, w)
}

// Redirects lists links that reached a 200 through at least one permanent redirect.
func Redirects(docs []DocumentReport) []RedirectRow {
	out := []RedirectRow{}
	for _, d := range docs {
		for _, s := range d.Sessions {
			for _, l := range s.Links {
				if row, ok := permanentRedirect(d, s.Title, l.Chain); ok {
					out = append(out, row)
				}
			}
		}
	}
	return out
}

func permanentRedirect(d DocumentReport, session string, chain []domain.LinkVerdict) (RedirectRow, bool) {
	if len(chain) < 2 {
		return RedirectRow{}, false
	}
	final := chain[len(chain)-1]
	if code, ok := final.Status(); !ok || code != 200 {
		return RedirectRow{}, false
	}
	for _, hop := range chain[:len(chain)-1] {
		if code, _ := hop.Status(); code == 301 || code == 308 {
			return RedirectRow{
				ItemTitle: d.Metadata.ItemTitle,
				File:      d.Metadata.File,
				Session:   session,
				OldURL:    chain[0].RequestedURL,
				NewURL:    final.RequestedURL,
			}, true
		}
	}
	return RedirectRow{}, false
}

func WriteRedirects(w io.Writer, rows []RedirectRow) error {
	return gocsv.Marshal(&rows, w)
}

// WriteAll writes the JSON, CSV and redirect reports into dir.
func WriteAll(dir string, runID string, all, broken []DocumentReport) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	now := time.Now().UTC()

	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{AllJSON, func(w io.Writer) error { return WriteJSON(w, Envelope{RunID: runID, GeneratedAt: now, Documents: all}) }},
		{AllCSV, func(w io.Writer) error { return WriteCSV(w, all) }},
		{BrokenJSON, func(w io.Writer) error { return WriteJSON(w, Envelope{RunID: runID, GeneratedAt: now, Documents: broken}) }},
		{BrokenCSV, func(w io.Writer) error { return WriteCSV(w, broken) }},
		{RedirectsCSV, func(w io.Writer) error { return WriteRedirects(w, Redirects(all)) }},
	}
	for _, f := range files {
		if err := writeFile(filepath.Join(dir, f.name), f.write); err != nil {
			return err
		}
	}
	return nil
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func sortedKeys(r domain.LinkReport) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
