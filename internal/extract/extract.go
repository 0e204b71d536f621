// Package extract pulls course metadata and hyperlinks out of OU-XML documents.
package extract

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/antchfx/xmlquery"
	"golang.org/x/text/unicode/norm"
)

// BackMatter is the section title used for links found in the document back matter.
const BackMatter = "BackMatter"

const ezproxySuffix = ".libezproxy.open.ac.uk"

// cleaners are removed from the raw text before parsing.
var cleaners = []string{
	`<?sc-transform-do-oumusic-to-unicode?>`,
	`<?sc-transform-do-oxy-pi?>`,
	`<?xml version="1.0" encoding="utf-8"?>`,
	`<?xml version="1.0" encoding="UTF-8"?>`,
	`<?xml version="1.0" encoding="UTF-8" standalone="no"?>`,
}

type Metadata struct {
	File        string `json:"file"`
	CourseCode  string `json:"coursecode"`
	CourseTitle string `json:"coursetitle"`
	ItemTitle   string `json:"itemtitle"`
}

type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

type Section struct {
	Title string `json:"title"`
	Links []Link `json:"links"`
}

// Document lists links per session in document order. The last section is always BackMatter.
type Document struct {
	Metadata Metadata  `json:"metadata"`
	Sections []Section `json:"sessions"`
}

// Files returns the .xml files in dir sorted by name, or path itself when it is a file.
func Files(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", path, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".xml") {
			continue
		}
		files = append(files, filepath.Join(path, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	doc.Metadata.File = path
	return doc, nil
}

// Parse extracts metadata and links from the text of one OU-XML document.
func Parse(text string) (*Document, error) {
	for _, c := range cleaners {
		text = strings.ReplaceAll(text, c, "")
	}

	root, err := xmlquery.ParseWithOptions(strings.NewReader(text), xmlquery.ParserOptions{
		Decoder: &xmlquery.DecoderOptions{
			Strict:    false,
			AutoClose: xml.HTMLAutoClose,
			Entity:    xml.HTMLEntity,
		},
	})
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Metadata: Metadata{
			CourseCode:  flatten(xmlquery.FindOne(root, "//CourseCode")),
			CourseTitle: flatten(xmlquery.FindOne(root, "//CourseTitle")),
			ItemTitle:   flatten(xmlquery.FindOne(root, "//ItemTitle")),
		},
	}

	for _, session := range xmlquery.Find(root, "//Session") {
		doc.Sections = append(doc.Sections, Section{
			Title: flatten(xmlquery.FindOne(session, ".//Title")),
			Links: links(session),
		})
	}

	back := Section{Title: BackMatter}
	if bm := xmlquery.FindOne(root, "//BackMatter"); bm != nil {
		back.Links = links(bm)
	}
	doc.Sections = append(doc.Sections, back)
	return doc, nil
}

// ParseAll parses every file and returns the documents together with the distinct
// URLs they reference, in first-seen order.
func ParseAll(paths []string) ([]*Document, []string, error) {
	docs := make([]*Document, 0, len(paths))
	for _, p := range paths {
		doc, err := ParseFile(p)
		if err != nil {
			return nil, nil, err
		}
		docs = append(docs, doc)
	}
	return docs, UniqueURLs(docs), nil
}

func UniqueURLs(docs []*Document) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, d := range docs {
		for _, s := range d.Sections {
			for _, l := range s.Links {
				if _, ok := seen[l.URL]; ok {
					continue
				}
				seen[l.URL] = struct{}{}
				out = append(out, l.URL)
			}
		}
	}
	return out
}

func links(scope *xmlquery.Node) []Link {
	var out []Link
	for _, a := range xmlquery.Find(scope, ".//a") {
		href := a.SelectAttr("href")
		if href == "" {
			continue
		}
		out = append(out, Link{
			Text: flatten(a),
			URL:  StripProxy(href),
		})
	}
	return out
}

// StripProxy removes the library proxy host suffix from a URL.
func StripProxy(href string) string {
	return strings.ReplaceAll(href, ezproxySuffix, "")
}

func flatten(n *xmlquery.Node) string {
	if n == nil {
		return ""
	}
	return strings.TrimSpace(norm.NFKD.String(n.InnerText()))
}
