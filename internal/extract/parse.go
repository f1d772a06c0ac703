package extract

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/shanehull/cs2news/internal/types"
)

// ErrParseMismatch means no strategy found a usable block on the page.
var ErrParseMismatch = errors.New("no strategy matched the page markup")

// Parse extracts the first entry of a rendered page.
func Parse(body []byte, src Source) (types.Item, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return types.Item{}, fmt.Errorf("parse html: %w", err)
	}

	strategies := src.Strategies
	if len(strategies) == 0 {
		strategies = DefaultStrategies(src.Category)
	}

	for _, st := range strategies {
		if item, ok := st.apply(doc, src); ok {
			return item, nil
		}
	}

	return types.Item{}, fmt.Errorf("%w: %s", ErrParseMismatch, src.URL)
}

func (st Strategy) apply(doc *goquery.Document, src Source) (types.Item, bool) {
	if st.Block == "" || st.Title == "" {
		return types.Item{}, false
	}

	var (
		item  types.Item
		found bool
	)

	doc.Find(st.Block).EachWithBreak(func(_ int, block *goquery.Selection) bool {
		if !st.qualifies(block) {
			return true
		}

		title := selectionText(block.Find(st.Title).First())
		if title == "" {
			return true
		}

		date := ""
		if st.Date != "" {
			date = selectionText(block.Find(st.Date).First())
		}

		item = types.Item{
			Title:    composeTitle(title, date),
			Summary:  st.summary(block),
			Link:     st.link(block, src.URL),
			Category: src.Category,
			Date:     date,
		}
		found = true
		return false
	})

	return item, found
}

func (st Strategy) qualifies(block *goquery.Selection) bool {
	for _, sel := range st.Require {
		if block.ChildrenFiltered(sel).Length() == 0 {
			return false
		}
	}
	return true
}

func (st Strategy) summary(block *goquery.Selection) string {
	if st.Bullets != "" {
		var lines []string
		block.Find(st.Bullets).Each(func(_ int, li *goquery.Selection) {
			if text := selectionText(li); text != "" {
				lines = append(lines, "- "+text)
			}
		})
		if len(lines) > 0 {
			return strings.Join(lines, "\n")
		}
	}

	if st.Body != "" {
		return selectionText(block.Find(st.Body).First())
	}

	return ""
}

func (st Strategy) link(block *goquery.Selection, pageURL string) string {
	var href string
	switch {
	case st.Link != "":
		href, _ = block.Find(st.Link).First().Attr("href")
	case goquery.NodeName(block) == "a":
		href, _ = block.Attr("href")
	}

	href = strings.TrimSpace(href)
	if href == "" {
		return pageURL
	}

	resolved, err := resolveAgainstOrigin(pageURL, href)
	if err != nil {
		return pageURL
	}
	return resolved
}

func resolveAgainstOrigin(pageURL, href string) (string, error) {
	page, err := url.Parse(pageURL)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}

	origin := &url.URL{Scheme: page.Scheme, Host: page.Host, Path: "/"}
	return origin.ResolveReference(ref).String(), nil
}

func composeTitle(title, date string) string {
	if date == "" {
		return title
	}
	return fmt.Sprintf("%s (%s)", title, date)
}

// selectionText joins the trimmed text nodes under the selection with
// single spaces.
func selectionText(sel *goquery.Selection) string {
	var parts []string
	for _, n := range sel.Nodes {
		collectText(n, &parts)
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

func collectText(n *html.Node, parts *[]string) {
	if n.Type == html.TextNode {
		if text := strings.TrimSpace(n.Data); text != "" {
			*parts = append(*parts, text)
		}
		return
	}
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, parts)
	}
}
