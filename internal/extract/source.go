/*
Package extract fetches the Counter-Strike news pages and turns the newest
entry of each into a types.Item.

Parsing is table driven: each Source carries an ordered list of Strategy
values (CSS selectors), and the first strategy that yields a titled block
wins. Markup drift is handled by editing the tables, usually from the YAML
config, rather than the code.
*/
package extract

import (
	"time"

	"github.com/shanehull/cs2news/internal/types"
)

const (
	RenderHTTP    = "http"
	RenderBrowser = "browser"

	DefaultHTTPTimeout = 60 * time.Second
	// DefaultBrowserTimeout covers browser startup on top of the page load
	// and selector wait budgets of BrowserFetcher.
	DefaultBrowserTimeout = 150 * time.Second

	UpdatesURL = "https://www.counter-strike.net/news/updates"
	NewsURL    = "https://www.counter-strike.net/news"
	// LegacyUpdatesURL is the French update page read by the first release.
	LegacyUpdatesURL = UpdatesURL + "?l=french"

	reactRootSelector = "#csgo_react_root"
)

// Source describes one monitored page.
type Source struct {
	Name         string
	URL          string
	Category     types.Category
	Render       string
	WaitSelector string
	Timeout      time.Duration
	Strategies   []Strategy
}

// Strategy is one way of locating the latest entry on a page. Block selects
// candidate blocks in document order; a block qualifies when each Require
// selector matches one of its direct children and its Title is non-empty.
// Date, Title, Bullets, Body and Link are evaluated inside the block.
type Strategy struct {
	Name    string   `yaml:"name"`
	Block   string   `yaml:"block"`
	Require []string `yaml:"require"`
	Date    string   `yaml:"date"`
	Title   string   `yaml:"title"`
	Bullets string   `yaml:"bullets"`
	Body    string   `yaml:"body"`
	Link    string   `yaml:"link"`
}

// AttemptTimeout is the budget for a single fetch attempt.
func (s Source) AttemptTimeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	if s.Render == RenderBrowser {
		return DefaultBrowserTimeout
	}
	return DefaultHTTPTimeout
}

// DefaultStrategies returns the built-in selector table for a category.
func DefaultStrategies(c types.Category) []Strategy {
	switch c {
	case types.CategoryUpdate:
		return []Strategy{
			{
				Name:    "update-capsule",
				Block:   reactRootSelector + " div[class*='updatecapsule_UpdateCapsule']",
				Date:    "[class*='Date']",
				Title:   "[class*='Title']",
				Bullets: "li",
			},
			{
				Name:    "article-block",
				Block:   reactRootSelector + " div[class*='article']",
				Date:    "div",
				Title:   "p",
				Bullets: "li",
			},
			{
				Name:    "positional",
				Block:   reactRootSelector + " div",
				Require: []string{"p", "ul"},
				Date:    "div",
				Title:   "p",
				Bullets: "li",
			},
		}
	case types.CategoryAnnouncement:
		return []Strategy{
			{
				Name:  "blog-capsule",
				Block: reactRootSelector + " a[href*='/newsentry/']",
				Date:  "[class*='Date']",
				Title: "[class*='Title']",
				Body:  "[class*='Desc']",
			},
			{
				Name:  "anchor",
				Block: reactRootSelector + " a[href]",
				Date:  "div",
				Title: "p",
				Body:  "p:nth-of-type(2)",
			},
		}
	}
	return nil
}

// DefaultSources returns the two monitored Counter-Strike pages. Both are
// client-rendered, so they go through the headless browser by default.
func DefaultSources() []Source {
	return []Source{
		{
			Name:         "updates",
			URL:          UpdatesURL,
			Category:     types.CategoryUpdate,
			Render:       RenderBrowser,
			WaitSelector: reactRootSelector,
			Strategies:   DefaultStrategies(types.CategoryUpdate),
		},
		{
			Name:         "news",
			URL:          NewsURL,
			Category:     types.CategoryAnnouncement,
			Render:       RenderBrowser,
			WaitSelector: reactRootSelector,
			Strategies:   DefaultStrategies(types.CategoryAnnouncement),
		},
	}
}

// LegacySources reads the pages the way the first release of the bot did:
// French update notes, the article block layout on both pages, and the page
// URL as link. Items extracted this way carry the text its ids were computed
// from, so stores written by that release keep matching after an upgrade.
func LegacySources() []Source {
	articleBlock := []Strategy{{
		Name:    "article-block",
		Block:   reactRootSelector + " div[class*='article']",
		Date:    "div",
		Title:   "p",
		Bullets: "li",
	}}

	return []Source{
		{
			Name:         "updates",
			URL:          LegacyUpdatesURL,
			Category:     types.CategoryUpdate,
			Render:       RenderBrowser,
			WaitSelector: reactRootSelector,
			Strategies:   articleBlock,
		},
		{
			Name:         "news",
			URL:          NewsURL,
			Category:     types.CategoryAnnouncement,
			Render:       RenderBrowser,
			WaitSelector: reactRootSelector,
			Strategies:   articleBlock,
		},
	}
}
