package types

import (
	"fmt"
	"strings"
)

type Category string

const (
	CategoryUpdate       Category = "update"
	CategoryAnnouncement Category = "announcement"
)

// ParseCategory accepts the canonical names and the labels used by older
// deployments of the bot.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "update", "updates", "mise_a_jour":
		return CategoryUpdate, nil
	case "announcement", "announcements", "news", "actualite":
		return CategoryAnnouncement, nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Item is one extracted news entry. It holds no reference to the page or
// session it came from.
type Item struct {
	Title    string
	Summary  string
	Link     string
	Category Category
	Date     string
}

// Headline returns the title without the trailing " (date)" suffix.
func (i Item) Headline() string {
	if i.Date == "" {
		return i.Title
	}
	return strings.TrimSpace(strings.TrimSuffix(i.Title, "("+i.Date+")"))
}

type Outcome string

const (
	OutcomeSkipped   Outcome = "skipped"
	OutcomeDelivered Outcome = "delivered"
	OutcomeFailed    Outcome = "failed"
)

// Result is the terminal state of one source in one run.
type Result struct {
	Source      string
	Category    Category
	Outcome     Outcome
	Fingerprint string
	Title       string
	Err         error
}
