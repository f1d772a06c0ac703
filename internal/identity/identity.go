/*
Package identity derives the content fingerprints used to decide whether a
news item has already been delivered.
*/
package identity

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/shanehull/cs2news/internal/types"
)

const fieldSeparator = "\x1f"

// Fingerprint hashes title, summary and category, in that order. The link is
// left out because the update feed only ever exposes the page URL.
func Fingerprint(item types.Item) string {
	parts := []string{
		strings.TrimSpace(item.Title),
		collapseSpace(item.Summary),
		strings.TrimSpace(string(item.Category)),
	}
	sum := sha256.Sum256([]byte(strings.Join(parts, fieldSeparator)))
	return hex.EncodeToString(sum[:])
}

// Placeholders the first release substituted for missing fields.
const (
	legacyNoDate    = "Date inconnue"
	legacyNoSummary = "Aucun résumé disponible."
)

// Legacy reproduces the ids written by the first release of the bot, which
// stored md5(title+summary+category) with French category labels and French
// placeholders for a missing date or summary. It only matches items read
// from the same pages and markup, see extract.LegacySources.
func Legacy(item types.Item) string {
	title := item.Title
	if item.Date == "" {
		title = fmt.Sprintf("%s (%s)", item.Title, legacyNoDate)
	}
	summary := item.Summary
	if strings.TrimSpace(summary) == "" {
		summary = legacyNoSummary
	}

	content := strings.TrimSpace(title + summary + legacyLabel(item.Category))
	sum := md5.Sum([]byte(content))
	return hex.EncodeToString(sum[:])
}

func legacyLabel(c types.Category) string {
	switch c {
	case types.CategoryUpdate:
		return "mise_a_jour"
	case types.CategoryAnnouncement:
		return "actualite"
	}
	return string(c)
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
