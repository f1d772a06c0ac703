package extract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanehull/cs2news/internal/extract"
	"github.com/shanehull/cs2news/internal/types"
)

const (
	updatesPageURL = "https://www.counter-strike.net/news/updates?l=english"
	newsPageURL    = "https://www.counter-strike.net/news?l=english"
)

// articleUpdatesHTML mirrors the older update page layout.
const articleUpdatesHTML = `<!DOCTYPE html>
<html><body>
<div id="csgo_react_root">
  <div class="updates">
    <div class="article_entry">
      <div class="date">12 Jan</div>
      <p>Operation Riptide</p>
      <ul><li>Fixed crash on map X</li><li> Balance: weapon Y </li></ul>
    </div>
    <div class="article_entry">
      <div class="date">5 Jan</div>
      <p>Older patch</p>
      <ul><li>Old fix</li></ul>
    </div>
  </div>
</div>
</body></html>`

const capsuleUpdatesHTML = `<!DOCTYPE html>
<html><body>
<div id="csgo_react_root">
  <div class="updatecapsule_UpdateCapsule_2Ajg">
    <div class="updatecapsule_Date_1x">18 Feb 2026</div>
    <div class="updatecapsule_Title_9z">Release Notes for 2/18/2026</div>
    <div class="updatecapsule_Desc_3q"><ul><li>[ MAPS ]</li><li>Ancient: fixed boost spot</li></ul></div>
  </div>
</div>
</body></html>`

// positionalUpdatesHTML carries no useful class names at all.
const positionalUpdatesHTML = `<!DOCTYPE html>
<html><body>
<div id="csgo_react_root">
  <section>
    <div>
      <div>3 Feb</div>
      <p>Hotfix</p>
      <ul><li>Fixed a server crash</li></ul>
    </div>
  </section>
</div>
</body></html>`

const emptyUpdatesHTML = `<!DOCTYPE html>
<html><body>
<div id="csgo_react_root"><span>Loading...</span></div>
</body></html>`

const blogNewsHTML = `<!DOCTYPE html>
<html><body>
<div id="csgo_react_root">
  <div class="blog">
    <a class="blogcapsule_BlogCapsule_1" href="/newsentry/5000123">
      <div class="blogcapsule_Date_2">3 Mar 2026</div>
      <div class="blogcapsule_Title_3">Premier Season Two</div>
      <div class="blogcapsule_Desc_4">  The new season
        starts today. </div>
    </a>
    <a class="blogcapsule_BlogCapsule_1" href="/newsentry/5000099">
      <div class="blogcapsule_Date_2">1 Mar 2026</div>
      <div class="blogcapsule_Title_3">Older news</div>
    </a>
  </div>
</div>
</body></html>`

const anchorNewsHTML = `<!DOCTYPE html>
<html><body>
<div id="csgo_react_root">
  <a href="post/42"><div>1 Apr</div><p>Major announced</p><p>Tickets go on sale soon.</p></a>
</div>
</body></html>`

func updateSource() extract.Source {
	return extract.Source{
		Name:       "updates",
		URL:        updatesPageURL,
		Category:   types.CategoryUpdate,
		Strategies: extract.DefaultStrategies(types.CategoryUpdate),
	}
}

func newsSource() extract.Source {
	return extract.Source{
		Name:       "news",
		URL:        newsPageURL,
		Category:   types.CategoryAnnouncement,
		Strategies: extract.DefaultStrategies(types.CategoryAnnouncement),
	}
}

func TestParse_UpdateArticleBlock(t *testing.T) {
	t.Parallel()

	item, err := extract.Parse([]byte(articleUpdatesHTML), updateSource())
	require.NoError(t, err)

	assert.Equal(t, types.Item{
		Title:    "Operation Riptide (12 Jan)",
		Summary:  "- Fixed crash on map X\n- Balance: weapon Y",
		Link:     updatesPageURL,
		Category: types.CategoryUpdate,
		Date:     "12 Jan",
	}, item)
}

func TestParse_UpdateCapsule(t *testing.T) {
	t.Parallel()

	item, err := extract.Parse([]byte(capsuleUpdatesHTML), updateSource())
	require.NoError(t, err)

	assert.Equal(t, "Release Notes for 2/18/2026 (18 Feb 2026)", item.Title)
	assert.Equal(t, "- [ MAPS ]\n- Ancient: fixed boost spot", item.Summary)
	assert.Equal(t, "Release Notes for 2/18/2026", item.Headline())
}

func TestParse_UpdatePositionalFallback(t *testing.T) {
	t.Parallel()

	item, err := extract.Parse([]byte(positionalUpdatesHTML), updateSource())
	require.NoError(t, err)

	assert.Equal(t, "Hotfix (3 Feb)", item.Title)
	assert.Equal(t, "- Fixed a server crash", item.Summary)
}

func TestParse_NoMatchingBlock(t *testing.T) {
	t.Parallel()

	_, err := extract.Parse([]byte(emptyUpdatesHTML), updateSource())
	require.ErrorIs(t, err, extract.ErrParseMismatch)
}

func TestParse_AnnouncementBlogCapsule(t *testing.T) {
	t.Parallel()

	item, err := extract.Parse([]byte(blogNewsHTML), newsSource())
	require.NoError(t, err)

	assert.Equal(t, types.Item{
		Title:    "Premier Season Two (3 Mar 2026)",
		Summary:  "The new season starts today.",
		Link:     "https://www.counter-strike.net/newsentry/5000123",
		Category: types.CategoryAnnouncement,
		Date:     "3 Mar 2026",
	}, item)
}

func TestParse_AnnouncementAnchorFallback(t *testing.T) {
	t.Parallel()

	item, err := extract.Parse([]byte(anchorNewsHTML), newsSource())
	require.NoError(t, err)

	assert.Equal(t, "Major announced (1 Apr)", item.Title)
	assert.Equal(t, "Tickets go on sale soon.", item.Summary)
	assert.Equal(t, "https://www.counter-strike.net/post/42", item.Link)
}

func TestParse_CustomStrategyTable(t *testing.T) {
	t.Parallel()

	src := updateSource()
	src.Strategies = []extract.Strategy{
		{Name: "section", Block: "section div", Title: "p", Bullets: "li"},
	}

	item, err := extract.Parse([]byte(positionalUpdatesHTML), src)
	require.NoError(t, err)

	assert.Equal(t, "Hotfix", item.Title)
	assert.Empty(t, item.Date)
}

func TestParse_UntitledBlocksAreSkipped(t *testing.T) {
	t.Parallel()

	const page = `<div id="csgo_react_root">
	  <div class="article_a"><ul><li>orphan</li></ul></div>
	  <div class="article_b"><p>Real title</p></div>
	</div>`

	item, err := extract.Parse([]byte(page), updateSource())
	require.NoError(t, err)

	assert.Equal(t, "Real title", item.Title)
	assert.Empty(t, item.Summary)
}
