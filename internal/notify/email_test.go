package notify_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shanehull/cs2news/internal/logger"
	"github.com/shanehull/cs2news/internal/notify"
	"github.com/shanehull/cs2news/internal/types"
)

type fakeNotifier struct {
	err   error
	items []types.Item
}

func (f *fakeNotifier) Deliver(_ context.Context, item types.Item) error {
	f.items = append(f.items, item)
	return f.err
}

type fakeSender struct {
	err  error
	sent []*notify.RenderedMessage
}

func (f *fakeSender) Send(msg *notify.RenderedMessage) error {
	f.sent = append(f.sent, msg)
	return f.err
}

func TestRender_BulletSummary(t *testing.T) {
	t.Parallel()

	msg, err := notify.NewHTMLEmailRenderer().Render(riptide())
	require.NoError(t, err)

	assert.Equal(t, "CS2 update: Operation Riptide (12 Jan)", msg.Subject)
	assert.Contains(t, msg.HTML, "<li>Fixed crash on map X</li>")
	assert.Contains(t, msg.HTML, "12 Jan")
	assert.Contains(t, msg.Text, "URL: https://www.counter-strike.net/news/updates")
}

func TestRender_ProseSummaryIsEscaped(t *testing.T) {
	t.Parallel()

	item := types.Item{Title: "News", Summary: "<b>bold</b> claims", Category: types.CategoryAnnouncement}

	msg, err := notify.NewHTMLEmailRenderer().Render(item)
	require.NoError(t, err)

	assert.Contains(t, msg.HTML, "&lt;b&gt;bold&lt;/b&gt; claims")
	assert.NotContains(t, msg.HTML, "<li>")
}

func TestMirror_SendsAfterPrimary(t *testing.T) {
	t.Parallel()

	primary := &fakeNotifier{}
	sender := &fakeSender{}

	err := notify.NewMirror(primary, sender, logger.NewNop()).Deliver(context.Background(), riptide())
	require.NoError(t, err)

	assert.Len(t, primary.items, 1)
	assert.Len(t, sender.sent, 1)
}

func TestMirror_PrimaryFailureSkipsEmail(t *testing.T) {
	t.Parallel()

	primary := &fakeNotifier{err: &notify.DeliveryError{StatusCode: 500}}
	sender := &fakeSender{}

	err := notify.NewMirror(primary, sender, logger.NewNop()).Deliver(context.Background(), riptide())

	var derr *notify.DeliveryError
	require.ErrorAs(t, err, &derr)
	assert.Empty(t, sender.sent)
}

func TestMirror_EmailFailureIsNotADeliveryFailure(t *testing.T) {
	t.Parallel()

	primary := &fakeNotifier{}
	sender := &fakeSender{err: errors.New("smtp down")}

	err := notify.NewMirror(primary, sender, logger.NewNop()).Deliver(context.Background(), riptide())
	require.NoError(t, err)
	assert.Len(t, sender.sent, 1)
}

func TestEmailConfig_Enabled(t *testing.T) {
	t.Parallel()

	assert.False(t, notify.EmailConfig{}.Enabled())
	assert.True(t, notify.EmailConfig{SMTPServer: "smtp", SMTPUser: "u", SMTPPass: "p", ToEmail: "to@example.com"}.Enabled())
}
