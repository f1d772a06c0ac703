package notify

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/shanehull/cs2news/internal/types"
)

const reportTitleWidth = 60

// ReportRun prints one row per source with its outcome.
func ReportRun(w io.Writer, results []types.Result) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"Source", "Category", "Outcome", "Title", "Detail"})

	counts := map[types.Outcome]int{}
	for _, r := range results {
		counts[r.Outcome]++

		detail := ""
		if r.Err != nil {
			detail = Truncate(r.Err.Error(), reportTitleWidth)
		}
		tw.AppendRow(table.Row{r.Source, r.Category, r.Outcome, Truncate(r.Title, reportTitleWidth), detail})
	}

	tw.AppendFooter(table.Row{"", "", "", fmt.Sprintf("%d delivered, %d skipped, %d failed",
		counts[types.OutcomeDelivered], counts[types.OutcomeSkipped], counts[types.OutcomeFailed]), ""})
	tw.Render()
}
