package commands

import (
	"fmt"
	"sort"
	"time"

	"github.com/nholm/gemkeys/pkg/history"
)

type HistoryCmd struct {
	Limit int `help:"How many runs to show." default:"10"`
}

func (c *HistoryCmd) Run(ctx *cliCtx, root *cli) error {
	store := ctx.History
	if store == nil {
		bolt, err := history.OpenBolt(root.HistoryDB)
		if err != nil {
			return fmt.Errorf("opening history database: %w", err)
		}
		defer bolt.Close()
		store = bolt
	}

	records, err := store.List(ctx, c.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(ctx.Out, "no recorded runs")
		return nil
	}

	for _, rec := range records {
		fmt.Fprintf(ctx.Out, "%s  %-6s  accounts=%d  duration=%s %s\n",
			rec.StartedAt.Local().Format(time.RFC3339),
			rec.Action,
			rec.Accounts,
			rec.FinishedAt.Sub(rec.StartedAt).Round(time.Millisecond),
			formatCounts(rec.Counts),
		)
	}
	return nil
}

func formatCounts(counts map[string]int) string {
	tags := make([]string, 0, len(counts))
	for tag := range counts {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	out := ""
	for _, tag := range tags {
		out += fmt.Sprintf(" %s=%d", tag, counts[tag])
	}
	return out
}
