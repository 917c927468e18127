package runlog

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/nholm/gemkeys/pkg/orchestrator"
)

// Render writes the human-readable run summary.
func Render(w io.Writer, report *orchestrator.RunReport) {
	header := fmt.Sprintf("Run summary: %s", report.Action)
	if report.DryRun {
		header += " (dry run)"
	}
	color.New(color.Bold).Fprintln(w, header)

	for _, acct := range report.Accounts {
		fmt.Fprintf(w, "\n%s\n", acct.Email)
		if acct.Err != "" {
			color.New(color.FgRed).Fprintf(w, "  skipped: %s\n", acct.Err)
			continue
		}
		if len(acct.Projects) == 0 {
			fmt.Fprintln(w, "  no projects")
			continue
		}
		for _, p := range acct.Projects {
			label := p.Tag
			if p.WouldHave {
				label = wouldPhrase(p.Tag)
			}
			tagColor(p.Tag).Fprintf(w, "  %-30s %s", p.ProjectID, label)
			if p.Detail != "" {
				fmt.Fprintf(w, "  (%s)", p.Detail)
			}
			if len(p.FailedKeyIDs) > 0 {
				fmt.Fprintf(w, "  failed keys: %s", strings.Join(p.FailedKeyIDs, ", "))
			}
			fmt.Fprintln(w)
		}
	}

	counts := report.Counts()
	tags := make([]string, 0, len(counts))
	for tag := range counts {
		tags = append(tags, tag)
	}
	sort.Strings(tags)

	fmt.Fprintln(w)
	color.New(color.Bold).Fprint(w, "Totals:")
	for _, tag := range tags {
		fmt.Fprintf(w, " %s=%d", tag, counts[tag])
	}
	fmt.Fprintln(w)
}

func wouldPhrase(tag string) string {
	switch tag {
	case "created":
		return "would create"
	case "deleted":
		return "would delete"
	default:
		return "would " + tag
	}
}

func tagColor(tag string) *color.Color {
	switch {
	case tag == "created" || tag == "deleted":
		return color.New(color.FgGreen)
	case tag == "already-present" || tag == "not-found":
		return color.New(color.FgCyan)
	case strings.HasPrefix(tag, "error") || tag == "partial-delete":
		return color.New(color.FgRed)
	default:
		return color.New(color.FgYellow)
	}
}
