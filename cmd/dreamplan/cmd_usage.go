package main

import (
	"fmt"
	"io"
	"sort"

	"dreamplan/internal/usage"

	"github.com/spf13/cobra"
)

func newUsageCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show LLM call statistics for roadmap and task generation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !opts.cfg.Usage.Enabled {
				fmt.Fprintln(out, mutedStyle.Render("Usage tracking is disabled (usage.enabled: false)."))
				return nil
			}
			tracker, err := usage.NewTracker(opts.cfg.Usage.Path)
			if err != nil {
				return err
			}
			writeUsage(out, tracker.Stats())
			return nil
		},
	}
}

func writeUsage(w io.Writer, s usage.Stats) {
	if s.Total.Calls == 0 && s.Total.Fallbacks == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No generations recorded yet."))
		return
	}
	fmt.Fprintln(w, titleStyle.Render("LLM usage"))
	writeCounts(w, "total", s.Total)
	if !s.LastCall.IsZero() {
		fmt.Fprintf(w, "  last call %s\n", s.LastCall.Format("2006-01-02 15:04"))
	}
	for _, section := range []struct {
		name string
		m    map[string]usage.Counts
	}{
		{"By operation", s.ByOperation},
		{"By provider", s.ByProvider},
		{"By model", s.ByModel},
	} {
		if len(section.m) == 0 {
			continue
		}
		fmt.Fprintln(w, "\n"+titleStyle.Render(section.name))
		keys := make([]string, 0, len(section.m))
		for k := range section.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			writeCounts(w, k, section.m[k])
		}
	}
}

func writeCounts(w io.Writer, name string, c usage.Counts) {
	fmt.Fprintf(w, "  %-18s %4d calls  %3d failed  %3d fallbacks (%.0f%%)  avg %v\n",
		name, c.Calls, c.Failures, c.Fallbacks, c.FallbackRate()*100, c.AvgLatency())
}
