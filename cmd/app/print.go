package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"oss-impact-radar/internal/service"
)

// printRanking 用对齐的表格打印排名
func printRanking(w io.Writer, resp *service.RankResponse) error {
	fmt.Fprintf(w, "📊 %s · %s (stars=%.1f forks=%.1f age=%.1f)\n",
		resp.Category, resp.Preset, resp.Weights.Stars, resp.Weights.Forks, resp.Weights.Age)

	if len(resp.Rows) == 0 {
		fmt.Fprintln(w, "📭 没有符合条件的项目")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "#\tName\tCategory\tScore\tStars\tForks\tDays\t")
	for _, r := range resp.Rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.1f\t%d\t%d\t%d\t\n",
			r.Rank, r.Repo.Name, r.Repo.Category, r.Score, r.Repo.Stars, r.Repo.Forks, r.Repo.DaysSinceCreated)
	}
	return tw.Flush()
}
