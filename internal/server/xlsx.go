package server

import (
	"fmt"
	"io"

	"oss-impact-radar/internal/service"

	"github.com/xuri/excelize/v2"
)

const rankingSheet = "Ranking"

var rankingHeader = []interface{}{
	"rank", "name", "categories", "weighted_score", "stargazers_count",
	"forks_count", "days_since_created", "license", "html_url",
}

// writeRankingWorkbook 把排名表写成 xlsx，第一行是表头，最后附上本次使用的权重
func writeRankingWorkbook(w io.Writer, resp *service.RankResponse) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(rankingSheet)
	if err != nil {
		return fmt.Errorf("new sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}

	if err := f.SetSheetRow(rankingSheet, "A1", &rankingHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		f.SetRowStyle(rankingSheet, 1, 1, style)
	}

	for i, row := range resp.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []interface{}{
			row.Rank,
			row.Repo.Name,
			string(row.Repo.Category),
			row.Score,
			row.Repo.Stars,
			row.Repo.Forks,
			row.Repo.DaysSinceCreated,
			row.Repo.License,
			row.Repo.URL,
		}
		if err := f.SetSheetRow(rankingSheet, cell, &values); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	f.SetColWidth(rankingSheet, "B", "B", 40)

	// 空一行后记录筛选条件，方便复现
	footer := len(resp.Rows) + 3
	meta := [][]interface{}{
		{"category", resp.Category},
		{"preset", resp.Preset},
		{"w_stars", resp.Weights.Stars},
		{"w_forks", resp.Weights.Forks},
		{"w_age", resp.Weights.Age},
	}
	for i, m := range meta {
		cell, _ := excelize.CoordinatesToCellName(1, footer+i)
		if err := f.SetSheetRow(rankingSheet, cell, &m); err != nil {
			return fmt.Errorf("write footer: %w", err)
		}
	}

	return f.Write(w)
}
