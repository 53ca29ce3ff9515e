package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"subtrans/internal/history"
	"subtrans/internal/pipeline"
)

func renderOutcomeTable(report pipeline.Report) string {
	rows := make([][]string, 0, len(report.Outcomes))
	for _, o := range report.Outcomes {
		output := ""
		if o.OutputPath != "" {
			output = filepath.Base(o.OutputPath)
		}
		rows = append(rows, []string{
			o.Name,
			truncate(o.Label(), 60),
			strconv.Itoa(o.Entries),
			strconv.Itoa(o.Chunks),
			strconv.Itoa(o.Attempts),
			formatDuration(o.Duration),
			output,
		})
	}
	return renderTable([]column{
		{title: "File"},
		{title: "Status"},
		{title: "Entries", numeric: true},
		{title: "Chunks", numeric: true},
		{title: "Attempts", numeric: true},
		{title: "Duration", numeric: true},
		{title: "Output"},
	}, rows)
}

func summaryLine(report pipeline.Report) string {
	written, withFallbacks, failed := report.Counts()
	parts := []string{
		fmt.Sprintf("%d written", written),
		fmt.Sprintf("%d with fallbacks", withFallbacks),
		fmt.Sprintf("%d failed", failed),
	}
	line := fmt.Sprintf("Run %s: %s in %s", shortID(report.RunID), strings.Join(parts, ", "),
		formatDuration(report.Finished.Sub(report.Started)))
	if report.Aborted {
		line += " (aborted)"
	}
	return line
}

func renderRunsTable(runs []history.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			run.StartedAt.Local().Format("2006-01-02 15:04"),
			string(run.Status),
			run.SourceLanguage + " → " + run.TargetLanguage,
			run.Model,
			strconv.Itoa(run.Files),
			strconv.Itoa(run.Written),
			strconv.Itoa(run.Failed),
			strconv.Itoa(run.Fallbacks),
			formatDuration(run.Duration()),
		})
	}
	return renderTable([]column{
		{title: "Run"},
		{title: "Started"},
		{title: "Status"},
		{title: "Languages"},
		{title: "Model"},
		{title: "Files", numeric: true},
		{title: "Written", numeric: true},
		{title: "Failed", numeric: true},
		{title: "Fallbacks", numeric: true},
		{title: "Duration", numeric: true},
	}, rows)
}

func renderFilesTable(files []history.FileRecord) string {
	rows := make([][]string, 0, len(files))
	for _, f := range files {
		status := f.Status
		if f.Reason != "" {
			status += ": " + truncate(f.Reason, 50)
		}
		rows = append(rows, []string{
			f.Name,
			status,
			strconv.Itoa(f.Entries),
			strconv.Itoa(f.Chunks),
			strconv.Itoa(f.Fallbacks),
			strconv.Itoa(f.Attempts),
			formatDuration(f.Duration),
		})
	}
	return renderTable([]column{
		{title: "File"},
		{title: "Status"},
		{title: "Entries", numeric: true},
		{title: "Chunks", numeric: true},
		{title: "Fallbacks", numeric: true},
		{title: "Attempts", numeric: true},
		{title: "Duration", numeric: true},
	}, rows)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
