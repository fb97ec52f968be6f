// Package output provides formatters for CLI output.
package output

import (
	"fmt"
	"io"
	"strings"

	"supatodo/internal/tasks"
)

// EmptyList is printed when there are no tasks.
const EmptyList = "No tasks yet 👀"

// FormatTask formats one task line.
// Format: "{N:>4}  {STATUS:<9}  {TITLE}\n"
func FormatTask(w io.Writer, num int, task tasks.Task) {
	fmt.Fprintf(w, "%4d  %-9s  %s\n", num, tasks.Status(task), normalizeTitle(task.Title))
}

// FormatTasks formats list in order, numbering from 1.
func FormatTasks(w io.Writer, list []tasks.Task) {
	for i, t := range list {
		FormatTask(w, i+1, t)
	}
}

// normalizeTitle normalizes a task title for display.
// - Empty or whitespace-only titles become "(untitled)"
// - Newlines are replaced with spaces
func normalizeTitle(title string) string {
	title = strings.ReplaceAll(title, "\r", " ")
	title = strings.ReplaceAll(title, "\n", " ")

	if strings.TrimSpace(title) == "" {
		return "(untitled)"
	}
	return title
}
