// Package stats contains brew journal summaries and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/verte-zerg/pourover/internal/brew"
	"github.com/verte-zerg/pourover/internal/model"
)

const sparkChars = " .:-=+*#%@"

const timeLayout = "2006-01-02 15:04"

// Summary aggregates a set of brews.
type Summary struct {
	Brews          int
	Completed      int
	AvgElapsed     float64
	BrewsByBeans   map[int]int
	TotalWaterUsed int
}

// CompletionRate returns the share of brews that ran to completion.
func (s Summary) CompletionRate() float64 {
	if s.Brews == 0 {
		return 0
	}
	return float64(s.Completed) / float64(s.Brews)
}

// Summarize computes aggregate figures for brews.
func Summarize(brews []model.BrewEntry) Summary {
	s := Summary{BrewsByBeans: map[int]int{}}
	if len(brews) == 0 {
		return s
	}
	var elapsed int
	for _, b := range brews {
		s.Brews++
		if b.Completed {
			s.Completed++
			s.TotalWaterUsed += b.WaterGrams
		}
		elapsed += b.ElapsedSeconds
		s.BrewsByBeans[b.BeansGrams]++
	}
	s.AvgElapsed = float64(elapsed) / float64(s.Brews)
	return s
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderHistory prints one line per brew.
func RenderHistory(w io.Writer, brews []model.BrewEntry) error {
	if len(brews) == 0 {
		_, err := fmt.Fprintln(w, "No brews found.")
		return err
	}
	headers := []string{"Started", "Beans", "Water", "Time", "Result"}
	rows := make([][]string, 0, len(brews))
	for _, b := range brews {
		result := "abandoned"
		if b.Completed {
			result = "done"
		}
		rows = append(rows, []string{
			b.StartedAt.Local().Format(timeLayout),
			fmt.Sprintf("%dg", b.BeansGrams),
			fmt.Sprintf("%dg", b.WaterGrams),
			brew.FormatTime(b.ElapsedSeconds),
			result,
		})
	}
	rightAlign := map[int]bool{1: true, 2: true, 3: true}
	for _, line := range FormatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderSummary prints aggregate figures for brews.
func RenderSummary(w io.Writer, brews []model.BrewEntry) error {
	if len(brews) == 0 {
		return nil
	}
	s := Summarize(brews)
	if _, err := fmt.Fprintln(w, "Summary"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Brews: %d\n", s.Brews); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Completed: %d (%.1f%%)\n", s.Completed, s.CompletionRate()*100); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Avg time: %s\n", brew.FormatTime(int(math.Round(s.AvgElapsed)))); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Water brewed: %dg\n", s.TotalWaterUsed); err != nil {
		return err
	}
	beans := make([]int, 0, len(s.BrewsByBeans))
	for g := range s.BrewsByBeans {
		beans = append(beans, g)
	}
	sort.Ints(beans)
	for _, g := range beans {
		if _, err := fmt.Fprintf(w, "%dg brews: %d\n", g, s.BrewsByBeans[g]); err != nil {
			return err
		}
	}
	elapsed := make([]float64, len(brews))
	for i, b := range brews {
		elapsed[i] = float64(b.ElapsedSeconds)
	}
	_, err := fmt.Fprintf(w, "Trend: %s\n", Sparkline(elapsed))
	return err
}
