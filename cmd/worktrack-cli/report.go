package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"worktrack/internal/event"
	"worktrack/internal/stats"

	sqlitestore "worktrack/internal/storage/sqlite"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00D7D7"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080"))
	goodStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FD75F"))
	badStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
)

// reportCmd reads the archive directly, so it works without the daemon.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize archived sessions and activity from the database",
	Run: func(cmd *cobra.Command, args []string) {
		days, _ := cmd.Flags().GetInt("days")
		if err := runReport(os.Stdout, dbPath, days, time.Now()); err != nil {
			log.Fatalf("Error: %v", err)
		}
	},
}

// runReport prints the sessions and activity of the days before now. Every
// failure is returned so the store is closed before the caller exits.
func runReport(w io.Writer, path string, days int, now time.Time) error {
	if days < 1 {
		return errors.New("--days must be at least 1")
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("database file not found at %s. Ensure the worktrack daemon has run or specify path with --db", path)
	} else if err != nil {
		return fmt.Errorf("accessing database file %s: %w", path, err)
	}

	endTime := now
	startTime := endTime.AddDate(0, 0, -days)

	store := sqlitestore.NewSQLiteStore(path)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return fmt.Errorf("failed to initialize storage connection: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Warning: closing database: %v", err)
		}
	}()

	sessions, err := store.GetEvents(ctx, startTime, endTime, event.EventTypeClockOut)
	if err != nil {
		return fmt.Errorf("failed to fetch sessions: %w", err)
	}
	activities, err := store.GetActivities(ctx, startTime, endTime)
	if err != nil {
		return fmt.Errorf("failed to fetch activities: %w", err)
	}

	fmt.Fprintln(w, headingStyle.Render(fmt.Sprintf("WorkTrack report %s to %s",
		startTime.Format("2006-01-02"), endTime.Format("2006-01-02"))))
	fmt.Fprintln(w)

	fmt.Fprintln(w, headingStyle.Render("Sessions"))
	if len(sessions) == 0 {
		fmt.Fprintln(w, dimStyle.Render("  No completed sessions."))
	}
	for _, s := range sessions {
		fmt.Fprintf(w, "  %s  %s\n", dimStyle.Render(s.Timestamp.Local().Format("2006-01-02 15:04")), s.Notes)
	}
	fmt.Fprintln(w)

	window := &stats.Window{Start: startTime, End: endTime}
	printStats(w, stats.Compute(activities, window))
	return nil
}

func printStats(w io.Writer, s stats.Stats) {
	fmt.Fprintln(w, headingStyle.Render("Activity"))
	if s.Entries == 0 {
		fmt.Fprintln(w, dimStyle.Render("  No activity recorded."))
		return
	}
	fmt.Fprintf(w, "  Total:        %s (%d entries)\n", formatDurationHuman(s.TotalTime), s.Entries)
	fmt.Fprintf(w, "  Productive:   %s\n", goodStyle.Render(formatDurationHuman(s.ProductiveTime)))
	fmt.Fprintf(w, "  Neutral:      %s\n", formatDurationHuman(s.NeutralTime))
	fmt.Fprintf(w, "  Unproductive: %s\n", badStyle.Render(formatDurationHuman(s.UnproductiveTime)))
	fmt.Fprintf(w, "  Avg score:    %.1f\n", s.AverageProductivityScore)

	printBreakdown(w, "By category", s.CategoryBreakdown)
	printBreakdown(w, "By application", s.ApplicationBreakdown)
}

func printBreakdown(w io.Writer, title string, m map[string]time.Duration) {
	type kv struct {
		name string
		d    time.Duration
	}
	rows := make([]kv, 0, len(m))
	for k, v := range m {
		rows = append(rows, kv{k, v})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].d != rows[j].d {
			return rows[i].d > rows[j].d
		}
		return rows[i].name < rows[j].name
	})

	fmt.Fprintln(w)
	fmt.Fprintln(w, headingStyle.Render(title))
	for _, r := range rows {
		fmt.Fprintf(w, "  %-24s %s\n", r.name, formatDurationHuman(r.d))
	}
}
