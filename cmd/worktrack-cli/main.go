package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"worktrack/internal/dashboard"
	"worktrack/internal/event"
	"worktrack/internal/ipc"
	"worktrack/internal/session"
	"worktrack/internal/stats"
)

var (
	socketPath string
	dbPath     string
)

var rootCmd = &cobra.Command{
	Use:   "worktrack-cli",
	Short: "CLI tool to interact with the WorkTrack daemon",
	Long:  `A command-line interface to clock in and out, take breaks and inspect activity through the running WorkTrack daemon's Unix socket.`,
}

func client() *ipc.Client {
	return ipc.NewClient(socketPath)
}

// sendCommand prints the daemon's answer and exits non-zero on failure.
func sendCommand(cmd ipc.Command) ipc.Response {
	resp, err := client().Send(cmd)
	if err != nil {
		log.Fatalf("Error: %v\nIs the WorkTrack daemon running?", err)
	}
	if !resp.Success {
		fmt.Fprintf(os.Stderr, "Error: %s\n", resp.Message)
		os.Exit(1)
	}
	if resp.Message != "" {
		fmt.Println(resp.Message)
	}
	return resp
}

// call is sendCommand for commands whose data the CLI formats itself.
func call(cmd ipc.Command, out interface{}) {
	if _, err := client().Call(cmd, out); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func printJSON(v interface{}) {
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Println(v)
		return
	}
	fmt.Println(string(pretty))
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check if the WorkTrack daemon is running",
	Run: func(cmd *cobra.Command, args []string) {
		sendCommand(ipc.Command{Name: ipc.CmdPing})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the session state and ledger",
	Run: func(cmd *cobra.Command, args []string) {
		asJSON, _ := cmd.Flags().GetBool("json")
		var st ipc.StatusData
		call(ipc.Command{Name: ipc.CmdGetStatus}, &st)
		if asJSON {
			printJSON(st)
			return
		}
		printStatus(st)
	},
}

func printStatus(st ipc.StatusData) {
	snap := st.Session
	l := snap.Ledger
	fmt.Printf("State:         %s\n", snap.State)
	if snap.BreakEndsAt != nil {
		fmt.Printf("Break ends:    %s (%s left)\n", snap.BreakEndsAt.Local().Format("15:04:05"),
			session.FormatDuration(snap.BreakEndsAt.Sub(st.Now)))
	}
	if snap.InactiveSince != nil {
		fmt.Printf("Inactive since %s\n", snap.InactiveSince.Local().Format("15:04:05"))
	}
	fmt.Printf("Session:       %s\n", session.FormatSeconds(l.SessionTime))
	fmt.Printf("Work:          %s\n", session.FormatSeconds(l.WorkTime))
	fmt.Printf("Normal break:  %s\n", session.FormatSeconds(l.NormalBreakTime))
	fmt.Printf("Office break:  %s\n", session.FormatSeconds(l.OfficeBreakTime))
	fmt.Printf("Inactive:      %s\n", session.FormatSeconds(l.InactiveTime))
	fmt.Printf("Payable:       %s\n", session.FormatSeconds(l.PayableTime))
	if a := st.CurrentActivity; a != nil {
		fmt.Printf("Activity:      %s [%s %d] %s\n", a.Name, a.Category, a.ProductivityScore, a.Title)
	}
}

var clockCmd = &cobra.Command{
	Use:   "clock",
	Short: "Clock in or out",
}

var clockInCmd = &cobra.Command{
	Use:   "in",
	Short: "Start a work session",
	Run: func(cmd *cobra.Command, args []string) {
		sendCommand(ipc.Command{Name: ipc.CmdClockIn})
	},
}

var clockOutCmd = &cobra.Command{
	Use:   "out",
	Short: "End the work session and print the final ledger",
	Run: func(cmd *cobra.Command, args []string) {
		resp := sendCommand(ipc.Command{Name: ipc.CmdClockOut})
		var td ipc.TransitionData
		if err := ipc.MapToStruct(resp.Data, &td); err == nil && td.Ledger != nil {
			printJSON(td.Ledger)
		}
	},
}

var breakCmd = &cobra.Command{
	Use:   "break",
	Short: "Start or end a break",
}

var breakStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a normal or office break (e.g. --kind office --duration 30m)",
	Run: func(cmd *cobra.Command, args []string) {
		kind, _ := cmd.Flags().GetString("kind")
		duration, _ := cmd.Flags().GetString("duration")

		k := session.BreakKind(strings.ToLower(kind))
		if k != session.BreakNormal && k != session.BreakOffice {
			log.Fatalf("Invalid kind: %s. Use 'normal' or 'office'", kind)
		}
		if duration != "" {
			if _, err := time.ParseDuration(duration); err != nil {
				log.Fatalf("Error: Invalid duration format for --duration: %v", err)
			}
		}
		sendCommand(ipc.Command{
			Name: ipc.CmdStartBreak,
			Args: ipc.StartBreakArgs{Kind: k, Duration: duration},
		})
	},
}

var breakEndCmd = &cobra.Command{
	Use:   "end",
	Short: "End the current break early",
	Run: func(cmd *cobra.Command, args []string) {
		sendCommand(ipc.Command{Name: ipc.CmdEndBreak})
	},
}

var resumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Return from inactivity",
	Run: func(cmd *cobra.Command, args []string) {
		sendCommand(ipc.Command{Name: ipc.CmdResume})
	},
}

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "List the session timeline",
	Run: func(cmd *cobra.Command, args []string) {
		var entries []event.TimelineEntry
		call(ipc.Command{Name: ipc.CmdGetTimeline}, &entries)
		if len(entries) == 0 {
			fmt.Println("No timeline entries.")
			return
		}
		for _, e := range entries {
			fmt.Printf("%s  %-16s %s\n", e.Timestamp.Local().Format("2006-01-02 15:04:05"), e.Type, e.Description)
		}
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List closed activities of this daemon run",
	Run: func(cmd *cobra.Command, args []string) {
		var entries []event.ActivityEntry
		call(ipc.Command{Name: ipc.CmdGetHistory}, &entries)
		if len(entries) == 0 {
			fmt.Println("No activity recorded.")
			return
		}
		for _, a := range entries {
			fmt.Printf("%s  %8s  %-20s %-16s %3d  %s\n",
				a.StartTime.Local().Format("15:04:05"), formatDurationHuman(a.Duration),
				a.Name, a.Category, a.ProductivityScore, a.Title)
		}
	},
}

var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the open activity",
	Run: func(cmd *cobra.Command, args []string) {
		resp := sendCommand(ipc.Command{Name: ipc.CmdGetCurrent})
		if resp.Data != nil {
			printJSON(resp.Data)
		}
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Productivity totals, optionally limited to the last --since",
	Run: func(cmd *cobra.Command, args []string) {
		since, _ := cmd.Flags().GetDuration("since")
		var a ipc.StatsArgs
		if since > 0 {
			end := time.Now()
			start := end.Add(-since)
			a = ipc.StatsArgs{Start: &start, End: &end}
		}
		var s stats.Stats
		call(ipc.Command{Name: ipc.CmdGetStats, Args: a}, &s)
		printStats(os.Stdout, s)
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the in-memory activity history",
	Run: func(cmd *cobra.Command, args []string) {
		sendCommand(ipc.Command{Name: ipc.CmdClearHistory})
	},
}

var categoryCmd = &cobra.Command{
	Use:   "category",
	Short: "Manage application categories",
}

var categorySetCmd = &cobra.Command{
	Use:   "set <app> <category>",
	Short: "Override the category and score of an application",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		score, _ := cmd.Flags().GetInt("score")
		sendCommand(ipc.Command{
			Name: ipc.CmdUpdateCategory,
			Args: ipc.UpdateCategoryArgs{Name: args[0], Category: args[1], Score: score},
		})
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream daemon notifications until interrupted",
	Run: func(cmd *cobra.Command, args []string) {
		sub, err := client().Subscribe()
		if err != nil {
			log.Fatalf("Error: %v", err)
		}
		defer sub.Close()
		for {
			n, err := sub.Next()
			if err != nil {
				if err != ipc.ErrConnectionClosed {
					log.Printf("Warning: %v", err)
				}
				return
			}
			fmt.Println(describe(n))
		}
	},
}

func describe(n event.Notification) string {
	ts := n.Timestamp.Local().Format("15:04:05")
	switch {
	case n.Timeline != nil:
		return fmt.Sprintf("%s  %s", ts, n.Timeline.Description)
	case n.Activity != nil:
		return fmt.Sprintf("%s  activity: %s [%s] %s", ts, n.Activity.Name, n.Activity.Category, n.Activity.Title)
	case n.Active != nil:
		return fmt.Sprintf("%s  active: %t", ts, *n.Active)
	case n.Focused != nil:
		return fmt.Sprintf("%s  window focused: %t", ts, *n.Focused)
	}
	return fmt.Sprintf("%s  %s", ts, n.Name)
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive terminal dashboard",
	Run: func(cmd *cobra.Command, args []string) {
		breakLen, _ := cmd.Flags().GetDuration("break")
		if err := dashboard.Run(client(), breakLen); err != nil {
			log.Fatalf("Dashboard error: %v", err)
		}
	},
}

func formatDurationHuman(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}

func main() {
	rootCmd.PersistentFlags().StringVar(&socketPath, "socket", ipc.DefaultSocketPath, "Path to the daemon's Unix socket")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "worktrack.db", "Path to the WorkTrack archive (report only)")

	statusCmd.Flags().Bool("json", false, "Print the raw status as JSON")

	clockCmd.AddCommand(clockInCmd)
	clockCmd.AddCommand(clockOutCmd)
	rootCmd.AddCommand(clockCmd)

	breakStartCmd.Flags().StringP("kind", "k", "normal", "Break kind (normal, office)")
	breakStartCmd.Flags().StringP("duration", "d", "", "Planned length (e.g. '15m'); defaults to the daemon's configured length")
	breakCmd.AddCommand(breakStartCmd)
	breakCmd.AddCommand(breakEndCmd)
	rootCmd.AddCommand(breakCmd)

	statsCmd.Flags().Duration("since", 0, "Only count activity overlapping the last duration (e.g. '8h')")

	categorySetCmd.Flags().IntP("score", "s", 50, "Productivity score 0-100")
	categoryCmd.AddCommand(categorySetCmd)
	rootCmd.AddCommand(categoryCmd)

	dashboardCmd.Flags().Duration("break", 0, "Break length for the b/B keys (default: daemon's configured length)")

	reportCmd.Flags().IntP("days", "n", 7, "Number of past days to include in the report")
	rootCmd.AddCommand(reportCmd)

	rootCmd.AddCommand(pingCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(timelineCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(currentCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(dashboardCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}
