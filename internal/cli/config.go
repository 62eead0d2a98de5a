package cli

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/mcnap-project/mcnap/internal/db"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE:  runConfigShow,
}

var sessionsLimit int

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "List recent activation sessions",
	RunE:  runSessions,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	rootCmd.AddCommand(configCmd)

	sessionsCmd.Flags().IntVar(&sessionsLimit, "limit", 20, "number of sessions to show")
	rootCmd.AddCommand(sessionsCmd)
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Configuration:", cfg.Path())
	fmt.Println()

	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"Setting", "Value"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)

	onOff := func(b bool) string {
		if b {
			return "enabled"
		}
		return "disabled"
	}

	tw.Append([]string{"MOTD", fmt.Sprintf("%s (%s, bold=%t)", cfg.Motd.Text, cfg.Motd.Color, cfg.Motd.Bold)})
	tw.Append([]string{"Connection message", fmt.Sprintf("%s (%s, bold=%t)", cfg.ConnectionMsg.Text, cfg.ConnectionMsg.Color, cfg.ConnectionMsg.Bold)})
	tw.Append([]string{"Server icon", cfg.IconPath()})
	tw.Append([]string{"RCON host", cfg.Rcon.Host})
	tw.Append([]string{"Poll interval", fmt.Sprintf("%ds", cfg.Rcon.PollIntervalSec)})
	tw.Append([]string{"Idle timeout", fmt.Sprintf("%ds", cfg.Rcon.IdleTimeoutSec)})
	tw.Append([]string{"Status API", fmt.Sprintf("%s (port %d)", onOff(cfg.API.Enabled), cfg.API.Port)})
	tw.Append([]string{"Telemetry", onOff(cfg.Telemetry.Enabled)})
	tw.Append([]string{"Session journal", fmt.Sprintf("%s (%s)", onOff(cfg.Journal.Enabled), cfg.Journal.Path)})
	tw.Append([]string{"Log level", cfg.Logging.Level})

	tw.Render()
	fmt.Println()

	return nil
}

func runSessions(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if !cfg.Journal.Enabled {
		return fmt.Errorf("session journal is disabled in %s", cfg.Path())
	}

	database, err := db.NewDatabase(cfg.Journal.Path)
	if err != nil {
		return err
	}
	defer database.Close()

	sessions, err := database.RecentSessions(sessionsLimit)
	if err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions recorded yet.")
		return nil
	}

	fmt.Println()

	tw := tablewriter.NewWriter(os.Stdout)
	tw.SetHeader([]string{"ID", "Activated By", "Started", "Duration", "Stop Reason", "Exit", "Peak"})
	tw.SetBorder(true)
	tw.SetAutoWrapText(false)

	for _, s := range sessions {
		duration := "-"
		reason := "running"
		exitCode := "-"
		if s.StoppedAt != nil {
			duration = s.StoppedAt.Sub(s.StartedAt).Round(time.Second).String()
			reason = s.StopReason
		}
		if s.ExitCode != nil {
			exitCode = strconv.Itoa(*s.ExitCode)
		}

		tw.Append([]string{
			strconv.FormatInt(s.ID, 10),
			s.ActivatedBy,
			s.StartedAt.Local().Format("2006-01-02 15:04:05"),
			duration,
			reason,
			exitCode,
			strconv.Itoa(s.PeakPlayers),
		})
	}

	tw.Render()
	fmt.Println()

	return nil
}
