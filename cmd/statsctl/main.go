// Command statsctl prints, exports and resets the gameplay counters using the
// same storage configuration as the server.
package main

import (
	"context"
	"fmt"
	"os"

	"gamestats/internal/config"
	"gamestats/internal/logger"
	"gamestats/internal/stats"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	// Keep stdout for reports.
	logger.Init(logger.Config{Level: "warn", Format: cfg.LogFormat, ServiceName: "statsctl", Environment: cfg.Environment})

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx := context.Background()
	svc := stats.Open(ctx, cfg, nil)
	defer svc.Close()

	if err := run(ctx, svc, cfg.AdminKey, os.Args[1], os.Args[2:]); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		svc.Close()
		os.Exit(1)
	}
}

func run(ctx context.Context, svc *stats.Service, adminKey, cmd string, args []string) error {
	switch cmd {
	case "show", "summary":
		view, err := svc.GetSummary(ctx)
		if err != nil {
			return err
		}
		printSummary(os.Stdout, view)
		return nil
	case "report":
		view, err := svc.GetSummary(ctx)
		if err != nil {
			return err
		}
		return writeReport(os.Stdout, buildReport(view.Stats, now()))
	case "export":
		view, err := svc.GetSummary(ctx)
		if err != nil {
			return err
		}
		name := ""
		if len(args) > 0 {
			name = args[0]
		}
		path, err := exportReport(name, buildReport(view.Stats, now()))
		if err != nil {
			return err
		}
		fmt.Println("report written to", path)
		return nil
	case "reset":
		if len(args) == 0 || args[0] != "--confirm" {
			return fmt.Errorf("reset needs --confirm, e.g. statsctl reset --confirm")
		}
		if err := svc.ResetAll(ctx, adminKey, stats.ResetConfirmation); err != nil {
			return fmt.Errorf("reset failed (is ADMIN_KEY set?): %w", err)
		}
		fmt.Println("statistics reset")
		return nil
	case "help", "-h", "--help":
		printUsage()
		return nil
	default:
		printUsage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func printUsage() {
	fmt.Println("Usage: statsctl <command> [args...]")
	fmt.Println("Commands:")
	fmt.Println("  show, summary     Print a summary of the counters")
	fmt.Println("  report            Print a detailed JSON report")
	fmt.Println("  export [file]     Write the report to a file (default game_stats_report_<date>.json)")
	fmt.Println("  reset --confirm   Zero every counter")
}
