// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/atotto/clipboard"
	"github.com/fatih/color"
	"github.com/naka-gawa/github-digest/internal/calendar"
	"github.com/naka-gawa/github-digest/internal/config"
	"github.com/naka-gawa/github-digest/internal/gateway"
	"github.com/naka-gawa/github-digest/internal/render"
	"github.com/naka-gawa/github-digest/internal/ticket"
	"github.com/naka-gawa/github-digest/internal/usecase"
	"github.com/spf13/cobra"
)

var dailyCmd = &cobra.Command{
	Use:   "daily [date]",
	Short: "Prints the activity digest of one day",
	Long: `Prints the pull requests you opened, reviewed or commented on, and the branches you
committed to on one day. The date may be YYYY-MM-DD, DD-MM-YYYY, "today" or "yesterday";
it defaults to the previous working day.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		verbose, _ := cmd.InheritedFlags().GetBool("verbose")
		logger := log.New(io.Discard, "", log.LstdFlags) // Default: discard all logs.
		if verbose {
			logger.SetOutput(os.Stderr) // If verbose, log to standard error.
		}

		configPath, _ := cmd.InheritedFlags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
			os.Exit(1)
		}
		loc, _ := cfg.Location() // Already validated by Load.

		// The date bounds every query, so it is resolved before anything else.
		raw := ""
		if len(args) == 1 {
			raw = args[0]
		}
		date, err := calendar.Parse(raw, time.Now().In(loc))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if org, _ := cmd.Flags().GetString("org"); org != "" {
			cfg.GitHub.Org = org
		}
		if user, _ := cmd.Flags().GetString("user"); user != "" {
			cfg.GitHub.User = user
		}
		if cmd.Flags().Changed("format") {
			cfg.Format, _ = cmd.Flags().GetString("format")
		}
		copyOut, _ := cmd.Flags().GetBool("copy")

		if cfg.GitHub.Token == "" {
			fmt.Fprintln(os.Stderr, "Error: GITHUB_TOKEN environment variable is not set.")
			os.Exit(1)
		}
		pattern, err := ticket.New(cfg.Ticket.Prefix)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		renderer, err := render.New(cfg.Format, render.Options{Color: !color.NoColor})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		// Inject dependencies and run the main business logic.
		githubGateway, err := gateway.NewGitHubGateway(cfg.GitHub.Token, cfg.Concurrency, logger)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create GitHub gateway: %v\n", err)
			os.Exit(1)
		}
		var tickets gateway.TicketLookup = gateway.BareTickets{}
		if cfg.HasTicketSystem() {
			tickets = gateway.NewLinearGateway(cfg.Ticket.APIURL, cfg.Ticket.Token, pattern, logger)
		}
		digest := usecase.NewDigest(githubGateway, tickets, pattern, loc, cfg.Concurrency, logger)

		report, err := digest.Build(ctx, usecase.Request{Date: date, User: cfg.GitHub.User, Org: cfg.GitHub.Org})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to build digest: %v\n", err)
			os.Exit(1)
		}

		if err := renderer.Render(os.Stdout, report); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render digest: %v\n", err)
			os.Exit(1)
		}

		if copyOut {
			// The clipboard always gets the uncoloured rendition.
			plain := renderer
			if cfg.Format == "text" {
				plain = render.NewText(render.Options{Color: false})
			}
			var buf bytes.Buffer
			if err := plain.Render(&buf, report); err == nil {
				if err := clipboard.WriteAll(buf.String()); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: could not copy to clipboard: %v\n", err)
				} else {
					fmt.Fprintln(os.Stderr, "Copied to clipboard.")
				}
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(dailyCmd)
	dailyCmd.Flags().StringP("org", "o", "", "Only report activity in this GitHub organization")
	dailyCmd.Flags().StringP("user", "u", "", "GitHub user to report on (default: owner of the token)")
	dailyCmd.Flags().StringP("format", "f", config.DefaultFormat, fmt.Sprintf("Output format, one of %v", render.Formats))
	dailyCmd.Flags().BoolP("copy", "c", false, "Also copy the digest to the clipboard")
}
