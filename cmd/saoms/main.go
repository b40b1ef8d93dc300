package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
)

// CLI is the saoms command line.
type CLI struct {
	Config string `short:"c" help:"Configuration file (default: ./config/config.yaml or ./config.yaml)" type:"path"`

	Calendar  CalendarCmd  `cmd:"" help:"Recompute academic year and semester statuses and apply the archival cascade"`
	Reminders RemindersCmd `cmd:"" help:"Send reminders for resubmission deadlines inside the lookahead window"`
	Cleanup   CleanupCmd   `cmd:"" help:"Delete notifications owned by archived entities"`
	Stats     StatsCmd     `cmd:"" help:"Print resubmission deadline statistics"`
	Serve     ServeCmd     `cmd:"" help:"Run the scheduler and the admin HTTP API"`
	Token     TokenCmd     `cmd:"" help:"Issue an admin access token for the HTTP API"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("saoms"),
		kong.Description("CvSU SAOMS maintenance: academic calendar lifecycle and resubmission deadline reminders."),
		kong.UsageOnError(),
	)

	if err := kctx.Run(&cli); err != nil {
		fmt.Fprintf(os.Stderr, "saoms %s: %v\n", kctx.Command(), err)
		os.Exit(1)
	}
}
