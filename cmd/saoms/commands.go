package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/swaaagray/CvSU-SAOMS-sub006/config"
	"github.com/swaaagray/CvSU-SAOMS-sub006/internal/dto"
	"github.com/swaaagray/CvSU-SAOMS-sub006/pkg/jwt"
)

// CalendarCmd runs the calendar pipeline once.
type CalendarCmd struct{}

func (c *CalendarCmd) Run(cli *CLI) error {
	return runOnce(cli, func(ctx context.Context, a *app) (any, error) {
		return a.svc.Calendar.Run(ctx)
	})
}

// RemindersCmd runs the reminder pipeline once.
type RemindersCmd struct{}

func (c *RemindersCmd) Run(cli *CLI) error {
	return runOnce(cli, func(ctx context.Context, a *app) (any, error) {
		return a.svc.Reminder.Run(ctx)
	})
}

// CleanupCmd deletes notifications of archived organizations and councils once.
type CleanupCmd struct{}

func (c *CleanupCmd) Run(cli *CLI) error {
	return runOnce(cli, func(ctx context.Context, a *app) (any, error) {
		return a.svc.Cleanup.Clean(ctx)
	})
}

// StatsCmd prints the deadline dashboard counters.
type StatsCmd struct{}

func (c *StatsCmd) Run(cli *CLI) error {
	return runOnce(cli, func(ctx context.Context, a *app) (any, error) {
		return a.svc.Statistics.Get(ctx)
	})
}

// TokenCmd signs an access token with the configured secret.
type TokenCmd struct {
	Subject string `arg:"" help:"User id placed in the token subject"`
	Role    string `default:"admin" help:"Role claim"`
}

func (c *TokenCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}
	token, err := jwt.NewManager(&cfg.Auth).GenerateAccessToken(c.Subject, c.Role)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

// runOnce bootstraps, runs fn and prints its result as JSON. A run that reports a
// result together with an error (calendar rollback) still prints the result.
func runOnce(cli *CLI, fn func(ctx context.Context, a *app) (any, error)) error {
	a, err := bootstrap(cli.Config, bootOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := fn(ctx, a)
	if !isNil(result) {
		if perr := printJSON(result); perr != nil {
			return perr
		}
	}
	return err
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func isNil(v any) bool {
	switch r := v.(type) {
	case nil:
		return true
	case *dto.RunResultResponse:
		return r == nil
	case *dto.StatisticsResponse:
		return r == nil
	}
	return false
}
