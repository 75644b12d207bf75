package main

import (
	"context"
	"fmt"
	"time"

	"github.com/akeren/waitlist-landing/pkg/cascade"
	"github.com/spf13/cobra"
)

func newSubmitCmd() *cobra.Command {
	var (
		baseURL    string
		userAgent  string
		strict     bool
		timeout    time.Duration
		background time.Duration
	)

	cmd := &cobra.Command{
		Use:   "submit <email>",
		Short: "Submit an email through the same transport cascade as the landing page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := cascade.DefaultConfig(baseURL)
			cfg.Optimistic = !strict
			cfg.BackgroundTimeout = background
			cfg.Logger = logger
			if userAgent != "" {
				cfg.UserAgent = userAgent
			}

			client, err := cascade.NewClient(cfg)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			result, err := client.Submit(ctx, args[0])
			if err != nil {
				return err
			}
			// Let fire-and-forget requests finish before the process exits.
			client.Wait()

			if err := printJSON(cmd.OutOrStdout(), result); err != nil {
				return err
			}
			if result.Outcome == cascade.OutcomeFailed {
				return fmt.Errorf("submission failed for %s", result.Email)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "base URL of the waitlist server")
	cmd.Flags().StringVar(&userAgent, "user-agent", "", "User-Agent to classify and send")
	cmd.Flags().BoolVar(&strict, "strict", false, "treat an error on the final transport as failed")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "overall deadline")
	cmd.Flags().DurationVar(&background, "background-timeout", 15*time.Second, "deadline for requests that outlive their step")

	return cmd
}
