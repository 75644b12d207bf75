package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/akeren/waitlist-landing/domain/waitlist"
	"github.com/akeren/waitlist-landing/pkg/utils"
	"github.com/spf13/cobra"
)

func openService() (waitlist.WaitlistService, func(), error) {
	db, closeDB, err := openDatabase()
	if err != nil {
		return nil, nil, err
	}

	service := waitlist.NewWaitlistService(logger, waitlist.NewWaitlistRepository(db), waitlist.ServiceOptions{
		TestPatterns: utils.GetEnvList("CLEANUP_TEST_PATTERNS"),
	})

	return service, closeDB, nil
}

func newCleanupCmd() *cobra.Command {
	var apply bool

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Report duplicate, invalid and test rows; --apply removes them",
		RunE: func(cmd *cobra.Command, args []string) error {
			service, closeFn, err := openService()
			if err != nil {
				return err
			}
			defer closeFn()

			run := service.PreviewCleanup
			if apply {
				run = service.ApplyCleanup
			}

			report, err := run(cmd.Context())
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), report)
		},
	}

	cmd.Flags().BoolVar(&apply, "apply", false, "delete the reported rows and normalize the rest")
	return cmd
}

func newExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the waitlist as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			service, closeFn, err := openService()
			if err != nil {
				return err
			}
			defer closeFn()

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}

			return service.Export(cmd.Context(), w)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "file to write; stdout when empty")
	return cmd
}

func newImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Append rows from an exported sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open %s: %w", args[0], err)
			}
			defer f.Close()

			service, closeFn, err := openService()
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := service.Import(cmd.Context(), f)
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), result)
		},
	}

	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
