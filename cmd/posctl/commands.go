package main

import (
	"context"
	"fmt"
	"os"

	"go-pos-ledger/internal/app"
	"go-pos-ledger/internal/model"
	"go-pos-ledger/internal/service"

	"github.com/spf13/cobra"
)

// Opener bootstraps the application for one command.
type Opener func(ctx context.Context) (*app.App, error)

// RootOptions holds state shared by every subcommand.
type RootOptions struct {
	open Opener
	app  *app.App
}

// NewRootCommand creates the posctl command tree.
func NewRootCommand(open Opener) *cobra.Command {
	opts := &RootOptions{open: open}

	cmd := &cobra.Command{
		Use:           "posctl",
		Short:         "Maintenance commands for the POS ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			opts.app = a
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.app == nil || opts.app.DB == nil {
				return nil
			}
			return opts.app.Close()
		},
	}

	cmd.AddCommand(newResetAdminCommand(opts))
	cmd.AddCommand(newStockReportCommand(opts))
	cmd.AddCommand(newRecalculateCommand(opts))
	cmd.AddCommand(newExportBackupCommand(opts))
	cmd.AddCommand(newImportBackupCommand(opts))
	return cmd
}

func newResetAdminCommand(opts *RootOptions) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "reset-admin",
		Short: "Reset the admin password, recreating the admin if it is missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			auth := service.NewAuthService(opts.app.Pos, opts.app.Log)
			if err := auth.ResetAdminPassword(cmd.Context(), password); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Password for %s has been reset\n", model.DefaultAdminUsername)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", model.DefaultAdminPassword, "new admin password")
	return cmd
}

func newStockReportCommand(opts *RootOptions) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "stock-report",
		Short: "Compare cached stock with the ledger and list drifted products",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv := service.NewInventoryService(opts.app.Pos, service.NopPublisher(), opts.app.Log)
			report := inv.StockReport()
			lines := report.Drifted()
			if all {
				lines = report.Lines
			}
			printStockLines(cmd, lines)
			fmt.Fprintf(cmd.OutOrStdout(), "%d of %d products drifted\n", len(report.Drifted()), len(report.Lines))
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "list every product, not only drifted ones")
	return cmd
}

func printStockLines(cmd *cobra.Command, lines []service.StockLine) {
	out := cmd.OutOrStdout()
	for _, l := range lines {
		status := "ok"
		if !l.Matched {
			status = "DRIFT"
		}
		fmt.Fprintf(out, "%-5s %s: in=%d sold=%d out=%d computed=%d cached=%d\n",
			status, l.Name, l.TotalIn, l.TotalSold, l.TotalOut, l.Computed, l.Cached)
	}
}

func newRecalculateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recalculate-stock",
		Short: "Rewrite every product's stock from the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			inv := service.NewInventoryService(opts.app.Pos, service.NopPublisher(), opts.app.Log)
			report, err := inv.RecalculateStock(cmd.Context(), service.SystemActor())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recalculated %d products\n", len(report.Lines))
			return nil
		},
	}
}

func newExportBackupCommand(opts *RootOptions) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export-backup",
		Short: "Write the pos dataset to a backup file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			backup := service.NewBackupService(opts.app.Pos, service.NopPublisher(), opts.app.Log)
			body, err := backup.Export(cmd.Context())
			if err != nil {
				return err
			}
			if output == "" {
				output = service.BackupFileName(model.DefaultAdminUsername, opts.app.Pos.Now())
			}
			if err := os.WriteFile(output, body, 0o600); err != nil {
				return fmt.Errorf("write backup: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default pos_backup_admin_<timestamp>.json)")
	return cmd
}

func newImportBackupCommand(opts *RootOptions) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "import-backup",
		Short: "Merge a backup file into the pos dataset",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("read backup: %w", err)
			}
			backup := service.NewBackupService(opts.app.Pos, service.NopPublisher(), opts.app.Log)
			res, err := backup.Import(cmd.Context(), service.SystemActor(), raw)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, m := range res.Collections() {
				fmt.Fprintf(out, "%-10s added=%d updated=%d\n", m.Name, m.Added, m.Updated)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "file", "f", "", "backup file to merge")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
