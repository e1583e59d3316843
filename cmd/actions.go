package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"

	"github.com/ftahirops/healtop/model"
	"github.com/ftahirops/healtop/ui"
)

func (a *app) statusCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print one status snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			snap, err := c.Status(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(snap)
			}

			m := snap.Status
			fmt.Fprintf(out, "CPU     %5.1f%%  %s\n", m.CPU, bandOf(m.CPU))
			fmt.Fprintf(out, "Memory  %5.1f%%  %s\n", m.Memory, bandOf(m.Memory))
			fmt.Fprintf(out, "Disk    %5.1f%%  %s\n", m.Disk, bandOf(m.Disk))
			if al := snap.PendingAlert; al != nil {
				fmt.Fprintf(out, "\nPending alert: %s - %s (severity %s, threshold %s)\n",
					al.DisplayType(), al.CurrentUsage, al.Severity, al.Threshold)
				for i, f := range snap.LargeFiles {
					if i == 5 {
						break
					}
					fmt.Fprintf(out, "  %-60s %s\n", f.Path, f.Size)
				}
			} else {
				fmt.Fprintln(out, "\nNo active alerts")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the raw snapshot as JSON")
	return cmd
}

func (a *app) historyCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print recent remediation actions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			items, err := c.History(cmd.Context())
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = a.cfg.HistoryLimit
			}
			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "No actions yet")
				return nil
			}
			for i, it := range items {
				if i == limit {
					break
				}
				fmt.Fprintf(out, "%s %-28s %s\n", ui.HistoryIcon(it.Type), it.Type, ui.HistoryTime(it.Timestamp))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "entries to show (default from config)")
	return cmd
}

func (a *app) dismissCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "dismiss",
		Short: "Dismiss the pending alert without taking action",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			if !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Dismiss this alert without taking action?") {
				return errors.New("dismiss cancelled")
			}
			msg, err := c.Dismiss(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func bandOf(pct float64) string {
	return model.Classify(pct).String()
}
