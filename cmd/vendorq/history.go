package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"vendorq/internal/blob"
)

func newHistoryCmd(st *state) *cobra.Command {
	var vendorID, output string
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived submission snapshots for a vendor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			vendorID = strings.TrimSpace(vendorID)
			if vendorID == "" {
				return errors.New("--vendor is required")
			}
			a, err := st.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			if a.History == nil {
				return errors.New("submission archive is disabled; set VENDORQ_ARCHIVE_DRIVER")
			}

			snapshots, err := a.History.History(cmd.Context(), vendorID)
			if err != nil {
				return fmt.Errorf("list history: %w", err)
			}
			out := cmd.OutOrStdout()
			switch output {
			case "json":
				if snapshots == nil {
					snapshots = []blob.Info{}
				}
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(snapshots)
			case "table":
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "KEY\tSIZE\tLAST MODIFIED")
				for _, s := range snapshots {
					fmt.Fprintf(tw, "%s\t%d\t%s\n", s.Key, s.Size, s.LastModified.UTC().Format(time.RFC3339))
				}
				fmt.Fprintf(tw, "\n%d snapshot(s) for %s\n", len(snapshots), vendorID)
				return tw.Flush()
			default:
				return fmt.Errorf("unknown output format %q", output)
			}
		},
	}
	cmd.Flags().StringVar(&vendorID, "vendor", "", "vendor id")
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table|json")
	return cmd
}
