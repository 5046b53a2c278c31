package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"vendorq/internal/questionnaire"
)

func newFieldsCmd(st *state) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "fields",
		Short: "Print the questionnaire field catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := questionnaire.LoadCatalog(st.cfg.FieldsFile)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch output {
			case "yaml":
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(map[string]questionnaire.Catalog{"fields": catalog}); err != nil {
					return err
				}
				return enc.Close()
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(catalog)
			case "table":
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "FIELD\tSECTION\tQUESTION\tREQUIRED")
				for _, f := range catalog {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%t\n", f.Name, f.Section, f.Question, f.Required)
				}
				fmt.Fprintf(tw, "\n%d fields, %d required\n", len(catalog), catalog.Required())
				return tw.Flush()
			default:
				return fmt.Errorf("unknown output format %q", output)
			}
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "table", "output format: table|yaml|json")
	return cmd
}
