package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	adapter "vendorq/internal/adapters/questionnaire"
)

func newInvokeCmd(st *state) *cobra.Command {
	var vendorID, method, body string
	cmd := &cobra.Command{
		Use:   "invoke [event.json|-]",
		Short: "Run one API Gateway style event through the dispatcher",
		Long: "Reads an event ({httpMethod, pathParameters, body}) from a file or stdin,\n" +
			"or builds one from --vendor/--method/--body, and prints the response.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req adapter.Request
			if len(args) == 1 {
				raw, err := readEvent(cmd.InOrStdin(), args[0])
				if err != nil {
					return err
				}
				if err := json.Unmarshal(raw, &req); err != nil {
					return fmt.Errorf("decode event: %w", err)
				}
			} else {
				if vendorID == "" {
					return fmt.Errorf("an event file or --vendor is required")
				}
				req = adapter.Request{HTTPMethod: method, PathParameters: map[string]string{"vendor_id": vendorID}}
				if body != "" {
					encoded, err := json.Marshal(body)
					if err != nil {
						return err
					}
					req.Body = encoded
				}
			}

			a, err := st.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			resp := a.Dispatcher.Handle(cmd.Context(), req)
			return printResponse(cmd.OutOrStdout(), resp)
		},
	}
	cmd.Flags().StringVar(&vendorID, "vendor", "", "vendor id when no event file is given")
	cmd.Flags().StringVar(&method, "method", http.MethodGet, "HTTP method when no event file is given")
	cmd.Flags().StringVar(&body, "body", "", "JSON form body when no event file is given")
	return cmd
}

func readEvent(stdin io.Reader, name string) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	raw, err := os.ReadFile(name) // #nosec G304: operator-supplied event file
	if err != nil {
		return nil, fmt.Errorf("read event: %w", err)
	}
	return raw, nil
}

func statusColor(code int) *color.Color {
	switch {
	case code >= 500:
		return color.New(color.FgRed, color.Bold)
	case code >= 400:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgGreen)
	}
}

func printResponse(w io.Writer, resp adapter.Response) error {
	if _, err := statusColor(resp.StatusCode).Fprintf(w, "%d %s\n", resp.StatusCode, http.StatusText(resp.StatusCode)); err != nil {
		return err
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, []byte(resp.Body), "", "  "); err != nil {
		_, err = fmt.Fprintln(w, resp.Body)
		return err
	}
	_, err := fmt.Fprintln(w, pretty.String())
	return err
}
