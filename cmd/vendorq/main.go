// Command vendorq serves and exercises the vendor ESG questionnaire handler.
//
//	vendorq serve             run the HTTP API
//	vendorq invoke event.json run one Lambda-style event through the dispatcher
//	vendorq migrate           apply the bundled schema, optionally seeding a vendor
//	vendorq fields            print the field catalog
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"vendorq/internal/app"
	"vendorq/internal/config"
	"vendorq/internal/observability"
)

var exitFunc = os.Exit

func main() {
	exitFunc(cli(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// state is shared by every subcommand and filled in by the root pre-run hook.
type state struct {
	envFile  string
	storage  string
	logLevel string

	cfg    *config.Config
	logger *slog.Logger
	closer io.Closer

	// appOptions lets tests swap the credential source.
	appOptions []app.Option
}

func cli(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, opts ...app.Option) int {
	st := &state{appOptions: opts}
	root := newRootCmd(st)
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	if st.closer != nil {
		_ = st.closer.Close()
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd(st *state) *cobra.Command {
	root := &cobra.Command{
		Use:           "vendorq",
		Short:         "Vendor ESG questionnaire handler",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return st.setup(cmd)
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&st.envFile, "env-file", "", "dotenv file to load (default .env when present)")
	flags.StringVar(&st.storage, "storage", "", "storage driver override: memory|sqlite|postgres")
	flags.StringVar(&st.logLevel, "log-level", "", "log level override: debug|info|warn|error")

	root.AddCommand(newServeCmd(st), newInvokeCmd(st), newMigrateCmd(st), newFieldsCmd(st), newHistoryCmd(st))
	return root
}

func (st *state) setup(cmd *cobra.Command) error {
	if st.envFile != "" {
		if err := godotenv.Load(st.envFile); err != nil {
			return fmt.Errorf("load env file: %w", err)
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return fmt.Errorf("load .env: %w", err)
		}
	}
	st.cfg = config.Load()
	if st.storage != "" {
		st.cfg.StorageDriver = strings.ToLower(st.storage)
	}
	if st.logLevel != "" {
		st.cfg.LogLevel = st.logLevel
	}
	logger, closer, err := observability.NewLogger(observability.LogConfig{
		Level:    st.cfg.LogLevel,
		GELFAddr: st.cfg.GELFAddr,
		Service:  "vendorq",
		Output:   cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	st.logger, st.closer = logger, closer
	return nil
}

func (st *state) open(ctx context.Context) (*app.App, error) {
	opts := append([]app.Option{app.WithLogger(st.logger)}, st.appOptions...)
	return app.New(ctx, st.cfg, opts...)
}
