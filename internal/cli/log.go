package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/arraypull/internal/oplog"
	"github.com/roach88/arraypull/internal/store"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Database  string
	Namespace string
	DocID     string
}

// LogResult holds the log command output.
type LogResult struct {
	Entries []EntryView `json:"entries"`
	Total   int         `json:"total"`
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "List stored oplog entries",
		Long: `List the entries of the SQLite oplog in seq order. Every entry is
verified against its stored hash while it is read.

Examples:
  arraypull log --db ./oplog.db
  arraypull log --db ./oplog.db --doc-id cart --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite oplog (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Namespace, "namespace", "", "namespace (default from config; all namespaces without --doc-id)")
	cmd.Flags().StringVar(&opts.DocID, "doc-id", "", "list entries of one document only")

	return cmd
}

func runLog(ctx context.Context, opts *LogOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	var entries []oplog.Entry
	if opts.DocID != "" {
		ns := opts.Namespace
		if ns == "" {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			ns = cfg.Namespace
		}
		entries, err = st.ReadEntries(ctx, ns, opts.DocID)
	} else {
		entries, err = st.ListEntries(ctx, opts.Namespace)
	}
	if err != nil {
		return f.Fail("failed to read entries", err)
	}

	views, err := newEntryViews(entries)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to render entries", err)
	}
	result := LogResult{Entries: views, Total: len(views)}

	if opts.Format == "json" {
		return f.Success(result)
	}
	w := f.Writer
	if len(views) == 0 {
		fmt.Fprintln(w, "No entries found.")
		return nil
	}
	p := newPalette(w)
	for _, v := range views {
		origin := ""
		if v.FromReplication {
			origin = " " + p.dim("(replicated)")
		}
		fmt.Fprintf(w, "%s/%s  %s%s\n", v.Namespace, v.DocID, v, origin)
	}
	fmt.Fprintf(w, "%d entr%s\n", len(views), plural(len(views), "y", "ies"))
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
