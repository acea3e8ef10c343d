package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/arraypull/internal/doc"
	"github.com/roach88/arraypull/internal/oplog"
	"github.com/roach88/arraypull/internal/store"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database  string
	Doc       string
	DocID     string
	Namespace string
	AfterSeq  int64
}

// ReplayResult holds the replay command output.
type ReplayResult struct {
	DocID    string          `json:"doc_id"`
	Applied  int             `json:"applied"`
	LastSeq  int64           `json:"last_seq"`
	Document json.RawMessage `json:"document"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Apply stored oplog entries to a replica document",
		Long: `Read the stored entries of one document and apply them to a replica
copy as JSON Patch replace operations. Rebuilding a document from an
earlier copy yields the same arrays the original pulls produced.

Exit codes:
  0 - Entries applied
  1 - An entry could not be applied (missing parent object)
  2 - Command error (database not found, unreadable document)

Examples:
  arraypull replay --db ./oplog.db --doc replica/cart.json --doc-id cart
  arraypull replay --db ./oplog.db --doc cart.json --doc-id cart --after 12`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite oplog (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Doc, "doc", "", "replica document file (required)")
	_ = cmd.MarkFlagRequired("doc")
	cmd.Flags().StringVar(&opts.DocID, "doc-id", "", "document id (default: file name without extension)")
	cmd.Flags().StringVar(&opts.Namespace, "namespace", "", "namespace (default from config)")
	cmd.Flags().Int64Var(&opts.AfterSeq, "after", 0, "apply only entries with seq greater than this")

	return cmd
}

func runReplay(ctx context.Context, opts *ReplayOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout(), Verbose: opts.Verbose}

	ns := opts.Namespace
	if ns == "" {
		cfg, err := opts.loadConfig()
		if err != nil {
			return err
		}
		ns = cfg.Namespace
	}
	docID := opts.DocID
	if docID == "" {
		docID = docIDFromFile(opts.Doc)
	}

	if _, err := os.Stat(opts.Database); err != nil {
		return WrapExitError(ExitCommandError, "database not found", err)
	}
	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	v, err := readDocument(opts.Doc)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read document", err)
	}
	replica, err := doc.MarshalJSON(v)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to render document", err)
	}

	stored, err := st.ReadEntries(ctx, ns, docID)
	if err != nil {
		return f.Fail("failed to read entries", err)
	}
	entries := make([]oplog.Entry, 0, len(stored))
	for _, e := range stored {
		if e.Seq > opts.AfterSeq {
			entries = append(entries, e)
		}
	}

	out, err := oplog.Replay(replica, entries)
	if err != nil {
		if werr := f.Error("REPLAY_FAILED", err.Error(), nil); werr != nil {
			return werr
		}
		return &ExitError{Code: ExitFailure, Message: "replay failed", Err: err, reported: true}
	}

	result := ReplayResult{DocID: docID, Applied: len(entries), LastSeq: opts.AfterSeq, Document: out}
	if len(entries) > 0 {
		result.LastSeq = entries[len(entries)-1].Seq
	}
	f.VerboseLog("replayed %d entries onto %s", len(entries), opts.Doc)

	if opts.Format == "json" {
		return f.Success(result)
	}
	w := f.Writer
	fmt.Fprintf(w, "%s: applied %d entr%s (last seq %d)\n", docID, result.Applied, plural(result.Applied, "y", "ies"), result.LastSeq)
	fmt.Fprintf(w, "  %s\n", result.Document)
	return nil
}
