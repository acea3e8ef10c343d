package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/arraypull/internal/collation"
	"github.com/roach88/arraypull/internal/config"
	"github.com/roach88/arraypull/internal/doc"
	"github.com/roach88/arraypull/internal/engine"
	"github.com/roach88/arraypull/internal/oplog"
	"github.com/roach88/arraypull/internal/store"
)

// PullOptions holds flags for the pull command.
type PullOptions struct {
	*RootOptions
	Docs              []string
	Path              string
	Cond              string
	Namespace         string
	Database          string
	Indexes           []string
	CollationLocale   string
	CollationStrength int
	FromReplication   bool
}

// PullDocResult is the outcome for one document.
type PullDocResult struct {
	DocID           string          `json:"doc_id"`
	Noop            bool            `json:"noop"`
	IndexesAffected bool            `json:"indexes_affected"`
	Removed         int             `json:"removed"`
	Document        json.RawMessage `json:"document"`
	Entries         []EntryView     `json:"entries"`

	before string
}

// PullResult holds the pull command output.
type PullResult struct {
	Namespace string          `json:"namespace"`
	Path      string          `json:"path"`
	Documents []PullDocResult `json:"documents"`
}

// NewPullCommand creates the pull command.
func NewPullCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PullOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "pull",
		Short: "Remove matching elements from an array field",
		Long: `Remove every element of the array at --path that matches --cond, in
each document given with --doc. The condition is YAML: a scalar or array
is compared for equality, an object of fields is matched against object
elements, and an object of operators ({$gt: 3}) is applied to each element.

Each document id is its file name without extension. With --db the log
entries are appended to the SQLite oplog.

Exit codes:
  0 - Pull applied (or nothing matched)
  1 - Pull rejected (non-array target, immutable field, bad condition)
  2 - Command error (unreadable files, database errors)

Examples:
  arraypull pull --doc cart.json --path items --cond '{qty: 0}'
  arraypull pull --doc a.yaml --doc b.yaml --path tags --cond '{$in: [old, stale]}'
  arraypull pull --doc users.json --path names --cond alice --collation-locale en --collation-strength 2`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPull(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Docs, "doc", nil, "document file, JSON or YAML (repeatable, required)")
	_ = cmd.MarkFlagRequired("doc")
	cmd.Flags().StringVar(&opts.Path, "path", "", "dotted path of the array (required)")
	_ = cmd.MarkFlagRequired("path")
	cmd.Flags().StringVar(&opts.Cond, "cond", "", "condition in YAML (required)")
	_ = cmd.MarkFlagRequired("cond")
	cmd.Flags().StringVar(&opts.Namespace, "namespace", "", "namespace (default from config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite oplog (default from config)")
	cmd.Flags().StringArrayVar(&opts.Indexes, "index", nil, "indexed path (repeatable)")
	cmd.Flags().StringVar(&opts.CollationLocale, "collation-locale", "", "collation locale, e.g. en")
	cmd.Flags().IntVar(&opts.CollationStrength, "collation-strength", 0, "collation strength 1-3")
	cmd.Flags().BoolVar(&opts.FromReplication, "replicated", false, "mark the update as replicated")

	return cmd
}

func runPull(ctx context.Context, opts *PullOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	f := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if opts.Namespace != "" {
		cfg.Namespace = opts.Namespace
	}
	if opts.Database != "" {
		cfg.Database = opts.Database
	}
	cfg.Indexes = append(cfg.Indexes, opts.Indexes...)

	cond, err := doc.ParseYAML([]byte(opts.Cond))
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --cond", err)
	}

	eng, closeStore, err := openEngine(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var spec *collation.Spec
	if opts.CollationLocale != "" {
		spec = &collation.Spec{Locale: opts.CollationLocale, Strength: opts.CollationStrength}
	}

	reqs := make([]engine.Request, 0, len(opts.Docs))
	results := make([]PullDocResult, 0, len(opts.Docs))
	for _, file := range opts.Docs {
		v, err := readDocument(file)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read document", err)
		}
		before, err := doc.MarshalJSONIndent(v, "  ")
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to render document", err)
		}
		id := docIDFromFile(file)
		reqs = append(reqs, engine.Request{
			Namespace:       cfg.Namespace,
			DocID:           id,
			Document:        doc.NewDocumentFrom(v),
			Path:            opts.Path,
			Condition:       cond,
			Collation:       spec,
			FromReplication: opts.FromReplication,
		})
		results = append(results, PullDocResult{DocID: id, before: string(before)})
	}

	var outcomes []engine.Result
	if len(reqs) == 1 {
		res, perr := eng.Pull(ctx, reqs[0])
		outcomes, err = []engine.Result{res}, perr
	} else {
		outcomes, err = eng.PullMany(ctx, reqs)
	}
	if err != nil {
		return f.Fail("pull failed", err)
	}

	for i, res := range outcomes {
		rendered, err := doc.MarshalJSON(reqs[i].Document.Value())
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to render document", err)
		}
		views, err := newEntryViews(res.Entries)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to render entries", err)
		}
		results[i].Noop = res.Noop
		results[i].IndexesAffected = res.IndexesAffected
		results[i].Removed = res.Removed
		results[i].Document = rendered
		results[i].Entries = views
	}

	out := PullResult{Namespace: cfg.Namespace, Path: opts.Path, Documents: results}
	if opts.Format == "json" {
		return f.Success(out)
	}
	return writePullText(f, out)
}

// openEngine builds the engine and, when a database is configured, its
// store. The engine clock resumes after the last stored seq.
func openEngine(ctx context.Context, cfg config.Config) (*engine.Engine, func(), error) {
	if cfg.Database == "" {
		eng, err := engine.New(cfg, nil)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "invalid configuration", err)
		}
		return eng, func() {}, nil
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	last, err := st.LastSeq(ctx)
	if err != nil {
		st.Close()
		return nil, nil, WrapExitError(ExitCommandError, "failed to read last seq", err)
	}
	eng, err := engine.New(cfg, st, engine.WithClock(oplog.NewClockAt(last)))
	if err != nil {
		st.Close()
		return nil, nil, WrapExitError(ExitCommandError, "invalid configuration", err)
	}
	return eng, func() { st.Close() }, nil
}

func writePullText(f *OutputFormatter, out PullResult) error {
	w := f.Writer
	p := newPalette(w)
	for _, d := range out.Documents {
		if d.Noop {
			fmt.Fprintf(w, "%s %s: nothing to remove from %s\n", p.dim("-"), d.DocID, out.Path)
			continue
		}
		note := ""
		if d.IndexesAffected {
			note = " " + p.warn("(indexes affected)")
		}
		fmt.Fprintf(w, "%s %s: removed %d from %s%s\n", p.ok("✓"), d.DocID, d.Removed, out.Path, note)
		fmt.Fprintf(w, "  %s\n", d.Document)
		for _, e := range d.Entries {
			fmt.Fprintf(w, "  %s\n", p.dim(e.String()))
		}
		if f.Verbose {
			after, err := indent(d.Document)
			if err != nil {
				return err
			}
			fmt.Fprint(f.errWriter(), lineDiff(d.before, after, p))
		}
	}
	return nil
}

func indent(raw json.RawMessage) (string, error) {
	v, err := doc.UnmarshalJSON(raw)
	if err != nil {
		return "", err
	}
	out, err := doc.MarshalJSONIndent(v, "  ")
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(out), "\n"), nil
}
