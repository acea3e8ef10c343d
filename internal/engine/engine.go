package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/arraypull/internal/collation"
	"github.com/roach88/arraypull/internal/config"
	"github.com/roach88/arraypull/internal/doc"
	"github.com/roach88/arraypull/internal/index"
	"github.com/roach88/arraypull/internal/oplog"
	"github.com/roach88/arraypull/internal/path"
	"github.com/roach88/arraypull/internal/pull"
)

// Request describes one pull against one document.
type Request struct {
	// Namespace defaults to the configured namespace.
	Namespace string

	DocID string

	// Document is modified in place.
	Document *doc.Document

	// Path is the dotted path of the target array.
	Path string

	// Condition selects the elements to remove.
	Condition doc.Value

	// Collation overrides the configured collation when set.
	Collation *collation.Spec

	// FromReplication marks updates replayed from another node's log.
	FromReplication bool
}

// Result reports the outcome of a pull.
type Result struct {
	Noop            bool
	IndexesAffected bool
	Removed         int

	// Entries are the log entries appended for the pull. Empty for a noop.
	Entries []oplog.Entry
}

// batchSink is implemented by sinks that can append atomically, such as
// *store.Store.
type batchSink interface {
	AppendAll(ctx context.Context, entries []oplog.Entry) error
}

// Engine applies pulls and records their log entries.
//
// Thread-safety: Pull and PullMany are safe for concurrent use as long as
// no document is passed to two calls at once.
type Engine struct {
	cfg       config.Config
	sink      oplog.Sink
	clock     oplog.Sequencer
	catalog   *index.Catalog
	immutable *path.FieldRefSet
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the sequencer used to stamp entries. Use it to resume
// from the last stored seq.
func WithClock(seq oplog.Sequencer) Option {
	return func(e *Engine) {
		e.clock = seq
	}
}

// New validates cfg and builds an engine. A nil sink keeps entries only in
// the returned results.
func New(cfg config.Config, sink oplog.Sink, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &UpdateError{Code: ErrCodeInvalidConfig, Message: "invalid configuration", Err: err}
	}
	immutable, err := cfg.Immutable()
	if err != nil {
		return nil, &UpdateError{Code: ErrCodeInvalidConfig, Message: "invalid immutable path", Err: err}
	}

	e := &Engine{
		cfg:       cfg,
		sink:      sink,
		clock:     oplog.NewClock(),
		catalog:   cfg.Catalog(),
		immutable: immutable,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Catalog returns the index catalog consulted for IndexesAffected.
func (e *Engine) Catalog() *index.Catalog {
	return e.catalog
}

// Pull applies req and appends its log entries.
func (e *Engine) Pull(ctx context.Context, req Request) (Result, error) {
	req = e.withDefaults(req)
	res, err := e.apply(req)
	if err != nil {
		slog.Debug("pull rejected", "namespace", req.Namespace, "doc_id", req.DocID, "path", req.Path, "error", err)
		return Result{}, err
	}
	if err := e.commit(ctx, req, &res); err != nil {
		return Result{}, err
	}
	return res, nil
}

// PullMany applies each request concurrently, using at most the configured
// number of workers. Every request must name a different document.
//
// Entries are committed in request order once every apply has succeeded.
// On error nothing is committed; documents that were already modified are
// left as they are.
func (e *Engine) PullMany(ctx context.Context, reqs []Request) ([]Result, error) {
	reqs = slices.Clone(reqs)
	seen := make(map[*doc.Document]int, len(reqs))
	for i := range reqs {
		reqs[i] = e.withDefaults(reqs[i])
		if reqs[i].Document == nil {
			continue
		}
		if j, ok := seen[reqs[i].Document]; ok {
			return nil, &UpdateError{
				Code:      ErrCodeInvalidOperand,
				Message:   fmt.Sprintf("requests %d and %d share a document", j, i),
				Namespace: reqs[i].Namespace,
				DocID:     reqs[i].DocID,
			}
		}
		seen[reqs[i].Document] = i
	}

	results := make([]Result, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i := range reqs {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := e.apply(reqs[i])
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		slog.Debug("pull batch rejected", "requests", len(reqs), "error", err)
		return nil, err
	}

	for i := range reqs {
		if err := e.commit(ctx, reqs[i], &results[i]); err != nil {
			return nil, err
		}
	}
	slog.Info("pull batch committed", "requests", len(reqs))
	return results, nil
}

func (e *Engine) withDefaults(req Request) Request {
	if req.Namespace == "" {
		req.Namespace = e.cfg.Namespace
	}
	return req
}

// apply runs the operator against req.Document. The entries in the result
// are not stamped yet.
func (e *Engine) apply(req Request) (Result, error) {
	fail := func(code ErrorCode, msg string, err error) (Result, error) {
		return Result{}, &UpdateError{Code: code, Message: msg, Namespace: req.Namespace, DocID: req.DocID, Path: req.Path, Err: err}
	}

	if req.Document == nil {
		return fail(ErrCodeInvalidOperand, "request has no document", nil)
	}
	ref, err := path.Parse(req.Path)
	if err != nil {
		return fail(ErrCodeParse, "invalid path", err)
	}

	spec := e.cfg.Collation
	if req.Collation != nil {
		spec = *req.Collation
	}
	coll, err := collation.New(spec)
	if err != nil {
		return fail(ErrCodeInvalidConfig, "invalid collation", err)
	}

	node, err := pull.New(req.Condition, coll)
	if err != nil {
		return Result{}, fromPull(err, req.Namespace, req.DocID)
	}

	elem, nav := path.Navigate(req.Document.Root(), ref)
	builder := oplog.NewBuilder()
	out, err := node.Apply(pull.ApplyParams{
		Element:         elem,
		PathToCreate:    nav.PathToCreate,
		PathTaken:       nav.PathTaken,
		FromReplication: req.FromReplication,
		ImmutablePaths:  e.immutable,
		IndexData:       e.catalog,
		LogBuilder:      builder,
	})
	if err != nil {
		return Result{}, fromPull(err, req.Namespace, req.DocID)
	}

	slog.Debug("pull applied",
		"namespace", req.Namespace,
		"doc_id", req.DocID,
		"path", req.Path,
		"matcher", node.Kind(),
		"removed", out.Removed,
		"noop", out.Noop,
	)
	return Result{
		Noop:            out.Noop,
		IndexesAffected: out.IndexesAffected,
		Removed:         out.Removed,
		Entries:         builder.Entries(),
	}, nil
}

// commit stamps res.Entries in place and appends them to the sink.
func (e *Engine) commit(ctx context.Context, req Request, res *Result) error {
	if len(res.Entries) == 0 {
		res.Entries = []oplog.Entry{}
		return nil
	}
	fail := func(msg string, err error) error {
		return &UpdateError{Code: ErrCodeInternal, Message: msg, Namespace: req.Namespace, DocID: req.DocID, Path: req.Path, Err: err}
	}

	entries, err := oplog.Stamp(res.Entries, oplog.Origin{
		Namespace:       req.Namespace,
		DocID:           req.DocID,
		FromReplication: req.FromReplication,
	}, e.clock)
	if err != nil {
		return fail("could not stamp log entries", err)
	}

	if e.sink != nil {
		if bs, ok := e.sink.(batchSink); ok {
			err = bs.AppendAll(ctx, entries)
		} else {
			for _, entry := range entries {
				if err = e.sink.Append(ctx, entry); err != nil {
					break
				}
			}
		}
		if err != nil {
			return fail("could not append log entries", err)
		}
	}

	res.Entries = entries
	slog.Info("pull committed",
		"namespace", req.Namespace,
		"doc_id", req.DocID,
		"path", req.Path,
		"entries", len(entries),
		"first_seq", entries[0].Seq,
	)
	return nil
}
