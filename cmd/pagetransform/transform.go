package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"pagetransform/internal/config"
	"pagetransform/internal/diag"
	"pagetransform/internal/identity"
	"pagetransform/internal/mapping"
	"pagetransform/internal/metrics"
	"pagetransform/internal/metrics/datadog"
	"pagetransform/internal/pipeline"
	"pagetransform/internal/sink"
	"pagetransform/internal/source"
	"pagetransform/internal/storage"
	"pagetransform/internal/taxonomy"

	// SQL sinks register themselves with the storage factory; the config
	// picks one by kind.
	_ "pagetransform/internal/storage/mssql"
	_ "pagetransform/internal/storage/postgres"
	_ "pagetransform/internal/storage/sqlite"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const loadTimeout = 60 * time.Second

// input selects where exported pages are read from.
type input struct {
	dir string
	url string
}

func (in *input) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&in.dir, "input-dir", "", "directory of exported pages (.json, or raw .html/.aspx wiki markup)")
	f.StringVar(&in.url, "url", "", "fetch exported pages from this URL (stdin when neither is set)")
}

func newTransformCmd(a *app) *cobra.Command {
	var in input
	cmd := &cobra.Command{
		Use:   "transform",
		Short: "Transform exported legacy pages and persist them to the sink",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.transform(cmd.Context(), in)
		},
	}
	in.register(cmd)

	f := cmd.Flags()
	f.String("source-site", "", "source site collection URL")
	f.String("source-web", "", "source web URL")
	f.String("target-web", "", "target web URL")
	f.String("pages-library", "", "legacy pages library segment")
	f.String("prefix", "", "prefix for generated page names")
	f.String("folder", "", "target folder below the modern pages library")
	f.String("mapping", "", "mapping model file (.xml or .json)")
	f.String("term-mapping", "", "term mapping file")
	f.String("user-mapping", "", "user mapping file")
	f.String("url-mapping", "", "url mapping file")
	f.Bool("overwrite", false, "replace existing target pages")
	f.Bool("publish", false, "publish created pages")
	f.Bool("post-as-news", false, "promote created pages as news")
	f.String("sink", "", "sink kind: file, memory, "+strings.Join(storage.Kinds(), ", "))
	f.String("sink-dir", "", "output directory of the file sink")
	f.String("sink-dsn", "", "DSN of a SQL sink")
	f.Int("concurrency", 0, "pages transformed in parallel")
	return cmd
}

// resultLine is the JSON line written per page.
type resultLine struct {
	Page     string          `json:"page"`
	Path     string          `json:"path,omitempty"`
	Type     string          `json:"type,omitempty"`
	Status   pipeline.Status `json:"status"`
	Controls int             `json:"controls"`
	Warnings []string        `json:"warnings,omitempty"`
	Error    string          `json:"error,omitempty"`
}

func (a *app) transform(ctx context.Context, in input) error {
	pages, err := a.readPages(ctx, in)
	if err != nil {
		return err
	}

	a.startMetrics(ctx)

	snk, err := a.openSink(ctx)
	if err != nil {
		return err
	}
	orch, err := a.orchestrator(snk)
	if err != nil {
		return err
	}

	jobs := make([]pipeline.Job, len(pages))
	for i, p := range pages {
		req := a.cfg.Defaults
		req.PageID = p.ID()
		jobs[i] = pipeline.Job{Request: req, Page: p}
	}

	start := time.Now()
	results := orch.Batch(ctx, jobs, a.cfg.Batch.Concurrency)

	enc := json.NewEncoder(a.stdout)
	for _, r := range results {
		line := resultLine{
			Page:     r.PageID,
			Path:     r.Path,
			Type:     string(r.Type),
			Status:   r.Status,
			Controls: r.Content.Controls - r.Cleanup.Controls,
			Warnings: r.Warnings,
		}
		if r.Err != nil {
			line.Error = r.Err.Error()
		}
		if err := enc.Encode(line); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}

	summary := pipeline.Summary(results)
	a.log.WithFields(log.Fields{
		"pages":    len(results),
		"success":  summary[pipeline.StatusSuccess],
		"rejected": summary[pipeline.StatusRejected],
		"failed":   summary[pipeline.StatusFailed],
		"dur_ms":   time.Since(start).Milliseconds(),
	}).Info("batch finished")

	if n := len(results) - summary[pipeline.StatusSuccess]; n > 0 {
		return &exitError{code: 1, err: fmt.Errorf("%d of %d pages not transformed", n, len(results))}
	}
	return nil
}

func (a *app) readPages(ctx context.Context, in input) ([]*source.Page, error) {
	if in.dir != "" {
		var pages []*source.Page
		err := source.StreamFromDir(in.dir, func(p *source.Page) error {
			pages = append(pages, p)
			return nil
		}, func(name string, err error) {
			a.log.WithField("file", name).Warnf("skipping export: %v", err)
		})
		if err != nil {
			return nil, err
		}
		return pages, nil
	}
	return source.NewLoader(a.httpClient, loadTimeout).Load(ctx, source.Input{URL: in.url, Stdin: a.stdin})
}

// startMetrics installs the configured metrics backend until the command
// returns. A backend that fails to start leaves metrics disabled.
func (a *app) startMetrics(ctx context.Context) {
	m := a.cfg.Metrics
	switch strings.ToLower(m.Backend) {
	case "", "none":
		return
	case "datadog":
		b, err := datadog.NewBackend(ctx, datadog.Options{JobName: m.JobName, Tags: m.Tags, FlushEvery: m.FlushEvery})
		if err != nil {
			a.log.Warnf("metrics: failed to init datadog backend: %v; using nop", err)
			return
		}
		metrics.SetBackend(b)
		a.closers = append(a.closers, func() {
			if err := b.Close(); err != nil {
				a.log.Warnf("metrics: datadog close/flush error: %v", err)
			}
			metrics.SetBackend(nil)
		})
	default:
		a.log.Warnf("metrics: unknown backend %q; metrics disabled", m.Backend)
	}
}

func (a *app) openSink(ctx context.Context) (sink.Sink, error) {
	sc := a.cfg.Sink
	switch strings.ToLower(sc.Kind) {
	case "memory":
		return sink.NewStaged(sink.NewMemoryStore()), nil
	case "", "file":
		return sink.NewStaged(sink.NewFileStore(sc.Dir)), nil
	}
	repo, err := storage.New(ctx, storage.Config{Kind: strings.ToLower(sc.Kind), DSN: sc.DSN, Table: sc.Table})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, repo.Close)
	return sink.NewStaged(repo), nil
}

func (a *app) orchestrator(snk sink.Sink) (*pipeline.Orchestrator, error) {
	o := &pipeline.Orchestrator{
		Sink:     snk,
		Observer: diag.NewLogObserver(a.log),
		Log:      a.log,
	}

	// Load the model up front so a broken one fails the run, not every page.
	if path := a.cfg.Defaults.MappingModelFile; path != "" {
		m, err := mapping.Load(mapping.File(path))
		if err != nil {
			return nil, err
		}
		o.Model = m
	}

	if t := a.cfg.Taxonomy; t.SourceTermSetID != "" || t.TargetTermSetID != "" {
		if err := a.wireTaxonomy(o, t); err != nil {
			return nil, err
		}
	}

	if l := a.cfg.LDAP; l.ConnectionString != "" || len(l.Domains) > 0 || l.CurrentDomain != "" {
		o.Directory = &identity.LDAPDirectory{BindUser: l.BindUser, BindPassword: l.BindPassword}
		o.Identity = identity.Config{
			ConnectionString: l.ConnectionString,
			Domains:          l.Domains,
			DefaultSuffix:    l.DefaultSuffix,
			CurrentDomain:    l.CurrentDomain,
		}
	}
	return o, nil
}

func (a *app) wireTaxonomy(o *pipeline.Orchestrator, t config.TaxonomyConfig) error {
	endpoint := func(ctx taxonomy.ContextID, snapshot, schema string) (taxonomy.Endpoint, *taxonomy.SnapshotStore, error) {
		ep := taxonomy.Endpoint{Context: ctx}
		if schema != "" {
			b, err := os.ReadFile(schema)
			if err != nil {
				return ep, nil, fmt.Errorf("read %s field schema: %w", ctx, err)
			}
			ep.FieldSchemaXML = string(b)
		}
		var st *taxonomy.SnapshotStore
		if snapshot != "" {
			var err error
			if st, err = taxonomy.LoadSnapshot(snapshot); err != nil {
				return ep, nil, err
			}
			ep.Store = st
		}
		if t.LegacyServiceURL != "" {
			ep.Legacy = taxonomy.NewLegacyClient(t.LegacyServiceURL, a.httpClient)
		}
		return ep, st, nil
	}

	src, _, err := endpoint("source", t.SourceSnapshotFile, t.SourceFieldSchemaFile)
	if err != nil {
		return err
	}
	dst, dstStore, err := endpoint("target", t.TargetSnapshotFile, t.TargetFieldSchemaFile)
	if err != nil {
		return err
	}

	o.Taxonomy = &taxonomy.Service{Cache: taxonomy.NewCache(), Source: src, Target: dst, Log: a.log}
	o.TermSets = pipeline.TermSets{
		Source:          t.SourceTermSetID,
		Target:          t.TargetTermSetID,
		TargetGroup:     t.TargetGroupID,
		IncludeChildren: t.IncludeChildren,
	}
	if dstStore != nil {
		o.TargetTerms = dstStore
	}
	return nil
}
