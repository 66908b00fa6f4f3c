// Package pipeline runs the page transformation state machine:
//
//	Validate -> LoadContexts -> LocateOrRejectExisting -> Analyze ->
//	LayoutTransform -> ContentTransform -> Cleanup -> Persist -> Finalize
//
// One Orchestrator serves every page family; the family specific analysis
// is a Family strategy. Each page runs synchronously on the calling
// goroutine. A page created by Persist is never rolled back.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"pagetransform/internal/analyzer"
	"pagetransform/internal/config"
	"pagetransform/internal/content"
	"pagetransform/internal/diag"
	"pagetransform/internal/identity"
	"pagetransform/internal/layout"
	"pagetransform/internal/mapfile"
	"pagetransform/internal/mapping"
	"pagetransform/internal/metrics"
	"pagetransform/internal/model"
	"pagetransform/internal/modern"
	"pagetransform/internal/sink"
	"pagetransform/internal/source"
	"pagetransform/internal/taxonomy"
	"pagetransform/internal/urlrewrite"

	log "github.com/sirupsen/logrus"
)

// Stage names used in events and metrics.
const (
	StageValidate     = "validate"
	StageLoadContexts = "load_contexts"
	StageLocate       = "locate"
	StageAnalyze      = "analyze"
	StageLayout       = "layout"
	StageContent      = "content"
	StageCleanup      = "cleanup"
	StagePersist      = "persist"
	StageFinalize     = "finalize"
)

// Page properties written by the pipeline.
const (
	PropertyTitle            = "Title"
	PropertyPromotedState    = "PromotedState"
	PropertyVersionComment   = "VersionComment"
	PropertyCommentsDisabled = "CommentsDisabled"
	PropertySourcePage       = "SourcePage"
	HeaderAuthor             = "Author"
)

// creationFields are only copied with KeepPageCreationModification.
var creationFields = map[string]bool{
	analyzer.FieldAuthor:   true,
	analyzer.FieldEditor:   true,
	analyzer.FieldCreated:  true,
	analyzer.FieldModified: true,
}

// TermSets names the term sets cached before content is mapped.
type TermSets struct {
	Source          string
	Target          string
	TargetGroup     string
	IncludeChildren bool
}

// Orchestrator transforms pages. Its zero value is not usable: Sink is
// required. An Orchestrator is safe for concurrent use by Batch.
type Orchestrator struct {
	// Model is the active mapping model. When nil, the request's
	// MappingModelFile is loaded once and reused.
	Model *mapping.Model

	Family Family
	Layout layout.Transformator
	Sink   sink.Sink

	// Taxonomy populates the shared term cache. Optional.
	Taxonomy *taxonomy.Service
	TermSets TermSets

	// TargetTerms answers same-id pass-through checks. Optional.
	TargetTerms taxonomy.Store

	Directory identity.Directory
	Identity  identity.Config

	// Observer receives stage events. A nil Observer also means that
	// unclassified failures are returned instead of being recorded.
	Observer diag.Observer
	Log      log.FieldLogger

	Now func() time.Time

	mu        sync.Mutex
	models    map[string]*mapping.Model
	files     map[string]*mapfile.File
	resolvers map[string]*identity.Resolver
}

// Status is the outcome of one page.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusRejected Status = "rejected"
	StatusFailed   Status = "failed"
)

// Result describes one transformed (or failed) page.
type Result struct {
	PageID   string
	Path     string
	Type     model.PageType
	Status   Status
	Page     *modern.Page
	Content  content.Stats
	Cleanup  content.CleanupStats
	Warnings []string
	Err      error
}

// run is the per-page state threaded through the stages.
type run struct {
	req  config.Request
	page *source.Page
	res  *Result

	model    *mapping.Model
	urls     *urlrewrite.Rewriter
	terms    *taxonomy.Resolver
	users    *identity.Resolver
	analysis model.Analysis
	shell    *modern.Page
	handle   sink.Handle
}

func (o *Orchestrator) logger() log.FieldLogger {
	if o.Log == nil {
		return log.StandardLogger()
	}
	return o.Log
}

func (o *Orchestrator) now() time.Time {
	if o.Now == nil {
		return time.Now()
	}
	return o.Now()
}

// Transform runs every stage for one page. Validation, schema, file
// access and sink failures are returned as errors. Any other failure is
// recorded in the Result when an Observer is set, so a batch continues;
// without an Observer it is returned.
func (o *Orchestrator) Transform(ctx context.Context, req config.Request, page *source.Page) (Result, error) {
	r := &run{req: req, page: page, res: &Result{PageID: req.PageID}}
	if r.res.PageID == "" && page != nil {
		r.res.PageID = page.ID()
	}
	o.logger().WithFields(settingsFields(req)).Debug("transformation settings")
	defer o.release(ctx, r)

	stages := []struct {
		name string
		fn   func(context.Context, *run) error
	}{
		{StageValidate, o.validate},
		{StageLoadContexts, o.loadContexts},
		{StageLocate, o.locate},
		{StageAnalyze, o.analyze},
		{StageLayout, o.transformLayout},
		{StageContent, o.transformContent},
		{StageCleanup, o.cleanup},
		{StagePersist, o.persist},
		{StageFinalize, o.finalize},
	}

	for _, s := range stages {
		if err := o.stage(ctx, r, s.name, s.fn); err != nil {
			r.res.Err = err
			r.res.Status = StatusFailed
			var ve *ValidationError
			if errors.As(err, &ve) {
				r.res.Status = StatusRejected
			}
			metrics.RecordPage(string(r.res.Status))

			if diag.Classify(err) == diag.CodeUnknown && o.Observer != nil {
				return *r.res, nil
			}
			return *r.res, err
		}
	}

	r.res.Status = StatusSuccess
	r.res.Page = r.shell
	metrics.RecordPage(string(r.res.Status))
	return *r.res, nil
}

// stage runs fn with start/finish/error events and stage metrics. Panics
// become unclassified errors.
func (o *Orchestrator) stage(ctx context.Context, r *run, name string, fn func(context.Context, *run) error) (err error) {
	start := o.now()
	o.emit(diag.Event{Page: r.res.PageID, Stage: name, Status: diag.StatusStart})

	defer func() {
		if p := recover(); p != nil {
			err = &panicError{value: p}
		}
		d := o.now().Sub(start)
		if err != nil {
			o.emit(diag.Event{Page: r.res.PageID, Stage: name, Status: diag.StatusError, Duration: d, Code: diag.Classify(err), Message: err.Error()})
			metrics.RecordStage(name, string(diag.StatusError), d)
			return
		}
		o.emit(diag.Event{Page: r.res.PageID, Stage: name, Status: diag.StatusFinish, Duration: d})
		metrics.RecordStage(name, string(diag.StatusFinish), d)
	}()

	return fn(ctx, r)
}

func (o *Orchestrator) emit(e diag.Event) {
	if o.Observer == nil {
		return
	}
	if e.Time.IsZero() {
		e.Time = o.now()
	}
	o.Observer.Observe(e)
}

// warn records a non-fatal problem on the result and as a warning event.
func (o *Orchestrator) warn(r *run, stage, msg string, err error) {
	text := msg
	if err != nil {
		text = fmt.Sprintf("%s: %v", msg, err)
	}
	r.res.Warnings = append(r.res.Warnings, text)
	metrics.RecordWarning(stage)
	o.emit(diag.Event{Page: r.res.PageID, Stage: stage, Status: diag.StatusWarning, Code: diag.Classify(err), Message: text})
	if o.Observer == nil {
		o.logger().WithFields(log.Fields{"page": r.res.PageID, "stage": stage}).Warn(text)
	}
}

func (o *Orchestrator) validate(_ context.Context, r *run) error {
	if o.Sink == nil {
		return &ValidationError{Page: r.res.PageID, Reason: "no sink configured"}
	}
	if r.page == nil {
		return &ValidationError{Page: r.res.PageID, Reason: "no source page"}
	}
	if r.page.Name == "" {
		return &ValidationError{Page: r.res.PageID, Reason: "source page has no name"}
	}
	if err := r.req.Validate(); err != nil {
		return &ValidationError{Page: r.res.PageID, Reason: err.Error(), Err: err}
	}
	return nil
}

// loadContexts loads the mapping model and mapping files, builds the
// resolvers and fills the term cache. A term cache failure only warns:
// unresolved terms fall back to pass-through.
func (o *Orchestrator) loadContexts(ctx context.Context, r *run) error {
	m, err := o.mappingModel(r.req.MappingModelFile)
	if err != nil {
		return err
	}
	r.model = m

	urlFile, err := o.mapFile(r.req.URLMappingFile)
	if err != nil {
		return err
	}
	termFile, err := o.mapFile(r.req.TermMappingFile)
	if err != nil {
		return err
	}
	if r.users, err = o.identityResolver(r.req.UserMappingFile); err != nil {
		return err
	}

	r.urls = urlrewrite.New(urlrewrite.Options{
		SourceSite:   r.req.EffectiveSourceSite(),
		SourceWeb:    r.req.SourceWeb,
		TargetWeb:    r.req.TargetWeb,
		PagesLibrary: r.req.EffectivePagesLibrary(),
		Mappings:     urlFile,
	})

	r.terms = &taxonomy.Resolver{Mappings: termFile, TargetStore: o.TargetTerms}
	if o.Taxonomy != nil {
		r.terms.Cache = o.Taxonomy.Cache
		r.terms.Source = o.Taxonomy.Source.Context
		r.terms.Target = o.Taxonomy.Target.Context

		if !r.req.SkipTermMapping && (o.TermSets.Source != "" || o.TermSets.Target != "") {
			ts := o.TermSets
			if err := o.Taxonomy.CacheTermsFromStore(ctx, ts.Source, ts.Target, ts.TargetGroup, ts.IncludeChildren); err != nil {
				o.warn(r, StageLoadContexts, "term cache population failed", err)
			}
		}
	}
	return nil
}

func (o *Orchestrator) mappingModel(path string) (*mapping.Model, error) {
	if o.Model != nil {
		return o.Model, nil
	}
	if path == "" {
		return nil, nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if m, ok := o.models[path]; ok {
		return m, nil
	}
	m, err := mapping.Load(mapping.File(path))
	if err != nil {
		return nil, err
	}
	if o.models == nil {
		o.models = map[string]*mapping.Model{}
	}
	o.models[path] = m
	return m, nil
}

func (o *Orchestrator) mapFile(path string) (*mapfile.File, error) {
	if path == "" {
		return nil, nil
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if f, ok := o.files[path]; ok {
		return f, nil
	}
	f, err := mapfile.Load(path)
	if err != nil {
		return nil, err
	}
	if o.files == nil {
		o.files = map[string]*mapfile.File{}
	}
	o.files[path] = f
	return f, nil
}

// identityResolver shares one resolver, and so one UPN memo, per user
// mapping file.
func (o *Orchestrator) identityResolver(path string) (*identity.Resolver, error) {
	f, err := o.mapFile(path)
	if err != nil {
		return nil, err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if res, ok := o.resolvers[path]; ok {
		return res, nil
	}
	res := &identity.Resolver{Directory: o.Directory, Config: o.Identity, Mappings: f, Log: o.Log}
	if o.resolvers == nil {
		o.resolvers = map[string]*identity.Resolver{}
	}
	o.resolvers[path] = res
	return res, nil
}

// locate computes the target name and fails when the page exists and
// overwriting is off.
func (o *Orchestrator) locate(ctx context.Context, r *run) error {
	r.req.GeneratedName = targetName(r.req, r.page)
	r.req.ResolvedFolder = targetFolder(r.req, r.page)
	r.res.Path = targetPath(r.req.ResolvedFolder, r.req.GeneratedName)

	_, err := o.Sink.Open(ctx, r.res.Path)
	switch {
	case errors.Is(err, sink.ErrNotFound):
		return nil
	case err != nil:
		return &ExternalServiceError{Op: "open " + r.res.Path, Err: err}
	case !r.req.Overwrite:
		return &ValidationError{Page: r.res.PageID, Reason: fmt.Sprintf("target page %s exists and overwrite is off", r.res.Path)}
	}
	return nil
}

func (o *Orchestrator) analyze(_ context.Context, r *run) error {
	fam := o.Family
	if fam == nil {
		fam = Auto
	}
	a, err := fam.Analyze(r.page, analyzer.Options{
		Model:                     r.model,
		HandleWikiImagesAndVideos: r.req.HandleWikiImagesAndVideos,
	})
	r.res.Type = a.Type
	if err != nil {
		var re *analyzer.RejectedError
		if errors.As(err, &re) {
			return &ValidationError{Page: r.res.PageID, Reason: re.Error(), Err: err}
		}
		return err
	}
	r.analysis = a
	return nil
}

func (o *Orchestrator) transformLayout(_ context.Context, r *run) error {
	lt := o.Layout
	if lt == nil {
		lt = layout.Default{}
	}
	r.shell = modern.NewPage(r.req.GeneratedName)
	r.shell.Folder = r.req.ResolvedFolder
	return lt.Transform(r.shell, r.analysis.Layout, r.analysis.Blocks)
}

func (o *Orchestrator) contentTransformator(r *run) *content.Transformator {
	return &content.Transformator{
		Model: r.model,
		URLs:  r.urls,
		Terms: r.terms,
		Users: r.users,
		Options: content.Options{
			SkipURLRewrite:     r.req.SkipURLRewrite,
			SkipTermMapping:    r.req.SkipTermMapping,
			SkipUserMapping:    r.req.SkipUserMapping,
			SkipHiddenWebParts: r.req.SkipHiddenWebParts,
		},
	}
}

// transformContent maps the blocks and the page level properties.
func (o *Orchestrator) transformContent(ctx context.Context, r *run) error {
	ct := o.contentTransformator(r)
	st, err := ct.Transform(ctx, r.shell, r.analysis.Blocks)
	if err != nil {
		return err
	}
	r.res.Content = st
	metrics.RecordControls(st.Controls-st.PassThrough, st.PassThrough, st.Skipped)

	for _, p := range ct.MapPageProperties(ctx, r.analysis.PageProperties) {
		if creationFields[p.Name] && !r.req.KeepPageCreationModification {
			if p.Name == analyzer.FieldAuthor && r.req.SetAuthorInPageHeader {
				r.shell.Header[HeaderAuthor] = p.Value
			}
			continue
		}
		if p.Name == analyzer.FieldTitle {
			r.shell.Title = p.Value
		}
		if p.Name == analyzer.FieldAuthor && r.req.SetAuthorInPageHeader {
			r.shell.Header[HeaderAuthor] = p.Value
		}
		r.shell.Properties[p.Name] = p.Value
	}
	if r.shell.Title == "" {
		r.shell.Title = trimExt(r.req.GeneratedName)
	}
	r.shell.IsNews = r.req.PostAsNews
	return nil
}

func (o *Orchestrator) cleanup(_ context.Context, r *run) error {
	r.res.Cleanup = content.Cleanup(r.shell, !r.req.KeepEmptySectionsAndColumns)
	return nil
}

// persist creates, fills and saves the target page. Every failure here is
// fatal; nothing already written is undone.
func (o *Orchestrator) persist(ctx context.Context, r *run) error {
	h, err := o.Sink.CreatePage(ctx, r.res.Path)
	if err != nil {
		return &ExternalServiceError{Op: "create page " + r.res.Path, Err: err}
	}
	r.handle = h

	if err := o.Sink.WriteSections(ctx, h, r.shell); err != nil {
		return &ExternalServiceError{Op: "write sections", Err: err}
	}

	props := map[string]string{
		PropertyTitle:      r.shell.Title,
		PropertySourcePage: r.page.ID(),
	}
	for k, v := range r.shell.Properties {
		props[k] = v
	}
	if r.req.DisablePageComments {
		props[PropertyCommentsDisabled] = "true"
	}
	for _, k := range sortedKeys(props) {
		if err := o.Sink.SetProperty(ctx, h, k, props[k]); err != nil {
			return &ExternalServiceError{Op: "set property " + k, Err: err}
		}
	}

	if err := o.Sink.Save(ctx, h, r.res.Path); err != nil {
		return &ExternalServiceError{Op: "save " + r.res.Path, Err: err}
	}
	return nil
}

// finalize flags, stamps and publishes the saved page. Failures are
// warnings; the page model is not changed any more.
func (o *Orchestrator) finalize(ctx context.Context, r *run) error {
	if r.req.PostAsNews {
		if err := o.Sink.SetProperty(ctx, r.handle, PropertyPromotedState, "2"); err != nil {
			o.warn(r, StageFinalize, "post as news failed", &ExternalServiceError{Op: "promote", Err: err})
		}
	}

	stamp := fmt.Sprintf("Transformed from %s at %s", r.page.ID(), o.now().UTC().Format(time.RFC3339))
	if err := o.Sink.SetProperty(ctx, r.handle, PropertyVersionComment, stamp); err != nil {
		o.warn(r, StageFinalize, "version stamp failed", &ExternalServiceError{Op: "stamp version", Err: err})
	}

	if r.req.PublishCreatedPage {
		if err := o.Sink.Publish(ctx, r.handle); err != nil {
			o.warn(r, StageFinalize, "publish failed", &ExternalServiceError{Op: "publish", Err: err})
		}
		return nil
	}
	if err := o.Sink.Save(ctx, r.handle, r.res.Path); err != nil {
		o.warn(r, StageFinalize, "final save failed", &ExternalServiceError{Op: "save", Err: err})
	}
	return nil
}

// release drops the sink's hold on the page created by persist, whatever
// the outcome.
func (o *Orchestrator) release(ctx context.Context, r *run) {
	if r.handle.ID == "" {
		return
	}
	if err := o.Sink.Release(ctx, r.handle); err != nil {
		o.logger().WithFields(log.Fields{"page": r.res.PageID, "err": err}).Warn("release page handle failed")
	}
}

func settingsFields(req config.Request) log.Fields {
	f := log.Fields{}
	for _, s := range req.Settings() {
		f[s.Name] = s.Value
	}
	return f
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func trimExt(name string) string {
	if len(name) > len(pageExt) && name[len(name)-len(pageExt):] == pageExt {
		return name[:len(name)-len(pageExt)]
	}
	return name
}
