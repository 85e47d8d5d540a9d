package uploads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kmrl/documind/internal/core/domain"
)

const localIDPrefix = "local-"

// API is the part of the DocuMind REST API the tracker drives.
type API interface {
	ProcessDocument(ctx context.Context, filename string, data []byte, opts domain.ProcessOptions) (*domain.ProcessingResult, error)
	ClassifyProcessing(ctx context.Context, processingID string, req domain.ClassifyRequest) (*domain.ClassificationResult, error)
	ClassifyText(ctx context.Context, text string, minConfidence float64) (*domain.ClassificationResult, error)
}

type Options struct {
	Process domain.ProcessOptions
	// Classify runs the deferred classification phase when the server did not classify inline.
	Classify      bool
	MinConfidence float64
	Concurrency   int
	MaxFileBytes  int64
}

type Tracker struct {
	api    API
	opts   Options
	logger *slog.Logger

	mu          sync.Mutex
	entries     []*Entry
	byID        map[string]*Entry
	subscribers map[int]func([]Entry)
	nextSub     int

	// deliverMu spans snapshot and fan-out so subscribers see snapshots in mutation order.
	deliverMu sync.Mutex

	now      func() time.Time
	newID    func() string
	readFile func(string) ([]byte, error)
}

func NewTracker(api API, opts Options, logger *slog.Logger) *Tracker {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 3
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		api:         api,
		opts:        opts,
		logger:      logger.With("component", "upload-tracker"),
		byID:        make(map[string]*Entry),
		subscribers: make(map[int]func([]Entry)),
		now:         time.Now,
		newID:       uuid.NewString,
		readFile:    os.ReadFile,
	}
}

// Add registers a file in the uploading state with no progress.
func (t *Tracker) Add(path string) Entry {
	t.mu.Lock()
	now := t.now()
	e := &Entry{
		ID:        fmt.Sprintf("file-%d", len(t.entries)+1),
		Path:      path,
		Filename:  filepath.Base(path),
		State:     StateUploading,
		StartedAt: now,
		UpdatedAt: now,
	}
	t.entries = append(t.entries, e)
	t.byID[e.ID] = e
	snapshot := e.clone()
	t.mu.Unlock()

	t.notify()
	return snapshot
}

func (t *Tracker) Snapshot() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

func (t *Tracker) snapshotLocked() []Entry {
	out := make([]Entry, 0, len(t.entries))
	for _, e := range t.entries {
		out = append(out, e.clone())
	}
	return out
}

// Subscribe registers fn to receive a snapshot after every change. Deliveries are serialized and
// never older than one already delivered. fn must not block on tracker mutations. The returned func
// unsubscribes.
func (t *Tracker) Subscribe(fn func([]Entry)) func() {
	t.mu.Lock()
	id := t.nextSub
	t.nextSub++
	t.subscribers[id] = fn
	t.mu.Unlock()

	return func() {
		t.mu.Lock()
		delete(t.subscribers, id)
		t.mu.Unlock()
	}
}

func (t *Tracker) notify() {
	t.deliverMu.Lock()
	defer t.deliverMu.Unlock()

	t.mu.Lock()
	snapshot := t.snapshotLocked()
	subs := make([]func([]Entry), 0, len(t.subscribers))
	for _, fn := range t.subscribers {
		subs = append(subs, fn)
	}
	t.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

// Run drives every entry that has not started yet. Per-file failures land in the entry, not the
// returned error, which is only set when ctx ends first.
func (t *Tracker) Run(ctx context.Context) error {
	t.mu.Lock()
	pending := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		if e.State == StateUploading && e.Progress == 0 {
			pending = append(pending, e.ID)
		}
	}
	t.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.opts.Concurrency)
	for _, id := range pending {
		g.Go(func() error {
			t.drive(gctx, id)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (t *Tracker) drive(ctx context.Context, id string) {
	entry, ok := t.get(id)
	if !ok {
		return
	}
	t.mutate(id, func(e *Entry) error {
		e.Progress = progressUploading
		return nil
	})

	data, err := t.readFile(entry.Path)
	if err == nil && t.opts.MaxFileBytes > 0 && int64(len(data)) > t.opts.MaxFileBytes {
		err = fmt.Errorf("file is %d bytes, limit is %d", len(data), t.opts.MaxFileBytes)
	}
	if err != nil {
		t.fail(id, err)
		return
	}

	if err := t.mutate(id, func(e *Entry) error { return e.transition(StateProcessing, t.now()) }); err != nil {
		return
	}

	res, err := t.api.ProcessDocument(ctx, entry.Filename, data, t.opts.Process)
	if err != nil {
		t.fail(id, err)
		return
	}

	processingID := res.ProcessingInfo.ProcessingID
	synthesized := processingID == ""
	if synthesized {
		processingID = localIDPrefix + t.newID()
	}
	if err := t.mutate(id, func(e *Entry) error {
		if err := e.transition(StateCompleted, t.now()); err != nil {
			return err
		}
		e.Result = res
		e.ProcessingID = processingID
		e.Synthesized = synthesized
		return nil
	}); err != nil {
		return
	}

	switch {
	case res.Classification != nil:
		inline := withFallbackCategory(res.Classification)
		t.mutate(id, func(e *Entry) error {
			if err := e.classificationTransition(ClassificationCompleted, t.now()); err != nil {
				return err
			}
			e.Classification = inline
			return nil
		})
	case t.opts.Classify:
		t.classify(ctx, id, processingID, synthesized, res)
	}
}

func (t *Tracker) classify(ctx context.Context, id, processingID string, synthesized bool, res *domain.ProcessingResult) {
	if err := t.mutate(id, func(e *Entry) error { return e.classificationTransition(ClassificationLoading, t.now()) }); err != nil {
		return
	}

	text := res.OCR.Text
	translation := ""
	if res.Translation.Usable() {
		translation = res.Translation.TranslatedText
	}

	var (
		result *domain.ClassificationResult
		err    error
	)
	switch {
	case text == "" && translation == "":
		err = errors.New("no text was extracted to classify")
	case synthesized:
		input := text
		if translation != "" {
			input = translation
		}
		result, err = t.api.ClassifyText(ctx, input, t.opts.MinConfidence)
	default:
		result, err = t.api.ClassifyProcessing(ctx, processingID, domain.ClassifyRequest{
			Text:          text,
			Translation:   translation,
			MinConfidence: t.opts.MinConfidence,
		})
	}

	t.mutate(id, func(e *Entry) error {
		if err != nil {
			if terr := e.classificationTransition(ClassificationError, t.now()); terr != nil {
				return terr
			}
			e.ClassificationError = err.Error()
			return nil
		}
		if terr := e.classificationTransition(ClassificationCompleted, t.now()); terr != nil {
			return terr
		}
		e.Classification = withFallbackCategory(result)
		return nil
	})
	if err != nil {
		t.logger.Warn("classification_failed", "file", res.ProcessingInfo.Filename, "processing_id", processingID, "error", err)
	}
}

// withFallbackCategory fills in Unknown when the server answered without a category.
func withFallbackCategory(in *domain.ClassificationResult) *domain.ClassificationResult {
	if in != nil && in.Category != "" {
		out := *in
		return &out
	}
	out := domain.ClassificationResult{
		Category:   domain.CategoryUnknown,
		Confidence: 0,
		Method:     domain.MethodClientFallback,
	}
	if in != nil {
		out.AllCategories = in.AllCategories
		out.TextSource = in.TextSource
		out.Error = in.Error
	}
	return &out
}

func (t *Tracker) fail(id string, cause error) {
	t.mutate(id, func(e *Entry) error {
		if err := e.transition(StateError, t.now()); err != nil {
			return err
		}
		e.Error = cause.Error()
		return nil
	})
	t.logger.Warn("upload_failed", "entry", id, "error", cause)
}

func (t *Tracker) get(id string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.byID[id]
	if !ok {
		return Entry{}, false
	}
	return e.clone(), true
}

// mutate applies fn under the lock and notifies subscribers when it succeeds.
func (t *Tracker) mutate(id string, fn func(*Entry) error) error {
	t.mu.Lock()
	e, ok := t.byID[id]
	if !ok {
		t.mu.Unlock()
		return fmt.Errorf("unknown entry %s", id)
	}
	err := fn(e)
	t.mu.Unlock()

	if err != nil {
		t.logger.Error("upload_transition_rejected", "entry", id, "error", err)
		return err
	}
	t.notify()
	return nil
}
