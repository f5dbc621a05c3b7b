package enrichment

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/kailas-cloud/contractdex/internal/domain"
	domdep "github.com/kailas-cloud/contractdex/internal/domain/deployment"
	"github.com/kailas-cloud/contractdex/internal/domain/vocabulary"
	"github.com/kailas-cloud/contractdex/internal/metrics"
	"github.com/kailas-cloud/contractdex/internal/usecase/classify"
)

func TestMain(m *testing.M) {
	metrics.RegisterPipelineMetrics()
	os.Exit(m.Run())
}

// --- Mocks ---

// memStore keeps records in insertion order and evaluates filters in memory.
type memStore struct {
	mu        sync.Mutex
	order     []string
	records   map[string]domdep.Record
	listErrs  int // fail this many ListRecords calls first
	failWrite map[string]bool
	lists     int
}

func newMemStore(recs ...domdep.Record) *memStore {
	s := &memStore{records: make(map[string]domdep.Record), failWrite: map[string]bool{}}
	for _, r := range recs {
		s.order = append(s.order, r.NodeRef())
		s.records[r.NodeRef()] = r
	}
	return s
}

func (s *memStore) ListRecords(_ context.Context, f domdep.Filter, pageSize, offset int) ([]domdep.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lists++
	if s.listErrs > 0 {
		s.listErrs--
		return nil, errors.New("store unavailable")
	}
	var matched []domdep.Record
	for _, ref := range s.order {
		r := s.records[ref]
		if f.Matches(&r) {
			matched = append(matched, r)
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	return matched[offset:min(offset+pageSize, len(matched))], nil
}

func (s *memStore) UpsertFields(_ context.Context, ref string, p domdep.Patch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrite[ref] {
		return errors.New("write failed")
	}
	r, ok := s.records[ref]
	if !ok {
		return domain.ErrRecordNotFound
	}
	enr, emb := r.Enrichment(), r.Embedding()
	if p.Enrichment() != nil {
		e := p.Enrichment().Clone()
		enr = &e
	}
	if p.Embedding() != nil {
		emb = p.Embedding()
	}
	s.records[ref] = domdep.Reconstruct(r.ID(), ref, r.Facts(), r.Name(), enr, emb)
	return nil
}

func (s *memStore) get(ref string) domdep.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records[ref]
}

type mockClassifier struct {
	calls atomic.Int32
	fn    func(ctx context.Context, source string) (classify.Result, error)
}

func (m *mockClassifier) Classify(ctx context.Context, source string) (classify.Result, error) {
	m.calls.Add(1)
	return m.fn(ctx, source)
}

// tagging classifier: empty or "garbage" source fails, anything else is a token.
func tokenClassifier() *mockClassifier {
	return &mockClassifier{fn: func(_ context.Context, source string) (classify.Result, error) {
		switch strings.TrimSpace(source) {
		case "":
			return classify.Result{}, domain.ErrEmptySource
		case "garbage":
			return classify.Result{}, fmt.Errorf("classify: %w", domain.ErrMalformedOutput)
		}
		e := domdep.Enrichment{
			Description: "Token for " + source,
			Standards:   []string{"erc-20"},
			Patterns:    []string{"made_up"},
		}
		return classify.Result{Enrichment: e, Findings: vocabulary.Check(e)}, nil
	}}
}

type mockEmbedder struct {
	mu    sync.Mutex
	err   error
	dims  int
	calls int
	texts []string
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.texts = append(m.texts, texts...)
	if m.err != nil {
		return domain.BatchEmbeddingResult{}, m.err
	}
	dims := m.dims
	if dims == 0 {
		dims = 2
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, dims)
		v[0] = 1
		out[i] = v
	}
	return domain.BatchEmbeddingResult{Embeddings: out, TotalTokens: len(texts)}, nil
}

func rec(ref, source string) domdep.Record {
	return domdep.New(ref, domdep.Facts{Address: "0x" + ref, Block: "1", Verified: true, SourceCode: source}, "")
}

func enriched(ref string, emb []float32) domdep.Record {
	f := domdep.Facts{Address: "0x" + ref, Block: "1", Verified: true, SourceCode: "contract " + ref}
	e := domdep.Enrichment{Description: "old " + ref, Standards: []string{"erc-721"}}
	return domdep.Reconstruct(domdep.ComputeID(f), ref, f, "", &e, emb)
}

// --- Tests ---

func TestRun_PartialFailureIsolation(t *testing.T) {
	store := newMemStore(rec("r1", "contract One"), rec("r2", "garbage"), rec("r3", "contract Three"))
	emb := &mockEmbedder{}
	o := New(store, tokenClassifier(), emb, Options{PageSize: 3, Concurrency: 2})

	rep, err := o.Run(context.Background(), ModeNew)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, ref := range []string{"r1", "r3"} {
		r := store.get(ref)
		if !r.IsEnriched() || !r.HasEmbedding() {
			t.Errorf("%s should be enriched and embedded", ref)
		}
	}
	if r := store.get("r2"); r.IsEnriched() {
		t.Error("r2 must stay unenriched")
	}
	if rep.Enriched != 2 || rep.Failed != 1 || rep.Embedded != 2 {
		t.Errorf("unexpected report: %+v", rep)
	}
	if len(rep.Failures) != 1 || rep.Failures[0].ID() != "r2" || !errors.Is(rep.Failures[0].Err(), domain.ErrMalformedOutput) {
		t.Errorf("failures = %+v", rep.Failures)
	}
	if rep.QualityFindings != 2 {
		t.Errorf("quality findings = %d, want 2", rep.QualityFindings)
	}
	if emb.calls != 1 {
		t.Errorf("expected one batch embed call for the page, got %d", emb.calls)
	}
	if rep.RunID == "" {
		t.Error("run id should be set")
	}
}

func TestRun_NewModeIsIdempotent(t *testing.T) {
	var recs []domdep.Record
	for i := range 5 {
		recs = append(recs, rec(fmt.Sprintf("r%d", i), fmt.Sprintf("contract C%d", i)))
	}
	store := newMemStore(recs...)
	cls := tokenClassifier()
	o := New(store, cls, &mockEmbedder{}, Options{PageSize: 2})

	first, err := o.Run(context.Background(), ModeNew)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Enriched != 5 || first.Processed != 5 {
		t.Fatalf("first run report: %+v", first)
	}

	second, err := o.Run(context.Background(), ModeNew)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if second.Processed != 0 || second.Pages != 0 {
		t.Fatalf("second run should process nothing: %+v", second)
	}
	if got := cls.calls.Load(); got != 5 {
		t.Errorf("classifier calls = %d, want 5", got)
	}
	if first.RunID == second.RunID {
		t.Error("run ids must differ")
	}
}

func TestRun_NewModeAdvancesOverFailures(t *testing.T) {
	// With page size 1 the failing first record must not block the rest.
	store := newMemStore(rec("bad", ""), rec("ok1", "contract A"), rec("ok2", "contract B"))
	o := New(store, tokenClassifier(), &mockEmbedder{}, Options{PageSize: 1})

	rep, err := o.Run(context.Background(), ModeNew)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Enriched != 2 || rep.Skipped != 1 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if rep.Pages != 3 {
		t.Errorf("pages = %d, want 3", rep.Pages)
	}
}

func TestRun_UpdateOverwrites(t *testing.T) {
	store := newMemStore(enriched("e1", []float32{0, 1}), rec("u1", "contract U"))
	cls := tokenClassifier()
	o := New(store, cls, &mockEmbedder{}, Options{PageSize: 10})

	rep, err := o.Run(context.Background(), ModeUpdate)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Processed != 1 || cls.calls.Load() != 1 {
		t.Fatalf("update should only touch enriched records: %+v", rep)
	}
	r := store.get("e1")
	if got := r.Enrichment().Standards; len(got) != 1 || got[0] != "erc-20" {
		t.Errorf("standards should be replaced, got %v", got)
	}
	if r.Embedding()[0] != 1 {
		t.Errorf("embedding should be rewritten, got %v", r.Embedding())
	}
	if u1 := store.get("u1"); u1.IsEnriched() {
		t.Error("update must not enrich new records")
	}
}

func TestRun_EmbeddingFailureLeavesRepairable(t *testing.T) {
	store := newMemStore(rec("r1", "contract A"), rec("r2", "contract B"))
	emb := &mockEmbedder{err: fmt.Errorf("provider: %w", domain.ErrRateLimited)}
	o := New(store, tokenClassifier(), emb, Options{PageSize: 10})

	rep, err := o.Run(context.Background(), ModeNew)
	if err != nil {
		t.Fatalf("embedding failures must not abort the run: %v", err)
	}
	if rep.Enriched != 2 || rep.EmbedFailed != 2 || rep.Embedded != 0 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if r := store.get("r1"); !r.NeedsEmbedding() {
		t.Fatal("r1 should be enriched but unembedded")
	}

	emb.err = nil
	repair := New(store, nil, emb, Options{PageSize: 1})
	rep, err = repair.Run(context.Background(), ModeRepair)
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if rep.Embedded != 2 {
		t.Fatalf("repair report: %+v", rep)
	}
	for _, ref := range []string{"r1", "r2"} {
		if r := store.get(ref); !r.HasEmbedding() {
			t.Errorf("%s should be embedded after repair", ref)
		}
	}
}

func TestRun_DimensionMismatchIsFatal(t *testing.T) {
	store := newMemStore(rec("r1", "contract A"), rec("r2", "contract B"))
	emb := &mockEmbedder{err: domain.NewDimensionMismatch(1536, 768)}
	o := New(store, tokenClassifier(), emb, Options{PageSize: 1})

	rep, err := o.Run(context.Background(), ModeNew)
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if rep.Pages != 1 {
		t.Errorf("run should stop after the first page, pages=%d", rep.Pages)
	}
}

func TestRun_PageReadFailures(t *testing.T) {
	t.Run("transient", func(t *testing.T) {
		store := newMemStore(rec("r1", "contract A"))
		store.listErrs = 1
		o := New(store, tokenClassifier(), &mockEmbedder{}, Options{PageSize: 10})

		rep, err := o.Run(context.Background(), ModeNew)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rep.PageErrors != 1 {
			t.Errorf("page errors = %d", rep.PageErrors)
		}
	})

	t.Run("persistent", func(t *testing.T) {
		store := newMemStore(rec("r1", "contract A"))
		store.listErrs = 10
		o := New(store, tokenClassifier(), &mockEmbedder{}, Options{PageSize: 10})

		_, err := o.Run(context.Background(), ModeNew)
		if err == nil {
			t.Fatal("expected error after consecutive page failures")
		}
		if store.lists != maxConsecutivePageErrors {
			t.Errorf("lists = %d, want %d", store.lists, maxConsecutivePageErrors)
		}
	})
}

func TestRun_PersistFailureCounted(t *testing.T) {
	store := newMemStore(rec("r1", "contract A"), rec("r2", "contract B"))
	store.failWrite["r1"] = true
	o := New(store, tokenClassifier(), &mockEmbedder{}, Options{PageSize: 10})

	rep, err := o.Run(context.Background(), ModeNew)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Failed != 1 || rep.Enriched != 1 {
		t.Fatalf("unexpected report: %+v", rep)
	}
}

func TestRun_MaxPages(t *testing.T) {
	store := newMemStore(rec("r1", "contract A"), rec("r2", "contract B"), rec("r3", "contract C"))
	o := New(store, tokenClassifier(), &mockEmbedder{}, Options{PageSize: 1, MaxPages: 2})

	rep, err := o.Run(context.Background(), ModeNew)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Pages != 2 || rep.Enriched != 2 {
		t.Fatalf("unexpected report: %+v", rep)
	}
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	store := newMemStore(rec("r1", "contract A"))
	o := New(store, tokenClassifier(), &mockEmbedder{}, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := o.Run(ctx, ModeNew)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if store.lists != 0 {
		t.Error("no page should be read after cancellation")
	}
}

func TestRun_InvalidMode(t *testing.T) {
	o := New(newMemStore(), tokenClassifier(), &mockEmbedder{}, Options{})
	if _, err := o.Run(context.Background(), Mode("everything")); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	noClassifier := New(newMemStore(), nil, &mockEmbedder{}, Options{})
	if _, err := noClassifier.Run(context.Background(), ModeNew); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest without classifier, got %v", err)
	}
}

func TestRun_ReembedKeepsEnrichment(t *testing.T) {
	store := newMemStore(enriched("e1", []float32{0, 1}), enriched("e2", nil))
	emb := &mockEmbedder{}
	o := New(store, nil, emb, Options{PageSize: 1})

	rep, err := o.Run(context.Background(), ModeReembed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rep.Embedded != 2 || rep.Pages != 2 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	e1 := store.get("e1")
	if d := e1.Enrichment().Description; d != "old e1" {
		t.Errorf("enrichment changed: %q", d)
	}
	if !strings.Contains(emb.texts[0], "erc-721: ") {
		t.Errorf("embedding input should expand vocabulary terms: %q", emb.texts[0])
	}
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"new", "update", "repair-embeddings", "reembed"} {
		if _, err := ParseMode(s); err != nil {
			t.Errorf("ParseMode(%q): %v", s, err)
		}
	}
	if _, err := ParseMode("all"); err == nil {
		t.Error("expected error")
	}
}

func TestEmbeddingText(t *testing.T) {
	text := EmbeddingText(domdep.Enrichment{
		Description:     "A token.",
		Standards:       []string{"erc-20"},
		Functionalities: []string{"token_minting", "custom_thing"},
		Domain:          "defi_dex",
	})
	for _, frag := range []string{
		"Description: A token.",
		"Standards: erc-20",
		"Functionalities: token_minting, custom_thing",
		"Application domain: defi_dex",
		"- erc-20: ",
		"- token_minting: ",
	} {
		if !strings.Contains(text, frag) {
			t.Errorf("missing %q in:\n%s", frag, text)
		}
	}
	if strings.Contains(text, "Patterns:") || strings.Contains(text, "custom_thing: ") {
		t.Errorf("empty fields and unknown tags must not be rendered:\n%s", text)
	}
}
