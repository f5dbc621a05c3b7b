package domain

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type stubEmbedder struct {
	result EmbeddingResult
	err    error
	got    []string
}

func (s *stubEmbedder) Embed(_ context.Context, text string) (EmbeddingResult, error) {
	s.got = append(s.got, text)
	return s.result, s.err
}

type stubBatchEmbedder struct {
	stubEmbedder
	batchResult BatchEmbeddingResult
	batchErr    error
	batchTexts  []string
}

func (s *stubBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (BatchEmbeddingResult, error) {
	s.batchTexts = texts
	return s.batchResult, s.batchErr
}

func TestInstructionEmbedder_Embed(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{0.6, 0.8}}}
	emb := NewInstructionEmbedder(inner, "query: ")

	res, err := emb.Embed(context.Background(), "erc-20 staking vault")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.got[0] != "query: erc-20 staking vault" {
		t.Errorf("inner got %q", inner.got[0])
	}
	if len(res.Embedding) != 2 {
		t.Errorf("len = %d, want 2", len(res.Embedding))
	}
}

func TestInstructionEmbedder_EmbedError(t *testing.T) {
	providerErr := errors.New("provider down")
	emb := NewInstructionEmbedder(&stubEmbedder{err: providerErr}, "")

	if _, err := emb.Embed(context.Background(), "x"); !errors.Is(err, providerErr) {
		t.Errorf("expected wrapped provider error, got %v", err)
	}
}

func TestInstructionEmbedder_BatchEmbed_NativeBatch(t *testing.T) {
	inner := &stubBatchEmbedder{batchResult: BatchEmbeddingResult{
		Embeddings:  [][]float32{{1}, {0}},
		TotalTokens: 12,
	}}
	emb := NewInstructionEmbedder(inner, "doc: ")

	res, err := emb.BatchEmbed(context.Background(), []string{"proxy", "diamond"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.batchTexts[0] != "doc: proxy" || inner.batchTexts[1] != "doc: diamond" {
		t.Errorf("batch texts = %v", inner.batchTexts)
	}
	if res.TotalTokens != 12 {
		t.Errorf("TotalTokens = %d, want 12", res.TotalTokens)
	}
}

func TestInstructionEmbedder_BatchEmbed_Fallback(t *testing.T) {
	inner := &stubEmbedder{result: EmbeddingResult{Embedding: []float32{1}, PromptTokens: 2, TotalTokens: 2}}
	emb := NewInstructionEmbedder(inner, "")

	res, err := emb.BatchEmbed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Embeddings) != 3 || len(inner.got) != 3 {
		t.Fatalf("embeddings = %d, calls = %d, want 3/3", len(res.Embeddings), len(inner.got))
	}
	if res.PromptTokens != 6 || res.TotalTokens != 6 {
		t.Errorf("tokens = %d/%d, want 6/6", res.PromptTokens, res.TotalTokens)
	}
}

func TestBatchFallback_StopsOnFirstError(t *testing.T) {
	providerErr := errors.New("boom")
	inner := &stubEmbedder{err: providerErr}

	_, err := BatchFallback(context.Background(), inner, []string{"a", "b"})
	if !errors.Is(err, providerErr) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if len(inner.got) != 1 {
		t.Errorf("calls = %d, want 1", len(inner.got))
	}
}

func TestCheckDimensions(t *testing.T) {
	tests := []struct {
		name    string
		want    int
		vectors [][]float32
		wantErr bool
	}{
		{"match", 3, [][]float32{{1, 0, 0}, {0, 1, 0}}, false},
		{"disabled", 0, [][]float32{{1}, {1, 2}}, false},
		{"mismatch", 3, [][]float32{{1, 0, 0}, {1, 0}}, true},
		{"empty vector", 2, [][]float32{nil}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckDimensions(tt.want, tt.vectors...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrDimensionMismatch) {
				t.Errorf("expected ErrDimensionMismatch, got %v", err)
			}
		})
	}
}

func TestDimensionMismatchError_As(t *testing.T) {
	err := NewDimensionMismatch(384, 768)

	var dm *DimensionMismatchError
	if !errors.As(err, &dm) {
		t.Fatal("expected DimensionMismatchError")
	}
	if dm.Want != 384 || dm.Got != 768 {
		t.Errorf("got %+v", dm)
	}
	if err.Error() != "embedding dimension mismatch: want 384, got 768" {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestTokenUsage_Concurrent(t *testing.T) {
	ctx, u := NewContextWithUsage(context.Background())

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			UsageFromContext(ctx).AddEmbeddingTokens(2)
			UsageFromContext(ctx).AddCompletionTokens(3)
		}()
	}
	wg.Wait()

	emb, compl, used := u.Snapshot()
	if emb != 100 || compl != 150 || !used {
		t.Errorf("snapshot = %d/%d/%v, want 100/150/true", emb, compl, used)
	}
}

func TestTokenUsage_NilSafe(t *testing.T) {
	u := UsageFromContext(context.Background())
	u.AddEmbeddingTokens(5)
	if _, _, used := u.Snapshot(); used {
		t.Error("nil usage should report unused")
	}
}
