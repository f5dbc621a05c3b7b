package main

import (
	"bytes"
	"strings"
	"testing"

	domdep "github.com/kailas-cloud/contractdex/internal/domain/deployment"
)

func TestRootCommands(t *testing.T) {
	want := []string{"serve", "enrich", "embed", "ids", "fields", "stats", "get", "export", "ingest", "search", "index", "mcp"}
	have := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("missing command %q", name)
		}
	}
}

func TestIndexEnsure_RecreateFlag(t *testing.T) {
	f := indexEnsureCmd.Flags().Lookup("recreate")
	if f == nil {
		t.Fatal("index ensure is missing --recreate")
	}
	if f.DefValue != "false" {
		t.Errorf("recreate default = %s", f.DefValue)
	}
}

func TestFieldsList(t *testing.T) {
	var buf bytes.Buffer
	fieldsListCmd.SetOut(&buf)
	if err := fieldsListCmd.RunE(fieldsListCmd, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != len(domdep.DeletableFields) {
		t.Fatalf("expected %d fields, got %d", len(domdep.DeletableFields), len(lines))
	}
	if !strings.Contains(buf.String(), "embeddings\n") {
		t.Fatalf("expected embeddings in list, got %q", buf.String())
	}
}

func TestPick(t *testing.T) {
	if got := pick(0, 50); got != 50 {
		t.Fatalf("expected fallback, got %d", got)
	}
	if got := pick(10, 50); got != 10 {
		t.Fatalf("expected flag, got %d", got)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("got %q", got)
	}
	if got := truncate("0123456789abc", 10); got != "0123456..." {
		t.Fatalf("got %q", got)
	}
}

func TestRecordView(t *testing.T) {
	rec := domdep.New("ref-1", domdep.Facts{Address: "0xabc"}, "Token")
	v := recordView(&rec)
	if v.NodeRef != "ref-1" || v.Name != "Token" || v.Facts.Address != "0xabc" {
		t.Fatalf("unexpected view: %+v", v)
	}
	if v.HasEmbedding || v.Enrichment != nil {
		t.Fatalf("fresh record should have no derived fields: %+v", v)
	}
}
