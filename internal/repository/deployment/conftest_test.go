package deployment

import (
	"context"
	"testing"

	"github.com/kailas-cloud/contractdex/internal/db"
	domdep "github.com/kailas-cloud/contractdex/internal/domain/deployment"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetFn        func(ctx context.Context, key string, fields map[string]string) error
	hgetAllFn     func(ctx context.Context, key string) (map[string]string, error)
	hdelFn        func(ctx context.Context, key string, fields ...string) error
	existsFn      func(ctx context.Context, key string) (bool, error)
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
	dropIndexFn   func(ctx context.Context, name string) error
	searchKNNFn   func(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	searchListFn  func(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error)
	searchCountFn func(ctx context.Context, index, query string) (int, error)
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) HDel(ctx context.Context, key string, fields ...string) error {
	if m.hdelFn != nil {
		return m.hdelFn(ctx, key, fields...)
	}
	return nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return true, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) DropIndex(ctx context.Context, name string) error {
	if m.dropIndexFn != nil {
		return m.dropIndexFn(ctx, name)
	}
	return nil
}

func (m *mockStore) SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error) {
	if m.searchListFn != nil {
		return m.searchListFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchCount(ctx context.Context, index, query string) (int, error) {
	if m.searchCountFn != nil {
		return m.searchCountFn(ctx, index, query)
	}
	return 0, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, 3), ms
}

func testFacts() domdep.Facts {
	return domdep.Facts{
		Address:         "0xAbC123",
		Block:           "19000000",
		StorageProtocol: "ipfs",
		StorageAddress:  "Qm123",
		SolcVersion:     "0.8.20",
		Verified:        true,
		SourceCode:      "contract Token { }",
	}
}

func testEnrichment() domdep.Enrichment {
	return domdep.Enrichment{
		Description:     "An ERC-20 token.",
		Standards:       []string{"erc-20"},
		Patterns:        []string{"ownable", "pausable"},
		Functionalities: []string{"token_transfer"},
		Domain:          "defi",
		SecurityRisks:   "Owner can pause transfers.",
	}
}

func storedHash() map[string]string {
	return map[string]string{
		"id":                         "0ae97a34dde3e870",
		"contract":                   "0xAbC123",
		"block":                      "19000000",
		"storage_protocol":           "ipfs",
		"storage_address":            "Qm123",
		"experimental":               "False",
		"solc_version":               "0.8.20",
		"verified_source":            "True",
		"verified_source_code":       "contract Token { }",
		"description":                "An ERC-20 token.",
		"standards":                  `["erc-20"]`,
		"patterns":                   `["ownable","pausable"]`,
		"functionalities":            `["token_transfer"]`,
		"application_domain":         "defi",
		"security_risks_description": "Owner can pause transfers.",
		"embeddings":                 "[0.6,0.8,0]",
	}
}
