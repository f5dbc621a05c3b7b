// Package mcp exposes contract search and lookup as Model Context Protocol
// tools, resources and prompts.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/kailas-cloud/contractdex/internal/domain"
	domdep "github.com/kailas-cloud/contractdex/internal/domain/deployment"
	"github.com/kailas-cloud/contractdex/internal/domain/search/mode"
	"github.com/kailas-cloud/contractdex/internal/domain/search/request"
	cataloguc "github.com/kailas-cloud/contractdex/internal/usecase/catalog"
	searchuc "github.com/kailas-cloud/contractdex/internal/usecase/search"
)

const serverName = "contractdex"

// Tool names.
const (
	ToolSearch       = "search_contracts"
	ToolVectorSearch = "vector_search_contracts"
	ToolDetails      = "get_contract_details"
)

// StatsURI is the catalog statistics resource.
const StatsURI = "contracts://stats"

const (
	defaultThreshold = 0.7
	maxDescription   = 200
)

// Searcher runs a validated search.
type Searcher interface {
	Search(ctx context.Context, req request.Request) (searchuc.Response, error)
}

// Catalog reads records and counts.
type Catalog interface {
	Get(ctx context.Context, id string) (domdep.Record, error)
	Stats(ctx context.Context) (cataloguc.Stats, error)
}

// Server wires the use cases into an MCP server.
type Server struct {
	search  Searcher
	catalog Catalog
	logger  *zap.Logger
	mcp     *mcpserver.MCPServer
}

// NewServer registers tools, resources and prompts.
func NewServer(search Searcher, catalog Catalog, version string, logger *zap.Logger) *Server {
	s := &Server{search: search, catalog: catalog, logger: logger}

	m := mcpserver.NewMCPServer(serverName, version,
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithResourceCapabilities(false, false),
		mcpserver.WithPromptCapabilities(false),
		mcpserver.WithRecovery(),
	)
	m.AddTool(searchTool(), s.SearchContracts)
	m.AddTool(vectorSearchTool(), s.VectorSearchContracts)
	m.AddTool(detailsTool(), s.GetContractDetails)
	m.AddResource(mcpgo.NewResource(StatsURI, "Catalog statistics",
		mcpgo.WithResourceDescription("Record counts by enrichment state"),
		mcpgo.WithMIMEType("application/json"),
	), s.ReadStats)
	m.AddPrompt(analyzePrompt(), AnalyzeContract)
	m.AddPrompt(comparePrompt(), CompareContracts)
	s.mcp = m
	return s
}

// ServeStdio serves MCP over newline-delimited JSON-RPC until ctx ends.
func (s *Server) ServeStdio(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := mcpserver.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger))
	return stdio.Listen(ctx, in, out)
}

// HTTPHandler serves MCP over streamable HTTP.
func (s *Server) HTTPHandler() http.Handler {
	return mcpserver.NewStreamableHTTPServer(s.mcp)
}

func searchTool() mcpgo.Tool {
	return mcpgo.NewTool(ToolSearch,
		mcpgo.WithDescription("Search for smart contracts using semantic search"),
		mcpgo.WithString("query", mcpgo.Required(),
			mcpgo.Description("Search query for finding relevant contracts")),
		mcpgo.WithNumber("k", mcpgo.Description("Number of results to return"),
			mcpgo.DefaultNumber(request.DefaultLimit), mcpgo.Min(1), mcpgo.Max(request.MaxVectorLimit)),
		mcpgo.WithString("mode", mcpgo.Description("vector, text or source"),
			mcpgo.Enum(string(mode.Vector), string(mode.Text), string(mode.Source))),
	)
}

func vectorSearchTool() mcpgo.Tool {
	return mcpgo.NewTool(ToolVectorSearch,
		mcpgo.WithDescription("Search for smart contracts using vector similarity search with natural language queries"),
		mcpgo.WithString("query", mcpgo.Required(),
			mcpgo.Description("Natural language search query for finding similar contracts")),
		mcpgo.WithNumber("limit", mcpgo.Description("Maximum number of results to return"),
			mcpgo.DefaultNumber(request.DefaultLimit), mcpgo.Min(1), mcpgo.Max(request.MaxVectorLimit)),
		mcpgo.WithNumber("threshold", mcpgo.Description("Similarity threshold (0.0 to 1.0)"),
			mcpgo.DefaultNumber(defaultThreshold), mcpgo.Min(0), mcpgo.Max(1)),
	)
}

func detailsTool() mcpgo.Tool {
	return mcpgo.NewTool(ToolDetails,
		mcpgo.WithDescription("Get detailed information about a specific contract by id"),
		mcpgo.WithString("id", mcpgo.Required(), mcpgo.Description("Contract id")),
		mcpgo.WithBoolean("include_source", mcpgo.Description("Include verified source code")),
	)
}

// SearchContracts runs a search in any mode without a score threshold.
func (s *Server) SearchContracts(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	m := mode.Mode(req.GetString("mode", string(mode.Vector)))
	limit := req.GetInt("k", request.DefaultLimit)

	sr, err := request.New(query, m, limit, 0, false)
	if err != nil {
		return s.toolError(ToolSearch, err), nil
	}
	return s.runSearch(ctx, ToolSearch, sr)
}

// VectorSearchContracts runs a vector search with a similarity threshold.
func (s *Server) VectorSearchContracts(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", request.DefaultLimit)
	if limit < 1 || limit > request.MaxVectorLimit {
		return mcpgo.NewToolResultError(fmt.Sprintf("limit must be between 1 and %d", request.MaxVectorLimit)), nil
	}
	threshold := req.GetFloat("threshold", defaultThreshold)

	sr, err := request.New(query, mode.Vector, limit, threshold, false)
	if err != nil {
		return s.toolError(ToolVectorSearch, err), nil
	}
	return s.runSearch(ctx, ToolVectorSearch, sr)
}

func (s *Server) runSearch(ctx context.Context, tool string, req request.Request) (*mcpgo.CallToolResult, error) {
	resp, err := s.search.Search(ctx, req)
	if err != nil {
		return s.toolError(tool, err), nil
	}
	out := searchOutput{
		Query:   resp.Query,
		Mode:    string(req.Mode()),
		Count:   len(resp.Results),
		Skipped: resp.Skipped,
		Results: make([]contract, len(resp.Results)),
	}
	for i := range resp.Results {
		rec := resp.Results[i].Record()
		c := summary(&rec)
		c.SimilarityScore = resp.Results[i].Score()
		out.Results[i] = c
	}
	return jsonResult(out)
}

// GetContractDetails returns one record by id.
func (s *Server) GetContractDetails(ctx context.Context, req mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcpgo.NewToolResultError(err.Error()), nil
	}
	rec, err := s.catalog.Get(ctx, id)
	if err != nil {
		return s.toolError(ToolDetails, err), nil
	}
	return jsonResult(details(&rec, req.GetBool("include_source", false)))
}

// ReadStats returns catalog counts as JSON.
func (s *Server) ReadStats(ctx context.Context, req mcpgo.ReadResourceRequest) ([]mcpgo.ResourceContents, error) {
	st, err := s.catalog.Stats(ctx)
	if err != nil {
		s.logger.Warn("mcp stats failed", zap.Error(err))
		return nil, fmt.Errorf("read %s: %s", StatsURI, domain.PublicMessage(err))
	}
	b, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encode stats: %w", err)
	}
	return []mcpgo.ResourceContents{
		mcpgo.TextResourceContents{URI: req.Params.URI, MIMEType: "application/json", Text: string(b)},
	}, nil
}

func (s *Server) toolError(tool string, err error) *mcpgo.CallToolResult {
	s.logger.Warn("mcp tool failed", zap.String("tool", tool), zap.Error(err))
	return mcpgo.NewToolResultError(domain.PublicMessage(err))
}

func jsonResult(v any) (*mcpgo.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	return mcpgo.NewToolResultText(string(b)), nil
}

type searchOutput struct {
	Query   string     `json:"query"`
	Mode    string     `json:"mode"`
	Count   int        `json:"count"`
	Skipped int        `json:"skipped,omitempty"`
	Results []contract `json:"results"`
}

type contract struct {
	ID                string   `json:"id"`
	Contract          string   `json:"contract"`
	Name              string   `json:"name,omitempty"`
	Description       string   `json:"description,omitempty"`
	Standards         []string `json:"standards,omitempty"`
	Patterns          []string `json:"patterns,omitempty"`
	Functionalities   []string `json:"functionalities,omitempty"`
	ApplicationDomain string   `json:"application_domain,omitempty"`
	SecurityRisks     string   `json:"security_risks_description,omitempty"`
	Verified          bool     `json:"verified_source"`
	SimilarityScore   *float64 `json:"similarity_score,omitempty"`
}

type contractDetails struct {
	contract
	Block           string `json:"block,omitempty"`
	StorageProtocol string `json:"storage_protocol,omitempty"`
	StorageAddress  string `json:"storage_address,omitempty"`
	Experimental    bool   `json:"experimental"`
	SolcVersion     string `json:"solc_version,omitempty"`
	SourceCode      string `json:"verified_source_code,omitempty"`
	HasEmbedding    bool   `json:"has_embedding"`
}

// summary trims the description for search listings.
func summary(rec *domdep.Record) contract {
	c := full(rec)
	if r := []rune(c.Description); len(r) > maxDescription {
		c.Description = strings.TrimSpace(string(r[:maxDescription])) + "..."
	}
	return c
}

func full(rec *domdep.Record) contract {
	c := contract{
		ID:       rec.ID(),
		Contract: rec.Facts().Address,
		Name:     rec.Name(),
		Verified: rec.Facts().Verified,
	}
	if e := rec.Enrichment(); e != nil {
		c.Description = e.Description
		c.Standards = e.Standards
		c.Patterns = e.Patterns
		c.Functionalities = e.Functionalities
		c.ApplicationDomain = e.Domain
		c.SecurityRisks = e.SecurityRisks
	}
	return c
}

func details(rec *domdep.Record, includeSource bool) contractDetails {
	f := rec.Facts()
	d := contractDetails{
		contract:        full(rec),
		Block:           f.Block,
		StorageProtocol: f.StorageProtocol,
		StorageAddress:  f.StorageAddress,
		Experimental:    f.Experimental,
		SolcVersion:     f.SolcVersion,
		HasEmbedding:    rec.HasEmbedding(),
	}
	if includeSource {
		d.SourceCode = f.SourceCode
	}
	return d
}
