package classify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/codes"

	"github.com/kailas-cloud/contractdex/internal/domain"
	"github.com/kailas-cloud/contractdex/internal/domain/deployment"
)

// Stage names.
const (
	StageExtract  = "extract"
	StageInsight  = "insight"
	StageOntology = "ontology"
	StageAugment  = "augment"
	StageAssemble = "assemble"
)

// Extracted is the structural summary of a contract.
type Extracted struct {
	ContractName   string   `json:"contract_name"`
	Functions      []string `json:"functions"`
	Events         []string `json:"events"`
	StateVariables []string `json:"state_variables"`
	Inheritance    []string `json:"inheritance"`
}

// Insight is the functional reading of a contract.
type Insight struct {
	Functionality string   `json:"functionality"`
	Domain        string   `json:"domain"`
	SecurityRisks []string `json:"security_risks"`
	KeyFeatures   []string `json:"key_features"`
}

// Ontology places a contract in the structural ontology.
type Ontology struct {
	ContractType         string   `json:"contract_type"`
	AccessControl        []string `json:"access_control"`
	StateManagement      string   `json:"state_management"`
	BusinessLogic        string   `json:"business_logic"`
	ExternalInteractions []string `json:"external_interactions"`
}

// State is shared by the stages of one classification.
type State struct {
	Source     string
	Extracted  *Extracted
	Insight    *Insight
	Ontology   *Ontology
	Analysis   string
	Enrichment *deployment.Enrichment
}

// MultiStage classifies through extract, insight, ontology, augment and
// assemble stages. Only assemble is required for a result.
type MultiStage struct {
	llm   Completer
	opts  Options
	chain *Chain
}

// NewMultiStage creates the multi-stage classifier.
func NewMultiStage(llm Completer, opts Options) *MultiStage {
	m := &MultiStage{llm: llm, opts: opts}
	chain, err := NewChain(
		Stage{Name: StageExtract, Run: m.extract},
		Stage{Name: StageInsight, Needs: []string{StageExtract}, Run: m.insight},
		Stage{Name: StageOntology, Needs: []string{StageExtract, StageInsight}, Run: m.ontology},
		Stage{Name: StageAugment, Needs: []string{StageInsight, StageOntology}, Run: augment},
		Stage{Name: StageAssemble, Run: m.assemble},
	)
	if err != nil {
		// The stage table is static.
		panic(err)
	}
	m.chain = chain
	return m
}

// Classify runs the chain. It fails only when assemble fails; the error
// then is the assemble StageError.
func (m *MultiStage) Classify(ctx context.Context, source string) (Result, error) {
	ctx, span := tracer.Start(ctx, "classify.multistage")
	defer span.End()

	src, err := Preprocess(source, m.opts.MaxInputTokens)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Result{}, err
	}

	st := &State{Source: src}
	trace := m.chain.Run(ctx, st)
	for _, r := range trace {
		if r.Stage == StageAssemble && r.Err != nil {
			span.SetStatus(codes.Error, r.Err.Error())
			return Result{Trace: trace}, r.Err
		}
	}
	if st.Enrichment == nil {
		return Result{Trace: trace}, &StageError{
			Stage: StageAssemble,
			Cause: fmt.Errorf("no enrichment produced: %w", domain.ErrMalformedOutput),
		}
	}
	return newResult(*st.Enrichment, trace), nil
}

func (m *MultiStage) extract(ctx context.Context, st *State) error {
	obj, err := m.ask(ctx, StageExtract, extractSystem, fmt.Sprintf(extractUser, st.Source))
	if err != nil {
		return err
	}
	st.Extracted = &Extracted{
		ContractName:   stringValue(obj, "contract_name"),
		Functions:      stringList(obj, "functions"),
		Events:         stringList(obj, "events"),
		StateVariables: stringList(obj, "state_variables"),
		Inheritance:    stringList(obj, "inheritance"),
	}
	return nil
}

func (m *MultiStage) insight(ctx context.Context, st *State) error {
	obj, err := m.ask(ctx, StageInsight, insightSystem,
		fmt.Sprintf(insightUser, st.Source, compactJSON(st.Extracted)))
	if err != nil {
		return err
	}
	in := Insight{
		Functionality: stringValue(obj, "functionality"),
		Domain:        stringValue(obj, "domain"),
		SecurityRisks: stringList(obj, "security_risks"),
		KeyFeatures:   stringList(obj, "key_features"),
	}
	if in.Functionality == "" {
		return fmt.Errorf("functionality is empty: %w", domain.ErrMalformedOutput)
	}
	st.Insight = &in
	return nil
}

func (m *MultiStage) ontology(ctx context.Context, st *State) error {
	obj, err := m.ask(ctx, StageOntology, ontologySystem,
		fmt.Sprintf(ontologyUser, st.Source, compactJSON(st.Extracted), compactJSON(st.Insight)))
	if err != nil {
		return err
	}
	st.Ontology = &Ontology{
		ContractType:         stringValue(obj, "contract_type"),
		AccessControl:        stringList(obj, "access_control"),
		StateManagement:      stringValue(obj, "state_management"),
		BusinessLogic:        stringValue(obj, "business_logic"),
		ExternalInteractions: stringList(obj, "external_interactions"),
	}
	return nil
}

// augment renders insight and ontology as plain text for the assemble prompt.
func augment(_ context.Context, st *State) error {
	if st.Insight == nil || st.Ontology == nil {
		return errors.New("insight and ontology are required")
	}
	var b strings.Builder
	line := func(label, v string) {
		if v != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, v)
		}
	}
	if st.Extracted != nil {
		line("Contract Name", st.Extracted.ContractName)
		line("Inheritance", strings.Join(st.Extracted.Inheritance, ", "))
	}
	line("Domain", st.Insight.Domain)
	line("Functionality", st.Insight.Functionality)
	line("Security Risks", strings.Join(st.Insight.SecurityRisks, ", "))
	line("Key Features", strings.Join(st.Insight.KeyFeatures, ", "))
	line("Contract Type", st.Ontology.ContractType)
	line("Access Control", strings.Join(st.Ontology.AccessControl, ", "))
	line("State Management", st.Ontology.StateManagement)
	line("Business Logic", st.Ontology.BusinessLogic)
	line("External Interactions", strings.Join(st.Ontology.ExternalInteractions, ", "))
	st.Analysis = strings.TrimSpace(b.String())
	return nil
}

// assemble produces the final enrichment. Without prior analysis it
// degrades to a single-shot call on the source.
func (m *MultiStage) assemble(ctx context.Context, st *State) error {
	e, err := complete(ctx, m.llm, m.opts, st.Source, st.Analysis)
	if err != nil {
		return err
	}
	st.Enrichment = &e
	return nil
}

func (m *MultiStage) ask(ctx context.Context, purpose, system, user string) (map[string]any, error) {
	res, err := m.llm.CompleteJSON(ctx, domain.ChatRequest{
		Purpose:     purpose,
		System:      system,
		User:        user,
		Temperature: m.opts.Temperature,
		MaxTokens:   m.opts.MaxTokens,
	})
	if err != nil {
		return nil, err
	}
	return decodeObject(res.Content)
}

func compactJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}
