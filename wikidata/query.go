package wikidata

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const entityPrefix = "http://www.wikidata.org/entity/"

// DefaultLanguages maps the language codes known without a lookup to their
// Wikidata entities.
var DefaultLanguages = map[string]string{
	"en": entityPrefix + "Q1860",
	"de": entityPrefix + "Q188",
	"es": entityPrefix + "Q1321",
	"pt": entityPrefix + "Q5146",
	"hu": entityPrefix + "Q9067",
}

// Results is a SPARQL 1.1 query result in JSON format.
type Results struct {
	Head struct {
		Vars []string `json:"vars"`
	} `json:"head"`
	Results struct {
		Bindings []Binding `json:"bindings"`
	} `json:"results"`
}

// Binding is one result row keyed by variable name.
type Binding map[string]Term

// Term is a bound RDF term.
type Term struct {
	Type     string `json:"type"`
	Value    string `json:"value"`
	Lang     string `json:"xml:lang,omitempty"`
	Datatype string `json:"datatype,omitempty"`
}

// Value returns the lexical value bound to name.
func (b Binding) Value(name string) (string, bool) {
	t, ok := b[name]
	if !ok {
		return "", false
	}
	return t.Value, true
}

// LexemeQuery selects lemma and word form of every lexical entry in the
// language entity.
func LexemeQuery(language string) string {
	return `SELECT DISTINCT ?lemma ?representation WHERE {
  ?entry rdf:type <http://www.w3.org/ns/lemon/ontolex#LexicalEntry> .
  ?entry <http://purl.org/dc/terms/language> <` + iriEscape(language) + `> .
  ?entry wikibase:lemma ?lemma .
  ?entry <http://www.w3.org/ns/lemon/ontolex#lexicalForm> ?form .
  ?form <http://www.w3.org/ns/lemon/ontolex#representation> ?representation .
}`
}

// LanguageCodeQuery looks up the entity carrying an ISO 639-1 code.
func LanguageCodeQuery(code string) string {
	return fmt.Sprintf("SELECT ?language WHERE { ?language wdt:P218 %q . } LIMIT 1", code)
}

// Resolver turns a language selector into an entity IRI.
type Resolver struct {
	// Languages is the fixed code table.
	Languages map[string]string
	// Lookup asks the endpoint for codes missing from Languages. May be nil.
	Lookup *Client
	Logger *zap.Logger
}

// Resolve returns the entity for selector. Known codes are taken from the
// table, IRIs are returned as given. Other selectors are looked up when a
// Lookup client is set, and passed through unresolved otherwise or when the
// lookup finds nothing.
func (r *Resolver) Resolve(ctx context.Context, selector string) (string, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if entity, ok := r.Languages[selector]; ok {
		return entity, nil
	}
	if r.Lookup == nil || isIRI(selector) {
		return selector, nil
	}

	res, err := r.Lookup.Select(ctx, LanguageCodeQuery(selector))
	if err != nil {
		return "", fmt.Errorf("resolve language %q: %w", selector, err)
	}
	for _, row := range res.Results.Bindings {
		if entity, ok := row.Value("language"); ok {
			logger.Info("language resolved", zap.String("code", selector), zap.String("entity", entity))
			return entity, nil
		}
	}

	logger.Warn("language code not found, using it unresolved", zap.String("code", selector))
	return selector, nil
}

func isIRI(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// iriEscape drops the characters that would terminate an IRI reference.
func iriEscape(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '<', '>', '"', '{', '}', '|', '^', '`', '\\', ' ', '\n', '\r', '\t':
			return -1
		}
		return r
	}, s)
}
