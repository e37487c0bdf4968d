package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/yokitheyo/lexemes2solr/solr"
	"github.com/yokitheyo/lexemes2solr/synonyms"
	"github.com/yokitheyo/lexemes2solr/wikidata"
)

type stubSource struct {
	pairs    []synonyms.Pair
	err      error
	language string
}

func (s *stubSource) Pairs(_ context.Context, language string) ([]synonyms.Pair, error) {
	s.language = language
	return s.pairs, s.err
}

type stubPublisher struct {
	calls int
	got   synonyms.Mapping
	err   error
}

func (p *stubPublisher) Publish(_ context.Context, m synonyms.Mapping) error {
	p.calls++
	p.got = m
	return p.err
}

func TestImporter_Run(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	src := &stubSource{pairs: []synonyms.Pair{
		{Lemma: "cat", Representation: "kitty"},
		{Lemma: "cat", Representation: "feline"},
		{Lemma: "dog", Representation: "puppy"},
	}}
	pub := &stubPublisher{}

	im := &Importer{Source: src, Publisher: pub, Logger: zap.New(core)}
	stats, err := im.Run(context.Background(), "urn:en")
	require.NoError(t, err)

	assert.Equal(t, "urn:en", src.language)
	assert.Equal(t, synonyms.Stats{Lemmas: 2, Representations: 3}, stats)
	assert.Equal(t, 1, pub.calls)
	assert.Len(t, pub.got, 5)
	assert.Equal(t, []string{"feline", "cat", "kitty"}, pub.got["feline"])
	assert.Equal(t, 1, logs.FilterMessage("synonyms grouped").Len())
	assert.Equal(t, 1, logs.FilterMessage("import completed").Len())
}

func TestImporter_SourceFailureSkipsPublish(t *testing.T) {
	srcErr := errors.New("endpoint down")
	pub := &stubPublisher{}

	im := &Importer{Source: &stubSource{err: srcErr}, Publisher: pub}
	_, err := im.Run(context.Background(), "en")

	require.ErrorIs(t, err, srcErr)
	assert.Contains(t, err.Error(), "fetch lexemes")
	assert.Zero(t, pub.calls)
}

func TestImporter_PublishFailure(t *testing.T) {
	pubErr := errors.New("rejected")
	src := &stubSource{pairs: []synonyms.Pair{{Lemma: "a", Representation: "b"}}}

	im := &Importer{Source: src, Publisher: &stubPublisher{err: pubErr}}
	stats, err := im.Run(context.Background(), "en")

	require.ErrorIs(t, err, pubErr)
	assert.Contains(t, err.Error(), "publish synonyms")
	assert.Equal(t, 1, stats.Lemmas)
}

func TestImporter_NothingToGroup(t *testing.T) {
	pub := &stubPublisher{}
	src := &stubSource{pairs: []synonyms.Pair{{Lemma: "a", Representation: "a"}}}

	stats, err := (&Importer{Source: src, Publisher: pub}).Run(context.Background(), "en")
	require.NoError(t, err)

	assert.Equal(t, synonyms.Stats{}, stats)
	assert.Equal(t, 1, pub.calls)
	assert.Empty(t, pub.got)
}

func TestJSONWriter_Publish(t *testing.T) {
	var buf bytes.Buffer
	m := synonyms.Mapping{"b": {"b", "a"}, "a": {"a", "b"}}

	require.NoError(t, (&JSONWriter{W: &buf}).Publish(context.Background(), m))

	var got synonyms.Mapping
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, m, got)
	assert.Contains(t, buf.String(), "\n  \"a\": [")
}

// TestImporter_EndToEnd runs the real clients against one stub server that
// plays both the query service and Solr.
func TestImporter_EndToEnd(t *testing.T) {
	var published synonyms.Mapping
	var reloads int

	r := mux.NewRouter()
	r.HandleFunc("/sparql", func(w http.ResponseWriter, req *http.Request) {
		var res wikidata.Results
		for _, p := range [][2]string{{"run", "ran"}, {"run", "running"}, {"run", "run"}} {
			res.Results.Bindings = append(res.Results.Bindings, wikidata.Binding{
				"lemma":          {Type: "literal", Value: p[0]},
				"representation": {Type: "literal", Value: p[1]},
			})
		}
		_ = json.NewEncoder(w).Encode(res)
	}).Methods(http.MethodGet)
	r.HandleFunc("/solr/{core}/schema/analysis/synonyms/{resource}", func(w http.ResponseWriter, req *http.Request) {
		_ = json.NewDecoder(req.Body).Decode(&published)
	}).Methods(http.MethodPost)
	r.HandleFunc("/solr/admin/cores", func(w http.ResponseWriter, req *http.Request) {
		reloads++
	}).Methods(http.MethodGet)

	srv := httptest.NewServer(r)
	defer srv.Close()

	im := &Importer{
		Source: wikidata.NewClient(srv.URL+"/sparql", time.Second),
		Publisher: &SolrPublisher{
			Client: solr.NewClient(time.Second, nil),
			Target: solr.Target{BaseURL: srv.URL + "/solr", Core: "core1", Resource: "lexemes"},
			Reload: true,
		},
	}
	stats, err := im.Run(context.Background(), "urn:en")
	require.NoError(t, err)

	assert.Equal(t, synonyms.Stats{Lemmas: 1, Representations: 2}, stats)
	assert.Equal(t, synonyms.Mapping{
		"run":     {"run", "ran", "running"},
		"ran":     {"ran", "run", "running"},
		"running": {"running", "run", "ran"},
	}, published)
	assert.Equal(t, 1, reloads)
}
