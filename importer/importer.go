// Package importer runs one lexeme import: fetch, group, publish.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/yokitheyo/lexemes2solr/solr"
	"github.com/yokitheyo/lexemes2solr/synonyms"
)

// PairSource yields the (lemma, representation) pairs of a language.
type PairSource interface {
	Pairs(ctx context.Context, language string) ([]synonyms.Pair, error)
}

// Publisher receives the finished mapping once.
type Publisher interface {
	Publish(ctx context.Context, m synonyms.Mapping) error
}

// Importer wires a source to a publisher.
type Importer struct {
	Source    PairSource
	Publisher Publisher
	Logger    *zap.Logger
}

// Run imports language. Nothing is published if fetching fails.
func (im *Importer) Run(ctx context.Context, language string) (synonyms.Stats, error) {
	logger := im.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	start := time.Now()

	pairs, err := im.Source.Pairs(ctx, language)
	if err != nil {
		return synonyms.Stats{}, fmt.Errorf("fetch lexemes: %w", err)
	}

	m, stats := synonyms.Build(pairs)
	logger.Info("synonyms grouped",
		zap.Int("pairs", len(pairs)),
		zap.Int("lemmas", stats.Lemmas),
		zap.Int("representations", stats.Representations),
		zap.Int("words", len(m)))

	if err := im.Publisher.Publish(ctx, m); err != nil {
		return stats, fmt.Errorf("publish synonyms: %w", err)
	}

	logger.Info("import completed", zap.String("language", language), zap.Duration("took", time.Since(start)))
	return stats, nil
}

// SolrPublisher publishes to one managed resource and optionally reloads the
// core afterwards.
type SolrPublisher struct {
	Client *solr.Client
	Target solr.Target
	Reload bool
}

func (p *SolrPublisher) Publish(ctx context.Context, m synonyms.Mapping) error {
	if err := p.Client.Publish(ctx, m, p.Target); err != nil {
		return err
	}
	if p.Reload {
		return p.Client.Reload(ctx, p.Target)
	}
	return nil
}

// JSONWriter writes the mapping as indented JSON instead of publishing it.
type JSONWriter struct {
	W io.Writer
}

func (j *JSONWriter) Publish(_ context.Context, m synonyms.Mapping) error {
	enc := json.NewEncoder(j.W)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("write synonyms: %w", err)
	}
	return nil
}
