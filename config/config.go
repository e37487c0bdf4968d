// Package config holds the settings of an import run.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/yokitheyo/lexemes2solr/wikidata"
)

// Config is the full configuration of one run.
type Config struct {
	// Language is a code from Languages or a full entity IRI.
	Language string `yaml:"language" validate:"required"`
	// Languages maps language codes to Wikidata entities.
	Languages       map[string]string `yaml:"languages" validate:"dive,keys,required,endkeys,required"`
	ResolveLanguage bool              `yaml:"resolve_language"`
	Verbose         bool              `yaml:"verbose"`

	Solr    SolrConfig    `yaml:"solr"`
	SPARQL  SPARQLConfig  `yaml:"sparql"`
	Logging LoggingConfig `yaml:"logging"`
}

// SolrConfig names the managed synonyms resource.
type SolrConfig struct {
	URL      string        `yaml:"url" validate:"required,url"`
	Core     string        `yaml:"core" validate:"required"`
	Resource string        `yaml:"resource" validate:"required"`
	Reload   bool          `yaml:"reload"`
	Timeout  time.Duration `yaml:"timeout" validate:"gt=0"`
}

// SPARQLConfig configures the lexeme query service.
type SPARQLConfig struct {
	Endpoint  string        `yaml:"endpoint" validate:"required,url"`
	UserAgent string        `yaml:"user_agent" validate:"required"`
	Timeout   time.Duration `yaml:"timeout" validate:"gt=0"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level       string `yaml:"level" validate:"oneof=debug info warn error"`
	Development bool   `yaml:"development"`
}

// Default returns the settings used when nothing else is given.
func Default() *Config {
	languages := make(map[string]string, len(wikidata.DefaultLanguages))
	for code, entity := range wikidata.DefaultLanguages {
		languages[code] = entity
	}

	return &Config{
		Language:  "en",
		Languages: languages,
		Verbose:   true,
		Solr: SolrConfig{
			URL:      "http://localhost:8983/solr/",
			Core:     "core1",
			Resource: "lexemes",
			Timeout:  60 * time.Second,
		},
		SPARQL: SPARQLConfig{
			Endpoint:  wikidata.DefaultEndpoint,
			UserAgent: wikidata.DefaultUserAgent,
			Timeout:   5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default value.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

var validate = validator.New()

// Validate checks the struct tags and reports every failing field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("config: invalid configuration: %s", strings.Join(msgs, "; "))
}
