// Package config loads the YAML-backed build/query configuration: plain
// structs, gopkg.in/yaml.v3, defaults filled in by the caller.
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Options holds the tunables from the configuration options table.
// Zero values mean "use the default" — callers should run Defaults()
// first and then overlay a loaded file on top.
type Options struct {
	DefaultLanguage      string              `yaml:"default_language"`
	DefaultQueryLanguage string              `yaml:"default_query_language"`
	TopK                 int                 `yaml:"top_k"`
	MinTokenLen          int                 `yaml:"min_token_len"`
	MinDF                int                 `yaml:"min_df"`
	MaxDFRatio           float64             `yaml:"max_df_ratio"`
	Workers              int                 `yaml:"index_workers"`
	BlockDocs            int                 `yaml:"index_block_docs"`
	MaxInFlight          int                 `yaml:"index_max_in_flight"`
	MaxTasksPerChild     int                 `yaml:"index_max_tasks_per_child"`
	KeepBlocks           bool                `yaml:"index_keep_blocks"`
	SupportedLanguages   []string            `yaml:"supported_languages"`
	StopwordOverrides    map[string][]string `yaml:"stopword_overrides"`
}

// Defaults returns the configuration options table's defaults.
// Workers defaults to 0, meaning "use runtime.NumCPU()" — resolved by
// the caller (build.Config.Resolve), not here, since this package must
// not import runtime policy decisions.
func Defaults() Options {
	return Options{
		DefaultLanguage:      "english",
		DefaultQueryLanguage: "english",
		TopK:                 20,
		MinTokenLen:          2,
		MinDF:                2,
		MaxDFRatio:           0.5,
		Workers:              0,
		BlockDocs:            10_000,
		MaxInFlight:          0,
		MaxTasksPerChild:     10,
		KeepBlocks:           false,
		SupportedLanguages: []string{
			"spanish", "english", "french", "german", "italian", "portuguese",
		},
	}
}

// IsSupportedLanguage reports whether lang is in SupportedLanguages.
func (o Options) IsSupportedLanguage(lang string) bool {
	for _, l := range o.SupportedLanguages {
		if l == lang {
			return true
		}
	}
	return false
}

// Load reads a YAML configuration file and overlays it on top of
// Defaults(). A missing path is not an error: Load returns Defaults().
func Load(path string) (Options, error) {
	opts := Defaults()
	if path == "" {
		return opts, nil
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return opts, nil
	}
	if err != nil {
		return opts, err
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, err
	}
	return opts, nil
}
