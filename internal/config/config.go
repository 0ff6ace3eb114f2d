// Package config holds the runtime configuration, populated from cobra
// flags, QUIZZARD_* environment variables, and an optional config file
// through viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/quizzard/quizzard/internal/layout"
)

type Config struct {
	HTTPAddr      string
	DBPath        string
	QuestionsPath string

	OCRBinary   string
	OCRLanguage string

	// Matching and resolution thresholds; zero selects each package's
	// default.
	FuzzyThreshold  float64
	UnknownDedupSim float64
	ZoneThreshold   float64
	BlockScore      float64
	BlockSim        float64
	FlatFuzzy       float64
	LengthGuard     float64

	// CaptureRect is the fallback flat-mode capture region, used when no
	// layout is active.
	CaptureRect layout.Rect

	CaptureRate float64 // continuous mode, Hz
	Cooldown    float64 // seconds between clicks
	AutoEnabled bool
	DryRun      bool // resolve but never click

	AssistProvider string // "", "openai", "claude"
	AssistBaseURL  string
	AssistAPIKey   string
	AssistModel    string
}

// FromViper reads every setting from a bound viper instance.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		HTTPAddr:      v.GetString("addr"),
		DBPath:        v.GetString("db"),
		QuestionsPath: v.GetString("questions"),

		OCRBinary:   v.GetString("ocr-binary"),
		OCRLanguage: v.GetString("ocr-lang"),

		FuzzyThreshold:  v.GetFloat64("fuzzy-threshold"),
		UnknownDedupSim: v.GetFloat64("unknown-dedup"),
		ZoneThreshold:   v.GetFloat64("zone-threshold"),
		BlockScore:      v.GetFloat64("block-score"),
		BlockSim:        v.GetFloat64("block-sim"),
		FlatFuzzy:       v.GetFloat64("flat-fuzzy"),
		LengthGuard:     v.GetFloat64("length-guard"),

		CaptureRect: layout.Rect{
			X: v.GetFloat64("capture-x"),
			Y: v.GetFloat64("capture-y"),
			W: v.GetFloat64("capture-w"),
			H: v.GetFloat64("capture-h"),
		},

		CaptureRate: v.GetFloat64("capture-rate"),
		Cooldown:    v.GetFloat64("cooldown"),
		AutoEnabled: v.GetBool("auto"),
		DryRun:      v.GetBool("dry-run"),

		AssistProvider: strings.ToLower(v.GetString("assist")),
		AssistBaseURL:  v.GetString("assist-url"),
		AssistAPIKey:   v.GetString("assist-key"),
		AssistModel:    v.GetString("assist-model"),
	}
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.CaptureRect.W <= 0 || c.CaptureRect.H <= 0 {
		return fmt.Errorf("capture rect %+v must have positive size", c.CaptureRect)
	}
	if c.CaptureRate <= 0 {
		return fmt.Errorf("capture rate %f must be positive", c.CaptureRate)
	}
	if c.Cooldown < 0 {
		return fmt.Errorf("cooldown %f must not be negative", c.Cooldown)
	}
	switch c.AssistProvider {
	case "", "openai", "claude":
	default:
		return fmt.Errorf("unknown assist provider %q", c.AssistProvider)
	}
	for name, t := range map[string]float64{
		"fuzzy-threshold": c.FuzzyThreshold,
		"unknown-dedup":   c.UnknownDedupSim,
		"zone-threshold":  c.ZoneThreshold,
		"block-score":     c.BlockScore,
		"block-sim":       c.BlockSim,
		"flat-fuzzy":      c.FlatFuzzy,
		"length-guard":    c.LengthGuard,
	} {
		if t < 0 || t > 1 {
			return fmt.Errorf("%s %f must be within [0,1]", name, t)
		}
	}
	return nil
}
