package reasoning

import (
	"log/slog"

	"github.com/mitchellh/mapstructure"
)

// Profile is the typed view of the accumulated session context the
// analyzers care about. Decoding is weakly typed because context values
// round-trip through JSON persistence (ints come back as float64).
type Profile struct {
	Demographics struct {
		Age      int     `mapstructure:"age"`
		Sex      string  `mapstructure:"sex"`
		HeightM  float64 `mapstructure:"heightM"`
		WeightKg float64 `mapstructure:"weightKg"`
	} `mapstructure:"demographics"`

	History struct {
		Diabetes       bool `mapstructure:"diabetes"`
		Hypertension   bool `mapstructure:"hypertension"`
		Dyslipidemia   bool `mapstructure:"dyslipidemia"`
		CardiacHistory bool `mapstructure:"cardiacHistory"`
		StrokeHistory  bool `mapstructure:"strokeHistory"`
		Asthma         bool `mapstructure:"asthma"`
		COPD           bool `mapstructure:"copd"`
	} `mapstructure:"history"`

	Lifestyle struct {
		Smoking string `mapstructure:"smoking"`
	} `mapstructure:"lifestyle"`

	PHQ2 map[string]string `mapstructure:"phq2"`
}

// CurrentSmoker reports whether the subject smokes today.
func (p *Profile) CurrentSmoker() bool {
	return p.Lifestyle.Smoking == "current"
}

// EverSmoked reports current or former smoking.
func (p *Profile) EverSmoked() bool {
	return p.Lifestyle.Smoking == "current" || p.Lifestyle.Smoking == "former"
}

func decodeProfile(ctx map[string]any, logger *slog.Logger) *Profile {
	var p Profile
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &p,
		WeaklyTypedInput: true,
	})
	if err != nil {
		logger.Error("failed to build profile decoder", "err", err)
		return &p
	}
	if err := dec.Decode(ctx); err != nil {
		// A partially decoded profile is still usable; the analyzers
		// treat zero values as unknown.
		logger.Warn("session context only partially decodable", "err", err)
	}
	return &p
}
