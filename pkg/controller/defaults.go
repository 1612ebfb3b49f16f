package controller

import (
	"log/slog"

	"github.com/meridianhealth/intake/pkg/domain"
)

// Targets holds the urgent-path node IDs the escalating controllers jump to.
type Targets struct {
	Cardiac      string
	Respiratory  string
	MentalHealth string
}

// DefaultTargets returns the conventional urgent node IDs.
func DefaultTargets() Targets {
	return Targets{
		Cardiac:      domain.DefaultUrgentCardiacNode,
		Respiratory:  domain.DefaultUrgentRespiratoryNode,
		MentalHealth: domain.DefaultUrgentMentalHealthNode,
	}
}

// DefaultRegistry builds a registry holding every built-in controller under
// its conventional name.
func DefaultRegistry(logger *slog.Logger, targets Targets) *Registry {
	r := NewRegistry(logger)
	r.Register("demographics", NewDemographics())
	r.Register("medications", NewMedications())
	r.Register("medical_history", NewMedicalHistory())
	r.Register("cardio_symptoms", NewCardioSymptoms(targets.Cardiac))
	r.Register("respiratory_symptoms", NewRespiratorySymptoms(targets.Respiratory))
	r.Register("mental_health", NewMentalHealth(targets.MentalHealth))
	r.Register("lifestyle", NewLifestyle())
	r.Register("summary", NewSummary())
	r.Register("safety_banner", NewSafetyBanner())
	return r
}
