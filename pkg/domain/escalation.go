package domain

// Default urgent-path node IDs. Graphs that use different IDs configure the
// engine and the built-in controllers with their own targets.
const (
	DefaultUrgentCardiacNode      = "urgent_cardiac"
	DefaultUrgentRespiratoryNode  = "urgent_respiratory"
	DefaultUrgentMentalHealthNode = "urgent_mental_health"
)
