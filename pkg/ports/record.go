package ports

import (
	"context"

	"github.com/meridianhealth/intake/pkg/domain"
)

// RecordSink receives red-flag events destined for the subject's permanent
// health record. The orchestrator calls it once per high-severity flag; a
// sink failure is logged but never fails the turn.
type RecordSink interface {
	RecordRedFlag(ctx context.Context, event *domain.RedFlagEvent) error
}
