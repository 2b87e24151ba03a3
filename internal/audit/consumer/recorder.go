package consumer

import (
	"context"
	"fmt"

	"labbook/internal/audit/repository"
	"labbook/pkg/kafka"
	"labbook/pkg/logger"
	"labbook/pkg/model"
)

// Recorder turns booking events from the audit topic into Audit_log
// entries. Malformed payloads are rejected permanently so the consumer
// parks them on the DLQ instead of retrying forever.
type Recorder struct {
	repo repository.AuditRepository
	log  *logger.Logger
}

func NewRecorder(repo repository.AuditRepository, log *logger.Logger) *Recorder {
	return &Recorder{
		repo: repo,
		log:  log,
	}
}

func (r *Recorder) Handle(ctx context.Context, msg kafka.Message) error {
	var event model.BookingEvent
	if err := msg.DecodeValue(&event); err != nil {
		return kafka.NewPermanentError(
			fmt.Sprintf("failed to decode booking event %s", msg.GetEventID()), err)
	}

	if event.EventID == "" || event.BookingID == "" {
		return kafka.NewPermanentError(
			fmt.Sprintf("booking event %s is missing identifiers", msg.GetEventID()), nil)
	}

	if err := r.repo.Record(ctx, &event); err != nil {
		return err
	}

	r.log.Debug("Audit event recorded",
		"event_id", event.EventID,
		"event_type", event.EventType,
		"booking_id", event.BookingID,
	)
	return nil
}
