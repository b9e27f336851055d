package convert

import (
	"encoding/json"
	"fmt"

	"github.com/sctracker/killfeed/internal/model"
	"github.com/sctracker/killfeed/pkg/core"
)

// RecordPayload decodes the submitted payload of a row.
func RecordPayload(r model.EventRecord) (core.Payload, error) {
	var p core.Payload
	if len(r.Payload) == 0 {
		return p, fmt.Errorf("event %s has no payload", r.EventID)
	}
	if err := json.Unmarshal(r.Payload, &p); err != nil {
		return p, fmt.Errorf("decoding payload of event %s: %w", r.EventID, err)
	}
	return p, nil
}

// RecordDelivery reads the delivery columns of a row.
func RecordDelivery(r model.EventRecord) core.DeliveryRecord {
	return core.DeliveryRecord{
		EventID:    r.EventID,
		Outcome:    r.DeliveryOutcome,
		Attempts:   r.DeliveryAttempts,
		StatusCode: r.DeliveryStatus,
		Message:    r.DeliveryMessage,
		Error:      r.DeliveryError,
		FinishedAt: r.DeliveredAt,
	}
}
