// Package alarm derives the "changed recently" flag readers see next to a
// record. The baseline is a pure time-window computation; acknowledgement on
// view is layered on top when an ack store is configured.
package alarm

import (
	"time"

	"redwatch/internal/notice/models"
)

// Window is how long after an update a record stays flagged.
const Window = 60 * time.Second

// Active reports whether a record alarms at the given instant: only records
// the pipeline marked UPDATED alarm, and only within the trailing window.
// NEW records never alarm regardless of timestamps.
func Active(status models.Status, updatedAt, now time.Time) bool {
	if status != models.StatusUpdated {
		return false
	}
	return now.Sub(updatedAt) <= Window
}
