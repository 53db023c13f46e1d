package contracts

import (
	"fmt"
	"time"
)

// ObservationType distinguishes intermediate observations from the final one
type ObservationType string

const (
	ObservationIntermediate ObservationType = "intermediate"
	ObservationFinal        ObservationType = "final"
)

// EntryState is the lifecycle state of a schedule entry at evaluation time.
// Transitions: upcoming -> occurred -> (called | matured | cancelled).
type EntryState string

const (
	StateUpcoming  EntryState = "upcoming"
	StateOccurred  EntryState = "occurred"
	StateCalled    EntryState = "called"
	StateMatured   EntryState = "matured"
	StateCancelled EntryState = "cancelled"
)

// ObservationScheduleEntry is one row of a product's observation schedule.
// Entries are ordered by date and Index is the position in that order.
type ObservationScheduleEntry struct {
	Index           int             `json:"index"`
	ObservationDate time.Time       `json:"observation_date"`
	PaymentDate     time.Time       `json:"payment_date"`
	Type            ObservationType `json:"type"`
	IsCallable      bool            `json:"is_callable"`

	// AutocallLevel overrides the product-level autocall barrier for this
	// entry when set (step-down schedules).
	AutocallLevel *float64 `json:"autocall_level,omitempty"`

	// ScheduledRebate is the rebate paid on call at this entry, for
	// call-schedule templates.
	ScheduledRebate *float64 `json:"scheduled_rebate,omitempty"`
}

// ValidateSchedule checks the ordering invariants of an observation schedule:
// indices are positional and observation dates never decrease. Coinciding
// dates are a data anomaly the walker tolerates (lower index wins as first);
// a date moving backwards is rejected outright.
func ValidateSchedule(entries []ObservationScheduleEntry) error {
	if len(entries) == 0 {
		return fmt.Errorf("observation schedule is empty")
	}

	for i, entry := range entries {
		if entry.Index != i {
			return fmt.Errorf("schedule entry %d has index %d, want %d", i, entry.Index, i)
		}
		if i > 0 && entry.ObservationDate.Before(entries[i-1].ObservationDate) {
			return fmt.Errorf("schedule entry %d observation date %s precedes entry %d",
				i, entry.ObservationDate.Format("2006-01-02"), i-1)
		}
	}

	return nil
}
