package engine

import (
	"time"

	"github.com/calder/noteval/internal/contracts"
)

// CallCondition decides whether a product is called at an occurred entry.
// The walker consults it once per occurred entry, in index order, and stops
// consulting after the first true. Conditions may carry fold state (memory
// pools, flag sets) because of that single in-order guarantee.
type CallCondition func(entry contracts.ObservationScheduleEntry) bool

// EntryStatus pairs a schedule entry with its lifecycle state
type EntryStatus struct {
	Entry contracts.ObservationScheduleEntry
	State contracts.EntryState
}

// WalkResult is the full classification of a schedule at an evaluation date
type WalkResult struct {
	Entries []EntryStatus

	// CalledIndex is the index of the entry marked called, -1 when none.
	CalledIndex int

	// Matured is set when no call occurred and the evaluation date reached
	// the final entry.
	Matured bool

	// IssuerCalled is set when an issuer call date cut the walk short.
	IssuerCalled   bool
	IssuerCallDate *time.Time
}

// Called reports whether a barrier call occurred during the walk
func (w *WalkResult) Called() bool {
	return w.CalledIndex >= 0
}

// Status returns the classified state for an entry index
func (w *WalkResult) Status(index int) contracts.EntryState {
	return w.Entries[index].State
}

// WalkSchedule walks an observation schedule in index order up to the
// evaluation date and classifies each entry's lifecycle state. This is the
// single entry point for "did a redemption event happen before date X":
// every payoff calculator delegates here instead of re-implementing call
// detection.
//
// The first occurred entry whose call condition holds is marked called and
// all later entries become cancelled, even those already past their
// observation date. An issuer call date, when set and reached, cancels every
// entry after it. When neither applies and the evaluation date reaches the
// final entry, that entry is marked matured.
//
// Coinciding observation dates are tolerated: iteration is by index, so the
// lower index wins as "first". That is deliberate policy for anomalous data,
// not an accident of ordering.
func WalkSchedule(entries []contracts.ObservationScheduleEntry, evalDate time.Time, issuerCallDate *time.Time, isCalled CallCondition) *WalkResult {
	result := &WalkResult{
		Entries:     make([]EntryStatus, len(entries)),
		CalledIndex: -1,
	}

	issuerCallActive := issuerCallDate != nil && !issuerCallDate.After(evalDate)
	if issuerCallActive {
		result.IssuerCalled = true
		result.IssuerCallDate = issuerCallDate
	}

	for i, entry := range entries {
		status := EntryStatus{Entry: entry}

		switch {
		case result.CalledIndex >= 0:
			// Everything strictly after a call is cancelled, never
			// independently evaluated.
			status.State = contracts.StateCancelled

		case issuerCallActive && entry.ObservationDate.After(*issuerCallDate):
			status.State = contracts.StateCancelled

		case !entry.ObservationDate.After(evalDate):
			status.State = contracts.StateOccurred
			if isCalled != nil && isCalled(entry) {
				status.State = contracts.StateCalled
				result.CalledIndex = i
			}

		default:
			status.State = contracts.StateUpcoming
		}

		result.Entries[i] = status
	}

	// No call of either kind and the final entry has occurred: matured.
	if result.CalledIndex < 0 && !result.IssuerCalled {
		last := len(entries) - 1
		if result.Entries[last].State == contracts.StateOccurred {
			result.Entries[last].State = contracts.StateMatured
			result.Matured = true
		}
	}

	return result
}
