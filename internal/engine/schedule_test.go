package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calder/noteval/internal/contracts"
)

func scheduleEntries(dates ...time.Time) []contracts.ObservationScheduleEntry {
	entries := make([]contracts.ObservationScheduleEntry, len(dates))
	for i, d := range dates {
		entries[i] = contracts.ObservationScheduleEntry{
			Index:           i,
			ObservationDate: d,
			IsCallable:      true,
		}
	}
	entries[len(entries)-1].Type = contracts.ObservationFinal
	return entries
}

func TestWalkScheduleClassification(t *testing.T) {
	entries := scheduleEntries(
		date(2025, 3, 31),
		date(2025, 6, 30),
		date(2025, 9, 30),
	)

	walk := WalkSchedule(entries, date(2025, 7, 15), nil, nil)

	assert.Equal(t, contracts.StateOccurred, walk.Status(0))
	assert.Equal(t, contracts.StateOccurred, walk.Status(1))
	assert.Equal(t, contracts.StateUpcoming, walk.Status(2))
	assert.False(t, walk.Called())
	assert.False(t, walk.Matured)
}

func TestWalkScheduleFirstCallHalts(t *testing.T) {
	entries := scheduleEntries(
		date(2025, 3, 31),
		date(2025, 6, 30),
		date(2025, 9, 30),
		date(2025, 12, 31),
	)

	var consulted []int
	condition := func(entry contracts.ObservationScheduleEntry) bool {
		consulted = append(consulted, entry.Index)
		return entry.Index == 1
	}

	// Every entry is past-dated, but the call at index 1 cancels the rest.
	walk := WalkSchedule(entries, date(2026, 1, 15), nil, condition)

	assert.Equal(t, 1, walk.CalledIndex)
	assert.Equal(t, contracts.StateOccurred, walk.Status(0))
	assert.Equal(t, contracts.StateCalled, walk.Status(1))
	assert.Equal(t, contracts.StateCancelled, walk.Status(2))
	assert.Equal(t, contracts.StateCancelled, walk.Status(3))
	assert.False(t, walk.Matured)

	// The condition is consulted once per occurred entry, in order, and
	// never after the call.
	assert.Equal(t, []int{0, 1}, consulted)
}

func TestWalkScheduleMatured(t *testing.T) {
	entries := scheduleEntries(
		date(2025, 6, 30),
		date(2025, 12, 31),
	)

	never := func(contracts.ObservationScheduleEntry) bool { return false }
	walk := WalkSchedule(entries, date(2026, 1, 10), nil, never)

	assert.True(t, walk.Matured)
	assert.Equal(t, contracts.StateOccurred, walk.Status(0))
	assert.Equal(t, contracts.StateMatured, walk.Status(1))
}

func TestWalkScheduleNotMaturedBeforeFinal(t *testing.T) {
	entries := scheduleEntries(
		date(2025, 6, 30),
		date(2025, 12, 31),
	)

	walk := WalkSchedule(entries, date(2025, 12, 30), nil, nil)
	assert.False(t, walk.Matured)
	assert.Equal(t, contracts.StateUpcoming, walk.Status(1))
}

func TestWalkScheduleIssuerCall(t *testing.T) {
	entries := scheduleEntries(
		date(2025, 3, 31),
		date(2025, 6, 30),
		date(2025, 12, 31),
	)

	callDate := date(2025, 5, 15)
	walk := WalkSchedule(entries, date(2026, 1, 15), &callDate, nil)

	assert.True(t, walk.IssuerCalled)
	require.NotNil(t, walk.IssuerCallDate)
	assert.Equal(t, callDate, *walk.IssuerCallDate)

	// Entries before the call date keep their state; everything after is
	// cancelled and maturity never happens.
	assert.Equal(t, contracts.StateOccurred, walk.Status(0))
	assert.Equal(t, contracts.StateCancelled, walk.Status(1))
	assert.Equal(t, contracts.StateCancelled, walk.Status(2))
	assert.False(t, walk.Matured)
}

func TestWalkScheduleFutureIssuerCallInert(t *testing.T) {
	entries := scheduleEntries(
		date(2025, 3, 31),
		date(2025, 12, 31),
	)

	callDate := date(2025, 11, 1)
	walk := WalkSchedule(entries, date(2025, 4, 15), &callDate, nil)

	assert.False(t, walk.IssuerCalled, "a declared future call date changes nothing yet")
	assert.Equal(t, contracts.StateOccurred, walk.Status(0))
	assert.Equal(t, contracts.StateUpcoming, walk.Status(1))
}

func TestWalkScheduleCoincidingDates(t *testing.T) {
	d := date(2025, 6, 30)
	entries := scheduleEntries(
		date(2025, 3, 31),
		d,
		d,
		date(2025, 12, 31),
	)

	always := func(entry contracts.ObservationScheduleEntry) bool {
		return entry.Index >= 1
	}

	walk := WalkSchedule(entries, date(2025, 7, 15), nil, always)

	// Both coinciding entries would call; the lower index wins as first.
	assert.Equal(t, 1, walk.CalledIndex)
	assert.Equal(t, contracts.StateCalled, walk.Status(1))
	assert.Equal(t, contracts.StateCancelled, walk.Status(2))
}
