package service

import (
	"sort"
	"strconv"

	"github.com/noah-isme/shift-booking-api/internal/models"
	"github.com/noah-isme/shift-booking-api/pkg/week"
)

// Selections is the desired state of a displayed week:
// employee id -> display column -> set of slot ids.
type Selections map[string]map[week.DisplayIndex]map[string]struct{}

// Add marks a selection and returns s for chaining.
func (s Selections) Add(employeeID string, idx week.DisplayIndex, slotID string) Selections {
	days, ok := s[employeeID]
	if !ok {
		days = make(map[week.DisplayIndex]map[string]struct{})
		s[employeeID] = days
	}
	slots, ok := days[idx]
	if !ok {
		slots = make(map[string]struct{})
		days[idx] = slots
	}
	slots[slotID] = struct{}{}
	return s
}

// Has reports whether the triple is selected.
func (s Selections) Has(employeeID string, idx week.DisplayIndex, slotID string) bool {
	_, ok := s[employeeID][idx][slotID]
	return ok
}

// CreateInstruction asks for a new booking.
type CreateInstruction struct {
	EmployeeID string            `json:"employeeId"`
	Index      week.DisplayIndex `json:"index"`
	Date       week.Date         `json:"date"`
	TimeSlotID string            `json:"timeSlotId"`
}

// CancelInstruction asks for an existing live booking to be withdrawn.
type CancelInstruction struct {
	BookingID  string               `json:"bookingId"`
	EmployeeID string               `json:"employeeId"`
	Index      week.DisplayIndex    `json:"index"`
	Date       week.Date            `json:"date"`
	TimeSlotID string               `json:"timeSlotId"`
	Status     models.BookingStatus `json:"status"`
}

// Plan is the difference between existing bookings and the desired selections.
type Plan struct {
	ToCreate []CreateInstruction `json:"toCreate"`
	ToCancel []CancelInstruction `json:"toCancel"`
}

// Empty reports whether the plan has nothing to do.
func (p Plan) Empty() bool {
	return len(p.ToCreate) == 0 && len(p.ToCancel) == 0
}

// Reconcile computes the set difference between existing and desired for the
// week window. Bookings outside the window, bookings in a terminal status, and
// employees absent from desired are ignored. Neither input is modified and the
// output is ordered by employee, column, then slot.
func Reconcile(window week.Window, existing []models.Booking, desired Selections) Plan {
	current := make(Selections)
	byTriple := make(map[string]models.Booking)

	for _, b := range existing {
		if !b.Status.Live() {
			continue
		}
		if _, tracked := desired[b.EmployeeID]; !tracked {
			continue
		}
		idx, ok := window.IndexOf(b.Date)
		if !ok {
			continue
		}
		key := tripleKey(b.EmployeeID, idx, b.TimeSlotID)
		if _, dup := byTriple[key]; dup {
			continue
		}
		byTriple[key] = b
		current.Add(b.EmployeeID, idx, b.TimeSlotID)
	}

	plan := Plan{ToCreate: []CreateInstruction{}, ToCancel: []CancelInstruction{}}

	for _, employeeID := range sortedKeys(desired) {
		days := desired[employeeID]
		for _, idx := range sortedIndexes(days) {
			if !idx.Valid() {
				continue
			}
			for _, slotID := range sortedKeys(days[idx]) {
				if current.Has(employeeID, idx, slotID) {
					continue
				}
				plan.ToCreate = append(plan.ToCreate, CreateInstruction{
					EmployeeID: employeeID,
					Index:      idx,
					Date:       window.At(idx),
					TimeSlotID: slotID,
				})
			}
		}
	}

	for _, employeeID := range sortedKeys(current) {
		days := current[employeeID]
		for _, idx := range sortedIndexes(days) {
			for _, slotID := range sortedKeys(days[idx]) {
				if desired.Has(employeeID, idx, slotID) {
					continue
				}
				b := byTriple[tripleKey(employeeID, idx, slotID)]
				plan.ToCancel = append(plan.ToCancel, CancelInstruction{
					BookingID:  b.ID,
					EmployeeID: employeeID,
					Index:      idx,
					Date:       b.Date,
					TimeSlotID: slotID,
					Status:     b.Status,
				})
			}
		}
	}

	return plan
}

func tripleKey(employeeID string, idx week.DisplayIndex, slotID string) string {
	return employeeID + "|" + strconv.Itoa(int(idx)) + "|" + slotID
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedIndexes[V any](m map[week.DisplayIndex]V) []week.DisplayIndex {
	keys := make([]week.DisplayIndex, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
