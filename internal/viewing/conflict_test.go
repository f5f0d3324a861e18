package viewing

import (
	"testing"
	"time"

	"proptrack-backend/internal/models"
)

var dubai = time.FixedZone("GST", 4*60*60)

func at(day, hour, minute int) time.Time {
	return time.Date(2025, 6, day, hour, minute, 0, 0, dubai)
}

func existing(id uint, start time.Time, minutes int, status models.ViewingStatus) *models.Viewing {
	v := &models.Viewing{
		ID:          id,
		PropertyID:  1,
		ClientID:    1,
		ScheduledAt: start,
		Duration:    minutes,
		Status:      status,
		IsActive:    true,
	}
	_, v.EndsAt = v.Window()
	return v
}

func candidate(start time.Time, minutes int) Candidate {
	return Candidate{PropertyID: 1, Start: start, End: start.Add(time.Duration(minutes) * time.Minute)}
}

func TestBufferPolicy(t *testing.T) {
	p := Policy{Mode: ModeBuffer, LookBack: 240 * time.Minute}
	booked := existing(10, at(1, 14, 0), 60, models.ViewingConfirmed)

	tests := []struct {
		name string
		c    Candidate
		want bool
	}{
		{"one hour later same day", candidate(at(1, 15, 0), 60), true},
		{"next day", candidate(at(2, 14, 0), 60), false},
		{"exactly at lookback edge", candidate(at(1, 18, 0), 60), true},
		{"just past lookback", candidate(at(1, 18, 1), 60), false},
		{"ends exactly at existing start", candidate(at(1, 13, 0), 60), true},
		{"ends before existing start", candidate(at(1, 12, 0), 60), false},
		{"same slot", candidate(at(1, 14, 0), 60), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Conflicts(tt.c, booked); got != tt.want {
				t.Fatalf("expected conflict=%v, got %v", tt.want, got)
			}
		})
	}
}

func TestStrictPolicy(t *testing.T) {
	p := Policy{Mode: ModeStrict}
	booked := existing(10, at(1, 14, 0), 60, models.ViewingScheduled)

	tests := []struct {
		name string
		c    Candidate
		want bool
	}{
		{"back to back after", candidate(at(1, 15, 0), 60), false},
		{"back to back before", candidate(at(1, 13, 0), 60), false},
		{"overlaps tail", candidate(at(1, 14, 30), 60), true},
		{"contained", candidate(at(1, 14, 15), 15), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Conflicts(tt.c, booked); got != tt.want {
				t.Fatalf("expected conflict=%v, got %v", tt.want, got)
			}
		})
	}

	gap := Policy{Mode: ModeStrict, MinGap: 30 * time.Minute}
	if !gap.Conflicts(candidate(at(1, 15, 0), 60), booked) {
		t.Fatalf("min gap should reject back to back viewings")
	}
	if gap.Conflicts(candidate(at(1, 15, 30), 60), booked) {
		t.Fatalf("a viewing exactly one gap away should be allowed")
	}
}

func TestInactiveViewingsNeverConflict(t *testing.T) {
	p := Policy{Mode: ModeBuffer, LookBack: 240 * time.Minute}
	c := candidate(at(1, 14, 0), 60)

	for _, status := range []models.ViewingStatus{
		models.ViewingCompleted,
		models.ViewingCancelled,
		models.ViewingNoShow,
		models.ViewingRescheduled,
	} {
		if p.Conflicts(c, existing(10, at(1, 14, 0), 60, status)) {
			t.Fatalf("%s viewing must not conflict", status)
		}
	}

	deleted := existing(11, at(1, 14, 0), 60, models.ViewingConfirmed)
	deleted.IsActive = false
	if p.Conflicts(c, deleted) {
		t.Fatalf("inactive viewing must not conflict")
	}

	other := existing(12, at(1, 14, 0), 60, models.ViewingConfirmed)
	other.PropertyID = 2
	if p.Conflicts(c, other) {
		t.Fatalf("viewings of other properties must not conflict")
	}
}

func TestCandidateExcludesItself(t *testing.T) {
	p := Policy{Mode: ModeBuffer, LookBack: 240 * time.Minute}
	v := existing(10, at(1, 14, 0), 60, models.ViewingConfirmed)

	if p.Conflicts(CandidateFor(v), v) {
		t.Fatalf("a viewing must not conflict with itself on update")
	}
}
