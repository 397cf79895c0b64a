package loan

import (
	"errors"
	"testing"
	"time"
)

func TestStatusTerminal(t *testing.T) {
	terminal := map[Status]bool{
		StatusCompleted: true,
		StatusDefaulted: true,
		StatusRejected:  true,
	}
	all := []Status{
		StatusDraft, StatusSubmitted, StatusCreditCheck, StatusRiskAssessment,
		StatusApproved, StatusDisbursed, StatusActive, StatusRepaying,
		StatusCompleted, StatusDefaulted, StatusRejected,
	}
	for _, s := range all {
		if got := s.Terminal(); got != terminal[s] {
			t.Errorf("%s.Terminal() = %v, want %v", s, got, terminal[s])
		}
	}
}

func TestParsePurpose(t *testing.T) {
	for _, ok := range []string{"working_capital", "inventory", "equipment", "expansion", "emergency"} {
		if _, err := ParsePurpose(ok); err != nil {
			t.Errorf("ParsePurpose(%q): %v", ok, err)
		}
	}
	if _, err := ParsePurpose("vacation"); !errors.Is(err, ErrInvalidPurpose) {
		t.Errorf("ParsePurpose(vacation) err = %v, want ErrInvalidPurpose", err)
	}
	if _, err := ParsePurpose(""); !errors.Is(err, ErrInvalidPurpose) {
		t.Errorf("ParsePurpose(\"\") err = %v, want ErrInvalidPurpose", err)
	}
}

func TestSetStatus(t *testing.T) {
	now := time.Now().UTC()
	l := &Loan{Status: StatusDraft, IsActive: true}

	l.SetStatus(StatusSubmitted, now)
	if l.Status != StatusSubmitted || l.StatusChangeCount != 1 || !l.IsActive {
		t.Fatalf("after submit: %+v", l)
	}
	if !l.LastStatusChangeAt.Equal(now) {
		t.Fatalf("LastStatusChangeAt = %v, want %v", l.LastStatusChangeAt, now)
	}

	later := now.Add(time.Hour)
	l.SetStatus(StatusRejected, later)
	if l.StatusChangeCount != 2 {
		t.Fatalf("StatusChangeCount = %d, want 2", l.StatusChangeCount)
	}
	if l.IsActive {
		t.Fatal("terminal status left loan active")
	}
}
