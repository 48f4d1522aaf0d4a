package booking

import (
	"reflect"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"salonpos-backend/internal/domain"
)

func testDate() time.Time {
	return time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
}

func TestFirstServiceAdvancesStep(t *testing.T) {
	s := NewState(testDate())
	if s.Step != StepService {
		t.Fatalf("initial step = %v, want service", s.Step)
	}
	s = Reduce(s, ToggleService{ServiceID: 1})
	if s.Step != StepConfirmation {
		t.Errorf("step = %v, want confirmation", s.Step)
	}
	if !reflect.DeepEqual(s.ServiceIDs, []int64{1}) {
		t.Errorf("ServiceIDs = %v, want [1]", s.ServiceIDs)
	}
}

func TestSecondServiceKeepsStep(t *testing.T) {
	s := NewState(testDate())
	s = Reduce(s, ToggleService{ServiceID: 1})
	s = Reduce(s, GoToStep{Step: StepDatetime})
	s = Reduce(s, ToggleService{ServiceID: 2})
	if s.Step != StepDatetime {
		t.Errorf("step = %v, want datetime", s.Step)
	}
	if !reflect.DeepEqual(s.ServiceIDs, []int64{1, 2}) {
		t.Errorf("ServiceIDs = %v, want [1 2]", s.ServiceIDs)
	}
}

func TestRemovingLastServiceReturnsToServiceStep(t *testing.T) {
	s := NewState(testDate())
	s = Reduce(s, ToggleService{ServiceID: 1})
	s = Reduce(s, AssignProfessional{ServiceID: 1, ProfessionalID: 7})
	s = Reduce(s, ToggleService{ServiceID: 1})

	if s.Step != StepService {
		t.Errorf("step = %v, want service", s.Step)
	}
	if len(s.ServiceIDs) != 0 {
		t.Errorf("ServiceIDs = %v, want empty", s.ServiceIDs)
	}
	if _, ok := s.ProfessionalByService[1]; ok {
		t.Error("removed service kept its professional assignment")
	}
}

func TestRemovingOneServiceDropsOnlyItsAssignment(t *testing.T) {
	s := NewState(testDate())
	s = Reduce(s, ToggleService{ServiceID: 1})
	s = Reduce(s, ToggleService{ServiceID: 2})
	s = Reduce(s, AssignProfessional{ServiceID: 1, ProfessionalID: 7})
	s = Reduce(s, AssignProfessional{ServiceID: 2, ProfessionalID: 8})
	s = Reduce(s, ToggleService{ServiceID: 1})

	if s.Step != StepConfirmation {
		t.Errorf("step = %v, want confirmation", s.Step)
	}
	if _, ok := s.ProfessionalByService[1]; ok {
		t.Error("assignment for removed service survived")
	}
	if got := s.ProfessionalByService[2]; got != 8 {
		t.Errorf("assignment for kept service = %d, want 8", got)
	}
}

func TestAssignProfessionalReplaces(t *testing.T) {
	s := NewState(testDate())
	s = Reduce(s, ToggleService{ServiceID: 1})
	s = Reduce(s, AssignProfessional{ServiceID: 1, ProfessionalID: 7})
	s = Reduce(s, AssignProfessional{ServiceID: 1, ProfessionalID: 9})
	if got := s.ProfessionalByService[1]; got != 9 {
		t.Errorf("assignment = %d, want 9", got)
	}
}

func TestAssignProfessionalIgnoresUnselectedService(t *testing.T) {
	s := NewState(testDate())
	s = Reduce(s, AssignProfessional{ServiceID: 5, ProfessionalID: 7})
	if len(s.ProfessionalByService) != 0 {
		t.Errorf("assignments = %v, want empty", s.ProfessionalByService)
	}
}

func TestResetRestoresInitial(t *testing.T) {
	initial := NewState(testDate())
	s := Reduce(initial, ToggleService{ServiceID: 1})
	clientID := int64(42)
	s = Reduce(s, SetClient{ClientID: &clientID})
	s = Reduce(s, SetDateTime{Date: testDate().AddDate(0, 0, 1), TimeSlot: "14:30"})
	s = Reduce(s, Reset{Initial: initial})

	if s.Step != StepService || len(s.ServiceIDs) != 0 || s.ClientID != nil || s.TimeSlot != "" {
		t.Errorf("reset state = %+v, want initial", s)
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	s := NewState(testDate())
	s = Reduce(s, ToggleService{ServiceID: 1})
	before := len(s.ServiceIDs)
	_ = Reduce(s, ToggleService{ServiceID: 2})
	if len(s.ServiceIDs) != before {
		t.Error("Reduce mutated its input state")
	}
	_ = Reduce(s, AssignProfessional{ServiceID: 1, ProfessionalID: 7})
	if len(s.ProfessionalByService) != 0 {
		t.Error("Reduce mutated the input assignment map")
	}
}

func TestSummarize(t *testing.T) {
	catalog := []domain.CatalogItem{
		{ID: 1, Name: "Corte", Price: decimal.RequireFromString("30.00"), DurationMinutes: 30},
		{ID: 2, Name: "Barba", Price: decimal.RequireFromString("25.00"), DurationMinutes: 15},
	}
	s := NewState(testDate())
	s = Reduce(s, ToggleService{ServiceID: 1})
	s = Reduce(s, ToggleService{ServiceID: 2})
	s = Reduce(s, ToggleService{ServiceID: 99}) // unknown, contributes nothing
	s = Reduce(s, SetDateTime{Date: testDate(), TimeSlot: "10:00"})

	sum := Summarize(s, catalog)
	if !sum.TotalPrice.Equal(decimal.RequireFromString("55.00")) {
		t.Errorf("TotalPrice = %v, want 55.00", sum.TotalPrice)
	}
	if sum.DurationMinutes != 45 {
		t.Errorf("DurationMinutes = %d, want 45", sum.DurationMinutes)
	}
	if sum.EndTime != "10:45" {
		t.Errorf("EndTime = %q, want 10:45", sum.EndTime)
	}
}
