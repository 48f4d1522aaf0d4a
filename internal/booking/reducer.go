package booking

import (
	"time"

	"github.com/shopspring/decimal"

	"salonpos-backend/internal/domain"
)

// Step of the appointment wizard.
type Step string

const (
	StepService      Step = "service"
	StepConfirmation Step = "confirmation"
	StepDatetime     Step = "datetime"
	StepProduct      Step = "product"
)

// State is the whole wizard: selected services in pick order, at most one
// professional per service, an optional client, and the chosen slot.
type State struct {
	Step                  Step
	ServiceIDs            []int64
	ProfessionalByService map[int64]int64
	ClientID              *int64
	Date                  time.Time
	TimeSlot              string
}

// NewState returns the wizard's initial state for a given date.
func NewState(date time.Time) State {
	return State{
		Step:                  StepService,
		ProfessionalByService: map[int64]int64{},
		Date:                  date,
	}
}

// Action is the closed set of wizard inputs.
type Action interface{ isAction() }

type ToggleService struct{ ServiceID int64 }

type AssignProfessional struct {
	ServiceID      int64
	ProfessionalID int64
}

type SetClient struct{ ClientID *int64 }

type SetDateTime struct {
	Date     time.Time
	TimeSlot string
}

type GoToStep struct{ Step Step }

// Reset restores the wizard to a caller-supplied initial state; used both
// for cancel and for post-submit cleanup.
type Reset struct{ Initial State }

func (ToggleService) isAction()      {}
func (AssignProfessional) isAction() {}
func (SetClient) isAction()          {}
func (SetDateTime) isAction()        {}
func (GoToStep) isAction()           {}
func (Reset) isAction()              {}

// Reduce applies one action and returns the next state. Pure: the input
// state is never mutated.
func Reduce(s State, a Action) State {
	next := clone(s)
	switch act := a.(type) {
	case ToggleService:
		idx := indexOf(next.ServiceIDs, act.ServiceID)
		if idx >= 0 {
			next.ServiceIDs = append(next.ServiceIDs[:idx], next.ServiceIDs[idx+1:]...)
			delete(next.ProfessionalByService, act.ServiceID)
			if len(next.ServiceIDs) == 0 {
				next.Step = StepService
			}
			return next
		}
		wasEmpty := len(next.ServiceIDs) == 0
		next.ServiceIDs = append(next.ServiceIDs, act.ServiceID)
		if wasEmpty {
			next.Step = StepConfirmation
		}
		return next
	case AssignProfessional:
		if indexOf(next.ServiceIDs, act.ServiceID) < 0 {
			return next
		}
		next.ProfessionalByService[act.ServiceID] = act.ProfessionalID
		return next
	case SetClient:
		next.ClientID = act.ClientID
		return next
	case SetDateTime:
		next.Date = act.Date
		next.TimeSlot = act.TimeSlot
		return next
	case GoToStep:
		next.Step = act.Step
		return next
	case Reset:
		return clone(act.Initial)
	}
	return next
}

func clone(s State) State {
	out := s
	out.ServiceIDs = append([]int64(nil), s.ServiceIDs...)
	out.ProfessionalByService = make(map[int64]int64, len(s.ProfessionalByService))
	for k, v := range s.ProfessionalByService {
		out.ProfessionalByService[k] = v
	}
	if s.ClientID != nil {
		id := *s.ClientID
		out.ClientID = &id
	}
	return out
}

func indexOf(ids []int64, id int64) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

// Summary is derived from the selection: total price of the selected
// services and their combined duration, used to place the end time.
type Summary struct {
	TotalPrice      decimal.Decimal
	DurationMinutes int
	EndTime         string
}

// Summarize computes the booking summary against the catalog. Unknown
// service IDs contribute nothing. EndTime is empty until a slot is chosen.
func Summarize(s State, catalog []domain.CatalogItem) Summary {
	byID := make(map[int64]domain.CatalogItem, len(catalog))
	for _, it := range catalog {
		byID[it.ID] = it
	}
	sum := Summary{TotalPrice: decimal.Zero}
	for _, id := range s.ServiceIDs {
		it, ok := byID[id]
		if !ok {
			continue
		}
		sum.TotalPrice = sum.TotalPrice.Add(it.Price)
		sum.DurationMinutes += it.DurationMinutes
	}
	if s.TimeSlot != "" {
		if end, err := EndTime(s.TimeSlot, sum.DurationMinutes); err == nil {
			sum.EndTime = end
		}
	}
	return sum
}
