package reconciliation

import (
	"reflect"
	"testing"

	"salonpos-backend/internal/domain"
)

func TestSelectAllCoversEveryAdvance(t *testing.T) {
	advances := []domain.Advance{{ID: 3}, {ID: 1}, {ID: 2}}
	sel := SelectAll(advances)
	for _, adv := range advances {
		if !sel.Has(adv.ID) {
			t.Errorf("advance %d not selected", adv.ID)
		}
	}
	if got, want := sel.IDs(), []int64{1, 2, 3}; !reflect.DeepEqual(got, want) {
		t.Errorf("IDs() = %v, want %v", got, want)
	}
}

func TestToggleFlips(t *testing.T) {
	sel := Selection{}
	sel.Toggle(7)
	if !sel.Has(7) {
		t.Error("expected 7 selected after first toggle")
	}
	sel.Toggle(7)
	if sel.Has(7) {
		t.Error("expected 7 deselected after second toggle")
	}
}

func TestIDsEmptySelection(t *testing.T) {
	sel := Selection{}
	if got := sel.IDs(); len(got) != 0 {
		t.Errorf("IDs() = %v, want empty", got)
	}
}
