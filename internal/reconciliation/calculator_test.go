package reconciliation

import (
	"testing"

	"github.com/shopspring/decimal"

	"salonpos-backend/internal/domain"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func sampleLines() []domain.ServiceLine {
	return []domain.ServiceLine{
		{AppointmentID: 1, ServiceName: "Corte", Gross: dec("80.00"), Fee: dec("4.00"), Commission: dec("40.00"), Net: dec("36.00")},
		{AppointmentID: 2, ServiceName: "Barba", Gross: dec("25.00"), Fee: dec("1.25"), Commission: dec("15.00"), Net: dec("8.75")},
	}
}

func sampleAdvances() []domain.Advance {
	return []domain.Advance{
		{ID: 11, Value: dec("4.00")},
		{ID: 12, Value: dec("6.00")},
	}
}

func TestCalculateAllSelected(t *testing.T) {
	lines := sampleLines()
	advances := sampleAdvances()
	got := Calculate(lines, advances, SelectAll(advances))

	if !got.Gross.Equal(dec("105.00")) {
		t.Errorf("Gross = %v, want 105.00", got.Gross)
	}
	if !got.NetBeforeAdvances.Equal(dec("44.75")) {
		t.Errorf("NetBeforeAdvances = %v, want 44.75", got.NetBeforeAdvances)
	}
	if !got.Advances.Equal(dec("10.00")) {
		t.Errorf("Advances = %v, want 10.00", got.Advances)
	}
	if !got.Payable.Equal(dec("34.75")) {
		t.Errorf("Payable = %v, want 34.75", got.Payable)
	}
}

func TestCalculateDeselectedAdvancesDoNotDiscount(t *testing.T) {
	lines := sampleLines()
	advances := sampleAdvances()
	got := Calculate(lines, advances, Selection{})

	if !got.Advances.Equal(decimal.Zero) {
		t.Errorf("Advances = %v, want 0", got.Advances)
	}
	if !got.Payable.Equal(dec("44.75")) {
		t.Errorf("Payable = %v, want 44.75", got.Payable)
	}
}

func TestCalculatePartialSelection(t *testing.T) {
	lines := sampleLines()
	advances := sampleAdvances()
	sel := SelectAll(advances)
	sel.Toggle(12)

	got := Calculate(lines, advances, sel)
	if !got.Advances.Equal(dec("4.00")) {
		t.Errorf("Advances = %v, want 4.00", got.Advances)
	}
	if !got.Payable.Equal(dec("40.75")) {
		t.Errorf("Payable = %v, want 40.75", got.Payable)
	}
}

func TestCalculateNegativePayableNotClamped(t *testing.T) {
	lines := []domain.ServiceLine{
		{AppointmentID: 1, Gross: dec("10.00"), Net: dec("8.00")},
	}
	advances := []domain.Advance{{ID: 1, Value: dec("20.00")}}

	got := Calculate(lines, advances, SelectAll(advances))
	if !got.Payable.Equal(dec("-12.00")) {
		t.Errorf("Payable = %v, want -12.00", got.Payable)
	}
}

func TestCalculateEmptyPreview(t *testing.T) {
	got := Calculate(nil, nil, Selection{})
	if !got.Payable.Equal(decimal.Zero) {
		t.Errorf("Payable = %v, want 0", got.Payable)
	}
	if !got.Gross.Equal(decimal.Zero) {
		t.Errorf("Gross = %v, want 0", got.Gross)
	}
}
