package reconciliation

import (
	"github.com/shopspring/decimal"

	"salonpos-backend/internal/domain"
)

// Totals is derived from the current preview and advance selection. It is
// recomputed on every toggle and never persisted.
type Totals struct {
	Gross             decimal.Decimal
	Fee               decimal.Decimal
	Commission        decimal.Decimal
	NetBeforeAdvances decimal.Decimal
	Advances          decimal.Decimal
	Payable           decimal.Decimal
}

// Calculate sums the preview lines and the selected advances.
// Payable = NetBeforeAdvances - Advances and may be negative when advances
// exceed net earnings; callers surface it as-is.
func Calculate(lines []domain.ServiceLine, advances []domain.Advance, selected Selection) Totals {
	t := Totals{
		Gross:             decimal.Zero,
		Fee:               decimal.Zero,
		Commission:        decimal.Zero,
		NetBeforeAdvances: decimal.Zero,
		Advances:          decimal.Zero,
	}
	for _, line := range lines {
		t.Gross = t.Gross.Add(line.Gross)
		t.Fee = t.Fee.Add(line.Fee)
		t.Commission = t.Commission.Add(line.Commission)
		t.NetBeforeAdvances = t.NetBeforeAdvances.Add(line.Net)
	}
	for _, adv := range advances {
		if selected.Has(adv.ID) {
			t.Advances = t.Advances.Add(adv.Value)
		}
	}
	t.Payable = t.NetBeforeAdvances.Sub(t.Advances)
	return t
}
