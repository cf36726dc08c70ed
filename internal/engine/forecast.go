package engine

import "financaspro/internal/core"

// Forecast projects the viewing month's end-of-month outflow.
type Forecast struct {
	UnpaidFixedTotal core.Money `json:"unpaidFixedTotal"`
	DailyAvg         core.Money `json:"dailyAvg"`
	TotalForecast    core.Money `json:"totalForecast"`
	IsCurrentMonth   bool       `json:"isCurrentMonth"`
	DaysRemaining    int        `json:"daysRemaining"`
}

// Forecasting works from three buckets: fixed bills still unpaid for the
// month, what the month has already spent, and a run-rate projection of
// discretionary spend over the remaining days. Only the real current month
// gets the projection: a closed historical month has no remaining days,
// so its elapsed-day count is the full month length and the projected
// remainder is zero.
func Project(snap *core.Snapshot, month core.MonthKey, today core.Date) Forecast {
	sum := Summarize(snap, month)
	return projectFromSummary(snap, sum, month, today)
}

func projectFromSummary(snap *core.Snapshot, sum Summary, month core.MonthKey, today core.Date) Forecast {
	f := Forecast{IsCurrentMonth: today.Month() == month}

	for _, b := range snap.FixedBills {
		if !b.IsPaidFor(month) {
			f.UnpaidFixedTotal.Cents += b.Value.Cents
		}
	}

	// discretionary spend only: no fixed bills, no invoice traffic, no
	// investment contributions
	var variable int64
	for _, t := range sum.MonthTransactions {
		if t.Type != core.TypeExpense || t.IsInvoicePayment {
			continue
		}
		switch t.Category {
		case core.CategoryFixedBills, core.CategoryCardInvoice, core.CategoryInvestment:
			continue
		}
		variable += t.Value.Cents
	}

	daysInMonth := month.Days()
	currentDay := daysInMonth
	if f.IsCurrentMonth {
		currentDay = today.Day()
	}
	f.DaysRemaining = daysInMonth - currentDay

	var projected int64
	if currentDay > 0 {
		f.DailyAvg = core.Money{Cents: variable / int64(currentDay)}
		if f.IsCurrentMonth {
			projected = variable * int64(f.DaysRemaining) / int64(currentDay)
		}
	}
	f.TotalForecast = core.Money{Cents: sum.MonthExpense.Cents + f.UnpaidFixedTotal.Cents + projected}
	return f
}
