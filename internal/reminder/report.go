package reminder

import "github.com/noahxzhu/contract-reminder/internal/model"

// Tally aggregates payloads into a report. Each contract counts once in
// TotalsByColor under the more urgent of its two colors, so the overall totals
// always sum to TotalContracts.
func Tally(generatedOn model.Date, windowDays int, payloads []model.ReminderPayload) *model.ReminderReport {
	report := &model.ReminderReport{
		GeneratedOn:          generatedOn,
		WindowDays:           windowDays,
		TotalContracts:       len(payloads),
		TotalsByColor:        model.NewColorTotals(),
		ExpiryTotalsByColor:  model.NewColorTotals(),
		PaymentTotalsByColor: model.NewColorTotals(),
		Payloads:             payloads,
	}
	if report.Payloads == nil {
		report.Payloads = []model.ReminderPayload{}
	}

	for _, p := range payloads {
		report.TotalsByColor[p.OverallColor()]++
		report.ExpiryTotalsByColor[p.ExpiryColor]++
		report.PaymentTotalsByColor[p.PaymentColor]++
	}
	return report
}
