package model

import "github.com/google/uuid"

// Color is the urgency bucket of one date field.
type Color string

const (
	ColorRed    Color = "red"
	ColorYellow Color = "yellow"
	ColorGreen  Color = "green"
)

// MaxWindowDays bounds the reminder lookahead to ten years.
const MaxWindowDays = 3650

// Colors lists the buckets from most to least urgent.
var Colors = []Color{ColorRed, ColorYellow, ColorGreen}

func (c Color) rank() int {
	switch c {
	case ColorRed:
		return 0
	case ColorYellow:
		return 1
	default:
		return 2
	}
}

// Worse returns the more urgent of c and other.
func (c Color) Worse(other Color) Color {
	if other.rank() < c.rank() {
		return other
	}
	return c
}

// ReminderPayload describes one contract's urgency at generation time. It is never persisted.
type ReminderPayload struct {
	ContractID       uuid.UUID `json:"contract_id"`
	Vendor           string    `json:"vendor"`
	ServiceName      string    `json:"service_name"`
	ExpiryDate       Date      `json:"expiry_date"`
	PaymentDueDate   Date      `json:"payment_due_date"`
	ExpiryColor      Color     `json:"expiry_color"`
	PaymentColor     Color     `json:"payment_color"`
	DaysUntilExpiry  int       `json:"days_until_expiry"`
	DaysUntilPayment int       `json:"days_until_payment"`
	Recipient        string    `json:"recipient"`
}

// OverallColor is the payload's contribution to the overall report bucket.
func (p ReminderPayload) OverallColor() Color {
	return p.ExpiryColor.Worse(p.PaymentColor)
}

type ColorTotals map[Color]int

func NewColorTotals() ColorTotals {
	totals := make(ColorTotals, len(Colors))
	for _, c := range Colors {
		totals[c] = 0
	}
	return totals
}

type ReminderReport struct {
	GeneratedOn          Date              `json:"generated_on"`
	WindowDays           int               `json:"window_days"`
	TotalContracts       int               `json:"total_contracts"`
	TotalsByColor        ColorTotals       `json:"totals_by_color"`
	ExpiryTotalsByColor  ColorTotals       `json:"expiry_totals_by_color"`
	PaymentTotalsByColor ColorTotals       `json:"payment_totals_by_color"`
	Payloads             []ReminderPayload `json:"payloads"`
}
