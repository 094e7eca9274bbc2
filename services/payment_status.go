package services

import (
	"fmt"
	"time"

	"github.com/phonginreallife/rentdesk/db"
)

// RiskLevel is a coarse urgency classification of a payment
type RiskLevel string

const (
	RiskSafe    RiskLevel = "safe"
	RiskWarning RiskLevel = "warning"
	RiskDanger  RiskLevel = "danger"
	RiskNeutral RiskLevel = "neutral"
)

// Badge colors shared by payment and occupancy badges
const (
	ColorBlue    = "blue"
	ColorOrange  = "orange"
	ColorGreen   = "green"
	ColorRed     = "red"
	ColorDefault = "default"
)

// dueSoonDays is how close a pending due date must be to count as upcoming
const dueSoonDays = 3

// PaymentStatusMeta holds the display fields derived from a payment.
// At most one of OverdueDays and DaysToDue is set.
type PaymentStatusMeta struct {
	Status         db.PaymentStatus `json:"status"`
	OverdueDays    *int             `json:"overdueDays"`
	DaysToDue      *int             `json:"daysToDue"`
	RiskLevel      RiskLevel        `json:"riskLevel"`
	BadgeText      string           `json:"badgeText"`
	BadgeColor     string           `json:"badgeColor"`
	DueInfo        string           `json:"dueInfo"`
	IsUpcoming     bool             `json:"isUpcoming"`
	InvalidDueDate bool             `json:"invalidDueDate,omitempty"`
}

type badge struct {
	text  string
	color string
}

var paymentBadges = map[db.PaymentStatus]badge{
	db.PaymentPending:  {"Pending", ColorBlue},
	db.PaymentPartial:  {"Partially paid", ColorOrange},
	db.PaymentPaid:     {"Paid", ColorGreen},
	db.PaymentOverdue:  {"Overdue", ColorRed},
	db.PaymentCanceled: {"Canceled", ColorDefault},
}

// ComputePaymentStatus derives the display state of p as of now. Day counts
// are calendar days; the time of day is discarded. An unparseable due date is
// treated as absent and flagged with InvalidDueDate.
func ComputePaymentStatus(p db.Payment, now time.Time) PaymentStatusMeta {
	meta := PaymentStatusMeta{
		Status:     p.Status,
		BadgeText:  string(p.Status),
		BadgeColor: ColorDefault,
		RiskLevel:  RiskNeutral,
		DueInfo:    "-",
	}
	if b, ok := paymentBadges[p.Status]; ok {
		meta.BadgeText = b.text
		meta.BadgeColor = b.color
	}

	var due *time.Time
	if p.DueDate != nil && *p.DueDate != "" {
		if t, err := db.ParseDate(*p.DueDate); err == nil {
			due = &t
		} else {
			meta.InvalidDueDate = true
		}
	}

	switch p.Status {
	case db.PaymentPending:
		meta.RiskLevel = RiskSafe
		if due == nil {
			break
		}
		days := daysBetween(*due, now)
		switch {
		case days < 0:
			meta.OverdueDays = intPtr(-days)
			meta.RiskLevel = RiskDanger
			meta.DueInfo = fmt.Sprintf("overdue by %d days", -days)
		case days == 0:
			meta.DaysToDue = intPtr(0)
			meta.RiskLevel = RiskWarning
			meta.IsUpcoming = true
			meta.DueInfo = "due today"
		default:
			meta.DaysToDue = intPtr(days)
			meta.DueInfo = fmt.Sprintf("%d days remaining", days)
			if days <= dueSoonDays {
				meta.IsUpcoming = true
				meta.RiskLevel = RiskWarning
			}
		}

	case db.PaymentOverdue:
		meta.RiskLevel = RiskDanger
		if due == nil {
			meta.DueInfo = "overdue"
			break
		}
		days := daysBetween(now, *due)
		if days < 0 {
			days = 0
		}
		meta.OverdueDays = intPtr(days)
		meta.DueInfo = fmt.Sprintf("overdue by %d days", days)

	case db.PaymentPaid:
		meta.RiskLevel = RiskSafe
		meta.DueInfo = "paid"
		if p.PaidAt != nil && *p.PaidAt != "" {
			if t, err := db.ParseDate(*p.PaidAt); err == nil {
				meta.DueInfo = "paid on " + db.FormatDate(t)
			} else {
				meta.DueInfo = "paid on " + *p.PaidAt
			}
		}

	case db.PaymentPartial:
		meta.RiskLevel = RiskWarning
		meta.DueInfo = "partial payment"

	case db.PaymentCanceled:
		meta.RiskLevel = RiskNeutral
		meta.DueInfo = "canceled"
	}

	return meta
}

// daysBetween returns a minus b in whole calendar days. Each instant
// contributes the calendar date of its own location, so a date-only due
// date keeps its day regardless of where now is evaluated.
func daysBetween(a, b time.Time) int {
	return int(calendarDay(a).Sub(calendarDay(b)) / (24 * time.Hour))
}

func calendarDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func intPtr(v int) *int { return &v }
