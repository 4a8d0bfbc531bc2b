package subscribers

import "time"

// maxCutoffDay keeps due dates valid in every month, February included.
const maxCutoffDay = 28

// ClampCutoffDay bounds the billing cutoff day to 1..28.
func ClampCutoffDay(day int) int {
	if day < 1 {
		return 1
	}
	if day > maxCutoffDay {
		return maxCutoffDay
	}
	return day
}

// NextDueOnRegister picks the first due date for a new subscriber: this
// month's cutoff day when it has not passed yet, otherwise next month's.
func NextDueOnRegister(now time.Time, cutoffDay int) time.Time {
	day := ClampCutoffDay(cutoffDay)
	month := now.Month()
	if now.Day() > day {
		month++
	}
	// time.Date normalizes month 13 into January of the next year.
	return time.Date(now.Year(), month, day, 0, 0, 0, 0, now.Location())
}

// NextDueAfterPayment advances the due date one billing cycle from now: next
// month's occurrence of the cutoff day.
func NextDueAfterPayment(now time.Time, cutoffDay int) time.Time {
	day := ClampCutoffDay(cutoffDay)
	return time.Date(now.Year(), now.Month()+1, day, 0, 0, 0, 0, now.Location())
}
