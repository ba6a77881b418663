package market

import (
	"fmt"
	"time"
)

// Contract expiration codes understood by ContractDeliveryTime.
const (
	ExpirationCurrentWeek  = "CW"
	ExpirationNextWeek     = "NW"
	ExpirationCurrentQuarter = "CQ"
	ExpirationNextQuarter  = "NQ"
)

// ContractDeliveryTime ports uxapi.helpers.contract_delivery_time: it
// derives the Friday delivery date for a futures contract from an
// expiration code, the exchange's delivery hour (UTC), and a reference
// time (defaults to now, UTC, when the zero Time is passed).
//
// Weekly contracts (CW/NW) deliver on the Friday of the current or next
// week at deliveryHour UTC. Quarterly contracts (CQ/NQ) deliver on the
// last Friday of the current or next calendar quarter at deliveryHour
// UTC, except that a CQ contract within two weeks of its own delivery
// date rolls forward to the following quarter — this keeps "current
// quarter" from naming a contract that is about to expire.
func ContractDeliveryTime(expiration string, deliveryHour int, since time.Time) (time.Time, error) {
	if since.IsZero() {
		since = time.Now().UTC()
	}
	since = since.UTC()

	switch expiration {
	case ExpirationCurrentWeek:
		cw := startOfISOWeek(since).AddDate(0, 0, 4).Add(time.Duration(deliveryHour) * time.Hour)
		if since.After(cw) {
			cw = nextWeekday(cw, time.Friday)
		}
		return cw, nil

	case ExpirationNextWeek:
		cw, err := ContractDeliveryTime(ExpirationCurrentWeek, deliveryHour, since)
		if err != nil {
			return time.Time{}, err
		}
		return nextWeekday(cw, time.Friday), nil

	case ExpirationCurrentQuarter:
		lastFriday := lastFridayOfQuarter(since).Add(time.Duration(deliveryHour) * time.Hour)
		if !since.Before(lastFriday.AddDate(0, 0, -14)) {
			return ContractDeliveryTime(ExpirationCurrentQuarter, deliveryHour, startOfNextQuarter(since))
		}
		return lastFriday, nil

	case ExpirationNextQuarter:
		cq, err := ContractDeliveryTime(ExpirationCurrentQuarter, deliveryHour, since)
		if err != nil {
			return time.Time{}, err
		}
		return ContractDeliveryTime(ExpirationCurrentQuarter, deliveryHour, startOfNextQuarter(cq))

	default:
		return time.Time{}, fmt.Errorf("invalid expiration %q", expiration)
	}
}

// startOfISOWeek returns Monday 00:00:00 UTC of t's week.
func startOfISOWeek(t time.Time) time.Time {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	d := t.AddDate(0, 0, -(wd - 1))
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// nextWeekday returns the first occurrence of target strictly after t,
// preserving t's time-of-day.
func nextWeekday(t time.Time, target time.Weekday) time.Time {
	d := t.AddDate(0, 0, 1)
	for d.Weekday() != target {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

func quarterStartMonth(m time.Month) time.Month {
	return time.Month(((int(m) - 1) / 3 * 3) + 1)
}

func startOfNextQuarter(t time.Time) time.Time {
	sm := quarterStartMonth(t.Month())
	return time.Date(t.Year(), sm+3, 1, 0, 0, 0, 0, time.UTC)
}

// lastFridayOfQuarter returns midnight UTC of the last Friday in t's
// calendar quarter.
func lastFridayOfQuarter(t time.Time) time.Time {
	sm := quarterStartMonth(t.Month())
	// day 0 of the month after the quarter's last month is the last
	// day of the quarter's last month.
	endOfQuarter := time.Date(t.Year(), sm+3, 0, 0, 0, 0, 0, time.UTC)
	d := endOfQuarter
	for d.Weekday() != time.Friday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}
