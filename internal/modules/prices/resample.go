package prices

import (
	"time"

	"github.com/HimJar911/RiskSuite360/internal/domain"
)

// Resample keeps the last observation of every calendar period of freq
// (day, ISO week, month). The trailing period is dropped unless the panel
// reaches that period's last business day.
func Resample(prices *domain.Panel, freq domain.Frequency) (*domain.Panel, error) {
	const op = "prices.Resample"

	if _, err := freq.PeriodsPerYear(); err != nil {
		return nil, err
	}
	if prices.Dates == nil {
		return nil, domain.DataError(op, "panel has no dates to resample on")
	}

	var last []int
	for i, d := range prices.Dates {
		if i > 0 && periodKey(d, freq) == periodKey(prices.Dates[i-1], freq) {
			last[len(last)-1] = i
			continue
		}
		last = append(last, i)
	}

	if n := len(last); n > 0 {
		end := prices.Dates[last[n-1]]
		if dayOf(end).Before(lastBusinessDay(end, freq)) {
			last = last[:n-1]
		}
	}
	if len(last) == 0 {
		return nil, domain.DataError(op, "no complete %s period in panel", freq)
	}

	out := &domain.Panel{
		Dates:   make([]time.Time, len(last)),
		Assets:  append([]string(nil), prices.Assets...),
		Columns: make([][]float64, prices.NumAssets()),
	}
	for k, i := range last {
		out.Dates[k] = prices.Dates[i]
	}
	for j, c := range prices.Columns {
		col := make([]float64, len(last))
		for k, i := range last {
			col[k] = c[i]
		}
		out.Columns[j] = col
	}
	return out, nil
}

type period struct{ year, sub int }

func periodKey(d time.Time, freq domain.Frequency) period {
	switch freq {
	case domain.FrequencyWeekly:
		y, w := d.ISOWeek()
		return period{y, w}
	case domain.FrequencyMonthly:
		return period{d.Year(), int(d.Month())}
	default:
		return period{d.Year(), d.YearDay()}
	}
}

func dayOf(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

// lastBusinessDay is the final Monday-Friday date of the period containing d.
func lastBusinessDay(d time.Time, freq domain.Frequency) time.Time {
	day := dayOf(d)
	var end time.Time
	switch freq {
	case domain.FrequencyWeekly:
		// ISO weeks run Monday..Sunday
		offset := (int(time.Sunday) - int(day.Weekday()) + 7) % 7
		end = day.AddDate(0, 0, offset)
	case domain.FrequencyMonthly:
		end = time.Date(day.Year(), day.Month()+1, 0, 0, 0, 0, 0, time.UTC)
	default:
		return day
	}
	for end.Weekday() == time.Saturday || end.Weekday() == time.Sunday {
		end = end.AddDate(0, 0, -1)
	}
	return end
}
