package api

import "time"

const DateLayout = "2006-01-02"

// ParseDate YYYY-MM-DD değerini loc'ta gün başlangıcına çevirir.
func ParseDate(v string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, v, loc)
}

// DayRange dateFrom/dateTo çiftini [from 00:00, to+1 gün 00:00) sınırlarına çevirir.
// Geçersiz ya da boş taraf nil döner.
func DayRange(from, to string, loc *time.Location) (*time.Time, *time.Time) {
	var lo, hi *time.Time
	if t, err := ParseDate(from, loc); err == nil {
		lo = &t
	}
	if t, err := ParseDate(to, loc); err == nil {
		end := t.AddDate(0, 0, 1)
		hi = &end
	}
	return lo, hi
}
