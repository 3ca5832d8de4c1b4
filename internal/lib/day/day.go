// Package day содержит операции над календарными датами без времени суток.
// Все даты приводятся к полуночи UTC того же календарного дня, поэтому
// сравнение и сдвиг на N дней не зависят от часового пояса и перехода на летнее время.
package day

import (
	"fmt"
	"time"
)

// Layout формат даты для CLI и логов.
const Layout = "2006-01-02"

// Civil возвращает полночь UTC календарного дня t (в его собственной локации).
func Civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today возвращает текущий календарный день в локации loc.
// Если loc == nil, используется локальная зона сервера.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return Civil(now.In(loc))
}

// Add сдвигает календарный день на n дней.
func Add(d time.Time, n int) time.Time {
	return Civil(d).AddDate(0, 0, n)
}

// Same сравнивает два момента только по календарной дате.
func Same(a, b time.Time) bool {
	return Civil(a).Equal(Civil(b))
}

// Window возвращает полуинтервал [d, d+1) для выборок по одному дню.
func Window(d time.Time) (time.Time, time.Time) {
	from := Civil(d)
	return from, from.AddDate(0, 0, 1)
}

// Parse разбирает дату в формате 2006-01-02.
func Parse(s string) (time.Time, error) {
	const op = "day.Parse"
	t, err := time.Parse(Layout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	return t, nil
}
