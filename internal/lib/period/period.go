// Package period содержит чистый калькулятор расчётных периодов.
// Вся арифметика ведётся в целых календарных днях без смещения таймзон:
// дата берётся как календарный день, а не момент времени, что исключает
// ошибки на границах периодов.
package period

import (
	"time"

	"github.com/magabrotheeeer/tuition-billing/internal/models"
)

// Open возвращает упорядоченный список периодов, открывшихся к дате asOf.
// Период n занимает полуинтервал [anchor + n*span, anchor + (n+1)*span) и считается
// открытым, как только его начало не позже asOf. Если задана дата отчисления,
// генерация останавливается на последнем периоде, начавшемся не позже неё,
// даже если asOf наступает позже.
//
// Функция чистая: одинаковые аргументы всегда дают одинаковый результат.
func Open(anchor time.Time, scheme models.Scheme, dropout *time.Time, asOf time.Time) []models.PeriodKey {
	if !scheme.Valid() {
		return nil
	}

	anchor = Day(anchor)
	asOf = Day(asOf)
	if asOf.Before(anchor) {
		return nil
	}

	limit := asOf
	if dropout != nil {
		d := Day(*dropout)
		if d.Before(limit) {
			limit = d
		}
	}

	var keys []models.PeriodKey
	for n := 0; ; n++ {
		key := models.PeriodKey{Anchor: anchor, Ordinal: n, Scheme: scheme}
		if key.Start().After(limit) {
			break
		}
		keys = append(keys, key)
	}
	return keys
}

// Day отбрасывает время суток, оставляя календарный день в UTC.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
