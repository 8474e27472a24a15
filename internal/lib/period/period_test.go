package period

import (
	"testing"
	"time"

	"github.com/magabrotheeeer/tuition-billing/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestOpen_TableTests(t *testing.T) {
	anchor := date(2024, 1, 1)

	tests := []struct {
		name    string
		anchor  time.Time
		scheme  models.Scheme
		dropout *time.Time
		asOf    time.Time
		want    int // ожидаемое количество открытых периодов
	}{
		{
			name:   "asOf before anchor",
			anchor: anchor,
			scheme: models.SchemeWeekly,
			asOf:   date(2023, 12, 31),
			want:   0,
		},
		{
			name:   "asOf equals anchor opens first period",
			anchor: anchor,
			scheme: models.SchemeEvery28,
			asOf:   anchor,
			want:   1,
		},
		{
			name:   "every28 scheme over ten weeks",
			anchor: anchor,
			scheme: models.SchemeEvery28,
			asOf:   date(2024, 3, 15),
			want:   3, // начала: 1 янв, 29 янв, 26 фев
		},
		{
			name:   "weekly scheme exact boundary",
			anchor: anchor,
			scheme: models.SchemeWeekly,
			asOf:   date(2024, 1, 15), // начало третьего периода
			want:   3,
		},
		{
			name:   "daily scheme",
			anchor: anchor,
			scheme: models.SchemeDaily,
			asOf:   date(2024, 1, 10),
			want:   10,
		},
		{
			name:   "biweekly scheme one day before second period",
			anchor: anchor,
			scheme: models.SchemeBiweekly,
			asOf:   date(2024, 1, 14),
			want:   1,
		},
		{
			name:    "dropout freezes generation",
			anchor:  anchor,
			scheme:  models.SchemeWeekly,
			dropout: ptr(date(2024, 1, 20)),
			asOf:    date(2024, 6, 1),
			want:    3, // начала: 1, 8, 15 янв; 22 янв уже после отчисления
		},
		{
			name:    "dropout after asOf has no effect",
			anchor:  anchor,
			scheme:  models.SchemeWeekly,
			dropout: ptr(date(2024, 3, 1)),
			asOf:    date(2024, 1, 10),
			want:    2,
		},
		{
			name:   "unknown scheme yields nothing",
			anchor: anchor,
			scheme: models.Scheme("monthly"),
			asOf:   date(2024, 6, 1),
			want:   0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Open(tt.anchor, tt.scheme, tt.dropout, tt.asOf)
			require.Len(t, got, tt.want)

			for i, key := range got {
				assert.Equal(t, i, key.Ordinal)
				assert.False(t, key.Start().After(Day(tt.asOf)),
					"период %d начинается после asOf", i)
				if tt.dropout != nil {
					assert.False(t, key.Start().After(Day(*tt.dropout)),
						"период %d начинается после отчисления", i)
				}
			}
		})
	}
}

func TestOpen_MonotonicAsOfAdvances(t *testing.T) {
	anchor := date(2024, 1, 1)
	prev := 0
	for day := 0; day < 120; day++ {
		asOf := anchor.AddDate(0, 0, day)
		got := Open(anchor, models.SchemeBiweekly, nil, asOf)
		require.GreaterOrEqual(t, len(got), prev,
			"количество открытых периодов не должно уменьшаться")
		prev = len(got)
	}
	assert.Equal(t, 9, prev) // 120/14 = 8 полных интервалов + период 0
}

func TestOpen_Pure(t *testing.T) {
	anchor := date(2024, 2, 10)
	dropout := ptr(date(2024, 4, 1))
	asOf := date(2024, 5, 5)

	first := Open(anchor, models.SchemeWeekly, dropout, asOf)
	second := Open(anchor, models.SchemeWeekly, dropout, asOf)
	assert.Equal(t, first, second)
}

func TestOpen_DropoutThenLaterAsOf(t *testing.T) {
	anchor := date(2024, 1, 1)
	dropout := ptr(date(2024, 2, 1))

	frozen := Open(anchor, models.SchemeWeekly, dropout, date(2024, 3, 1))
	later := Open(anchor, models.SchemeWeekly, dropout, date(2024, 12, 31))
	assert.Equal(t, frozen, later, "после отчисления новые периоды не появляются")

	for _, key := range later {
		assert.False(t, key.Start().After(*dropout))
	}
}

func TestOpen_ReactivationRestartsOrdinals(t *testing.T) {
	// Реактивация задаёт новый якорь: расчёт ведётся с нуля от новой даты,
	// старые периоды не пересчитываются и не сливаются с новыми.
	newAnchor := date(2024, 6, 1)
	got := Open(newAnchor, models.SchemeEvery28, nil, date(2024, 7, 15))
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Ordinal)
	assert.Equal(t, newAnchor, got[0].Anchor)
	assert.Equal(t, "2024-06-01#1", got[1].String())
}

func TestDay_StripsTimeAndZone(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*60*60)
	ts := time.Date(2024, 3, 10, 23, 45, 0, 0, loc)
	assert.Equal(t, date(2024, 3, 10), Day(ts))
}

func ptr(t time.Time) *time.Time { return &t }
