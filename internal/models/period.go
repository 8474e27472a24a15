package models

import (
	"fmt"
	"time"
)

// PeriodKey идентифицирует один расчётный период студента.
// Периоды считаются от якорной даты (дата зачисления или последней реактивации)
// и нумеруются порядковым номером, начиная с нуля. После реактивации якорь
// меняется и нумерация начинается заново, поэтому ключи разных якорей не совпадают.
type PeriodKey struct {
	Anchor  time.Time // Якорная дата, от которой считаются периоды
	Ordinal int       // Порядковый номер периода, начиная с 0
	Scheme  Scheme    // Схема оплаты, определяющая длину периода
}

// Start возвращает календарную дату начала периода.
func (k PeriodKey) Start() time.Time {
	return k.Anchor.AddDate(0, 0, k.Ordinal*k.Scheme.SpanDays())
}

// End возвращает дату окончания периода (не включительно).
func (k PeriodKey) End() time.Time {
	return k.Anchor.AddDate(0, 0, (k.Ordinal+1)*k.Scheme.SpanDays())
}

// String возвращает каноническую строковую форму ключа: "2006-01-02#N".
// Эта форма хранится в платежах и сравнивается при вычислении задолженности.
func (k PeriodKey) String() string {
	return fmt.Sprintf("%s#%d", k.Anchor.Format("2006-01-02"), k.Ordinal)
}
