package models

import "time"

// StudentProfile представляет платёжный профиль студента.
// EnrollmentDate — якорная дата текущего платёжного цикла: при реактивации
// она заменяется на новую дату, и периоды, открытые до неё, замораживаются.
// Инвариант: у студента не более одного активного окна зачисления.
type StudentProfile struct {
	UID            string     // Уникальный идентификатор студента
	FullName       string     // Полное имя
	Email          string     // Электронная почта
	EnrollmentDate time.Time  // Якорная дата текущего платёжного цикла
	Scheme         Scheme     // Схема оплаты
	FeeAmount      int        // Стоимость одного периода в минимальных единицах валюты
	DropoutDate    *time.Time // Дата отчисления, nil если студент активен
	DropoutReason  string     // Причина отчисления
	ReactivatedAt  *time.Time // Дата последней реактивации, nil если её не было
}

// Active сообщает, открыт ли у студента платёжный цикл.
// Реактивация снимает отметку об отчислении вместе с установкой нового якоря.
func (p *StudentProfile) Active() bool {
	return p.DropoutDate == nil
}

// StudentDropout описывает отчисление студента с провалидированной датой.
type StudentDropout struct {
	Date   time.Time // Дата отчисления
	Reason string    // Причина отчисления
}

// StudentReactivation описывает реактивацию: дата становится новым якорем.
type StudentReactivation struct {
	Date time.Time // Новая якорная дата
}

// DummyStudent используется для приёма данных из JSON-запроса на создание студента.
// Дата приходит строкой, чтобы её можно было валидировать и парсить вручную.
type DummyStudent struct {
	FullName       string `json:"full_name" validate:"required"`                            // Полное имя
	Email          string `json:"email" validate:"required,email"`                          // Электронная почта
	EnrollmentDate string `json:"enrollment_date" validate:"required,datetime=2006-01-02"` // Дата зачисления
	Scheme         string `json:"scheme" validate:"required,oneof=daily weekly biweekly every28"`
	FeeAmount      int    `json:"fee_amount" validate:"required,gt=0"` // Стоимость периода (>0)
}

// DummyDropout используется для приёма запроса на отчисление студента.
type DummyDropout struct {
	Date   string `json:"date" validate:"required,datetime=2006-01-02"` // Дата отчисления
	Reason string `json:"reason" validate:"required"`                   // Причина отчисления
}

// DummyReactivate используется для приёма запроса на реактивацию студента.
// Дата становится новым якорем платёжного цикла.
type DummyReactivate struct {
	Date string `json:"date" validate:"required,datetime=2006-01-02"` // Новая якорная дата
}
