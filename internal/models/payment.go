package models

import "time"

// PaymentStatus — закрытое множество статусов платежа.
type PaymentStatus string

const (
	// PaymentPaid — платёж подтверждён оператором.
	PaymentPaid PaymentStatus = "paid"
	// PaymentPending — платёж ожидает подтверждения.
	PaymentPending PaymentStatus = "pending"
	// PaymentOverdue — период просрочен, оплата не поступила.
	PaymentOverdue PaymentStatus = "overdue"
)

// PaymentRecord представляет запись об оплате одного расчётного периода.
// Создаётся при подтверждении оплаты оператором либо планировщиком просрочек.
type PaymentRecord struct {
	ID               int           // Идентификатор записи в хранилище
	StudentUID       string        // Идентификатор студента
	PeriodKey        string        // Каноническая строковая форма ключа периода
	Amount           int           // Сумма в минимальных единицах валюты
	Status           PaymentStatus // Статус платежа
	PaidAt           *time.Time    // Время подтверждения оплаты, nil пока не оплачен
	OperatorUsername string        // Оператор, подтвердивший оплату
	CreatedAt        time.Time     // Время создания записи
}

// Outstanding описывает самый ранний неоплаченный период студента и сумму к оплате.
type Outstanding struct {
	PeriodKey PeriodKey // Ключ неоплаченного периода
	AmountDue int       // Сумма к оплате
}

// OverdueNotice — сообщение о просроченном периоде, публикуемое в очередь уведомлений.
type OverdueNotice struct {
	Email     string `json:"email"`
	FullName  string `json:"full_name"`
	PeriodKey string `json:"period_key"`
	AmountDue int    `json:"amount_due"`
}
