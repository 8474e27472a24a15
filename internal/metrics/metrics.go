// Package metrics регистрирует счётчики и датчики жизненного цикла
// рукопожатий подтверждения оплаты.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SessionsOpened — число открытых сессий рукопожатия.
	SessionsOpened = promauto.NewCounter(prometheus.CounterOpts{
		Name: "handshake_sessions_opened_total",
		Help: "Total number of handshake sessions opened by student devices.",
	})

	// SessionsActive — число сессий, ещё не достигших терминального состояния.
	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "handshake_sessions_active",
		Help: "Number of handshake sessions not yet in a terminal state.",
	})

	// SessionsResolved — терминальные исходы сессий по типам.
	SessionsResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "handshake_sessions_resolved_total",
		Help: "Total number of handshake sessions by terminal outcome.",
	}, []string{"outcome"})

	// ClaimConflicts — отклонённые попытки захвата уже занятой сессии.
	ClaimConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "handshake_claim_conflicts_total",
		Help: "Total number of claim attempts rejected because the session was already claimed.",
	})
)
