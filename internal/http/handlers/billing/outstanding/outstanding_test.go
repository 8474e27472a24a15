package outstanding

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/tuition-billing/internal/models"
	services "github.com/magabrotheeeer/tuition-billing/internal/services/billing"
)

// MockService реализует интерфейс outstanding.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) ResolveOutstanding(ctx context.Context, studentUID string, asOf time.Time) (*models.Outstanding, error) {
	args := m.Called(ctx, studentUID, asOf)
	if res := args.Get(0); res != nil {
		return res.(*models.Outstanding), args.Error(1)
	}
	return nil, args.Error(1)
}

func TestOutstandingHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	anchor := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		url            string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "есть задолженность",
			url:  "/students/uid-1/outstanding?as_of=2024-02-01",
			setupMock: func(m *MockService) {
				m.On("ResolveOutstanding", mock.Anything, "uid-1",
					time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)).
					Return(&models.Outstanding{
						PeriodKey: models.PeriodKey{Anchor: anchor, Ordinal: 2, Scheme: models.SchemeWeekly},
						AmountDue: 300,
					}, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"period_key":"2024-01-01#2"`,
		},
		{
			name: "задолженности нет",
			url:  "/students/uid-1/outstanding?as_of=2024-02-01",
			setupMock: func(m *MockService) {
				m.On("ResolveOutstanding", mock.Anything, "uid-1", mock.Anything).
					Return(nil, services.ErrNothingDue)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"nothing due"`,
		},
		{
			name: "профиль заморожен",
			url:  "/students/uid-1/outstanding?as_of=2024-02-01",
			setupMock: func(m *MockService) {
				m.On("ResolveOutstanding", mock.Anything, "uid-1", mock.Anything).
					Return(nil, services.ErrProfileInactive)
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `"student profile is inactive"`,
		},
		{
			name:           "некорректная дата",
			url:            "/students/uid-1/outstanding?as_of=01.02.2024",
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"as_of must be a date in format 2006-01-02"`,
		},
		{
			name: "ошибка сервиса",
			url:  "/students/uid-1/outstanding?as_of=2024-02-01",
			setupMock: func(m *MockService) {
				m.On("ResolveOutstanding", mock.Anything, "uid-1", mock.Anything).
					Return(nil, errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"could not resolve outstanding"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("uid", "uid-1")
			req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))

			w := httptest.NewRecorder()

			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.True(t, strings.Contains(w.Body.String(), tt.expectedBody),
				"response body should contain %s, got %s", tt.expectedBody, w.Body.String())

			mockService.AssertExpectations(t)
		})
	}
}
