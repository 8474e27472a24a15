package studentdropout

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/magabrotheeeer/tuition-billing/internal/models"
	services "github.com/magabrotheeeer/tuition-billing/internal/services/student"
)

// MockService реализует интерфейс studentdropout.Service
type MockService struct {
	mock.Mock
}

func (m *MockService) Dropout(ctx context.Context, uid string, req models.DummyDropout) error {
	args := m.Called(ctx, uid, req)
	return args.Error(0)
}

func TestDropoutHandler(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	tests := []struct {
		name           string
		uid            string
		body           string
		setupMock      func(*MockService)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "успешное отчисление",
			uid:  "uid-1",
			body: `{"date":"2024-03-10","reason":"neuspevaemost"}`,
			setupMock: func(m *MockService) {
				m.On("Dropout", mock.Anything, "uid-1",
					models.DummyDropout{Date: "2024-03-10", Reason: "neuspevaemost"}).Return(nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"uid":"uid-1"`,
		},
		{
			name:           "некорректный JSON",
			uid:            "uid-1",
			body:           `{"date":`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"invalid request body"`,
		},
		{
			name:           "дата в неверном формате",
			uid:            "uid-1",
			body:           `{"date":"10.03.2024","reason":"neuspevaemost"}`,
			setupMock:      func(_ *MockService) {},
			expectedStatus: http.StatusUnprocessableEntity,
			expectedBody:   `"status":"Error"`,
		},
		{
			name: "повторное отчисление",
			uid:  "uid-1",
			body: `{"date":"2024-03-10","reason":"neuspevaemost"}`,
			setupMock: func(m *MockService) {
				m.On("Dropout", mock.Anything, "uid-1", mock.Anything).
					Return(services.ErrAlreadyDroppedOut)
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   `"student already dropped out"`,
		},
		{
			name: "ошибка сервиса",
			uid:  "uid-1",
			body: `{"date":"2024-03-10","reason":"neuspevaemost"}`,
			setupMock: func(m *MockService) {
				m.On("Dropout", mock.Anything, "uid-1", mock.Anything).
					Return(errors.New("db error"))
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   `"could not dropout student"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockService)
			tt.setupMock(mockService)

			handler := New(logger, mockService)

			req := httptest.NewRequest(http.MethodPost, "/students/"+tt.uid+"/dropout", strings.NewReader(tt.body))
			rctx := chi.NewRouteContext()
			rctx.URLParams.Add("uid", tt.uid)
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
