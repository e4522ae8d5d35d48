package tool

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockEmailSender struct{ mock.Mock }

func (m *MockEmailSender) SendEmail(ctx context.Context, msg Email) (Receipt, error) {
	args := m.Called(ctx, msg)
	return args.Get(0).(Receipt), args.Error(1)
}

type MockCalendar struct{ mock.Mock }

func (m *MockCalendar) CreateEvent(ctx context.Context, ev Event) (Receipt, error) {
	args := m.Called(ctx, ev)
	return args.Get(0).(Receipt), args.Error(1)
}

type MockPoster struct{ mock.Mock }

func (m *MockPoster) Post(ctx context.Context, text string) (Receipt, error) {
	args := m.Called(ctx, text)
	return args.Get(0).(Receipt), args.Error(1)
}

type statusErr struct{ code int }

func (e statusErr) Error() string   { return "request rejected" }
func (e statusErr) StatusCode() int { return e.code }
