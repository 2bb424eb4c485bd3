package testutils

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) SendTemplate(ctx context.Context, templateName string, to []string, subject string, data map[string]any) error {
	args := m.Called(ctx, templateName, to, subject, data)
	return args.Error(0)
}

// ExpectAnySend accepts every SendTemplate call and returns err.
func (m *MockMailer) ExpectAnySend(err error) *mock.Call {
	return m.On("SendTemplate", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(err)
}

// LastCode returns the "Code" value of the most recent SendTemplate call sent
// to email, or "" when none was sent.
func (m *MockMailer) LastCode(email string) string {
	for i := len(m.Calls) - 1; i >= 0; i-- {
		call := m.Calls[i]
		if call.Method != "SendTemplate" {
			continue
		}
		to, _ := call.Arguments.Get(2).([]string)
		if len(to) == 0 || to[0] != email {
			continue
		}
		data, _ := call.Arguments.Get(4).(map[string]any)
		code, _ := data["Code"].(string)
		return code
	}
	return ""
}
