// File: internal/mocks/mocks.go
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/xkilldash9x/docdriver/internal/config"
)

// -- Host Mocks --

// MockHost mocks host.Host.
type MockHost struct {
	mock.Mock
}

func (m *MockHost) RunScript(ctx context.Context, script string) (any, error) {
	args := m.Called(ctx, script)
	return args.Get(0), args.Error(1)
}

func (m *MockHost) URL(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockHost) SetURL(ctx context.Context, url string) error {
	return m.Called(ctx, url).Error(0)
}

// MockDialogHost is a MockHost that also presses system dialog buttons,
// satisfying host.DialogPresser.
type MockDialogHost struct {
	MockHost
}

func (m *MockDialogHost) PressButton(ctx context.Context, label string, sheet bool) (string, error) {
	args := m.Called(ctx, label, sheet)
	return args.String(0), args.Error(1)
}

// -- Config Mock --

// MockConfig mocks the config.Interface.
type MockConfig struct {
	mock.Mock
}

func (m *MockConfig) Logger() config.LoggerConfig {
	args := m.Called()
	return args.Get(0).(config.LoggerConfig)
}

func (m *MockConfig) Host() config.HostConfig {
	args := m.Called()
	return args.Get(0).(config.HostConfig)
}

func (m *MockConfig) Sync() config.SyncConfig {
	args := m.Called()
	return args.Get(0).(config.SyncConfig)
}

func (m *MockConfig) Typing() config.TypingConfig {
	args := m.Called()
	return args.Get(0).(config.TypingConfig)
}

func (m *MockConfig) SetHostBackend(backend string) {
	m.Called(backend)
}

func (m *MockConfig) SetHostHeadless(b bool) {
	m.Called(b)
}
