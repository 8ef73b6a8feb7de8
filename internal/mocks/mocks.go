package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"chat-session/internal/models"
	"chat-session/internal/policy"
)

type FetcherMock struct {
	mock.Mock
}

func (m *FetcherMock) ApplicationConfig(ctx context.Context, applicationID int) (*policy.SourceConfig, error) {
	args := m.Called(ctx, applicationID)
	var cfg *policy.SourceConfig
	if val := args.Get(0); val != nil {
		cfg = val.(*policy.SourceConfig)
	}
	return cfg, args.Error(1)
}

func (m *FetcherMock) CompanyConfig(ctx context.Context, companyID int) (*policy.SourceConfig, error) {
	args := m.Called(ctx, companyID)
	var cfg *policy.SourceConfig
	if val := args.Get(0); val != nil {
		cfg = val.(*policy.SourceConfig)
	}
	return cfg, args.Error(1)
}

type ContactServiceMock struct {
	mock.Mock
}

func (m *ContactServiceMock) CheckPermission(ctx context.Context, peerID int) (bool, error) {
	args := m.Called(ctx, peerID)
	return args.Bool(0), args.Error(1)
}

func (m *ContactServiceMock) CreateConversation(ctx context.Context, peerID int) (models.Conversation, error) {
	args := m.Called(ctx, peerID)
	var conv models.Conversation
	if val := args.Get(0); val != nil {
		conv = val.(models.Conversation)
	}
	return conv, args.Error(1)
}

func (m *ContactServiceMock) SendContactRequest(ctx context.Context, peerID int) error {
	args := m.Called(ctx, peerID)
	return args.Error(0)
}

type TranslatorMock struct {
	mock.Mock
}

func (m *TranslatorMock) Translate(ctx context.Context, text, targetLanguage string) (string, error) {
	args := m.Called(ctx, text, targetLanguage)
	return args.String(0), args.Error(1)
}
