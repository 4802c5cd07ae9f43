package services_test

import (
	"context"
	"errors"
	"testing"

	"relay/app/tests"
	"relay/internal/models"
	"relay/internal/services"

	"github.com/stretchr/testify/assert"
)

func TestChat_CreatePrivateChat(t *testing.T) {
	ctx := context.Background()

	ts := []struct {
		name          string
		creatorID     int64
		otherID       int64
		setupMocks    func(chatRepo *tests.MockChatRepository, userRepo *tests.MockUserRepository)
		expectedID    int64
		expectedError error
	}{
		{
			name:      "Successful creation",
			creatorID: 1,
			otherID:   2,
			setupMocks: func(chatRepo *tests.MockChatRepository, userRepo *tests.MockUserRepository) {
				userRepo.On("GetUserByID", ctx, int64(1)).Return(&models.User{ID: 1}, nil)
				userRepo.On("GetUserByID", ctx, int64(2)).Return(&models.User{ID: 2}, nil)
				chatRepo.On("FindPrivateChat", ctx, int64(1), int64(2)).Return(int64(0), nil)
				chatRepo.On("CreatePrivateChat", ctx, int64(1), int64(2)).Return(int64(10), nil)
			},
			expectedID: 10,
		},
		{
			name:          "Chat with oneself",
			creatorID:     1,
			otherID:       1,
			setupMocks:    func(chatRepo *tests.MockChatRepository, userRepo *tests.MockUserRepository) {},
			expectedError: services.ErrInvalidInput,
		},
		{
			name:      "Duplicate pair rejected",
			creatorID: 1,
			otherID:   2,
			setupMocks: func(chatRepo *tests.MockChatRepository, userRepo *tests.MockUserRepository) {
				userRepo.On("GetUserByID", ctx, int64(1)).Return(&models.User{ID: 1}, nil)
				userRepo.On("GetUserByID", ctx, int64(2)).Return(&models.User{ID: 2}, nil)
				chatRepo.On("FindPrivateChat", ctx, int64(1), int64(2)).Return(int64(10), nil)
			},
			expectedError: services.ErrChatExists,
		},
		{
			name:      "Unknown member",
			creatorID: 1,
			otherID:   2,
			setupMocks: func(chatRepo *tests.MockChatRepository, userRepo *tests.MockUserRepository) {
				userRepo.On("GetUserByID", ctx, int64(1)).Return(&models.User{ID: 1}, nil)
				userRepo.On("GetUserByID", ctx, int64(2)).Return((*models.User)(nil), nil)
			},
			expectedError: services.ErrUserNotFound,
		},
		{
			name:      "Repository error",
			creatorID: 1,
			otherID:   2,
			setupMocks: func(chatRepo *tests.MockChatRepository, userRepo *tests.MockUserRepository) {
				userRepo.On("GetUserByID", ctx, int64(1)).Return(&models.User{ID: 1}, nil)
				userRepo.On("GetUserByID", ctx, int64(2)).Return(&models.User{ID: 2}, nil)
				chatRepo.On("FindPrivateChat", ctx, int64(1), int64(2)).Return(int64(0), nil)
				chatRepo.On("CreatePrivateChat", ctx, int64(1), int64(2)).Return(int64(0), errors.New("db error"))
			},
			expectedError: errors.New("db error"),
		},
	}

	for _, tt := range ts {
		t.Run(tt.name, func(t *testing.T) {
			chatRepo := &tests.MockChatRepository{}
			userRepo := &tests.MockUserRepository{}
			tt.setupMocks(chatRepo, userRepo)

			service := services.NewChatService(chatRepo, userRepo, testLogger())
			chatID, err := service.CreatePrivateChat(ctx, tt.creatorID, tt.otherID)

			assert.Equal(t, tt.expectedID, chatID)
			assert.Equal(t, tt.expectedError, err)

			chatRepo.AssertExpectations(t)
			userRepo.AssertExpectations(t)
		})
	}
}

func TestChat_CreateGroupChatAddsCreator(t *testing.T) {
	ctx := context.Background()
	chatRepo := &tests.MockChatRepository{}
	userRepo := &tests.MockUserRepository{}

	for _, id := range []int64{1, 2, 3} {
		userRepo.On("GetUserByID", ctx, id).Return(&models.User{ID: id}, nil)
	}
	chatRepo.On("CreateGroupChat", ctx, "team", int64(1), []int64{1, 2, 3}).Return(int64(30), nil)

	service := services.NewChatService(chatRepo, userRepo, testLogger())
	chatID, err := service.CreateGroupChat(ctx, "team", 1, []int64{2, 3})

	assert.NoError(t, err)
	assert.Equal(t, int64(30), chatID)
	chatRepo.AssertExpectations(t)
}

func TestChat_CreateGroupChatValidatesInput(t *testing.T) {
	service := services.NewChatService(&tests.MockChatRepository{}, &tests.MockUserRepository{}, testLogger())

	_, err := service.CreateGroupChat(context.Background(), "", 1, []int64{2})
	assert.ErrorIs(t, err, services.ErrInvalidInput)

	_, err = service.CreateGroupChat(context.Background(), "team", 1, nil)
	assert.ErrorIs(t, err, services.ErrInvalidInput)
}

func TestChat_GetChatByID(t *testing.T) {
	ctx := context.Background()
	chatRepo := &tests.MockChatRepository{}
	userRepo := &tests.MockUserRepository{}

	chatRepo.On("GetChatByID", ctx, int64(10)).
		Return(&models.Chat{ID: 10, Type: models.ChatTypePrivate, Members: []int64{1, 2}}, nil)
	chatRepo.On("GetChatByID", ctx, int64(99)).Return((*models.Chat)(nil), nil)

	service := services.NewChatService(chatRepo, userRepo, testLogger())

	chat, err := service.GetChatByID(ctx, 10)
	assert.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, chat.Members)

	_, err = service.GetChatByID(ctx, 99)
	assert.ErrorIs(t, err, services.ErrChatNotFound)
}
