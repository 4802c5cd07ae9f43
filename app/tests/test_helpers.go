package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"relay/internal/models"

	"github.com/stretchr/testify/mock"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) CreateUser(ctx context.Context, name, email, passwordHash string) (int64, error) {
	args := m.Called(ctx, name, email, passwordHash)
	return args.Get(0).(int64), args.Error(1)
}

type MockChatRepository struct {
	mock.Mock
}

func (m *MockChatRepository) CreatePrivateChat(ctx context.Context, first, second int64) (int64, error) {
	args := m.Called(ctx, first, second)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockChatRepository) CreateGroupChat(ctx context.Context, name string, creatorID int64, memberIDs []int64) (int64, error) {
	args := m.Called(ctx, name, creatorID, memberIDs)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockChatRepository) FindPrivateChat(ctx context.Context, first, second int64) (int64, error) {
	args := m.Called(ctx, first, second)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockChatRepository) GetChatByID(ctx context.Context, chatID int64) (*models.Chat, error) {
	args := m.Called(ctx, chatID)
	return args.Get(0).(*models.Chat), args.Error(1)
}

func (m *MockChatRepository) GetUserChats(ctx context.Context, userID int64) ([]models.Chat, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).([]models.Chat), args.Error(1)
}

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) CreateMessage(ctx context.Context, msg *models.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepository) GetMessageByID(ctx context.Context, id int64) (*models.Message, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockMessageRepository) GetMessageByClientID(ctx context.Context, clientMessageID string) (*models.Message, error) {
	args := m.Called(ctx, clientMessageID)
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockMessageRepository) MarkRead(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockMessageRepository) GetMessages(ctx context.Context, chatID int64, limit, offset int) ([]models.Message, error) {
	args := m.Called(ctx, chatID, limit, offset)
	return args.Get(0).([]models.Message), args.Error(1)
}

func (m *MockMessageRepository) CountMessages(ctx context.Context, chatID int64) (int, error) {
	args := m.Called(ctx, chatID)
	return args.Int(0), args.Error(1)
}

type MockMembershipRepository struct {
	mock.Mock
}

func (m *MockMembershipRepository) IsMember(ctx context.Context, chatID, userID int64) (bool, error) {
	args := m.Called(ctx, chatID, userID)
	return args.Bool(0), args.Error(1)
}

type MockMembershipOracle struct {
	mock.Mock
}

func (m *MockMembershipOracle) IsMember(ctx context.Context, chatID, userID int64) bool {
	args := m.Called(ctx, chatID, userID)
	return args.Bool(0)
}

type MockDeliveryService struct {
	mock.Mock
}

func (m *MockDeliveryService) Send(ctx context.Context, chatID, userID int64, text, clientMessageID string) (*models.Message, error) {
	args := m.Called(ctx, chatID, userID, text, clientMessageID)
	return args.Get(0).(*models.Message), args.Error(1)
}

func (m *MockDeliveryService) MarkRead(ctx context.Context, chatID, userID, messageID int64) (int64, error) {
	args := m.Called(ctx, chatID, userID, messageID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockDeliveryService) History(ctx context.Context, chatID, userID int64, limit, offset int) (*models.HistoryPage, error) {
	args := m.Called(ctx, chatID, userID, limit, offset)
	return args.Get(0).(*models.HistoryPage), args.Error(1)
}

type MockTokenRepository struct {
	mock.Mock
}

func (m *MockTokenRepository) IsRevoked(ctx context.Context, tokenHash string) (bool, error) {
	args := m.Called(ctx, tokenHash)
	return args.Bool(0), args.Error(1)
}

func (m *MockTokenRepository) Revoke(ctx context.Context, tokenHash string, expiration time.Duration) error {
	args := m.Called(ctx, tokenHash, expiration)
	return args.Error(0)
}

type MockHasher struct {
	mock.Mock
}

func (m *MockHasher) GenerateFromPassword(password []byte, cost int) ([]byte, error) {
	args := m.Called(password, cost)
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockHasher) CompareHashAndPassword(storedHash []byte, password []byte) error {
	args := m.Called(storedHash, password)
	return args.Error(0)
}

func (m *MockHasher) DefaultCost() int {
	return m.Called().Int(0)
}

func CreateTestRequest(url, method string, body interface{}) *http.Request {
	var buffer bytes.Buffer
	if body != nil {
		json.NewEncoder(&buffer).Encode(body)
	}

	req := httptest.NewRequest(method, url, &buffer)
	req.Header.Set("Content-Type", "application/json")

	return req
}

func ExecuteHandler(handler http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}
