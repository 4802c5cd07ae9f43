package services_test

import (
	"context"
	"errors"
	"testing"

	"relay/app/tests"
	"relay/internal/services"

	"github.com/stretchr/testify/assert"
)

func TestMembership_IsMember(t *testing.T) {
	ctx := context.Background()

	ts := []struct {
		name       string
		userID     int64
		setupMocks func(repo *tests.MockMembershipRepository)
		expected   bool
	}{
		{
			name:   "Member",
			userID: 1,
			setupMocks: func(repo *tests.MockMembershipRepository) {
				repo.On("IsMember", ctx, int64(10), int64(1)).Return(true, nil)
			},
			expected: true,
		},
		{
			name:   "Non-member",
			userID: 9,
			setupMocks: func(repo *tests.MockMembershipRepository) {
				repo.On("IsMember", ctx, int64(10), int64(9)).Return(false, nil)
			},
			expected: false,
		},
		{
			name:   "Store failure denies",
			userID: 1,
			setupMocks: func(repo *tests.MockMembershipRepository) {
				repo.On("IsMember", ctx, int64(10), int64(1)).Return(false, errors.New("db down"))
			},
			expected: false,
		},
	}

	for _, tt := range ts {
		t.Run(tt.name, func(t *testing.T) {
			repo := &tests.MockMembershipRepository{}
			tt.setupMocks(repo)

			oracle := services.NewMembershipService(repo, testLogger())

			assert.Equal(t, tt.expected, oracle.IsMember(ctx, 10, tt.userID))
			repo.AssertExpectations(t)
		})
	}
}
