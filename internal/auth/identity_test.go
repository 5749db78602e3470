package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"gigboard/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockUserLoader struct {
	mock.Mock
}

func (m *mockUserLoader) GetWithProfile(ctx context.Context, id uint) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func TestResolver_Resolve(t *testing.T) {
	sessions := NewSessionManager(testSecret, time.Hour, nil)
	ctx := context.Background()

	token, _, err := sessions.Issue(5, models.RoleFreelancer)
	require.NoError(t, err)

	t.Run("resolves user and profile", func(t *testing.T) {
		users := new(mockUserLoader)
		users.On("GetWithProfile", mock.Anything, uint(5)).Return(&models.User{
			ID:      5,
			Email:   "f@example.com",
			Profile: &models.Profile{ID: 5, Role: models.RoleFreelancer, IsOnboarded: true},
		}, nil).Once()

		id, err := NewResolver(sessions, users).Resolve(ctx, token)
		require.NoError(t, err)
		require.NotNil(t, id)
		assert.Equal(t, uint(5), id.UserID())
		assert.Equal(t, models.RoleFreelancer, id.Role())
		users.AssertExpectations(t)
	})

	t.Run("anonymous without token", func(t *testing.T) {
		users := new(mockUserLoader)
		id, err := NewResolver(sessions, users).Resolve(ctx, "")
		assert.NoError(t, err)
		assert.Nil(t, id)
		users.AssertNotCalled(t, "GetWithProfile", mock.Anything, mock.Anything)
	})

	t.Run("anonymous when user was deleted", func(t *testing.T) {
		users := new(mockUserLoader)
		users.On("GetWithProfile", mock.Anything, uint(5)).Return(nil, models.NewNotFoundError("User", 5))

		id, err := NewResolver(sessions, users).Resolve(ctx, token)
		assert.NoError(t, err)
		assert.Nil(t, id)
	})

	t.Run("storage failure surfaces", func(t *testing.T) {
		users := new(mockUserLoader)
		users.On("GetWithProfile", mock.Anything, uint(5)).Return(nil, errors.New("connection refused"))

		id, err := NewResolver(sessions, users).Resolve(ctx, token)
		assert.Error(t, err)
		assert.Nil(t, id)
	})
}

func TestIdentityContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))

	id := &Identity{User: &models.User{ID: 3}}
	ctx := WithIdentity(context.Background(), id)
	assert.Same(t, id, FromContext(ctx))

	var nilID *Identity
	assert.Equal(t, uint(0), nilID.UserID())
	assert.Equal(t, models.Role(""), nilID.Role())
}
