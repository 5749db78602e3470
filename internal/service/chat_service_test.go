package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"gigboard/internal/models"
	"gigboard/internal/notifications"
	"gigboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockDelivery struct {
	mock.Mock
}

func (m *mockDelivery) Deliver(ctx context.Context, contractID uint, event notifications.ChatEvent) error {
	args := m.Called(ctx, contractID, event)
	return args.Error(0)
}

func TestChatService_SendAndHistory(t *testing.T) {
	f := newContractFixture(t)
	delivery := new(mockDelivery)
	delivery.On("Deliver", mock.Anything, f.contract.ID, mock.MatchedBy(func(ev notifications.ChatEvent) bool {
		return ev.Type == notifications.EventMessage
	})).Return(nil).Twice()

	svc := NewChatService(f.db, f.views, delivery)
	ctx := context.Background()

	msg, err := svc.SendMessage(ctx, actorOf(f.employer), f.contract.ID, "  Kickoff call tomorrow?  ")
	require.NoError(t, err)
	assert.Equal(t, "Kickoff call tomorrow?", msg.Content)
	require.NotNil(t, msg.Sender)
	assert.Equal(t, f.employer.ID, msg.Sender.ID)

	_, err = svc.SendMessage(ctx, actorOf(f.freelancer), f.contract.ID, "Works for me.")
	require.NoError(t, err)

	history, err := svc.History(ctx, actorOf(f.freelancer), f.contract.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "Kickoff call tomorrow?", history[0].Content)
	assert.Equal(t, "Works for me.", history[1].Content)

	delivery.AssertExpectations(t)
}

func TestChatService_Rejections(t *testing.T) {
	f := newContractFixture(t)
	svc := NewChatService(f.db, f.views, nil)
	ctx := context.Background()
	outsider := testutil.CreateUser(t, f.db, models.RoleFreelancer)

	_, err := svc.SendMessage(ctx, actorOf(f.employer), f.contract.ID, "   ")
	appErr := requireCode(t, err, models.CodeValidation)
	assert.Equal(t, "Message cannot be empty.", appErr.Message)

	_, err = svc.SendMessage(ctx, actorOf(f.employer), f.contract.ID, strings.Repeat("é", 5001))
	appErr = requireCode(t, err, models.CodeValidation)
	assert.Equal(t, "Message must be at most 5000 characters.", appErr.Message)

	_, err = svc.SendMessage(ctx, actorOf(outsider), f.contract.ID, "hello")
	requireCode(t, err, models.CodeForbidden)

	_, err = svc.History(ctx, actorOf(outsider), f.contract.ID)
	requireCode(t, err, models.CodeForbidden)

	assert.Error(t, svc.CanJoin(ctx, actorOf(outsider), f.contract.ID))
	assert.NoError(t, svc.CanJoin(ctx, actorOf(f.admin), f.contract.ID))
	assert.Zero(t, testutil.Count(t, f.db, &models.Message{}))
}

func TestChatService_PublishFailureKeepsMessage(t *testing.T) {
	f := newContractFixture(t)
	delivery := new(mockDelivery)
	delivery.On("Deliver", mock.Anything, f.contract.ID, mock.Anything).Return(errors.New("redis down"))

	svc := NewChatService(f.db, f.views, delivery)
	_, err := svc.SendMessage(context.Background(), actorOf(f.freelancer), f.contract.ID, "Draft is uploaded.")
	require.NoError(t, err)
	assert.Equal(t, int64(1), testutil.Count(t, f.db, &models.Message{}))
}
