package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"gigboard/internal/models"
	"gigboard/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageRepository_ListRecentKeepsNewest200InOrder(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewMessageRepository(db)
	ctx := context.Background()
	sender := testutil.CreateUser(t, db, models.RoleFreelancer)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 205; i++ {
		require.NoError(t, repo.Create(ctx, &models.Message{
			ContractID: 1,
			SenderID:   sender.ID,
			Content:    fmt.Sprintf("m%d", i),
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, repo.Create(ctx, &models.Message{ContractID: 2, SenderID: sender.ID, Content: "elsewhere"}))

	msgs, err := repo.ListRecent(ctx, 1, 500)
	require.NoError(t, err)
	require.Len(t, msgs, 200)
	assert.Equal(t, "m5", msgs[0].Content)
	assert.Equal(t, "m204", msgs[199].Content)
	require.NotNil(t, msgs[0].Sender)
}

func TestSettingsRepository_GetMissingRow(t *testing.T) {
	db := testutil.NewDB(t)
	s, err := NewSettingsRepository(db).Get(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, s)
}
