package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/legalbot-guard-api/internal/models"
)

func TestProfileRepositoryLooksUpByNormalisedEmail(t *testing.T) {
	db := setupTestDB(t)
	repo := NewProfileRepository(db)
	ctx := context.Background()

	profile := models.Profile{ID: "user-1", Email: " Lan.Nguyen@Example.com ", FullName: "Nguyen Lan", Role: models.RoleEditor}
	require.NoError(t, repo.Create(ctx, &profile))

	found, err := repo.GetByEmail(ctx, "LAN.NGUYEN@example.com")
	require.NoError(t, err)
	require.Equal(t, "user-1", found.ID)
	require.Equal(t, models.RoleEditor, found.Role)

	byID, err := repo.GetByID(ctx, "user-1")
	require.NoError(t, err)
	require.Equal(t, "lan.nguyen@example.com", byID.Email)
}
