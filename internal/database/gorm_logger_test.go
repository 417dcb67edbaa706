package database

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/legalbot-guard-api/internal/models"
)

func TestGormLoggerSkipsMissingRows(t *testing.T) {
	var buf bytes.Buffer
	db, err := ConnectSQLite(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()), zerolog.New(&buf))
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, Migrate(db))
	buf.Reset()

	var ban models.BanEntry
	err = db.Where("user_id = ?", "nobody").First(&ban).Error
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
	require.Empty(t, buf.String())

	err = db.Exec("SELECT * FROM no_such_table").Error
	require.Error(t, err)
	require.Contains(t, buf.String(), "no_such_table")
	require.Contains(t, buf.String(), `"component":"gorm"`)
}
