package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/chirp-social/chirp/internal/models"
)

func TestOpenDefaultsToSQLite(t *testing.T) {
	db, err := Open(Config{})
	require.NoError(t, err)
	require.NoError(t, AutoMigrateAll(db))

	require.True(t, db.Migrator().HasTable(&models.User{}))
	require.True(t, db.Migrator().HasTable(&models.RefreshToken{}))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open(Config{Driver: "oracle"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported database driver")
}

func TestUniqueIndexesEnforced(t *testing.T) {
	db, err := Open(Config{Driver: "sqlite"})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))

	first := &models.User{Email: "a@x.com", Password: "hash"}
	require.NoError(t, db.Create(first).Error)

	dup := &models.User{Email: "a@x.com", Password: "hash"}
	require.Error(t, db.Create(dup).Error)

	token := &models.RefreshToken{UserID: first.ID, Token: "tok"}
	require.NoError(t, db.Create(token).Error)

	dupToken := &models.RefreshToken{UserID: first.ID, Token: "tok"}
	require.Error(t, db.Create(dupToken).Error)
}

func TestBuildPostgresDSN(t *testing.T) {
	dsn, err := buildPostgresDSN(Config{User: "chirp", Name: "chirp"})
	require.NoError(t, err)
	require.Contains(t, dsn, "host=localhost")
	require.Contains(t, dsn, "port=5432")
	require.Contains(t, dsn, "sslmode=disable")

	_, err = buildPostgresDSN(Config{})
	require.Error(t, err)
}

func TestBuildMySQLDSN(t *testing.T) {
	dsn, err := buildMySQLDSN(Config{User: "chirp", Password: "pw", Name: "chirp"})
	require.NoError(t, err)
	require.Equal(t, "chirp:pw@tcp(127.0.0.1:3306)/chirp?charset=utf8mb4&parseTime=True&loc=Local", dsn)
}
