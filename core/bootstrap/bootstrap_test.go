package bootstrap

import (
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/triviabot/core/config"
	coredatabase "github.com/m3rciful/triviabot/core/database"
)

func noLogger(*coreconfig.Config) error { return nil }

func TestRunWithoutDatabase(t *testing.T) {
	connected := false
	res, err := Run(Options{
		Config:     &coreconfig.Config{},
		LoggerInit: noLogger,
		Connect: func(coredatabase.Config) (*sqlx.DB, error) {
			connected = true
			return nil, nil
		},
	})
	require.NoError(t, err)
	assert.Nil(t, res.DB)
	assert.False(t, connected)
	assert.NoError(t, res.Close())
}

func TestRunWithDatabase(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	migrated := false
	res, err := Run(Options{
		Config:     &coreconfig.Config{},
		Database:   coredatabase.Config{Host: "db", Name: "trivia"},
		LoggerInit: noLogger,
		Connect: func(coredatabase.Config) (*sqlx.DB, error) {
			return sqlx.NewDb(db, "postgres"), nil
		},
		Migrate: func(coredatabase.Config) error {
			migrated = true
			return nil
		},
	})
	require.NoError(t, err)
	assert.True(t, migrated)
	require.NotNil(t, res.DB)
	require.NoError(t, res.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrationFailureClosesDB(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectClose()

	_, err = Run(Options{
		Config:     &coreconfig.Config{},
		Database:   coredatabase.Config{Host: "db", Name: "trivia"},
		LoggerInit: noLogger,
		Connect: func(coredatabase.Config) (*sqlx.DB, error) {
			return sqlx.NewDb(db, "postgres"), nil
		},
		Migrate: func(coredatabase.Config) error { return errors.New("dirty database version 1") },
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrations failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunNilConfig(t *testing.T) {
	_, err := Run(Options{})
	assert.Error(t, err)
}
