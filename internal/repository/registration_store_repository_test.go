package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistrationStoreRepositoryGetMissing(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewRegistrationStoreRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM registration_kv WHERE key = $1")).
		WithArgs("registration:STU-1:course_submitted").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))

	value, ok, err := repo.Get(context.Background(), "registration:STU-1:course_submitted")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, value)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationStoreRepositoryGet(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewRegistrationStoreRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT value FROM registration_kv WHERE key = $1")).
		WithArgs("registration:STU-1:course_submitted").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("true"))

	value, ok, err := repo.Get(context.Background(), "registration:STU-1:course_submitted")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "true", value)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationStoreRepositorySet(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewRegistrationStoreRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO registration_kv (key, value, updated_at)")).
		WithArgs("registration:STU-1:registered_courses", "[]", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Set(context.Background(), "registration:STU-1:registered_courses", "[]"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistrationStoreRepositorySetError(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewRegistrationStoreRepository(db)
	dbErr := errors.New("connection reset")

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO registration_kv")).
		WillReturnError(dbErr)

	err := repo.Set(context.Background(), "k", "v")
	require.Error(t, err)
	assert.True(t, errors.Is(err, dbErr))
}
