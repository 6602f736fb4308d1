package repository

import (
	"context"
	"testing"

	"accessctl/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func newMockRepo(t *testing.T) (AccessControlRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)

	return NewAccessControlRepository(gdb), mock
}

func TestFindByResource(t *testing.T) {
	repo, mock := newMockRepo(t)
	id := uuid.New()

	rows := sqlmock.NewRows([]string{"id", "resource_type", "resource_id", "evaluation_strategy", "is_enabled"}).
		AddRow(id.String(), "page", "/admin/x", model.EvaluationStrategyComplex, true)
	mock.ExpectQuery(`SELECT \* FROM "access_controls" WHERE resource_type = \$1 AND resource_id = \$2`).
		WithArgs("page", "/admin/x", 1).
		WillReturnRows(rows)

	ac, err := repo.FindByResource(context.Background(), "page", "/admin/x")
	require.NoError(t, err)
	assert.Equal(t, id, ac.ID)
	assert.Equal(t, "/admin/x", ac.ResourceID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByResourceNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT \* FROM "access_controls" WHERE resource_type = \$1 AND resource_id = \$2`).
		WithArgs("page", "/nope", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.FindByResource(context.Background(), "page", "/nope")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestListScopesToComplexStrategy(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "access_controls" WHERE evaluation_strategy = \$1`).
		WithArgs(model.EvaluationStrategyComplex).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT \* FROM "access_controls" WHERE evaluation_strategy = \$1 ORDER BY created_at DESC`).
		WithArgs(model.EvaluationStrategyComplex, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	controls, total, err := repo.List(context.Background(), "", "", 1, 10)
	require.NoError(t, err)
	assert.Empty(t, controls)
	assert.Zero(t, total)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListAppliesFilters(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "access_controls" WHERE evaluation_strategy = \$1 AND resource_type = \$2 AND \(resource_id ILIKE \$3 OR EXISTS`).
		WithArgs(model.EvaluationStrategyComplex, "page", "%admin%", "%admin%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`SELECT \* FROM "access_controls" WHERE evaluation_strategy = \$1 AND resource_type = \$2`).
		WithArgs(model.EvaluationStrategyComplex, "page", "%admin%", "%admin%", 10, 10).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, total, err := repo.List(context.Background(), "page", "admin", 2, 10)
	require.NoError(t, err)
	assert.Zero(t, total)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteComplexByIDs(t *testing.T) {
	repo, mock := newMockRepo(t)
	ids := []uuid.UUID{uuid.New(), uuid.New()}

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "access_controls" WHERE id IN \(\$1,\$2\) AND evaluation_strategy = \$3`).
		WithArgs(ids[0], ids[1], model.EvaluationStrategyComplex).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	deleted, err := repo.DeleteComplexByIDs(context.Background(), ids)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRuleGroupsByControlID(t *testing.T) {
	repo, mock := newMockRepo(t)
	controlID := uuid.New()

	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM "rule_groups" WHERE access_control_id = \$1`).
		WithArgs(controlID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.DeleteRuleGroupsByControlID(context.Background(), controlID)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRuleGroupsNoopOnEmpty(t *testing.T) {
	repo, mock := newMockRepo(t)

	err := repo.CreateRuleGroups(context.Background(), nil)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
