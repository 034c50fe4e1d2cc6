package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edt-planner/edt-api/internal/models"
)

func newCourseRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func courseRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "name", "course_type", "session_hours", "sessions_required", "window_start", "window_end",
		"priority", "computers", "required_equipment", "required_software", "created_at", "updated_at",
	})
}

func TestCourseRepositoryList(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	rows := courseRows().
		AddRow("c1", "Networks", "TD", 2, 4, nil, nil, 0, 0,
			pq.StringArray{}, pq.StringArray{}, time.Now(), time.Now()).
		AddRow("c2", "Unix Lab", "TP", 2, 4, nil, nil, 1, 20,
			pq.StringArray{"bench"}, pq.StringArray{"gcc"}, time.Now(), time.Now())
	mock.ExpectQuery("SELECT id, name, course_type").WillReturnRows(rows)

	courses, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, models.CourseTypeTD, courses[0].Type)
	assert.Equal(t, pq.StringArray{"gcc"}, courses[1].RequiredSoftware)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryFindByIDMissing(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	mock.ExpectQuery("SELECT id, name, course_type").
		WithArgs("missing").
		WillReturnRows(courseRows())

	course, err := repo.FindByID(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, course)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourseRepositoryListClassLinks(t *testing.T) {
	db, mock, cleanup := newCourseRepoMock(t)
	defer cleanup()
	repo := NewCourseRepository(db)

	rows := sqlmock.NewRows([]string{
		"id", "course_id", "class_group_id", "group_count", "teacher_a_id", "teacher_b_id",
		"subgroup_a_label", "subgroup_b_label", "position",
	}).AddRow("l1", "c1", "a2", 2, "t1", "t2", "A", "B", 0)
	mock.ExpectQuery("SELECT id, course_id, class_group_id, group_count").
		WithArgs("c1").
		WillReturnRows(rows)

	links, err := repo.ListClassLinks(context.Background(), []string{"c1"})
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, 2, links[0].GroupCount)
	require.NotNil(t, links[0].TeacherBID)
	assert.Equal(t, "t2", *links[0].TeacherBID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
