package gormrepos_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darasa-lms/darasa/core/course"
	"github.com/darasa-lms/darasa/core/user"
	gormrepos "github.com/darasa-lms/darasa/storage/database/gormdb"
	"github.com/darasa-lms/darasa/tests"
)

func TestUserRepository_CreateWithoutPassword(t *testing.T) {
	repo := gormrepos.NewUserRepository(testutil.PrepareDB(t))
	ctx := context.Background()

	usr, err := repo.CreateUser(ctx, user.User{Name: "Invited", Username: "invited", Email: "invited@test.cd", Role: user.RoleUser})
	require.NoError(t, err)

	got, err := repo.GetUser(ctx, user.GetFilter{ID: usr.ID})
	require.NoError(t, err)
	assert.Empty(t, got.PasswordHash)
	assert.Error(t, got.CheckPassword(""))
}

func TestModuleRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	repos := gormrepos.NewCourseRepositories(db)
	ctx := context.Background()

	instructor := testutil.CreateUser(t, gormrepos.NewUserRepository(db), "Ins", "ins", "ins@test.cd", "", user.RoleInstructor, true)
	crs := testutil.CreateCourse(t, repos, instructor.ID, course.Course{})
	mod := testutil.CreateModule(t, repos, crs.ID, 1)
	l1 := testutil.CreateLesson(t, repos, mod, 1)
	testutil.CreateLesson(t, repos, mod, 2, course.ContentDraft)
	testutil.CreateQuiz(t, repos, l1, nil)

	t.Run("GetModule", func(t *testing.T) {
		got, err := repos.Modules.GetModule(ctx, mod.ID)
		require.NoError(t, err)
		assert.Equal(t, mod.ID, got.ID)
		assert.Equal(t, crs.ID, got.CourseID)
		assert.Equal(t, mod.Title, got.Title)
		assert.Equal(t, 1, got.ModuleOrder)
		assert.Equal(t, 2, got.LessonCount)
		assert.Equal(t, 1, got.QuizCount)
		assert.Zero(t, got.AssignmentCount)
	})

	t.Run("ListModules", func(t *testing.T) {
		second := testutil.CreateModule(t, repos, crs.ID, 2)
		modules, err := repos.Modules.ListModules(ctx, crs.ID)
		require.NoError(t, err)
		if assert.Len(t, modules, 2) {
			assert.Equal(t, mod.ID, modules[0].ID)
			assert.Equal(t, crs.ID, modules[0].CourseID)
			assert.Equal(t, 2, modules[0].LessonCount)
			assert.Equal(t, second.ID, modules[1].ID)
			assert.Zero(t, modules[1].LessonCount)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := repos.Modules.GetModule(ctx, crs.ID)
		assert.ErrorIs(t, err, course.ErrModuleNotFound)
	})
}
