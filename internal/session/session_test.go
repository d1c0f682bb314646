package session

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mhan0505/student-management-system/internal/repository"
	"github.com/mhan0505/student-management-system/internal/student"
)

func backup(id string, at int) Backup {
	return Backup{Student: &student.Student{ID: id}, DeletedAt: time.Unix(int64(at), 0)}
}

func ids(bs []Backup) []string {
	out := make([]string, len(bs))
	for i, b := range bs {
		out[i] = b.Student.ID
	}
	return out
}

func TestUndoStackEvictsOldest(t *testing.T) {
	u := NewUndoStack(3)
	assert.Equal(t, 3, u.Cap())
	for i := 1; i <= 3; i++ {
		assert.Nil(t, u.Push(backup(fmt.Sprint(i), i)))
	}
	ev := u.Push(backup("4", 4))
	require.NotNil(t, ev)
	assert.Equal(t, "1", ev.Student.ID)
	assert.Equal(t, []string{"4", "3", "2"}, ids(u.Items()))

	b, ok := u.Take("3")
	require.True(t, ok)
	assert.Equal(t, "3", b.Student.ID)
	assert.Equal(t, []string{"4", "2"}, ids(u.Items()))
	_, ok = u.Take("3")
	assert.False(t, ok)

	u.Restore(b)
	assert.Equal(t, []string{"4", "3", "2"}, ids(u.Items()))
	assert.Equal(t, 3, u.Len())

	assert.Equal(t, DefaultUndoCapacity, NewUndoStack(0).Cap())
}

func TestUndoStackTakeNewestDuplicate(t *testing.T) {
	u := NewUndoStack(5)
	u.Push(backup("a", 1))
	u.Push(backup("b", 2))
	u.Push(backup("a", 3))
	b, ok := u.Take("a")
	require.True(t, ok)
	assert.Equal(t, int64(3), b.DeletedAt.Unix())
	assert.Equal(t, []string{"b", "a"}, ids(u.Items()))
}

func TestSessionDeleteUndo(t *testing.T) {
	ctx := context.Background()
	repo, err := repository.Open(ctx, "sqlite", ":memory:", nil)
	require.NoError(t, err)
	defer repo.Close()
	require.NoError(t, repo.Migrate(ctx))
	gpa := 3.1
	for _, id := range []string{"S1", "S2", "S3"} {
		require.NoError(t, repo.Insert(ctx, &student.Student{ID: id, FullName: "N " + id, Major: "CS", GPA: &gpa}))
	}

	s := New(repo, 2, nil)
	for _, id := range []string{"S1", "S2", "S3"} {
		_, err := s.Delete(ctx, id)
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"S3", "S2"}, ids(s.Backups()), "oldest deletion evicted")

	_, err = s.Delete(ctx, "S1")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = s.Undo(ctx, "S1")
	assert.ErrorIs(t, err, ErrNoBackup)

	b, err := s.Undo(ctx, "S2")
	require.NoError(t, err)
	assert.Equal(t, "N S2", b.Student.FullName)
	got, err := repo.FetchByID(ctx, "S2")
	require.NoError(t, err)
	assert.Equal(t, 3.1, *got.GPA)
	assert.Equal(t, []string{"S3"}, ids(s.Backups()))

	// a conflicting insert keeps the backup available
	require.NoError(t, repo.Insert(ctx, &student.Student{ID: "S3", FullName: "Other", Major: "Math"}))
	_, err = s.Undo(ctx, "S3")
	assert.ErrorIs(t, err, repository.ErrExists)
	assert.Equal(t, []string{"S3"}, ids(s.Backups()))
}
