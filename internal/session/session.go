package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mhan0505/student-management-system/internal/repository"
)

// ErrNoBackup is returned when undo is asked for an id with no backup.
var ErrNoBackup = errors.New("no backup for student")

// Session pairs a repository with the undo history of its deletions.
type Session struct {
	repo repository.Repository
	undo *UndoStack
	log  *zap.SugaredLogger
	now  func() time.Time
}

// New returns a session over repo keeping undoCapacity backups.
func New(repo repository.Repository, undoCapacity int, log *zap.SugaredLogger) *Session {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Session{repo: repo, undo: NewUndoStack(undoCapacity), log: log, now: time.Now}
}

// Repository returns the underlying data source.
func (s *Session) Repository() repository.Repository { return s.repo }

// Backups lists undoable deletions, newest first.
func (s *Session) Backups() []Backup { return s.undo.Items() }

// Delete backs the student up and then removes it.
func (s *Session) Delete(ctx context.Context, id string) (Backup, error) {
	st, err := s.repo.FetchByID(ctx, id)
	if err != nil {
		return Backup{}, err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return Backup{}, err
	}
	b := Backup{Student: st, DeletedAt: s.now().UTC()}
	if old := s.undo.Push(b); old != nil {
		s.log.Debugw("undo history full, dropped oldest", "student_id", old.Student.ID)
	}
	s.log.Infow("student deleted", "student_id", id, "undo_available", s.undo.Len())
	return b, nil
}

// Undo re-inserts the most recent backup of id and drops it from history.
func (s *Session) Undo(ctx context.Context, id string) (Backup, error) {
	b, ok := s.undo.Take(id)
	if !ok {
		return Backup{}, fmt.Errorf("%s: %w", id, ErrNoBackup)
	}
	if err := s.repo.Insert(ctx, b.Student); err != nil {
		s.undo.Restore(b)
		return Backup{}, err
	}
	s.log.Infow("student restored", "student_id", id)
	return b, nil
}
