// Package session holds state scoped to one CLI invocation or server
// instance: the deletion backups that can still be undone.
package session

import (
	"sync"
	"time"

	"github.com/mhan0505/student-management-system/internal/student"
)

// DefaultUndoCapacity is how many deletions are kept for undo.
const DefaultUndoCapacity = 10

// Backup is a deleted student awaiting a possible undo.
type Backup struct {
	Student   *student.Student `json:"student"`
	DeletedAt time.Time        `json:"deleted_at"`
}

// UndoStack is a bounded list of backups. When full, pushing evicts the
// oldest entry. It is safe for concurrent use.
type UndoStack struct {
	mu    sync.Mutex
	limit int
	items []Backup // oldest first
}

// NewUndoStack returns a stack holding at most capacity backups. A
// non-positive capacity uses DefaultUndoCapacity.
func NewUndoStack(capacity int) *UndoStack {
	if capacity <= 0 {
		capacity = DefaultUndoCapacity
	}
	return &UndoStack{limit: capacity}
}

// Push records a backup and returns the evicted one, if any.
func (u *UndoStack) Push(b Backup) (evicted *Backup) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.items = append(u.items, b)
	if len(u.items) > u.limit {
		old := u.items[0]
		u.items = append([]Backup(nil), u.items[1:]...)
		return &old
	}
	return nil
}

// Items returns the backups newest first.
func (u *UndoStack) Items() []Backup {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]Backup, len(u.items))
	for i, b := range u.items {
		out[len(u.items)-1-i] = b
	}
	return out
}

// Take removes and returns the newest backup for id.
func (u *UndoStack) Take(id string) (Backup, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for i := len(u.items) - 1; i >= 0; i-- {
		if u.items[i].Student.ID == id {
			b := u.items[i]
			u.items = append(u.items[:i:i], u.items[i+1:]...)
			return b, true
		}
	}
	return Backup{}, false
}

// Restore puts a backup back without evicting anything newer. It is used
// when an undo fails after Take.
func (u *UndoStack) Restore(b Backup) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if len(u.items) >= u.limit {
		return
	}
	i := len(u.items)
	for i > 0 && u.items[i-1].DeletedAt.After(b.DeletedAt) {
		i--
	}
	u.items = append(u.items[:i:i], append([]Backup{b}, u.items[i:]...)...)
}

func (u *UndoStack) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.items)
}

func (u *UndoStack) Cap() int { return u.limit }
