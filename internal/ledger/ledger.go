package ledger

import (
	"errors"
	"fmt"
	"sync"

	"val8-concierge/internal/models"
)

var (
	ErrNotBooked    = errors.New("category not booked")
	ErrNotEditable  = errors.New("booked item has no editable fields")
	ErrUnknownField = errors.New("unknown editable field")
	ErrBadCategory  = errors.New("unknown category")
)

// Ledger maps a category to the item booked for it. Items are copied in and out
// so callers never share memory with the ledger.
type Ledger struct {
	mu    sync.RWMutex
	items map[models.Category]models.BookedItem
}

func New() *Ledger {
	return &Ledger{items: make(map[models.Category]models.BookedItem)}
}

// Commit inserts or replaces the entry for c. The stored item is always confirmed.
func (l *Ledger) Commit(c models.Category, item models.BookedItem) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %q", ErrBadCategory, c)
	}
	item = item.Clone()
	item.Category = c
	item.Status = models.StatusConfirmed

	l.mu.Lock()
	l.items[c] = item
	l.mu.Unlock()
	return nil
}

// Edit copies the editable field values of updated onto the existing entry for
// updated.Category. Identity and display fields are left alone.
func (l *Ledger) Edit(updated models.BookedItem) error {
	values := make(map[string]string, len(updated.EditableFields))
	for _, f := range updated.EditableFields {
		values[f.Label] = f.Value
	}
	return l.EditFields(updated.Category, values)
}

// EditFields sets editable field values by label
func (l *Ledger) EditFields(c models.Category, values map[string]string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	item, ok := l.items[c]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotBooked, c)
	}
	if !item.Editable() {
		return fmt.Errorf("%w: %s", ErrNotEditable, c)
	}

	index := make(map[string]int, len(item.EditableFields))
	for i, f := range item.EditableFields {
		index[f.Label] = i
	}
	for label := range values {
		if _, ok := index[label]; !ok {
			return fmt.Errorf("%w: %s.%s", ErrUnknownField, c, label)
		}
	}

	item = item.Clone()
	for label, value := range values {
		item.EditableFields[index[label]].Value = value
	}
	l.items[c] = item
	return nil
}

func (l *Ledger) Get(c models.Category) (models.BookedItem, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	item, ok := l.items[c]
	if !ok {
		return models.BookedItem{}, false
	}
	return item.Clone(), true
}

func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.items)
}

// Snapshot returns a deep copy of every entry
func (l *Ledger) Snapshot() map[models.Category]models.BookedItem {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make(map[models.Category]models.BookedItem, len(l.items))
	for c, item := range l.items {
		out[c] = item.Clone()
	}
	return out
}

// Ordered returns the booked items in display order
func (l *Ledger) Ordered() []models.BookedItem {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.BookedItem, 0, len(l.items))
	for _, c := range models.CategoryOrder {
		if item, ok := l.items[c]; ok {
			out = append(out, item.Clone())
		}
	}
	return out
}

func (l *Ledger) Clear() {
	l.mu.Lock()
	l.items = make(map[models.Category]models.BookedItem)
	l.mu.Unlock()
}
