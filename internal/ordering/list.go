package ordering

import "fmt"

// Item is anything with an identity and a position.
type Item struct {
	ID    string
	Index int
}

// List applies plans to an in-memory slice of items. It is the reference behaviour
// the database path must match.
type List struct {
	items []Item
}

// NewList copies items. Indices must already be dense.
func NewList(items []Item) (*List, error) {
	indices := make([]int, len(items))
	for i, it := range items {
		indices[i] = it.Index
	}
	if !Dense(indices) {
		return nil, fmt.Errorf("ordering: indices not dense: %v", indices)
	}
	return &List{items: append([]Item(nil), items...)}, nil
}

func (l *List) Len() int { return len(l.items) }

// Append adds id at the end.
func (l *List) Append(id string) (int, error) {
	index, err := Append(len(l.items))
	if err != nil {
		return 0, err
	}
	l.items = append(l.items, Item{ID: id, Index: index})
	return index, nil
}

// Delete removes id and closes the gap. It reports false if id is absent.
func (l *List) Delete(id string) bool {
	pos := l.find(id)
	if pos < 0 {
		return false
	}
	deleted := l.items[pos].Index
	shift := CloseGap(deleted, len(l.items))
	l.items = append(l.items[:pos], l.items[pos+1:]...)
	for i := range l.items {
		l.items[i].Index = shift.Apply(l.items[i].Index)
	}
	return true
}

// Move places id at newIndex.
func (l *List) Move(id string, newIndex int) error {
	pos := l.find(id)
	if pos < 0 {
		return fmt.Errorf("ordering: %s not found", id)
	}
	old := l.items[pos].Index
	shift, err := Move(old, newIndex, len(l.items))
	if err != nil {
		return err
	}
	for i := range l.items {
		if i == pos {
			continue
		}
		l.items[i].Index = shift.Apply(l.items[i].Index)
	}
	l.items[pos].Index = newIndex
	return nil
}

// IDs returns ids sorted by index.
func (l *List) IDs() []string {
	out := make([]string, len(l.items))
	for _, it := range l.items {
		out[it.Index] = it.ID
	}
	return out
}

// Indices returns the raw index values in storage order.
func (l *List) Indices() []int {
	out := make([]int, len(l.items))
	for i, it := range l.items {
		out[i] = it.Index
	}
	return out
}

func (l *List) find(id string) int {
	for i, it := range l.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}
