package store

import "sync"

// Batch buffers the rows of a run that does not exist yet. Rows get fake
// (negative) IDs; CommitBatch inserts the run and replaces every RunID
// with the real one.
//
// The mutex protects fake ID allocation and slice appends, so several
// goroutines may record into one Batch.
type Batch struct {
	mu sync.Mutex

	Issues      []Issue
	Connections []Connection
	Moves       []Move
	Edits       []Edit

	nextFakeID int64 // starts at -1, decrements
}

// NewBatch creates an empty Batch.
func NewBatch() *Batch {
	return &Batch{nextFakeID: -1}
}

func (b *Batch) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *Batch) InsertIssue(i *Issue) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i.ID = b.allocFakeID()
	b.Issues = append(b.Issues, *i)
	return i.ID, nil
}

func (b *Batch) InsertConnection(c *Connection) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	c.ID = b.allocFakeID()
	b.Connections = append(b.Connections, *c)
	return c.ID, nil
}

func (b *Batch) InsertMove(m *Move) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	m.ID = b.allocFakeID()
	b.Moves = append(b.Moves, *m)
	return m.ID, nil
}

func (b *Batch) InsertEdit(e *Edit) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e.ID = b.allocFakeID()
	b.Edits = append(b.Edits, *e)
	return e.ID, nil
}

// Len returns the number of buffered rows.
func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Issues) + len(b.Connections) + len(b.Moves) + len(b.Edits)
}
