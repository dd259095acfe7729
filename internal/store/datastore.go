package store

// DataStore is the interface for recording the rows of one run. Store
// writes straight to SQLite; Batch buffers rows until CommitBatch writes
// them together with their run.
type DataStore interface {
	InsertIssue(i *Issue) (int64, error)
	InsertConnection(c *Connection) (int64, error)
	InsertMove(m *Move) (int64, error)
	InsertEdit(e *Edit) (int64, error)
}

// Compile-time checks.
var (
	_ DataStore = (*Store)(nil)
	_ DataStore = (*Batch)(nil)
)
