package depends

// Disposable is implemented by instances that hold resources. A container
// calls Close exactly once on every Singleton instance it owns when the
// container is disposed. Transient instances are never tracked.
//
// Example:
//
//	type DatabaseConnection struct {
//	    conn *sql.DB
//	}
//
//	func (dc *DatabaseConnection) Close() error {
//	    return dc.conn.Close()
//	}
type Disposable interface {
	Close() error
}
