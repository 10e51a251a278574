package schema

// ReaderSessionTable represents the 'reader.session' table
type ReaderSessionTable struct {
	Table     string
	ID        string
	UserID    string
	BookID    string
	StartTime string
	EndTime   string
}

// ReaderSession is the schema definition for reader.session
var ReaderSession = ReaderSessionTable{
	Table:     "reader.session",
	ID:        "id",
	UserID:    "userid",
	BookID:    "bookid",
	StartTime: "starttime",
	EndTime:   "endtime",
}

// Columns returns all standard column names
func (t ReaderSessionTable) Columns() []string {
	return []string{t.ID, t.UserID, t.BookID, t.StartTime, t.EndTime}
}
