package schema

// ReaderProfileTable represents the 'reader.profile' table
type ReaderProfileTable struct {
	Table                   string
	UserID                  string
	LastActivity            string
	NumberOfReadingSessions string
	TotalReadingSeconds     string
	LastBookReadID          string
	UpdatedAt               string
}

// ReaderProfile is the schema definition for reader.profile
//
// All columns except UserID are denormalized caches over reader.session and
// are refreshed in the same transaction as the session write that changes them.
var ReaderProfile = ReaderProfileTable{
	Table:                   "reader.profile",
	UserID:                  "userid",
	LastActivity:            "lastactivity",
	NumberOfReadingSessions: "numberofreadingsessions",
	TotalReadingSeconds:     "totalreadingseconds",
	LastBookReadID:          "lastbookreadid",
	UpdatedAt:               "updatedat",
}

// Columns returns all standard column names
func (t ReaderProfileTable) Columns() []string {
	return []string{
		t.UserID, t.LastActivity, t.NumberOfReadingSessions,
		t.TotalReadingSeconds, t.LastBookReadID, t.UpdatedAt,
	}
}
