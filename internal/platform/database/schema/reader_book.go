package schema

// ReaderBookTable represents the 'reader.book' table
type ReaderBookTable struct {
	Table            string
	ID               string
	Title            string
	Author           string
	YearOfPublishing string
	ShortDescription string
	LongDescription  string
	LastTimeRead     string
	CreatedAt        string
	UpdatedAt        string
}

// ReaderBook is the schema definition for reader.book
var ReaderBook = ReaderBookTable{
	Table:            "reader.book",
	ID:               "id",
	Title:            "title",
	Author:           "author",
	YearOfPublishing: "yearofpublishing",
	ShortDescription: "shortdescription",
	LongDescription:  "longdescription",
	LastTimeRead:     "lasttimeread",
	CreatedAt:        "createdat",
	UpdatedAt:        "updatedat",
}

// Columns returns all standard column names
func (t ReaderBookTable) Columns() []string {
	return []string{
		t.ID, t.Title, t.Author, t.YearOfPublishing, t.ShortDescription,
		t.LongDescription, t.LastTimeRead, t.CreatedAt, t.UpdatedAt,
	}
}
