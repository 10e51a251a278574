package book

import "time"

// Book represents a shared catalogue entry administered by staff.
//
// LastTimeRead is system-maintained: it is only ever advanced when one of the
// book's reading sessions ends, never written by clients.
type Book struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Author           string     `json:"author"`
	YearOfPublishing *int       `json:"year_of_publishing"`
	ShortDescription *string    `json:"short_description"`
	LongDescription  *string    `json:"long_description"`
	LastTimeRead     *time.Time `json:"last_time_read"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Summary is the list-view shape of a [Book].
//
// The long description is write-only on the list surface: clients may submit
// it on create/update but it is only rendered on the detail view.
type Summary struct {
	ID               string     `json:"id"`
	Title            string     `json:"title"`
	Author           string     `json:"author"`
	YearOfPublishing *int       `json:"year_of_publishing"`
	ShortDescription *string    `json:"short_description"`
	LastTimeRead     *time.Time `json:"last_time_read"`
}

// Summary projects the list-view shape from a full entity.
func (b *Book) Summary() Summary {
	return Summary{
		ID:               b.ID,
		Title:            b.Title,
		Author:           b.Author,
		YearOfPublishing: b.YearOfPublishing,
		ShortDescription: b.ShortDescription,
		LastTimeRead:     b.LastTimeRead,
	}
}

// Stats aggregates reading activity on a book across all users.
//
// SessionCount includes open sessions; TotalReadingSeconds only sums closed
// ones (an open session has no duration yet).
type Stats struct {
	BookID              string `json:"book_id"`
	SessionCount        int    `json:"session_count"`
	TotalReadingSeconds int64  `json:"total_reading_seconds"`
}

// UserStats aggregates one user's reading activity on a book.
type UserStats struct {
	BookID              string `json:"book_id"`
	UserID              string `json:"user_id"`
	TotalReadingSeconds int64  `json:"total_reading_seconds"`
}

// Filter holds the parameters for a paginated book search.
type Filter struct {
	Query string // Case-insensitive match against title and author
}

// DefaultAuthor is applied when a book is created without an author.
const DefaultAuthor = "Unknown author"

// Global field names for validation
const (
	FieldTitle            = "title"
	FieldAuthor           = "author"
	FieldYearOfPublishing = "year_of_publishing"
	FieldShortDescription = "short_description"
	FieldLongDescription  = "long_description"
)
