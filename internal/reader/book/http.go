package book

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/readfolio/api/internal/platform/middleware"
	requestutil "github.com/readfolio/api/internal/platform/request"
	"github.com/readfolio/api/internal/platform/respond"
	"github.com/readfolio/api/internal/platform/sec"
	"github.com/readfolio/api/pkg/pagination"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes returns the book catalogue router.
//
// Reads require authentication; mutations additionally require the staff role.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Get("/", handler.listBooks)
	router.Get("/{id}", handler.getBook)
	router.Get("/{id}/stats", handler.getStats)
	router.Get("/{id}/stats/me", handler.getUserStats)

	// Staff only
	router.Group(func(staffRoute chi.Router) {
		staffRoute.Use(middleware.RequireRole(sec.RoleStaff))

		staffRoute.Post("/", handler.createBook)
		staffRoute.Patch("/{id}", handler.updateBook)
		staffRoute.Delete("/{id}", handler.deleteBook)
	})

	return router
}

// bookRequest is the client-writable surface of a book.
//
// last_time_read is intentionally absent: it is read-only over the API.
type bookRequest struct {
	Title            string  `json:"title"`
	Author           string  `json:"author"`
	YearOfPublishing *int    `json:"year_of_publishing"`
	ShortDescription *string `json:"short_description"`
	LongDescription  *string `json:"long_description"`
}

func (input bookRequest) toBook() *Book {
	return &Book{
		Title:            input.Title,
		Author:           input.Author,
		YearOfPublishing: input.YearOfPublishing,
		ShortDescription: input.ShortDescription,
		LongDescription:  input.LongDescription,
	}
}

func (handler *Handler) listBooks(writer http.ResponseWriter, request *http.Request) {
	paginationParams := pagination.FromRequest(request)

	filter := Filter{
		Query: request.URL.Query().Get("q"),
	}

	books, total, err := handler.service.ListBooks(request.Context(), filter, paginationParams.Limit, paginationParams.Offset())
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.Paginated(writer, books, pagination.NewMeta(paginationParams.Page, paginationParams.Limit, total))
}

func (handler *Handler) getBook(writer http.ResponseWriter, request *http.Request) {
	bookID := requestutil.ID(request, "id")

	book, err := handler.service.GetBook(request.Context(), bookID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, book)
}

func (handler *Handler) getStats(writer http.ResponseWriter, request *http.Request) {
	bookID := requestutil.ID(request, "id")

	stats, err := handler.service.GetStats(request.Context(), bookID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, stats)
}

func (handler *Handler) getUserStats(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	bookID := requestutil.ID(request, "id")

	stats, err := handler.service.GetUserStats(request.Context(), bookID, userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, stats)
}

func (handler *Handler) createBook(writer http.ResponseWriter, request *http.Request) {
	var input bookRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	book := input.toBook()
	if err := handler.service.CreateBook(request.Context(), book); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.Created(writer, book)
}

func (handler *Handler) updateBook(writer http.ResponseWriter, request *http.Request) {
	bookID := requestutil.ID(request, "id")

	var input bookRequest
	if err := requestutil.DecodeJSON(request, &input); err != nil {
		respond.Error(writer, request, err)
		return
	}

	book := input.toBook()
	if err := handler.service.UpdateBook(request.Context(), bookID, book); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, book)
}

func (handler *Handler) deleteBook(writer http.ResponseWriter, request *http.Request) {
	bookID := requestutil.ID(request, "id")

	if err := handler.service.DeleteBook(request.Context(), bookID); err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.NoContent(writer)
}
