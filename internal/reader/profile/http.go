package profile

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/readfolio/api/internal/platform/middleware"
	requestutil "github.com/readfolio/api/internal/platform/request"
	"github.com/readfolio/api/internal/platform/respond"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Get("/", handler.listProfiles)
	router.Get("/me", handler.getOwnProfile)
	router.Get("/{userID}", handler.getProfile)

	return router
}

// listProfiles returns the profiles visible to the caller, which is always
// exactly their own.
func (handler *Handler) listProfiles(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	profile, err := handler.service.GetOwn(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, []*Profile{profile})
}

func (handler *Handler) getOwnProfile(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	profile, err := handler.service.GetOwn(request.Context(), userID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, profile)
}

func (handler *Handler) getProfile(writer http.ResponseWriter, request *http.Request) {
	callerID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	profile, err := handler.service.Get(request.Context(), requestutil.ID(request, "userID"), callerID)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}
	respond.OK(writer, profile)
}
