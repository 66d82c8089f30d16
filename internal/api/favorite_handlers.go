package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/listenupapp/sortir/internal/domain"
	"github.com/listenupapp/sortir/internal/errors"
)

func (s *Server) registerFavoriteRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listFavorites",
		Method:      http.MethodGet,
		Path:        "/api/v1/favorites",
		Summary:     "List favorites",
		Description: "Returns favorites in insertion order, optionally narrowed to one entity type",
		Tags:        []string{"Favorites"},
	}, s.handleListFavorites)

	huma.Register(s.api, huma.Operation{
		OperationID: "addFavorite",
		Method:      http.MethodPost,
		Path:        "/api/v1/favorites",
		Summary:     "Add favorite",
		Description: "Marks an entity as favorite. Idempotent; requires a saved session",
		Tags:        []string{"Favorites"},
	}, s.handleAddFavorite)

	huma.Register(s.api, huma.Operation{
		OperationID: "getFavorite",
		Method:      http.MethodGet,
		Path:        "/api/v1/favorites/{type}/{id}",
		Summary:     "Check favorite",
		Description: "Reports whether an entity is a favorite",
		Tags:        []string{"Favorites"},
	}, s.handleGetFavorite)

	huma.Register(s.api, huma.Operation{
		OperationID: "removeFavorite",
		Method:      http.MethodDelete,
		Path:        "/api/v1/favorites/{type}/{id}",
		Summary:     "Remove favorite",
		Description: "Unmarks an entity. Removing an absent favorite succeeds",
		Tags:        []string{"Favorites"},
	}, s.handleRemoveFavorite)
}

// === DTOs ===

// ListFavoritesInput contains parameters for listing favorites.
type ListFavoritesInput struct {
	Type string `query:"type" enum:"event,restaurant" doc:"Only return this entity type"`
}

// FavoriteResponse contains favorite data in API responses.
type FavoriteResponse struct {
	AddedAt    time.Time `json:"added_at" doc:"When the favorite was added"`
	EntityType string    `json:"entity_type" doc:"Entity type"`
	EntityID   int64     `json:"entity_id" doc:"Entity ID"`
}

// ListFavoritesResponse contains a list of favorites.
type ListFavoritesResponse struct {
	Favorites []FavoriteResponse `json:"favorites" doc:"Favorites in insertion order"`
}

// ListFavoritesOutput wraps the list favorites response for Huma.
type ListFavoritesOutput struct {
	Body ListFavoritesResponse
}

// AddFavoriteRequest is the request body for adding a favorite.
type AddFavoriteRequest struct {
	EntityType string `json:"entity_type" enum:"event,restaurant" doc:"Entity type"`
	EntityID   int64  `json:"entity_id" minimum:"1" doc:"Entity ID"`
}

// AddFavoriteInput wraps the add favorite request for Huma.
type AddFavoriteInput struct {
	Body AddFavoriteRequest
}

// AddFavoriteResponse reports the outcome of an add.
type AddFavoriteResponse struct {
	Added         bool `json:"added" doc:"True when a new favorite was recorded"`
	Authenticated bool `json:"authenticated" doc:"False when the add was skipped for lack of a session"`
}

// AddFavoriteOutput wraps the add favorite response for Huma.
type AddFavoriteOutput struct {
	Body AddFavoriteResponse
}

// FavoritePathInput identifies one favorite.
type FavoritePathInput struct {
	Type string `path:"type" enum:"event,restaurant" doc:"Entity type"`
	ID   int64  `path:"id" minimum:"1" doc:"Entity ID"`
}

// ContainsFavoriteResponse reports membership.
type ContainsFavoriteResponse struct {
	Favorite bool `json:"favorite" doc:"Whether the entity is a favorite"`
}

// ContainsFavoriteOutput wraps the contains response for Huma.
type ContainsFavoriteOutput struct {
	Body ContainsFavoriteResponse
}

// === Handlers ===

func (s *Server) handleListFavorites(_ context.Context, input *ListFavoritesInput) (*ListFavoritesOutput, error) {
	var items []domain.FavoriteItem
	if input.Type == "" {
		items = s.services.Favorites.List()
	} else {
		entityType, err := entityTypeParam("type", input.Type)
		if err != nil {
			return nil, err
		}
		items = s.services.Favorites.ListByType(entityType)
	}

	resp := make([]FavoriteResponse, len(items))
	for i, it := range items {
		resp[i] = FavoriteResponse{
			AddedAt:    it.AddedAt,
			EntityType: string(it.EntityType),
			EntityID:   it.EntityID,
		}
	}

	return &ListFavoritesOutput{Body: ListFavoritesResponse{Favorites: resp}}, nil
}

func (s *Server) handleAddFavorite(ctx context.Context, input *AddFavoriteInput) (*AddFavoriteOutput, error) {
	_, authenticated := s.services.Session.Current()

	entityType, err := entityTypeParam("entity_type", input.Body.EntityType)
	if err != nil {
		return nil, err
	}
	added, err := s.services.Favorites.Add(ctx, input.Body.EntityID, entityType)
	if err != nil {
		return nil, toAPIError(err)
	}

	return &AddFavoriteOutput{
		Body: AddFavoriteResponse{Added: added, Authenticated: authenticated},
	}, nil
}

func (s *Server) handleGetFavorite(_ context.Context, input *FavoritePathInput) (*ContainsFavoriteOutput, error) {
	entityType, err := entityTypeParam("type", input.Type)
	if err != nil {
		return nil, err
	}
	return &ContainsFavoriteOutput{
		Body: ContainsFavoriteResponse{
			Favorite: s.services.Favorites.Contains(input.ID, entityType),
		},
	}, nil
}

func (s *Server) handleRemoveFavorite(ctx context.Context, input *FavoritePathInput) (*MessageOutput, error) {
	entityType, err := entityTypeParam("type", input.Type)
	if err != nil {
		return nil, err
	}
	if err := s.services.Favorites.Remove(ctx, input.ID, entityType); err != nil {
		return nil, toAPIError(err)
	}
	return &MessageOutput{Body: MessageResponse{Message: "Favorite removed"}}, nil
}

// entityTypeParam converts a request field into an EntityType, reporting it under field.
func entityTypeParam(field, raw string) (domain.EntityType, error) {
	t, err := domain.ParseEntityType(raw)
	if err != nil {
		return "", toAPIError(errors.ValidationWithDetails("invalid entity type", map[string]string{field: err.Error()}))
	}
	return t, nil
}
