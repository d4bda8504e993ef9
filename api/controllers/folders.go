package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/BigDeckClub/BigDeckAppV3-sub000/api/responses"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/api/validators"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/internal/folders"
	pkgerrors "github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/errors"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/logger"
)

func FolderList(svc *folders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		views, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, views)
	}
}

type createFolderRequest struct {
	Name        string  `json:"name" validate:"required"`
	Description *string `json:"description,omitempty"`
}

func FolderCreate(svc *folders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload createFolderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		folder, err := svc.Create(r.Context(), payload.Name, payload.Description)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, folder)
	}
}

type renameFolderRequest struct {
	Name string `json:"name" validate:"required"`
}

func FolderRename(svc *folders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		current := chi.URLParam(r, "folderName")

		var payload renameFolderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Rename(r.Context(), current, payload.Name); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"name": payload.Name})
	}
}

func FolderDelete(svc *folders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Delete(r.Context(), chi.URLParam(r, "folderName")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

type moveItemsRequest struct {
	ItemIDs      []string `json:"item_ids,omitempty"`
	CardName     string   `json:"card_name,omitempty"`
	TargetFolder string   `json:"target_folder" validate:"required"`
}

// FolderMoveItems moves items into a folder, selected either by explicit ids
// or by card name. Batches are atomic.
func FolderMoveItems(svc *folders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload moveItemsRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if len(payload.ItemIDs) == 0 && payload.CardName == "" {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "item_ids or card_name is required"))
			return
		}

		if payload.CardName != "" {
			moved, err := svc.MoveByCardName(r.Context(), payload.CardName, payload.TargetFolder)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			responses.WriteSuccess(w, map[string]int{"moved": moved})
			return
		}

		ids := make([]uuid.UUID, 0, len(payload.ItemIDs))
		for _, raw := range payload.ItemIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid item id"))
				return
			}
			ids = append(ids, id)
		}

		moved, err := svc.MoveItems(r.Context(), ids, payload.TargetFolder)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"moved": moved})
	}
}

type moveItemRequest struct {
	TargetFolder string `json:"target_folder" validate:"required"`
}

func FolderMoveItem(svc *folders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload moveItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.MoveItem(r.Context(), id, payload.TargetFolder)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}
