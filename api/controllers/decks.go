package controllers

import (
	"net/http"

	"github.com/BigDeckClub/BigDeckAppV3-sub000/api/responses"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/api/validators"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/internal/decks"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/internal/reservation"
	pkgerrors "github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/errors"
	"github.com/BigDeckClub/BigDeckAppV3-sub000/pkg/logger"
)

func TemplateList(svc *decks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		templates, err := svc.ListTemplates(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, templates)
	}
}

func TemplateCreate(svc *decks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload decks.CreateTemplateInput
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		template, err := svc.CreateTemplate(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, template)
	}
}

type importTemplateRequest struct {
	Name     string `json:"name" validate:"required"`
	Format   string `json:"format" validate:"required"`
	DeckList string `json:"deck_list" validate:"required"`
}

// TemplateImport creates a template from an Archidekt-style text export.
func TemplateImport(svc *decks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload importTemplateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		template, err := svc.ImportTemplate(r.Context(), payload.Name, payload.Format, payload.DeckList)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, template)
	}
}

func TemplateGet(svc *decks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "templateId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		template, err := svc.GetTemplate(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, template)
	}
}

func TemplateDelete(svc *decks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "templateId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteTemplate(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

type buildInstanceRequest struct {
	Name string `json:"name,omitempty"`
}

func TemplateBuild(svc *decks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "templateId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payload := buildInstanceRequest{}
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		instance, err := svc.BuildInstance(r.Context(), id, payload.Name)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, instance)
	}
}

func DeckList(svc *decks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		instances, err := svc.ListInstances(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, instances)
	}
}

func DeckDetails(svc *decks.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathUUID(r, "deckId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		details, err := svc.GetInstanceDetails(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, details)
	}
}

type addCardRequest struct {
	ItemID   string `json:"item_id" validate:"required"`
	Quantity int    `json:"quantity" validate:"gt=0"`
}

// DeckAddCard reserves copies of one item for the deck. The request fails on
// a shortfall unless ?partial=true, which downsizes to what is available.
func DeckAddCard(engine *reservation.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deckID, err := pathUUID(r, "deckId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addCardRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := parseUUID(payload.ItemID, "item_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		partial, err := validators.ParseQueryBool(r, "partial", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reserved, err := engine.AddCardToDeck(r.Context(), deckID, itemID, payload.Quantity, !partial)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"reserved": reserved})
	}
}

func DeckRemoveCard(engine *reservation.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deckID, err := pathUUID(r, "deckId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		reservationID, err := pathUUID(r, "reservationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		qty, err := validators.ParseQueryInt(r, "quantity", 1, 1, 1_000_000)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := engine.RemoveCardFromDeck(r.Context(), deckID, reservationID, qty); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

func DeckReoptimize(engine *reservation.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deckID, err := pathUUID(r, "deckId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := engine.Reoptimize(r.Context(), deckID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func DeckAutoFill(engine *reservation.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deckID, err := pathUUID(r, "deckId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := engine.AutoFill(r.Context(), deckID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// DeckRelease frees every reservation and removes the deck instance.
func DeckRelease(engine *reservation.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deckID, err := pathUUID(r, "deckId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := engine.ReleaseDeck(r.Context(), deckID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

type moveCardRequest struct {
	ReservationID string `json:"reservation_id" validate:"required"`
	TargetDeckID  string `json:"target_deck_id,omitempty"`
	TargetFolder  string `json:"target_folder,omitempty"`
}

// DeckMoveCard moves a reserved card to another deck or releases it into a
// folder. Exactly one target must be set.
func DeckMoveCard(engine *reservation.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload moveCardRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reservationID, err := parseUUID(payload.ReservationID, "reservation_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		switch {
		case payload.TargetDeckID != "" && payload.TargetFolder != "":
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "set either target_deck_id or target_folder, not both"))
			return
		case payload.TargetDeckID != "":
			targetID, err := parseUUID(payload.TargetDeckID, "target_deck_id")
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			if err := engine.MoveCardBetweenDecks(r.Context(), reservationID, targetID); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		default:
			if err := engine.MoveCardFromDeckToFolder(r.Context(), reservationID, payload.TargetFolder); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		responses.WriteNoContent(w)
	}
}
