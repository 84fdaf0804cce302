package endpoints

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sales-routing-backend/internal/api/middleware"
	"sales-routing-backend/internal/dto"
	"sales-routing-backend/internal/model"
	"sales-routing-backend/internal/service/directory"
)

type SellerDirectory interface {
	AddSeller(ctx context.Context, params directory.AddSellerParams) (model.SellerItem, error)
	GetSeller(ctx context.Context, sellerID string) (model.SellerItem, error)
	ListSellers(ctx context.Context, filter directory.Filter) ([]model.SellerItem, error)
	UpdateSeller(ctx context.Context, sellerID string, params directory.UpdateSellerParams) (model.SellerItem, error)
	SetStatus(ctx context.Context, sellerID string, status model.SellerStatus) (model.SellerItem, error)
	SetActive(ctx context.Context, sellerID string, active bool) (model.SellerItem, error)
	AddDayOff(ctx context.Context, sellerID, date, reason string) (model.SellerItem, error)
	RemoveDayOff(ctx context.Context, sellerID, date string) (model.SellerItem, error)
	DeleteSeller(ctx context.Context, sellerID string) error
	AvailableSellers(ctx context.Context, at time.Time) ([]model.SellerItem, error)
}

type SellerEndpoints interface {
	Sellers(http.ResponseWriter, *http.Request) error
	Seller(http.ResponseWriter, *http.Request) error
}

type sellerEndpoints struct {
	directory SellerDirectory
	tokens    middleware.TokenParser
	prefix    string
	now       func() time.Time
}

// NewSellerEndpoints exposes the directory. Reads are open to the bot; every
// mutation needs an operator token.
func NewSellerEndpoints(dir SellerDirectory, tokens middleware.TokenParser, prefix string) SellerEndpoints {
	return &sellerEndpoints{
		directory: dir,
		tokens:    tokens,
		prefix:    strings.TrimRight(prefix, "/") + "/",
		now:       time.Now,
	}
}

func (h *sellerEndpoints) Sellers(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet:  h.handleList,
		http.MethodPost: h.operatorOnly(h.handleCreate),
	})
}

func (h *sellerEndpoints) Seller(w http.ResponseWriter, r *http.Request) error {
	id, action, err := splitPath(r.URL.Path, h.prefix)
	if err != nil {
		return err
	}

	if id == "available" && action == "" {
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodGet: h.handleAvailable,
		})
	}

	action, date, _ := strings.Cut(action, "/")
	withID := func(f func(http.ResponseWriter, *http.Request, string) error) func(http.ResponseWriter, *http.Request) error {
		return func(w http.ResponseWriter, r *http.Request) error { return f(w, r, id) }
	}

	switch {
	case action == "":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodGet:    withID(h.handleGet),
			http.MethodPatch:  h.operatorOnly(withID(h.handleUpdate)),
			http.MethodDelete: h.operatorOnly(withID(h.handleDelete)),
		})
	case action == "status":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPost: h.operatorOnly(withID(h.handleStatus)),
		})
	case action == "days-off" && date == "":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPost: h.operatorOnly(withID(h.handleAddDayOff)),
		})
	case action == "days-off":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodDelete: h.operatorOnly(func(w http.ResponseWriter, r *http.Request) error {
				return h.handleRemoveDayOff(w, r, id, date)
			}),
		})
	}

	return &HTTPError{
		StatusCode: http.StatusNotFound,
		Message:    "Not found",
		ErrorLog:   fmt.Errorf("unknown seller action %q", action),
	}
}

func (h *sellerEndpoints) operatorOnly(next func(http.ResponseWriter, *http.Request) error) func(http.ResponseWriter, *http.Request) error {
	return func(w http.ResponseWriter, r *http.Request) error {
		if _, err := requireOperator(r, h.tokens); err != nil {
			return err
		}
		return next(w, r)
	}
}

func (h *sellerEndpoints) handleList(w http.ResponseWriter, r *http.Request) error {
	query := r.URL.Query()
	filter := directory.Filter{
		Specialty: query.Get("specialty"),
		Status:    model.SellerStatus(query.Get("status")),
	}
	if raw := query.Get("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return &HTTPError{
				StatusCode: http.StatusBadRequest,
				Message:    "active must be true or false",
				ErrorLog:   fmt.Errorf("parse active filter: %w", err),
			}
		}
		filter.ActiveOnly = active
	}

	sellers, err := h.directory.ListSellers(r.Context(), filter)
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, toSellerResponses(sellers))
}

func (h *sellerEndpoints) handleAvailable(w http.ResponseWriter, r *http.Request) error {
	sellers, err := h.directory.AvailableSellers(r.Context(), h.now())
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, toSellerResponses(sellers))
}

func (h *sellerEndpoints) handleCreate(w http.ResponseWriter, r *http.Request) error {
	var req dto.CreateSellerRequest
	if err := decodeJSON(r, &req, "create seller"); err != nil {
		return err
	}

	seller, err := h.directory.AddSeller(r.Context(), directory.AddSellerParams{
		DisplayName:                 req.DisplayName,
		ContactHandle:               req.ContactHandle,
		Specialty:                   req.Specialty,
		MaxClients:                  req.MaxClients,
		NotificationIntervalMinutes: req.NotificationIntervalMinutes,
		WorkStart:                   req.WorkStart,
		WorkEnd:                     req.WorkEnd,
	})
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusCreated, toSellerResponse(seller))
}

func (h *sellerEndpoints) handleGet(w http.ResponseWriter, r *http.Request, id string) error {
	seller, err := h.directory.GetSeller(r.Context(), id)
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, toSellerResponse(seller))
}

func (h *sellerEndpoints) handleUpdate(w http.ResponseWriter, r *http.Request, id string) error {
	var req dto.UpdateSellerRequest
	if err := decodeJSON(r, &req, "update seller"); err != nil {
		return err
	}

	seller, err := h.directory.UpdateSeller(r.Context(), id, directory.UpdateSellerParams{
		DisplayName:                 req.DisplayName,
		ContactHandle:               req.ContactHandle,
		Specialty:                   req.Specialty,
		MaxClients:                  req.MaxClients,
		Rating:                      req.Rating,
		WorkStart:                   req.WorkStart,
		WorkEnd:                     req.WorkEnd,
		NotificationIntervalMinutes: req.NotificationIntervalMinutes,
	})
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, toSellerResponse(seller))
}

func (h *sellerEndpoints) handleDelete(w http.ResponseWriter, r *http.Request, id string) error {
	if err := h.directory.DeleteSeller(r.Context(), id); err != nil {
		return serviceError(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (h *sellerEndpoints) handleStatus(w http.ResponseWriter, r *http.Request, id string) error {
	var req dto.SellerStatusRequest
	if err := decodeJSON(r, &req, "seller status"); err != nil {
		return err
	}
	if req.Status == "" && req.Active == nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "status or active is required",
			ErrorLog:   fmt.Errorf("empty seller status request"),
		}
	}

	var (
		seller model.SellerItem
		err    error
	)
	if req.Status != "" {
		if seller, err = h.directory.SetStatus(r.Context(), id, model.SellerStatus(req.Status)); err != nil {
			return serviceError(err)
		}
	}
	if req.Active != nil {
		if seller, err = h.directory.SetActive(r.Context(), id, *req.Active); err != nil {
			return serviceError(err)
		}
	}
	return WriteJSON(w, http.StatusOK, toSellerResponse(seller))
}

func (h *sellerEndpoints) handleAddDayOff(w http.ResponseWriter, r *http.Request, id string) error {
	var req dto.DayOff
	if err := decodeJSON(r, &req, "day off"); err != nil {
		return err
	}

	seller, err := h.directory.AddDayOff(r.Context(), id, req.Date, req.Reason)
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, toSellerResponse(seller))
}

func (h *sellerEndpoints) handleRemoveDayOff(w http.ResponseWriter, r *http.Request, id, date string) error {
	seller, err := h.directory.RemoveDayOff(r.Context(), id, date)
	if err != nil {
		return serviceError(err)
	}
	return WriteJSON(w, http.StatusOK, toSellerResponse(seller))
}
