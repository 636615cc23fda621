package orders

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/samber/lo"

	"github.com/joao-fontenele/storefront-api/internal/auth"
	"github.com/joao-fontenele/storefront-api/internal/domain"
	"github.com/joao-fontenele/storefront-api/internal/httpx"
	"github.com/joao-fontenele/storefront-api/internal/storage"
)

type Handler struct {
	service *Service
	urls    *storage.URLs
	logger  *slog.Logger
}

func NewHandler(service *Service, urls *storage.URLs, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		urls:    urls,
		logger:  logger,
	}
}

type cartProduct struct {
	ID       int64 `json:"id"`
	Quantity int   `json:"quantity"`
}

type createOrderRequest struct {
	ShipAddress   string             `json:"shipAddress"`
	PaymentMethod paymentMethodField `json:"paymentMethod"`
	Products      []cartProduct      `json:"products"`
}

// paymentMethodIndex is the numeric form of a payment method, as older clients send it.
var paymentMethodIndex = []domain.PaymentMethod{domain.PaymentMethodMomo, domain.PaymentMethodCOD}

// paymentMethodField accepts either a method name or its index.
type paymentMethodField string

func (f *paymentMethodField) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*f = paymentMethodField(name)
		return nil
	}

	var idx int
	if err := json.Unmarshal(data, &idx); err != nil {
		return fmt.Errorf("paymentMethod must be a string or an integer: %w", err)
	}
	if idx >= 0 && idx < len(paymentMethodIndex) {
		*f = paymentMethodField(paymentMethodIndex[idx])
		return nil
	}
	// Left for validation to reject.
	*f = paymentMethodField(strconv.Itoa(idx))
	return nil
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	in := CreateOrderInput{
		ShipAddress:   req.ShipAddress,
		PaymentMethod: string(req.PaymentMethod),
		Items: lo.Map(req.Products, func(p cartProduct, _ int) LineItem {
			return LineItem{ProductID: p.ID, Quantity: p.Quantity}
		}),
	}

	caller := auth.CallerFrom(r.Context())
	order, err := h.service.CreateOrder(r.Context(), caller, in)
	if err != nil {
		httpx.WriteFailure(w, h.logger, err, "failed to create order", "caller_id", caller.ID)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, NewCreatedOrder(*order))
}

func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFrom(r.Context())
	orders, err := h.service.ListForCaller(r.Context(), caller)
	if err != nil {
		httpx.WriteFailure(w, h.logger, err, "failed to list caller orders", "caller_id", caller.ID)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, OrderViews(orders))
}

func (h *Handler) HandleListWaiting(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFrom(r.Context())
	orders, err := h.service.ListWaiting(r.Context(), caller)
	if err != nil {
		httpx.WriteFailure(w, h.logger, err, "failed to list waiting orders", "caller_id", caller.ID)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, OrderViews(orders))
}

func (h *Handler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	caller := auth.CallerFrom(r.Context())
	orders, err := h.service.ListAll(r.Context(), caller, r.URL.Query().Get("status"))
	if err != nil {
		httpx.WriteFailure(w, h.logger, err, "failed to list orders", "caller_id", caller.ID)
		return
	}

	views := AdminOrderViews(orders)
	for i := range views {
		h.resolveAvatar(views[i].Customer)
		h.resolveAvatar(views[i].Shipper)
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, views)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	caller := auth.CallerFrom(r.Context())
	order, err := h.service.GetOrder(r.Context(), caller, id)
	if err != nil {
		httpx.WriteFailure(w, h.logger, err, "failed to get order", "order_id", id, "caller_id", caller.ID)
		return
	}

	if !caller.HasRole(domain.RoleAdmin) {
		httpx.WriteJSON(w, h.logger, http.StatusOK, NewOrderView(*order))
		return
	}

	view := NewAdminOrderView(*order)
	h.resolveAvatar(view.Customer)
	h.resolveAvatar(view.Shipper)
	httpx.WriteJSON(w, h.logger, http.StatusOK, view)
}

func (h *Handler) HandlePickUp(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	caller := auth.CallerFrom(r.Context())
	order, err := h.service.PickUp(r.Context(), caller, id)
	if err != nil {
		httpx.WriteFailure(w, h.logger, err, "failed to pick up order", "order_id", id, "caller_id", caller.ID)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, NewOrderView(*order))
}

func (h *Handler) HandleMarkComplete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	caller := auth.CallerFrom(r.Context())
	order, err := h.service.MarkComplete(r.Context(), caller, id)
	if err != nil {
		httpx.WriteFailure(w, h.logger, err, "failed to complete order", "order_id", id, "caller_id", caller.ID)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, NewOrderView(*order))
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	caller := auth.CallerFrom(r.Context())
	if err := h.service.DeleteOrder(r.Context(), caller, id); err != nil {
		httpx.WriteFailure(w, h.logger, err, "failed to delete order", "order_id", id, "caller_id", caller.ID)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.WriteError(w, h.logger, http.StatusBadRequest, "invalid order id")
		return 0, false
	}
	return id, true
}

func (h *Handler) resolveAvatar(u *domain.User) {
	if u == nil || h.urls == nil {
		return
	}
	u.AvatarURL = h.urls.Avatar(u.AvatarURL)
}
