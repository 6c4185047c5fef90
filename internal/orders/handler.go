package orders

import (
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/storefront-api/internal/httpx"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts the order routes under prefix.
func (h *Handler) Register(mux *http.ServeMux, prefix string, wrap func(http.HandlerFunc) http.HandlerFunc) {
	mux.HandleFunc("GET "+prefix+"/orders", wrap(h.HandleList))
	mux.HandleFunc("POST "+prefix+"/orders", wrap(h.HandleCreate))
	mux.HandleFunc("GET "+prefix+"/orders/{id}", wrap(h.HandleGet))
	mux.HandleFunc("PUT "+prefix+"/orders/{id}", wrap(h.HandleUpdateStatus))
	mux.HandleFunc("DELETE "+prefix+"/orders/{id}", wrap(h.HandleDelete))
	mux.HandleFunc("GET "+prefix+"/orders/get/totalsales", wrap(h.HandleTotalSales))
	mux.HandleFunc("GET "+prefix+"/orders/get/count", wrap(h.HandleCount))
	mux.HandleFunc("GET "+prefix+"/orders/get/userorders/{userid}", wrap(h.HandleListByUser))
}

type createOrderRequest struct {
	OrderItems       []Line  `json:"orderItems"`
	ShippingAddress1 string  `json:"shippingAddress1"`
	ShippingAddress2 string  `json:"shippingAddress2"`
	City             string  `json:"city"`
	Zip              string  `json:"zip"`
	Country          string  `json:"country"`
	Phone            string  `json:"phone"`
	Status           string  `json:"status"`
	User             string  `json:"user"`
	TotalPrice       float64 `json:"totalPrice"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}
	if req.TotalPrice != 0 {
		h.logger.Debug("ignoring client supplied total price", "total_price", req.TotalPrice)
	}

	order, err := h.service.Place(r.Context(), PlaceInput{
		Lines:            req.OrderItems,
		ShippingAddress1: req.ShippingAddress1,
		ShippingAddress2: req.ShippingAddress2,
		City:             req.City,
		Zip:              req.Zip,
		Country:          req.Country,
		Phone:            req.Phone,
		Status:           req.Status,
		UserID:           req.User,
	})
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, order)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, map[string]any{"order": order})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateStatusRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	h.logger.Info("order status updated", "order_id", order.ID, "status", order.Status)
	httpx.WriteJSON(w, h.logger, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	message := "the order is deleted"
	if len(report.FailedItems) > 0 {
		message = "the order is deleted, some order items could not be removed"
	}
	httpx.WriteMessage(w, h.logger, http.StatusOK, message)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.List(r.Context())
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, map[string]any{"orderList": orders})
}

func (h *Handler) HandleListByUser(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.ListByUser(r.Context(), r.PathValue("userid"))
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, map[string]any{"userOrderList": orders})
}

func (h *Handler) HandleTotalSales(w http.ResponseWriter, r *http.Request) {
	total, err := h.service.TotalSales(r.Context())
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, map[string]any{"totalSales": total})
}

func (h *Handler) HandleCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.Count(r.Context())
	if err != nil {
		httpx.WriteError(w, h.logger, err)
		return
	}

	httpx.WriteJSON(w, h.logger, http.StatusOK, map[string]any{"orderCount": count})
}
