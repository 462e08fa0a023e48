package order_api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"ms-orders/internal/apperr"
	"ms-orders/internal/auth"
	"ms-orders/internal/logger"
	"ms-orders/internal/models"
	"ms-orders/internal/order"
	"ms-orders/internal/utils"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	Service *order.Service
	Logger  *logger.Logger
}

func NewHandler(svc *order.Service, log *logger.Logger) *Handler {
	return &Handler{Service: svc, Logger: log}
}

// Routes mounts the order endpoints. The auth middleware is applied by the
// caller; staff gating happens here.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/create", h.CreateOrder)
	r.Post("/verify-payment", h.VerifyPayment)
	r.Get("/details", h.OrderDetails)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireStaff)
		r.Get("/get-all", h.ListOrders)
		r.Post("/status", h.UpdateStatus)
		r.Post("/reap-stale", h.ReapStale)
	})

	return r
}

func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req models.CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID := auth.UserIDFromContext(r.Context())
	resp, err := h.Service.Checkout(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, resp)
}

func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req models.VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID := auth.UserIDFromContext(r.Context())
	orderID, err := h.Service.VerifyPayment(r.Context(), userID, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, models.VerifyPaymentResponse{OrderID: orderID})
}

func (h *Handler) OrderDetails(w http.ResponseWriter, r *http.Request) {
	orderID, err := strconv.ParseInt(r.URL.Query().Get("orderId"), 10, 64)
	if err != nil {
		utils.WriteError(w, http.StatusBadRequest, "orderId must be a number")
		return
	}

	ctx := r.Context()
	details, err := h.Service.GetOrderDetails(ctx, orderID, auth.UserIDFromContext(ctx), auth.IsStaff(ctx))
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, details)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	offset, _ := strconv.Atoi(q.Get("offset"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	orders, err := h.Service.ListOrders(r.Context(), q.Get("status"), offset, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, orders)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req models.StatusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	actorID := auth.UserIDFromContext(r.Context())
	if err := h.Service.ApplyStatus(r.Context(), actorID, req); err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "status updated"})
}

func (h *Handler) ReapStale(w http.ResponseWriter, r *http.Request) {
	reaped, err := h.Service.ReapStalePending(r.Context(), 0)
	if err != nil {
		h.writeError(w, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, map[string]int{"reaped": reaped})
}

// writeError maps service errors onto HTTP statuses. Internal details never
// reach the response body.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := apperr.HTTPStatus(err)
	if status == http.StatusInternalServerError {
		h.Logger.Error("API", err.Error())
	}
	utils.WriteError(w, status, apperr.Public(err))
}
