package order

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-pos/internal/catalog"
	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/customer"
	"github.com/noah-isme/backend-pos/internal/employee"
	"github.com/noah-isme/backend-pos/internal/ledger"
)

// Handler wires the order service to HTTP. Every draft mutation responds with
// the full draft including freshly derived totals so the client never computes
// money itself.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

func (h *Handler) validate(v any) error {
	if h.Validate == nil {
		return nil
	}
	return h.Validate.Struct(v)
}

// CreateDraft opens a new draft session.
func (h *Handler) CreateDraft(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order service not configured", nil)
		return
	}
	var payload struct {
		CustomerID *uuid.UUID `json:"customerId"`
	}
	_ = json.NewDecoder(r.Body).Decode(&payload)
	o, err := h.Svc.NewDraft(r.Context(), payload.CustomerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeDraft(w, http.StatusCreated, o)
}

// EditDraft reopens a persisted order as a draft session.
func (h *Handler) EditDraft(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.pathID(w, r, "orderID")
	if !ok {
		return
	}
	o, err := h.Svc.EditDraft(r.Context(), orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeDraft(w, http.StatusOK, o)
}

// GetDraft returns the current draft state.
func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	draftID, ok := h.pathID(w, r, "draftID")
	if !ok {
		return
	}
	o, err := h.Svc.Draft(r.Context(), draftID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeDraft(w, http.StatusOK, o)
}

// DiscardDraft drops the draft without saving.
func (h *Handler) DiscardDraft(w http.ResponseWriter, r *http.Request) {
	draftID, ok := h.pathID(w, r, "draftID")
	if !ok {
		return
	}
	if err := h.Svc.Discard(r.Context(), draftID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetCustomer attaches or detaches the draft's customer.
func (h *Handler) SetCustomer(w http.ResponseWriter, r *http.Request) {
	draftID, ok := h.pathID(w, r, "draftID")
	if !ok {
		return
	}
	var payload struct {
		CustomerID *uuid.UUID `json:"customerId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	o, err := h.Svc.SetCustomer(r.Context(), draftID, payload.CustomerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeDraft(w, http.StatusOK, o)
}

// AddItem appends a catalog line to the draft.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	draftID, ok := h.pathID(w, r, "draftID")
	if !ok {
		return
	}
	var payload struct {
		ProductID uuid.UUID  `json:"productId" validate:"required"`
		VariantID *uuid.UUID `json:"variantId"`
		Qty       int        `json:"qty" validate:"required,gt=0"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid item payload", err.Error())
		return
	}
	o, err := h.Svc.AddItem(r.Context(), draftID, ItemRequest{
		ProductID: payload.ProductID,
		VariantID: payload.VariantID,
		Qty:       payload.Qty,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeDraft(w, http.StatusOK, o)
}

// RemoveItem deletes a draft line item.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	draftID, ok := h.pathID(w, r, "draftID")
	if !ok {
		return
	}
	itemID, ok := h.pathID(w, r, "itemID")
	if !ok {
		return
	}
	o, err := h.Svc.RemoveItem(r.Context(), draftID, itemID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeDraft(w, http.StatusOK, o)
}

// UpdateItemQty changes a line item quantity.
func (h *Handler) UpdateItemQty(w http.ResponseWriter, r *http.Request) {
	draftID, ok := h.pathID(w, r, "draftID")
	if !ok {
		return
	}
	itemID, ok := h.pathID(w, r, "itemID")
	if !ok {
		return
	}
	var payload struct {
		Qty int `json:"qty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	o, err := h.Svc.UpdateItemQty(r.Context(), draftID, itemID, payload.Qty)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeDraft(w, http.StatusOK, o)
}

// UpdateItemPrice sets a manual unit sell price on a line item.
func (h *Handler) UpdateItemPrice(w http.ResponseWriter, r *http.Request) {
	draftID, ok := h.pathID(w, r, "draftID")
	if !ok {
		return
	}
	itemID, ok := h.pathID(w, r, "itemID")
	if !ok {
		return
	}
	var payload struct {
		UnitSellPrice int64 `json:"unitSellPrice"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	o, err := h.Svc.UpdateItemPrice(r.Context(), draftID, itemID, payload.UnitSellPrice)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeDraft(w, http.StatusOK, o)
}

// SelectVariant switches a line item to another variant.
func (h *Handler) SelectVariant(w http.ResponseWriter, r *http.Request) {
	draftID, ok := h.pathID(w, r, "draftID")
	if !ok {
		return
	}
	itemID, ok := h.pathID(w, r, "itemID")
	if !ok {
		return
	}
	var payload struct {
		VariantID uuid.UUID `json:"variantId" validate:"required"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid variant payload", err.Error())
		return
	}
	o, err := h.Svc.SelectVariant(r.Context(), draftID, itemID, payload.VariantID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeDraft(w, http.StatusOK, o)
}

// SetDiscount updates discount mode and value in one call.
func (h *Handler) SetDiscount(w http.ResponseWriter, r *http.Request) {
	draftID, ok := h.pathID(w, r, "draftID")
	if !ok {
		return
	}
	var payload struct {
		Mode  ledger.DiscountMode `json:"mode" validate:"required,oneof=percent flat"`
		Value int64               `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid discount payload", err.Error())
		return
	}
	var (
		o   *ledger.Order
		err error
	)
	if _, err = h.Svc.SetDiscountMode(r.Context(), draftID, payload.Mode); err != nil {
		h.writeError(w, err)
		return
	}
	switch payload.Mode {
	case ledger.DiscountFlat:
		o, err = h.Svc.SetDiscountFlat(r.Context(), draftID, payload.Value)
	default:
		o, err = h.Svc.SetDiscountPercent(r.Context(), draftID, payload.Value)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeDraft(w, http.StatusOK, o)
}

// SetVAT updates the VAT rate in basis points.
func (h *Handler) SetVAT(w http.ResponseWriter, r *http.Request) {
	draftID, ok := h.pathID(w, r, "draftID")
	if !ok {
		return
	}
	var payload struct {
		Bps int64 `json:"bps"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	o, err := h.Svc.SetVAT(r.Context(), draftID, payload.Bps)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeDraft(w, http.StatusOK, o)
}

// SetDue records the operator-entered due figure.
func (h *Handler) SetDue(w http.ResponseWriter, r *http.Request) {
	draftID, ok := h.pathID(w, r, "draftID")
	if !ok {
		return
	}
	var payload struct {
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	o, err := h.Svc.SetDueAmount(r.Context(), draftID, payload.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeDraft(w, http.StatusOK, o)
}

// SetPreviousDue toggles folding the customer's carried balance into the total.
func (h *Handler) SetPreviousDue(w http.ResponseWriter, r *http.Request) {
	draftID, ok := h.pathID(w, r, "draftID")
	if !ok {
		return
	}
	var payload struct {
		Apply bool `json:"apply"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	o, err := h.Svc.SetApplyPreviousDue(r.Context(), draftID, payload.Apply)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeDraft(w, http.StatusOK, o)
}

// AddPayment records a payment entry.
func (h *Handler) AddPayment(w http.ResponseWriter, r *http.Request) {
	draftID, ok := h.pathID(w, r, "draftID")
	if !ok {
		return
	}
	var payload struct {
		Method ledger.PaymentMethod `json:"method" validate:"required"`
		Amount int64                `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	if err := h.validate(payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid payment payload", err.Error())
		return
	}
	o, err := h.Svc.AddPayment(r.Context(), draftID, payload.Method, payload.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeDraft(w, http.StatusOK, o)
}

// UpdatePayment changes a payment entry amount.
func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	draftID, ok := h.pathID(w, r, "draftID")
	if !ok {
		return
	}
	paymentID, ok := h.pathID(w, r, "paymentID")
	if !ok {
		return
	}
	var payload struct {
		Amount int64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	o, err := h.Svc.UpdatePaymentAmount(r.Context(), draftID, paymentID, payload.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeDraft(w, http.StatusOK, o)
}

// RemovePayment deletes a payment entry.
func (h *Handler) RemovePayment(w http.ResponseWriter, r *http.Request) {
	draftID, ok := h.pathID(w, r, "draftID")
	if !ok {
		return
	}
	paymentID, ok := h.pathID(w, r, "paymentID")
	if !ok {
		return
	}
	o, err := h.Svc.RemovePayment(r.Context(), draftID, paymentID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeDraft(w, http.StatusOK, o)
}

// SetIncentive assigns or clears the sales incentive.
func (h *Handler) SetIncentive(w http.ResponseWriter, r *http.Request) {
	draftID, ok := h.pathID(w, r, "draftID")
	if !ok {
		return
	}
	var payload struct {
		EmployeeID *uuid.UUID `json:"employeeId"`
		Amount     int64      `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body", nil)
		return
	}
	o, err := h.Svc.SetIncentive(r.Context(), draftID, payload.EmployeeID, payload.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeDraft(w, http.StatusOK, o)
}

// Save persists the draft and closes the session.
func (h *Handler) Save(w http.ResponseWriter, r *http.Request) {
	draftID, ok := h.pathID(w, r, "draftID")
	if !ok {
		return
	}
	o, err := h.Svc.Save(r.Context(), draftID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeDraft(w, http.StatusOK, o)
}

// Get returns a persisted order.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.pathID(w, r, "orderID")
	if !ok {
		return
	}
	o, err := h.Svc.Get(r.Context(), orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeDraft(w, http.StatusOK, o)
}

// List returns persisted order summaries.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order service not configured", nil)
		return
	}
	page, perPage := common.ParsePagination(r, 50)
	summaries, total, err := h.Svc.List(r.Context(), page, perPage)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": summaries,
		"meta": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "order service not configured", nil)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid "+param, nil)
		return uuid.Nil, false
	}
	return id, true
}

func writeDraft(w http.ResponseWriter, status int, o *ledger.Order) {
	common.JSON(w, status, map[string]any{
		"data":     o,
		"warnings": o.Warnings(),
	})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrDraftNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "draft not found", nil)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "order not found", nil)
	case errors.Is(err, ledger.ErrItemNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "item not found", nil)
	case errors.Is(err, catalog.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "product or variant not found", nil)
	case errors.Is(err, customer.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "customer not found", nil)
	case errors.Is(err, employee.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "employee not found", nil)
	case errors.Is(err, ledger.ErrInsufficientStock):
		common.JSONError(w, http.StatusUnprocessableEntity, "INSUFFICIENT_STOCK", err.Error(), nil)
	case errors.Is(err, ledger.ErrInvalidQuantity):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_QUANTITY", err.Error(), nil)
	case errors.Is(err, ledger.ErrInvalidPrice):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_PRICE", err.Error(), nil)
	case errors.Is(err, ledger.ErrInvalidAmount):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_AMOUNT", err.Error(), nil)
	case errors.Is(err, ledger.ErrInvalidMethod):
		common.JSONError(w, http.StatusUnprocessableEntity, "INVALID_METHOD", err.Error(), nil)
	case errors.Is(err, ErrStoreUnavailable),
		errors.Is(err, catalog.ErrStoreUnavailable),
		errors.Is(err, customer.ErrStoreUnavailable),
		errors.Is(err, employee.ErrStoreUnavailable):
		common.JSONError(w, http.StatusServiceUnavailable, "UNAVAILABLE", "dependency unavailable", nil)
	default:
		common.RenderError(w, err)
	}
}
