package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"society-cloud/internal/audit"
	"society-cloud/internal/billing/application"
	billing "society-cloud/internal/billing/domain"

	"github.com/shopspring/decimal"
)

// ChargeLineHandler serves the charge line configuration APIs under
// /api/v1/chargelines.
type ChargeLineHandler struct {
	charges     *application.ChargeLineService
	auditLogger audit.Logger
}

// NewChargeLineHandler constructs a handler.
func NewChargeLineHandler(charges *application.ChargeLineService, auditLogger audit.Logger) (*ChargeLineHandler, error) {
	if charges == nil {
		return nil, errors.New("charge line handler: nil service")
	}
	return &ChargeLineHandler{charges: charges, auditLogger: auditLogger}, nil
}

// ServeHTTP routes charge line requests.
func (h *ChargeLineHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/v1/chargelines" && r.Method == http.MethodGet:
		h.handleGet(w, r)
	case path == "/api/v1/chargelines" && r.Method == http.MethodPost:
		h.handleAdd(w, r)
	case path == "/api/v1/chargelines/total" && r.Method == http.MethodPost:
		h.handleSetTotal(w, r)
	case strings.HasPrefix(path, "/api/v1/chargelines/"):
		id := strings.TrimPrefix(path, "/api/v1/chargelines/")
		switch r.Method {
		case http.MethodPut:
			h.handleUpdate(w, r, id)
		case http.MethodDelete:
			h.handleRemove(w, r, id)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *ChargeLineHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	set, err := h.charges.Current(r.Context())
	if err != nil {
		respondBillingError(w, err)
		return
	}
	writeJSON(w, newChargeLineView(set))
}

func (h *ChargeLineHandler) handleAdd(w http.ResponseWriter, r *http.Request) {
	set, err := h.charges.AddLine(r.Context())
	if err != nil {
		respondBillingError(w, err)
		return
	}
	writeJSON(w, newChargeLineView(set))
	logAudit(h.auditLogger, r, "chargelines.add", "chargeline_set", "default", nil)
}

func (h *ChargeLineHandler) handleUpdate(w http.ResponseWriter, r *http.Request, id string) {
	var req struct {
		Label  *string `json:"label"`
		Amount *string `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	var amount *decimal.Decimal
	if req.Amount != nil {
		parsed, err := decimal.NewFromString(*req.Amount)
		if err != nil {
			http.Error(w, "invalid amount", http.StatusBadRequest)
			return
		}
		amount = &parsed
	}
	set, err := h.charges.UpdateLine(r.Context(), id, req.Label, amount)
	if err != nil {
		respondBillingError(w, err)
		return
	}
	writeJSON(w, newChargeLineView(set))
	logAudit(h.auditLogger, r, "chargelines.update", "chargeline", id, nil)
}

func (h *ChargeLineHandler) handleRemove(w http.ResponseWriter, r *http.Request, id string) {
	set, err := h.charges.RemoveLine(r.Context(), id)
	if err != nil {
		respondBillingError(w, err)
		return
	}
	writeJSON(w, newChargeLineView(set))
	logAudit(h.auditLogger, r, "chargelines.remove", "chargeline", id, nil)
}

func (h *ChargeLineHandler) handleSetTotal(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Total string `json:"total"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	total, err := decimal.NewFromString(req.Total)
	if err != nil {
		http.Error(w, "invalid total", http.StatusBadRequest)
		return
	}
	set, err := h.charges.SetTotal(r.Context(), total)
	if err != nil {
		respondBillingError(w, err)
		return
	}
	writeJSON(w, newChargeLineView(set))
	logAudit(h.auditLogger, r, "chargelines.set_total", "chargeline_set", "default", map[string]any{"total": req.Total})
}

type chargeLineView struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Amount string `json:"amount"`
}

type chargeLineSetView struct {
	Lines       []chargeLineView `json:"lines"`
	Total       string           `json:"total"`
	HasOverride bool             `json:"has_override"`
}

func newChargeLineView(set *billing.ChargeLineSet) chargeLineSetView {
	view := chargeLineSetView{
		Lines:       make([]chargeLineView, 0, len(set.Lines)),
		Total:       set.Total().StringFixed(2),
		HasOverride: set.HasOverride,
	}
	for _, line := range set.Lines {
		view.Lines = append(view.Lines, chargeLineView{
			ID:     line.ID,
			Label:  line.Label,
			Amount: line.Amount.StringFixed(2),
		})
	}
	return view
}
