package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/orbitek/cargo-storage/internal/core/domain"
	"github.com/orbitek/cargo-storage/internal/core/service"
)

type HTTPHandler struct {
	allocations  *service.AllocationService
	transactions *service.TransactionService
	manifests    *service.ManifestService
	logger       *zap.Logger
}

func NewHTTPHandler(
	allocations *service.AllocationService,
	transactions *service.TransactionService,
	manifests *service.ManifestService,
	logger *zap.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		allocations:  allocations,
		transactions: transactions,
		manifests:    manifests,
		logger:       logger,
	}
}

func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.HealthCheck)

	mux.HandleFunc("POST /api/v1/storage-units", h.CreateStorageUnit)
	mux.HandleFunc("GET /api/v1/storage-units", h.ListStorageUnits)
	mux.HandleFunc("GET /api/v1/storage-units/{code}", h.GetStorageUnit)
	mux.HandleFunc("GET /api/v1/storage-units/{code}/allocations", h.ListAllocations)

	mux.HandleFunc("POST /api/v1/allocations", h.CreateAllocation)
	mux.HandleFunc("GET /api/v1/allocations/{id}", h.GetAllocation)
	mux.HandleFunc("PUT /api/v1/allocations/{id}/quantity", h.UpdateAllocationQuantity)
	mux.HandleFunc("DELETE /api/v1/allocations/{id}", h.DeleteAllocation)

	mux.HandleFunc("POST /api/v1/transactions", h.RecordTransaction)
	mux.HandleFunc("GET /api/v1/transactions", h.ListTransactions)
	mux.HandleFunc("GET /api/v1/transactions/{id}", h.GetTransaction)
	mux.HandleFunc("PUT /api/v1/transactions/{id}/reason", h.UpdateTransactionReason)

	mux.HandleFunc("POST /api/v1/manifests", h.CreateManifest)
	mux.HandleFunc("GET /api/v1/manifests/{id}", h.GetManifest)
	mux.HandleFunc("PATCH /api/v1/manifests/{id}", h.UpdateManifest)
	mux.HandleFunc("GET /api/v1/spacecraft/{id}/manifests", h.ListManifestsBySpacecraft)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// --- storage units ---

type createUnitRequest struct {
	Code           string  `json:"code"`
	MassCapacity   float64 `json:"mass_capacity"`
	VolumeCapacity float64 `json:"volume_capacity"`
}

type unitResponse struct {
	Code            string  `json:"code"`
	MassCapacity    float64 `json:"mass_capacity"`
	VolumeCapacity  float64 `json:"volume_capacity"`
	UsedMass        float64 `json:"used_mass"`
	UsedVolume      float64 `json:"used_volume"`
	AvailableMass   float64 `json:"available_mass"`
	AvailableVolume float64 `json:"available_volume"`
}

func toUnitResponse(u *domain.StorageUnit) unitResponse {
	return unitResponse{
		Code:            u.Code,
		MassCapacity:    u.MassCapacity,
		VolumeCapacity:  u.VolumeCapacity,
		UsedMass:        u.UsedMass,
		UsedVolume:      u.UsedVolume,
		AvailableMass:   u.AvailableMass(),
		AvailableVolume: u.AvailableVolume(),
	}
}

func (h *HTTPHandler) CreateStorageUnit(w http.ResponseWriter, r *http.Request) {
	var req createUnitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Code == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	unit, err := h.allocations.CreateStorageUnit(r.Context(), service.CreateStorageUnitCommand{
		Code:           req.Code,
		MassCapacity:   req.MassCapacity,
		VolumeCapacity: req.VolumeCapacity,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toUnitResponse(unit))
}

func (h *HTTPHandler) GetStorageUnit(w http.ResponseWriter, r *http.Request) {
	unit, err := h.allocations.GetStorageUnit(r.Context(), r.PathValue("code"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUnitResponse(unit))
}

func (h *HTTPHandler) ListStorageUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.allocations.ListStorageUnits(r.Context())
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	out := make([]unitResponse, 0, len(units))
	for i := range units {
		out = append(out, toUnitResponse(&units[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// --- allocations ---

type createAllocationRequest struct {
	StorageUnitID string `json:"storage_unit_id"`
	CargoTypeID   string `json:"cargo_type_id"`
	Quantity      int    `json:"quantity"`
	ActingUserID  string `json:"acting_user_id"`
}

type updateAllocationQuantityRequest struct {
	NewQuantity int `json:"new_quantity"`
}

type allocationResponse struct {
	ID            string    `json:"id"`
	StorageUnitID string    `json:"storage_unit_id"`
	CargoTypeID   string    `json:"cargo_type_id"`
	Quantity      int       `json:"quantity"`
	LastCheckedAt time.Time `json:"last_checked_at"`
	LastCheckedBy string    `json:"last_checked_by"`
	CreatedAt     time.Time `json:"created_at"`
}

func toAllocationResponse(a *domain.CargoAllocation) allocationResponse {
	return allocationResponse{
		ID:            a.ID,
		StorageUnitID: a.StorageUnitCode,
		CargoTypeID:   a.CargoTypeID,
		Quantity:      a.Quantity,
		LastCheckedAt: a.LastCheckedAt,
		LastCheckedBy: a.LastCheckedBy,
		CreatedAt:     a.CreatedAt,
	}
}

func (h *HTTPHandler) CreateAllocation(w http.ResponseWriter, r *http.Request) {
	var req createAllocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.StorageUnitID == "" || req.CargoTypeID == "" || req.ActingUserID == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	alloc, err := h.allocations.Create(r.Context(), service.CreateAllocationCommand{
		StorageUnitCode: req.StorageUnitID,
		CargoTypeID:     req.CargoTypeID,
		Quantity:        req.Quantity,
		ActingUserID:    req.ActingUserID,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAllocationResponse(alloc))
}

func (h *HTTPHandler) GetAllocation(w http.ResponseWriter, r *http.Request) {
	alloc, err := h.allocations.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAllocationResponse(alloc))
}

func (h *HTTPHandler) ListAllocations(w http.ResponseWriter, r *http.Request) {
	allocs, err := h.allocations.ListByUnit(r.Context(), r.PathValue("code"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	out := make([]allocationResponse, 0, len(allocs))
	for i := range allocs {
		out = append(out, toAllocationResponse(&allocs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) UpdateAllocationQuantity(w http.ResponseWriter, r *http.Request) {
	var req updateAllocationQuantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	alloc, err := h.allocations.UpdateQuantity(r.Context(), service.UpdateAllocationQuantityCommand{
		AllocationID: r.PathValue("id"),
		NewQuantity:  req.NewQuantity,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAllocationResponse(alloc))
}

func (h *HTTPHandler) DeleteAllocation(w http.ResponseWriter, r *http.Request) {
	if err := h.allocations.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- inventory transactions ---

type recordTransactionRequest struct {
	Kind              string    `json:"kind"`
	CargoID           string    `json:"cargo_id"`
	Quantity          int       `json:"quantity"`
	FromStorageUnitID string    `json:"from_storage_unit_id,omitempty"`
	ToStorageUnitID   string    `json:"to_storage_unit_id,omitempty"`
	FromSpacecraftID  string    `json:"from_spacecraft_id,omitempty"`
	ToSpacecraftID    string    `json:"to_spacecraft_id,omitempty"`
	PerformedByUserID string    `json:"performed_by_user_id"`
	Timestamp         time.Time `json:"timestamp,omitzero"`
	ReasonCode        string    `json:"reason_code,omitempty"`
	RequestID         string    `json:"request_id,omitempty"`
}

type updateReasonRequest struct {
	ReasonCode string `json:"reason_code"`
}

type transactionResponse struct {
	ID                string    `json:"id"`
	Kind              string    `json:"kind"`
	CargoID           string    `json:"cargo_id"`
	Quantity          int       `json:"quantity"`
	FromStorageUnitID string    `json:"from_storage_unit_id,omitempty"`
	ToStorageUnitID   string    `json:"to_storage_unit_id,omitempty"`
	FromSpacecraftID  string    `json:"from_spacecraft_id,omitempty"`
	ToSpacecraftID    string    `json:"to_spacecraft_id,omitempty"`
	PerformedBy       string    `json:"performed_by"`
	OccurredAt        time.Time `json:"occurred_at"`
	ReasonCode        string    `json:"reason_code,omitempty"`
}

func toTransactionResponse(t *domain.InventoryTransaction) transactionResponse {
	return transactionResponse{
		ID:                t.ID,
		Kind:              string(t.Kind),
		CargoID:           t.CargoID,
		Quantity:          t.Quantity,
		FromStorageUnitID: t.FromStorageUnitCode,
		ToStorageUnitID:   t.ToStorageUnitCode,
		FromSpacecraftID:  t.FromSpacecraftID,
		ToSpacecraftID:    t.ToSpacecraftID,
		PerformedBy:       t.PerformedBy,
		OccurredAt:        t.OccurredAt,
		ReasonCode:        t.ReasonCode,
	}
}

func (h *HTTPHandler) RecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req recordTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Kind == "" || req.CargoID == "" || req.PerformedByUserID == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	rec, err := h.transactions.Record(r.Context(), service.RecordTransactionCommand{
		Kind:                domain.TransactionKind(req.Kind),
		CargoID:             req.CargoID,
		Quantity:            req.Quantity,
		FromStorageUnitCode: req.FromStorageUnitID,
		ToStorageUnitCode:   req.ToStorageUnitID,
		FromSpacecraftID:    req.FromSpacecraftID,
		ToSpacecraftID:      req.ToSpacecraftID,
		PerformedByUserID:   req.PerformedByUserID,
		Timestamp:           req.Timestamp,
		ReasonCode:          req.ReasonCode,
		RequestID:           req.RequestID,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(rec))
}

func (h *HTTPHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	rec, err := h.transactions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(rec))
}

func (h *HTTPHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	recs, err := h.transactions.List(r.Context(), 100)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	out := make([]transactionResponse, 0, len(recs))
	for i := range recs {
		out = append(out, toTransactionResponse(&recs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) UpdateTransactionReason(w http.ResponseWriter, r *http.Request) {
	var req updateReasonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec, err := h.transactions.UpdateReason(r.Context(), r.PathValue("id"), req.ReasonCode)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(rec))
}

// --- manifests ---

type createManifestRequest struct {
	SpacecraftID     string `json:"spacecraft_id"`
	CargoID          string `json:"cargo_id"`
	StorageUnitID    string `json:"storage_unit_id"`
	Quantity         int    `json:"quantity"`
	LoadedByUserID   string `json:"loaded_by_user_id"`
	UnloadedByUserID string `json:"unloaded_by_user_id,omitempty"`
	Status           string `json:"status,omitempty"`
	Priority         string `json:"priority,omitempty"`
}

type updateManifestRequest struct {
	SpacecraftID     *string    `json:"spacecraft_id"`
	CargoID          *string    `json:"cargo_id"`
	StorageUnitID    *string    `json:"storage_unit_id"`
	Quantity         *int       `json:"quantity"`
	LoadedAt         *time.Time `json:"loaded_at"`
	UnloadedAt       *time.Time `json:"unloaded_at"`
	LoadedByUserID   *string    `json:"loaded_by_user_id"`
	UnloadedByUserID *string    `json:"unloaded_by_user_id"`
	Status           *string    `json:"status"`
	Priority         *string    `json:"priority"`
}

type manifestResponse struct {
	ID            string    `json:"id"`
	SpacecraftID  string    `json:"spacecraft_id"`
	CargoID       string    `json:"cargo_id"`
	StorageUnitID string    `json:"storage_unit_id"`
	Quantity      int       `json:"quantity"`
	LoadedAt      time.Time `json:"loaded_at,omitzero"`
	UnloadedAt    time.Time `json:"unloaded_at,omitzero"`
	LoadedBy      string    `json:"loaded_by"`
	UnloadedBy    string    `json:"unloaded_by,omitempty"`
	Status        string    `json:"status"`
	Priority      string    `json:"priority"`
}

func toManifestResponse(m *domain.CargoManifest) manifestResponse {
	return manifestResponse{
		ID:            m.ID,
		SpacecraftID:  m.SpacecraftID,
		CargoID:       m.CargoID,
		StorageUnitID: m.StorageUnitCode,
		Quantity:      m.Quantity,
		LoadedAt:      m.LoadedAt,
		UnloadedAt:    m.UnloadedAt,
		LoadedBy:      m.LoadedBy,
		UnloadedBy:    m.UnloadedBy,
		Status:        string(m.Status),
		Priority:      string(m.Priority),
	}
}

func (h *HTTPHandler) CreateManifest(w http.ResponseWriter, r *http.Request) {
	var req createManifestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SpacecraftID == "" || req.CargoID == "" || req.StorageUnitID == "" || req.LoadedByUserID == "" {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}

	m, err := h.manifests.Create(r.Context(), service.CreateManifestCommand{
		SpacecraftID:     req.SpacecraftID,
		CargoID:          req.CargoID,
		StorageUnitCode:  req.StorageUnitID,
		Quantity:         req.Quantity,
		LoadedByUserID:   req.LoadedByUserID,
		UnloadedByUserID: req.UnloadedByUserID,
		Status:           domain.ManifestStatus(req.Status),
		Priority:         domain.ManifestPriority(req.Priority),
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toManifestResponse(m))
}

func (h *HTTPHandler) GetManifest(w http.ResponseWriter, r *http.Request) {
	m, err := h.manifests.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toManifestResponse(m))
}

func (h *HTTPHandler) UpdateManifest(w http.ResponseWriter, r *http.Request) {
	var req updateManifestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cmd := service.UpdateManifestCommand{
		ID:               r.PathValue("id"),
		SpacecraftID:     req.SpacecraftID,
		CargoID:          req.CargoID,
		StorageUnitCode:  req.StorageUnitID,
		Quantity:         req.Quantity,
		LoadedAt:         req.LoadedAt,
		UnloadedAt:       req.UnloadedAt,
		LoadedByUserID:   req.LoadedByUserID,
		UnloadedByUserID: req.UnloadedByUserID,
	}
	if req.Status != nil {
		status := domain.ManifestStatus(*req.Status)
		cmd.Status = &status
	}
	if req.Priority != nil {
		priority := domain.ManifestPriority(*req.Priority)
		cmd.Priority = &priority
	}

	m, err := h.manifests.Update(r.Context(), cmd)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toManifestResponse(m))
}

func (h *HTTPHandler) ListManifestsBySpacecraft(w http.ResponseWriter, r *http.Request) {
	manifests, err := h.manifests.ListBySpacecraft(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	out := make([]manifestResponse, 0, len(manifests))
	for i := range manifests {
		out = append(out, toManifestResponse(&manifests[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// --- error mapping ---

// writeServiceError translates the core error taxonomy to HTTP statuses.
// Validation-unavailable is 503 and never collapsed into 404/422: the caller
// must be able to tell "does not exist" from "could not check".
func (h *HTTPHandler) writeServiceError(w http.ResponseWriter, err error) {
	var refNotFound *domain.ReferenceNotFoundError
	var unavailable *domain.ValidationUnavailableError
	var insufficient *domain.InsufficientCapacityError

	switch {
	case errors.As(err, &refNotFound):
		writeError(w, http.StatusUnprocessableEntity, refNotFound.Error())
	case errors.As(err, &unavailable):
		writeError(w, http.StatusServiceUnavailable, unavailable.Error())
	case errors.As(err, &insufficient):
		writeError(w, http.StatusConflict, insufficient.Error())
	case errors.Is(err, domain.ErrStorageUnitNotFound),
		errors.Is(err, domain.ErrAllocationNotFound),
		errors.Is(err, domain.ErrTransactionNotFound),
		errors.Is(err, domain.ErrManifestNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrDuplicateRequest):
		writeError(w, http.StatusConflict, "duplicate request")
	case errors.Is(err, domain.ErrConcurrentModification):
		writeError(w, http.StatusConflict, "concurrent modification, retry the request")
	case errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidCapacity),
		errors.Is(err, service.ErrInvalidTransactionKind),
		errors.Is(err, service.ErrInvalidManifestStatus),
		errors.Is(err, service.ErrInvalidManifestPriority):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
