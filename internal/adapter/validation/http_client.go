package validation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/orbitek/cargo-storage/internal/core/domain"
	"github.com/orbitek/cargo-storage/internal/port"
)

// HTTPValidator asks a remote owning service whether an entity id exists via
// a GET on its lookup endpoint. Only a definite answer from the authority is
// trusted: 2xx confirms, 404 denies, anything else - transport errors,
// timeouts, 5xx - is indeterminate and never read as "exists".
type HTTPValidator struct {
	kind      domain.EntityKind
	lookupURL string // printf pattern with one %s for the escaped id
	client    *http.Client
}

func NewHTTPValidator(kind domain.EntityKind, lookupURL string, timeout time.Duration) *HTTPValidator {
	return &HTTPValidator{
		kind:      kind,
		lookupURL: lookupURL,
		client:    &http.Client{Timeout: timeout},
	}
}

func (v *HTTPValidator) Exists(ctx context.Context, id string) (port.Existence, error) {
	status, _, err := v.lookup(ctx, id)
	if err != nil {
		return port.ExistenceUnknown, err
	}
	switch {
	case status >= 200 && status < 300:
		return port.ExistenceConfirmed, nil
	case status == http.StatusNotFound:
		return port.ExistenceMissing, nil
	default:
		return port.ExistenceUnknown, fmt.Errorf("%s service answered status %d", v.kind, status)
	}
}

func (v *HTTPValidator) lookup(ctx context.Context, id string) (int, []byte, error) {
	target := fmt.Sprintf(v.lookupURL, url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s service unreachable: %w", v.kind, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, nil, fmt.Errorf("read %s response: %w", v.kind, err)
	}
	return resp.StatusCode, body, nil
}

// CargoClient is the cargo-service port: existence checks plus the summary
// fetch the allocator needs for per-unit mass/volume factors.
type CargoClient struct {
	inner *HTTPValidator
}

func NewCargoClient(lookupURL string, timeout time.Duration) *CargoClient {
	return &CargoClient{inner: NewHTTPValidator(domain.KindCargo, lookupURL, timeout)}
}

func (c *CargoClient) Exists(ctx context.Context, id string) (port.Existence, error) {
	ct, err := c.GetCargoType(ctx, id)
	if err != nil {
		return port.ExistenceUnknown, err
	}
	if ct == nil {
		return port.ExistenceMissing, nil
	}
	return port.ExistenceConfirmed, nil
}

type cargoTypeResponse struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	MassPerUnit   float64 `json:"mass_per_unit"`
	VolumePerUnit float64 `json:"volume_per_unit"`
}

// GetCargoType returns (nil, nil) when the cargo service confirms the type
// does not exist. A malformed summary counts as an indeterminate answer, not
// as a confirmed entity.
func (c *CargoClient) GetCargoType(ctx context.Context, id string) (*domain.CargoType, error) {
	status, body, err := c.inner.lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	switch {
	case status == http.StatusNotFound:
		return nil, nil
	case status < 200 || status >= 300:
		return nil, fmt.Errorf("cargo service answered status %d", status)
	}

	var resp cargoTypeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("malformed cargo type response: %w", err)
	}
	if resp.MassPerUnit <= 0 || resp.VolumePerUnit <= 0 {
		return nil, fmt.Errorf("cargo type %s has non-positive per-unit factors", id)
	}

	return &domain.CargoType{
		ID:            resp.ID,
		Name:          resp.Name,
		MassPerUnit:   resp.MassPerUnit,
		VolumePerUnit: resp.VolumePerUnit,
	}, nil
}
