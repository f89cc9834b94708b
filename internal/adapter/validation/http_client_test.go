package validation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/orbitek/cargo-storage/internal/core/domain"
	"github.com/orbitek/cargo-storage/internal/port"
)

func lookupServer(t *testing.T, handler http.HandlerFunc) string {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv.URL + "/api/v1/items/%s"
}

func TestHTTPValidator_Confirmed(t *testing.T) {
	var gotPath string
	url := lookupServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	})
	v := NewHTTPValidator(domain.KindUser, url, time.Second)

	existence, err := v.Exists(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if existence != port.ExistenceConfirmed {
		t.Errorf("expected confirmed, got %v", existence)
	}
	if gotPath != "/api/v1/items/user-1" {
		t.Errorf("unexpected lookup path %q", gotPath)
	}
}

func TestHTTPValidator_Missing(t *testing.T) {
	url := lookupServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	v := NewHTTPValidator(domain.KindSpacecraft, url, time.Second)

	existence, err := v.Exists(context.Background(), "ship-9")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if existence != port.ExistenceMissing {
		t.Errorf("expected missing, got %v", existence)
	}
}

func TestHTTPValidator_ServerErrorIsUnknown(t *testing.T) {
	url := lookupServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	v := NewHTTPValidator(domain.KindUser, url, time.Second)

	existence, err := v.Exists(context.Background(), "user-1")
	if err == nil {
		t.Fatal("expected error for 500 answer")
	}
	if existence != port.ExistenceUnknown {
		t.Errorf("a 5xx must be indeterminate, got %v", existence)
	}
}

func TestHTTPValidator_TimeoutIsUnknown(t *testing.T) {
	url := lookupServer(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	})
	v := NewHTTPValidator(domain.KindUser, url, 20*time.Millisecond)

	existence, err := v.Exists(context.Background(), "user-1")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if existence != port.ExistenceUnknown {
		t.Errorf("a timeout must be indeterminate, got %v", existence)
	}
}

func TestHTTPValidator_EscapesID(t *testing.T) {
	var gotPath string
	url := lookupServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusOK)
	})
	v := NewHTTPValidator(domain.KindUser, url, time.Second)

	if _, err := v.Exists(context.Background(), "a/b c"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(gotPath, "/a%2Fb%20c") {
		t.Errorf("id not escaped in path: %q", gotPath)
	}
}

func TestCargoClient_GetCargoType(t *testing.T) {
	url := lookupServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"crate","name":"Supply Crate","mass_per_unit":10,"volume_per_unit":0.5}`))
	})
	c := NewCargoClient(url, time.Second)

	ct, err := c.GetCargoType(context.Background(), "crate")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ct.MassPerUnit != 10 || ct.VolumePerUnit != 0.5 {
		t.Errorf("wrong factors: %+v", ct)
	}

	existence, err := c.Exists(context.Background(), "crate")
	if err != nil || existence != port.ExistenceConfirmed {
		t.Errorf("expected confirmed, got %v, %v", existence, err)
	}
}

func TestCargoClient_NotFound(t *testing.T) {
	url := lookupServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	c := NewCargoClient(url, time.Second)

	ct, err := c.GetCargoType(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("a definite 404 is not an error: %v", err)
	}
	if ct != nil {
		t.Errorf("expected nil cargo type, got %+v", ct)
	}
}

func TestCargoClient_MalformedBody(t *testing.T) {
	url := lookupServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":`))
	})
	c := NewCargoClient(url, time.Second)

	if _, err := c.GetCargoType(context.Background(), "crate"); err == nil {
		t.Error("expected error for malformed body")
	}

	existence, err := c.Exists(context.Background(), "crate")
	if err == nil || existence != port.ExistenceUnknown {
		t.Errorf("malformed answer must be indeterminate, got %v, %v", existence, err)
	}
}

func TestCargoClient_NonPositiveFactors(t *testing.T) {
	url := lookupServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"id":"crate","name":"Crate","mass_per_unit":0,"volume_per_unit":0.5}`))
	})
	c := NewCargoClient(url, time.Second)

	if _, err := c.GetCargoType(context.Background(), "crate"); err == nil {
		t.Error("expected error for non-positive mass factor")
	}
}

// unitStore is a minimal StorageUnitRepository for the local validator.
type unitStore struct {
	units map[string]domain.StorageUnit
	err   error
}

func (s *unitStore) CreateStorageUnit(context.Context, domain.StorageUnit) error { return nil }

func (s *unitStore) GetStorageUnit(_ context.Context, code string) (*domain.StorageUnit, error) {
	if s.err != nil {
		return nil, s.err
	}
	unit, ok := s.units[code]
	if !ok {
		return nil, nil
	}
	return &unit, nil
}

func (s *unitStore) ListStorageUnits(context.Context) ([]domain.StorageUnit, error) {
	return nil, nil
}

func TestLocalUnitValidator(t *testing.T) {
	store := &unitStore{units: map[string]domain.StorageUnit{
		"bay-1": {Code: "bay-1", MassCapacity: 100, VolumeCapacity: 10},
	}}
	v := NewLocalUnitValidator(store)
	ctx := context.Background()

	if existence, err := v.Exists(ctx, "bay-1"); err != nil || existence != port.ExistenceConfirmed {
		t.Errorf("expected confirmed, got %v, %v", existence, err)
	}
	if existence, err := v.Exists(ctx, "bay-9"); err != nil || existence != port.ExistenceMissing {
		t.Errorf("expected missing, got %v, %v", existence, err)
	}

	store.err = errors.New("connection lost")
	if existence, err := v.Exists(ctx, "bay-1"); err == nil || existence != port.ExistenceUnknown {
		t.Errorf("repository failure must be indeterminate, got %v, %v", existence, err)
	}
}
