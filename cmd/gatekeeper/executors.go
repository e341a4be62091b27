package main

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/Strob0t/Gatekeeper/internal/domain"
	"github.com/Strob0t/Gatekeeper/internal/executor"
)

// registerExecutors wires the reference executors for the built-in catalog.
// Embedding services replace these with real backends; each executor
// validates its payload before touching anything.
func registerExecutors(r *executor.Registry) {
	r.Register("search_catalog", searchCatalog)
	r.Register("get_order_status", getOrderStatus)
	r.Register("update_profile", updateProfile)
	r.Register("upsert_segment", upsertSegment)
	r.Register("delete_package", deletePackage)
}

func searchCatalog(_ context.Context, tenantID string, payload json.RawMessage) (json.RawMessage, error) {
	var req struct {
		Query string `json:"query"`
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, domain.Validationf("search_catalog: invalid payload")
		}
	}
	slog.Info("search_catalog", "tenant_id", tenantID, "query", req.Query)
	return json.Marshal(map[string]any{"query": req.Query, "results": []any{}})
}

func getOrderStatus(_ context.Context, tenantID string, payload json.RawMessage) (json.RawMessage, error) {
	var req struct {
		OrderID string `json:"order_id"`
	}
	if err := json.Unmarshal(payload, &req); err != nil || req.OrderID == "" {
		return nil, domain.Validationf("get_order_status: order_id is required")
	}
	slog.Info("get_order_status", "tenant_id", tenantID, "order_id", req.OrderID)
	return json.Marshal(map[string]any{"order_id": req.OrderID, "status": "processing"})
}

func updateProfile(_ context.Context, tenantID string, payload json.RawMessage) (json.RawMessage, error) {
	var req struct {
		CustomerID string `json:"customer_id"`
		Field      string `json:"field"`
		Value      string `json:"value"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, domain.Validationf("update_profile: invalid payload")
	}
	if req.CustomerID == "" || req.Field == "" {
		return nil, domain.Validationf("update_profile: customer_id and field are required")
	}
	slog.Info("update_profile", "tenant_id", tenantID, "customer_id", req.CustomerID, "field", req.Field)
	return json.Marshal(map[string]any{"customer_id": req.CustomerID, "updated": req.Field})
}

func upsertSegment(_ context.Context, tenantID string, payload json.RawMessage) (json.RawMessage, error) {
	var req struct {
		SegmentID string          `json:"segment_id"`
		Rules     json.RawMessage `json:"rules"`
	}
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, domain.Validationf("upsert_segment: invalid payload")
	}
	if req.SegmentID == "" || len(req.Rules) == 0 {
		return nil, domain.Validationf("upsert_segment: segment_id and rules are required")
	}
	slog.Info("upsert_segment", "tenant_id", tenantID, "segment_id", req.SegmentID)
	return json.Marshal(map[string]any{"segment_id": req.SegmentID, "status": "upserted"})
}

func deletePackage(_ context.Context, tenantID string, payload json.RawMessage) (json.RawMessage, error) {
	var req struct {
		PackageID string `json:"package_id"`
	}
	if err := json.Unmarshal(payload, &req); err != nil || req.PackageID == "" {
		return nil, domain.Validationf("delete_package: package_id is required")
	}
	slog.Info("delete_package", "tenant_id", tenantID, "package_id", req.PackageID)
	return json.Marshal(map[string]any{"package_id": req.PackageID, "status": "deleted"})
}
