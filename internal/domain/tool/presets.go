package tool

// DefaultCatalog returns the built-in reference catalog used when no
// catalog file is configured. Embedding services normally supply their own
// catalog; this one exists so the binary can run standalone and so tests
// have realistic tool definitions.
func DefaultCatalog() *Catalog {
	c, err := NewCatalog([]Tool{
		{
			Name:        "search_catalog",
			Description: "Full-text search over the tenant's product catalog.",
			TrustTier:   TierT1,
		},
		{
			Name:        "get_order_status",
			Description: "Look up the status of an order by id.",
			TrustTier:   TierT1,
			InputSchema: map[string]any{"required": []any{"order_id"}},
		},
		{
			Name:        "update_profile",
			Description: "Update a customer profile field.",
			TrustTier:   TierT2,
			InputSchema: map[string]any{"required": []any{"customer_id", "field", "value"}},
		},
		{
			Name:        "upsert_segment",
			Description: "Create or replace a marketing segment definition.",
			TrustTier:   TierT3,
			InputSchema: map[string]any{"required": []any{"segment_id", "rules"}},
		},
		{
			Name:        "delete_package",
			Description: "Delete a service package and all of its line items.",
			TrustTier:   TierT3,
			InputSchema: map[string]any{"required": []any{"package_id"}},
		},
	})
	if err != nil {
		// The preset list is maintained in this file; a validation failure
		// here is a programming error.
		panic(err)
	}
	return c
}
