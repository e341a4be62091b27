package tool

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestResolveMode(t *testing.T) {
	tests := []struct {
		tier    TrustTier
		want    ExecutionMode
		wantErr bool
	}{
		{TierT1, ModeAuto, false},
		{TierT2, ModeSoftConfirm, false},
		{TierT3, ModeHardConfirm, false},
		{"", "", true},
		{"T4", "", true},
		{"t1", "", true},
	}

	for _, tt := range tests {
		got, err := ResolveMode(tt.tier)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ResolveMode(%q): expected error", tt.tier)
			}
			continue
		}
		if err != nil {
			t.Errorf("ResolveMode(%q): %v", tt.tier, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ResolveMode(%q) = %q, want %q", tt.tier, got, tt.want)
		}
	}
}

func TestNewCatalogRejectsMissingTier(t *testing.T) {
	_, err := NewCatalog([]Tool{{Name: "no_tier"}})
	if err == nil {
		t.Fatal("expected error for tool without trust tier")
	}
}

func TestNewCatalogRejectsInvalidTier(t *testing.T) {
	_, err := NewCatalog([]Tool{{Name: "bad", TrustTier: "T9"}})
	if err == nil {
		t.Fatal("expected error for invalid trust tier")
	}
}

func TestNewCatalogRejectsDuplicates(t *testing.T) {
	_, err := NewCatalog([]Tool{
		{Name: "dup", TrustTier: TierT1},
		{Name: "dup", TrustTier: TierT2},
	})
	if err == nil {
		t.Fatal("expected error for duplicate tool name")
	}
}

func TestWriteToolsReturnsMutatingTiers(t *testing.T) {
	c, err := NewCatalog([]Tool{
		{Name: "read_a", TrustTier: TierT1},
		{Name: "write_b", TrustTier: TierT2},
		{Name: "write_a", TrustTier: TierT3},
	})
	if err != nil {
		t.Fatal(err)
	}

	got := c.WriteTools()
	want := []string{"write_a", "write_b"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("WriteTools() = %v, want %v", got, want)
	}
}

func TestDefaultCatalogIsValid(t *testing.T) {
	c := DefaultCatalog()
	if c.Len() == 0 {
		t.Fatal("default catalog is empty")
	}
	for _, name := range c.Names() {
		tl, ok := c.Get(name)
		if !ok {
			t.Fatalf("Names listed %q but Get missed", name)
		}
		if _, err := ResolveMode(tl.TrustTier); err != nil {
			t.Errorf("tool %q: %v", name, err)
		}
	}
}

func TestLoadCatalogMissingFileIsError(t *testing.T) {
	_, err := LoadCatalog(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing catalog file")
	}
}

func TestLoadCatalogFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	data := []byte(`tools:
  - name: lookup_invoice
    description: Look up an invoice.
    trust_tier: T1
  - name: cancel_invoice
    trust_tier: T3
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := LoadCatalog(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != 2 {
		t.Fatalf("expected 2 tools, got %d", c.Len())
	}

	tl, ok := c.Get("cancel_invoice")
	if !ok {
		t.Fatal("cancel_invoice missing")
	}
	if tl.TrustTier != TierT3 {
		t.Errorf("trust_tier = %q, want T3", tl.TrustTier)
	}
}

func TestLoadCatalogRejectsUntieredTool(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	data := []byte(`tools:
  - name: mystery_tool
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadCatalog(path); err == nil {
		t.Fatal("expected error for tool without trust tier")
	}
}
