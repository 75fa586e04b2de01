package ocrconfig

import (
	"context"
	"errors"
	"testing"

	"github.com/ziadkadry99/ocrstudio/internal/audit"
	"github.com/ziadkadry99/ocrstudio/internal/db"
)

func setupStore(t *testing.T) (*Store, *audit.Store) {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	auditStore := audit.NewStore(database)
	return NewStore(database, auditStore), auditStore
}

func strPtr(s string) *string { return &s }

func TestUpsertCreateAndGet(t *testing.T) {
	store, auditStore := setupStore(t)
	ctx := context.Background()

	saved, err := store.Upsert(ctx, UpsertInput{
		Key:       Key{Module: "FREIGHT", Consignor: "ACME"},
		Prompt:    strPtr("Extract ACME shipment details"),
		Mappings:  Mappings{{FieldID: "sender_name", JSONPath: "$.sender.name", Mandatory: true}},
		UpdatedBy: "admin@ocrconfig.com",
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if saved.ID == "" {
		t.Fatal("expected generated ID")
	}
	if saved.Level != LevelConsignor {
		t.Errorf("Level = %q, want consignor", saved.Level)
	}
	if saved.TransporterCode != "" {
		t.Errorf("TransporterCode = %q, want empty", saved.TransporterCode)
	}
	if saved.CreatedBy != "admin@ocrconfig.com" || saved.UpdatedBy != "admin@ocrconfig.com" {
		t.Errorf("CreatedBy/UpdatedBy = %q/%q", saved.CreatedBy, saved.UpdatedBy)
	}
	if !saved.IsActive {
		t.Error("expected new configuration to be active")
	}
	if len(saved.Mappings) != 1 || saved.Mappings[0].JSONPath != "$.sender.name" {
		t.Errorf("Mappings = %+v", saved.Mappings)
	}

	entries, err := auditStore.Query(ctx, audit.QueryFilter{ConfigID: saved.ID})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != audit.ActionConfigCreated {
		t.Errorf("audit entries = %+v, want one config_created", entries)
	}
}

func TestUpsertUpdatesInPlace(t *testing.T) {
	store, auditStore := setupStore(t)
	ctx := context.Background()
	key := Key{Module: "FREIGHT"}

	first, err := store.Upsert(ctx, UpsertInput{
		Key:       key,
		Prompt:    strPtr("v1"),
		Mappings:  Mappings{{FieldID: "weight", JSONPath: "$.weight", Mandatory: true}},
		UpdatedBy: "alice",
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	second, err := store.Upsert(ctx, UpsertInput{
		Key:       key,
		Prompt:    strPtr("v2"),
		Mappings:  Mappings{{FieldID: "weight", JSONPath: "$.package.weight_kg", Mandatory: false}},
		UpdatedBy: "bob",
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if second.ID != first.ID {
		t.Errorf("ID changed from %q to %q", first.ID, second.ID)
	}
	if second.CreatedBy != "alice" {
		t.Errorf("CreatedBy = %q, want alice", second.CreatedBy)
	}
	if second.UpdatedBy != "bob" {
		t.Errorf("UpdatedBy = %q, want bob", second.UpdatedBy)
	}
	if !second.CreatedAt.Equal(first.CreatedAt) {
		t.Errorf("CreatedAt changed from %v to %v", first.CreatedAt, second.CreatedAt)
	}
	if second.Prompt != "v2" {
		t.Errorf("Prompt = %q, want v2", second.Prompt)
	}

	all, err := store.List(ctx, ListFilter{IncludeInactive: true})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected a single row, got %d", len(all))
	}

	actions := map[audit.Action]int{}
	entries, _ := auditStore.Query(ctx, audit.QueryFilter{ConfigID: first.ID})
	for _, e := range entries {
		actions[e.Action]++
	}
	for _, want := range []audit.Action{audit.ActionConfigCreated, audit.ActionPromptUpdated, audit.ActionMappingChanged, audit.ActionMandatoryChanged} {
		if actions[want] != 1 {
			t.Errorf("expected one %s entry, got %d (%v)", want, actions[want], actions)
		}
	}
}

func TestUpsertKeepsUnsetValues(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()
	key := Key{Module: "FREIGHT"}

	if _, err := store.Upsert(ctx, UpsertInput{
		Key:      key,
		Prompt:   strPtr("keep me"),
		Mappings: Mappings{{FieldID: "a", JSONPath: "$.a"}},
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	got, err := store.Upsert(ctx, UpsertInput{Key: key, UpdatedBy: "bob"})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if got.Prompt != "keep me" {
		t.Errorf("Prompt = %q, want unchanged", got.Prompt)
	}
	if len(got.Mappings) != 1 {
		t.Errorf("Mappings = %+v, want unchanged", got.Mappings)
	}
}

func TestUpsertRequiresModule(t *testing.T) {
	store, _ := setupStore(t)
	_, err := store.Upsert(context.Background(), UpsertInput{Key: Key{Consignor: "ACME"}})
	if !errors.Is(err, ErrModuleRequired) {
		t.Errorf("Upsert error = %v, want ErrModuleRequired", err)
	}
}

func TestDeactivateAndReactivate(t *testing.T) {
	store, auditStore := setupStore(t)
	ctx := context.Background()
	key := Key{Module: "FREIGHT", Consignor: "ACME"}

	created, err := store.Upsert(ctx, UpsertInput{Key: key, Prompt: strPtr("p")})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if err := store.Deactivate(ctx, key, "alice"); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}

	if _, err := store.FindActive(ctx, key); !errors.Is(err, ErrNotFound) {
		t.Errorf("FindActive after deactivate = %v, want ErrNotFound", err)
	}
	active, _ := store.List(ctx, ListFilter{})
	if len(active) != 0 {
		t.Errorf("List() = %d rows, want 0", len(active))
	}
	all, _ := store.List(ctx, ListFilter{IncludeInactive: true})
	if len(all) != 1 || all[0].IsActive {
		t.Errorf("List(include inactive) = %+v", all)
	}

	if err := store.Deactivate(ctx, key, "alice"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Deactivate = %v, want ErrNotFound", err)
	}

	again, err := store.Upsert(ctx, UpsertInput{Key: key, UpdatedBy: "bob"})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if again.ID != created.ID || !again.IsActive {
		t.Errorf("reactivated row = %+v, want same ID and active", again)
	}

	entries, _ := auditStore.Query(ctx, audit.QueryFilter{Action: audit.ActionConfigDeactivated})
	if len(entries) != 1 {
		t.Errorf("expected one deactivation entry, got %d", len(entries))
	}
}

func TestListFiltersAndOrder(t *testing.T) {
	store, _ := setupStore(t)
	ctx := context.Background()

	keys := []Key{
		{Module: "FREIGHT"},
		{Module: "FREIGHT", Consignor: "ACME"},
		{Module: "FREIGHT", Consignor: "ACME", Transporter: "FASTSHIP"},
		{Module: "CUSTOMS"},
	}
	for _, k := range keys {
		if _, err := store.Upsert(ctx, UpsertInput{Key: k}); err != nil {
			t.Fatalf("Upsert(%v): %v", k, err)
		}
	}

	all, err := store.List(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 4 {
		t.Fatalf("List() = %d rows, want 4", len(all))
	}
	if all[0].ModuleCode != "CUSTOMS" {
		t.Errorf("expected most recent first, got %s", all[0].Key())
	}

	freight, _ := store.List(ctx, ListFilter{Module: "FREIGHT"})
	if len(freight) != 3 {
		t.Errorf("List(FREIGHT) = %d rows, want 3", len(freight))
	}
	acme, _ := store.List(ctx, ListFilter{Consignor: "ACME"})
	if len(acme) != 2 {
		t.Errorf("List(ACME) = %d rows, want 2", len(acme))
	}
	fast, _ := store.List(ctx, ListFilter{Transporter: "FASTSHIP"})
	if len(fast) != 1 || fast[0].Level != LevelTransporter {
		t.Errorf("List(FASTSHIP) = %+v", fast)
	}
}

func TestGetNotFound(t *testing.T) {
	store, _ := setupStore(t)
	if _, err := store.Get(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get = %v, want ErrNotFound", err)
	}
}

func TestClone(t *testing.T) {
	store, auditStore := setupStore(t)
	ctx := context.Background()
	source := Key{Module: "FREIGHT", Consignor: "ACME"}

	if _, err := store.Upsert(ctx, UpsertInput{
		Key:      source,
		Prompt:   strPtr("Extract ACME details"),
		Mappings: Mappings{{FieldID: "hazmat_code", JSONPath: "$.package.hazmat_classification"}},
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	targets := []Key{source, {Module: "FREIGHT", Consignor: "GLOBEX"}}
	cloned, err := store.Clone(ctx, source, targets, "admin")
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	if len(cloned) != 1 {
		t.Fatalf("expected source to be skipped, got %d clones", len(cloned))
	}

	globex, err := store.FindActive(ctx, Key{Module: "FREIGHT", Consignor: "GLOBEX"})
	if err != nil {
		t.Fatalf("FindActive: %v", err)
	}
	if globex.Prompt != "Extract ACME details" || len(globex.Mappings) != 1 {
		t.Errorf("clone = %+v", globex)
	}

	entries, _ := auditStore.Query(ctx, audit.QueryFilter{Action: audit.ActionConfigCloned})
	if len(entries) != 1 || entries[0].PreviousValue != "Cloned from: FREIGHT > ACME" {
		t.Errorf("clone audit entries = %+v", entries)
	}

	if _, err := store.Clone(ctx, Key{Module: "NOPE"}, targets, "admin"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Clone from missing source = %v, want ErrNotFound", err)
	}
}

func TestStoreWithoutAudit(t *testing.T) {
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	defer database.Close()

	store := NewStore(database, nil)
	if _, err := store.Upsert(context.Background(), UpsertInput{Key: Key{Module: "M"}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
}
