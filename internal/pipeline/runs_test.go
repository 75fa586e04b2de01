package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/ziadkadry99/ocrstudio/internal/extract"
)

func TestRunStoreRecordAndList(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	runs := []*Run{
		{ModuleCode: "FREIGHT", SourceName: "a.png", Status: extract.StatusSuccess, CreatedAt: base},
		{ModuleCode: "FREIGHT", SourceName: "b.png", Status: extract.StatusWarning, MissingFields: []string{"weight"}, CreatedAt: base.Add(time.Minute)},
		{ModuleCode: "CUSTOMS", SourceName: "c.png", Status: StatusError, Error: "boom", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, run := range runs {
		if err := f.runs.Record(ctx, run); err != nil {
			t.Fatalf("Record: %v", err)
		}
		if run.ID == "" {
			t.Error("expected generated ID")
		}
	}

	all, err := f.runs.List(ctx, RunFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 || all[0].SourceName != "c.png" || all[2].SourceName != "a.png" {
		t.Fatalf("expected newest first, got %+v", all)
	}
	if !all[2].CreatedAt.Equal(base) {
		t.Errorf("CreatedAt = %v, want %v", all[2].CreatedAt, base)
	}
	if all[0].ConfigID != "" || all[0].Error != "boom" {
		t.Errorf("error run = %+v", all[0])
	}

	freight, _ := f.runs.List(ctx, RunFilter{Module: "FREIGHT"})
	if len(freight) != 2 {
		t.Errorf("module filter: got %d", len(freight))
	}
	warned, _ := f.runs.List(ctx, RunFilter{Status: extract.StatusWarning})
	if len(warned) != 1 || len(warned[0].MissingFields) != 1 || warned[0].MissingFields[0] != "weight" {
		t.Errorf("status filter: %+v", warned)
	}
	limited, _ := f.runs.List(ctx, RunFilter{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("limit: got %d", len(limited))
	}
}

func TestRunStoreEmpty(t *testing.T) {
	f := setup(t)
	runs, err := f.runs.List(context.Background(), RunFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if runs == nil || len(runs) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", runs)
	}
}
