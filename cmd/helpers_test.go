package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ziadkadry99/ocrstudio/internal/config"
	"github.com/ziadkadry99/ocrstudio/internal/pipeline"
	"github.com/ziadkadry99/ocrstudio/internal/prompt"
)

func TestResultPath(t *testing.T) {
	tests := []struct {
		rel  string
		want string
	}{
		{"waybill.png", filepath.Join("out", "waybill.json")},
		{"scans/2024/invoice.pdf", filepath.Join("out", "scans", "2024", "invoice.json")},
		{"noext", filepath.Join("out", "noext.json")},
	}
	for _, tt := range tests {
		if got := resultPath("out", tt.rel); got != tt.want {
			t.Errorf("resultPath(%q) = %q, want %q", tt.rel, got, tt.want)
		}
	}
}

func TestWriteResult(t *testing.T) {
	dir := t.TempDir()
	if err := writeResult(dir, "a/b.png", map[string]string{"status": "success"}); err != nil {
		t.Fatalf("writeResult: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "a", "b.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"status": "success"`) {
		t.Errorf("unexpected file content: %s", data)
	}
}

func TestReadInput(t *testing.T) {
	got, err := readInput("-", strings.NewReader(`{"a":1}`))
	if err != nil || string(got) != `{"a":1}` {
		t.Errorf("readInput(stdin) = %q, %v", got, err)
	}

	path := filepath.Join(t.TempDir(), "doc.json")
	if err := os.WriteFile(path, []byte(`{"b":2}`), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = readInput(path, nil)
	if err != nil || string(got) != `{"b":2}` {
		t.Errorf("readInput(file) = %q, %v", got, err)
	}

	if _, err := readInput(filepath.Join(t.TempDir(), "missing.json"), nil); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyPromptDefaults(t *testing.T) {
	svc := pipeline.NewService(nil, nil, nil, nil)
	cfg := config.DefaultConfig()

	applyPromptDefaults(svc, cfg)
	if svc.SandboxPrompt != prompt.DefaultSandbox || svc.ProcessPrompt != prompt.DefaultProcess {
		t.Error("empty default_prompt should keep built-in prompts")
	}

	cfg.DefaultPrompt = "Read the consignment note."
	applyPromptDefaults(svc, cfg)
	if svc.SandboxPrompt != cfg.DefaultPrompt || svc.ProcessPrompt != cfg.DefaultPrompt {
		t.Errorf("prompts not overridden: %q / %q", svc.SandboxPrompt, svc.ProcessPrompt)
	}
}
