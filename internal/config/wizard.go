package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard, saves the result to
// path and returns it.
func RunWizard(path string) (*Config, error) {
	fmt.Println("Welcome to ocrstudio! Let's configure your extraction console.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Provider selection.
	providerPrompt := promptui.Select{
		Label: "Select vision model provider",
		Items: []string{"openai", "openrouter", "google", "anthropic", "ollama"},
	}
	_, providerStr, err := providerPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("provider selection: %w", err)
	}
	cfg.Provider = ProviderType(providerStr)

	// 2. Quality tier.
	tiers := []QualityTier{QualityLite, QualityNormal, QualityMax}
	items := make([]string, len(tiers))
	for i, tier := range tiers {
		items[i] = fmt.Sprintf("%-6s (%s)", tier, ModelFor(cfg.Provider, tier))
	}
	qualityPrompt := promptui.Select{
		Label: "Select quality tier",
		Items: items,
		Size:  len(items),
	}
	qualityIdx, _, err := qualityPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("quality selection: %w", err)
	}
	cfg.Quality = tiers[qualityIdx]
	cfg.Model = ModelFor(cfg.Provider, cfg.Quality)

	// 3. Port.
	portPrompt := promptui.Prompt{
		Label:    "API server port",
		Default:  strconv.Itoa(cfg.Port),
		Validate: validatePort,
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("port: %w", err)
	}
	cfg.Port, _ = strconv.Atoi(strings.TrimSpace(portStr))

	// 4. Data directory.
	dataPrompt := promptui.Prompt{
		Label:   "Data directory for the configuration database",
		Default: cfg.DataDir,
	}
	dataDir, err := dataPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	if dataDir = strings.TrimSpace(dataDir); dataDir != "" {
		cfg.DataDir = dataDir
	}

	// 5. Extra exclude patterns for sample discovery.
	excludePrompt := promptui.Prompt{
		Label:   "Extra sample exclude patterns (comma-separated, leave blank for defaults)",
		Default: "",
	}
	excludeStr, err := excludePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("exclude patterns: %w", err)
	}
	if extra := splitAndTrim(excludeStr); len(extra) > 0 {
		cfg.Samples.Exclude = append(append([]string{}, DefaultExcludes...), extra...)
	}

	if envVar := APIKeyEnvVar(cfg.Provider); envVar != "" && os.Getenv(envVar) == "" {
		fmt.Printf("\nNote: set %s or run `ocrstudio auth %s` before extracting documents.\n", envVar, cfg.Provider)
	}

	if err := cfg.Save(path); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", path)
	return cfg, nil
}

func validatePort(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("port must be a number")
	}
	if n < 1 || n > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}

// splitAndTrim splits a comma-separated string and drops blank entries.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
