package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/devricklin/inbox-autopilot/internal/biz/usecase"
)

// PromptsConfig contains prompt templates loaded from YAML
type PromptsConfig struct {
	Generator GeneratorPrompts `yaml:"generator"`

	// Source is the file the prompts were loaded from, empty for defaults
	Source string `yaml:"-"`
}

// GeneratorPrompts contains response generator prompts
type GeneratorPrompts struct {
	Persona               string `yaml:"persona"`
	OutputContract        string `yaml:"output_contract"`
	CorrectionsHeader     string `yaml:"corrections_header"`
	RegenerateInstruction string `yaml:"regenerate_instruction"`
	MaxCorrections        int    `yaml:"max_corrections"`
}

// DefaultPromptsConfig returns the built-in prompts
func DefaultPromptsConfig() *PromptsConfig {
	def := usecase.DefaultPromptConfig()
	return &PromptsConfig{
		Generator: GeneratorPrompts{
			Persona:               def.Persona,
			OutputContract:        def.OutputContract,
			CorrectionsHeader:     def.CorrectionsHeader,
			RegenerateInstruction: def.RegenerateInstruction,
			MaxCorrections:        def.MaxCorrections,
		},
	}
}

// LoadPromptsConfig loads prompts from a YAML file. With an empty path the
// usual locations are searched and defaults are returned if none exists.
func LoadPromptsConfig(configPath string) (*PromptsConfig, error) {
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/prompts.yaml",
			"/etc/inbox-autopilot/prompts.yaml",
		}
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "prompts.yaml"))
		}
	}

	var (
		data       []byte
		loadedPath string
	)
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err == nil {
			data, loadedPath = b, p
			break
		}
		if configPath != "" {
			return nil, fmt.Errorf("failed to read prompts config: %w", err)
		}
	}
	if data == nil {
		return DefaultPromptsConfig(), nil
	}

	var config PromptsConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", loadedPath, err)
	}
	config.fillDefaults()
	config.Source = loadedPath
	return &config, nil
}

// fillDefaults fills in default values for empty fields
func (c *PromptsConfig) fillDefaults() {
	defaults := DefaultPromptsConfig().Generator

	if c.Generator.Persona == "" {
		c.Generator.Persona = defaults.Persona
	}
	if c.Generator.OutputContract == "" {
		c.Generator.OutputContract = defaults.OutputContract
	}
	if c.Generator.CorrectionsHeader == "" {
		c.Generator.CorrectionsHeader = defaults.CorrectionsHeader
	}
	if c.Generator.RegenerateInstruction == "" {
		c.Generator.RegenerateInstruction = defaults.RegenerateInstruction
	}
	if c.Generator.MaxCorrections == 0 {
		c.Generator.MaxCorrections = defaults.MaxCorrections
	}
}

// ToPromptConfig converts to generator prompt configuration
func (c *PromptsConfig) ToPromptConfig() usecase.PromptConfig {
	return usecase.PromptConfig{
		Persona:               c.Generator.Persona,
		OutputContract:        c.Generator.OutputContract,
		CorrectionsHeader:     c.Generator.CorrectionsHeader,
		RegenerateInstruction: c.Generator.RegenerateInstruction,
		MaxCorrections:        c.Generator.MaxCorrections,
	}
}
