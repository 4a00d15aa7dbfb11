package ai

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const inputPlaceholder = "{input}"

// Prompts holds the instruction templates sent to the completion service.
// {input} is replaced by the user's goal or transcript.
type Prompts struct {
	Goal       string `yaml:"goal"`
	Transcript string `yaml:"transcript"`
}

func DefaultPrompts() Prompts {
	return Prompts{
		Goal: `Based on the goal "{input}", generate a concise to-do list of actionable steps.`,
		Transcript: `Parse the following text into a concise to-do list of distinct, actionable tasks. ` +
			`For example, if the input is "remind me to buy milk and also book a dentist appointment for Tuesday", ` +
			`the output should be ["Buy milk", "Book a dentist appointment for Tuesday"]. The input text is: "{input}"`,
	}
}

// LoadPrompts reads overrides from a YAML file. Keys left out keep their
// default text. An empty path returns the defaults.
func LoadPrompts(path string) (Prompts, error) {
	p := DefaultPrompts()
	if path == "" {
		return p, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Prompts{}, fmt.Errorf("failed to read prompts file: %w", err)
	}
	var override Prompts
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return Prompts{}, fmt.Errorf("failed to parse prompts file: %w", err)
	}

	if override.Goal != "" {
		p.Goal = override.Goal
	}
	if override.Transcript != "" {
		p.Transcript = override.Transcript
	}
	if err := p.validate(); err != nil {
		return Prompts{}, fmt.Errorf("prompts file %s: %w", path, err)
	}
	return p, nil
}

func (p Prompts) validate() error {
	if !strings.Contains(p.Goal, inputPlaceholder) {
		return fmt.Errorf("goal prompt is missing %s", inputPlaceholder)
	}
	if !strings.Contains(p.Transcript, inputPlaceholder) {
		return fmt.Errorf("transcript prompt is missing %s", inputPlaceholder)
	}
	return nil
}

func render(template, input string) string {
	return strings.ReplaceAll(template, inputPlaceholder, input)
}
