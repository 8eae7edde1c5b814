package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a store behaviour scenario.
// Scenarios run a sequence of repository operations against a fresh database
// and assert on the resulting trace and final table contents.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Clock configures the deterministic millisecond clock.
	// Defaults to start 1000, step 1.
	Clock *ClockSpec `yaml:"clock,omitempty"`

	// Setup contains steps run before the flow. Setup steps must succeed and
	// are not recorded in the trace.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow contains the steps under test. Each step can declare its expected
	// outcome.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final trace and state.
	Assertions []Assertion `yaml:"assertions"`
}

// ClockSpec seeds testutil.MillisClock.
type ClockSpec struct {
	Start int64 `yaml:"start"`
	Step  int64 `yaml:"step"`
}

// Step is one repository operation.
type Step struct {
	// Op names the operation, e.g. "preset.insert". See the Op constants.
	Op string `yaml:"op"`

	// ID targets get/delete/setDefault operations.
	ID string `yaml:"id,omitempty"`

	// Limit bounds text.recent.
	Limit int `yaml:"limit,omitempty"`

	// Preset is the record for preset.insert and preset.update.
	Preset *PresetArgs `yaml:"preset,omitempty"`

	// Text is the record for text.insert and text.record.
	Text *TextArgs `yaml:"text,omitempty"`

	// Expect specifies the expected outcome.
	// If nil, the step must succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// PresetArgs mirrors model.WritingPreset with scenario-friendly defaults.
type PresetArgs struct {
	ID           string `yaml:"id"`
	Name         string `yaml:"name"`
	Description  string `yaml:"description"`
	SystemPrompt string `yaml:"systemPrompt"`
	IsDefault    bool   `yaml:"isDefault"`
	CreatedAt    int64  `yaml:"createdAt"`
	UpdatedAt    int64  `yaml:"updatedAt"`
}

// TextArgs mirrors model.GeneratedText. ID and CreatedAt are ignored by
// text.record, which assigns both.
type TextArgs struct {
	ID            string    `yaml:"id"`
	Input         string    `yaml:"input"`
	PresetID      string    `yaml:"presetId"`
	PresetName    string    `yaml:"presetName"`
	Versions      [3]string `yaml:"versions"`
	Labels        [3]string `yaml:"labels"`
	ModelProvider string    `yaml:"modelProvider"`
	CreatedAt     int64     `yaml:"createdAt"`
}

// ExpectClause specifies the expected step outcome.
type ExpectClause struct {
	// Outcome is "ok", "not_found" or "error".
	Outcome string `yaml:"outcome"`

	// Error is the expected store error code when Outcome is "error",
	// e.g. "CONSTRAINT_VIOLATION". Optional.
	Error string `yaml:"error,omitempty"`
}

// Outcome values.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeError    = "error"
)

// Operations.
const (
	OpPresetInsert       = "preset.insert"
	OpPresetUpdate       = "preset.update"
	OpPresetDelete       = "preset.delete"
	OpPresetDeleteAll    = "preset.deleteAll"
	OpPresetGet          = "preset.get"
	OpPresetGetDefault   = "preset.getDefault"
	OpPresetList         = "preset.list"
	OpPresetClearDefault = "preset.clearDefault"
	OpPresetSetDefault   = "preset.setDefault"
	OpTextInsert         = "text.insert"
	OpTextRecord         = "text.record"
	OpTextDelete         = "text.delete"
	OpTextDeleteAll      = "text.deleteAll"
	OpTextGet            = "text.get"
	OpTextRecent         = "text.recent"
	OpTextCount          = "text.count"
	OpSeed               = "seed"
	OpReset              = "reset"
)

var knownOps = map[string]bool{
	OpPresetInsert: true, OpPresetUpdate: true, OpPresetDelete: true,
	OpPresetDeleteAll: true, OpPresetGet: true, OpPresetGetDefault: true,
	OpPresetList: true, OpPresetClearDefault: true, OpPresetSetDefault: true,
	OpTextInsert: true, OpTextRecord: true, OpTextDelete: true,
	OpTextDeleteAll: true, OpTextGet: true, OpTextRecent: true,
	OpTextCount: true, OpSeed: true, OpReset: true,
}

// Assertion validates trace or final state.
type Assertion struct {
	// Type specifies the assertion type:
	// - "trace_contains": a step with Op (and Outcome, if set) appears in the trace
	// - "trace_count": Op appears exactly Count times in the trace
	// - "final_state": query Table and verify expected values
	// - "row_count": Table holds exactly Count rows
	// - "default_is": the default preset is ID ("" for none)
	// - "order": the preset list or recent texts are exactly IDs, in order
	Type string `yaml:"type"`

	// Op is the operation (used by trace_contains, trace_count).
	Op string `yaml:"op,omitempty"`

	// Outcome narrows trace_contains.
	Outcome string `yaml:"outcome,omitempty"`

	// Table is the table name (used by final_state, row_count, order).
	Table string `yaml:"table,omitempty"`

	// Where specifies query filters (used by final_state).
	// All fields must match exactly.
	Where map[string]any `yaml:"where,omitempty"`

	// Expect contains expected field values (used by final_state).
	// Subset match - only specified fields are validated.
	Expect map[string]any `yaml:"expect,omitempty"`

	// Count is the expected number (used by trace_count, row_count).
	Count int `yaml:"count,omitempty"`

	// ID is the expected default preset (used by default_is).
	ID string `yaml:"id,omitempty"`

	// IDs is the expected order (used by order).
	IDs []string `yaml:"ids,omitempty"`

	// Limit bounds the recent-texts query (used by order on generated_texts).
	Limit int `yaml:"limit,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains = "trace_contains"
	AssertTraceCount    = "trace_count"
	AssertFinalState    = "final_state"
	AssertRowCount      = "row_count"
	AssertDefaultIs     = "default_is"
	AssertOrder         = "order"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses scenario YAML.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(fmt.Sprintf("setup[%d]", i), step); err != nil {
			return err
		}
		if step.Expect != nil {
			return fmt.Errorf("setup[%d]: expect is not allowed in setup", i)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(fmt.Sprintf("flow[%d]", i), step); err != nil {
			return err
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(where string, step Step) error {
	if step.Op == "" {
		return fmt.Errorf("%s: op is required", where)
	}
	if !knownOps[step.Op] {
		return fmt.Errorf("%s: unknown op %q", where, step.Op)
	}

	switch step.Op {
	case OpPresetInsert, OpPresetUpdate:
		if step.Preset == nil || step.Preset.ID == "" {
			return fmt.Errorf("%s: preset with id is required for %s", where, step.Op)
		}
	case OpTextInsert:
		if step.Text == nil || step.Text.ID == "" {
			return fmt.Errorf("%s: text with id is required for %s", where, step.Op)
		}
	case OpTextRecord:
		if step.Text == nil {
			return fmt.Errorf("%s: text is required for %s", where, step.Op)
		}
	case OpPresetDelete, OpPresetGet, OpPresetSetDefault, OpTextDelete, OpTextGet:
		if step.ID == "" {
			return fmt.Errorf("%s: id is required for %s", where, step.Op)
		}
	}

	if step.Expect != nil {
		switch step.Expect.Outcome {
		case OutcomeOK, OutcomeNotFound, OutcomeError:
		default:
			return fmt.Errorf("%s.expect: outcome must be ok, not_found or error, got %q", where, step.Expect.Outcome)
		}
		if step.Expect.Error != "" && step.Expect.Outcome != OutcomeError {
			return fmt.Errorf("%s.expect: error code requires outcome error", where)
		}
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_contains", index)
		}
	case AssertTraceCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFinalState:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for final_state", index)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
	case AssertRowCount:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for row_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for row_count", index)
		}
	case AssertDefaultIs:
	case AssertOrder:
		if a.Table == "" {
			return fmt.Errorf("assertions[%d]: table is required for order", index)
		}
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
