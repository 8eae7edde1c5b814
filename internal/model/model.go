package model

// Table names. These are part of the persisted layout and must not change.
const (
	TablePresets = "writing_presets"
	TableTexts   = "generated_texts"
)

// WritingPreset is a named generation style.
//
// At most one preset has IsDefault set at any time. CreatedAt and UpdatedAt
// are milliseconds since the Unix epoch.
type WritingPreset struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Description  string `json:"description" yaml:"description"`
	SystemPrompt string `json:"systemPrompt" yaml:"systemPrompt"`
	IsDefault    bool   `json:"isDefault" yaml:"isDefault"`
	CreatedAt    int64  `json:"createdAt" yaml:"createdAt"`
	UpdatedAt    int64  `json:"updatedAt" yaml:"updatedAt"`
}

// GeneratedText is the output of a single generation run.
//
// PresetID and PresetName are a denormalized snapshot of the preset used;
// there is no foreign key and later edits to the preset do not touch
// existing texts. Generated texts are immutable once created.
type GeneratedText struct {
	ID            string `json:"id" yaml:"id"`
	Input         string `json:"input" yaml:"input"`
	PresetID      string `json:"presetId" yaml:"presetId"`
	PresetName    string `json:"presetName" yaml:"presetName"`
	Version1      string `json:"version1" yaml:"version1"`
	Version2      string `json:"version2" yaml:"version2"`
	Version3      string `json:"version3" yaml:"version3"`
	Style1Label   string `json:"style1Label" yaml:"style1Label"`
	Style2Label   string `json:"style2Label" yaml:"style2Label"`
	Style3Label   string `json:"style3Label" yaml:"style3Label"`
	ModelProvider string `json:"modelProvider" yaml:"modelProvider"`
	CreatedAt     int64  `json:"createdAt" yaml:"createdAt"`
}

// Versions returns the three generated variants in order.
func (t GeneratedText) Versions() [3]string {
	return [3]string{t.Version1, t.Version2, t.Version3}
}

// Labels returns the three style labels in order.
func (t GeneratedText) Labels() [3]string {
	return [3]string{t.Style1Label, t.Style2Label, t.Style3Label}
}
