package seed

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/scribe/internal/model"
	"github.com/roach88/scribe/internal/repo"
)

//go:embed catalog.yaml
var catalogYAML []byte

//go:embed catalog.cue
var catalogSchema string

// Entry is one catalog preset before it is assigned an ID and timestamps.
type Entry struct {
	Name         string `yaml:"name" json:"name"`
	Description  string `yaml:"description" json:"description"`
	SystemPrompt string `yaml:"systemPrompt" json:"systemPrompt"`
	IsDefault    bool   `yaml:"isDefault" json:"isDefault"`
}

// Catalog is the document shape of catalog.yaml.
type Catalog struct {
	Presets []Entry `yaml:"presets" json:"presets"`
}

// ValidationError reports a catalog that does not satisfy the schema.
type ValidationError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *ValidationError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Default returns the embedded catalog.
func Default() (Catalog, error) {
	return Parse(catalogYAML)
}

// Parse decodes a catalog document and validates it.
func Parse(data []byte) (Catalog, error) {
	var c Catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return Catalog{}, fmt.Errorf("decode catalog: %w", err)
	}
	if err := Validate(c); err != nil {
		return Catalog{}, err
	}
	return c, nil
}

// Validate checks c against the #Catalog schema and requires exactly one
// default entry.
func Validate(c Catalog) error {
	cctx := cuecontext.New()
	schema := cctx.CompileString(catalogSchema, cue.Filename("catalog.cue"))
	if err := schema.Err(); err != nil {
		return formatCUEError(err)
	}

	v := schema.LookupPath(cue.ParsePath("#Catalog")).Unify(cctx.Encode(c))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return formatCUEError(err)
	}

	defaults := 0
	for _, e := range c.Presets {
		if e.IsDefault {
			defaults++
		}
	}
	if defaults != 1 {
		return &ValidationError{
			Field:   "presets",
			Message: fmt.Sprintf("exactly one default preset required, found %d", defaults),
		}
	}
	return nil
}

// formatCUEError keeps the first CUE error with its position.
func formatCUEError(err error) error {
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	ve := &ValidationError{Field: "cue", Message: first.Error()}
	if path := first.Path(); len(path) > 0 {
		ve.Field = strings.Join(path, ".")
	}
	if positions := errors.Positions(first); len(positions) > 0 {
		ve.Pos = positions[0]
	}
	return ve
}

// Materialize builds the catalog presets with fresh IDs. Every preset gets the same
// createdAt and updatedAt.
func (c Catalog) Materialize(clock repo.Clock, ids repo.IDGenerator) []model.WritingPreset {
	now := clock.NowMillis()
	out := make([]model.WritingPreset, 0, len(c.Presets))
	for _, e := range c.Presets {
		out = append(out, model.WritingPreset{
			ID:           ids.NewID(),
			Name:         e.Name,
			Description:  e.Description,
			SystemPrompt: e.SystemPrompt,
			IsDefault:    e.IsDefault,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	return out
}

// Target receives the catalog. Implemented by *repo.Presets.
type Target interface {
	InsertIfEmpty(ctx context.Context, presets []model.WritingPreset) (bool, error)
}

// Install writes the embedded catalog into target if it holds no presets.
// It returns the number of presets written; zero means the table already had
// data and was left untouched.
func Install(ctx context.Context, target Target, clock repo.Clock, ids repo.IDGenerator) (int, error) {
	c, err := Default()
	if err != nil {
		return 0, fmt.Errorf("load catalog: %w", err)
	}
	return InstallCatalog(ctx, target, c, clock, ids)
}

// InstallCatalog is Install with an explicit catalog.
func InstallCatalog(ctx context.Context, target Target, c Catalog, clock repo.Clock, ids repo.IDGenerator) (int, error) {
	if clock == nil {
		clock = repo.SystemClock{}
	}
	if ids == nil {
		ids = repo.UUIDv7Generator{}
	}

	presets := c.Materialize(clock, ids)
	wrote, err := target.InsertIfEmpty(ctx, presets)
	if err != nil {
		return 0, fmt.Errorf("install catalog: %w", err)
	}
	if !wrote {
		slog.Debug("catalog skipped, presets table not empty")
		return 0, nil
	}
	slog.Info("catalog installed", "presets", len(presets))
	return len(presets), nil
}
