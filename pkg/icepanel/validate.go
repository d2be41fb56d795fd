package icepanel

import (
	"github.com/icetools/iceflow/pkg/errors"
)

// validateFlow checks the fields downstream normalization relies on.
// A nil Steps map means the steps field was absent from the response,
// which is a schema mismatch; an empty flow decodes to an empty map.
func validateFlow(f *Flow) error {
	if f.ID == "" {
		return errors.New(errors.ErrCodeSchemaMismatch, "flow is missing id")
	}
	if f.Name == "" {
		return errors.New(errors.ErrCodeSchemaMismatch, "flow %s is missing name", f.ID)
	}
	if f.DiagramID == "" {
		return errors.New(errors.ErrCodeSchemaMismatch, "flow %s is missing diagramId", f.ID)
	}
	if f.Steps == nil {
		return errors.New(errors.ErrCodeSchemaMismatch, "flow %s is missing steps", f.ID)
	}
	for key, step := range f.Steps {
		if step.ID == "" {
			return errors.New(errors.ErrCodeSchemaMismatch, "step %s of flow %s is missing id", key, f.ID)
		}
		if step.OriginID == "" {
			return errors.New(errors.ErrCodeSchemaMismatch, "step %s of flow %s is missing originId", key, f.ID)
		}
	}
	return nil
}

// validateDiagram checks the fields full-diagram normalization relies
// on. Connections may legitimately be empty; objects must be present.
func validateDiagram(d *Diagram) error {
	if d.ID == "" {
		return errors.New(errors.ErrCodeSchemaMismatch, "diagram is missing id")
	}
	if d.Name == "" {
		return errors.New(errors.ErrCodeSchemaMismatch, "diagram %s is missing name", d.ID)
	}
	if d.Objects == nil {
		return errors.New(errors.ErrCodeSchemaMismatch, "diagram %s is missing objects", d.ID)
	}
	for key, obj := range d.Objects {
		if obj.ID == "" && key == "" {
			return errors.New(errors.ErrCodeSchemaMismatch, "diagram %s contains object without id", d.ID)
		}
	}
	return nil
}
