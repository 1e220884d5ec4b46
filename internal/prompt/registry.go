package prompt

import (
	"os"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/finfluencer-cli/internal/model"
)

// ErrUnsupportedInterviewType is returned for interview types without a
// registered template. It is the same sentinel model.ParseInterviewType
// wraps.
var ErrUnsupportedInterviewType = model.ErrUnsupportedInterviewType

// TemplateSpec is the system and user template pair of one interview type.
// Required lists every placeholder the two templates use.
type TemplateSpec struct {
	System   string   `yaml:"system"`
	User     string   `yaml:"user"`
	Required []string `yaml:"required"`
}

// Registry maps interview types to validated templates.
type Registry struct {
	specs      map[model.InterviewType]TemplateSpec
	transcript string
}

// NewRegistry validates specs and the per-video transcript template. Every
// placeholder used by a spec must be listed in Required and every Required
// field must appear in one of the two templates.
func NewRegistry(specs map[model.InterviewType]TemplateSpec, transcript string) (*Registry, error) {
	for t, spec := range specs {
		if !t.Valid() {
			return nil, eris.Wrapf(ErrUnsupportedInterviewType, "%q", string(t))
		}
		if err := spec.validate(); err != nil {
			return nil, eris.Wrapf(err, "prompt: template %s", t)
		}
	}
	if err := validateTranscript(transcript); err != nil {
		return nil, eris.Wrap(err, "prompt: transcript template")
	}

	copied := make(map[model.InterviewType]TemplateSpec, len(specs))
	for t, spec := range specs {
		copied[t] = spec
	}
	return &Registry{specs: copied, transcript: transcript}, nil
}

// DefaultRegistry returns the built-in templates.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(DefaultTemplates(), DefaultTranscriptTemplate)
	if err != nil {
		panic(err)
	}
	return r
}

// Spec returns the template pair for t.
func (r *Registry) Spec(t model.InterviewType) (TemplateSpec, error) {
	spec, ok := r.specs[t]
	if !ok {
		return TemplateSpec{}, eris.Wrapf(ErrUnsupportedInterviewType, "%q", string(t))
	}
	return spec, nil
}

func (s TemplateSpec) validate() error {
	if strings.TrimSpace(s.System) == "" {
		return eris.New("empty system template")
	}
	if strings.TrimSpace(s.User) == "" {
		return eris.New("empty user template")
	}

	used := make(map[string]bool)
	for _, tmpl := range []string{s.System, s.User} {
		names, err := placeholders(tmpl)
		if err != nil {
			return err
		}
		for _, n := range names {
			used[n] = true
		}
	}

	declared := make(map[string]bool, len(s.Required))
	for _, n := range s.Required {
		declared[n] = true
		if !used[n] {
			return eris.Errorf("required field %q not used by either template", n)
		}
	}

	var undeclared []string
	for n := range used {
		if !declared[n] {
			undeclared = append(undeclared, n)
		}
	}
	if len(undeclared) > 0 {
		sort.Strings(undeclared)
		return eris.Errorf("placeholders not declared as required: %s", strings.Join(undeclared, ", "))
	}
	return nil
}

// templateFile is the YAML shape accepted by LoadTemplates.
type templateFile struct {
	Transcript string                  `yaml:"transcript"`
	Types      map[string]TemplateSpec `yaml:"types"`
}

// LoadTemplates overlays template text from a YAML file on base. Fields left
// empty in the file keep the base value. The merged set is validated again.
func LoadTemplates(path string, base *Registry) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "prompt: read templates %s", path)
	}

	var f templateFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, eris.Wrapf(err, "prompt: parse templates %s", path)
	}

	specs := make(map[model.InterviewType]TemplateSpec, len(base.specs))
	for t, spec := range base.specs {
		specs[t] = spec
	}
	for name, override := range f.Types {
		t, err := model.ParseInterviewType(name)
		if err != nil {
			return nil, eris.Wrapf(err, "prompt: template override in %s", path)
		}
		spec := specs[t]
		if override.System != "" {
			spec.System = override.System
		}
		if override.User != "" {
			spec.User = override.User
		}
		if len(override.Required) > 0 {
			spec.Required = override.Required
		}
		specs[t] = spec
	}

	transcript := base.transcript
	if f.Transcript != "" {
		transcript = f.Transcript
	}
	return NewRegistry(specs, transcript)
}
