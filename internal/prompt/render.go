package prompt

import (
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrMissingField is returned when a template placeholder has no value.
var ErrMissingField = eris.New("prompt: missing template field")

// render substitutes {name} placeholders from values. Doubled braces are
// literal braces, so JSON examples can appear in a template as {{ and }}.
func render(tmpl string, values map[string]string) (string, error) {
	var b strings.Builder
	b.Grow(len(tmpl))

	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		switch {
		case c == '{' && i+1 < len(tmpl) && tmpl[i+1] == '{':
			b.WriteByte('{')
			i++
		case c == '}' && i+1 < len(tmpl) && tmpl[i+1] == '}':
			b.WriteByte('}')
			i++
		case c == '{':
			end := strings.IndexByte(tmpl[i:], '}')
			if end < 0 {
				return "", eris.Errorf("prompt: unterminated placeholder at offset %d", i)
			}
			name := tmpl[i+1 : i+end]
			v, ok := values[name]
			if !ok {
				return "", eris.Wrapf(ErrMissingField, "field %q", name)
			}
			b.WriteString(v)
			i += end
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

// placeholders lists the distinct placeholder names of tmpl, sorted.
func placeholders(tmpl string) ([]string, error) {
	seen := make(map[string]bool)
	for i := 0; i < len(tmpl); i++ {
		switch {
		case tmpl[i] == '{' && i+1 < len(tmpl) && tmpl[i+1] == '{',
			tmpl[i] == '}' && i+1 < len(tmpl) && tmpl[i+1] == '}':
			i++
		case tmpl[i] == '{':
			end := strings.IndexByte(tmpl[i:], '}')
			if end < 0 {
				return nil, eris.Errorf("prompt: unterminated placeholder at offset %d", i)
			}
			name := tmpl[i+1 : i+end]
			if name == "" || strings.ContainsAny(name, "{ \n") {
				return nil, eris.Errorf("prompt: bad placeholder %q at offset %d", name, i)
			}
			seen[name] = true
			i += end
		}
	}

	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	sort.Strings(names)
	return names, nil
}
