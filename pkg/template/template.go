// Package template renders the small set of placeholder templates used
// throughout the configuration and repository layers ({appname} and
// {filename}) via flanksource/gomplate, rather
// than hand-rolled strings.ReplaceAll calls.
package template

import (
	"fmt"
	"strings"

	"github.com/flanksource/gomplate/v3"
)

// Render evaluates a template string containing `{name}`-style
// placeholders (converted to Go-template `{{.name}}` syntax) against
// the given variables.
func Render(tmpl string, vars map[string]interface{}) (string, error) {
	goTemplate := tmpl
	for name := range vars {
		goTemplate = strings.ReplaceAll(goTemplate, "{"+name+"}", "{{."+name+"}}")
	}

	result, err := gomplate.RunTemplate(vars, gomplate.Template{Template: goTemplate})
	if err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}
	return result, nil
}
