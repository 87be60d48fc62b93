// Package notify renders messages for members and delivers them.
package notify

import (
	"bytes"
	"fmt"
	"os"
	"text/template"

	"gopkg.in/yaml.v3"
)

const (
	ActivityDuty         = "duty"
	ActivityAppointments = "appointments"
)

// Templates maps activity to template name to template text. Template text
// uses text/template syntax, e.g. "Hi {{.FirstName}}".
type Templates map[string]map[string]string

func LoadTemplates(path string) (Templates, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return ParseTemplates(b)
}

func ParseTemplates(b []byte) (Templates, error) {
	var t Templates
	if err := yaml.Unmarshal(b, &t); err != nil {
		return nil, fmt.Errorf("unmarshal yaml: %w", err)
	}
	return t, nil
}

// Render executes the first of names that exists under activity.
func (t Templates) Render(activity string, data interface{}, names ...string) (string, error) {
	for _, name := range names {
		text, ok := t[activity][name]
		if !ok || text == "" {
			continue
		}
		tmpl, err := template.New(activity + "/" + name).Option("missingkey=error").Parse(text)
		if err != nil {
			return "", fmt.Errorf("parse template %s/%s: %w", activity, name, err)
		}
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return "", fmt.Errorf("execute template %s/%s: %w", activity, name, err)
		}
		return buf.String(), nil
	}
	return "", fmt.Errorf("no template %v for %s", names, activity)
}

// DefaultTemplates are used when no template file is configured.
var DefaultTemplates = Templates{
	ActivityDuty: {
		"invite":   "Hi {{.FirstName}}, would you be willing to give the {{.SlotType}} prayer on {{.Date}}?",
		"reminder": "Hi {{.FirstName}}, a reminder that you are giving the {{.SlotType}} prayer on {{.Date}}. Thank you!",
	},
	ActivityAppointments: {
		"default_invite":   "Hi {{.MemberName}}, could you meet with {{.Conductor}} for {{.Kind}} on {{.Date}} at {{.Time}}?",
		"default_reminder": "Hi {{.MemberName}}, a reminder of your {{.Kind}} with {{.Conductor}} on {{.Date}} at {{.Time}}.",
	},
}
