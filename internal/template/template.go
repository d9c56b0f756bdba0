package template

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"
)

//go:embed rules/*.tmpl
var ruleTemplates embed.FS

// Rule file names as they appear in the validation directory.
const (
	RuleHtaccess  = ".htaccess"
	RuleWebConfig = "web.config"
)

// RuleData contains data for rendering rule templates
type RuleData struct {
	Extension string
	MimeType  string
}

// DefaultRuleData serves extension-less tokens as plain text.
func DefaultRuleData() RuleData {
	return RuleData{Extension: ".", MimeType: "text/plain"}
}

// templatePath maps a rule file name to its embedded template
func templatePath(rule string) (string, error) {
	switch rule {
	case RuleHtaccess:
		return "rules/htaccess.tmpl", nil
	case RuleWebConfig:
		return "rules/web.config.tmpl", nil
	default:
		return "", fmt.Errorf("unknown rule file: %s", rule)
	}
}

// Render renders the named rule file
func Render(rule string, data RuleData) (string, error) {
	path, err := templatePath(rule)
	if err != nil {
		return "", err
	}

	content, err := ruleTemplates.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("template not found: %s", path)
	}

	tmpl, err := template.New(rule).Option("missingkey=error").Parse(string(content))
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}

	return buf.String(), nil
}

// Available returns the rule files that can be rendered
func Available() []string {
	return []string{RuleWebConfig, RuleHtaccess}
}
