package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/loyalty-service/internal/domain"
)

// TemplatePair holds the per-channel template identifiers for one template key.
type TemplatePair struct {
	Email string `yaml:"email"`
	SMS   string `yaml:"sms"`
}

// Templates maps template keys to channel template identifiers.
type Templates map[domain.TemplateKey]TemplatePair

// envTemplateKeys preserves the variable names the service has always been deployed with.
var envTemplateKeys = map[domain.TemplateKey]string{
	domain.TemplateWelcome:          "WELCOME_TEMPLATE",
	domain.TemplateTwoWeekFirst:     "1ST_2WEEKS",
	domain.TemplateTwoWeekRecurring: "2ND_2WEEKS",
	domain.TemplateOneMonth:         "1MONTH",

	domain.TemplateWebhookTwoWeekNextYear:  "NEXT_YEAR_2WEEKS",
	domain.TemplateWebhookOneMonthNextYear: "NEXT_YEAR_1MONTH",
}

// LoadTemplates reads the template mapping from a YAML file, or from
// MAILERSEND_<KEY>_ID / CELLCAST_<KEY>_ID variables when path is empty.
//
//	welcome:
//	  email: jy7zpl9...
//	  sms: TPL-123
func LoadTemplates(path string) (Templates, error) {
	if strings.TrimSpace(path) == "" {
		return templatesFromEnv(), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read templates file: %w", err)
	}

	var raw map[string]TemplatePair
	if err := yaml.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("parse templates file: %w", err)
	}

	templates := make(Templates, len(raw))
	for key, pair := range raw {
		templates[domain.TemplateKey(key)] = pair
	}
	return templates, nil
}

func templatesFromEnv() Templates {
	templates := make(Templates, len(envTemplateKeys))
	for key, suffix := range envTemplateKeys {
		templates[key] = TemplatePair{
			Email: os.Getenv("MAILERSEND_" + suffix + "_ID"),
			SMS:   os.Getenv("CELLCAST_" + suffix + "_ID"),
		}
	}
	return templates
}

// Validate ensures every required template key has both channel identifiers.
func (t Templates) Validate() error {
	var missing []string
	for _, key := range domain.RequiredTemplateKeys {
		pair, ok := t[key]
		if !ok || strings.TrimSpace(pair.Email) == "" {
			missing = append(missing, string(key)+".email")
		}
		if !ok || strings.TrimSpace(pair.SMS) == "" {
			missing = append(missing, string(key)+".sms")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing notification templates: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Lookup returns the pair configured for key. A pair without any id counts
// as not configured.
func (t Templates) Lookup(key domain.TemplateKey) (TemplatePair, bool) {
	pair, ok := t[key]
	if strings.TrimSpace(pair.Email) == "" && strings.TrimSpace(pair.SMS) == "" {
		return pair, false
	}
	return pair, ok
}
