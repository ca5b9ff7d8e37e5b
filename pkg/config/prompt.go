package config

import (
	"fmt"
	"strings"
)

// ActivityTypeOption is one allowed activity type with its dropdown option id.
type ActivityTypeOption struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	ID          string `yaml:"id"`
}

// StatusOption is one allowed back-office status with its dropdown option id.
type StatusOption struct {
	Name string `yaml:"name"`
	ID   string `yaml:"id"`
}

// SubcategoryOption is one allowed subcategory with its dropdown option id
// and effort weight in stars.
type SubcategoryOption struct {
	ID    string `yaml:"id"`
	Stars int    `yaml:"stars"`
}

// FieldIDs carries the custom-field UUIDs of the downstream task list.
type FieldIDs struct {
	Category     string `yaml:"category_field_id"`
	Subcategory  string `yaml:"subcategory_field_id"`
	ActivityType string `yaml:"activity_type_field_id"`
	Status       string `yaml:"status_field_id"`
	Requester    string `yaml:"requester_field_id"`
	Account      string `yaml:"account_field_id"`
}

// PromptConfig is the declarative prompt contract shared by every AI
// provider: role, enumerations, dropdown option maps, and the output JSON
// schema description. It doubles as the source of truth for output
// validation and custom-field option ids.
type PromptConfig struct {
	SystemRole      string                                  `yaml:"system_role"`
	TaskDescription string                                  `yaml:"task_description"`
	Categories      []string                                `yaml:"categories"`
	ActivityTypes   []ActivityTypeOption                    `yaml:"activity_types"`
	StatusOptions   []StatusOption                          `yaml:"status_options"`
	CategoryIDs     map[string]string                       `yaml:"category_mappings"`
	Subcategories   map[string]map[string]SubcategoryOption `yaml:"subcategory_mappings"`
	FieldIDs        FieldIDs                                `yaml:"field_ids"`
	Rules           []string                                `yaml:"rules"`
	ResponseFormat  string                                  `yaml:"response_format"`
}

// GeneratePrompt renders the full classification prompt for one batch
// context. Every provider receives the same text.
func (p *PromptConfig) GeneratePrompt(context string) string {
	var b strings.Builder

	b.WriteString(p.SystemRole)
	b.WriteString("\n\n")
	b.WriteString(p.TaskDescription)
	b.WriteString("\n\nCATEGORIAS VÁLIDAS:\n")
	for _, c := range p.Categories {
		fmt.Fprintf(&b, "- %s\n", c)
		if subs, ok := p.Subcategories[c]; ok && len(subs) > 0 {
			names := make([]string, 0, len(subs))
			for name := range subs {
				names = append(names, name)
			}
			fmt.Fprintf(&b, "  Subcategorias: %s\n", strings.Join(names, "; "))
		}
	}

	b.WriteString("\nTIPOS DE ATIVIDADE:\n")
	for _, t := range p.ActivityTypes {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
	}

	b.WriteString("\nSTATUS:\n")
	for _, s := range p.StatusOptions {
		fmt.Fprintf(&b, "- %s\n", s.Name)
	}

	if len(p.Rules) > 0 {
		b.WriteString("\nREGRAS:\n")
		for _, r := range p.Rules {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}

	b.WriteString("\n")
	b.WriteString(p.ResponseFormat)
	b.WriteString("\n\nCONTEXTO DA CONVERSA:\n")
	b.WriteString(context)

	return b.String()
}

// HasCategory reports whether name is in the closed category catalog.
func (p *PromptConfig) HasCategory(name string) bool {
	for _, c := range p.Categories {
		if c == name {
			return true
		}
	}
	return false
}

// HasSubcategory reports whether sub is a valid subcategory of category.
func (p *PromptConfig) HasSubcategory(category, sub string) bool {
	subs, ok := p.Subcategories[category]
	if !ok {
		return false
	}
	_, ok = subs[sub]
	return ok
}

// CategoryOptionID returns the dropdown option UUID for a category name.
func (p *PromptConfig) CategoryOptionID(name string) (string, bool) {
	id, ok := p.CategoryIDs[name]
	return id, ok
}

// SubcategoryOptionID returns the dropdown option UUID for a subcategory.
func (p *PromptConfig) SubcategoryOptionID(category, sub string) (string, bool) {
	subs, ok := p.Subcategories[category]
	if !ok {
		return "", false
	}
	opt, ok := subs[sub]
	return opt.ID, ok
}

// ActivityTypeOptionID returns the dropdown option UUID for an activity type.
func (p *PromptConfig) ActivityTypeOptionID(name string) (string, bool) {
	for _, t := range p.ActivityTypes {
		if t.Name == name {
			return t.ID, true
		}
	}
	return "", false
}

// StatusOptionID returns the dropdown option UUID for a status name.
func (p *PromptConfig) StatusOptionID(name string) (string, bool) {
	for _, s := range p.StatusOptions {
		if s.Name == name {
			return s.ID, true
		}
	}
	return "", false
}

// HasStatus reports whether name is one of the configured status options.
func (p *PromptConfig) HasStatus(name string) bool {
	_, ok := p.StatusOptionID(name)
	return ok
}
