package entity

import "time"

// FieldRule maps one metadata field to a regular expression whose first
// capture group yields the value.
type FieldRule struct {
	Name     string `json:"name" yaml:"name"`
	Key      string `json:"key,omitempty" yaml:"key,omitempty"`
	Regex    string `json:"regex" yaml:"regex"`
	Position string `json:"position,omitempty" yaml:"position,omitempty"`
	Example  string `json:"example,omitempty" yaml:"example,omitempty"`
}

// Layout is a named set of field rules plus OCR language and date format.
// Version starts at 1 and grows by one with every update.
type Layout struct {
	ID         string      `json:"id" yaml:"id,omitempty"`
	Name       string      `json:"name" yaml:"name"`
	Language   string      `json:"language" yaml:"language"`
	DateFormat string      `json:"dateFormat" yaml:"dateFormat"`
	Fields     []FieldRule `json:"fieldMappings" yaml:"fieldMappings"`
	Version    int         `json:"version" yaml:"-"`
	CreatedBy  string      `json:"createdBy,omitempty" yaml:"-"`
	CreatedAt  time.Time   `json:"createdAt" yaml:"-"`
	UpdatedAt  time.Time   `json:"updatedAt" yaml:"-"`
}
