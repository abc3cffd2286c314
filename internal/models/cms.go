package models

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Page is the root of a CMS content tree.
type Page struct {
	Base        `bson:",inline"`
	Name        string    `bson:"name" json:"name"`
	Slug        string    `bson:"slug" json:"slug"`
	Type        string    `bson:"type" json:"type"`
	Description string    `bson:"description" json:"description"`
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

// Section belongs to exactly one page.
type Section struct {
	Base      `bson:",inline"`
	PageID    string    `bson:"page_id" json:"page_id"`
	Key       string    `bson:"key" json:"key"`
	Type      string    `bson:"type" json:"type"`
	Title     string    `bson:"title" json:"title"`
	Content   string    `bson:"content" json:"content"`
	SortOrder int       `bson:"sort_order" json:"sort_order"`
	IsActive  bool      `bson:"is_active" json:"is_active"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
	Fields    []Field   `bson:"-" json:"fields,omitempty"`
}

// FieldType is the closed set of scalar types a CMS field may hold.
type FieldType string

const (
	FieldTypeString  FieldType = "string"
	FieldTypeText    FieldType = "text"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeNumber  FieldType = "number"
)

func (t FieldType) Valid() bool {
	switch t {
	case FieldTypeString, FieldTypeText, FieldTypeBoolean, FieldTypeNumber:
		return true
	}
	return false
}

// Field belongs to exactly one section. Value holds the raw stored scalar;
// use Typed to obtain the FieldValue.
type Field struct {
	Base      `bson:",inline"`
	SectionID string      `bson:"section_id" json:"section_id"`
	Key       string      `bson:"key" json:"key"`
	Type      FieldType   `bson:"type" json:"type"`
	Label     string      `bson:"label" json:"label"`
	Required  bool        `bson:"required" json:"required"`
	SortOrder int         `bson:"sort_order" json:"sort_order"`
	Value     interface{} `bson:"value" json:"value"`
	CreatedAt time.Time   `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time   `bson:"updated_at" json:"updated_at"`
}

// Typed decodes the stored value according to the field type.
// A field that has never been set yields the zero value of its type.
func (f *Field) Typed() (FieldValue, error) {
	if f.Value == nil {
		return ZeroFieldValue(f.Type)
	}
	return ParseFieldValue(f.Type, f.Value)
}

// FieldValue is a closed union over StringValue, TextValue, BoolValue and NumberValue.
type FieldValue interface {
	Type() FieldType
	Raw() interface{}
	IsEmpty() bool
	fieldValue()
}

type StringValue string
type TextValue string
type BoolValue bool
type NumberValue float64

func (StringValue) Type() FieldType { return FieldTypeString }
func (TextValue) Type() FieldType   { return FieldTypeText }
func (BoolValue) Type() FieldType   { return FieldTypeBoolean }
func (NumberValue) Type() FieldType { return FieldTypeNumber }

func (v StringValue) Raw() interface{} { return string(v) }
func (v TextValue) Raw() interface{}   { return string(v) }
func (v BoolValue) Raw() interface{}   { return bool(v) }
func (v NumberValue) Raw() interface{} { return float64(v) }

func (v StringValue) IsEmpty() bool { return strings.TrimSpace(string(v)) == "" }
func (v TextValue) IsEmpty() bool   { return strings.TrimSpace(string(v)) == "" }
func (BoolValue) IsEmpty() bool     { return false }
func (NumberValue) IsEmpty() bool   { return false }

func (StringValue) fieldValue() {}
func (TextValue) fieldValue()   {}
func (BoolValue) fieldValue()   {}
func (NumberValue) fieldValue() {}

// ZeroFieldValue returns the empty value of t.
func ZeroFieldValue(t FieldType) (FieldValue, error) {
	switch t {
	case FieldTypeString:
		return StringValue(""), nil
	case FieldTypeText:
		return TextValue(""), nil
	case FieldTypeBoolean:
		return BoolValue(false), nil
	case FieldTypeNumber:
		return NumberValue(0), nil
	}
	return nil, fmt.Errorf("unknown field type %q", t)
}

// ParseFieldValue converts a decoded JSON or BSON scalar into the value for t.
// The raw value must already carry the matching type; "true" or "4" are rejected
// for boolean and number fields.
func ParseFieldValue(t FieldType, raw interface{}) (FieldValue, error) {
	switch t {
	case FieldTypeString:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("field of type string requires a string value, got %T", raw)
		}
		if strings.ContainsAny(s, "\r\n") {
			return nil, fmt.Errorf("field of type string must be a single line")
		}
		return StringValue(s), nil
	case FieldTypeText:
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("field of type text requires a string value, got %T", raw)
		}
		return TextValue(s), nil
	case FieldTypeBoolean:
		b, ok := raw.(bool)
		if !ok {
			return nil, fmt.Errorf("field of type boolean requires true or false, got %T", raw)
		}
		return BoolValue(b), nil
	case FieldTypeNumber:
		var n float64
		switch v := raw.(type) {
		case float64:
			n = v
		case float32:
			n = float64(v)
		case int:
			n = float64(v)
		case int32:
			n = float64(v)
		case int64:
			n = float64(v)
		default:
			return nil, fmt.Errorf("field of type number requires a numeric value, got %T", raw)
		}
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return nil, fmt.Errorf("field of type number requires a finite value")
		}
		return NumberValue(n), nil
	}
	return nil, fmt.Errorf("unknown field type %q", t)
}

// PageTree is a page with its ordered sections, each carrying its ordered fields.
type PageTree struct {
	Page     Page      `json:"page"`
	Sections []Section `json:"sections"`
}
