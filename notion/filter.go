package notion

// Filter is a database query filter. A compound filter sets And or Or; a
// property filter sets Property and exactly one condition.
type Filter struct {
	And []Filter `json:"and,omitempty"`
	Or  []Filter `json:"or,omitempty"`

	Property    string                `json:"property,omitempty"`
	Title       *TextCondition        `json:"title,omitempty"`
	RichText    *TextCondition        `json:"rich_text,omitempty"`
	Checkbox    *CheckboxCondition    `json:"checkbox,omitempty"`
	MultiSelect *MultiSelectCondition `json:"multi_select,omitempty"`
	Formula     *FormulaCondition     `json:"formula,omitempty"`
}

type TextCondition struct {
	Equals       *string `json:"equals,omitempty"`
	DoesNotEqual *string `json:"does_not_equal,omitempty"`
}

type CheckboxCondition struct {
	Equals bool `json:"equals"`
}

type MultiSelectCondition struct {
	Contains string `json:"contains"`
}

type FormulaCondition struct {
	String *TextCondition `json:"string,omitempty"`
}

// Sort directions.
const (
	Ascending  = "ascending"
	Descending = "descending"
)

type Sort struct {
	Property  string `json:"property"`
	Direction string `json:"direction"`
}

// Query is the body of a database query request.
type Query struct {
	Filter   *Filter `json:"filter,omitempty"`
	Sorts    []Sort  `json:"sorts,omitempty"`
	PageSize int     `json:"page_size,omitempty"`
}

// MaxPageSize is the largest page size the API accepts.
const MaxPageSize = 100

func And(filters ...Filter) Filter { return Filter{And: filters} }

func Or(filters ...Filter) Filter { return Filter{Or: filters} }

func CheckboxEquals(property string, v bool) Filter {
	return Filter{Property: property, Checkbox: &CheckboxCondition{Equals: v}}
}

func TitleEquals(property, v string) Filter {
	return Filter{Property: property, Title: &TextCondition{Equals: &v}}
}

func RichTextEquals(property, v string) Filter {
	return Filter{Property: property, RichText: &TextCondition{Equals: &v}}
}

func FormulaStringEquals(property, v string) Filter {
	return Filter{Property: property, Formula: &FormulaCondition{String: &TextCondition{Equals: &v}}}
}

func MultiSelectContains(property, v string) Filter {
	return Filter{Property: property, MultiSelect: &MultiSelectCondition{Contains: v}}
}
