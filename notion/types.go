package notion

import "encoding/json"

// Page is a database record as returned by the query and retrieve endpoints.
// Properties are kept undecoded so each cell can be read on its own; a cell
// of an unexpected shape only affects the field that reads it.
type Page struct {
	Object     string                     `json:"object,omitempty"`
	ID         string                     `json:"id"`
	Archived   bool                       `json:"archived,omitempty"`
	Properties map[string]json.RawMessage `json:"properties"`
}

// Cell is a decoded property value. Only the member matching the cell's kind
// is populated; Type may be empty for hand-built records.
type Cell struct {
	Type        string         `json:"type,omitempty"`
	Title       []RichText     `json:"title,omitempty"`
	RichText    []RichText     `json:"rich_text,omitempty"`
	Date        *DateValue     `json:"date,omitempty"`
	MultiSelect []SelectOption `json:"multi_select,omitempty"`
	Files       []File         `json:"files,omitempty"`
	Formula     *Formula       `json:"formula,omitempty"`
	Checkbox    *bool          `json:"checkbox,omitempty"`
}

// RichText is a single styled run of text.
type RichText struct {
	Type        string       `json:"type,omitempty"`
	PlainText   string       `json:"plain_text"`
	Href        string       `json:"href,omitempty"`
	Annotations *Annotations `json:"annotations,omitempty"`
}

// Annotations describe the styling of a rich-text run.
type Annotations struct {
	Bold          bool `json:"bold"`
	Italic        bool `json:"italic"`
	Strikethrough bool `json:"strikethrough"`
	Underline     bool `json:"underline"`
	Code          bool `json:"code"`
}

type DateValue struct {
	Start string `json:"start"`
	End   string `json:"end,omitempty"`
}

type SelectOption struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// File is an attachment in a files cell. Type is "external" for linked files
// and "file" for files hosted by Notion, whose URLs expire.
type File struct {
	Type     string      `json:"type,omitempty"`
	Name     string      `json:"name,omitempty"`
	External *FileObject `json:"external,omitempty"`
	File     *FileObject `json:"file,omitempty"`
}

type FileObject struct {
	URL        string `json:"url"`
	ExpiryTime string `json:"expiry_time,omitempty"`
}

type Formula struct {
	Type    string   `json:"type,omitempty"`
	String  *string  `json:"string,omitempty"`
	Number  *float64 `json:"number,omitempty"`
	Boolean *bool    `json:"boolean,omitempty"`
}

// Cell decodes the named property. ok is false when the page has no such
// property or its value cannot be decoded.
func (p *Page) Cell(name string) (Cell, bool) {
	raw, ok := p.Properties[name]
	if !ok || len(raw) == 0 {
		return Cell{}, false
	}
	var c Cell
	if err := json.Unmarshal(raw, &c); err != nil {
		return Cell{}, false
	}
	return c, true
}

// QueryResult is the first page of a database query.
type QueryResult struct {
	Results    []Page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor,omitempty"`
}

type blockList struct {
	Results []json.RawMessage `json:"results"`
	HasMore bool              `json:"has_more"`
}
