package workspace

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
)

type notionError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type notionRichText struct {
	PlainText string `json:"plain_text"`
}

func plainText(parts []notionRichText) string {
	var b strings.Builder
	for _, p := range parts {
		b.WriteString(p.PlainText)
	}
	return b.String()
}

type notionPropertySchema struct {
	ID   string `json:"id"`
	Type string `json:"type"`
}

type notionDatabase struct {
	ID         string                          `json:"id"`
	Title      []notionRichText                `json:"title"`
	Properties map[string]notionPropertySchema `json:"properties"`
}

type notionParent struct {
	Type       string `json:"type"`
	DatabaseID string `json:"database_id"`
	PageID     string `json:"page_id"`
	Workspace  bool   `json:"workspace"`
}

func (p notionParent) id() string {
	switch {
	case p.DatabaseID != "":
		return p.DatabaseID
	case p.PageID != "":
		return p.PageID
	default:
		return ""
	}
}

type notionPage struct {
	Object         string                    `json:"object"`
	ID             string                    `json:"id"`
	CreatedTime    string                    `json:"created_time"`
	LastEditedTime string                    `json:"last_edited_time"`
	URL            string                    `json:"url"`
	Parent         notionParent              `json:"parent"`
	Properties     map[string]notionProperty `json:"properties"`
}

type notionQueryResponse struct {
	Results    []notionPage `json:"results"`
	HasMore    bool         `json:"has_more"`
	NextCursor string       `json:"next_cursor"`
}

type notionPerson struct {
	Email string `json:"email"`
}

type notionUser struct {
	Object string        `json:"object"`
	ID     string        `json:"id"`
	Type   string        `json:"type"`
	Name   string        `json:"name"`
	Person *notionPerson `json:"person"`
}

type notionUsersResponse struct {
	Results    []notionUser `json:"results"`
	HasMore    bool         `json:"has_more"`
	NextCursor string       `json:"next_cursor"`
}

type notionOption struct {
	Name string `json:"name"`
}

type notionRef struct {
	ID string `json:"id"`
}

type notionDate struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type notionFile struct {
	Name string `json:"name"`
}

type notionFormula struct {
	Type    string      `json:"type"`
	String  *string     `json:"string"`
	Number  *float64    `json:"number"`
	Boolean *bool       `json:"boolean"`
	Date    *notionDate `json:"date"`
}

type notionUniqueID struct {
	Prefix *string `json:"prefix"`
	Number *int64  `json:"number"`
}

type notionProperty struct {
	Type           string           `json:"type"`
	Title          []notionRichText `json:"title"`
	RichText       []notionRichText `json:"rich_text"`
	Number         *float64         `json:"number"`
	Select         *notionOption    `json:"select"`
	Status         *notionOption    `json:"status"`
	MultiSelect    []notionOption   `json:"multi_select"`
	Date           *notionDate      `json:"date"`
	People         []notionRef      `json:"people"`
	Relation       []notionRef      `json:"relation"`
	Checkbox       bool             `json:"checkbox"`
	URL            *string          `json:"url"`
	Email          *string          `json:"email"`
	PhoneNumber    *string          `json:"phone_number"`
	CreatedTime    string           `json:"created_time"`
	LastEditedTime string           `json:"last_edited_time"`
	CreatedBy      *notionRef       `json:"created_by"`
	LastEditedBy   *notionRef       `json:"last_edited_by"`
	Formula        *notionFormula   `json:"formula"`
	UniqueID       *notionUniqueID  `json:"unique_id"`
	Files          []notionFile     `json:"files"`
}

// value flattens a typed property into a scalar or a []string plus its item count.
// Unknown or empty properties yield nil.
func (p notionProperty) value() (any, int) {
	switch p.Type {
	case "title":
		return emptyToNil(plainText(p.Title)), 1
	case "rich_text":
		return emptyToNil(plainText(p.RichText)), 1
	case "number":
		if p.Number == nil {
			return nil, 0
		}
		return *p.Number, 1
	case "select":
		return optionName(p.Select), 1
	case "status":
		return optionName(p.Status), 1
	case "multi_select":
		names := make([]string, 0, len(p.MultiSelect))
		for _, o := range p.MultiSelect {
			names = append(names, o.Name)
		}
		return listOrNil(names)
	case "date":
		return dateValue(p.Date), 1
	case "people":
		return listOrNil(refIDs(p.People))
	case "relation":
		return listOrNil(refIDs(p.Relation))
	case "checkbox":
		return p.Checkbox, 1
	case "url":
		return stringOrNil(p.URL), 1
	case "email":
		return stringOrNil(p.Email), 1
	case "phone_number":
		return stringOrNil(p.PhoneNumber), 1
	case "created_time":
		return emptyToNil(p.CreatedTime), 1
	case "last_edited_time":
		return emptyToNil(p.LastEditedTime), 1
	case "created_by":
		if p.CreatedBy == nil {
			return nil, 0
		}
		return emptyToNil(p.CreatedBy.ID), 1
	case "last_edited_by":
		if p.LastEditedBy == nil {
			return nil, 0
		}
		return emptyToNil(p.LastEditedBy.ID), 1
	case "formula":
		return formulaValue(p.Formula), 1
	case "unique_id":
		if p.UniqueID == nil || p.UniqueID.Number == nil {
			return nil, 0
		}
		if p.UniqueID.Prefix != nil && *p.UniqueID.Prefix != "" {
			return fmt.Sprintf("%s-%d", *p.UniqueID.Prefix, *p.UniqueID.Number), 1
		}
		return fmt.Sprint(*p.UniqueID.Number), 1
	case "files":
		names := make([]string, 0, len(p.Files))
		for _, f := range p.Files {
			names = append(names, f.Name)
		}
		return listOrNil(names)
	default:
		return nil, 0
	}
}

func emptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func stringOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return emptyToNil(*s)
}

func optionName(o *notionOption) any {
	if o == nil {
		return nil
	}
	return emptyToNil(o.Name)
}

func refIDs(refs []notionRef) []string {
	ids := make([]string, 0, len(refs))
	for _, r := range refs {
		if r.ID != "" {
			ids = append(ids, r.ID)
		}
	}
	return ids
}

func listOrNil(items []string) (any, int) {
	if len(items) == 0 {
		return nil, 0
	}
	return items, len(items)
}

func dateValue(d *notionDate) any {
	if d == nil {
		return nil
	}
	return emptyToNil(d.Start)
}

func formulaValue(f *notionFormula) any {
	if f == nil {
		return nil
	}
	switch f.Type {
	case "string":
		return stringOrNil(f.String)
	case "number":
		if f.Number == nil {
			return nil
		}
		return *f.Number
	case "boolean":
		if f.Boolean == nil {
			return nil
		}
		return *f.Boolean
	case "date":
		return dateValue(f.Date)
	default:
		return nil
	}
}

// CellValue renders a field value the way it is stored in the audit table.
func CellValue(v any) string {
	if items, ok := v.([]string); ok {
		return strings.Join(items, ", ")
	}
	return fmt.Sprint(v)
}

// leveledLogger routes retryablehttp logging through zap.
type leveledLogger struct {
	s *zap.SugaredLogger
}

func (l leveledLogger) Error(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }
func (l leveledLogger) Info(msg string, kv ...interface{})  { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Debug(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l leveledLogger) Warn(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
