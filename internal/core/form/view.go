package form

import (
	"github.com/kirillkom/document-intake/internal/core/domain"
	"github.com/kirillkom/document-intake/internal/core/fields"
)

const extraSectionTitle = "Otros Campos"

type FieldView struct {
	Key     string           `json:"key"`
	Label   string           `json:"label"`
	Kind    domain.FieldKind `json:"kind"`
	Value   string           `json:"value"`
	Present bool             `json:"present"`
	Error   string           `json:"error,omitempty"`
}

type SectionView struct {
	Title  string      `json:"title"`
	Fields []FieldView `json:"fields"`
}

type View struct {
	DocumentID   string                `json:"document_id"`
	Filename     string                `json:"filename"`
	DocumentType domain.DocumentType   `json:"document_type"`
	Status       domain.DocumentStatus `json:"status"`
	FieldErrors  []string              `json:"field_errors"`
	Sections     []SectionView         `json:"sections"`
}

// Render lays out every known field of the document type with its inline message.
// Absent fields render as empty with the empty-field message; they do not change Status.
func Render(doc *domain.Document) View {
	view := View{
		DocumentID:   doc.ID,
		Filename:     doc.Filename,
		DocumentType: doc.Type,
		Status:       doc.Status,
		FieldErrors:  doc.FieldErrors,
		Sections:     []SectionView{},
	}

	seen := make(map[string]struct{}, len(doc.Fields))
	for _, section := range LayoutFor(doc.Type) {
		sv := SectionView{Title: section.Title, Fields: make([]FieldView, 0, len(section.Fields))}
		for _, f := range section.Fields {
			sv.Fields = append(sv.Fields, fieldView(doc, f.Key, f.Label))
			seen[f.Key] = struct{}{}
		}
		view.Sections = append(view.Sections, sv)
	}

	extra := SectionView{Title: extraSectionTitle}
	for _, key := range doc.FieldKeys() {
		if _, ok := seen[key]; ok {
			continue
		}
		extra.Fields = append(extra.Fields, fieldView(doc, key, domain.HumanizeFieldName(key)))
	}
	if len(extra.Fields) > 0 {
		view.Sections = append(view.Sections, extra)
	}
	return view
}

func fieldView(doc *domain.Document, key, label string) FieldView {
	value, present := doc.Value(key)
	return FieldView{
		Key:     key,
		Label:   label,
		Kind:    domain.KindOf(key),
		Value:   value,
		Present: present,
		Error:   fields.Validate(key, value),
	}
}
