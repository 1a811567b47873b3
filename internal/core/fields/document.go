package fields

import "github.com/kirillkom/document-intake/internal/core/domain"

// Revalidate recomputes status and field errors together from every field in the map.
// Keys absent from the map are not inspected.
func Revalidate(doc *domain.Document) {
	errs := make([]string, 0)
	for _, key := range doc.FieldKeys() {
		if msg := Validate(key, doc.Fields[key].Value); msg != "" {
			errs = append(errs, domain.HumanizeFieldName(key)+": "+msg)
		}
	}

	doc.FieldErrors = errs
	if len(errs) == 0 {
		doc.Status = domain.StatusValidated
		return
	}
	doc.Status = domain.StatusNeedsReview
}

// Seed stores the sanitized form of every extracted value and runs the first validation pass.
func Seed(doc *domain.Document, extracted map[string]string) {
	if doc.Fields == nil {
		doc.Fields = make(map[string]domain.FieldEntry, len(extracted))
	}
	for key, raw := range extracted {
		doc.Fields[key] = domain.FieldEntry{Key: key, Value: Sanitize(key, raw)}
	}
	Revalidate(doc)
}

// Set sanitizes raw, stores it under key and revalidates the document.
func Set(doc *domain.Document, key, raw string) {
	if doc.Fields == nil {
		doc.Fields = make(map[string]domain.FieldEntry, 1)
	}
	doc.Fields[key] = domain.FieldEntry{Key: key, Value: Sanitize(key, raw)}
	Revalidate(doc)
}
