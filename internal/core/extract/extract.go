package extract

import "github.com/kirillkom/document-intake/internal/core/domain"

var ruleSets = map[domain.DocumentType]RuleSet{
	domain.TypeIDCard:               idCardRules,
	domain.TypeInsuranceCertificate: insuranceRules,
	domain.TypeServiceContract:      contractRules,
}

// RuleSetFor selects the rule set of a document type. TypeUnknown has none.
func RuleSetFor(t domain.DocumentType) (RuleSet, bool) {
	rs, ok := ruleSets[t]
	return rs, ok
}

// Extract returns only the fields whose rule matched. Unknown types yield an empty map.
func Extract(t domain.DocumentType, text string) map[string]string {
	rs, ok := RuleSetFor(t)
	if !ok {
		return map[string]string{}
	}
	return rs.Extract(text)
}

// FieldKeys lists the field keys a document type can carry, in rule order.
func FieldKeys(t domain.DocumentType) []string {
	rs, ok := RuleSetFor(t)
	if !ok {
		return nil
	}
	return rs.Keys()
}

// KnownField reports whether key belongs to the rule set of t.
func KnownField(t domain.DocumentType, key string) bool {
	for _, k := range FieldKeys(t) {
		if k == key {
			return true
		}
	}
	return false
}

// Extractor adapts Extract to the ports.FieldExtractor contract.
type Extractor struct{}

func NewExtractor() *Extractor { return &Extractor{} }

func (Extractor) Extract(t domain.DocumentType, text string) map[string]string {
	return Extract(t, text)
}
