package domain

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// HumanizeFieldName turns a field key into a display label: "fecha_firma" -> "Fecha Firma".
func HumanizeFieldName(key string) string {
	return cases.Title(language.Und).String(strings.ReplaceAll(key, "_", " "))
}

// SheetTitle is the workbook section name for a document type.
func (t DocumentType) SheetTitle() string {
	switch t {
	case TypeIDCard:
		return "Cédulas"
	case TypeInsuranceCertificate:
		return "Actas de Seguro"
	case TypeServiceContract:
		return "Contratos"
	default:
		return "Otros"
	}
}

// Label is the status text shown to reviewers.
func (s DocumentStatus) Label() string {
	if s == StatusValidated {
		return "Validado"
	}
	return "Revisar"
}
