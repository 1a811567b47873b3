// Package classify assigns a document type from literal signature phrases.
package classify

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

type Signature struct {
	Type   domain.DocumentType
	Phrase string
}

// Signatures are tested in order; the first phrase found wins.
var Signatures = []Signature{
	{Type: domain.TypeIDCard, Phrase: "REPÚBLICA DE COLOMBIA IDENTIFICACIÓN PERSONAL CÉDULA DE CIUDADANÍA"},
	{Type: domain.TypeInsuranceCertificate, Phrase: "CERTIFICADO DE COBERTURA Y ACTA DE SEGURO"},
	{Type: domain.TypeServiceContract, Phrase: "CONTRATO DE PRESTACIÓN DE SERVICIOS PROFESIONALES"},
}

// Classify never fails: text without a known signature is TypeUnknown.
func Classify(text string) domain.DocumentType {
	return ClassifyWith(Signatures, text)
}

func ClassifyWith(signatures []Signature, text string) domain.DocumentType {
	upper := strings.ToUpper(norm.NFC.String(text))
	for _, sig := range signatures {
		if sig.Phrase == "" {
			continue
		}
		if strings.Contains(upper, strings.ToUpper(norm.NFC.String(sig.Phrase))) {
			return sig.Type
		}
	}
	return domain.TypeUnknown
}

// Classifier adapts Classify to the ports.DocumentClassifier contract.
type Classifier struct {
	signatures []Signature
}

func NewClassifier() *Classifier {
	return &Classifier{signatures: Signatures}
}

func (c *Classifier) Classify(text string) domain.DocumentType {
	return ClassifyWith(c.signatures, text)
}
