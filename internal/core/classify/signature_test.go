package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kirillkom/document-intake/internal/core/domain"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		text string
		want domain.DocumentType
	}{
		{
			name: "id card",
			text: "REPÚBLICA DE COLOMBIA IDENTIFICACIÓN PERSONAL CÉDULA DE CIUDADANÍA\nNÚMERO: 1.020.304.050",
			want: domain.TypeIDCard,
		},
		{
			name: "insurance certificate in mixed case",
			text: "Certificado de Cobertura y Acta de Seguro\nNúmero de póliza: 778899",
			want: domain.TypeInsuranceCertificate,
		},
		{
			name: "service contract",
			text: "CONTRATO DE PRESTACIÓN DE SERVICIOS PROFESIONALES No. 2024-118",
			want: domain.TypeServiceContract,
		},
		{
			name: "lower case contract",
			text: "contrato de prestación de servicios profesionales entre las partes",
			want: domain.TypeServiceContract,
		},
		{
			name: "no signature",
			text: "FACTURA ELECTRÓNICA DE VENTA",
			want: domain.TypeUnknown,
		},
		{
			name: "empty text",
			text: "",
			want: domain.TypeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.text))
		})
	}
}

func TestClassifyFirstSignatureWins(t *testing.T) {
	text := "CONTRATO DE PRESTACIÓN DE SERVICIOS PROFESIONALES\nCERTIFICADO DE COBERTURA Y ACTA DE SEGURO"
	assert.Equal(t, domain.TypeInsuranceCertificate, Classify(text))
}

func TestClassifierUsesSignatureTable(t *testing.T) {
	c := NewClassifier()
	assert.Equal(t, domain.TypeServiceContract, c.Classify("... CONTRATO DE PRESTACIÓN DE SERVICIOS PROFESIONALES ..."))
	assert.Equal(t, domain.TypeUnknown, ClassifyWith(nil, "anything"))
}
