package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := map[string]FieldKind{
		"nombres":                   KindStrictText,
		"lugar_nacimiento":          KindStrictText,
		"objeto_del_contrato_texto": KindLongText,
		"cobertura_daños":           KindPercentage,
		"numero_poliza":             KindNumericStrict,
		"NUMERO_POLIZA":             KindNumericStrict,
		"valor_contrato_monto":      KindCurrency,
		"cobertura_rc_monto":        KindCurrency,
		"fecha_nacimiento":          KindDate,
		"vigencia_fin":              KindDate,
		"duracion_inicio":           KindDate,
		"observaciones":             KindLongText,
	}
	for key, want := range tests {
		assert.Equal(t, want, KindOf(key), key)
		assert.Equal(t, KindOf(key), KindOf(key), "kind inference must be stable")
	}
}

func TestHumanizeFieldName(t *testing.T) {
	assert.Equal(t, "Fecha Firma", HumanizeFieldName("fecha_firma"))
	assert.Equal(t, "Cobertura Daños", HumanizeFieldName("cobertura_daños"))
	assert.Equal(t, "Rh", HumanizeFieldName("rh"))
	assert.Equal(t, "", HumanizeFieldName(""))
}

func TestBuildBatchReport(t *testing.T) {
	docs := []Document{
		{ID: "a", Stage: StageReady, Type: TypeIDCard, Status: StatusValidated},
		{ID: "b", Stage: StageReady, Type: TypeServiceContract, Status: StatusNeedsReview},
		{ID: "c", Stage: StageFailed, Filename: "scan.pdf", Error: "ocr down"},
		{ID: "d", Stage: StageProcessing},
	}

	report := BuildBatchReport("batch-1", docs)

	assert.Len(t, report.Documents, 2)
	assert.Equal(t, []BatchFailure{{DocumentID: "c", Filename: "scan.pdf", Error: "ocr down"}}, report.Failures)
	assert.Equal(t, 2, report.Summary.Total)
	assert.Equal(t, 1, report.Summary.ByType[TypeIDCard])
	assert.Equal(t, 0, report.Summary.ByType[TypeUnknown])
	assert.Equal(t, 1, report.Summary.NeedsReview)
	assert.Equal(t, 1, report.Summary.Pending)
	assert.False(t, report.Summary.ExportReady)
}

func TestBuildBatchReportExportReady(t *testing.T) {
	report := BuildBatchReport("batch-1", []Document{
		{ID: "a", Stage: StageReady, Type: TypeIDCard, Status: StatusValidated},
		{ID: "c", Stage: StageFailed},
	})
	assert.True(t, report.Summary.ExportReady)

	assert.False(t, BuildBatchReport("empty", nil).Summary.ExportReady)
}

func TestParseDocumentType(t *testing.T) {
	got, ok := ParseDocumentType("acta_seguro")
	assert.True(t, ok)
	assert.Equal(t, TypeInsuranceCertificate, got)

	got, ok = ParseDocumentType("factura")
	assert.False(t, ok)
	assert.Equal(t, TypeUnknown, got)
}
