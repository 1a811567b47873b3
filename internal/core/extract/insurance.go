package extract

import "github.com/kirillkom/document-intake/internal/core/domain"

// Range ends are bounded by the next bullet or numbered section marker of the certificate.
var insuranceRules = RuleSet{
	Type:          domain.TypeInsuranceCertificate,
	Casing:        Upper,
	CollapseSpace: true,
	Rules: []Rule{
		newRule("numero_poliza", `NÚMERO DE PÓLIZA:\s*([A-Z0-9\-]+)`, DigitsOnly),
		newRule("ramo", `RAMO:\s*(.+?)\s*(?:[•·]\s*)?TOMADOR`, CollapseSpace),
		newRule("asegurado", `TOMADOR\s*/\s*ASEGURADO:\s*([A-ZÁÉÍÓÚÜÑ\s\-]+?)\s*(?:[•·]\s*)?IDENTIFICACIÓN:`, CollapseSpace),
		newRule("identificacion", `IDENTIFICACIÓN:\s*([C\.\sE\d\.]+)(?:\s*VIGENCIA)?`, DigitsOnly),
		newRule("vigencia_inicio", `FECHA DE INICIO:\s*(\d{1,2} DE [A-ZÁÉÍÓÚÜÑ]+ DE \d{4}.*?)(?:[•·]\s*)\s*FECHA DE FIN`, nil),
		newRule("vigencia_fin", `FECHA DE FIN:\s*(\d{1,2} DE [A-ZÁÉÍÓÚÜÑ]+ DE \d{4}.*?)(?:\s*RESUMEN|4\.)`, nil),
		newRule("cobertura_rc_monto", `RESPONSABILIDAD CIVIL EXTRACONTRACTUAL:\s*(.+?COP)`, CurrencyChars),
		newRule("cobertura_daños", `PÉRDIDA TOTAL POR DAÑOS:\s*(.+?)3\.`, CollapseSpace),
		newRule("cobertura_hurto", `PÉRDIDA TOTAL POR HURTO:\s*(.+?)4\.`, CollapseSpace),
		newRule("cobertura_asistencia", `ASISTENCIA JURÍDICA:\s*(.+?)ESTADO`, CollapseSpace),
		newRule("estado_poliza", `ESTADO DE LA PÓLIZA:\s*([A-Z]+)`, nil),
	},
}
