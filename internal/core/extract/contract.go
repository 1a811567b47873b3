package extract

import "github.com/kirillkom/document-intake/internal/core/domain"

// Contracts are narrative prose, so matching runs on lower-cased collapsed text.
var contractRules = RuleSet{
	Type:          domain.TypeServiceContract,
	Casing:        Lower,
	CollapseSpace: true,
	Rules: []Rule{
		newRule("numero_contrato", `profesionales no\.?\s*([\d\-]+)`, DigitsOnly),
		newRule("contratante_nombre", `por una parte,\s*(.+?)\s*,\s*sociedad`, CollapseSpace),
		newRule("contratante_nit", `nit\s*([\d\.\-]+)`, DigitsOnly),
		newRule("contratista_nombre", `por otra parte,\s*([a-záéíóúüñ\s]+),\s*identificada`, CollapseSpace),
		newRule("contratista_identificacion", `cédula de ciudadanía no\.?\s*([\d\.]+)`, DigitsOnly),
		newRule("valor_contrato_monto", `valor total.*?(\$[\d\.\,]+\s*cop)`, CurrencyChars),
		newRule("objeto_del_contrato_texto", `cláusula primera\s*-\s*objeto:\s*(.*?)cláusula segunda`, CollapseSpace),
		newRule("duracion_inicio", `contados a partir del ([0-9]{1,2} de [a-z]+ de \d{4})`, nil),
		newRule("duracion_fin", `hasta el ([0-9]{1,2} de [a-z]+ de \d{4})`, nil),
		newRule("fecha_firma", `a los ([0-9]{1,2} días del mes de [a-z]+ de \d{4})`, nil),
	},
}
