package extract

import "github.com/kirillkom/document-intake/internal/core/domain"

var idCardRules = RuleSet{
	Type:   domain.TypeIDCard,
	Casing: Upper,
	Rules: []Rule{
		newRule("numero_identificacion", `NÚMERO:\s*([\d\.]+)`, DigitsOnly),
		newRule("apellidos", `APELLIDOS:\s*(.+?)NOMBRES:`, CollapseSpace),
		newRule("nombres", `NOMBRES:\s*(.+?)FECHA DE NACIMIENTO:`, CollapseSpace),
		newRule("fecha_nacimiento", `FECHA DE NACIMIENTO:\s*(\d{2}-[A-Z]{3}-\d{4})`, nil),
		newRule("lugar_nacimiento", `LUGAR DE NACIMIENTO:\s*(.+?)ESTATURA:`, CollapseSpace),
		newRule("estatura", `ESTATURA:\s*([\d\.]+ M)`, DigitsOnly),
		newRule("rh", `RH:\s*([ABO]{1,2}[\+\-])`, nil),
		newRule("sexo", `SEXO:\s*([FM])`, nil),
		newRule("fecha_expedicion", `FECHA DE EXPEDICIÓN:\s*(\d{2}-[A-Z]{3}-\d{4})`, nil),
		newRule("lugar_expedicion", `LUGAR DE EXPEDICIÓN:\s*(.+?)ÍNDICE`, nil),
	},
}
