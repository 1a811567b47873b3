// Package form describes how a document's fields are presented for review.
package form

import "github.com/kirillkom/document-intake/internal/core/domain"

type Field struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

type Section struct {
	Title  string  `json:"title"`
	Fields []Field `json:"fields"`
}

var layouts = map[domain.DocumentType][]Section{
	domain.TypeIDCard: {
		{Title: "Información Personal", Fields: []Field{
			{Key: "numero_identificacion", Label: "Número de Cédula"},
			{Key: "nombres", Label: "Nombres"},
			{Key: "apellidos", Label: "Apellidos"},
		}},
		{Title: "Datos de Origen y Características Físicas", Fields: []Field{
			{Key: "fecha_nacimiento", Label: "Fecha Nacimiento"},
			{Key: "lugar_nacimiento", Label: "Lugar Nacimiento"},
			{Key: "rh", Label: "RH"},
			{Key: "estatura", Label: "Estatura"},
			{Key: "sexo", Label: "Sexo"},
		}},
		{Title: "Información de Expedición", Fields: []Field{
			{Key: "lugar_expedicion", Label: "Lugar Expedición"},
			{Key: "fecha_expedicion", Label: "Fecha Expedición"},
		}},
	},
	domain.TypeInsuranceCertificate: {
		{Title: "Detalles de la Póliza", Fields: []Field{
			{Key: "numero_poliza", Label: "No. Póliza"},
			{Key: "ramo", Label: "Ramo"},
			{Key: "estado_poliza", Label: "Estado"},
		}},
		{Title: "Vigencia y Asegurado", Fields: []Field{
			{Key: "asegurado", Label: "Nombre Asegurado"},
			{Key: "identificacion", Label: "ID Asegurado"},
			{Key: "vigencia_inicio", Label: "Inicio Vigencia"},
			{Key: "vigencia_fin", Label: "Fin Vigencia"},
		}},
		{Title: "Coberturas", Fields: []Field{
			{Key: "cobertura_rc_monto", Label: "Resp. Civil"},
			{Key: "cobertura_daños", Label: "Pérdida Daños"},
			{Key: "cobertura_hurto", Label: "Pérdida Hurto"},
			{Key: "cobertura_asistencia", Label: "Asistencia"},
		}},
	},
	domain.TypeServiceContract: {
		{Title: "Condiciones del Contrato", Fields: []Field{
			{Key: "numero_contrato", Label: "No. Contrato"},
			{Key: "valor_contrato_monto", Label: "Valor Total"},
			{Key: "fecha_firma", Label: "Fecha Firma"},
		}},
		{Title: "Datos del Contratante", Fields: []Field{
			{Key: "contratante_nombre", Label: "Nombre Contratante"},
			{Key: "contratante_nit", Label: "NIT"},
		}},
		{Title: "Datos del Contratista", Fields: []Field{
			{Key: "contratista_nombre", Label: "Nombre Contratista"},
			{Key: "contratista_identificacion", Label: "Identificación (C.C.)"},
		}},
		{Title: "Objeto del Contrato", Fields: []Field{
			{Key: "objeto_del_contrato_texto", Label: "Objeto"},
			{Key: "duracion_inicio", Label: "Inicio Ejecución"},
			{Key: "duracion_fin", Label: "Fin Ejecución"},
		}},
	},
}

// LayoutFor returns the review sections of a document type. Unknown types have none.
func LayoutFor(t domain.DocumentType) []Section {
	return layouts[t]
}
