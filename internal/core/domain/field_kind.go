package domain

import "strings"

// FieldKind is the semantic data category of a field. It is derived from the key and never stored.
type FieldKind string

const (
	KindStrictText    FieldKind = "strict_text"
	KindLongText      FieldKind = "long_text"
	KindNumericStrict FieldKind = "numeric_strict"
	KindCurrency      FieldKind = "currency"
	KindPercentage    FieldKind = "percentage"
	KindDate          FieldKind = "date"
)

var exactFieldKinds = map[string]FieldKind{
	"estado_poliza":        KindStrictText,
	"cobertura_asistencia": KindStrictText,
	"estatura":             KindStrictText,
	"ramo":                 KindStrictText,
	"asegurado":            KindStrictText,
	"nombres":              KindStrictText,
	"apellidos":            KindStrictText,
	"rh":                   KindStrictText,
	"sexo":                 KindStrictText,
	"lugar_nacimiento":     KindStrictText,
	"lugar_expedicion":     KindStrictText,
	"contratante_nombre":   KindStrictText,
	"contratista_nombre":   KindStrictText,

	"objeto_del_contrato_texto": KindLongText,

	"cobertura_daños": KindPercentage,
	"cobertura_hurto": KindPercentage,

	"identificacion":             KindNumericStrict,
	"cedula":                     KindNumericStrict,
	"nit":                        KindNumericStrict,
	"telefono":                   KindNumericStrict,
	"numero_poliza":              KindNumericStrict,
	"numero_contrato":            KindNumericStrict,
	"contratista_identificacion": KindNumericStrict,
	"contratante_nit":            KindNumericStrict,
	"numero_identificacion":      KindNumericStrict,
}

// Keys not listed exactly fall back to name fragments, in this order.
var fragmentFieldKinds = []struct {
	kind      FieldKind
	fragments []string
}{
	{kind: KindCurrency, fragments: []string{"valor", "monto"}},
	{kind: KindDate, fragments: []string{"fecha", "vigencia", "nacimiento", "duracion"}},
}

// KindOf infers the field kind from the key alone. Unknown keys are LongText.
func KindOf(key string) FieldKind {
	k := strings.ToLower(strings.TrimSpace(key))
	if kind, ok := exactFieldKinds[k]; ok {
		return kind
	}
	for _, rule := range fragmentFieldKinds {
		for _, fragment := range rule.fragments {
			if strings.Contains(k, fragment) {
				return rule.kind
			}
		}
	}
	return KindLongText
}
