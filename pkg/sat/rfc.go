package sat

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Tipos de contribuyente según la longitud del RFC.
const (
	RFCMoral       = "moral"  // 12 caracteres
	RFCFisica      = "fisica" // 13 caracteres
	RFCDesconocido = "desconocido"
)

// RFCGenerico es el RFC de público en general.
const RFCGenerico = "XAXX010101000"

var (
	rfcMoralRe  = regexp.MustCompile(`^[A-ZÑ&]{3}\d{6}[A-Z0-9]{3}$`)
	rfcFisicaRe = regexp.MustCompile(`^[A-ZÑ&]{4}\d{6}[A-Z0-9]{3}$`)
	productRe   = regexp.MustCompile(`^\d{8}$`)
	unitRe      = regexp.MustCompile(`^[A-Z0-9]{3,4}$`)
	postalRe    = regexp.MustCompile(`^\d{5}$`)
)

// Issue es un error o advertencia de validación.
type Issue struct {
	Campo   string `json:"campo"`
	Mensaje string `json:"mensaje"`
	Codigo  string `json:"codigo"`
}

// Result es el resultado de validar un campo.
type Result struct {
	Valid      bool    `json:"valido"`
	Errors     []Issue `json:"errores"`
	Warnings   []Issue `json:"advertencias"`
	Normalized string  `json:"rfc_validado,omitempty"`
	Kind       string  `json:"tipo,omitempty"`
}

func ok() Result { return Result{Valid: true, Errors: []Issue{}, Warnings: []Issue{}} }

func fail(campo, codigo, format string, args ...any) Result {
	return Result{
		Errors:   []Issue{{Campo: campo, Mensaje: fmt.Sprintf(format, args...), Codigo: codigo}},
		Warnings: []Issue{},
	}
}

// NormalizeRFC quita espacios y guiones y pasa a mayúsculas.
func NormalizeRFC(rfc string) string {
	rfc = strings.Join(strings.Fields(rfc), "")
	rfc = strings.ReplaceAll(rfc, "-", "")
	return strings.ToUpper(rfc)
}

// ValidateRFC valida longitud y formato del RFC; fecha con mes o día fuera de rango solo advierte.
func ValidateRFC(rfc string) Result {
	if strings.TrimSpace(rfc) == "" {
		return fail("RFC", "RFC_REQUERIDO", "El RFC es requerido")
	}
	rfc = NormalizeRFC(rfc)
	n := utf8.RuneCountInString(rfc)
	if n != 12 && n != 13 {
		r := fail("RFC", "RFC_LONGITUD_INVALIDA",
			"El RFC debe tener 12 caracteres (persona moral) o 13 caracteres (persona física). Longitud actual: %d", n)
		r.Normalized = rfc
		return r
	}

	r := ok()
	r.Normalized = rfc
	dateStart := 4
	if n == 12 {
		r.Kind = RFCMoral
		dateStart = 3
		if !rfcMoralRe.MatchString(rfc) {
			r.Errors = append(r.Errors, Issue{
				Campo:   "RFC",
				Mensaje: fmt.Sprintf("El RFC de persona moral no cumple con el formato válido. Debe tener 3 letras, 6 dígitos y 3 alfanuméricos (ejemplo: NME850101AA3). RFC recibido: %q", rfc),
				Codigo:  "RFC_FORMATO_INVALIDO",
			})
		}
	} else {
		r.Kind = RFCFisica
		if !rfcFisicaRe.MatchString(rfc) {
			r.Errors = append(r.Errors, Issue{
				Campo:   "RFC",
				Mensaje: fmt.Sprintf("El RFC de persona física no cumple con el formato válido. Debe tener 4 letras, 6 dígitos y 3 alfanuméricos (ejemplo: XAXX010101000). RFC recibido: %q", rfc),
				Codigo:  "RFC_FORMATO_INVALIDO",
			})
		}
	}

	if len(r.Errors) == 0 {
		// El formato ya garantizó letras ASCII/Ñ al inicio; se trabaja por runas.
		runes := []rune(rfc)
		date := string(runes[dateStart : dateStart+6])
		month, _ := strconv.Atoi(date[2:4])
		day, _ := strconv.Atoi(date[4:6])
		if month < 1 || month > 12 {
			r.Warnings = append(r.Warnings, Issue{Campo: "RFC", Mensaje: fmt.Sprintf("El mes en el RFC parece inválido: %d", month), Codigo: "RFC_MES_INVALIDO"})
		}
		if day < 1 || day > 31 {
			r.Warnings = append(r.Warnings, Issue{Campo: "RFC", Mensaje: fmt.Sprintf("El día en el RFC parece inválido: %d", day), Codigo: "RFC_DIA_INVALIDO"})
		}
	}
	r.Valid = len(r.Errors) == 0
	return r
}

// RFCKind devuelve moral, fisica o desconocido según la longitud del RFC normalizado.
func RFCKind(rfc string) string {
	switch utf8.RuneCountInString(NormalizeRFC(rfc)) {
	case 12:
		return RFCMoral
	case 13:
		return RFCFisica
	default:
		return RFCDesconocido
	}
}

// ValidateProductCode exige 8 dígitos; una clave fuera del catálogo básico solo advierte.
func ValidateProductCode(code string) Result {
	if code == "" {
		return fail("ClaveSAT", "CLAVE_SAT_REQUERIDA", "La clave de producto SAT es requerida")
	}
	if !productRe.MatchString(code) {
		return fail("ClaveSAT", "CLAVE_SAT_FORMATO_INVALIDO", "La clave SAT debe tener 8 dígitos")
	}
	r := ok()
	if !InCatalog(CatalogProducto, code) {
		r.Warnings = append(r.Warnings, Issue{
			Campo:   "ClaveSAT",
			Mensaje: fmt.Sprintf("La clave %s no está en el catálogo básico. Verifique que sea correcta.", code),
			Codigo:  "CLAVE_SAT_NO_CATALOGO",
		})
	}
	return r
}

// ValidateUnitCode exige 3 o 4 alfanuméricos en mayúsculas; fuera de catálogo solo advierte.
func ValidateUnitCode(code string) Result {
	if code == "" {
		return fail("UnidadSAT", "UNIDAD_SAT_REQUERIDA", "La clave de unidad SAT es requerida")
	}
	if !unitRe.MatchString(code) {
		return fail("UnidadSAT", "UNIDAD_SAT_FORMATO_INVALIDO", "La clave de unidad SAT debe tener 3-4 caracteres alfanuméricos")
	}
	r := ok()
	if !InCatalog(CatalogUnidad, code) {
		r.Warnings = append(r.Warnings, Issue{
			Campo:   "UnidadSAT",
			Mensaje: fmt.Sprintf("La unidad %s no está en el catálogo básico. Verifique que sea correcta.", code),
			Codigo:  "UNIDAD_SAT_NO_CATALOGO",
		})
	}
	return r
}

// ValidateRegime valida contra c_RegimenFiscal.
func ValidateRegime(code string) Result {
	if code == "" {
		return fail("RegimenFiscal", "REGIMEN_REQUERIDO", "El régimen fiscal es requerido")
	}
	if !InCatalog(CatalogRegimen, code) {
		return fail("RegimenFiscal", "REGIMEN_INVALIDO", "El régimen fiscal %s no es válido según el catálogo SAT", code)
	}
	return ok()
}

// ValidateCFDIUse valida contra c_UsoCFDI.
func ValidateCFDIUse(code string) Result {
	if code == "" {
		return fail("UsoCFDI", "USO_CFDI_REQUERIDO", "El uso de CFDI es requerido")
	}
	if !InCatalog(CatalogUsoCFDI, code) {
		return fail("UsoCFDI", "USO_CFDI_INVALIDO", "El uso de CFDI %s no es válido según el catálogo SAT", code)
	}
	return ok()
}

// ValidatePostalCode exige 5 dígitos dentro de 01000-99999.
func ValidatePostalCode(cp string) Result {
	if cp == "" {
		return fail("CodigoPostal", "CP_REQUERIDO", "El código postal es requerido")
	}
	if !postalRe.MatchString(cp) {
		return fail("CodigoPostal", "CP_FORMATO_INVALIDO", "El código postal debe tener 5 dígitos")
	}
	n, _ := strconv.Atoi(cp)
	if n < 1000 {
		return fail("CodigoPostal", "CP_RANGO_INVALIDO", "El código postal está fuera del rango válido")
	}
	return ok()
}
