package cfdi

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/fletes-api/pkg/sat"
)

// Ambientes de validación.
const (
	AmbienteSandbox    = "sandbox"
	AmbienteProduccion = "produccion"
)

// ValidationInput son los datos que se revisan antes de timbrar.
type ValidationInput struct {
	RFCEmisor            string
	RFCCliente           string
	RegimenFiscalCliente string
	UsoCFDICliente       string
	CPCliente            string
	Conceptos            []ConceptInput
	TipoTransporte       string
	OperadorID           int64
	VehiculoID           int64
	Ubicaciones          int
	Subtotal             decimal.Decimal
	Total                decimal.Decimal
}

// ConceptInput es un concepto a validar.
type ConceptInput struct {
	Descripcion    string
	Cantidad       decimal.Decimal
	PrecioUnitario decimal.Decimal
	ClaveSAT       string
	UnidadSAT      string
}

// ConceptReport es el detalle de validación de un concepto.
type ConceptReport struct {
	Indice       int         `json:"indice"`
	Descripcion  string      `json:"descripcion"`
	Valido       bool        `json:"valido"`
	Errores      []sat.Issue `json:"errores"`
	Advertencias []sat.Issue `json:"advertencias"`
}

// SectionReport es el detalle de una sección (carta porte).
type SectionReport struct {
	Valido       bool        `json:"valido"`
	Errores      []sat.Issue `json:"errores"`
	Advertencias []sat.Issue `json:"advertencias"`
}

// ReportDetails agrupa el detalle por sección.
type ReportDetails struct {
	Emisor     sat.Result      `json:"emisor"`
	Receptor   sat.Result      `json:"receptor"`
	Conceptos  []ConceptReport `json:"conceptos"`
	CartaPorte SectionReport   `json:"carta_porte"`
}

// ValidationReport es el resultado de la validación previa al timbrado.
type ValidationReport struct {
	Valida          bool          `json:"valida"`
	Ambiente        string        `json:"ambiente"`
	FechaValidacion time.Time     `json:"fecha_validacion"`
	Errores         []sat.Issue   `json:"errores"`
	Advertencias    []sat.Issue   `json:"advertencias"`
	Detalles        ReportDetails `json:"detalles"`
}

func (r *ValidationReport) addError(campo, mensaje, codigo string) {
	r.Errores = append(r.Errores, sat.Issue{Campo: campo, Mensaje: mensaje, Codigo: codigo})
	r.Valida = false
}

func prefixed(prefix string, issues []sat.Issue) []sat.Issue {
	out := make([]sat.Issue, 0, len(issues))
	for _, i := range issues {
		i.Campo = prefix + i.Campo
		out = append(out, i)
	}
	return out
}

// merge incorpora un resultado de campo con prefijo en el nombre del campo.
func (r *ValidationReport) merge(prefix string, res sat.Result) {
	if !res.Valid {
		r.Errores = append(r.Errores, prefixed(prefix, res.Errors)...)
		r.Valida = false
	}
	r.Advertencias = append(r.Advertencias, prefixed(prefix, res.Warnings)...)
}

// ValidateInvoice revisa emisor, receptor, conceptos, carta porte y totales.
// Nunca falla: todo hallazgo queda en el reporte.
func ValidateInvoice(in ValidationInput, ambiente string, now time.Time) ValidationReport {
	if ambiente == "" {
		ambiente = AmbienteSandbox
	}
	r := ValidationReport{
		Valida:          true,
		Ambiente:        ambiente,
		FechaValidacion: now,
		Errores:         []sat.Issue{},
		Advertencias:    []sat.Issue{},
		Detalles: ReportDetails{
			Emisor:     sat.Result{Errors: []sat.Issue{}, Warnings: []sat.Issue{}},
			Receptor:   sat.Result{Errors: []sat.Issue{}, Warnings: []sat.Issue{}},
			Conceptos:  []ConceptReport{},
			CartaPorte: SectionReport{Valido: true, Errores: []sat.Issue{}, Advertencias: []sat.Issue{}},
		},
	}

	// 1. Emisor
	if in.RFCEmisor != "" {
		res := sat.ValidateRFC(in.RFCEmisor)
		r.Detalles.Emisor = res
		r.merge("Emisor.", res)
	} else {
		r.addError("Emisor.RFC", "El RFC del emisor es requerido", "RFC_EMISOR_REQUERIDO")
	}

	// 2. Receptor
	if in.RFCCliente != "" {
		res := sat.ValidateRFC(in.RFCCliente)
		r.Detalles.Receptor = res
		r.merge("Receptor.", res)
	} else {
		r.addError("Receptor.RFC", "El RFC del receptor es requerido", "RFC_RECEPTOR_REQUERIDO")
	}
	if in.RegimenFiscalCliente != "" {
		r.merge("Receptor.", sat.ValidateRegime(in.RegimenFiscalCliente))
	} else {
		r.addError("Receptor.RegimenFiscal", "El régimen fiscal del receptor es requerido", "REGIMEN_RECEPTOR_REQUERIDO")
	}
	if in.UsoCFDICliente != "" {
		r.merge("Receptor.", sat.ValidateCFDIUse(in.UsoCFDICliente))
	} else {
		r.addError("Receptor.UsoCFDI", "El uso de CFDI es requerido", "USO_CFDI_RECEPTOR_REQUERIDO")
	}
	if in.CPCliente != "" {
		r.merge("Receptor.", sat.ValidatePostalCode(in.CPCliente))
	} else {
		r.addError("Receptor.CodigoPostal", "El código postal del receptor es requerido", "CP_RECEPTOR_REQUERIDO")
	}

	// 3. Conceptos
	if len(in.Conceptos) == 0 {
		r.addError("Conceptos", "La factura debe tener al menos un concepto", "CONCEPTOS_REQUERIDOS")
	}
	for i, c := range in.Conceptos {
		r.validateConcept(i, c)
	}

	// 4. Carta porte (solo si aplica)
	if in.TipoTransporte == "autotransporte" || in.OperadorID != 0 {
		cp := &r.Detalles.CartaPorte
		if in.OperadorID == 0 {
			cp.Errores = append(cp.Errores, sat.Issue{Campo: "Operador", Mensaje: "Se requiere un operador para Carta Porte", Codigo: "OPERADOR_REQUERIDO"})
		}
		if in.VehiculoID == 0 {
			cp.Errores = append(cp.Errores, sat.Issue{Campo: "Vehiculo", Mensaje: "Se requiere un vehículo para Carta Porte", Codigo: "VEHICULO_REQUERIDO"})
		}
		if in.Ubicaciones < 2 {
			cp.Advertencias = append(cp.Advertencias, sat.Issue{Campo: "Ubicaciones", Mensaje: "Se recomienda tener al menos origen y destino para Carta Porte", Codigo: "UBICACIONES_INCOMPLETAS"})
		}
		if len(cp.Errores) > 0 {
			cp.Valido = false
			r.Errores = append(r.Errores, cp.Errores...)
			r.Valida = false
		}
		r.Advertencias = append(r.Advertencias, cp.Advertencias...)
	}

	// 5. Totales
	if !in.Subtotal.IsPositive() {
		r.addError("Subtotal", "El subtotal debe ser mayor a 0", "SUBTOTAL_INVALIDO")
	}
	if !in.Total.IsPositive() {
		r.addError("Total", "El total debe ser mayor a 0", "TOTAL_INVALIDO")
	}
	return r
}

func (r *ValidationReport) validateConcept(i int, c ConceptInput) {
	cr := ConceptReport{
		Indice:       i + 1,
		Descripcion:  c.Descripcion,
		Valido:       true,
		Errores:      []sat.Issue{},
		Advertencias: []sat.Issue{},
	}
	if cr.Descripcion == "" {
		cr.Descripcion = fmt.Sprintf("Concepto %d", i+1)
	}
	prefix := fmt.Sprintf("Concepto[%d].", i)

	if strings.TrimSpace(c.Descripcion) == "" {
		cr.Errores = append(cr.Errores, sat.Issue{Campo: "Descripcion", Mensaje: "La descripción del concepto es requerida", Codigo: "DESCRIPCION_REQUERIDA"})
	}
	if !c.Cantidad.IsPositive() {
		cr.Errores = append(cr.Errores, sat.Issue{Campo: "Cantidad", Mensaje: "La cantidad debe ser mayor a 0", Codigo: "CANTIDAD_INVALIDA"})
	}
	if !c.PrecioUnitario.IsPositive() {
		cr.Errores = append(cr.Errores, sat.Issue{Campo: "PrecioUnitario", Mensaje: "El precio unitario debe ser mayor a 0", Codigo: "PRECIO_INVALIDO"})
	}

	if c.ClaveSAT != "" {
		res := sat.ValidateProductCode(c.ClaveSAT)
		cr.Errores = append(cr.Errores, res.Errors...)
		cr.Advertencias = append(cr.Advertencias, res.Warnings...)
		r.Advertencias = append(r.Advertencias, prefixed(prefix, res.Warnings)...)
	} else {
		cr.Advertencias = append(cr.Advertencias, sat.Issue{Campo: "ClaveSAT", Mensaje: "La clave SAT no fue proporcionada, se usará una genérica", Codigo: "CLAVE_SAT_NO_PROVISTA"})
		r.Advertencias = append(r.Advertencias, sat.Issue{Campo: prefix + "ClaveSAT", Mensaje: "Se usará clave SAT genérica " + sat.ProductoGenerico, Codigo: "CLAVE_SAT_DEFAULT"})
	}

	if c.UnidadSAT != "" {
		res := sat.ValidateUnitCode(c.UnidadSAT)
		cr.Errores = append(cr.Errores, res.Errors...)
		cr.Advertencias = append(cr.Advertencias, res.Warnings...)
		r.Advertencias = append(r.Advertencias, prefixed(prefix, res.Warnings)...)
	} else {
		cr.Advertencias = append(cr.Advertencias, sat.Issue{Campo: "UnidadSAT", Mensaje: "La unidad SAT no fue proporcionada, se usará H87 (Pieza)", Codigo: "UNIDAD_SAT_NO_PROVISTA"})
		r.Advertencias = append(r.Advertencias, sat.Issue{Campo: prefix + "UnidadSAT", Mensaje: "Se usará unidad SAT genérica " + sat.UnidadPieza, Codigo: "UNIDAD_SAT_DEFAULT"})
	}

	if len(cr.Errores) > 0 {
		cr.Valido = false
		r.Valida = false
		r.Errores = append(r.Errores, prefixed(prefix, cr.Errores)...)
	}
	r.Detalles.Conceptos = append(r.Detalles.Conceptos, cr)
}
