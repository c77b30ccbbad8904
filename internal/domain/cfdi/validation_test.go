package cfdi_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fletes-api/internal/domain/cfdi"
)

func validInput() cfdi.ValidationInput {
	return cfdi.ValidationInput{
		RFCEmisor:            "TRA850101AB1",
		RFCCliente:           "XAXX010101000",
		RegimenFiscalCliente: "616",
		UsoCFDICliente:       "S01",
		CPCliente:            "78140",
		Conceptos: []cfdi.ConceptInput{{
			Descripcion:    "Flete San Luis - Monterrey",
			Cantidad:       d("1"),
			PrecioUnitario: d("1000"),
			ClaveSAT:       "78101704",
			UnidadSAT:      "H87",
		}},
		Subtotal: d("1000"),
		Total:    d("1160"),
	}
}

func TestValidateInvoice_FacturaCompletaValida(t *testing.T) {
	now := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	r := cfdi.ValidateInvoice(validInput(), "", now)

	assert.True(t, r.Valida)
	assert.Equal(t, cfdi.AmbienteSandbox, r.Ambiente)
	assert.Equal(t, now, r.FechaValidacion)
	assert.Empty(t, r.Errores)
	assert.Empty(t, r.Advertencias)
	require.Len(t, r.Detalles.Conceptos, 1)
	assert.True(t, r.Detalles.Conceptos[0].Valido)
	assert.Equal(t, "moral", r.Detalles.Emisor.Kind)
}

func TestValidateInvoice_ErroresConPrefijo(t *testing.T) {
	in := validInput()
	in.RFCEmisor = ""
	in.RFCCliente = "BAD"
	in.UsoCFDICliente = "ZZZ"
	in.Total = d("0")

	r := cfdi.ValidateInvoice(in, cfdi.AmbienteProduccion, time.Now())
	require.False(t, r.Valida)

	campos := map[string]string{}
	for _, e := range r.Errores {
		campos[e.Campo] = e.Codigo
	}
	assert.Equal(t, "RFC_EMISOR_REQUERIDO", campos["Emisor.RFC"])
	assert.Equal(t, "RFC_LONGITUD_INVALIDA", campos["Receptor.RFC"])
	assert.Equal(t, "USO_CFDI_INVALIDO", campos["Receptor.UsoCFDI"])
	assert.Equal(t, "TOTAL_INVALIDO", campos["Total"])
}

func TestValidateInvoice_ConceptoSinClavesSoloAdvierte(t *testing.T) {
	in := validInput()
	in.Conceptos[0].ClaveSAT = ""
	in.Conceptos[0].UnidadSAT = ""

	r := cfdi.ValidateInvoice(in, "", time.Now())
	assert.True(t, r.Valida)
	require.Len(t, r.Advertencias, 2)
	assert.Equal(t, "Concepto[0].ClaveSAT", r.Advertencias[0].Campo)
	assert.Equal(t, "CLAVE_SAT_DEFAULT", r.Advertencias[0].Codigo)
	assert.Len(t, r.Detalles.Conceptos[0].Advertencias, 2)
}

func TestValidateInvoice_ConceptoInvalido(t *testing.T) {
	in := validInput()
	in.Conceptos[0].Cantidad = d("0")
	in.Conceptos[0].ClaveSAT = "123"

	r := cfdi.ValidateInvoice(in, "", time.Now())
	require.False(t, r.Valida)
	assert.False(t, r.Detalles.Conceptos[0].Valido)

	campos := []string{}
	for _, e := range r.Errores {
		campos = append(campos, e.Campo)
	}
	assert.ElementsMatch(t, []string{"Concepto[0].Cantidad", "Concepto[0].ClaveSAT"}, campos)
}

func TestValidateInvoice_CartaPorteSinVehiculo(t *testing.T) {
	in := validInput()
	in.OperadorID = 7
	in.Ubicaciones = 1

	r := cfdi.ValidateInvoice(in, "", time.Now())
	require.False(t, r.Valida)
	assert.False(t, r.Detalles.CartaPorte.Valido)
	assert.Equal(t, "VEHICULO_REQUERIDO", r.Errores[0].Codigo)
	assert.Equal(t, "UBICACIONES_INCOMPLETAS", r.Advertencias[0].Codigo)
}

func TestValidateInvoice_SinConceptos(t *testing.T) {
	in := validInput()
	in.Conceptos = nil
	r := cfdi.ValidateInvoice(in, "", time.Now())
	assert.False(t, r.Valida)
	assert.Equal(t, "CONCEPTOS_REQUERIDOS", r.Errores[0].Codigo)
}
