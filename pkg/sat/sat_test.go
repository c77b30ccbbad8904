package sat_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fletes-api/pkg/sat"
)

func TestValidateRFC_PersonaMoralValida(t *testing.T) {
	r := sat.ValidateRFC(" nme-850101-aa3 ")
	require.True(t, r.Valid)
	assert.Equal(t, "NME850101AA3", r.Normalized)
	assert.Equal(t, sat.RFCMoral, r.Kind)
	assert.Empty(t, r.Warnings)
}

func TestValidateRFC_PersonaFisicaGenerica(t *testing.T) {
	r := sat.ValidateRFC(sat.RFCGenerico)
	require.True(t, r.Valid)
	assert.Equal(t, sat.RFCFisica, r.Kind)
}

func TestValidateRFC_ConÑ(t *testing.T) {
	r := sat.ValidateRFC("ÑAÑ850101AA3")
	assert.True(t, r.Valid)
	assert.Equal(t, sat.RFCMoral, r.Kind)
}

func TestValidateRFC_LongitudInvalida(t *testing.T) {
	r := sat.ValidateRFC("ABC123")
	require.False(t, r.Valid)
	require.Len(t, r.Errors, 1)
	assert.Equal(t, "RFC_LONGITUD_INVALIDA", r.Errors[0].Codigo)
	assert.Contains(t, r.Errors[0].Mensaje, "Longitud actual: 6")
}

func TestValidateRFC_FormatoInvalido(t *testing.T) {
	r := sat.ValidateRFC("NM1850101AA3")
	require.False(t, r.Valid)
	assert.Equal(t, "RFC_FORMATO_INVALIDO", r.Errors[0].Codigo)
}

func TestValidateRFC_FechaSospechosaSoloAdvierte(t *testing.T) {
	r := sat.ValidateRFC("NME851341AA3")
	require.True(t, r.Valid)
	codes := []string{}
	for _, w := range r.Warnings {
		codes = append(codes, w.Codigo)
	}
	assert.ElementsMatch(t, []string{"RFC_MES_INVALIDO", "RFC_DIA_INVALIDO"}, codes)
}

func TestValidateRFC_Vacio(t *testing.T) {
	r := sat.ValidateRFC("  ")
	assert.False(t, r.Valid)
	assert.Equal(t, "RFC_REQUERIDO", r.Errors[0].Codigo)
}

func TestValidateProductCode(t *testing.T) {
	assert.True(t, sat.ValidateProductCode("78101704").Valid)

	fuera := sat.ValidateProductCode("12345678")
	assert.True(t, fuera.Valid)
	require.Len(t, fuera.Warnings, 1)
	assert.Equal(t, "CLAVE_SAT_NO_CATALOGO", fuera.Warnings[0].Codigo)

	assert.False(t, sat.ValidateProductCode("1234").Valid)
	assert.False(t, sat.ValidateProductCode("").Valid)
}

func TestValidateUnitCode(t *testing.T) {
	assert.True(t, sat.ValidateUnitCode("H87").Valid)
	assert.Len(t, sat.ValidateUnitCode("E48").Warnings, 1)
	assert.False(t, sat.ValidateUnitCode("h87").Valid)
	assert.False(t, sat.ValidateUnitCode("H8").Valid)
}

func TestValidateRegimeYUso(t *testing.T) {
	assert.True(t, sat.ValidateRegime("616").Valid)
	assert.False(t, sat.ValidateRegime("999").Valid)
	assert.True(t, sat.ValidateCFDIUse("CP01").Valid)
	assert.False(t, sat.ValidateCFDIUse("X01").Valid)
}

func TestValidatePostalCode(t *testing.T) {
	assert.True(t, sat.ValidatePostalCode("78140").Valid)
	assert.Equal(t, "CP_FORMATO_INVALIDO", sat.ValidatePostalCode("7814").Errors[0].Codigo)
	assert.Equal(t, "CP_RANGO_INVALIDO", sat.ValidatePostalCode("00999").Errors[0].Codigo)
}

func TestExtend_AgregaClavesAlCatalogo(t *testing.T) {
	assert.False(t, sat.InCatalog(sat.CatalogUnidad, "E54"))
	added := sat.Extend(sat.CatalogUnidad, "E54", "H87", "")
	assert.Equal(t, 1, added)
	assert.True(t, sat.InCatalog(sat.CatalogUnidad, "E54"))
	assert.Equal(t, 0, sat.Extend("c_Desconocido", "X"))
}
