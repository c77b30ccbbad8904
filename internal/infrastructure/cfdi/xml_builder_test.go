package cfdi

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domaincfdi "github.com/jhoicas/fletes-api/internal/domain/cfdi"
	"github.com/jhoicas/fletes-api/internal/domain/entity"
)

type stubSigner struct {
	unsigned []byte
	sealErr  error
}

func (s *stubSigner) Seal(_ context.Context, unsigned []byte) (domaincfdi.Seal, error) {
	s.unsigned = unsigned
	if s.sealErr != nil {
		return domaincfdi.Seal{}, s.sealErr
	}
	return domaincfdi.Seal{Sello: "SELLO==", Certificado: "CERT", NoCertificado: "00001000000500000000"}, nil
}

func (s *stubSigner) Stamp(_ context.Context, sello string) (domaincfdi.Timbre, error) {
	return domaincfdi.Timbre{
		UUID:             "6f1c2a9e-0b7d-4c1e-9d3a-7e5b1c0a2f44",
		FechaTimbrado:    time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC),
		RfcProvCertif:    domaincfdi.RfcProvCertifSAT,
		SelloCFD:         sello,
		NoCertificadoSAT: "00001000000504465028",
		SelloSAT:         "SAT==",
	}, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func pdec(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func newTestBuilder(s domaincfdi.Signer) *XMLBuilderService {
	b := NewXMLBuilderService(s)
	b.now = func() time.Time { return time.Date(2026, 10, 15, 11, 59, 30, 0, time.UTC) }
	return b
}

func parse(t *testing.T, data []byte) *etree.Element {
	t.Helper()
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(data))
	require.NotNil(t, doc.Root())
	return doc.Root()
}

func TestRenderXML_FolioYTotales(t *testing.T) {
	inv := &entity.Invoice{
		ID:    12,
		Folio: "A-100",
		Total: dec("1000"),
		Conceptos: []entity.Concepto{{
			Descripcion: "Flete", Cantidad: dec("1"), PrecioUnitario: dec("1000"), Importe: dec("1000"),
		}},
	}
	company := &entity.Company{RFC: "TRA850101AB1", RazonSocial: "TRANSPORTES DEL BAJIO", RegimenFiscal: "601"}

	data, err := newTestBuilder(&stubSigner{}).RenderXML(context.Background(), inv, company)
	require.NoError(t, err)
	assert.Contains(t, string(data), `Folio="A-100"`)
	assert.Contains(t, string(data), `Total="1000.00"`)

	root := parse(t, data)
	assert.Equal(t, "cfdi:Comprobante", root.FullTag())
	assert.Equal(t, "4.0", root.SelectAttrValue("Version", ""))
	assert.Equal(t, "2026-10-15T11:59:30", root.SelectAttrValue("Fecha", ""))
	assert.Equal(t, "SELLO==", root.SelectAttrValue("Sello", ""))
	assert.Equal(t, "CERT", root.SelectAttrValue("Certificado", ""))
	assert.Equal(t, "1000.00", root.SelectAttrValue("SubTotal", ""))
	assert.Equal(t, "PUE", root.SelectAttrValue("MetodoPago", ""))

	emisor := root.SelectElement("cfdi:Emisor")
	require.NotNil(t, emisor)
	assert.Equal(t, "TRA850101AB1", emisor.SelectAttrValue("Rfc", ""))

	concepto := root.FindElement("cfdi:Conceptos/cfdi:Concepto")
	require.NotNil(t, concepto)
	assert.Equal(t, "01010101", concepto.SelectAttrValue("ClaveProdServ", ""))
	assert.Equal(t, "H87", concepto.SelectAttrValue("ClaveUnidad", ""))
	tr := concepto.FindElement("cfdi:Impuestos/cfdi:Traslados/cfdi:Traslado")
	require.NotNil(t, tr)
	assert.Equal(t, "0.160000", tr.SelectAttrValue("TasaOCuota", ""))
	assert.Equal(t, "160.00", tr.SelectAttrValue("Importe", ""))
	assert.Nil(t, concepto.FindElement("cfdi:Impuestos/cfdi:Retenciones"))

	tfd := root.FindElement("cfdi:Complemento/tfd:TimbreFiscalDigital")
	require.NotNil(t, tfd)
	assert.Equal(t, "1.1", tfd.SelectAttrValue("Version", ""))
	assert.Equal(t, "SELLO==", tfd.SelectAttrValue("SelloCFD", ""))
	assert.Equal(t, domaincfdi.RfcProvCertifSAT, tfd.SelectAttrValue("RfcProvCertif", ""))
}

func TestRenderXML_SinEmpresaUsaValoresGenericos(t *testing.T) {
	inv := &entity.Invoice{ID: 7, Total: dec("116")}
	data, err := newTestBuilder(&stubSigner{}).RenderXML(context.Background(), inv, nil)
	require.NoError(t, err)

	root := parse(t, data)
	assert.Equal(t, "7", root.SelectAttrValue("Folio", ""))
	assert.Equal(t, "78000", root.SelectAttrValue("LugarExpedicion", ""))
	assert.Equal(t, "99", root.SelectAttrValue("FormaPago", ""))

	emisor := root.SelectElement("cfdi:Emisor")
	assert.Equal(t, FallbackRFC, emisor.SelectAttrValue("Rfc", ""))
	assert.Equal(t, FallbackNombreEmisor, emisor.SelectAttrValue("Nombre", ""))
	assert.Equal(t, "601", emisor.SelectAttrValue("RegimenFiscal", ""))

	receptor := root.SelectElement("cfdi:Receptor")
	assert.Equal(t, FallbackNombreReceptor, receptor.SelectAttrValue("Nombre", ""))
	assert.Equal(t, "78000", receptor.SelectAttrValue("DomicilioFiscalReceptor", ""))
	assert.Equal(t, "S01", receptor.SelectAttrValue("UsoCFDI", ""))
}

func TestRenderXML_TrasladosAntesQueRetenciones(t *testing.T) {
	inv := &entity.Invoice{
		Folio: "B-1",
		Total: dec("1120"),
		Conceptos: []entity.Concepto{{
			Descripcion: "Flete con retención", Cantidad: dec("1"), PrecioUnitario: dec("1000"), Importe: dec("1000"),
			Tasas: entity.TaxRates{RetencionIVA: pdec("4")},
		}},
	}
	data, err := newTestBuilder(&stubSigner{}).RenderXML(context.Background(), inv, nil)
	require.NoError(t, err)
	root := parse(t, data)

	imp := root.FindElement("cfdi:Conceptos/cfdi:Concepto/cfdi:Impuestos")
	require.NotNil(t, imp)
	children := imp.ChildElements()
	require.Len(t, children, 2)
	assert.Equal(t, "cfdi:Traslados", children[0].FullTag())
	assert.Equal(t, "cfdi:Retenciones", children[1].FullTag())
	ret := children[1].SelectElement("cfdi:Retencion")
	assert.Equal(t, "002", ret.SelectAttrValue("Impuesto", ""))
	assert.Equal(t, "0.040000", ret.SelectAttrValue("TasaOCuota", ""))
	assert.Equal(t, "40.00", ret.SelectAttrValue("Importe", ""))

	agg := root.SelectElement("cfdi:Impuestos")
	require.NotNil(t, agg)
	assert.Equal(t, "160.00", agg.SelectAttrValue("TotalImpuestosTrasladados", ""))
	assert.Equal(t, "40.00", agg.SelectAttrValue("TotalImpuestosRetenidos", ""))
	aggRet := agg.FindElement("cfdi:Retenciones/cfdi:Retencion")
	require.NotNil(t, aggRet)
	assert.Equal(t, "", aggRet.SelectAttrValue("TasaOCuota", ""))
}

func TestRenderXML_SelladoSobreComprobanteSinSello(t *testing.T) {
	s := &stubSigner{}
	_, err := newTestBuilder(s).RenderXML(context.Background(), &entity.Invoice{Folio: "C-1", Total: dec("1")}, nil)
	require.NoError(t, err)
	assert.Contains(t, string(s.unsigned), `Sello=""`)
	assert.NotContains(t, string(s.unsigned), "TimbreFiscalDigital")
}

func TestRenderXML_ErrorDelSigner(t *testing.T) {
	_, err := newTestBuilder(&stubSigner{sealErr: errors.New("llave inválida")}).
		RenderXML(context.Background(), &entity.Invoice{Folio: "C-2"}, nil)
	assert.ErrorContains(t, err, "llave inválida")
}
