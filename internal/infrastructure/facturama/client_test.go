package facturama

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fletes-api/internal/domain"
	"github.com/jhoicas/fletes-api/internal/domain/entity"
	"github.com/jhoicas/fletes-api/pkg/config"
)

func pct(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}

func TestBuildInvoice_ValoresPorDefectoEImpuestos(t *testing.T) {
	pid := int64(42)
	inv := &entity.Invoice{
		Folio:      "F-9",
		Cliente:    "CLIENTE SA",
		RFCCliente: "CLI010101AB1",
		Conceptos: []entity.Concepto{
			{Descripcion: "Flete", Cantidad: decimal.NewFromInt(1), PrecioUnitario: decimal.NewFromInt(1000), Importe: decimal.NewFromInt(1000),
				Tasas: entity.TaxRates{RetencionIVA: pct(4)}},
			{ProductID: &pid, Descripcion: "Maniobra", Cantidad: decimal.NewFromInt(2), PrecioUnitario: decimal.NewFromInt(50), Importe: decimal.NewFromInt(100),
				Tasas: entity.TaxRates{IVA: pct(0)}},
		},
	}

	p := BuildInvoice(inv)
	assert.Equal(t, "78140", p.ExpeditionPlace)
	assert.Equal(t, "CREDITO", p.PaymentConditions)
	assert.Equal(t, "PPD", p.PaymentMethod)
	assert.Equal(t, "99", p.PaymentForm)
	assert.Equal(t, "S01", p.Receiver.CfdiUse)
	assert.Equal(t, "616", p.Receiver.FiscalRegime)
	require.Len(t, p.Items, 2)

	first := p.Items[0]
	assert.Equal(t, "GENERICO", first.IdentificationNumber)
	assert.Equal(t, "01010101", first.ProductCode)
	assert.Equal(t, "H87", first.UnitCode)
	require.Len(t, first.Taxes, 2)
	assert.Equal(t, Tax{Total: 160, Name: "IVA", Base: 1000, Rate: 0.16}, first.Taxes[0])
	assert.Equal(t, Tax{Total: 40, Name: "IVA", Base: 1000, Rate: 0.04, IsRetention: true}, first.Taxes[1])
	assert.Equal(t, 1120.0, first.Total)

	second := p.Items[1]
	assert.Equal(t, "42", second.IdentificationNumber)
	require.Len(t, second.Taxes, 1, "sin impuestos se agrega IVA 16 %")
	assert.Equal(t, 16.0, second.Taxes[0].Total)
	assert.Equal(t, 116.0, second.Total)
}

func TestIssue_CreaYDescargaDocumentos(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/2/cfdis", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "usuario", user)
		assert.Equal(t, "secreto", pass)
		assert.Equal(t, http.MethodPost, r.Method)

		var got Invoice
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "F-1", got.Folio)
		_, _ = w.Write([]byte(`{"Id":"fx-1"}`))
	})
	mux.HandleFunc("/cfdi/xml/issued/fx-1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(fileContent{Content: base64.StdEncoding.EncodeToString([]byte("<cfdi/>"))})
	})
	mux.HandleFunc("/cfdi/pdf/issued/fx-1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(fileContent{Content: base64.StdEncoding.EncodeToString([]byte("%PDF-1.7"))})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := NewClient(config.StampingConfig{URL: srv.URL, User: "usuario", Password: "secreto"}, config.BreakerConfig{}, nil, zerolog.Nop())
	xml, pdf, err := c.Issue(context.Background(), &entity.Invoice{Folio: "F-1"})
	require.NoError(t, err)
	assert.Equal(t, "<cfdi/>", string(xml))
	assert.Equal(t, "%PDF-1.7", string(pdf))
}

func TestCreate_UsaMensajeDelProveedor(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"Message":"La solicitud no es válida.","ModelState":{"Receiver.Rfc":["RFC inválido"]}}`))
	}))
	defer srv.Close()

	c := NewClient(config.StampingConfig{URL: srv.URL, User: "u", Password: "p"}, config.BreakerConfig{}, nil, zerolog.Nop())
	_, err := c.Create(context.Background(), Invoice{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUpstream))
	assert.Equal(t, "La solicitud no es válida.", err.Error())
}

func TestCreate_SinCredenciales(t *testing.T) {
	c := NewClient(config.StampingConfig{URL: "http://localhost"}, config.BreakerConfig{}, nil, zerolog.Nop())
	_, err := c.Create(context.Background(), Invoice{})
	assert.True(t, errors.Is(err, domain.ErrConfiguration))
}
