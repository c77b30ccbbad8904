// Package facturama timbra facturas con la API de Facturama y descarga sus XML/PDF.
package facturama

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	"github.com/jhoicas/fletes-api/internal/domain"
	"github.com/jhoicas/fletes-api/internal/domain/cfdi"
	"github.com/jhoicas/fletes-api/internal/domain/entity"
	"github.com/jhoicas/fletes-api/internal/infrastructure/breaker"
	"github.com/jhoicas/fletes-api/pkg/config"
)

const (
	paymentConditions = "CREDITO"
	cfdiTypeIngreso   = "I"
	unitName          = "Pieza"
	genericID         = "GENERICO"
)

// Client consume la API de Facturama (sandbox por defecto).
type Client struct {
	cfg  config.StampingConfig
	http *http.Client
	cb   *gobreaker.CircuitBreaker
	log  zerolog.Logger
}

// NewClient crea el cliente. httpClient nil usa uno con el timeout configurado.
func NewClient(cfg config.StampingConfig, brk config.BreakerConfig, httpClient *http.Client, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	log = log.With().Str("component", "facturama").Logger()
	return &Client{cfg: cfg, http: httpClient, cb: breaker.New("facturama", brk, log), log: log}
}

// ── payload ────────────────────────────────────────────────────────────────

// Invoice es el CFDI en el formato de la API 2 de Facturama.
type Invoice struct {
	Folio             string   `json:"Folio"`
	ExpeditionPlace   string   `json:"ExpeditionPlace"`
	PaymentConditions string   `json:"PaymentConditions"`
	CfdiType          string   `json:"CfdiType"`
	PaymentForm       string   `json:"PaymentForm"`
	PaymentMethod     string   `json:"PaymentMethod"`
	Receiver          Receiver `json:"Receiver"`
	Items             []Item   `json:"Items"`
}

type Receiver struct {
	Rfc          string `json:"Rfc"`
	Name         string `json:"Name"`
	CfdiUse      string `json:"CfdiUse"`
	FiscalRegime string `json:"FiscalRegime"`
	TaxZipCode   string `json:"TaxZipCode"`
}

type Item struct {
	ProductCode          string  `json:"ProductCode"`
	IdentificationNumber string  `json:"IdentificationNumber"`
	Description          string  `json:"Description"`
	Unit                 string  `json:"Unit"`
	UnitCode             string  `json:"UnitCode"`
	UnitPrice            float64 `json:"UnitPrice"`
	Quantity             float64 `json:"Quantity"`
	Subtotal             float64 `json:"Subtotal"`
	Taxes                []Tax   `json:"Taxes"`
	Total                float64 `json:"Total"`
}

type Tax struct {
	Total       float64 `json:"Total"`
	Name        string  `json:"Name"`
	Base        float64 `json:"Base"`
	Rate        float64 `json:"Rate"`
	IsRetention bool    `json:"IsRetention"`
}

// BuildInvoice convierte la factura al payload de Facturama.
// Un concepto sin impuestos recibe IVA 16 %.
func BuildInvoice(inv *entity.Invoice) Invoice {
	out := Invoice{
		Folio:             inv.Folio,
		ExpeditionPlace:   orDefault(inv.LugarExpedicion, entity.DefaultLugar),
		PaymentConditions: paymentConditions,
		CfdiType:          cfdiTypeIngreso,
		PaymentForm:       orDefault(inv.FormaPago, entity.DefaultFormaPago),
		PaymentMethod:     orDefault(inv.MetodoPago, entity.DefaultMetodoPago),
		Receiver: Receiver{
			Rfc:          inv.RFCCliente,
			Name:         inv.Cliente,
			CfdiUse:      orDefault(inv.UsoCFDICliente, entity.DefaultUsoCFDI),
			FiscalRegime: orDefault(inv.RegimenFiscalCliente, entity.DefaultRegimenCliente),
			TaxZipCode:   orDefault(inv.CPCliente, entity.DefaultCPCliente),
		},
		Items: make([]Item, 0, len(inv.Conceptos)),
	}
	for _, c := range inv.Conceptos {
		out.Items = append(out.Items, buildItem(c))
	}
	return out
}

func buildItem(c entity.Concepto) Item {
	lt := cfdi.LineTaxes(c.Importe, c.Tasas)
	var taxes []Tax
	add := func(name string, rate, amount decimal.Decimal, retention bool) {
		if rate.IsPositive() {
			taxes = append(taxes, Tax{
				Total: amount.InexactFloat64(), Name: name, Base: c.Importe.InexactFloat64(),
				Rate: rate.InexactFloat64(), IsRetention: retention,
			})
		}
	}
	add("IVA", lt.Rates.IVA, lt.IVA, false)
	add("IEPS", lt.Rates.IEPS, lt.IEPS, false)
	add("ISR", lt.Rates.RetencionISR, lt.RetencionISR, true)
	add("IVA", lt.Rates.RetencionIVA, lt.RetencionIVA, true)

	total := lt.Total()
	if len(taxes) == 0 {
		iva := c.Importe.Mul(cfdi.DefaultIVARate).Div(decimal.NewFromInt(100))
		taxes = append(taxes, Tax{
			Total: iva.InexactFloat64(), Name: "IVA", Base: c.Importe.InexactFloat64(),
			Rate: cfdi.DefaultIVARate.Div(decimal.NewFromInt(100)).InexactFloat64(),
		})
		total = c.Importe.Add(iva)
	}

	id := genericID
	if c.ProductID != nil {
		id = strconv.FormatInt(*c.ProductID, 10)
	}
	return Item{
		ProductCode:          orDefault(c.ClaveSAT, entity.DefaultClaveSAT),
		IdentificationNumber: id,
		Description:          c.Descripcion,
		Unit:                 unitName,
		UnitCode:             orDefault(c.UnidadSAT, entity.DefaultUnidadSAT),
		UnitPrice:            c.PrecioUnitario.InexactFloat64(),
		Quantity:             c.Cantidad.InexactFloat64(),
		Subtotal:             c.Importe.InexactFloat64(),
		Taxes:                taxes,
		Total:                total.InexactFloat64(),
	}
}

// ── operaciones ────────────────────────────────────────────────────────────

type createResponse struct {
	ID      string `json:"Id"`
	Message string `json:"Message"`
}

type fileContent struct {
	Content string `json:"Content"`
	ID      string `json:"Id"`
}

// Issue timbra la factura y devuelve el XML y el PDF generados por Facturama.
func (c *Client) Issue(ctx context.Context, inv *entity.Invoice) (xml []byte, pdf []byte, err error) {
	id, err := c.Create(ctx, BuildInvoice(inv))
	if err != nil {
		return nil, nil, err
	}
	if xml, err = c.DownloadXML(ctx, id); err != nil {
		return nil, nil, err
	}
	if pdf, err = c.DownloadPDF(ctx, id); err != nil {
		return nil, nil, err
	}
	c.log.Info().Str("facturama_id", id).Str("folio", inv.Folio).Msg("factura timbrada en Facturama")
	return xml, pdf, nil
}

// Create registra el CFDI y devuelve el Id asignado por Facturama.
func (c *Client) Create(ctx context.Context, payload Invoice) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("facturama: serializar payload: %w", err)
	}
	raw, err := c.do(ctx, http.MethodPost, "/2/cfdis", body)
	if err != nil {
		return "", err
	}
	var out createResponse
	if err := json.Unmarshal(raw, &out); err != nil || out.ID == "" {
		return "", domain.Upstream(err, "Facturama no devolvió el Id del CFDI")
	}
	return out.ID, nil
}

// DownloadXML descarga el XML timbrado.
func (c *Client) DownloadXML(ctx context.Context, id string) ([]byte, error) {
	data, err := c.download(ctx, "/cfdi/xml/issued/"+url.PathEscape(id))
	if err != nil {
		return nil, domain.Upstream(err, "Error descargando XML de Facturama")
	}
	return data, nil
}

// DownloadPDF descarga la representación impresa.
func (c *Client) DownloadPDF(ctx context.Context, id string) ([]byte, error) {
	data, err := c.download(ctx, "/cfdi/pdf/issued/"+url.PathEscape(id))
	if err != nil {
		return nil, domain.Upstream(err, "Error descargando PDF de Facturama")
	}
	return data, nil
}

func (c *Client) download(ctx context.Context, path string) ([]byte, error) {
	raw, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	var fc fileContent
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, err
	}
	return base64.StdEncoding.DecodeString(fc.Content)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	if c.cfg.User == "" || c.cfg.Password == "" {
		return nil, domain.Configuration("Credenciales de Facturama no configuradas")
	}
	raw, err := breaker.Execute(c.cb, func() ([]byte, error) {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.cfg.URL+path, reader)
		if err != nil {
			return nil, err
		}
		req.SetBasicAuth(c.cfg.User, c.cfg.Password)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			c.log.Error().Int("status", resp.StatusCode).Str("path", path).RawJSON("respuesta", jsonOrQuoted(raw)).
				Msg("error de Facturama")
			return nil, providerError(raw, resp.Status)
		}
		return raw, nil
	})
	if err != nil {
		var de *domain.Error
		if errors.As(err, &de) {
			return nil, err
		}
		if breaker.IsOpen(err) {
			return nil, domain.Upstream(err, "Facturama no disponible temporalmente, intenta más tarde")
		}
		return nil, domain.Upstream(err, "%s", err.Error())
	}
	return raw, nil
}

// providerError usa el Message de Facturama o, si no existe, el cuerpo completo.
func providerError(raw []byte, status string) error {
	var out createResponse
	if json.Unmarshal(raw, &out) == nil && out.Message != "" {
		return errors.New(out.Message)
	}
	if txt := strings.TrimSpace(string(raw)); txt != "" {
		return errors.New(txt)
	}
	return errors.New(status)
}

func jsonOrQuoted(raw []byte) []byte {
	if json.Valid(raw) {
		return raw
	}
	b, _ := json.Marshal(string(raw))
	return b
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
