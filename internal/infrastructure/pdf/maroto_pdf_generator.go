// Package pdf implementa la representación impresa del CFDI 4.0.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: [Logo] Emisor + RFC + Régimen │ FACTURA + Folio    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  DATOS DEL CLIENTE: Nombre / RFC / Uso CFDI / Régimen / C.P.│
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: ClaveProd | Cant | Unidad | Descripción | P.U. | Imp│
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Subtotal / IVA (16%) / Total                      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  QR SAT + Sello CFDI + Sello SAT + Cadena original          │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"
	"time"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/image"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontfamily"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/fletes-api/internal/domain/cfdi"
	"github.com/jhoicas/fletes-api/internal/domain/entity"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

// ── Valores por defecto ───────────────────────────────────────────────────────

const (
	fallbackRFC            = "XAXX010101000"
	fallbackNombreEmisor   = "EMPRESA NO REGISTRADA"
	fallbackRegimenEmisor  = "601"
	fallbackLugar          = "78000"
	fallbackUsoCFDI        = "S01"
	fallbackRegimenCliente = "616"
	fallbackCPCliente      = "78000"

	// VerificationURL es el portal de verificación de CFDI del SAT.
	VerificationURL = "https://verificacfdi.facturaelectronica.sat.gob.mx/default.aspx"

	footerLegend = "Este documento es una representación impresa de un CFDI (Simulado)"
	sealChunk    = 110
)

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator genera la representación impresa con Maroto v2.
// Usa su propio Signer: los sellos impresos no son los del XML.
type MarotoPDFGenerator struct {
	signer cfdi.Signer
	log    zerolog.Logger
	now    func() time.Time
}

// NewMarotoPDFGenerator construye el generador.
func NewMarotoPDFGenerator(signer cfdi.Signer, log zerolog.Logger) *MarotoPDFGenerator {
	return &MarotoPDFGenerator{
		signer: signer,
		log:    log.With().Str("component", "pdf").Logger(),
		now:    time.Now,
	}
}

// sealData son los sellos que se imprimen en el pie del documento.
type sealData struct {
	sello  string
	timbre cfdi.Timbre
}

// RenderPDF genera el PDF y devuelve sus bytes. company y logo son opcionales.
func (g *MarotoPDFGenerator) RenderPDF(ctx context.Context, inv *entity.Invoice, company *entity.Company, logo []byte) ([]byte, error) {
	if inv == nil {
		return nil, fmt.Errorf("pdf: factura nula")
	}
	seals, err := g.seal(ctx, inv, company)
	if err != nil {
		return nil, err
	}

	lr := PrepareLogo(logo)
	if lr.Status != LogoInserted {
		g.log.Info().Int64("id_empresa", inv.CompanyID).Str("logo", lr.Status.String()).
			Str("motivo", lr.Reason).Msg("PDF sin logo")
	}

	out, err := g.build(inv, company, lr, seals)
	if err != nil && lr.Status == LogoInserted {
		// Falla al insertar la imagen: se reintenta sin logo.
		g.log.Warn().Err(err).Int64("id_empresa", inv.CompanyID).Msg("error al insertar logo, se genera sin logo")
		out, err = g.build(inv, company, LogoResult{Status: LogoSkippedInvalidFormat, Reason: err.Error()}, seals)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (g *MarotoPDFGenerator) seal(ctx context.Context, inv *entity.Invoice, company *entity.Company) (sealData, error) {
	payload := fmt.Sprintf("||4.0|%s|%s|%s|%s||", inv.Folio, issuerRFC(company), inv.RFCCliente, inv.Total.StringFixed(2))
	s, err := g.signer.Seal(ctx, []byte(payload))
	if err != nil {
		return sealData{}, fmt.Errorf("pdf: sellar: %w", err)
	}
	t, err := g.signer.Stamp(ctx, s.Sello)
	if err != nil {
		return sealData{}, fmt.Errorf("pdf: timbrar: %w", err)
	}
	return sealData{sello: s.Sello, timbre: t}, nil
}

func (g *MarotoPDFGenerator) build(inv *entity.Invoice, company *entity.Company, logo LogoResult, seals sealData) ([]byte, error) {
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: fontfamily.Helvetica, Size: 9}).
		WithTitle("Factura "+inv.Folio, true).
		WithAuthor(nonEmpty(companyName(company), fallbackNombreEmisor), true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(inv, company, logo, g.issueDate(inv)))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(clientRow(inv))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableDetailRows(inv.Conceptos)...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(inv))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(sealRows(inv, company, seals)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

func (g *MarotoPDFGenerator) issueDate(inv *entity.Invoice) time.Time {
	if !inv.FechaEmision.IsZero() {
		return inv.FechaEmision
	}
	return g.now()
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: logo + emisor (izq) y datos de la factura (der). Sin logo el emisor ocupa su lugar.
func headerRow(inv *entity.Invoice, company *entity.Company, logo LogoResult, fecha time.Time) core.Row {
	issuer := []core.Component{
		text.New(nonEmpty(companyName(company), fallbackNombreEmisor), props.Text{
			Style: fontstyle.Bold, Size: 12, Color: colorPrimary, Top: 1,
		}),
		text.New("RFC: "+issuerRFC(company), props.Text{Size: 9, Top: 8, Color: colorGray}),
		text.New("Régimen Fiscal: "+issuerRegime(company), props.Text{Size: 9, Top: 13, Color: colorGray}),
		text.New("Lugar de Expedición: "+nonEmpty(inv.LugarExpedicion, fallbackLugar), props.Text{
			Size: 9, Top: 18, Color: colorGray,
		}),
	}
	invoiceBlock := col.New(4).Add(
		text.New("FACTURA", props.Text{
			Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Top: 1,
		}),
		text.New("Folio: "+folioOf(inv), props.Text{Size: 9, Align: align.Right, Top: 7}),
		text.New("Fecha: "+fecha.Format("2006-01-02 15:04:05"), props.Text{Size: 8, Align: align.Right, Top: 12}),
		text.New("Tipo de Comprobante: I - Ingreso", props.Text{Size: 8, Align: align.Right, Top: 16}),
		text.New("Versión: 4.0", props.Text{Size: 8, Align: align.Right, Top: 20, Color: colorGray}),
	)

	if logo.Status == LogoInserted {
		return row.New(26).Add(
			col.New(3).Add(image.NewFromBytes(logo.Data, logo.Extension, props.Rect{Percent: 90, Center: true})),
			col.New(5).Add(issuer...),
			invoiceBlock,
		)
	}
	return row.New(26).Add(
		col.New(8).Add(issuer...),
		invoiceBlock,
	)
}

// clientRow: caja con los datos del receptor.
func clientRow(inv *entity.Invoice) core.Row {
	small := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Size: 8, Top: top})
	}
	return row.New(20).Add(
		col.New(6).Add(
			text.New("DATOS DEL CLIENTE", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			small("Nombre: "+inv.Cliente, 7),
			small("RFC: "+inv.RFCCliente, 12),
		),
		col.New(4).Add(
			small("Uso CFDI: "+nonEmpty(inv.UsoCFDICliente, fallbackUsoCFDI), 7),
			small("Régimen Fiscal: "+nonEmpty(inv.RegimenFiscalCliente, fallbackRegimenCliente), 12),
		),
		col.New(2).Add(
			small("C.P.: "+nonEmpty(inv.CPCliente, fallbackCPCliente), 7),
		),
	).WithStyle(&props.Cell{BorderType: border.Full, BorderColor: colorGray, BorderThickness: 0.2})
}

// tableHeaderRow: cabecera de la tabla de conceptos con fondo azul.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("ClaveProd", 2, align.Left),
		h("Cant", 1, align.Center),
		h("Unidad", 1, align.Center),
		h("Descripción", 4, align.Left),
		h("P. Unitario", 2, align.Right),
		h("Importe", 2, align.Right),
	).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

// tableDetailRows: una fila por concepto.
func tableDetailRows(conceptos []entity.Concepto) []core.Row {
	result := make([]core.Row, 0, len(conceptos))
	cell := func(s string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(s, props.Text{Size: 8, Align: a, Top: 1, Left: 1, Right: 1}))
	}
	for _, c := range conceptos {
		cantidad := "1"
		if !c.Cantidad.IsZero() {
			cantidad = c.Cantidad.String()
		}
		result = append(result, row.New(7).Add(
			cell(nonEmpty(c.ClaveSAT, entity.DefaultClaveSAT), 2, align.Left),
			cell(cantidad, 1, align.Center),
			cell(nonEmpty(c.UnidadSAT, entity.DefaultUnidadSAT), 1, align.Center),
			cell(c.Descripcion, 4, align.Left),
			cell(c.PrecioUnitario.StringFixed(2), 2, align.Right),
			cell(c.Importe.StringFixed(2), 2, align.Right),
		))
	}
	return result
}

// totalsRow: Subtotal, IVA (total − subtotal) y Total alineados a la derecha.
func totalsRow(inv *entity.Invoice) core.Row {
	subtotal := inv.Subtotal()
	iva := cfdi.DisplayTax(inv.Total, subtotal)

	label := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2, Top: top})
	}
	value := func(s string, top float64) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1, Top: top})
	}
	return row.New(18).Add(
		col.New(6),
		col.New(3).Add(
			label("Subtotal:", 1),
			label("IVA (16%):", 6),
			text.New("Total:", props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 2, Top: 11,
			}),
		),
		col.New(3).Add(
			value(formatMoney(subtotal), 1),
			value(formatMoney(iva), 6),
			text.New(formatMoney(inv.Total), props.Text{
				Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 1, Top: 11,
			}),
		),
	)
}

// sealRows: QR de verificación, sellos y cadena original del timbre, más la leyenda.
func sealRows(inv *entity.Invoice, company *entity.Company, seals sealData) []core.Row {
	mono := props.Text{Family: fontfamily.Courier, Size: 6, Color: colorGray}
	block := func(title, value string) []core.Row {
		rows := []core.Row{row.New(4).Add(col.New(12).Add(
			text.New(title, props.Text{Style: fontstyle.Bold, Size: 7, Top: 1}),
		))}
		for _, chunk := range splitEvery(value, sealChunk) {
			rows = append(rows, row.New(3).Add(col.New(12).Add(text.New(chunk, mono))))
		}
		return rows
	}

	qr := VerificationQR(inv, issuerRFC(company), seals.sello)
	rows := []core.Row{
		row.New(40).Add(
			col.New(3).Add(code.NewQr(qr, props.Rect{Percent: 95, Center: true})),
			col.New(9).Add(
				text.New("Verifique este comprobante en el portal del SAT:", props.Text{
					Size: 8, Top: 4, Left: 3, Color: colorGray,
				}),
				text.New("Folio Fiscal (UUID): "+seals.timbre.UUID, props.Text{
					Style: fontstyle.Bold, Size: 8, Top: 10, Left: 3,
				}),
				text.New("Fecha de Timbrado: "+seals.timbre.FechaTimbrado.Format(cfdi.DateLayout), props.Text{
					Size: 8, Top: 15, Left: 3,
				}),
				text.New("No. Certificado SAT: "+seals.timbre.NoCertificadoSAT, props.Text{
					Size: 8, Top: 20, Left: 3,
				}),
			),
		),
	}
	rows = append(rows, block("Sello Digital del CFDI:", seals.sello)...)
	rows = append(rows, block("Sello del SAT:", seals.timbre.SelloSAT)...)
	rows = append(rows, block("Cadena Original del complemento de certificación digital del SAT:", seals.timbre.CadenaOriginal())...)
	rows = append(rows, row.New(10).Add(col.New(12).Add(
		text.New(footerLegend, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: align.Center, Top: 4,
		}),
	)))
	return rows
}

// VerificationQR arma la URL de verificación: folio, RFC emisor, RFC receptor, total
// y los últimos 8 caracteres del sello.
func VerificationQR(inv *entity.Invoice, rfcEmisor, sello string) string {
	fe := sello
	if len(fe) > 8 {
		fe = fe[len(fe)-8:]
	}
	return fmt.Sprintf("%s?id=%s&re=%s&rr=%s&tt=%s&fe=%s",
		VerificationURL, folioOf(inv), rfcEmisor, inv.RFCCliente, inv.Total.StringFixed(2), fe)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func companyName(c *entity.Company) string {
	if c == nil {
		return ""
	}
	return c.RazonSocial
}

func issuerRFC(c *entity.Company) string {
	if c == nil {
		return fallbackRFC
	}
	return nonEmpty(c.RFC, fallbackRFC)
}

func issuerRegime(c *entity.Company) string {
	if c == nil {
		return fallbackRegimenEmisor
	}
	return nonEmpty(c.RegimenFiscal, fallbackRegimenEmisor)
}

func folioOf(inv *entity.Invoice) string {
	if inv.Folio != "" {
		return inv.Folio
	}
	return fmt.Sprintf("%d", inv.ID)
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatMoney: "$1,234,567.89".
func formatMoney(d decimal.Decimal) string {
	s := d.Abs().StringFixed(2)
	intPart, frac, _ := strings.Cut(s, ".")
	n := len(intPart)
	buf := make([]byte, 0, n+n/3)
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, c)
	}
	sign := ""
	if d.IsNegative() {
		sign = "-"
	}
	return sign + "$" + string(buf) + "." + frac
}

// splitEvery divide s en trozos de max n caracteres.
func splitEvery(s string, n int) []string {
	var parts []string
	for len(s) > n {
		parts = append(parts, s[:n])
		s = s[n:]
	}
	if s != "" {
		parts = append(parts, s)
	}
	return parts
}
