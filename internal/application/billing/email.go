package billing

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/jhoicas/fletes-api/internal/application/dto"
	"github.com/jhoicas/fletes-api/internal/domain"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

var mxPrinter = message.NewPrinter(language.MustParse("es-MX"))

// SendByEmail envía el PDF y el XML de la factura al cliente.
// El correo se valida antes de tocar storage o SMTP. Solo con auto=true queda registrado el envío.
func (s *InvoiceService) SendByEmail(ctx context.Context, actor Actor, id int64, in dto.SendInvoiceEmailRequest) (*dto.SendInvoiceEmailResponse, error) {
	inv, err := s.load(ctx, actor, id, true)
	if err != nil {
		return nil, err
	}
	to := strings.TrimSpace(in.EmailCliente)
	if to == "" {
		return nil, domain.Validation("El email del cliente es requerido para enviar la factura")
	}
	if !emailPattern.MatchString(to) {
		return nil, domain.Validation("El email proporcionado no es válido")
	}
	if s.mailer == nil {
		return nil, domain.Configuration("Servidor SMTP no configurado. Verifica las variables de entorno SMTP_HOST, SMTP_USER, SMTP_PASS.")
	}

	issued := inv.FechaEmision
	if issued.IsZero() {
		issued = s.now()
	}
	pdf, err := s.pdfBytes(ctx, inv)
	if err != nil {
		return nil, filesError(err)
	}
	xml, err := s.xmlBytes(ctx, inv)
	if err != nil {
		return nil, filesError(err)
	}
	return s.deliver(ctx, id, to, in.EnviarAutomatico, emailData{
		Folio:    nonEmpty(inv.Folio, "F-"+strconv.FormatInt(id, 10)),
		Cliente:  nonEmpty(inv.Cliente, "Cliente"),
		Fecha:    issued,
		Total:    inv.Total.InexactFloat64(),
		FromName: s.fromName,
		Year:     s.now().Year(),
	}, pdf, xml)
}

func filesError(err error) error {
	return domain.Generation(err, "Error al generar archivos de la factura: %s", domain.MessageOf(err, err.Error()))
}

func (s *InvoiceService) deliver(ctx context.Context, id int64, to string, auto bool, data emailData, pdf, xml []byte) (*dto.SendInvoiceEmailResponse, error) {
	html, err := renderInvoiceEmail(data)
	if err != nil {
		return nil, fmt.Errorf("billing: armar correo: %w", err)
	}
	msgID, err := s.mailer.Send(ctx, Email{
		To:      to,
		Subject: fmt.Sprintf("Factura Electrónica %s - %s", data.Folio, data.FromName),
		HTML:    html,
		Attachments: []Attachment{
			{Filename: "Factura_" + data.Folio + ".pdf", ContentType: contentTypePDF, Data: pdf},
			{Filename: "Factura_" + data.Folio + ".xml", ContentType: contentTypeXML, Data: xml},
		},
	})
	if err != nil {
		return nil, domain.Upstream(err, "Error al enviar el correo: %s", domain.MessageOf(err, err.Error()))
	}

	if auto {
		if err := s.invoiceRepo.MarkEmailSent(ctx, id, s.now()); err != nil {
			s.log.Error().Err(err).Int64("id_factura", id).Msg("correo enviado pero no se registró el envío")
		}
	}
	s.log.Info().Int64("id_factura", id).Str("email", to).Str("message_id", msgID).Msg("factura enviada por correo")
	return &dto.SendInvoiceEmailResponse{
		OK:        true,
		Mensaje:   "Factura enviada por correo electrónico exitosamente",
		Email:     to,
		MessageID: msgID,
	}, nil
}

func nonEmpty(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// ── plantilla ──────────────────────────────────────────────────────────────

type emailData struct {
	Folio    string
	Cliente  string
	Fecha    time.Time
	Total    float64
	FromName string
	Year     int
}

var invoiceEmailTmpl = template.Must(template.New("factura").Funcs(template.FuncMap{
	"fecha": func(t time.Time) string { return t.Format("2/1/2006") },
	"money": func(v float64) string { return mxPrinter.Sprintf("%.2f", v) },
}).Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <style>
    body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
    .container { max-width: 600px; margin: 0 auto; padding: 20px; }
    .header { background-color: #4CAF50; color: white; padding: 20px; text-align: center; border-radius: 5px 5px 0 0; }
    .content { background-color: #f9f9f9; padding: 20px; border: 1px solid #ddd; border-top: none; }
    .footer { text-align: center; padding: 20px; color: #666; font-size: 12px; }
    .factura-info { background-color: white; padding: 15px; margin: 15px 0; border-radius: 5px; }
    .factura-info p { margin: 5px 0; }
    .attachment-note { background-color: #e3f2fd; padding: 10px; border-radius: 5px; margin: 15px 0; }
  </style>
</head>
<body>
  <div class="container">
    <div class="header"><h1>Factura Electrónica</h1></div>
    <div class="content">
      <p>Estimado/a <strong>{{.Cliente}}</strong>,</p>
      <p>Le enviamos su factura electrónica en formato PDF y XML (CFDI 4.0) según los requisitos del SAT.</p>
      <div class="factura-info">
        <p><strong>Folio:</strong> {{.Folio}}</p>
        <p><strong>Fecha de Emisión:</strong> {{fecha .Fecha}}</p>
        <p><strong>Total:</strong> ${{money .Total}} MXN</p>
      </div>
      <div class="attachment-note">
        <strong>Archivos adjuntos:</strong>
        <ul>
          <li>Factura_{{.Folio}}.pdf - Factura en formato PDF</li>
          <li>Factura_{{.Folio}}.xml - Factura en formato XML (CFDI)</li>
        </ul>
      </div>
      <p><strong>Importante:</strong></p>
      <ul>
        <li>Conserve estos archivos para sus registros contables y fiscales.</li>
        <li>El XML es el documento oficial reconocido por el SAT.</li>
        <li>Puede verificar la factura en el portal del SAT: <a href="https://verificacfdi.facturaelectronica.sat.gob.mx">verificacfdi.facturaelectronica.sat.gob.mx</a></li>
      </ul>
      <p>Si tiene alguna pregunta, no dude en contactarnos.</p>
      <p>Atentamente,<br><strong>{{.FromName}}</strong></p>
    </div>
    <div class="footer">
      <p>Este es un correo automático, por favor no responder a este mensaje.</p>
      <p>© {{.Year}} {{.FromName}} - Sistema de Facturación para Transporte de Carga</p>
    </div>
  </div>
</body>
</html>
`))

func renderInvoiceEmail(d emailData) (string, error) {
	var buf bytes.Buffer
	if err := invoiceEmailTmpl.Execute(&buf, d); err != nil {
		return "", err
	}
	return buf.String(), nil
}
