package billing

import (
	"context"

	"github.com/jhoicas/fletes-api/internal/domain/entity"
	"github.com/jhoicas/fletes-api/internal/domain/repository"
)

// TxRunner ejecuta fn dentro de una transacción con un repositorio de facturas ligado a ella.
// Si fn devuelve error se hace rollback.
type TxRunner interface {
	RunInvoice(ctx context.Context, fn func(invoiceRepo repository.InvoiceRepository) error) error
}

// XMLRenderer genera el comprobante CFDI 4.0. company puede ser nil.
type XMLRenderer interface {
	RenderXML(ctx context.Context, inv *entity.Invoice, company *entity.Company) ([]byte, error)
}

// PDFRenderer genera la representación impresa. logo puede ser nil o inválido: nunca falla por eso.
type PDFRenderer interface {
	RenderPDF(ctx context.Context, inv *entity.Invoice, company *entity.Company, logo []byte) ([]byte, error)
}

// DocumentStorage guarda y recupera archivos. bucket vacío = bucket de facturas;
// Download sin buckets prueba documentos y luego facturas.
type DocumentStorage interface {
	Upload(ctx context.Context, data []byte, filename, contentType, bucket string) (string, error)
	Download(ctx context.Context, fileID string, buckets ...string) ([]byte, error)
}

// Stamper timbra con un proveedor externo y devuelve sus documentos.
type Stamper interface {
	Issue(ctx context.Context, inv *entity.Invoice) (xml []byte, pdf []byte, err error)
}

// Mailer envía correos con adjuntos. Devuelve el Message-ID asignado.
type Mailer interface {
	Send(ctx context.Context, msg Email) (string, error)
}

// Email es un correo HTML con adjuntos.
type Email struct {
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

// Attachment archivo adjunto.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}
