package cfdi

import (
	"context"
	"fmt"
	"time"
)

// Constantes del Timbre Fiscal Digital.
const (
	TimbreVersion    = "1.1"
	RfcProvCertifSAT = "SAT970701NN3"
)

// Seal es el sello del emisor sobre el comprobante.
type Seal struct {
	Sello         string // base64
	Certificado   string // base64 del certificado del emisor
	NoCertificado string
}

// Timbre son los datos del complemento TimbreFiscalDigital.
type Timbre struct {
	UUID             string
	FechaTimbrado    time.Time
	RfcProvCertif    string
	SelloCFD         string
	NoCertificadoSAT string
	SelloSAT         string
}

// CadenaOriginal es la cadena original del complemento de certificación digital del SAT.
func (t Timbre) CadenaOriginal() string {
	return fmt.Sprintf("||%s|%s|%s|%s|%s|%s||",
		TimbreVersion, t.UUID, t.FechaTimbrado.Format(DateLayout), t.RfcProvCertif, t.SelloCFD, t.NoCertificadoSAT)
}

// DateLayout es el formato de fecha del CFDI (ISO sin zona, a segundos).
const DateLayout = "2006-01-02T15:04:05"

// Signer sella comprobantes y genera el timbre. La implementación simulada produce
// valores aleatorios de longitud real; la de certificado firma con el CSD del emisor.
type Signer interface {
	// Seal firma el comprobante sin sellar y devuelve sello, certificado y número de certificado.
	Seal(ctx context.Context, unsigned []byte) (Seal, error)
	// Stamp genera el TimbreFiscalDigital para el sello del emisor.
	Stamp(ctx context.Context, selloCFD string) (Timbre, error)
}
