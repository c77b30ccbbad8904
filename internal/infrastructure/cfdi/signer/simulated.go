package signer

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/fletes-api/internal/domain/cfdi"
)

var _ cfdi.Signer = (*SimulatedSigner)(nil)

// SimulatedSigner produce sellos y certificados aleatorios de longitud real. No firma nada.
type SimulatedSigner struct {
	now func() time.Time
}

func NewSimulatedSigner() *SimulatedSigner {
	return &SimulatedSigner{now: time.Now}
}

// Seal devuelve un sello de 344 caracteres más relleno y un certificado de 2000.
func (s *SimulatedSigner) Seal(ctx context.Context, _ []byte) (cfdi.Seal, error) {
	if err := ctx.Err(); err != nil {
		return cfdi.Seal{}, err
	}
	return cfdi.Seal{
		Sello:         RandomSeal(),
		Certificado:   randomBase64(CertificateLength),
		NoCertificado: SimulatedNoCertificado,
	}, nil
}

// Stamp genera un TimbreFiscalDigital simulado con UUID v4.
func (s *SimulatedSigner) Stamp(ctx context.Context, selloCFD string) (cfdi.Timbre, error) {
	if err := ctx.Err(); err != nil {
		return cfdi.Timbre{}, err
	}
	return cfdi.Timbre{
		UUID:             uuid.NewString(),
		FechaTimbrado:    s.now().UTC().Truncate(time.Second),
		RfcProvCertif:    cfdi.RfcProvCertifSAT,
		SelloCFD:         selloCFD,
		NoCertificadoSAT: SimulatedNoCertificadoSAT,
		SelloSAT:         RandomSeal(),
	}, nil
}

// RandomSeal genera un sello simulado: 344 caracteres base64 terminados en "=".
func RandomSeal() string {
	return randomBase64(SealLength) + "="
}

func randomBase64(n int) string {
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		sb.WriteByte(base64Alphabet[rand.IntN(len(base64Alphabet))])
	}
	return sb.String()
}
