package signer

import (
	"bytes"
	"context"
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ucarion/c14n"

	"github.com/jhoicas/fletes-api/internal/domain/cfdi"
)

var _ cfdi.Signer = (*CertificateSigner)(nil)

// CertificateSigner sella con el CSD del emisor (RSA-SHA256 sobre el comprobante canonicalizado).
// El timbre también se firma con la misma llave: no hay PAC en este modo.
type CertificateSigner struct {
	key           *rsa.PrivateKey
	certB64       string
	noCertificado string
	now           func() time.Time
}

// NewCertificateSigner valida que el certificado tenga llave RSA.
func NewCertificateSigner(cert tls.Certificate) (*CertificateSigner, error) {
	priv, ok := cert.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("cfdi: el certificado debe incluir llave privada RSA")
	}
	leaf, err := Leaf(cert)
	if err != nil {
		return nil, fmt.Errorf("cfdi: parsear certificado: %w", err)
	}
	return &CertificateSigner{
		key:           priv,
		certB64:       base64.StdEncoding.EncodeToString(leaf.Raw),
		noCertificado: NoCertificado(leaf.SerialNumber),
		now:           time.Now,
	}, nil
}

// Seal firma el comprobante sin sello.
func (s *CertificateSigner) Seal(ctx context.Context, unsigned []byte) (cfdi.Seal, error) {
	if len(unsigned) == 0 {
		return cfdi.Seal{}, fmt.Errorf("cfdi: XML vacío")
	}
	if err := ctx.Err(); err != nil {
		return cfdi.Seal{}, err
	}
	sello, err := s.sign(Canonicalize(unsigned))
	if err != nil {
		return cfdi.Seal{}, err
	}
	return cfdi.Seal{Sello: sello, Certificado: s.certB64, NoCertificado: s.noCertificado}, nil
}

// Stamp arma el timbre y firma su cadena original.
func (s *CertificateSigner) Stamp(ctx context.Context, selloCFD string) (cfdi.Timbre, error) {
	if err := ctx.Err(); err != nil {
		return cfdi.Timbre{}, err
	}
	t := cfdi.Timbre{
		UUID:             uuid.NewString(),
		FechaTimbrado:    s.now().UTC().Truncate(time.Second),
		RfcProvCertif:    cfdi.RfcProvCertifSAT,
		SelloCFD:         selloCFD,
		NoCertificadoSAT: s.noCertificado,
	}
	sello, err := s.sign([]byte(t.CadenaOriginal()))
	if err != nil {
		return cfdi.Timbre{}, err
	}
	t.SelloSAT = sello
	return t, nil
}

func (s *CertificateSigner) sign(data []byte) (string, error) {
	h := sha256.Sum256(data)
	sig, err := rsa.SignPKCS1v15(nil, s.key, crypto.SHA256, h[:])
	if err != nil {
		return "", fmt.Errorf("cfdi: firmar: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Canonicalize aplica C14N al XML; si falla devuelve los bytes originales.
func Canonicalize(data []byte) []byte {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	out, err := c14n.Canonicalize(dec)
	if err != nil {
		return data
	}
	return out
}
