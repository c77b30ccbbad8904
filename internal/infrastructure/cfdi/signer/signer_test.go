package signer_test

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fletes-api/internal/domain/cfdi"
	"github.com/jhoicas/fletes-api/internal/infrastructure/cfdi/signer"
)

func TestSimulatedSigner_LongitudesYConstantes(t *testing.T) {
	s := signer.NewSimulatedSigner()
	seal, err := s.Seal(context.Background(), []byte("<x/>"))
	require.NoError(t, err)

	assert.Len(t, seal.Sello, signer.SealLength+1)
	assert.True(t, strings.HasSuffix(seal.Sello, "="))
	assert.Len(t, seal.Certificado, signer.CertificateLength)
	assert.Equal(t, signer.SimulatedNoCertificado, seal.NoCertificado)

	tfd, err := s.Stamp(context.Background(), seal.Sello)
	require.NoError(t, err)
	u, err := uuid.Parse(tfd.UUID)
	require.NoError(t, err)
	assert.Equal(t, uuid.Version(4), u.Version())
	assert.Equal(t, seal.Sello, tfd.SelloCFD)
	assert.Equal(t, cfdi.RfcProvCertifSAT, tfd.RfcProvCertif)
	assert.Equal(t, signer.SimulatedNoCertificadoSAT, tfd.NoCertificadoSAT)
	assert.NotEqual(t, seal.Sello, tfd.SelloSAT)
}

func TestRandomSeal_SoloAlfabetoBase64(t *testing.T) {
	s := signer.RandomSeal()
	body := strings.TrimSuffix(s, "=")
	assert.Len(t, body, signer.SealLength)
	assert.Empty(t, strings.Trim(body, "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"))
}

func testCert(t *testing.T, serial *big.Int) tls.Certificate {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: "TRANSPORTES PRUEBA SA DE CV"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key, Leaf: leaf}
}

func TestCertificateSigner_FirmaVerificable(t *testing.T) {
	serial := new(big.Int).SetBytes([]byte("30001000000500003416"))
	cert := testCert(t, serial)
	s, err := signer.NewCertificateSigner(cert)
	require.NoError(t, err)

	unsigned := []byte(`<cfdi:Comprobante xmlns:cfdi="http://www.sat.gob.mx/cfd/4" Total="1160.00"></cfdi:Comprobante>`)
	seal, err := s.Seal(context.Background(), unsigned)
	require.NoError(t, err)
	assert.Equal(t, "30001000000500003416", seal.NoCertificado)
	assert.Equal(t, base64.StdEncoding.EncodeToString(cert.Leaf.Raw), seal.Certificado)

	sig, err := base64.StdEncoding.DecodeString(seal.Sello)
	require.NoError(t, err)
	h := sha256.Sum256(signer.Canonicalize(unsigned))
	pub := cert.Leaf.PublicKey.(*rsa.PublicKey)
	assert.NoError(t, rsa.VerifyPKCS1v15(pub, crypto.SHA256, h[:], sig))

	tfd, err := s.Stamp(context.Background(), seal.Sello)
	require.NoError(t, err)
	satSig, err := base64.StdEncoding.DecodeString(tfd.SelloSAT)
	require.NoError(t, err)
	h2 := sha256.Sum256([]byte(tfd.CadenaOriginal()))
	assert.NoError(t, rsa.VerifyPKCS1v15(pub, crypto.SHA256, h2[:], satSig))
}

func TestCertificateSigner_XMLVacio(t *testing.T) {
	s, err := signer.NewCertificateSigner(testCert(t, big.NewInt(7)))
	require.NoError(t, err)
	_, err = s.Seal(context.Background(), nil)
	assert.Error(t, err)
}

func TestNewCertificateSigner_SinLlaveRSA(t *testing.T) {
	_, err := signer.NewCertificateSigner(tls.Certificate{})
	assert.Error(t, err)
}

func TestNoCertificado(t *testing.T) {
	assert.Equal(t, "00001000000504465028", signer.NoCertificado(new(big.Int).SetBytes([]byte("00001000000504465028"))))
	assert.Equal(t, "255", signer.NoCertificado(big.NewInt(255)))
}
