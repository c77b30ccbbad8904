// Carga del CSD desde .p12 (PKCS#12) o par PEM.

package signer

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"math/big"
	"os"

	"golang.org/x/crypto/pkcs12"
)

// LoadFromP12 carga certificado y llave privada desde un archivo .p12/.pfx.
// El password puede ser vacío si el archivo no está protegido.
func LoadFromP12(path, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("leer p12: %w", err)
	}
	priv, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("decodificar p12: %w", err)
	}
	// pkcs12.Decode devuelve un solo certificado; para sellar basta el certificado hoja.
	return tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  priv,
		Leaf:        cert,
	}, nil
}

// LoadFromPEM carga certificado y llave desde archivos PEM (separados o combinados).
func LoadFromPEM(certPath, keyPath string) (tls.Certificate, error) {
	if keyPath == "" {
		keyPath = certPath
	}
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("cargar PEM: %w", err)
	}
	return cert, nil
}

// Load elige el formato por los parámetros: p12Path tiene prioridad sobre el par PEM.
func Load(p12Path, password, certPath, keyPath string) (tls.Certificate, error) {
	switch {
	case p12Path != "":
		return LoadFromP12(p12Path, password)
	case certPath != "":
		return LoadFromPEM(certPath, keyPath)
	default:
		return tls.Certificate{}, fmt.Errorf("no hay ruta de certificado configurada")
	}
}

// Leaf devuelve el certificado hoja parseado.
func Leaf(cert tls.Certificate) (*x509.Certificate, error) {
	if cert.Leaf != nil {
		return cert.Leaf, nil
	}
	if len(cert.Certificate) == 0 {
		return nil, fmt.Errorf("certificado vacío")
	}
	return x509.ParseCertificate(cert.Certificate[0])
}

// NoCertificado deriva el número de certificado SAT del serial: los CSD codifican
// los 20 dígitos como bytes ASCII. Si no es el caso se usa el serial decimal.
func NoCertificado(serial *big.Int) string {
	b := serial.Bytes()
	if len(b) == 0 {
		return "0"
	}
	for _, c := range b {
		if c < '0' || c > '9' {
			return serial.Text(10)
		}
	}
	return string(b)
}
