// check_cert diagnostica el certificado de sello digital (CSD) con la misma configuración
// que usa la API: SIGNER_CERT_PATH, SIGNER_KEY_PATH y SIGNER_CERT_PASSWORD.
//
// Uso: go run ./cmd/check_cert
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/jhoicas/fletes-api/internal/infrastructure/cfdi/signer"
	"github.com/jhoicas/fletes-api/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Cargar configuración: %v\n", err)
		os.Exit(1)
	}
	s := cfg.Signer
	if s.CertPath == "" {
		fmt.Fprintln(os.Stderr, "SIGNER_CERT_PATH no está definido")
		os.Exit(1)
	}

	fmt.Println("Diagnóstico de certificado de sello digital")
	fmt.Println("-------------------------------------------")
	fmt.Printf("Archivo: %s\n", s.CertPath)

	info, err := os.Stat(s.CertPath)
	if err != nil {
		fmt.Printf("\nERROR DE ARCHIVO: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Archivo encontrado. Tamaño: %d bytes\n", info.Size())

	p12Path, certPath := s.CertPath, ""
	if s.KeyPath != "" {
		p12Path, certPath = "", s.CertPath
		fmt.Printf("Llave: %s\n", s.KeyPath)
	}
	cert, err := signer.Load(p12Path, s.CertPassword, certPath, s.KeyPath)
	if err != nil {
		fmt.Printf("\nERROR DE CONTRASEÑA O FORMATO: %v\n", err)
		os.Exit(1)
	}
	leaf, err := signer.Leaf(cert)
	if err != nil {
		fmt.Printf("\nERROR AL LEER EL CERTIFICADO: %v\n", err)
		os.Exit(1)
	}
	if _, err := signer.NewCertificateSigner(cert); err != nil {
		fmt.Printf("\nLA LLAVE NO SIRVE PARA SELLAR: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("\nTitular:        %s\n", leaf.Subject.CommonName)
	fmt.Printf("NoCertificado:  %s\n", signer.NoCertificado(leaf.SerialNumber))
	fmt.Printf("Vigencia:       %s a %s\n", leaf.NotBefore.Format(time.DateOnly), leaf.NotAfter.Format(time.DateOnly))
	if time.Now().After(leaf.NotAfter) {
		fmt.Println("\nEl certificado está VENCIDO.")
		os.Exit(1)
	}
	fmt.Println("\nCertificado y contraseña correctos.")
}
