package signer

// Valores fijos del modo simulado (coinciden con la longitud de un CSD real).
const (
	SimulatedNoCertificado    = "00001000000500000000"
	SimulatedNoCertificadoSAT = "00001000000504465028"

	SealLength        = 344
	CertificateLength = 2000

	base64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"
)

// Modos de firma seleccionables por configuración.
const (
	ModeSimulated   = "simulated"
	ModeCertificate = "certificate"
)
