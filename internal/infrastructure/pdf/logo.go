package pdf

import (
	"bytes"
	stdimage "image"
	_ "image/jpeg" // registra el decoder JPEG para DecodeConfig
	_ "image/png"  // registra el decoder PNG para DecodeConfig

	"github.com/johnfercher/maroto/v2/pkg/consts/extension"
)

// LogoStatus es el resultado de preparar el logo para el encabezado.
type LogoStatus int

const (
	LogoInserted LogoStatus = iota
	LogoSkippedInvalidFormat
	LogoSkippedMissing
)

func (s LogoStatus) String() string {
	switch s {
	case LogoInserted:
		return "inserted"
	case LogoSkippedInvalidFormat:
		return "skipped_invalid_format"
	default:
		return "skipped_missing"
	}
}

// LogoResult indica si el logo entra al layout y con qué formato.
type LogoResult struct {
	Status    LogoStatus
	Data      []byte
	Extension extension.Type
	Reason    string
}

var (
	magicPNG  = []byte{0x89, 0x50, 0x4E, 0x47}
	magicJPEG = []byte{0xFF, 0xD8, 0xFF}
)

// PrepareLogo revisa los bytes mágicos (PNG 89504E47, JPEG FFD8FF) y que la cabecera
// de la imagen decodifique. Nunca falla: el rechazo queda en Status y Reason.
func PrepareLogo(data []byte) LogoResult {
	if len(data) == 0 {
		return LogoResult{Status: LogoSkippedMissing, Reason: "sin logo"}
	}
	var ext extension.Type
	switch {
	case bytes.HasPrefix(data, magicPNG):
		ext = extension.Png
	case bytes.HasPrefix(data, magicJPEG):
		ext = extension.Jpg
	default:
		return LogoResult{Status: LogoSkippedInvalidFormat, Reason: "firma de bytes no es PNG ni JPEG"}
	}
	if _, _, err := stdimage.DecodeConfig(bytes.NewReader(data)); err != nil {
		return LogoResult{Status: LogoSkippedInvalidFormat, Reason: "cabecera de imagen inválida: " + err.Error()}
	}
	return LogoResult{Status: LogoInserted, Data: data, Extension: ext}
}
