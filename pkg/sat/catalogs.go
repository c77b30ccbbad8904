// Package sat contiene catálogos y validaciones de forma para CFDI 4.0 (SAT, México).
// Los catálogos son la versión básica usada por la aplicación; pueden extenderse
// en el arranque con claves adicionales (ver Extend).
package sat

import "sync"

// Nombres de catálogo (coinciden con la columna catalogo de sat_catalogos).
const (
	CatalogProducto = "c_ClaveProdServ"
	CatalogUnidad   = "c_ClaveUnidad"
	CatalogRegimen  = "c_RegimenFiscal"
	CatalogUsoCFDI  = "c_UsoCFDI"
)

// =============================================================================
// c_ClaveProdServ - Claves de producto/servicio (servicios generales y transporte)
// =============================================================================

const (
	ProductoGenerico        = "01010101" // No existe en el catálogo
	ProductoTransporteCarga = "78101704" // Servicios de transporte de carga
)

var productCodes = map[string]bool{
	ProductoGenerico:        true,
	"84111506":              true,
	"84111704":              true,
	"50202200":              true,
	"50202301":              true,
	"78101700":              true, // Transporte terrestre
	ProductoTransporteCarga: true,
}

// =============================================================================
// c_ClaveUnidad - Unidades de medida
// =============================================================================

const (
	UnidadPieza = "H87"
	UnidadKilo  = "KGM"
)

var unitCodes = map[string]bool{
	UnidadPieza: true,
	"MTR":       true,
	UnidadKilo:  true,
	"LTR":       true,
	"MTK":       true,
	"MTQ":       true,
	"XPK":       true,
	"XTR":       true,
}

// =============================================================================
// c_RegimenFiscal
// =============================================================================

var regimes = map[string]bool{
	"601": true, "603": true, "605": true, "606": true, "608": true,
	"610": true, "611": true, "612": true, "614": true, "615": true,
	"616": true, "620": true, "621": true, "622": true, "623": true,
	"624": true, "625": true, "626": true, "628": true, "629": true,
	"630": true,
}

// =============================================================================
// c_UsoCFDI
// =============================================================================

var cfdiUses = map[string]bool{
	"G01": true, "G02": true, "G03": true,
	"I01": true, "I02": true, "I03": true, "I04": true,
	"I05": true, "I06": true, "I07": true, "I08": true,
	"D01": true, "D02": true, "D03": true, "D04": true, "D05": true,
	"D06": true, "D07": true, "D08": true, "D09": true, "D10": true,
	"P01": true, "S01": true, "CP01": true, "CN01": true,
}

var (
	mu       sync.RWMutex
	catalogs = map[string]map[string]bool{
		CatalogProducto: productCodes,
		CatalogUnidad:   unitCodes,
		CatalogRegimen:  regimes,
		CatalogUsoCFDI:  cfdiUses,
	}
)

// InCatalog indica si code pertenece al catálogo indicado.
func InCatalog(catalog, code string) bool {
	mu.RLock()
	defer mu.RUnlock()
	return catalogs[catalog][code]
}

// Extend agrega claves a un catálogo conocido. Devuelve cuántas claves eran nuevas.
// Catálogos desconocidos se ignoran.
func Extend(catalog string, codes ...string) int {
	mu.Lock()
	defer mu.Unlock()
	c, ok := catalogs[catalog]
	if !ok {
		return 0
	}
	added := 0
	for _, code := range codes {
		if code == "" || c[code] {
			continue
		}
		c[code] = true
		added++
	}
	return added
}
