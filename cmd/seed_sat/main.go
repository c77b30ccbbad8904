// seed_sat genera un script SQL para poblar sat_catalogos a partir de un catálogo SAT
// exportado a CSV (columnas: clave, descripción). Los CSV del SAT vienen en ISO-8859-1.
//
// Uso: go run ./cmd/seed_sat <catalogo> <archivo.csv> [--utf8]
// Ejemplo: go run ./cmd/seed_sat c_ClaveProdServ c_ClaveProdServ.csv
// Escribe: internal/infrastructure/postgres/migrations/002_seed_<catalogo>.sql
package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/fletes-api/pkg/sat"
)

var knownCatalogs = []string{sat.CatalogProducto, sat.CatalogUnidad, sat.CatalogRegimen, sat.CatalogUsoCFDI}

type entry struct {
	clave, descripcion string
}

func main() {
	if len(os.Args) < 3 {
		fmt.Fprintf(os.Stderr, "Uso: seed_sat <catalogo> <archivo.csv> [--utf8]\nCatálogos: %s\n", strings.Join(knownCatalogs, ", "))
		os.Exit(2)
	}
	catalog, csvPath := os.Args[1], os.Args[2]
	utf8 := len(os.Args) > 3 && os.Args[3] == "--utf8"

	if !known(catalog) {
		fmt.Fprintf(os.Stderr, "Catálogo desconocido %q (conocidos: %s)\n", catalog, strings.Join(knownCatalogs, ", "))
		os.Exit(2)
	}

	f, err := os.Open(csvPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir CSV: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	var in io.Reader = f
	if !utf8 {
		in = transform.NewReader(f, charmap.ISO8859_1.NewDecoder())
	}
	entries, err := readEntries(in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Leer CSV: %v\n", err)
		os.Exit(1)
	}

	outPath := filepath.Join(findModuleRoot(), "internal", "infrastructure", "postgres", "migrations", "002_seed_"+catalog+".sql")
	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	fmt.Fprintf(out, "-- Catálogo SAT %s\n-- Generado desde %s\n\n", catalog, filepath.Base(csvPath))
	for _, e := range entries {
		fmt.Fprintf(out, "INSERT INTO sat_catalogos (catalogo, clave, descripcion) VALUES ('%s', '%s', '%s')\n",
			catalog, escapeSQL(e.clave), escapeSQL(e.descripcion))
		out.WriteString("ON CONFLICT (catalogo, clave) DO UPDATE SET descripcion = EXCLUDED.descripcion, activo = TRUE;\n")
	}

	fmt.Printf("Generado %s: %d claves\n", outPath, len(entries))
}

// readEntries toma las dos primeras columnas; omite encabezados y filas sin clave.
func readEntries(r io.Reader) ([]entry, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	seen := map[string]bool{}
	var out []entry
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if len(rec) == 0 {
			continue
		}
		clave := strings.TrimSpace(rec[0])
		if clave == "" || strings.HasPrefix(strings.ToLower(clave), "c_") || seen[clave] {
			continue
		}
		seen[clave] = true
		desc := ""
		if len(rec) > 1 {
			desc = strings.TrimSpace(rec[1])
		}
		out = append(out, entry{clave: clave, descripcion: desc})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].clave < out[j].clave })
	return out, nil
}

func known(catalog string) bool {
	for _, c := range knownCatalogs {
		if c == catalog {
			return true
		}
	}
	return false
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
