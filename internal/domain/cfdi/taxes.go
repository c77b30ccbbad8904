// Package cfdi: cálculo de impuestos por concepto y totales del comprobante (CFDI 4.0).
// Aritmética pura sobre los importes que envía el cliente; no hay condiciones de error.
package cfdi

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/fletes-api/internal/domain/entity"
)

// Claves de impuesto SAT (c_Impuesto).
const (
	ImpuestoISR  = "001"
	ImpuestoIVA  = "002"
	ImpuestoIEPS = "003"
)

// Tasa de IVA por defecto (porcentaje) cuando el concepto no la especifica.
var DefaultIVARate = decimal.NewFromInt(16)

var hundred = decimal.NewFromInt(100)

// EffectiveRates resuelve las tasas del concepto en fracción (0.16), aplicando defaults:
// IVA 16 %, el resto 0 %.
type EffectiveRates struct {
	IVA          decimal.Decimal
	IEPS         decimal.Decimal
	RetencionISR decimal.Decimal
	RetencionIVA decimal.Decimal
}

// ResolveRates convierte porcentajes opcionales a fracciones.
func ResolveRates(r entity.TaxRates) EffectiveRates {
	pct := func(p *decimal.Decimal, def decimal.Decimal) decimal.Decimal {
		if p == nil {
			return def.Div(hundred)
		}
		return p.Div(hundred)
	}
	return EffectiveRates{
		IVA:          pct(r.IVA, DefaultIVARate),
		IEPS:         pct(r.IEPS, decimal.Zero),
		RetencionISR: pct(r.RetencionISR, decimal.Zero),
		RetencionIVA: pct(r.RetencionIVA, decimal.Zero),
	}
}

// LineTax son los impuestos de un concepto.
type LineTax struct {
	Base         decimal.Decimal
	Rates        EffectiveRates
	IVA          decimal.Decimal
	IEPS         decimal.Decimal
	RetencionISR decimal.Decimal
	RetencionIVA decimal.Decimal
}

// LineTaxes calcula amount × tasa para cada impuesto del concepto.
func LineTaxes(amount decimal.Decimal, rates entity.TaxRates) LineTax {
	eff := ResolveRates(rates)
	return LineTax{
		Base:         amount,
		Rates:        eff,
		IVA:          amount.Mul(eff.IVA),
		IEPS:         amount.Mul(eff.IEPS),
		RetencionISR: amount.Mul(eff.RetencionISR),
		RetencionIVA: amount.Mul(eff.RetencionIVA),
	}
}

// Transferred = IVA + IEPS.
func (t LineTax) Transferred() decimal.Decimal { return t.IVA.Add(t.IEPS) }

// Withheld = retención ISR + retención IVA.
func (t LineTax) Withheld() decimal.Decimal { return t.RetencionISR.Add(t.RetencionIVA) }

// Total = base + trasladados − retenidos.
func (t LineTax) Total() decimal.Decimal {
	return t.Base.Add(t.Transferred()).Sub(t.Withheld())
}

// TaxEntry es una fila de impuesto (por concepto o agregada).
type TaxEntry struct {
	Impuesto string
	Tasa     decimal.Decimal // fracción
	Base     decimal.Decimal
	Importe  decimal.Decimal
}

// Traslados devuelve los impuestos trasladados distintos de cero (IVA antes que IEPS).
func (t LineTax) Traslados() []TaxEntry {
	var out []TaxEntry
	if t.Rates.IVA.IsPositive() {
		out = append(out, TaxEntry{Impuesto: ImpuestoIVA, Tasa: t.Rates.IVA, Base: t.Base, Importe: t.IVA})
	}
	if t.Rates.IEPS.IsPositive() {
		out = append(out, TaxEntry{Impuesto: ImpuestoIEPS, Tasa: t.Rates.IEPS, Base: t.Base, Importe: t.IEPS})
	}
	return out
}

// Retenciones devuelve los impuestos retenidos distintos de cero (ISR antes que IVA).
func (t LineTax) Retenciones() []TaxEntry {
	var out []TaxEntry
	if t.Rates.RetencionISR.IsPositive() {
		out = append(out, TaxEntry{Impuesto: ImpuestoISR, Tasa: t.Rates.RetencionISR, Base: t.Base, Importe: t.RetencionISR})
	}
	if t.Rates.RetencionIVA.IsPositive() {
		out = append(out, TaxEntry{Impuesto: ImpuestoIVA, Tasa: t.Rates.RetencionIVA, Base: t.Base, Importe: t.RetencionIVA})
	}
	return out
}

// Summary agrega los impuestos de todos los conceptos.
type Summary struct {
	Subtotal          decimal.Decimal
	Lines             []LineTax // mismo orden que los conceptos
	TotalIVA          decimal.Decimal
	TotalIEPS         decimal.Decimal
	TotalRetencionISR decimal.Decimal
	TotalRetencionIVA decimal.Decimal
	Traslados         []TaxEntry // agrupados por impuesto y tasa
	Retenciones       []TaxEntry // agrupados por impuesto
}

// TotalTrasladados = IVA + IEPS de todos los conceptos.
func (s Summary) TotalTrasladados() decimal.Decimal { return s.TotalIVA.Add(s.TotalIEPS) }

// TotalRetenidos = retenciones ISR + IVA de todos los conceptos.
func (s Summary) TotalRetenidos() decimal.Decimal { return s.TotalRetencionISR.Add(s.TotalRetencionIVA) }

// Summarize calcula subtotal e impuestos agregados de los conceptos.
func Summarize(conceptos []entity.Concepto) Summary {
	s := Summary{Lines: make([]LineTax, 0, len(conceptos))}
	traslados := map[string]*TaxEntry{}
	retenciones := map[string]*TaxEntry{}
	var trasladoKeys, retencionKeys []string

	for _, c := range conceptos {
		lt := LineTaxes(c.Importe, c.Tasas)
		s.Lines = append(s.Lines, lt)
		s.Subtotal = s.Subtotal.Add(c.Importe)
		s.TotalIVA = s.TotalIVA.Add(lt.IVA)
		s.TotalIEPS = s.TotalIEPS.Add(lt.IEPS)
		s.TotalRetencionISR = s.TotalRetencionISR.Add(lt.RetencionISR)
		s.TotalRetencionIVA = s.TotalRetencionIVA.Add(lt.RetencionIVA)

		for _, e := range lt.Traslados() {
			key := e.Impuesto + "|" + e.Tasa.String()
			if agg, ok := traslados[key]; ok {
				agg.Base = agg.Base.Add(e.Base)
				agg.Importe = agg.Importe.Add(e.Importe)
				continue
			}
			cp := e
			traslados[key] = &cp
			trasladoKeys = append(trasladoKeys, key)
		}
		for _, e := range lt.Retenciones() {
			if agg, ok := retenciones[e.Impuesto]; ok {
				agg.Base = agg.Base.Add(e.Base)
				agg.Importe = agg.Importe.Add(e.Importe)
				continue
			}
			cp := e
			retenciones[e.Impuesto] = &cp
			retencionKeys = append(retencionKeys, e.Impuesto)
		}
	}

	sort.Strings(trasladoKeys)
	sort.Strings(retencionKeys)
	for _, k := range trasladoKeys {
		s.Traslados = append(s.Traslados, *traslados[k])
	}
	for _, k := range retencionKeys {
		s.Retenciones = append(s.Retenciones, *retenciones[k])
	}
	return s
}

// DisplayTax es el impuesto que muestran las representaciones: total − subtotal.
// No se reconcilia contra la suma de impuestos por concepto.
func DisplayTax(total, subtotal decimal.Decimal) decimal.Decimal {
	return total.Sub(subtotal)
}
