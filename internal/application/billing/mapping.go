package billing

import (
	"github.com/jhoicas/fletes-api/internal/application/dto"
	"github.com/jhoicas/fletes-api/internal/domain/entity"
)

// ── request → entidad ──────────────────────────────────────────────────────

func toConceptos(in []dto.ConceptoRequest) []entity.Concepto {
	out := make([]entity.Concepto, 0, len(in))
	for _, c := range in {
		out = append(out, entity.Concepto{
			ProductID:      c.IDProducto,
			ClaveSAT:       c.ClaveSAT,
			UnidadSAT:      c.UnidadSAT,
			ObjetoImp:      c.ObjetoImp,
			Descripcion:    c.Descripcion,
			Cantidad:       c.Cantidad,
			PrecioUnitario: c.PrecioUnitario,
			Importe:        c.Importe,
			Tasas: entity.TaxRates{
				IVA:          c.IVA,
				IEPS:         c.IEPS,
				RetencionISR: c.RetencionISR,
				RetencionIVA: c.RetencionIVA,
			},
		})
	}
	return out
}

// toAutotransporte devuelve nil si faltan vehículo u operador.
func toAutotransporte(in *dto.AutotransporteRequest) *entity.Autotransporte {
	if in == nil {
		return nil
	}
	a := &entity.Autotransporte{VehiculoID: in.IDVehiculo, OperadorID: in.IDOperador}
	if !a.Valid() {
		return nil
	}
	return a
}

func toMercancias(in []dto.MercanciaRequest) []entity.Mercancia {
	out := make([]entity.Mercancia, 0, len(in))
	for _, m := range in {
		out = append(out, entity.Mercancia{Descripcion: m.Descripcion, PesoKg: m.PesoKg, ValorMercancia: m.ValorMercancia})
	}
	return out
}

func toUbicaciones(in []dto.UbicacionRequest) []entity.Ubicacion {
	out := make([]entity.Ubicacion, 0, len(in))
	for _, u := range in {
		out = append(out, entity.Ubicacion{
			Tipo:        u.Tipo,
			Descripcion: u.Descripcion,
			Domicilio:   u.Domicilio,
			FechaHora:   u.FechaHora,
			Latitud:     u.Latitud,
			Longitud:    u.Longitud,
		})
	}
	return out
}

func toInvoice(in dto.CreateInvoiceRequest, companyID, userID int64) *entity.Invoice {
	inv := &entity.Invoice{
		CompanyID:            companyID,
		UserID:               userID,
		Folio:                in.Folio,
		Cliente:              in.Cliente,
		RFCCliente:           in.RFCCliente,
		RegimenFiscalCliente: in.RegimenFiscalCliente,
		UsoCFDICliente:       in.UsoCFDICliente,
		CPCliente:            in.CPCliente,
		FormaPago:            in.FormaPago,
		MetodoPago:           in.MetodoPago,
		LugarExpedicion:      in.LugarExpedicion,
		Total:                in.Total,
		Status:               in.Estatus,
		Conceptos:            toConceptos(in.Conceptos),
		Autotransporte:       toAutotransporte(in.Autotransporte),
		Mercancias:           toMercancias(in.Mercancias),
		Ubicaciones:          toUbicaciones(in.Ubicaciones),
	}
	inv.ApplyDefaults()
	return inv
}

// toPatch traduce el body de edición. Una colección enviada como null reemplaza por vacío.
func toPatch(in dto.UpdateInvoiceRequest) *entity.InvoicePatch {
	p := &entity.InvoicePatch{
		Folio:                in.Folio,
		Cliente:              in.Cliente,
		RFCCliente:           in.RFCCliente,
		RegimenFiscalCliente: in.RegimenFiscalCliente,
		UsoCFDICliente:       in.UsoCFDICliente,
		CPCliente:            in.CPCliente,
		FormaPago:            in.FormaPago,
		MetodoPago:           in.MetodoPago,
		LugarExpedicion:      in.LugarExpedicion,
		Total:                in.Total,
		Status:               in.Estatus,
		XMLFileID:            in.XMLFileID,
		PDFFileID:            in.PDFFileID,
	}
	if in.Conceptos.Set {
		var src []dto.ConceptoRequest
		if in.Conceptos.Value != nil {
			src = *in.Conceptos.Value
		}
		cs := toConceptos(src)
		for k := range cs {
			cs[k].ApplyDefaults()
		}
		p.Conceptos = &cs
	}
	if in.Autotransporte.Set {
		a := toAutotransporte(in.Autotransporte.Value)
		p.Autotransporte = &a
	}
	if in.Mercancias.Set {
		var src []dto.MercanciaRequest
		if in.Mercancias.Value != nil {
			src = *in.Mercancias.Value
		}
		ms := toMercancias(src)
		p.Mercancias = &ms
	}
	if in.Ubicaciones.Set {
		var src []dto.UbicacionRequest
		if in.Ubicaciones.Value != nil {
			src = *in.Ubicaciones.Value
		}
		us := toUbicaciones(src)
		p.Ubicaciones = &us
	}
	return p
}

// ── entidad → response ─────────────────────────────────────────────────────

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func toInvoiceResponse(inv *entity.Invoice) dto.InvoiceResponse {
	out := dto.InvoiceResponse{
		IDFactura:            inv.ID,
		IDEmpresa:            inv.CompanyID,
		IDUsuario:            inv.UserID,
		Folio:                inv.Folio,
		Cliente:              inv.Cliente,
		RFCCliente:           inv.RFCCliente,
		RegimenFiscalCliente: inv.RegimenFiscalCliente,
		UsoCFDICliente:       inv.UsoCFDICliente,
		CPCliente:            inv.CPCliente,
		FormaPago:            inv.FormaPago,
		MetodoPago:           inv.MetodoPago,
		LugarExpedicion:      inv.LugarExpedicion,
		Total:                inv.Total,
		Estatus:              inv.Status,
		XMLFileID:            strPtr(inv.XMLFileID),
		PDFFileID:            strPtr(inv.PDFFileID),
		MotivoCancelacion:    strPtr(inv.MotivoCancelacion),
		FolioSustitucion:     strPtr(inv.FolioSustitucion),
		FechaCancelacion:     inv.FechaCancelacion,
		EmailEnviado:         inv.EmailEnviado,
		FechaEnvioEmail:      inv.FechaEnvioEmail,
		FechaEmision:         inv.FechaEmision,
	}
	for _, c := range inv.Conceptos {
		out.Conceptos = append(out.Conceptos, dto.ConceptoResponse{
			IDConcepto:     c.ID,
			IDFactura:      inv.ID,
			IDProducto:     c.ProductID,
			ClaveSAT:       c.ClaveSAT,
			UnidadSAT:      c.UnidadSAT,
			ObjetoImp:      c.ObjetoImp,
			Descripcion:    c.Descripcion,
			Cantidad:       c.Cantidad,
			PrecioUnitario: c.PrecioUnitario,
			Importe:        c.Importe,
			IVA:            c.Tasas.IVA,
			IEPS:           c.Tasas.IEPS,
			RetencionISR:   c.Tasas.RetencionISR,
			RetencionIVA:   c.Tasas.RetencionIVA,
		})
	}
	if a := inv.Autotransporte; a != nil {
		out.Autotransporte = &dto.AutotransporteResponse{
			IDAutotransporte: a.ID, IDFactura: inv.ID, IDVehiculo: a.VehiculoID, IDOperador: a.OperadorID,
		}
	}
	for _, m := range inv.Mercancias {
		out.Mercancias = append(out.Mercancias, dto.MercanciaResponse{
			IDMercancia: m.ID, IDFactura: inv.ID, Descripcion: m.Descripcion, PesoKg: m.PesoKg, ValorMercancia: m.ValorMercancia,
		})
	}
	for _, u := range inv.Ubicaciones {
		out.Ubicaciones = append(out.Ubicaciones, dto.UbicacionResponse{
			IDUbicacion: u.ID, IDFactura: inv.ID, Tipo: u.Tipo, Descripcion: u.Descripcion, Domicilio: u.Domicilio,
			FechaHora: u.FechaHora, Latitud: u.Latitud, Longitud: u.Longitud,
		})
	}
	return out
}
