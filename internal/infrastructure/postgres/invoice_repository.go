package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/fletes-api/internal/domain/entity"
	"github.com/jhoicas/fletes-api/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `
	id_factura, id_empresa, id_usuario, folio, cliente, rfc_cliente,
	regimen_fiscal_cliente, uso_cfdi_cliente, cp_cliente, forma_pago, metodo_pago,
	lugar_expedicion, total, estatus, xml_file_id, pdf_file_id,
	motivo_cancelacion, folio_sustitucion, fecha_cancelacion,
	email_enviado, fecha_envio_email, fecha_emision`

// Create persiste la cabecera de la factura sin documentos.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	query := `
		INSERT INTO facturas (id_empresa, id_usuario, folio, cliente, rfc_cliente,
			regimen_fiscal_cliente, uso_cfdi_cliente, cp_cliente, forma_pago, metodo_pago,
			lugar_expedicion, total, estatus, xml_file_id, pdf_file_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NULL, NULL)
		RETURNING id_factura, fecha_emision`
	err := r.q.QueryRow(ctx, query,
		inv.CompanyID, inv.UserID, inv.Folio, inv.Cliente, inv.RFCCliente,
		inv.RegimenFiscalCliente, inv.UsoCFDICliente, inv.CPCliente, inv.FormaPago, inv.MetodoPago,
		inv.LugarExpedicion, inv.Total, inv.Status,
	).Scan(&inv.ID, &inv.FechaEmision)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert factura: %w", repository.ErrDuplicateFolio)
		}
		return fmt.Errorf("insert factura: %w", err)
	}
	return nil
}

// CreateConceptos inserta las líneas de la factura.
func (r *InvoiceRepo) CreateConceptos(ctx context.Context, invoiceID int64, conceptos []entity.Concepto) error {
	query := `
		INSERT INTO conceptos_factura (id_factura, id_producto, clave_sat, unidad_sat, objeto_imp,
			descripcion, cantidad, precio_unitario, importe,
			tasa_iva, tasa_ieps, tasa_ret_isr, tasa_ret_iva)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	for _, c := range conceptos {
		_, err := r.q.Exec(ctx, query,
			invoiceID, c.ProductID, c.ClaveSAT, c.UnidadSAT, c.ObjetoImp,
			c.Descripcion, c.Cantidad, c.PrecioUnitario, c.Importe,
			c.Tasas.IVA, c.Tasas.IEPS, c.Tasas.RetencionISR, c.Tasas.RetencionIVA,
		)
		if err != nil {
			return fmt.Errorf("insert concepto: %w", err)
		}
	}
	return nil
}

// CreateAutotransporte inserta el complemento solo si vehículo y operador son válidos.
func (r *InvoiceRepo) CreateAutotransporte(ctx context.Context, invoiceID int64, a *entity.Autotransporte) error {
	if !a.Valid() {
		return nil
	}
	_, err := r.q.Exec(ctx,
		`INSERT INTO cp_autotransporte (id_factura, id_vehiculo, id_operador) VALUES ($1, $2, $3)`,
		invoiceID, a.VehiculoID, a.OperadorID)
	if err != nil {
		return fmt.Errorf("insert autotransporte: %w", err)
	}
	return nil
}

// CreateMercancias inserta las mercancías transportadas.
func (r *InvoiceRepo) CreateMercancias(ctx context.Context, invoiceID int64, mercancias []entity.Mercancia) error {
	for _, m := range mercancias {
		_, err := r.q.Exec(ctx,
			`INSERT INTO cp_mercancias (id_factura, descripcion, peso_kg, valor_mercancia) VALUES ($1, $2, $3, $4)`,
			invoiceID, m.Descripcion, m.PesoKg, m.ValorMercancia)
		if err != nil {
			return fmt.Errorf("insert mercancia: %w", err)
		}
	}
	return nil
}

// CreateUbicaciones inserta los puntos del recorrido.
func (r *InvoiceRepo) CreateUbicaciones(ctx context.Context, invoiceID int64, ubicaciones []entity.Ubicacion) error {
	query := `
		INSERT INTO cp_ubicaciones (id_factura, tipo, descripcion, domicilio, fecha_hora, latitud, longitud)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	for _, u := range ubicaciones {
		_, err := r.q.Exec(ctx, query,
			invoiceID, u.Tipo, u.Descripcion, u.Domicilio, u.FechaHora, u.Latitud, u.Longitud)
		if err != nil {
			return fmt.Errorf("insert ubicacion: %w", err)
		}
	}
	return nil
}

// UpdateHeader arma el UPDATE con los campos presentes del parche.
func (r *InvoiceRepo) UpdateHeader(ctx context.Context, id int64, p *entity.InvoicePatch) error {
	var sets []string
	var args []any
	add := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if p.Folio != nil {
		add("folio", *p.Folio)
	}
	if p.Cliente != nil {
		add("cliente", *p.Cliente)
	}
	if p.RFCCliente != nil {
		add("rfc_cliente", *p.RFCCliente)
	}
	if p.RegimenFiscalCliente != nil {
		add("regimen_fiscal_cliente", *p.RegimenFiscalCliente)
	}
	if p.UsoCFDICliente != nil {
		add("uso_cfdi_cliente", *p.UsoCFDICliente)
	}
	if p.CPCliente != nil {
		add("cp_cliente", *p.CPCliente)
	}
	if p.FormaPago != nil {
		add("forma_pago", *p.FormaPago)
	}
	if p.MetodoPago != nil {
		add("metodo_pago", *p.MetodoPago)
	}
	if p.LugarExpedicion != nil {
		add("lugar_expedicion", *p.LugarExpedicion)
	}
	if p.Total != nil {
		add("total", *p.Total)
	}
	if p.Status != nil {
		add("estatus", *p.Status)
	}
	if p.XMLFileID != nil {
		add("xml_file_id", nullIfEmpty(*p.XMLFileID))
	}
	if p.PDFFileID != nil {
		add("pdf_file_id", nullIfEmpty(*p.PDFFileID))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	query := fmt.Sprintf("UPDATE facturas SET %s WHERE id_factura = $%d", strings.Join(sets, ", "), len(args))
	if _, err := r.q.Exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("update factura: %w", repository.ErrDuplicateFolio)
		}
		return fmt.Errorf("update factura: %w", err)
	}
	return nil
}

func (r *InvoiceRepo) deleteChildren(ctx context.Context, table string, invoiceID int64) error {
	if _, err := r.q.Exec(ctx, "DELETE FROM "+table+" WHERE id_factura = $1", invoiceID); err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	return nil
}

// ReplaceConceptos borra y vuelve a insertar los conceptos.
func (r *InvoiceRepo) ReplaceConceptos(ctx context.Context, invoiceID int64, conceptos []entity.Concepto) error {
	if err := r.deleteChildren(ctx, "conceptos_factura", invoiceID); err != nil {
		return err
	}
	return r.CreateConceptos(ctx, invoiceID, conceptos)
}

// ReplaceAutotransporte borra el complemento y lo vuelve a insertar si es válido.
func (r *InvoiceRepo) ReplaceAutotransporte(ctx context.Context, invoiceID int64, a *entity.Autotransporte) error {
	if err := r.deleteChildren(ctx, "cp_autotransporte", invoiceID); err != nil {
		return err
	}
	return r.CreateAutotransporte(ctx, invoiceID, a)
}

// ReplaceMercancias borra y vuelve a insertar las mercancías.
func (r *InvoiceRepo) ReplaceMercancias(ctx context.Context, invoiceID int64, mercancias []entity.Mercancia) error {
	if err := r.deleteChildren(ctx, "cp_mercancias", invoiceID); err != nil {
		return err
	}
	return r.CreateMercancias(ctx, invoiceID, mercancias)
}

// ReplaceUbicaciones borra y vuelve a insertar las ubicaciones.
func (r *InvoiceRepo) ReplaceUbicaciones(ctx context.Context, invoiceID int64, ubicaciones []entity.Ubicacion) error {
	if err := r.deleteChildren(ctx, "cp_ubicaciones", invoiceID); err != nil {
		return err
	}
	return r.CreateUbicaciones(ctx, invoiceID, ubicaciones)
}

// SetDocuments guarda los ids del XML y PDF; status vacío conserva el estatus.
func (r *InvoiceRepo) SetDocuments(ctx context.Context, id int64, xmlFileID, pdfFileID, status string) error {
	query := `
		UPDATE facturas
		SET xml_file_id = $2,
		    pdf_file_id = $3,
		    estatus     = COALESCE($4, estatus)
		WHERE id_factura = $1`
	if _, err := r.q.Exec(ctx, query, id, nullIfEmpty(xmlFileID), nullIfEmpty(pdfFileID), nullIfEmpty(status)); err != nil {
		return fmt.Errorf("update documentos factura: %w", err)
	}
	return nil
}

// Cancel marca la factura como cancelada.
func (r *InvoiceRepo) Cancel(ctx context.Context, id int64, motivo, folioSustitucion string, at time.Time) error {
	query := `
		UPDATE facturas
		SET estatus = $2, motivo_cancelacion = $3, folio_sustitucion = $4, fecha_cancelacion = $5
		WHERE id_factura = $1`
	if _, err := r.q.Exec(ctx, query, id, entity.InvoiceStatusCancelled, motivo, nullIfEmpty(folioSustitucion), at); err != nil {
		return fmt.Errorf("cancelar factura: %w", err)
	}
	return nil
}

// MarkEmailSent registra el envío automático por correo.
func (r *InvoiceRepo) MarkEmailSent(ctx context.Context, id int64, at time.Time) error {
	if _, err := r.q.Exec(ctx,
		`UPDATE facturas SET email_enviado = TRUE, fecha_envio_email = $2 WHERE id_factura = $1`, id, at); err != nil {
		return fmt.Errorf("marcar email enviado: %w", err)
	}
	return nil
}

func scanInvoice(row pgx.Row) (*entity.Invoice, error) {
	var inv entity.Invoice
	var xmlID, pdfID, motivo, folioSust *string
	err := row.Scan(
		&inv.ID, &inv.CompanyID, &inv.UserID, &inv.Folio, &inv.Cliente, &inv.RFCCliente,
		&inv.RegimenFiscalCliente, &inv.UsoCFDICliente, &inv.CPCliente, &inv.FormaPago, &inv.MetodoPago,
		&inv.LugarExpedicion, &inv.Total, &inv.Status, &xmlID, &pdfID,
		&motivo, &folioSust, &inv.FechaCancelacion,
		&inv.EmailEnviado, &inv.FechaEnvioEmail, &inv.FechaEmision,
	)
	if err != nil {
		return nil, err
	}
	inv.XMLFileID = derefStr(xmlID)
	inv.PDFFileID = derefStr(pdfID)
	inv.MotivoCancelacion = derefStr(motivo)
	inv.FolioSustitucion = derefStr(folioSust)
	return &inv, nil
}

// GetByID obtiene la cabecera de la factura.
func (r *InvoiceRepo) GetByID(ctx context.Context, id int64) (*entity.Invoice, error) {
	row := r.q.QueryRow(ctx, "SELECT "+invoiceColumns+" FROM facturas WHERE id_factura = $1", id)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get factura: %w", err)
	}
	return inv, nil
}

// LoadChildren completa los hijos de la factura.
func (r *InvoiceRepo) LoadChildren(ctx context.Context, inv *entity.Invoice) error {
	var err error
	if inv.Conceptos, err = r.listConceptos(ctx, inv.ID); err != nil {
		return err
	}
	if inv.Autotransporte, err = r.getAutotransporte(ctx, inv.ID); err != nil {
		return err
	}
	if inv.Mercancias, err = r.listMercancias(ctx, inv.ID); err != nil {
		return err
	}
	inv.Ubicaciones, err = r.listUbicaciones(ctx, inv.ID)
	return err
}

func (r *InvoiceRepo) listConceptos(ctx context.Context, invoiceID int64) ([]entity.Concepto, error) {
	query := `
		SELECT id_concepto, id_factura, id_producto, clave_sat, unidad_sat, objeto_imp,
		       descripcion, cantidad, precio_unitario, importe,
		       tasa_iva, tasa_ieps, tasa_ret_isr, tasa_ret_iva
		FROM conceptos_factura WHERE id_factura = $1 ORDER BY id_concepto`
	rows, err := r.q.Query(ctx, query, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list conceptos: %w", err)
	}
	defer rows.Close()
	list := []entity.Concepto{}
	for rows.Next() {
		var c entity.Concepto
		if err := rows.Scan(&c.ID, &c.InvoiceID, &c.ProductID, &c.ClaveSAT, &c.UnidadSAT, &c.ObjetoImp,
			&c.Descripcion, &c.Cantidad, &c.PrecioUnitario, &c.Importe,
			&c.Tasas.IVA, &c.Tasas.IEPS, &c.Tasas.RetencionISR, &c.Tasas.RetencionIVA); err != nil {
			return nil, fmt.Errorf("scan concepto: %w", err)
		}
		list = append(list, c)
	}
	return list, rows.Err()
}

func (r *InvoiceRepo) getAutotransporte(ctx context.Context, invoiceID int64) (*entity.Autotransporte, error) {
	var a entity.Autotransporte
	err := r.q.QueryRow(ctx, `
		SELECT id_autotransporte, id_factura, id_vehiculo, id_operador
		FROM cp_autotransporte WHERE id_factura = $1 ORDER BY id_autotransporte LIMIT 1`, invoiceID,
	).Scan(&a.ID, &a.InvoiceID, &a.VehiculoID, &a.OperadorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get autotransporte: %w", err)
	}
	return &a, nil
}

func (r *InvoiceRepo) listMercancias(ctx context.Context, invoiceID int64) ([]entity.Mercancia, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id_mercancia, id_factura, descripcion, peso_kg, valor_mercancia
		FROM cp_mercancias WHERE id_factura = $1 ORDER BY id_mercancia`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list mercancias: %w", err)
	}
	defer rows.Close()
	list := []entity.Mercancia{}
	for rows.Next() {
		var m entity.Mercancia
		if err := rows.Scan(&m.ID, &m.InvoiceID, &m.Descripcion, &m.PesoKg, &m.ValorMercancia); err != nil {
			return nil, fmt.Errorf("scan mercancia: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func (r *InvoiceRepo) listUbicaciones(ctx context.Context, invoiceID int64) ([]entity.Ubicacion, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id_ubicacion, id_factura, tipo, descripcion, domicilio, fecha_hora, latitud, longitud
		FROM cp_ubicaciones WHERE id_factura = $1 ORDER BY fecha_hora NULLS LAST, id_ubicacion`, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("list ubicaciones: %w", err)
	}
	defer rows.Close()
	list := []entity.Ubicacion{}
	for rows.Next() {
		var u entity.Ubicacion
		if err := rows.Scan(&u.ID, &u.InvoiceID, &u.Tipo, &u.Descripcion, &u.Domicilio,
			&u.FechaHora, &u.Latitud, &u.Longitud); err != nil {
			return nil, fmt.Errorf("scan ubicacion: %w", err)
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

// List devuelve las cabeceras de la empresa (o de todas si companyID es nil).
func (r *InvoiceRepo) List(ctx context.Context, companyID *int64) ([]*entity.Invoice, error) {
	query := "SELECT " + invoiceColumns + " FROM facturas"
	var args []any
	if companyID != nil {
		query += " WHERE id_empresa = $1"
		args = append(args, *companyID)
	}
	query += " ORDER BY fecha_emision DESC"
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list facturas: %w", err)
	}
	defer rows.Close()
	list := []*entity.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan factura: %w", err)
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

// Delete borra hijos y cabecera. No se asume ON DELETE CASCADE.
func (r *InvoiceRepo) Delete(ctx context.Context, id int64) (bool, error) {
	for _, table := range []string{"conceptos_factura", "cp_autotransporte", "cp_mercancias", "cp_ubicaciones"} {
		if err := r.deleteChildren(ctx, table, id); err != nil {
			return false, err
		}
	}
	tag, err := r.q.Exec(ctx, "DELETE FROM facturas WHERE id_factura = $1", id)
	if err != nil {
		return false, fmt.Errorf("delete factura: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}
