package billing

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/fletes-api/internal/domain/entity"
	"github.com/jhoicas/fletes-api/internal/domain/repository"
)

// ── repositorio en memoria ─────────────────────────────────────────────────

type memInvoiceRepo struct {
	mu       sync.Mutex
	nextID   int64
	invoices map[int64]*entity.Invoice
	deleted  []int64
	setErr   error
}

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{nextID: 1, invoices: map[int64]*entity.Invoice{}}
}

func (r *memInvoiceRepo) Create(_ context.Context, inv *entity.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.invoices {
		if other.CompanyID == inv.CompanyID && other.Folio == inv.Folio {
			return repository.ErrDuplicateFolio
		}
	}
	inv.ID = r.nextID
	r.nextID++
	cp := *inv
	cp.Conceptos, cp.Autotransporte, cp.Mercancias, cp.Ubicaciones = nil, nil, nil, nil
	r.invoices[inv.ID] = &cp
	return nil
}

func (r *memInvoiceRepo) get(id int64) *entity.Invoice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.invoices[id]
}

func (r *memInvoiceRepo) CreateConceptos(_ context.Context, id int64, cs []entity.Concepto) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invoices[id].Conceptos = append(r.invoices[id].Conceptos, cs...)
	return nil
}

func (r *memInvoiceRepo) CreateAutotransporte(_ context.Context, id int64, a *entity.Autotransporte) error {
	if !a.Valid() {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *a
	cp.InvoiceID = id
	r.invoices[id].Autotransporte = &cp
	return nil
}

func (r *memInvoiceRepo) CreateMercancias(_ context.Context, id int64, ms []entity.Mercancia) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invoices[id].Mercancias = append(r.invoices[id].Mercancias, ms...)
	return nil
}

func (r *memInvoiceRepo) CreateUbicaciones(_ context.Context, id int64, us []entity.Ubicacion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invoices[id].Ubicaciones = append(r.invoices[id].Ubicaciones, us...)
	return nil
}

func (r *memInvoiceRepo) UpdateHeader(_ context.Context, id int64, p *entity.InvoicePatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv := r.invoices[id]
	if p.Folio != nil {
		for _, other := range r.invoices {
			if other.ID != id && other.CompanyID == inv.CompanyID && other.Folio == *p.Folio {
				return repository.ErrDuplicateFolio
			}
		}
	}
	header := &entity.InvoicePatch{
		Folio: p.Folio, Cliente: p.Cliente, RFCCliente: p.RFCCliente, RegimenFiscalCliente: p.RegimenFiscalCliente,
		UsoCFDICliente: p.UsoCFDICliente, CPCliente: p.CPCliente, FormaPago: p.FormaPago, MetodoPago: p.MetodoPago,
		LugarExpedicion: p.LugarExpedicion, Total: p.Total, Status: p.Status, XMLFileID: p.XMLFileID, PDFFileID: p.PDFFileID,
	}
	header.ApplyTo(inv)
	return nil
}

func (r *memInvoiceRepo) ReplaceConceptos(_ context.Context, id int64, cs []entity.Concepto) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invoices[id].Conceptos = append([]entity.Concepto(nil), cs...)
	return nil
}

func (r *memInvoiceRepo) ReplaceAutotransporte(ctx context.Context, id int64, a *entity.Autotransporte) error {
	r.mu.Lock()
	r.invoices[id].Autotransporte = nil
	r.mu.Unlock()
	return r.CreateAutotransporte(ctx, id, a)
}

func (r *memInvoiceRepo) ReplaceMercancias(_ context.Context, id int64, ms []entity.Mercancia) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invoices[id].Mercancias = append([]entity.Mercancia(nil), ms...)
	return nil
}

func (r *memInvoiceRepo) ReplaceUbicaciones(_ context.Context, id int64, us []entity.Ubicacion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invoices[id].Ubicaciones = append([]entity.Ubicacion(nil), us...)
	return nil
}

func (r *memInvoiceRepo) SetDocuments(_ context.Context, id int64, xmlID, pdfID, status string) error {
	if r.setErr != nil {
		return r.setErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	inv := r.invoices[id]
	inv.XMLFileID, inv.PDFFileID = xmlID, pdfID
	if status != "" {
		inv.Status = status
	}
	return nil
}

func (r *memInvoiceRepo) Cancel(_ context.Context, id int64, motivo, folio string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv := r.invoices[id]
	inv.Status = entity.InvoiceStatusCancelled
	inv.MotivoCancelacion, inv.FolioSustitucion, inv.FechaCancelacion = motivo, folio, &at
	return nil
}

func (r *memInvoiceRepo) MarkEmailSent(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.invoices[id].EmailEnviado = true
	r.invoices[id].FechaEnvioEmail = &at
	return nil
}

func (r *memInvoiceRepo) GetByID(_ context.Context, id int64) (*entity.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[id]
	if !ok {
		return nil, nil
	}
	cp := *inv
	cp.Conceptos, cp.Autotransporte, cp.Mercancias, cp.Ubicaciones = nil, nil, nil, nil
	return &cp, nil
}

func (r *memInvoiceRepo) LoadChildren(_ context.Context, inv *entity.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	src, ok := r.invoices[inv.ID]
	if !ok {
		return errors.New("factura inexistente")
	}
	inv.Conceptos = append([]entity.Concepto(nil), src.Conceptos...)
	inv.Autotransporte = src.Autotransporte
	inv.Mercancias = append([]entity.Mercancia(nil), src.Mercancias...)
	inv.Ubicaciones = append([]entity.Ubicacion(nil), src.Ubicaciones...)
	return nil
}

func (r *memInvoiceRepo) List(_ context.Context, companyID *int64) ([]*entity.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Invoice
	for _, inv := range r.invoices {
		if companyID == nil || inv.CompanyID == *companyID {
			cp := *inv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FechaEmision.After(out[j].FechaEmision) })
	return out, nil
}

func (r *memInvoiceRepo) Delete(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.invoices[id]; !ok {
		return false, nil
	}
	delete(r.invoices, id)
	r.deleted = append(r.deleted, id)
	return true, nil
}

type memTx struct{ repo *memInvoiceRepo }

func (t memTx) RunInvoice(_ context.Context, fn func(repository.InvoiceRepository) error) error {
	return fn(t.repo)
}

// ── empresa y documentos ───────────────────────────────────────────────────

type fakeCompanies struct{ company *entity.Company }

func (f fakeCompanies) GetByID(_ context.Context, id int64) (*entity.Company, error) {
	if f.company != nil && f.company.ID == id {
		return f.company, nil
	}
	return nil, nil
}

type fakeDocuments struct{ logo *entity.CompanyDocument }

func (f fakeDocuments) LatestByType(_ context.Context, _ int64, _ string) (*entity.CompanyDocument, error) {
	return f.logo, nil
}

// ── renderers, storage, timbrado y correo ──────────────────────────────────

type fakeRenderer struct {
	mu       sync.Mutex
	xmlCalls int
	pdfCalls int
	logos    [][]byte
	err      error
}

func (f *fakeRenderer) RenderXML(_ context.Context, inv *entity.Invoice, _ *entity.Company) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.xmlCalls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte("<cfdi:Comprobante Folio=\"" + inv.Folio + "\"/>"), nil
}

func (f *fakeRenderer) RenderPDF(_ context.Context, _ *entity.Invoice, _ *entity.Company, logo []byte) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pdfCalls++
	f.logos = append(f.logos, logo)
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-local"), nil
}

type upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

type fakeStorage struct {
	mu          sync.Mutex
	uploads     []upload
	files       map[string][]byte
	uploadErr   error
	downloadErr error
	downloads   []string
}

func newFakeStorage() *fakeStorage { return &fakeStorage{files: map[string][]byte{}} }

func (f *fakeStorage) Upload(_ context.Context, data []byte, filename, contentType, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.uploads = append(f.uploads, upload{Filename: filename, ContentType: contentType, Data: data})
	id := "file-" + filename
	f.files[id] = data
	return id, nil
}

func (f *fakeStorage) Download(_ context.Context, fileID string, _ ...string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.downloads = append(f.downloads, fileID)
	if f.downloadErr != nil {
		return nil, f.downloadErr
	}
	data, ok := f.files[fileID]
	if !ok {
		return nil, errors.New("archivo no encontrado")
	}
	return data, nil
}

type fakeStamper struct {
	calls int
	err   error
}

func (f *fakeStamper) Issue(_ context.Context, _ *entity.Invoice) ([]byte, []byte, error) {
	f.calls++
	if f.err != nil {
		return nil, nil, f.err
	}
	return []byte("<timbrado/>"), []byte("%PDF-proveedor"), nil
}

type fakeMailer struct {
	sent []Email
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg Email) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.sent = append(f.sent, msg)
	return "<msg-1@test>", nil
}
