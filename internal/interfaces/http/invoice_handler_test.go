package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/fletes-api/internal/application/billing"
	"github.com/jhoicas/fletes-api/internal/application/dto"
	"github.com/jhoicas/fletes-api/internal/domain"
	"github.com/jhoicas/fletes-api/internal/domain/cfdi"
	apphttp "github.com/jhoicas/fletes-api/internal/interfaces/http"
)

// stubService registra la última llamada y devuelve lo configurado.
type stubService struct {
	actor     billing.Actor
	id        int64
	companyID *int64
	update    dto.UpdateInvoiceRequest
	cancel    dto.CancelInvoiceRequest
	err       error
}

func (s *stubService) Create(_ context.Context, a billing.Actor, in dto.CreateInvoiceRequest) (*dto.CreateInvoiceResponse, error) {
	s.actor = a
	if s.err != nil {
		return nil, s.err
	}
	x, p := "x-1", "p-1"
	return &dto.CreateInvoiceResponse{IDFactura: 5, Estatus: "timbrada", XMLFileID: &x, PDFFileID: &p}, nil
}

func (s *stubService) Update(_ context.Context, a billing.Actor, id int64, in dto.UpdateInvoiceRequest) (*dto.UpdateInvoiceResponse, error) {
	s.actor, s.id, s.update = a, id, in
	if s.err != nil {
		return nil, s.err
	}
	return &dto.UpdateInvoiceResponse{OK: true, IDFactura: id}, nil
}

func (s *stubService) Cancel(_ context.Context, a billing.Actor, id int64, in dto.CancelInvoiceRequest) (*dto.CancelInvoiceResponse, error) {
	s.actor, s.id, s.cancel = a, id, in
	if s.err != nil {
		return nil, s.err
	}
	return &dto.CancelInvoiceResponse{OK: true, Mensaje: "Factura cancelada exitosamente", Folio: "F-1", Estatus: "cancelada"}, nil
}

func (s *stubService) SendByEmail(_ context.Context, a billing.Actor, id int64, in dto.SendInvoiceEmailRequest) (*dto.SendInvoiceEmailResponse, error) {
	s.actor, s.id = a, id
	if s.err != nil {
		return nil, s.err
	}
	return &dto.SendInvoiceEmailResponse{OK: true, Email: in.EmailCliente}, nil
}

func (s *stubService) Get(_ context.Context, a billing.Actor, id int64) (*dto.InvoiceResponse, error) {
	s.actor, s.id = a, id
	if s.err != nil {
		return nil, s.err
	}
	return &dto.InvoiceResponse{IDFactura: id, Folio: "F-1"}, nil
}

func (s *stubService) List(_ context.Context, a billing.Actor, companyID *int64) ([]dto.InvoiceResponse, error) {
	s.actor, s.companyID = a, companyID
	return []dto.InvoiceResponse{{IDFactura: 1}, {IDFactura: 2}}, s.err
}

func (s *stubService) Delete(_ context.Context, a billing.Actor, id int64) error {
	s.actor, s.id = a, id
	return s.err
}

func (s *stubService) DownloadXML(_ context.Context, _ billing.Actor, id int64) (*dto.FileResponse, error) {
	s.id = id
	return &dto.FileResponse{Content: []byte("<cfdi/>"), Filename: "factura_3.xml", ContentType: "application/xml"}, s.err
}

func (s *stubService) DownloadPDF(_ context.Context, _ billing.Actor, id int64) (*dto.FileResponse, error) {
	s.id = id
	return &dto.FileResponse{Content: []byte("%PDF"), Filename: "Factura_F-3.pdf", ContentType: "application/pdf"}, s.err
}

func (s *stubService) ValidateSAT(_ context.Context, in dto.ValidateSATRequest) cfdi.ValidationReport {
	return cfdi.ValidationReport{Valida: true, Ambiente: in.Ambiente}
}

func newInvoiceApp(svc apphttp.InvoiceService) *fiber.App {
	app := fiber.New()
	apphttp.Router(app, apphttp.RouterDeps{Invoices: svc, JWTSecret: testJWTSecret, Log: zerolog.Nop()})
	return app
}

func call(t *testing.T, app *fiber.App, method, path, body string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", tokenForRole(t, "admin"))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeError(t *testing.T, resp *http.Response) dto.ErrorResponse {
	t.Helper()
	var out dto.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestInvoiceRoutes_RequierenToken(t *testing.T) {
	app := newInvoiceApp(&stubService{})
	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/facturas", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestCreate_Devuelve201ConActorDelToken(t *testing.T) {
	svc := &stubService{}
	resp := call(t, newInvoiceApp(svc), http.MethodPost, "/api/facturas", `{"folio":"F-1","total":"1160"}`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, billing.Actor{UserID: testUserID, CompanyID: testCompanyID, Role: "admin"}, svc.actor)

	var out dto.CreateInvoiceResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, int64(5), out.IDFactura)
	require.NotNil(t, out.XMLFileID)
	assert.Equal(t, "x-1", *out.XMLFileID)
}

func TestCreate_CuerpoInvalido(t *testing.T) {
	resp := call(t, newInvoiceApp(&stubService{}), http.MethodPost, "/api/facturas", `{"folio":`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_BODY", decodeError(t, resp).Code)
}

func TestErrores_MapeoDeCategorias(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{domain.Validation("El motivo de cancelación es requerido"), http.StatusBadRequest, "VALIDATION"},
		{domain.NotFound("Factura no encontrada"), http.StatusNotFound, "NOT_FOUND"},
		{domain.Conflict("La factura ya está cancelada"), http.StatusConflict, "CONFLICT"},
		{domain.Configuration("Servidor SMTP no configurado"), http.StatusInternalServerError, "CONFIGURATION"},
		{domain.Upstream(errors.New("535"), "Error al enviar el correo: 535"), http.StatusBadGateway, "UPSTREAM"},
		{domain.Generation(domain.Upstream(nil, "Appwrite caído"), "Error al procesar archivos o timbrar"), http.StatusInternalServerError, "GENERATION"},
		{&domain.Error{Kind: domain.ErrForbidden, Message: "No autorizado para esta empresa"}, http.StatusForbidden, "FORBIDDEN"},
	}
	for _, tc := range cases {
		resp := call(t, newInvoiceApp(&stubService{err: tc.err}), http.MethodPut, "/api/facturas/3/cancelar", `{"motivo":"02"}`)
		assert.Equal(t, tc.status, resp.StatusCode, tc.code)
		body := decodeError(t, resp)
		assert.Equal(t, tc.code, body.Code)
		assert.Equal(t, tc.err.Error(), body.Message)
		resp.Body.Close()
	}
}

func TestErrores_NoClasificadoNoExponeDetalles(t *testing.T) {
	svc := &stubService{err: errors.New("pq: conexión rechazada 10.0.0.5")}
	resp := call(t, newInvoiceApp(svc), http.MethodGet, "/api/facturas/3", "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	body := decodeError(t, resp)
	assert.Equal(t, "INTERNAL", body.Code)
	assert.NotContains(t, body.Message, "10.0.0.5")
}

func TestGetByID_IDInvalido(t *testing.T) {
	resp := call(t, newInvoiceApp(&stubService{}), http.MethodGet, "/api/facturas/abc", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestList_ConYSinEmpresa(t *testing.T) {
	svc := &stubService{}
	app := newInvoiceApp(svc)

	resp := call(t, app, http.MethodGet, "/api/facturas", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, svc.companyID)

	resp = call(t, app, http.MethodGet, "/api/facturas/empresa/7", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, svc.companyID)
	assert.Equal(t, int64(7), *svc.companyID)

	var list []dto.InvoiceResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	assert.Len(t, list, 2)
}

func TestUpdate_DistingueNullDeAusente(t *testing.T) {
	svc := &stubService{}
	resp := call(t, newInvoiceApp(svc), http.MethodPut, "/api/facturas/9", `{"cliente":"X","autotransporte":null}`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(9), svc.id)
	require.NotNil(t, svc.update.Cliente)
	assert.True(t, svc.update.Autotransporte.Set)
	assert.Nil(t, svc.update.Autotransporte.Value)
	assert.False(t, svc.update.Conceptos.Set)
}

func TestDescargas_CabecerasDeArchivo(t *testing.T) {
	app := newInvoiceApp(&stubService{})

	resp := call(t, app, http.MethodGet, "/api/facturas/3/xml", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/xml", resp.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="factura_3.xml"`, resp.Header.Get("Content-Disposition"))
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "<cfdi/>", string(body))

	resp2 := call(t, app, http.MethodGet, "/api/facturas/3/pdf", "")
	defer resp2.Body.Close()
	assert.Equal(t, "application/pdf", resp2.Header.Get("Content-Type"))
	assert.Equal(t, `attachment; filename="Factura_F-3.pdf"`, resp2.Header.Get("Content-Disposition"))
}

func TestValidarSAT_NoChocaConRutaPorID(t *testing.T) {
	resp := call(t, newInvoiceApp(&stubService{}), http.MethodPost, "/api/facturas/validar-sat", `{"facturaData":{},"ambiente":"produccion"}`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var report cfdi.ValidationReport
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&report))
	assert.Equal(t, "produccion", report.Ambiente)
}

func TestDeleteYEmail(t *testing.T) {
	svc := &stubService{}
	app := newInvoiceApp(svc)

	resp := call(t, app, http.MethodDelete, "/api/facturas/4", "")
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(4), svc.id)

	resp = call(t, app, http.MethodPost, "/api/facturas/4/enviar-email", `{"email_cliente":"a@b.mx","enviar_automatico":true}`)
	defer resp.Body.Close()
	var out dto.SendInvoiceEmailResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "a@b.mx", out.Email)
}
