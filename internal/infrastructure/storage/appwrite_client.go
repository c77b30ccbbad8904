// Package storage implementa el almacenamiento de documentos sobre la API REST de Appwrite Storage.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/jhoicas/fletes-api/internal/domain"
	"github.com/jhoicas/fletes-api/internal/infrastructure/breaker"
	"github.com/jhoicas/fletes-api/pkg/config"
)

const (
	headerProject = "X-Appwrite-Project"
	headerKey     = "X-Appwrite-Key"

	// uniqueFileID pide a Appwrite que asigne el id del archivo.
	uniqueFileID = "unique()"

	errTypeUnsupported = "storage_file_type_unsupported"

	msgNotConfigured = "Appwrite no está correctamente configurado en el backend (falta endpoint, project o API key)"
	msgNoBucket      = "Bucket ID no especificado. Configure APPWRITE_BUCKET_ID o APPWRITE_BUCKET_FACTURAS en el .env"
)

// AppwriteClient sube y descarga archivos de los buckets de facturas y documentos.
type AppwriteClient struct {
	cfg  config.StorageConfig
	http *http.Client
	cb   *gobreaker.CircuitBreaker
	log  zerolog.Logger
}

// NewAppwriteClient crea el cliente. httpClient nil usa uno con el timeout configurado.
func NewAppwriteClient(cfg config.StorageConfig, brk config.BreakerConfig, httpClient *http.Client, log zerolog.Logger) *AppwriteClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	log = log.With().Str("component", "appwrite").Logger()
	return &AppwriteClient{
		cfg:  cfg,
		http: httpClient,
		cb:   breaker.New("appwrite", brk, log),
		log:  log,
	}
}

type fileResponse struct {
	DollarID string `json:"$id"`
	ID       string `json:"id"`
}

type errorResponse struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    int    `json:"code"`
}

// Upload sube data al bucket (vacío = bucket de facturas) y devuelve el id asignado.
func (c *AppwriteClient) Upload(ctx context.Context, data []byte, filename, contentType, bucket string) (string, error) {
	if !c.cfg.Configured() {
		return "", domain.Configuration(msgNotConfigured)
	}
	if bucket == "" {
		bucket = c.cfg.BucketFacturas
	}
	if bucket == "" {
		return "", domain.Configuration(msgNoBucket)
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	body, formType, err := multipartFile(data, filename, contentType)
	if err != nil {
		return "", fmt.Errorf("storage: armar multipart: %w", err)
	}
	endpoint := fmt.Sprintf("%s/storage/buckets/%s/files", c.cfg.Endpoint, url.PathEscape(bucket))

	id, err := breaker.Execute(c.cb, func() (string, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return "", err
		}
		c.authorize(req)
		req.Header.Set("Content-Type", formType)

		resp, err := c.http.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return "", upstreamMessage(raw, resp.Status, filename)
		}
		var out fileResponse
		if err := json.Unmarshal(raw, &out); err != nil {
			return "", fmt.Errorf("respuesta de Appwrite inválida: %w", err)
		}
		if out.DollarID != "" {
			return out.DollarID, nil
		}
		if out.ID == "" {
			return "", errors.New("Appwrite no devolvió el id del archivo")
		}
		return out.ID, nil
	})
	if err != nil {
		c.log.Error().Err(err).Str("bucket", bucket).Str("filename", filename).Msg("error subiendo archivo")
		return "", upstream(err)
	}
	c.log.Debug().Str("bucket", bucket).Str("file_id", id).Str("filename", filename).Msg("archivo subido")
	return id, nil
}

// Download descarga el archivo probando los buckets en orden; sin buckets usa documentos y luego facturas.
// Cada intento queda en el log; si todos fallan se devuelve el último error.
func (c *AppwriteClient) Download(ctx context.Context, fileID string, buckets ...string) ([]byte, error) {
	if !c.cfg.Configured() {
		return nil, domain.Configuration(msgNotConfigured)
	}
	if fileID == "" {
		return nil, domain.Validation("Id de archivo vacío")
	}
	if len(buckets) == 0 {
		buckets = []string{c.cfg.BucketDocumentos, c.cfg.BucketFacturas}
	}
	order := dedupe(buckets)
	if len(order) == 0 {
		return nil, domain.Configuration(msgNoBucket)
	}

	var lastErr error
	for i, bucket := range order {
		c.log.Debug().Str("file_id", fileID).Str("bucket", bucket).Int("intento", i+1).Msg("descargando archivo")
		data, err := c.downloadFrom(ctx, fileID, bucket)
		if err == nil {
			return data, nil
		}
		c.log.Warn().Err(err).Str("file_id", fileID).Str("bucket", bucket).Msg("descarga fallida en bucket")
		lastErr = err
	}
	return nil, upstream(lastErr)
}

func (c *AppwriteClient) downloadFrom(ctx context.Context, fileID, bucket string) ([]byte, error) {
	endpoint := fmt.Sprintf("%s/storage/buckets/%s/files/%s/download",
		c.cfg.Endpoint, url.PathEscape(bucket), url.PathEscape(fileID))

	return breaker.Execute(c.cb, func() ([]byte, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		c.authorize(req)

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			txt := strings.TrimSpace(string(raw))
			if txt == "" {
				txt = resp.Status
			}
			return nil, fmt.Errorf("Error descargando archivo %s del bucket %s: %s", fileID, bucket, txt)
		}
		if len(raw) == 0 {
			return nil, fmt.Errorf("Archivo %s vacío en el bucket %s", fileID, bucket)
		}
		return raw, nil
	})
}

func (c *AppwriteClient) authorize(req *http.Request) {
	req.Header.Set(headerProject, c.cfg.Project)
	req.Header.Set(headerKey, c.cfg.APIKey)
}

// ── helpers ────────────────────────────────────────────────────────────────

var quoteEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

func multipartFile(data []byte, filename, contentType string) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("fileId", uniqueFileID); err != nil {
		return nil, "", err
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(filename)))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(data); err != nil {
		return nil, "", err
	}
	if err := w.WriteField("name", filename); err != nil {
		return nil, "", err
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// upstreamMessage traduce el cuerpo de error de Appwrite a un mensaje legible.
func upstreamMessage(raw []byte, status, filename string) error {
	txt := strings.TrimSpace(string(raw))
	var e errorResponse
	if json.Unmarshal(raw, &e) == nil {
		switch {
		case e.Type == errTypeUnsupported:
			return fmt.Errorf("El bucket de Appwrite no permite archivos con esta extensión (%s). "+
				"Ve a tu consola de Appwrite > Storage > Bucket > Configuración y agrega 'xml' y 'pdf' a las extensiones permitidas.",
				extensionOf(filename))
		case e.Message != "":
			return errors.New(e.Message)
		}
	}
	if txt == "" {
		txt = status
	}
	return errors.New(txt)
}

func extensionOf(filename string) string {
	if i := strings.LastIndex(filename, "."); i >= 0 {
		return filename[i+1:]
	}
	return filename
}

func dedupe(buckets []string) []string {
	seen := make(map[string]bool, len(buckets))
	out := make([]string, 0, len(buckets))
	for _, b := range buckets {
		if b == "" || seen[b] {
			continue
		}
		seen[b] = true
		out = append(out, b)
	}
	return out
}

func upstream(err error) error {
	if breaker.IsOpen(err) {
		return domain.Upstream(err, "Appwrite no disponible temporalmente, intenta más tarde")
	}
	return domain.Upstream(err, "%s", err.Error())
}
