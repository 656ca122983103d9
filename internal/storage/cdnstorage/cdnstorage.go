// Package cdnstorage provides the secondary upload provider: a Cloudinary-compatible
// image CDN reached over plain HTTP (unsigned preset upload, signed destroy).
package cdnstorage

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/UnendingLoop/ListingImages/internal/storage"
)

const (
	providerName        = "cdn"
	defaultAPIBase      = "https://api.cloudinary.com/v1_1"
	defaultDeliveryHost = "res.cloudinary.com"
	defaultTimeout      = 30 * time.Second
)

var publicIDRe = regexp.MustCompile(`/upload/(?:v\d+/)?(.+?)(?:\.\w+)?$`)

type Config struct {
	CloudName    string
	UploadPreset string
	UploadURL    string // пусто - собирается из APIBase и CloudName
	APIBase      string
	APIKey       string
	APISecret    string
	DeliveryHost string
	Timeout      time.Duration
}

type CDNStorage struct {
	cfg    Config
	client *http.Client
	now    func() time.Time
}

func NewCDNStorage(cfg Config) *CDNStorage {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")
	if cfg.UploadURL == "" {
		cfg.UploadURL = fmt.Sprintf("%s/%s/image/upload", cfg.APIBase, cfg.CloudName)
	}
	if cfg.DeliveryHost == "" {
		cfg.DeliveryHost = defaultDeliveryHost
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &CDNStorage{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		now:    time.Now,
	}
}

func (s *CDNStorage) Kind() storage.Kind {
	return storage.KindSecondary
}

func (s *CDNStorage) Name() string {
	return providerName
}

type uploadResponse struct {
	SecureURL string `json:"secure_url"`
	PublicID  string `json:"public_id"`
}

func (s *CDNStorage) Store(ctx context.Context, name, _ string, data []byte) (string, error) {
	body, contentType, err := multipartBody(map[string]string{"upload_preset": s.cfg.UploadPreset}, name, data)
	if err != nil {
		return "", s.fail(storage.CodeUploadFailed, err)
	}

	resp, err := s.post(ctx, s.cfg.UploadURL, body, contentType)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", s.fail(storage.CodeCanceled, err)
		}
		return "", s.fail(storage.CodeTransport, err)
	}
	defer resp.Body.Close()

	if code := statusCode(resp.StatusCode); code != "" {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", s.fail(code, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
	}

	var out uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", s.fail(storage.CodeBadResponse, err)
	}
	if out.SecureURL == "" {
		return "", s.fail(storage.CodeBadResponse, errors.New("response has no secure_url"))
	}

	return out.SecureURL, nil
}

type destroyResponse struct {
	Result string `json:"result"`
}

// Delete destroys an asset by public id. Without API credentials it does nothing.
func (s *CDNStorage) Delete(ctx context.Context, publicID string) error {
	if s.cfg.CloudName == "" || s.cfg.APIKey == "" || s.cfg.APISecret == "" {
		return nil
	}

	ts := strconv.FormatInt(s.now().Unix(), 10)
	fields := map[string]string{
		"public_id": publicID,
		"timestamp": ts,
		"api_key":   s.cfg.APIKey,
		"signature": Signature(publicID, ts, s.cfg.APISecret),
	}
	body, contentType, err := multipartBody(fields, "", nil)
	if err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/%s/image/destroy", s.cfg.APIBase, s.cfg.CloudName)
	resp, err := s.post(ctx, endpoint, body, contentType)
	if err != nil {
		return fmt.Errorf("cdn destroy %q: %w", publicID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("cdn destroy %q: status %d", publicID, resp.StatusCode)
	}

	var out destroyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("cdn destroy %q: %w", publicID, err)
	}
	switch out.Result {
	case "ok", "not found":
		return nil
	default:
		return fmt.Errorf("cdn destroy %q: result %q", publicID, out.Result)
	}
}

// Identify extracts the public id from a delivery URL:
// https://res.cloudinary.com/<cloud>/image/upload/v123/<public_id>.jpg
func (s *CDNStorage) Identify(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Host != s.cfg.DeliveryHost && !strings.HasSuffix(u.Host, ".cloudinary.com") {
		return "", false
	}

	m := publicIDRe.FindStringSubmatch(u.Path)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Signature - hex(sha1("public_id=<id>&timestamp=<ts><secret>"))
func Signature(publicID, timestamp, secret string) string {
	sum := sha1.Sum([]byte("public_id=" + publicID + "&timestamp=" + timestamp + secret))
	return hex.EncodeToString(sum[:])
}

func (s *CDNStorage) post(ctx context.Context, endpoint string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)

	return s.client.Do(req)
}

func (s *CDNStorage) fail(code string, err error) error {
	return &storage.ProviderError{Provider: providerName, Code: code, Err: err}
}

func statusCode(status int) string {
	switch {
	case status >= 200 && status <= 299:
		return ""
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return storage.CodeAuthFailed
	case status == 420, status == http.StatusTooManyRequests:
		return storage.CodeQuotaExceeded
	default:
		return storage.CodeUploadFailed
	}
}

func multipartBody(fields map[string]string, fileName string, data []byte) (*bytes.Buffer, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return nil, "", err
		}
	}

	if data != nil {
		if fileName == "" {
			fileName = "image.jpg"
		}
		part, err := w.CreateFormFile("file", fileName)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}
