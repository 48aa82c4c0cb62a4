package storage

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// LocalBackend stores objects under a directory on disk and issues
// HMAC-signed URLs pointing back at this service's /local/object
// routes. The signature covers method, key, expiry, disposition,
// filename and content type, so a URL minted for one object cannot be
// replayed against another or past its expiry.
type LocalBackend struct {
	dir     string
	baseURL string
	secret  []byte

	// now is swappable in tests to verify expiry behavior.
	now func() time.Time
}

func NewLocalBackend(dir, baseURL, secret string) *LocalBackend {
	return &LocalBackend{
		dir:     dir,
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  []byte(secret),
		now:     time.Now,
	}
}

func (b *LocalBackend) SignedDownloadURL(_ context.Context, key string, opts SignedDownloadOptions) (string, error) {
	key = NormalizeKey(key)
	if key == "" {
		return "", fmt.Errorf("empty key: %w", ErrUnavailable)
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = detectContentType(key)
	}

	exp := b.now().Add(opts.ExpiresIn).Unix()
	disp := opts.Disposition
	if disp != DispositionInline {
		disp = DispositionAttachment
	}

	q := url.Values{}
	q.Set("exp", strconv.FormatInt(exp, 10))
	q.Set("disp", disp)
	q.Set("fn", opts.Filename)
	q.Set("ct", contentType)
	q.Set("sig", b.sign(http.MethodGet, key, exp, disp, opts.Filename, contentType))

	return fmt.Sprintf("%s/local/object/%s?%s", b.baseURL, escapeKeyPath(key), q.Encode()), nil
}

func (b *LocalBackend) PresignedPutURL(_ context.Context, key string, opts PresignPutOptions) (string, error) {
	key = NormalizeKey(key)
	if key == "" {
		return "", fmt.Errorf("empty key: %w", ErrUnavailable)
	}

	exp := b.now().Add(opts.ExpiresIn).Unix()

	q := url.Values{}
	q.Set("exp", strconv.FormatInt(exp, 10))
	q.Set("ct", opts.ContentType)
	q.Set("sig", b.sign(http.MethodPut, key, exp, "", "", opts.ContentType))

	return fmt.Sprintf("%s/local/object/%s?%s", b.baseURL, escapeKeyPath(key), q.Encode()), nil
}

func (b *LocalBackend) Head(_ context.Context, key string) (*ObjectInfo, error) {
	p, err := b.objectPath(key)
	if err != nil {
		return nil, err
	}
	st, err := os.Stat(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("stat %q: %v: %w", key, err, ErrUnavailable)
	}
	if st.IsDir() {
		return nil, ErrObjectNotFound
	}
	return &ObjectInfo{ContentType: detectContentType(key), Size: st.Size()}, nil
}

// ServeObject handles GET /local/object/*key. It is the local
// equivalent of S3 honoring a presigned GET: valid signature and
// unexpired URL or nothing.
func (b *LocalBackend) ServeObject(c *gin.Context) {
	key, _, ok := b.verify(c, http.MethodGet)
	if !ok {
		return
	}

	p, err := b.objectPath(key)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Object not found"})
		return
	}
	if _, err := os.Stat(p); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Object not found"})
		return
	}

	disp := c.Query("disp")
	fn := c.Query("fn")
	ct := c.Query("ct")
	if ct == "" {
		ct = detectContentType(key)
	}
	c.Header("Content-Type", ct)
	c.Header("Content-Disposition", ContentDisposition(disp, fn))
	c.Header("Cache-Control", "private, max-age=0")
	c.File(p)
}

// ReceiveObject handles PUT /local/object/*key, the local counterpart
// of a presigned S3 PUT. The signature binds the URL to one key and
// one content type.
func (b *LocalBackend) ReceiveObject(c *gin.Context) {
	key, _, ok := b.verify(c, http.MethodPut)
	if !ok {
		return
	}

	if ct := c.Query("ct"); ct != "" && c.ContentType() != "" && !strings.EqualFold(c.ContentType(), ct) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Content type mismatch"})
		return
	}

	p, err := b.objectPath(key)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid key"})
		return
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed"})
		return
	}
	f, err := os.Create(p)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed"})
		return
	}
	defer f.Close()
	if _, err := io.Copy(f, c.Request.Body); err != nil {
		os.Remove(p)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Upload failed"})
		return
	}
	c.Status(http.StatusOK)
}

func (b *LocalBackend) verify(c *gin.Context, method string) (key string, exp int64, ok bool) {
	key = NormalizeKey(strings.TrimPrefix(c.Param("key"), "/"))
	exp, err := strconv.ParseInt(c.Query("exp"), 10, 64)
	if err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "Invalid signature"})
		return "", 0, false
	}

	expected := b.sign(method, key, exp, c.Query("disp"), c.Query("fn"), c.Query("ct"))
	if !hmac.Equal([]byte(expected), []byte(c.Query("sig"))) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Invalid signature"})
		return "", 0, false
	}
	if b.now().Unix() > exp {
		c.JSON(http.StatusForbidden, gin.H{"error": "URL expired"})
		return "", 0, false
	}
	return key, exp, true
}

func (b *LocalBackend) sign(method, key string, exp int64, disp, filename, contentType string) string {
	mac := hmac.New(sha256.New, b.secret)
	fmt.Fprintf(mac, "%s\n%s\n%d\n%s\n%s\n%s", method, key, exp, disp, filename, contentType)
	return hex.EncodeToString(mac.Sum(nil))
}

// objectPath resolves a key inside the storage dir and rejects any
// traversal outside it.
func (b *LocalBackend) objectPath(key string) (string, error) {
	key = NormalizeKey(key)
	if key == "" {
		return "", ErrObjectNotFound
	}
	p := filepath.Join(b.dir, filepath.FromSlash(key))
	root, err := filepath.Abs(b.dir)
	if err != nil {
		return "", fmt.Errorf("resolve dir: %v: %w", err, ErrUnavailable)
	}
	abs, err := filepath.Abs(p)
	if err != nil || !strings.HasPrefix(abs, root+string(os.PathSeparator)) {
		return "", ErrObjectNotFound
	}
	return p, nil
}

func escapeKeyPath(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}

func init() {
	// zip is absent from some base mime tables.
	_ = mime.AddExtensionType(".zip", "application/zip")
}
