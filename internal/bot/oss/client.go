// Package oss talks to the platform's Aliyun OSS buckets: request signing,
// the temporary key cache and the two upload flows the platform uses.
package oss

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/dmitrijs2005/profilebot/internal/clock"
	"github.com/dmitrijs2005/profilebot/internal/filex"
	"github.com/dmitrijs2005/profilebot/internal/logging"
	"github.com/dmitrijs2005/profilebot/internal/netx"
	"github.com/google/uuid"
)

// Key namespaces and content types used by the platform.
const (
	ModelNamespace = "file3mf"
	ImageNamespace = "crealityCloud/upload"

	ContentTypeModel = "model/3mf"
	ContentTypeImage = "image/jpeg"

	DefaultOSSUserAgent = "aliyun-sdk-js/6.17.1 Chrome 143.0.0.0 on Windows 10 64-bit"
)

// newObjectID returns the 32 hex character name of a new object.
var newObjectID = func() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// Bucket is a named bucket reachable at BaseURL.
type Bucket struct {
	Name    string
	BaseURL string
}

// Target describes one local file and where it goes.
type Target struct {
	Path        string
	Bucket      Bucket
	Key         string
	ContentType string
	// MD5Hex is upper-case; MD5Base64 is the Content-MD5 form.
	MD5Hex    string
	MD5Base64 string
}

// NewTarget builds a Target with a fresh key "<namespace>/<id><ext>" and
// the file's MD5.
func NewTarget(path string, b Bucket, namespace, ext, contentType string) (Target, error) {
	md5Hex, md5B64, err := filex.MD5(path)
	if err != nil {
		return Target{}, fmt.Errorf("hash %s: %w", path, err)
	}
	return Target{
		Path:        path,
		Bucket:      b,
		Key:         namespace + "/" + newObjectID() + ext,
		ContentType: contentType,
		MD5Hex:      md5Hex,
		MD5Base64:   md5B64,
	}, nil
}

// Result of a finished upload.
type Result struct {
	Key  string
	URL  string
	ETag string
}

// Options configures a Client.
type Options struct {
	HTTPClient   *http.Client
	Credentials  aws.CredentialsProvider
	Clock        clock.Clock
	Logger       logging.Logger
	ModelBucket  Bucket
	ImageBucket  Bucket
	CDNBaseURL   string
	UserAgent    string
	OSSUserAgent string
	Origin       string
	// SendContentMD5 adds Content-MD5 to the upload-part request.
	SendContentMD5 bool
}

// Client uploads files to OSS with signed requests. It asks its credentials
// provider for a key before every upload.
type Client struct {
	http  *http.Client
	creds aws.CredentialsProvider
	clock clock.Clock
	log   logging.Logger

	models Bucket
	images Bucket
	cdn    string

	userAgent    string
	ossUserAgent string
	origin       string
	sendMD5      bool
}

func NewClient(o Options) *Client {
	c := &Client{
		http:         o.HTTPClient,
		creds:        o.Credentials,
		clock:        o.Clock,
		log:          o.Logger,
		models:       o.ModelBucket,
		images:       o.ImageBucket,
		cdn:          strings.TrimRight(o.CDNBaseURL, "/"),
		userAgent:    o.UserAgent,
		ossUserAgent: o.OSSUserAgent,
		origin:       o.Origin,
		sendMD5:      o.SendContentMD5,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 120 * time.Second}
	}
	if c.clock == nil {
		c.clock = clock.Real()
	}
	if c.log == nil {
		c.log = logging.Nop()
	}
	if c.ossUserAgent == "" {
		c.ossUserAgent = DefaultOSSUserAgent
	}
	return c
}

// UploadModel stores a container in the model bucket with the multipart
// flow and returns its key.
func (c *Client) UploadModel(ctx context.Context, path string) (Result, error) {
	t, err := NewTarget(path, c.models, ModelNamespace, ".3mf", ContentTypeModel)
	if err != nil {
		return Result{}, err
	}
	return c.MultipartUpload(ctx, t)
}

// UploadImage stores a cover image in the image bucket and returns its CDN
// URL.
func (c *Client) UploadImage(ctx context.Context, path string) (Result, error) {
	t, err := NewTarget(path, c.images, ImageNamespace, ".jpeg", ContentTypeImage)
	if err != nil {
		return Result{}, err
	}
	res, err := c.PutObject(ctx, t)
	if err != nil {
		return Result{}, err
	}
	if c.cdn != "" {
		res.URL = c.cdn + "/" + filepath.Base(t.Key)
	}
	return res, nil
}

// PutObject uploads t in a single signed PUT.
func (c *Client) PutObject(ctx context.Context, t Target) (Result, error) {
	key, err := c.creds.Retrieve(ctx)
	if err != nil {
		return Result{}, err
	}

	f, size, err := openSized(t.Path)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	h := c.baseHeaders(key)
	h.Set("Content-Type", t.ContentType)

	resp, err := c.do(ctx, http.MethodPut, t, "", h, f, size, key)
	if err != nil {
		return Result{}, fmt.Errorf("put object: %w", err)
	}
	if err := netx.ExpectStatus("put object", resp, http.StatusOK); err != nil {
		return Result{}, err
	}
	_, _ = netx.ReadBody(resp)

	c.log.Debug(ctx, "object stored", "key", t.Key, "size", size)
	return Result{
		Key:  t.Key,
		URL:  t.Bucket.BaseURL + "/" + t.Key,
		ETag: strings.Trim(resp.Header.Get("ETag"), `"`),
	}, nil
}

type initiateResult struct {
	XMLName  xml.Name `xml:"InitiateMultipartUploadResult"`
	UploadID string   `xml:"UploadId"`
}

const completeTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<CompleteMultipartUpload>
  <Part>
    <PartNumber>1</PartNumber>
    <ETag>"%s"</ETag>
  </Part>
</CompleteMultipartUpload>`

// MultipartUpload uploads t as a single part: initiate, upload part 1,
// complete. Every phase is signed against its own resource.
func (c *Client) MultipartUpload(ctx context.Context, t Target) (Result, error) {
	key, err := c.creds.Retrieve(ctx)
	if err != nil {
		return Result{}, err
	}

	uploadID, err := c.initiate(ctx, t, key)
	if err != nil {
		return Result{}, err
	}
	c.log.Debug(ctx, "multipart upload initiated", "key", t.Key, "upload_id", uploadID, "md5", t.MD5Hex)

	etag, err := c.uploadPart(ctx, t, key, uploadID)
	if err != nil {
		return Result{}, err
	}

	if err := c.complete(ctx, t, key, uploadID, etag); err != nil {
		return Result{}, err
	}

	return Result{
		Key:  t.Key,
		URL:  t.Bucket.BaseURL + "/" + t.Key,
		ETag: etag,
	}, nil
}

func (c *Client) initiate(ctx context.Context, t Target, key aws.Credentials) (string, error) {
	const op = "initiate multipart upload"

	h := c.baseHeaders(key)
	h.Set("Content-Type", "application/x-www-form-urlencoded")
	h.Set("Content-Disposition", fmt.Sprintf(`attachment;filename="%s"`, filepath.Base(t.Path)))

	resp, err := c.do(ctx, http.MethodPost, t, "?uploads", h, nil, 0, key)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := netx.ExpectStatus(op, resp, http.StatusOK); err != nil {
		return "", err
	}
	body, err := netx.ReadBody(resp)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	var res initiateResult
	if err := xml.Unmarshal(body, &res); err != nil {
		return "", &netx.DecodeError{Op: op, Err: err}
	}
	if res.UploadID == "" {
		return "", &netx.DecodeError{Op: op, Err: fmt.Errorf("no UploadId in %q", netx.Snippet(string(body)))}
	}
	return res.UploadID, nil
}

func (c *Client) uploadPart(ctx context.Context, t Target, key aws.Credentials, uploadID string) (string, error) {
	const op = "upload part"

	f, size, err := openSized(t.Path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := c.baseHeaders(key)
	h.Set("Content-Type", t.ContentType)
	if c.sendMD5 && t.MD5Base64 != "" {
		h.Set("Content-MD5", t.MD5Base64)
	}

	resp, err := c.do(ctx, http.MethodPut, t, "?partNumber=1&uploadId="+uploadID, h, f, size, key)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	if err := netx.ExpectStatus(op, resp, http.StatusOK); err != nil {
		return "", err
	}
	_, _ = netx.ReadBody(resp)

	return strings.Trim(resp.Header.Get("ETag"), `"`), nil
}

func (c *Client) complete(ctx context.Context, t Target, key aws.Credentials, uploadID, etag string) error {
	const op = "complete multipart upload"

	body := completeBody(etag)

	h := c.baseHeaders(key)
	h.Set("Content-Type", "application/xml")

	resp, err := c.do(ctx, http.MethodPost, t, "?uploadId="+uploadID, h, bytes.NewReader(body), int64(len(body)), key)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := netx.ExpectStatus(op, resp, http.StatusOK); err != nil {
		return err
	}
	_, _ = netx.ReadBody(resp)
	return nil
}

// completeBody renders the single-part completion document with the ETag
// quoted literally.
func completeBody(etag string) []byte {
	var esc bytes.Buffer
	_ = xml.EscapeText(&esc, []byte(etag))
	return fmt.Appendf(nil, completeTemplate, esc.String())
}

func (c *Client) baseHeaders(key aws.Credentials) http.Header {
	h := http.Header{}
	h.Set(HeaderDate, c.clock.Now().UTC().Format(http.TimeFormat))
	if key.SessionToken != "" {
		h.Set(HeaderSecurityToken, key.SessionToken)
	}
	h.Set(HeaderUserAgent, c.ossUserAgent)
	if c.userAgent != "" {
		h.Set("User-Agent", c.userAgent)
	}
	if c.origin != "" {
		h.Set("Origin", c.origin)
	}
	h.Set("Accept", "*/*")
	return h
}

// do signs and sends one request. subresource starts with "?" or is empty.
func (c *Client) do(ctx context.Context, method string, t Target, subresource string, h http.Header, body io.Reader, size int64, key aws.Credentials) (*http.Response, error) {
	url := strings.TrimRight(t.Bucket.BaseURL, "/") + "/" + t.Key + subresource
	resource := "/" + t.Bucket.Name + "/" + t.Key + subresource

	if body == nil {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.ContentLength = size
	req.Header = h
	req.Header.Set("Authorization", Authorization(key.AccessKeyID, Sign(method, resource, h, key.SecretAccessKey)))

	return c.http.Do(req)
}

func openSized(path string) (*os.File, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, st.Size(), nil
}
