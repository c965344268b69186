// Package catalog is the marketplace API client: trending listings,
// container lookup and download, storage keys and variant registration.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/dmitrijs2005/profilebot/internal/bot/models"
	"github.com/dmitrijs2005/profilebot/internal/common"
	"github.com/dmitrijs2005/profilebot/internal/logging"
	"github.com/dmitrijs2005/profilebot/internal/netx"
)

const (
	pathListTrend       = "/api/cxy/v3/model/listTrend"
	path3MFList         = "/api/cxy/v3/model/3mfList"
	path3MFDownload     = "/api/cxy/v3/model/3mfDownload"
	pathUpload3MF       = "/api/cxy/v3/model/upload3mf"
	pathModelGroupInfo  = "/api/cxy/v3/model/modelGroupDetail"
	pathStorageKey      = "/api/cxy/account/v2/getAliyunInfo"
	storageKeySource    = "crealitycloud"
	clientAppVersion    = "6.0.0"
	clientAppChannel    = "Chrome 143.0.0.0"
	clientOSVersion     = "Windows 10"
	clientBrand         = "creality"
	clientOSLang        = "0"
	defaultFileListSize = 10
)

// ErrNoDownloadURL means the platform accepted a download request but
// returned no URL.
var ErrNoDownloadURL = errors.New("no download url")

// APIError is a reply whose envelope code is not 0.
type APIError struct {
	Op   string
	Code int
	Msg  string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: api error %d: %s", e.Op, e.Code, e.Msg)
}

// Options configures a Client.
type Options struct {
	BaseURL     string
	Credentials *models.Credentials
	Platform    int
	Timezone    int
	// DownloadTimeout bounds Download; the login client's timeout applies
	// to everything else.
	DownloadTimeout time.Duration
	Logger          logging.Logger
}

// Client calls the marketplace with the second-tier credentials.
type Client struct {
	base     string
	creds    *models.Credentials
	http     *http.Client
	download *http.Client
	platform int
	timezone int
	log      logging.Logger
}

func New(o Options) *Client {
	c := &Client{
		base:     o.BaseURL,
		creds:    o.Credentials,
		platform: o.Platform,
		timezone: o.Timezone,
		log:      o.Logger,
	}
	if c.log == nil {
		c.log = logging.Nop()
	}

	c.http = http.DefaultClient
	if o.Credentials != nil && o.Credentials.HTTPClient != nil {
		c.http = o.Credentials.HTTPClient
	}
	dl := *c.http
	if o.DownloadTimeout > 0 {
		dl.Timeout = o.DownloadTimeout
	}
	c.download = &dl
	return c
}

// TrendQuery selects a page of the trending list.
type TrendQuery struct {
	Page        int `json:"page"`
	PageSize    int `json:"pageSize"`
	TrendType   int `json:"trendType"`
	FilterType  int `json:"filterType"`
	IsPay       int `json:"isPay"`
	IsExclusive int `json:"isExclusive"`
	PromoType   int `json:"promoType"`
	IsVip       int `json:"isVip"`
	MultiMark   int `json:"multiMark"`
	HasCfgFile  int `json:"hasCfgFile"`
}

// Price filters for TrendQuery.IsPay.
const (
	PayAny  = 0
	PayPaid = 1
	PayFree = 2
)

// FreeTrending returns the query for one page of free trending items.
func FreeTrending(page, pageSize int) TrendQuery {
	return TrendQuery{Page: page, PageSize: pageSize, TrendType: 1, FilterType: 1, IsPay: PayFree}
}

func (c *Client) ListTrending(ctx context.Context, q TrendQuery) ([]models.ModelInfo, error) {
	var res listResult[trendItem]
	if err := c.post(ctx, "list trending", pathListTrend, q, &res); err != nil {
		return nil, err
	}

	out := make([]models.ModelInfo, 0, len(res.List))
	for _, it := range res.List {
		m := models.ModelInfo{
			ID:            string(it.ID),
			Name:          it.GroupName,
			Description:   it.UserInfo.Introduction,
			Author:        it.UserInfo.NickName,
			DownloadCount: int(it.DownloadCount),
			LikeCount:     int(it.LikeCount),
			Price:         float64(it.TotalPrice),
			IsFree:        isFree(it.IsPay),
			CreatedAt:     string(it.CreateTime),
		}
		if len(it.Covers) > 0 {
			m.ThumbnailURL = it.Covers[0].URL
		}
		out = append(out, m)
	}
	return out, nil
}

// List3MF returns the containers attached to an item.
func (c *Client) List3MF(ctx context.Context, groupID string) ([]models.Model3MFInfo, error) {
	payload := map[string]any{
		"modelGroupId": groupID,
		"pageSize":     defaultFileListSize,
		"page":         1,
		"filterType":   3,
	}
	var res listResult[fileItem]
	if err := c.post(ctx, "list containers", path3MFList, payload, &res); err != nil {
		return nil, err
	}

	out := make([]models.Model3MFInfo, 0, len(res.List))
	for _, f := range res.List {
		out = append(out, models.Model3MFInfo{
			ID:             string(f.ID),
			Name:           f.Name,
			SecondName:     f.SecondName,
			Size:           int64(f.Size),
			Thumbnail:      f.Thumbnail,
			LayerHeight:    string(f.LayerHeight),
			InfillDensity:  string(f.SparseInfillDensity),
			WallLoops:      string(f.WallLoops),
			PrinterName:    f.PrinterName,
			PrintTime:      int64(f.PrintTime),
			FilamentLength: float64(f.FilamentLen),
			FilamentWeight: float64(f.FilamentWeight),
			DownloadCount:  int(f.DownloadCount),
		})
	}
	return out, nil
}

// DownloadURL resolves a container id to a short-lived download URL.
func (c *Client) DownloadURL(ctx context.Context, fileID string) (string, error) {
	var res downloadResult
	if err := c.post(ctx, "resolve download", path3MFDownload, map[string]any{"id": fileID}, &res); err != nil {
		return "", err
	}
	if res.DownloadURL == "" {
		return "", ErrNoDownloadURL
	}
	return res.DownloadURL, nil
}

// GetStorageCredentials fetches a temporary OSS key.
func (c *Client) GetStorageCredentials(ctx context.Context) (aws.Credentials, error) {
	var res aliyunResult
	if err := c.post(ctx, "storage credentials", pathStorageKey, map[string]any{}, &res); err != nil {
		return aws.Credentials{}, err
	}
	info := res.AliyunInfo
	if info.AccessKeyID == "" || info.SecretAccessKey == "" {
		return aws.Credentials{}, common.ErrCredentialsUnavailable
	}

	key := aws.Credentials{
		AccessKeyID:     info.AccessKeyID,
		SecretAccessKey: info.SecretAccessKey,
		SessionToken:    info.SessionToken,
		Source:          storageKeySource,
		CanExpire:       true,
		Expires:         time.Unix(int64(info.ExpiredTime), 0),
	}
	return key, nil
}

// GetGroupDetail returns the raw item detail.
func (c *Client) GetGroupDetail(ctx context.Context, groupID string) (map[string]any, error) {
	var res map[string]any
	if err := c.post(ctx, "group detail", pathModelGroupInfo, map[string]any{"id": groupID}, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// Download streams url into dst. The file is written next to dst and
// renamed on success.
func (c *Client) Download(ctx context.Context, url, dst string) (int64, error) {
	const op = "download container"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if c.creds != nil && c.creds.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.creds.Token)
		req.AddCookie(&http.Cookie{Name: "accessToken", Value: c.creds.Token})
	}

	resp, err := c.download.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if err := netx.ExpectStatus(op, resp, http.StatusOK); err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	tmp := dst + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

func (c *Client) post(ctx context.Context, op, path string, payload, out any) error {
	if !c.creds.HasModelToken() {
		return common.ErrNoModelToken
	}

	buf, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	c.setHeaders(req.Header)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	raw, err := netx.ReadBody(resp)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return &netx.StatusError{Op: op, StatusCode: resp.StatusCode, Body: netx.Snippet(string(raw))}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &netx.DecodeError{Op: op, Err: err}
	}
	if env.Code != 0 {
		return &APIError{Op: op, Code: env.Code, Msg: env.Msg}
	}
	if out == nil || len(env.Result) == 0 || bytes.Equal(env.Result, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return &netx.DecodeError{Op: op, Err: err}
	}

	c.log.Debug(ctx, "catalog call", "op", op, "bytes", len(raw))
	return nil
}

func (c *Client) setHeaders(h http.Header) {
	h.Set("Accept", "application/json, text/plain, */*")
	h.Set("Content-Type", "application/json")
	h.Set(common.HeaderToken, c.creds.ModelToken)
	h.Set(common.HeaderUserID, c.creds.ModelUserID)
	h.Set(common.HeaderBrand, clientBrand)
	h.Set(common.HeaderOSLang, clientOSLang)
	h.Set(common.HeaderAppVer, clientAppVersion)
	h.Set(common.HeaderAppCh, clientAppChannel)
	h.Set(common.HeaderOSVer, clientOSVersion)
	h.Set(common.HeaderTimezone, strconv.Itoa(c.timezone))
	h.Set(common.HeaderAppID, common.AppID)
	h.Set(common.HeaderPlatform, strconv.Itoa(c.platform))
	h.Set("Origin", c.base)
	h.Set("Referer", c.base+"/es/")
}
