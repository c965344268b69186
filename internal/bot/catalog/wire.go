package catalog

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// envelope wraps every catalog reply.
type envelope struct {
	Code   int             `json:"code"`
	Msg    string          `json:"msg"`
	Result json.RawMessage `json:"result"`
}

// flexString accepts a JSON string or number.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}

// flexInt accepts a JSON number or a numeric string. Anything else is 0.
type flexInt int64

func (i *flexInt) UnmarshalJSON(b []byte) error {
	var fs flexString
	if err := fs.UnmarshalJSON(b); err != nil {
		return err
	}
	if fs == "" {
		*i = 0
		return nil
	}
	if v, err := strconv.ParseInt(string(fs), 10, 64); err == nil {
		*i = flexInt(v)
		return nil
	}
	if f, err := strconv.ParseFloat(string(fs), 64); err == nil {
		*i = flexInt(f)
		return nil
	}
	*i = 0
	return nil
}

// flexFloat accepts a JSON number or a numeric string.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	var fs flexString
	if err := fs.UnmarshalJSON(b); err != nil {
		return err
	}
	v, err := strconv.ParseFloat(string(fs), 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexFloat(v)
	return nil
}

type listResult[T any] struct {
	List []T `json:"list"`
}

type trendItem struct {
	ID            flexString `json:"id"`
	GroupName     string     `json:"groupName"`
	DownloadCount flexInt    `json:"downloadCount"`
	LikeCount     flexInt    `json:"likeCount"`
	TotalPrice    flexFloat  `json:"totalPrice"`
	IsPay         any        `json:"isPay"`
	CreateTime    flexString `json:"createTime"`
	UserInfo      struct {
		Introduction string `json:"introduction"`
		NickName     string `json:"nickName"`
	} `json:"userInfo"`
	Covers []struct {
		URL string `json:"url"`
	} `json:"covers"`
}

// isFree treats false and 0 as free.
func isFree(v any) bool {
	switch p := v.(type) {
	case bool:
		return !p
	case float64:
		return p == 0
	default:
		return false
	}
}

type fileItem struct {
	ID                  flexString `json:"id"`
	Name                string     `json:"name"`
	SecondName          string     `json:"secondName"`
	Size                flexInt    `json:"size"`
	Thumbnail           string     `json:"thumbnail"`
	LayerHeight         flexString `json:"layerHeight"`
	SparseInfillDensity flexString `json:"sparseInfillDensity"`
	WallLoops           flexString `json:"wallLoops"`
	PrinterName         string     `json:"printerName"`
	PrintTime           flexInt    `json:"printTime"`
	FilamentLen         flexFloat  `json:"filamentLen"`
	FilamentWeight      flexFloat  `json:"filamentWeight"`
	DownloadCount       flexInt    `json:"downloadCount"`
}

type downloadResult struct {
	DownloadURL string `json:"downloadUrl"`
}

type aliyunResult struct {
	AliyunInfo struct {
		AccessKeyID     string  `json:"accessKeyId"`
		SecretAccessKey string  `json:"secretAccessKey"`
		SessionToken    string  `json:"sessionToken"`
		ExpiredTime     flexInt `json:"expiredTime"`
		LifeTime        flexInt `json:"lifeTime"`
	} `json:"aliyunInfo"`
}

type registerResult struct {
	ID             flexString `json:"id"`
	ModelGroupID   flexString `json:"modelGroupId"`
	ModelGroupName string     `json:"modelGroupName"`
	Size           flexInt    `json:"size"`
	FileKey        string     `json:"filekey"`
	Name           string     `json:"name"`
	PrinterName    string     `json:"printerName"`
	Thumbnail      string     `json:"thumbnail"`
	IsCanPrint     bool       `json:"isCanPrint"`
	IsAuth         bool       `json:"isAuth"`
	UserID         flexString `json:"userId"`
}
