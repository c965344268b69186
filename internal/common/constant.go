package common

// Platform request headers.
const (
	HeaderToken     = "__cxy_token_"
	HeaderUserID    = "__cxy_uid_"
	HeaderAppID     = "__cxy_app_id_"
	HeaderPlatform  = "__cxy_platform_"
	HeaderOSLang    = "__cxy_os_lang_"
	HeaderTimezone  = "__cxy_timezone_"
	HeaderAppVer    = "__cxy_app_ver_"
	HeaderAppCh     = "__cxy_app_ch_"
	HeaderOSVer     = "__cxy_os_ver_"
	HeaderBrand     = "__cxy_brand_"
	HeaderDUID      = "__cxy_duid_"
	HeaderRequestID = "__cxy_requestid_"
)

// AppID identifies the model marketplace application to the identity
// provider.
const AppID = "creality_model"

// Cookie names set by the platform.
const (
	CookieIDApplication = "id-application"
	CookieModelToken    = "model_token"
	CookieModelUserID   = "model_user_id"
)
