package common

// Session storage keys written by the connection manager.
const (
	SessionKeyAccessToken  = "accessToken"
	SessionKeyExpiresIn    = "expiresIn"
	SessionKeyRefreshToken = "refreshToken"
	SessionKeyCodeVerifier = "codeVerifier"
	SessionKeyState        = "oauthState"
)

// Document naming conventions.
const (
	DocumentSuffix       = ".flogger.txt"
	LegacyDocumentSuffix = ".flogger"
	DefaultDocumentPath  = "/journal.flogger.txt"
	TagIndexPath         = "/flogger.tag-index.json"
)
