package giphy_client

const (
	// Base URL
	DefaultBaseURL = "https://api.giphy.com/v1/gifs"

	// API Endpoints
	SearchEndpoint = "/search"

	// Query parameters
	APIKeyParam   = "api_key"
	LimitParam    = "limit"
	LanguageParam = "lang"
	QueryParam    = "q"
)
