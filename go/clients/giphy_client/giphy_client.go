package giphy_client

import (
	"strconv"

	"github.com/gifmeananswer/server/go/clients"
)

// GiphyClient searches the Giphy API for candidate GIFs.
type GiphyClient struct {
	*clients.BaseClient
}

// NewGiphyClient creates a client with the token, result limit and
// language baked into every request.
func NewGiphyClient(baseURL, token string, limit int, language string) *GiphyClient {
	client := &GiphyClient{
		BaseClient: clients.NewBaseClient(baseURL),
	}

	client.SetParam(APIKeyParam, token)
	client.SetParam(LimitParam, strconv.Itoa(limit))
	client.SetParam(LanguageParam, language)

	return client
}
