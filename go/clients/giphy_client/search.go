package giphy_client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
)

type imageVariant struct {
	URL    string `json:"url"`
	Width  string `json:"width"`
	Height string `json:"height"`
	Webp   string `json:"webp"`
}

type searchResponse struct {
	Data []struct {
		ID     string `json:"id"`
		Title  string `json:"title"`
		Images struct {
			PreviewGif imageVariant `json:"preview_gif"`
			Original   imageVariant `json:"original"`
			FixedWidth imageVariant `json:"fixed_width"`
		} `json:"images"`
	} `json:"data"`
}

// SizedImage is a GIF rendition with its dimensions.
type SizedImage struct {
	URL    string `json:"url"`
	Width  string `json:"width"`
	Height string `json:"height"`
}

// FixedWidthImage is the fixed-width rendition, offered as plain GIF and
// webp.
type FixedWidthImage struct {
	URL  string `json:"url"`
	Webp string `json:"webp"`
}

// Gif is one search hit in the shape clients render.
type Gif struct {
	ID         string          `json:"id"`
	Title      string          `json:"title"`
	Preview    SizedImage      `json:"preview"`
	Original   SizedImage      `json:"original"`
	FixedWidth FixedWidthImage `json:"fixedWidth"`
}

// Search queries Giphy and maps the response renditions.
func (c *GiphyClient) Search(ctx context.Context, query string) ([]Gif, error) {
	body, err := c.Get(ctx, SearchEndpoint, url.Values{QueryParam: []string{query}})
	if err != nil {
		return nil, fmt.Errorf("failed to search gifs: %w", err)
	}

	var response searchResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	gifs := make([]Gif, len(response.Data))
	for i, hit := range response.Data {
		gifs[i] = Gif{
			ID:    hit.ID,
			Title: hit.Title,
			Preview: SizedImage{
				URL:    hit.Images.PreviewGif.URL,
				Width:  hit.Images.PreviewGif.Width,
				Height: hit.Images.PreviewGif.Height,
			},
			Original: SizedImage{
				URL:    hit.Images.Original.URL,
				Width:  hit.Images.Original.Width,
				Height: hit.Images.Original.Height,
			},
			FixedWidth: FixedWidthImage{
				URL:  hit.Images.FixedWidth.URL,
				Webp: hit.Images.FixedWidth.Webp,
			},
		}
	}
	return gifs, nil
}
