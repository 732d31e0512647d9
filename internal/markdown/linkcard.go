package markdown

import (
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/net/html"
)

// fetchLinkCard fetches url and extracts OG/Twitter/standard meta tags
//. Best-effort: the caller logs and
// discards failures.
func fetchLinkCard(url string) (ResolvedLinkCard, error) {
	resp, err := http.Get(url)
	if err != nil {
		return ResolvedLinkCard{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return ResolvedLinkCard{}, fmt.Errorf("linkcard: %s: status %d", url, resp.StatusCode)
	}

	card := ResolvedLinkCard{URL: url}
	tokenizer := html.NewTokenizer(resp.Body)
	for {
		tt := tokenizer.Next()
		switch tt {
		case html.ErrorToken:
			return card, nil
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := tokenizer.Token()
			switch tok.Data {
			case "title":
				if tt == html.StartTagToken && card.Title == "" {
					if tokenizer.Next() == html.TextToken {
						card.Title = strings.TrimSpace(tokenizer.Token().Data)
					}
				}
			case "meta":
				applyMetaTag(&card, tok)
			case "link":
				applyLinkTag(&card, tok)
			}
		}
	}
}

func applyMetaTag(card *ResolvedLinkCard, tok html.Token) {
	attrs := attrMap(tok)
	key := attrs["property"]
	if key == "" {
		key = attrs["name"]
	}
	content := attrs["content"]
	if content == "" {
		return
	}
	switch key {
	case "og:title", "twitter:title":
		if card.Title == "" {
			card.Title = content
		}
	case "og:description", "twitter:description", "description":
		if card.Description == "" {
			card.Description = content
		}
	case "og:image", "twitter:image":
		if card.Image == "" {
			card.Image = content
		}
	}
}

func applyLinkTag(card *ResolvedLinkCard, tok html.Token) {
	attrs := attrMap(tok)
	rel := attrs["rel"]
	if card.Favicon == "" && (rel == "icon" || rel == "shortcut icon") {
		card.Favicon = attrs["href"]
	}
}

func attrMap(tok html.Token) map[string]string {
	out := make(map[string]string, len(tok.Attr))
	for _, a := range tok.Attr {
		out[a.Key] = a.Val
	}
	return out
}
