package fetch

import (
	"bytes"
	"mime"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

// feedLink はHTMLのlink要素から検出したフィード候補。
type feedLink struct {
	URL  string
	Atom bool
}

// isHTMLContentType はContent-TypeがHTMLであるかを返す。
func isHTMLContentType(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.Split(contentType, ";")[0])
	}
	mediaType = strings.ToLower(mediaType)
	return mediaType == "text/html" || mediaType == "application/xhtml+xml"
}

// parseFeedLinks はHTMLのheadからrel="alternate"のRSS/Atomリンクを抽出する。
// 相対URLはpageURLを基準に解決し、http/https以外は除外する。
func parseFeedLinks(body []byte, pageURL string) []feedLink {
	var links []feedLink

	base, err := url.Parse(pageURL)
	if err != nil {
		return links
	}

	z := html.NewTokenizer(bytes.NewReader(body))
	inHead := false
	for {
		switch z.Next() {
		case html.ErrorToken:
			return links

		case html.EndTagToken:
			if tn, _ := z.TagName(); string(tn) == "head" {
				return links
			}

		case html.StartTagToken, html.SelfClosingTagToken:
			tn, hasAttr := z.TagName()
			switch string(tn) {
			case "head":
				inHead = true
				continue
			case "body":
				return links
			case "link":
			default:
				continue
			}
			if !inHead || !hasAttr {
				continue
			}

			var rel, typ, href string
			for more := true; more; {
				var key, val []byte
				key, val, more = z.TagAttr()
				switch strings.ToLower(string(key)) {
				case "rel":
					rel = strings.ToLower(string(val))
				case "type":
					typ = strings.ToLower(strings.TrimSpace(string(val)))
				case "href":
					href = strings.TrimSpace(string(val))
				}
			}
			if rel != "alternate" || href == "" {
				continue
			}
			if typ != "application/rss+xml" && typ != "application/atom+xml" {
				continue
			}

			ref, err := url.Parse(href)
			if err != nil {
				continue
			}
			resolved := base.ResolveReference(ref)
			if resolved.Scheme != "http" && resolved.Scheme != "https" {
				continue
			}
			links = append(links, feedLink{
				URL:  resolved.String(),
				Atom: typ == "application/atom+xml",
			})
		}
	}
}

// selectFeedLink は候補から1件を選ぶ。
// 優先順位: 同一ホスト > Atom > 出現順
func selectFeedLink(links []feedLink, pageURL string) string {
	if len(links) == 0 {
		return ""
	}

	pageHost := hostOf(pageURL)
	best, bestScore := 0, -1
	for i, l := range links {
		score := 0
		if hostOf(l.URL) == pageHost {
			score += 100
		}
		if l.Atom {
			score += 10
		}
		if score > bestScore {
			best, bestScore = i, score
		}
	}
	return links[best].URL
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// DiscoverFeedURL はHTMLページ本文からフィードURLを検出する。検出できない場合は空文字を返す。
func DiscoverFeedURL(body []byte, pageURL string) string {
	return selectFeedLink(parseFeedLinks(body, pageURL), pageURL)
}
