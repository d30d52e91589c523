package extract

import (
	"fmt"
	"mime"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	ContentTypeText = "text/plain"
	ContentTypeHTML = "text/html"
)

// Text returns the document text for a supported content type. An empty
// content type is treated as plain text.
func Text(contentType, body string) (string, error) {
	if contentType == "" {
		return body, nil
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return "", fmt.Errorf("invalid content type %q: %w", contentType, err)
	}

	switch mediaType {
	case ContentTypeText:
		return body, nil
	case ContentTypeHTML:
		return HTML(body)
	default:
		return "", fmt.Errorf("unsupported content type %q", mediaType)
	}
}

// HTML strips markup, scripts and styles and collapses whitespace.
func HTML(htmlContent string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return "", fmt.Errorf("failed to parse html: %w", err)
	}

	doc.Find("script, style, noscript, head").Remove()
	text := doc.Find("body").Text()
	return strings.Join(strings.Fields(text), " "), nil
}
