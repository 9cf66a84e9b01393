package eclass

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/ppdms/tree-eclass/internal/entity"
)

// extractLinks parses a documents page and splits its anchors into file and
// directory links, keeping page order. The filtering rules mirror the way
// the e-class documents module lays out its listing: sort toggles, save and
// download buttons, the page's own URL and non-document links are skipped.
func extractLinks(baseURL, pageURL string, page io.Reader, log *slog.Logger) (files, dirs []entity.Link, err error) {
	doc, err := goquery.NewDocumentFromReader(page)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot parse page %s: %w", pageURL, err)
	}

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		text := strings.TrimSpace(sel.Text())

		if skipLink(baseURL, pageURL, href, text) {
			return
		}

		switch {
		case strings.Contains(href, "google"):
			switch {
			case strings.Contains(href, "/drive/folders/") ||
				strings.Contains(href, "accounts.google.com") ||
				strings.Contains(href, "support.google.com"):
				log.Warn("Skip non-file google link", slog.String("href", href))
			case strings.Contains(href, "drive.google.com/file/") ||
				strings.Contains(href, "drive.google.com/open"):
				files = append(files, entity.Link{URL: href, Name: text})
			default:
				log.Info("Skip unrecognized google link", slog.String("href", href))
			}
		case hasFileExtension(href):
			files = append(files, entity.Link{URL: absolutize(baseURL, href), Name: text})
		case !strings.Contains(href, "&download=/"):
			dirs = append(dirs, entity.Link{URL: absolutize(baseURL, href), Name: text})
		}
	})

	return files, dirs, nil
}

func skipLink(baseURL, pageURL, href, text string) bool {
	return baseURL+href == pageURL ||
		strings.Contains(text, "Αποθήκευση") || // save button
		strings.Contains(text, "Λήψη") || // download button
		strings.Contains(href, "&sort") ||
		strings.Contains(href, "modules/document/?course=") ||
		(!strings.Contains(href, "google") && !strings.Contains(href, "modules/document/")) ||
		(len(href) > 9 && strings.HasSuffix(href, "openDir=/")) ||
		(strings.Contains(href, "modules/document/index.php?") &&
			(!strings.Contains(href, "&openDir=/") || strings.Contains(href, "&openDir=%2F")))
}

// hasFileExtension reports whether the link tail looks like a file name.
func hasFileExtension(href string) bool {
	tail := href
	if len(tail) > 6 {
		tail = tail[len(tail)-6:]
	}

	return strings.Contains(tail, ".")
}

func absolutize(baseURL, href string) string {
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}

	return baseURL + href
}
