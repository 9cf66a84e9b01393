package eclass

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	driveDownloadEndpoint = "https://drive.usercontent.google.com/download"
	driveFallbackFileName = "downloaded_file"
)

var (
	driveFileIDRe      = regexp.MustCompile(`https://drive\.google\.com/file/d/([a-zA-Z0-9_-]+)`)
	driveQueryIDRe     = regexp.MustCompile(`id=([a-zA-Z0-9_-]+)`)
	driveResourceKeyRe = regexp.MustCompile(`resourcekey=([^&]+)`)
	driveAuthUserRe    = regexp.MustCompile(`authuser=([^&]+)`)
)

func (c *Client) downloadDrive(ctx context.Context, fileURL, destDir string) (string, error) {
	resp, err := c.get(ctx, driveDownloadURL(fileURL))
	if err != nil {
		return "", fmt.Errorf("cannot download drive file %s: %w", fileURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("cannot download drive file %s: unexpected status %s", fileURL, resp.Status)
	}

	name := fileNameFromDisposition(resp.Header.Get("Content-Disposition"))
	if name == "" {
		name = c.driveFileNameFromTitle(ctx, fileURL)
	}

	return c.writeFile(destDir, name, resp.Body)
}

// driveDownloadURL rewrites a drive share link to the direct export endpoint.
func driveDownloadURL(fileURL string) string {
	downloadURL := fmt.Sprintf("%s?id=%s&export=download", driveDownloadEndpoint, driveFileID(fileURL))

	if m := driveResourceKeyRe.FindStringSubmatch(fileURL); m != nil {
		downloadURL += "&resourcekey=" + m[1]
	}
	if m := driveAuthUserRe.FindStringSubmatch(fileURL); m != nil {
		if user, err := url.QueryUnescape(m[1]); err == nil {
			downloadURL += "&authuser=" + user
		}
	}

	return downloadURL
}

func driveFileID(fileURL string) string {
	if m := driveFileIDRe.FindStringSubmatch(fileURL); m != nil {
		return m[1]
	}
	if m := driveQueryIDRe.FindStringSubmatch(fileURL); m != nil {
		return m[1]
	}

	return fileURL
}

func fileNameFromDisposition(disposition string) string {
	if disposition == "" {
		return ""
	}

	_, params, err := mime.ParseMediaType(disposition)
	if err != nil {
		return ""
	}

	return params["filename"]
}

// driveFileNameFromTitle falls back to the share page title when the export
// response carries no file name.
func (c *Client) driveFileNameFromTitle(ctx context.Context, fileURL string) string {
	resp, err := c.get(ctx, fileURL)
	if err != nil {
		c.log.Warn("Cannot fetch drive page for file name", slog.String("url", fileURL), slog.Any("error", err))

		return driveFallbackFileName
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return driveFallbackFileName
	}

	title := strings.TrimSpace(strings.ReplaceAll(doc.Find("title").First().Text(), "- Google Drive", ""))
	if title == "" {
		return driveFallbackFileName
	}

	return title
}
