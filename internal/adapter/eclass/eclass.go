// Package eclass is the content fetcher: it manages a logged-in session on
// the e-class website, scrapes documents pages for file and directory links,
// probes ETags and downloads files.
package eclass

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/ppdms/tree-eclass/internal/common"
	"github.com/ppdms/tree-eclass/internal/config"
	"github.com/ppdms/tree-eclass/internal/entity"
	"github.com/ppdms/tree-eclass/internal/util"
)

const (
	requestTimeout = 30 * time.Second

	// Page markers used by the site (Greek UI).
	markerLogin        = "Σύνδεση"
	markerRegistration = "Εγγραφή και είσοδος στο μάθημα"
	markerDocuments    = "Έγγραφα"

	loginSubmitValue = "Είσοδος"
)

// SessionStore persists the session cookies between runs so the client does
// not have to log in on every cycle.
type SessionStore interface {
	LoadCookies(ctx context.Context) (string, error)
	SaveCookies(ctx context.Context, cookies string) error
}

type storedCookie struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Client struct {
	cfg      *config.EclassConfig
	httpc    *http.Client
	fs       afero.Fs
	store    SessionStore
	baseURL  *url.URL
	restored bool
	log      *slog.Logger
}

func NewClient(cfg *config.EclassConfig, store SessionStore, fs afero.Fs, log *slog.Logger) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cannot create cookie jar: %w", err)
	}

	baseURL, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("cannot parse base url: %w", err)
	}

	return &Client{
		cfg:     cfg,
		httpc:   &http.Client{Jar: jar, Timeout: requestTimeout},
		fs:      fs,
		store:   store,
		baseURL: baseURL,
		log:     log.With(slog.String("item", "EclassClient")),
	}, nil
}

// ListLinks fetches a documents page and returns its file and directory
// links in page order. When the session has expired it logs in again and
// retries the page once.
func (c *Client) ListLinks(ctx context.Context, pageURL string) (files, dirs []entity.Link, err error) {
	if err := c.ensureSession(ctx); err != nil {
		return nil, nil, err
	}

	page, err := c.getPage(ctx, pageURL)
	if err != nil {
		return nil, nil, err
	}

	if strings.Contains(page, markerLogin) {
		c.log.Info("Session expired, logging in again", slog.String("url", pageURL))

		if err := c.login(ctx); err != nil {
			return nil, nil, err
		}

		page, err = c.getPage(ctx, pageURL)
		if err != nil {
			return nil, nil, err
		}

		if strings.Contains(page, markerLogin) {
			return nil, nil, fmt.Errorf("still on login page for %s: %w", pageURL, common.ErrAuthRequired)
		}
	}

	if strings.Contains(page, markerRegistration) {
		return nil, nil, fmt.Errorf("course at %s: %w", pageURL, common.ErrNotRegistered)
	}

	if !strings.Contains(page, markerDocuments) {
		c.log.Warn("Page does not look like a documents page", slog.String("url", pageURL))
	}

	return extractLinks(c.cfg.BaseURL, pageURL, strings.NewReader(page), c.log)
}

// FetchETag probes the ETag of a file. It is best-effort: any failure is
// reported as an absent validator.
func (c *Client) FetchETag(ctx context.Context, fileURL string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, fileURL, nil)
	if err != nil {
		return ""
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	return resp.Header.Get("ETag")
}

// Download fetches a file into destDir and returns the local path it was
// written to. Drive-hosted files go through the export endpoint.
func (c *Client) Download(ctx context.Context, fileURL, destDir string) (string, error) {
	if entity.ClassifyResource(fileURL) == entity.ForeignHostedResource {
		return c.downloadDrive(ctx, fileURL, destDir)
	}

	resp, err := c.get(ctx, fileURL)
	if err != nil {
		return "", fmt.Errorf("cannot download file %s: %w", fileURL, err)
	}

	if resp.StatusCode == http.StatusForbidden {
		// Stale cookie, refresh the session and retry once.
		resp.Body.Close()

		if err := c.login(ctx); err != nil {
			return "", err
		}

		resp, err = c.get(ctx, fileURL)
		if err != nil {
			return "", fmt.Errorf("cannot download file %s: %w", fileURL, err)
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("cannot download file %s: unexpected status %s", fileURL, resp.Status)
	}

	return c.writeFile(destDir, util.FileNameFromURL(fileURL), resp.Body)
}

func (c *Client) writeFile(destDir, name string, r io.Reader) (string, error) {
	if err := c.fs.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("cannot create dir %s: %w", destDir, err)
	}

	destPath := path.Join(destDir, name)

	f, err := c.fs.Create(destPath)
	if err != nil {
		return "", fmt.Errorf("cannot create file %s: %w", destPath, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return "", fmt.Errorf("cannot write file %s: %w", destPath, err)
	}

	return destPath, nil
}

func (c *Client) getPage(ctx context.Context, pageURL string) (string, error) {
	resp, err := c.get(ctx, pageURL)
	if err != nil {
		return "", fmt.Errorf("cannot get page %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("cannot get page %s: unexpected status %s", pageURL, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("cannot read page %s: %w", pageURL, err)
	}

	return string(data), nil
}

func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	return c.httpc.Do(req)
}

// ensureSession restores the persisted cookies on first use, logging in when
// no cookies are stored yet.
func (c *Client) ensureSession(ctx context.Context) error {
	if c.restored {
		return nil
	}

	stored, err := c.store.LoadCookies(ctx)
	if err != nil {
		return fmt.Errorf("cannot load session cookies: %w", err)
	}

	if stored == "" {
		c.log.Info("No stored session, logging in")

		return c.login(ctx)
	}

	var cookies []storedCookie
	if err := json.Unmarshal([]byte(stored), &cookies); err != nil {
		c.log.Warn("Cannot decode stored cookies, logging in again", slog.Any("error", err))

		return c.login(ctx)
	}

	jarCookies := make([]*http.Cookie, 0, len(cookies))
	for _, ck := range cookies {
		jarCookies = append(jarCookies, &http.Cookie{Name: ck.Name, Value: ck.Value})
	}
	c.httpc.Jar.SetCookies(c.baseURL, jarCookies)
	c.restored = true

	return nil
}

// login posts the credentials form and persists the fresh session cookies.
func (c *Client) login(ctx context.Context) error {
	form := url.Values{
		"uname":  {c.cfg.Username},
		"pass":   {c.cfg.Password},
		"submit": {loginSubmitValue},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.LoginURL(), strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("cannot build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("cannot log in: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("cannot log in: unexpected status %s: %w", resp.Status, common.ErrAuthRequired)
	}

	cookies := make([]storedCookie, 0)
	for _, ck := range c.httpc.Jar.Cookies(c.baseURL) {
		cookies = append(cookies, storedCookie{Name: ck.Name, Value: ck.Value})
	}

	data, err := json.Marshal(cookies)
	if err != nil {
		return fmt.Errorf("cannot encode session cookies: %w", err)
	}

	if err := c.store.SaveCookies(ctx, string(data)); err != nil {
		return fmt.Errorf("cannot save session cookies: %w", err)
	}

	c.restored = true
	c.log.Info("Logged in, session cookies saved")

	return nil
}
