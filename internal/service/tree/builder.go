// Package tree contains the course tree synchronization core: the recursive
// crawl-and-merge builder that reconciles a freshly scraped hierarchy against
// the previous snapshot, and the differ producing the ordered change list
// between two snapshots.
package tree

import (
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/spf13/afero"

	"github.com/ppdms/tree-eclass/internal/entity"
	"github.com/ppdms/tree-eclass/internal/util"
)

// Fetcher is the content source the builder crawls. ListLinks returns the
// file and directory links visible on a documents page, in page order.
// FetchETag is best-effort, an empty string means no validator is available.
type Fetcher interface {
	ListLinks(ctx context.Context, url string) (files, dirs []entity.Link, err error)
	FetchETag(ctx context.Context, fileURL string) string
	Download(ctx context.Context, fileURL, destDir string) (localPath string, err error)
}

type Builder struct {
	fetcher Fetcher
	fs      afero.Fs
	log     *slog.Logger
}

func NewBuilder(fetcher Fetcher, fs afero.Fs, log *slog.Logger) *Builder {
	return &Builder{
		fetcher: fetcher,
		fs:      fs,
		log:     log.With(slog.String("item", "TreeBuilder")),
	}
}

// Build recursively constructs a fresh snapshot of the directory at url.
// old is the matching node of the previous snapshot and may be nil. Any
// failure aborts the whole build: a half-populated subtree would corrupt
// later diffing. The walk is strictly sequential and depth-first.
func (b *Builder) Build(ctx context.Context, url, localPath, name string, old *entity.Node) (*entity.Node, error) {
	b.log.Info("Build tree", slog.String("url", url), slog.String("path", localPath))

	if err := b.fs.MkdirAll(localPath, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create local dir %s: %w", localPath, err)
	}

	node := &entity.Node{Name: name, URL: url, LocalPath: localPath}

	fileLinks, dirLinks, err := b.fetcher.ListLinks(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("cannot list links of %s: %w", url, err)
	}

	oldFiles := make(map[string]*entity.File)
	oldChildren := make(map[string]*entity.Node)
	if old != nil {
		for _, f := range old.Files {
			if _, exists := oldFiles[f.URL]; !exists {
				oldFiles[f.URL] = f
			}
		}
		for _, c := range old.Children {
			if _, exists := oldChildren[c.Name]; !exists {
				oldChildren[c.Name] = c
			}
		}
	}

	for _, link := range fileLinks {
		file, err := b.reconcileFile(ctx, link, localPath, oldFiles[link.URL])
		if err != nil {
			return nil, err
		}

		node.Files = append(node.Files, file)
	}

	for _, link := range dirLinks {
		child, err := b.Build(ctx, link.URL, path.Join(localPath, link.Name), link.Name, oldChildren[link.Name])
		if err != nil {
			return nil, err
		}

		node.Children = append(node.Children, child)
	}

	return node, nil
}

// reconcileFile decides, for one file link, whether to re-download the
// content or reuse the metadata of the previous snapshot.
func (b *Builder) reconcileFile(ctx context.Context, link entity.Link, destDir string, old *entity.File) (*entity.File, error) {
	file := &entity.File{URL: link.URL, Name: link.Name}

	if entity.ClassifyResource(link.URL) == entity.ForeignHostedResource {
		// No cheap validator exists for drive-hosted files, the content
		// hash is recomputed on every run.
		hash, err := b.fetchAndHash(ctx, link.URL, destDir)
		if err != nil {
			return nil, err
		}

		file.MD5Hash = hash

		return file, nil
	}

	etag := b.fetcher.FetchETag(ctx, link.URL)
	if old == nil || etag == "" || old.ETag != etag {
		hash, err := b.fetchAndHash(ctx, link.URL, destDir)
		if err != nil {
			return nil, err
		}

		file.MD5Hash = hash
		file.ETag = etag
	} else {
		// Validator unchanged, skip the download and keep the known
		// hash and token.
		file.MD5Hash = old.MD5Hash
		file.ETag = old.ETag
	}

	return file, nil
}

func (b *Builder) fetchAndHash(ctx context.Context, fileURL, destDir string) (string, error) {
	localPath, err := b.fetcher.Download(ctx, fileURL, destDir)
	if err != nil {
		return "", fmt.Errorf("cannot download %s: %w", fileURL, err)
	}

	hash, err := util.HashFile(b.fs, localPath)
	if err != nil {
		return "", fmt.Errorf("cannot hash %s: %w", localPath, err)
	}

	return hash, nil
}
