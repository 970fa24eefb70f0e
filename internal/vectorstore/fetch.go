package vectorstore

import (
	"archive/tar"
	"archive/zip"
	"bufio"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"coach-ai/internal/contextutil"
)

// maxArchiveSize caps the downloaded archive and the total extracted size.
const maxArchiveSize = 2 << 30

var (
	zipMagic  = []byte("PK\x03\x04")
	gzipMagic = []byte{0x1f, 0x8b}
)

// FetchArchive populates dir from a zip or tar.gz archive at archiveURL.
// It does nothing and returns false when dir already has content or archiveURL is empty.
// The archive is extracted next to dir and renamed into place, so a failed fetch
// never leaves a partial directory behind. An archive holding a single top-level
// directory is unwrapped.
func FetchArchive(ctx context.Context, archiveURL, dir string) (bool, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if archiveURL == "" {
		return false, nil
	}
	populated, err := hasEntries(dir)
	if err != nil {
		return false, err
	}
	if populated {
		logger.DebugContext(ctx, "vector db present, skipping archive fetch", "dir", dir)
		return false, nil
	}

	parent := filepath.Dir(filepath.Clean(dir))
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return false, fmt.Errorf("failed to create parent directory: %w", err)
	}

	logger.InfoContext(ctx, "downloading vector db archive", "url", archiveURL, "dir", dir)
	start := time.Now()

	archive, err := download(ctx, archiveURL, parent)
	if err != nil {
		return false, err
	}
	defer func() {
		_ = os.Remove(archive)
	}()

	staging, err := os.MkdirTemp(parent, ".vector_db-*")
	if err != nil {
		return false, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() {
		_ = os.RemoveAll(staging)
	}()

	if err := extract(archive, staging); err != nil {
		return false, err
	}

	root, err := unwrapSingleDir(staging)
	if err != nil {
		return false, err
	}

	// dir may exist as an empty directory.
	if err := os.Remove(dir); err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("failed to replace %s: %w", dir, err)
	}
	if err := os.Rename(root, dir); err != nil {
		return false, fmt.Errorf("failed to move vector db into place: %w", err)
	}

	logger.InfoContext(ctx, "vector db archive extracted", "dir", dir, "duration_ms", time.Since(start).Milliseconds())
	return true, nil
}

func hasEntries(dir string) (bool, error) {
	f, err := os.Open(dir)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to open %s: %w", dir, err)
	}
	defer func() {
		_ = f.Close()
	}()

	names, err := f.Readdirnames(1)
	if errors.Is(err, io.EOF) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", dir, err)
	}
	return len(names) > 0, nil
}

func download(ctx context.Context, archiveURL, dir string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, archiveURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	client := &http.Client{Timeout: 10 * time.Minute}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download archive: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to download archive: bad status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(dir, ".vector_db-*.archive")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}

	n, err := io.Copy(tmp, io.LimitReader(resp.Body, maxArchiveSize+1))
	closeErr := tmp.Close()
	if err == nil {
		err = closeErr
	}
	if err == nil && n > maxArchiveSize {
		err = fmt.Errorf("archive exceeds %d bytes", maxArchiveSize)
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to save archive: %w", err)
	}
	return tmp.Name(), nil
}

func extract(archive, dest string) error {
	f, err := os.Open(archive)
	if err != nil {
		return fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	head, err := bufio.NewReader(f).Peek(4)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to read archive header: %w", err)
	}

	switch {
	case bytes.HasPrefix(head, zipMagic):
		return extractZip(archive, dest)
	case bytes.HasPrefix(head, gzipMagic):
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("failed to rewind archive: %w", err)
		}
		return extractTarGz(f, dest)
	default:
		return fmt.Errorf("unsupported archive format: expected zip or tar.gz")
	}
}

// safeJoin resolves name inside dest and rejects entries that escape it.
func safeJoin(dest, name string) (string, error) {
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") {
		return "", fmt.Errorf("archive entry %q has an absolute path", name)
	}
	target := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("archive entry %q escapes destination", name)
	}
	return target, nil
}

func extractZip(archive, dest string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("failed to open zip archive: %w", err)
	}
	defer func() {
		_ = r.Close()
	}()

	var total int64
	for _, zf := range r.File {
		target, err := safeJoin(dest, zf.Name)
		if err != nil {
			return err
		}
		if zf.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create %s: %w", zf.Name, err)
			}
			continue
		}
		if !zf.Mode().IsRegular() {
			return fmt.Errorf("archive entry %q is not a regular file", zf.Name)
		}

		rc, err := zf.Open()
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", zf.Name, err)
		}
		n, err := writeFile(target, rc, maxArchiveSize-total)
		_ = rc.Close()
		if err != nil {
			return fmt.Errorf("failed to extract %s: %w", zf.Name, err)
		}
		total += n
	}
	return nil
}

func extractTarGz(r io.Reader, dest string) error {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer func() {
		_ = gz.Close()
	}()

	tr := tar.NewReader(gz)
	var total int64
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read tar archive: %w", err)
		}

		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create %s: %w", hdr.Name, err)
			}
		case tar.TypeReg:
			n, err := writeFile(target, tr, maxArchiveSize-total)
			if err != nil {
				return fmt.Errorf("failed to extract %s: %w", hdr.Name, err)
			}
			total += n
		default:
			return fmt.Errorf("archive entry %q has unsupported type %c", hdr.Name, hdr.Typeflag)
		}
	}
}

func writeFile(target string, r io.Reader, limit int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return 0, err
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(out, io.LimitReader(r, limit+1))
	closeErr := out.Close()
	if err != nil {
		return n, err
	}
	if closeErr != nil {
		return n, closeErr
	}
	if n > limit {
		return n, fmt.Errorf("extracted size exceeds %d bytes", maxArchiveSize)
	}
	return n, nil
}

// unwrapSingleDir returns the only child of dir when that child is a directory, otherwise dir.
func unwrapSingleDir(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read extracted archive: %w", err)
	}
	if len(entries) == 1 && entries[0].IsDir() {
		return filepath.Join(dir, entries[0].Name()), nil
	}
	return dir, nil
}
