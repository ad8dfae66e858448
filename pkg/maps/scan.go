package maps

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// DefaultExtensions maps chart file extensions to play modes.
var DefaultExtensions = map[string]string{
	".kiai": "std",
	".osu":  "std",
	".tja":  "taiko",
	".sm":   "mania",
}

// ScanResult summarizes a Scan.
type ScanResult struct {
	Added   int
	Skipped int
}

// Scan walks dir and records every file with a known extension in idx,
// keyed by its MD5. A nil extensions map uses DefaultExtensions.
func Scan(ctx context.Context, dir string, idx Index, extensions map[string]string) (ScanResult, error) {
	if extensions == nil {
		extensions = DefaultExtensions
	}

	var res ScanResult
	err := filepath.WalkDir(dir, func(p string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		ext := strings.ToLower(filepath.Ext(p))
		mode, ok := extensions[ext]
		if !ok {
			res.Skipped++
			return nil
		}

		hash, err := HashFile(p)
		if err != nil {
			return err
		}
		if err := idx.Add(ctx, Map{
			Hash:  hash,
			Path:  p,
			Mode:  mode,
			Title: strings.TrimSuffix(filepath.Base(p), filepath.Ext(p)),
		}); err != nil {
			return err
		}
		res.Added++
		return nil
	})
	return res, err
}

// HashFile returns the lowercase hex MD5 of the file at path.
func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
