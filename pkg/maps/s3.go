package maps

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ObjectGetter is the subset of *s3.Client used by S3Downloader.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// MirrorOptions describes an S3-compatible map mirror.
type MirrorOptions struct {
	Bucket   string
	Region   string
	Endpoint string // empty = AWS
	Prefix   string
}

// NewS3Client builds an anonymous S3 client for a public mirror. A custom
// endpoint switches to path-style addressing, which most S3-compatible
// stores require.
func NewS3Client(opts MirrorOptions) *s3.Client {
	o := s3.Options{
		Region:      opts.Region,
		Credentials: aws.AnonymousCredentials{},
	}
	if opts.Endpoint != "" {
		o.BaseEndpoint = aws.String(opts.Endpoint)
		o.UsePathStyle = true
	}
	return s3.New(o)
}

// S3Downloader fetches maps from an S3 bucket into a local directory and
// records them in an Index.
//
// Objects are keyed as prefix + source + "/" + hint, falling back to the
// hash when the hint is empty:
//
//	client := maps.NewS3Client(maps.MirrorOptions{Bucket: "kiai-maps", Region: "us-east-1"})
//	dl := maps.NewS3Downloader(client, "kiai-maps", "maps/", "/home/rin/.kiai/maps", index)
//	registry.Register("", dl)
type S3Downloader struct {
	client  ObjectGetter
	bucket  string
	prefix  string
	dir     string
	index   Index
	maxSize int64
}

// NewS3Downloader creates a downloader writing into dir.
func NewS3Downloader(client ObjectGetter, bucket, prefix, dir string, index Index) *S3Downloader {
	return &S3Downloader{
		client:  client,
		bucket:  bucket,
		prefix:  prefix,
		dir:     dir,
		index:   index,
		maxSize: 64 << 20,
	}
}

// WithMaxSize sets the largest object accepted (0 = no limit).
func (d *S3Downloader) WithMaxSize(n int64) *S3Downloader {
	d.maxSize = n
	return d
}

// Key returns the object key for src.
func (d *S3Downloader) Key(src Source) string {
	name := src.Hint
	if name == "" {
		name = normalizeHash(src.Hash)
	}
	if src.Source == "" {
		return d.prefix + name
	}
	return d.prefix + src.Source + "/" + name
}

// Download fetches src, verifies its MD5 against src.Hash when one is given,
// and adds it to the index.
func (d *S3Downloader) Download(ctx context.Context, src Source) (Map, error) {
	key := d.Key(src)
	out, err := d.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return Map{}, fmt.Errorf("maps: s3 get %s: %w", key, err)
	}
	defer out.Body.Close()

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return Map{}, err
	}
	tmp, err := os.CreateTemp(d.dir, ".download-*")
	if err != nil {
		return Map{}, err
	}
	defer os.Remove(tmp.Name())

	h := md5.New()
	var body io.Reader = out.Body
	if d.maxSize > 0 {
		body = io.LimitReader(out.Body, d.maxSize+1)
	}
	n, err := io.Copy(io.MultiWriter(tmp, h), body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Map{}, fmt.Errorf("maps: s3 read %s: %w", key, err)
	}
	if d.maxSize > 0 && n > d.maxSize {
		return Map{}, ErrDownloadTooLarge
	}

	sum := hex.EncodeToString(h.Sum(nil))
	if src.Hash != "" && normalizeHash(src.Hash) != sum {
		return Map{}, fmt.Errorf("%w: got %s, want %s", ErrHashMismatch, sum, normalizeHash(src.Hash))
	}

	dest := filepath.Join(d.dir, fileName(key, sum))
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return Map{}, err
	}

	m := Map{
		Hash:  sum,
		Path:  dest,
		Mode:  src.Mode,
		Title: strings.TrimSuffix(path.Base(key), path.Ext(key)),
	}
	if d.index != nil {
		if err := d.index.Add(ctx, m); err != nil {
			return Map{}, err
		}
	}
	return m, nil
}

// fileName keeps the object's extension but names the file by hash so two
// mirrors can never collide on disk.
func fileName(key, hash string) string {
	ext := path.Ext(key)
	if ext == "" || strings.ContainsAny(ext, `/\`) {
		ext = ".kiai"
	}
	return hash + ext
}
