package upload

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"path"
	"strings"

	"betting-assessment-service/internal/domain"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const (
	maxImageWidth  = 1920
	maxImageHeight = 1080
	// DefaultMaxPixels caps decoded input at 40 megapixels.
	DefaultMaxPixels = 40_000_000
)

var allowedImageExt = map[string]imaging.Format{
	".png":  imaging.PNG,
	".jpg":  imaging.JPEG,
	".jpeg": imaging.JPEG,
}

// ProcessedImage is an image ready for storage.
type ProcessedImage struct {
	Name        string
	Data        []byte
	ContentType string
}

// ImageProcessor shrinks uploaded images to fit the display box and size cap.
type ImageProcessor struct {
	MaxBytes int64
	// MaxPixels bounds width*height before decoding; 0 means DefaultMaxPixels.
	MaxPixels int
}

// Process auto-orients img, fits it inside 1920x1080 without enlarging, and
// re-encodes until it is at most MaxBytes. JPEG quality steps down from 90 to
// 30; PNG falls back to best compression.
func (p ImageProcessor) Process(name string, data []byte) (ProcessedImage, error) {
	format, ok := allowedImageExt[strings.ToLower(path.Ext(name))]
	if !ok {
		return ProcessedImage{}, fmt.Errorf("%w: unsupported image type %q", domain.ErrInvalidUpload, name)
	}
	if err := p.checkDimensions(name, data); err != nil {
		return ProcessedImage{}, err
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return ProcessedImage{}, fmt.Errorf("%w: decode %s: %v", domain.ErrInvalidUpload, name, err)
	}
	img = imaging.Fit(img, maxImageWidth, maxImageHeight, imaging.Lanczos)

	out := ProcessedImage{Name: name, ContentType: contentType(format)}
	if format == imaging.PNG {
		for _, level := range []png.CompressionLevel{png.DefaultCompression, png.BestCompression} {
			buf, err := encode(img, format, imaging.PNGCompressionLevel(level))
			if err != nil {
				return ProcessedImage{}, err
			}
			if p.fits(buf) {
				out.Data = buf
				return out, nil
			}
		}
	} else {
		for quality := 90; quality >= 30; quality -= 10 {
			buf, err := encode(img, format, imaging.JPEGQuality(quality))
			if err != nil {
				return ProcessedImage{}, err
			}
			if p.fits(buf) {
				out.Data = buf
				return out, nil
			}
		}
	}
	return ProcessedImage{}, fmt.Errorf("%w: unable to compress %s under %s", domain.ErrInvalidUpload, name, humanBytes(p.MaxBytes))
}

// checkDimensions reads only the header so oversized images are refused
// before their pixels are allocated.
func (p ImageProcessor) checkDimensions(name string, data []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: decode %s: %v", domain.ErrInvalidUpload, name, err)
	}
	limit := p.MaxPixels
	if limit <= 0 {
		limit = DefaultMaxPixels
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || cfg.Width > limit/cfg.Height {
		return fmt.Errorf("%w: %s is %dx%d, above the %d pixel limit", domain.ErrInvalidUpload, name, cfg.Width, cfg.Height, limit)
	}
	return nil
}

func (p ImageProcessor) fits(buf []byte) bool {
	return p.MaxBytes <= 0 || int64(len(buf)) <= p.MaxBytes
}

func encode(img image.Image, format imaging.Format, opt imaging.EncodeOption) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, opt); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), nil
}

func contentType(format imaging.Format) string {
	if format == imaging.PNG {
		return "image/png"
	}
	return "image/jpeg"
}

func humanBytes(n int64) string {
	if n >= 1<<20 && n%(1<<20) == 0 {
		return fmt.Sprintf("%dMB", n>>20)
	}
	return fmt.Sprintf("%d bytes", n)
}

// ImageStore persists a processed image and returns the reference stored in
// the question row.
type ImageStore interface {
	Store(ctx context.Context, img ProcessedImage) (string, error)
}

// InlineImageStore embeds images as data URIs.
type InlineImageStore struct{}

func (InlineImageStore) Store(_ context.Context, img ProcessedImage) (string, error) {
	return "data:" + img.ContentType + ";base64," + base64.StdEncoding.EncodeToString(img.Data), nil
}

// MinioConfig holds connection settings for object storage.
type MinioConfig struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	UseSSL        bool
	PublicBaseURL string
}

// MinioImageStore uploads images to a bucket and returns their public URL.
type MinioImageStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

func NewMinioImageStore(cfg MinioConfig) (*MinioImageStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("minio client: %w", err)
	}
	return &MinioImageStore{client: client, bucket: cfg.Bucket, baseURL: strings.TrimRight(cfg.PublicBaseURL, "/")}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *MinioImageStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket %s: %w", s.bucket, err)
	}
	return nil
}

func (s *MinioImageStore) Store(ctx context.Context, img ProcessedImage) (string, error) {
	name := objectName(img.Name)
	_, err := s.client.PutObject(ctx, s.bucket, name, bytes.NewReader(img.Data), int64(len(img.Data)),
		minio.PutObjectOptions{ContentType: img.ContentType})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", img.Name, err)
	}
	return s.objectURL(name), nil
}

func (s *MinioImageStore) objectURL(name string) string {
	if s.baseURL != "" {
		return s.baseURL + "/" + name
	}
	return "/" + s.bucket + "/" + name
}

func objectName(filename string) string {
	return "questions/" + uuid.NewString() + strings.ToLower(path.Ext(filename))
}
