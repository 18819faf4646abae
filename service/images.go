package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/kevinaaaquil/bookswap/models"
)

// Fixed cover transformation: every uploaded image is fill-cropped to this size.
const (
	CoverWidth   = 500
	CoverHeight  = 600
	coverQuality = 85
)

var ErrUnsupportedImage = errors.New("unsupported image format")

type ImageConfig struct {
	Bucket          string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string
	Prefix          string
}

type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// ImageService stores listing covers in an S3 bucket served publicly from PublicBaseURL.
type ImageService struct {
	client  objectAPI
	bucket  string
	baseURL string
	prefix  string
}

func NewImageService(ctx context.Context, cfg ImageConfig) (*ImageService, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("AWS_S3_BUCKET is required")
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return newImageService(s3.NewFromConfig(awsCfg), cfg), nil
}

func newImageService(client objectAPI, cfg ImageConfig) *ImageService {
	return &ImageService{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
		prefix:  cfg.Prefix,
	}
}

// Upload transforms the image and stores it. The returned DeleteHandle is the object key.
func (s *ImageService) Upload(ctx context.Context, data []byte) (models.Image, error) {
	cover, err := TransformCover(data)
	if err != nil {
		return models.Image{}, err
	}
	key := s.prefix + uuid.New().String() + ".jpg"
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(s.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(cover),
		ContentType:  aws.String("image/jpeg"),
		CacheControl: aws.String("public, max-age=31536000, immutable"),
	})
	if err != nil {
		return models.Image{}, fmt.Errorf("put object: %w", err)
	}
	return models.Image{URL: s.baseURL + "/" + key, DeleteHandle: key}, nil
}

// Delete removes the object named by handle.
func (s *ImageService) Delete(ctx context.Context, handle string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(handle),
	})
	return err
}

// TransformCover decodes data, fill-crops it to CoverWidth x CoverHeight around the
// centre and re-encodes it as JPEG.
func TransformCover(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	dst := imaging.Fill(img, CoverWidth, CoverHeight, imaging.Center, imaging.Lanczos)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, dst, imaging.JPEG, imaging.JPEGQuality(coverQuality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
