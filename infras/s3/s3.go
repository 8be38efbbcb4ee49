package s3

//go:generate go run go.uber.org/mock/mockgen -source=./s3.go -destination=./mocks/s3_mock.go -package=mocks

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"lodge/config"
	"lodge/infras/otel"
	"lodge/shared/constant"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
)

const (
	otelAttrFileName = "file_name"
	otelAttrBucket   = "bucket"
)

type S3 interface {
	UploadFile(ctx context.Context, directory, fileName, contentType string, file io.Reader) (url string, err error)
	DeleteFile(ctx context.Context, objectKey string) error
	GetObjectKeyFromURL(url string) (objectKey string)
}

type s3Impl struct {
	Client *s3.Client
	Config *config.Config
	otel   otel.Otel
}

func (svc *s3Impl) bucket() string {
	return svc.Config.External.S3.BucketName
}

// UploadFile stores the object under directory/fileName and returns its public URL.
func (svc *s3Impl) UploadFile(ctx context.Context, directory, fileName, contentType string, file io.Reader) (url string, err error) {
	ctx, scope := svc.otel.NewScope(ctx, constant.OtelS3ScopeName, constant.OtelS3ScopeName+".UploadFile")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	scope.SetAttributes(map[string]any{
		otelAttrFileName: fileName,
		otelAttrBucket:   svc.bucket(),
	})

	buf := bytes.NewBuffer(nil)

	if _, err = buf.ReadFrom(file); err != nil {
		return constant.Empty, fmt.Errorf("failed to read file: %w", err)
	}

	objectKey := path.Join(directory, fileName)
	fileReader := bytes.NewReader(buf.Bytes())

	_, err = svc.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(svc.bucket()),
		Key:           aws.String(objectKey),
		Body:          fileReader,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(fileReader.Size()),
	})
	if err != nil {
		log.Error().Err(err).Str("key", objectKey).Msg("failed to upload file to S3")

		return constant.Empty, fmt.Errorf("failed to upload file to S3: %w", err)
	}

	return fmt.Sprintf("%s/%s", strings.TrimSuffix(svc.Config.External.S3.PublicDomain, "/"), objectKey), nil
}

func (svc *s3Impl) DeleteFile(ctx context.Context, objectKey string) (err error) {
	ctx, scope := svc.otel.NewScope(ctx, constant.OtelS3ScopeName, constant.OtelS3ScopeName+".DeleteFile")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	scope.SetAttributes(map[string]any{
		otelAttrFileName: objectKey,
		otelAttrBucket:   svc.bucket(),
	})

	_, err = svc.Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(svc.bucket()),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		log.Error().Err(err).Str("key", objectKey).Msg("failed to delete file from S3")

		return fmt.Errorf("failed to delete file from S3: %w", err)
	}

	return nil
}

// GetObjectKeyFromURL reverses UploadFile. URLs that were not produced by this bucket yield an empty key.
func (svc *s3Impl) GetObjectKeyFromURL(url string) (objectKey string) {
	prefixes := []string{
		strings.TrimSuffix(svc.Config.External.S3.PublicDomain, "/") + "/",
		fmt.Sprintf("%s/%s/", strings.TrimSuffix(svc.Config.External.S3.APIEndpoint, "/"), svc.bucket()),
	}

	for _, prefix := range prefixes {
		if prefix != "/" && strings.HasPrefix(url, prefix) {
			return strings.TrimPrefix(url, prefix)
		}
	}

	return constant.Empty
}

func New(config *config.Config, otel otel.Otel) S3 {
	staticProvider := credentials.NewStaticCredentialsProvider(
		config.External.S3.AccessKeyID,
		config.External.S3.SecretAccessKey,
		"",
	)

	cfg, err := awsConfig.LoadDefaultConfig(
		context.Background(),
		awsConfig.WithCredentialsProvider(staticProvider),
	)
	if err != nil {
		log.Error().Err(err).Msg("Error loading AWS configuration")
	}

	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if config.External.S3.APIEndpoint != "" {
			o.BaseEndpoint = aws.String(config.External.S3.APIEndpoint)
		}

		o.UsePathStyle = true
		o.Region = "auto"
	})

	return &s3Impl{
		Client: s3Client,
		Config: config,
		otel:   otel,
	}
}
