package service

import (
	"context"
	"fmt"
	"io"
	"lms_backend/internal/config"
	"lms_backend/internal/util"
	"lms_backend/pkg/logger"
	"os"
	"path/filepath"
	"strings"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// StorageProvider 章节视频与附件的对象存储
type StorageProvider interface {
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error)
	PutFile(ctx context.Context, key string, localPath string, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
	URL(key string) string
}

// LocalStorageProvider 本地磁盘存储，通过 /uploads 静态路由访问
type LocalStorageProvider struct {
	Root string
}

func (p *LocalStorageProvider) path(key string) (string, error) {
	dst := filepath.Join(p.Root, filepath.FromSlash(key))
	if !strings.HasPrefix(dst, filepath.Clean(p.Root)+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid object key %q", key)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return "", err
	}
	return dst, nil
}

func (p *LocalStorageProvider) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	dst, err := p.path(key)
	if err != nil {
		return "", err
	}

	out, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, reader); err != nil {
		return "", err
	}
	return p.URL(key), nil
}

func (p *LocalStorageProvider) PutFile(ctx context.Context, key string, localPath string, contentType string) (string, error) {
	src, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer src.Close()
	return p.Put(ctx, key, src, -1, contentType)
}

func (p *LocalStorageProvider) Remove(ctx context.Context, key string) error {
	dst, err := p.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (p *LocalStorageProvider) URL(key string) string {
	return "/uploads/" + key
}

// MinioStorageProvider MinIO存储实现
type MinioStorageProvider struct {
	Bucket string
	Client *minio.Client
	Scheme string
	Host   string
}

func NewMinioStorageProvider(cfg *config.StorageConfig) (*MinioStorageProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, err
		}
	}

	scheme := "http"
	if cfg.MinioUseSSL {
		scheme = "https"
	}
	return &MinioStorageProvider{Bucket: cfg.MinioBucket, Client: client, Scheme: scheme, Host: cfg.MinioEndpoint}, nil
}

func (p *MinioStorageProvider) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := p.Client.PutObject(ctx, p.Bucket, key, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return p.URL(key), nil
}

func (p *MinioStorageProvider) PutFile(ctx context.Context, key string, localPath string, contentType string) (string, error) {
	_, err := p.Client.FPutObject(ctx, p.Bucket, key, localPath, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return p.URL(key), nil
}

func (p *MinioStorageProvider) Remove(ctx context.Context, key string) error {
	return p.Client.RemoveObject(ctx, p.Bucket, key, minio.RemoveObjectOptions{})
}

func (p *MinioStorageProvider) URL(key string) string {
	return fmt.Sprintf("%s://%s/%s/%s", p.Scheme, p.Host, p.Bucket, key)
}

// OSSStorageProvider 阿里云OSS存储实现
type OSSStorageProvider struct {
	Endpoint string
	Bucket   *oss.Bucket
}

func NewOSSStorageProvider(cfg *config.StorageConfig) (*OSSStorageProvider, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	bucket, err := client.Bucket(cfg.OSSBucket)
	if err != nil {
		return nil, err
	}
	return &OSSStorageProvider{Endpoint: cfg.OSSEndpoint, Bucket: bucket}, nil
}

func (p *OSSStorageProvider) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	if err := p.Bucket.PutObject(key, reader, oss.ContentType(contentType), oss.WithContext(ctx)); err != nil {
		return "", err
	}
	return p.URL(key), nil
}

func (p *OSSStorageProvider) PutFile(ctx context.Context, key string, localPath string, contentType string) (string, error) {
	if err := p.Bucket.PutObjectFromFile(key, localPath, oss.ContentType(contentType), oss.WithContext(ctx)); err != nil {
		return "", err
	}
	return p.URL(key), nil
}

func (p *OSSStorageProvider) Remove(ctx context.Context, key string) error {
	return p.Bucket.DeleteObject(key, oss.WithContext(ctx))
}

func (p *OSSStorageProvider) URL(key string) string {
	endpoint := strings.TrimPrefix(strings.TrimPrefix(p.Endpoint, "https://"), "http://")
	return fmt.Sprintf("https://%s.%s/%s", p.Bucket.BucketName, endpoint, key)
}

// StorageService 存储服务
type StorageService struct {
	Provider StorageProvider
}

// NewStorageService 远程存储初始化失败时降级为本地存储
func NewStorageService(cfg *config.Config) *StorageService {
	var provider StorageProvider
	switch cfg.Storage.Type {
	case util.StorageMinio:
		p, err := NewMinioStorageProvider(&cfg.Storage)
		if err != nil {
			logger.Log.Warn("MinIO 初始化失败，使用本地存储", zap.Error(err))
		} else {
			provider = p
		}
	case util.StorageOSS:
		p, err := NewOSSStorageProvider(&cfg.Storage)
		if err != nil {
			logger.Log.Warn("OSS 初始化失败，使用本地存储", zap.Error(err))
		} else {
			provider = p
		}
	}

	if provider == nil {
		provider = &LocalStorageProvider{Root: cfg.Storage.LocalPath}
	}

	return &StorageService{Provider: provider}
}

func (s *StorageService) Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) (string, error) {
	return s.Provider.Put(ctx, key, reader, size, contentType)
}

func (s *StorageService) PutFile(ctx context.Context, key string, localPath string, contentType string) (string, error) {
	return s.Provider.PutFile(ctx, key, localPath, contentType)
}

// Remove 删除失败只记录日志，不影响业务流程
func (s *StorageService) Remove(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.Provider.Remove(ctx, key); err != nil {
		logger.Log.Warn("删除存储对象失败", zap.String("key", key), zap.Error(err))
	}
}
