package filestore

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// Open selects an attachment backend from the environment.
//
//	MEDTRACK_FILES_DRIVER: memory|fs|s3|unconfigured (default unconfigured)
//	MEDTRACK_FILES_ROOT: directory root when driver=fs (default ./filedata)
//	MEDTRACK_FILES_S3_BUCKET: bucket when driver=s3 (required)
//	MEDTRACK_FILES_S3_REGION: region (default us-east-1)
//	MEDTRACK_FILES_S3_ENDPOINT: optional, for MinIO
//	MEDTRACK_FILES_S3_PATH_STYLE: true|false (default false)
func Open(ctx context.Context, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	driver := os.Getenv("MEDTRACK_FILES_DRIVER")
	if driver == "" {
		driver = string(DriverUnconfigured)
	}

	switch Driver(driver) {
	case DriverMemory:
		return NewMemory(), nil
	case DriverFilesystem:
		return NewFilesystem(os.Getenv("MEDTRACK_FILES_ROOT"))
	case DriverS3:
		bucket := os.Getenv("MEDTRACK_FILES_S3_BUCKET")
		if bucket == "" {
			return nil, fmt.Errorf("MEDTRACK_FILES_S3_BUCKET required for s3 driver")
		}
		return NewS3(ctx, S3Config{
			Bucket:    bucket,
			Region:    os.Getenv("MEDTRACK_FILES_S3_REGION"),
			Endpoint:  os.Getenv("MEDTRACK_FILES_S3_ENDPOINT"),
			PathStyle: strings.EqualFold(os.Getenv("MEDTRACK_FILES_S3_PATH_STYLE"), "true"),
		})
	case DriverUnconfigured:
		logger.Warn("file storage not configured, uploads will record placeholder token")
		return Unconfigured{}, nil
	default:
		return nil, fmt.Errorf("unknown filestore driver %s", driver)
	}
}
