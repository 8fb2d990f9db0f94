package chunkio

import (
	"archive/zip"
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
)

// ExpiredChunks lists the chunk files in dir whose batch timestamp is older
// than the retention window.
func ExpiredChunks(dir string, retention time.Duration, now time.Time) ([]ChunkFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	cutoff := now.UTC().Add(-retention)
	expired := make([]ChunkFile, 0)
	for _, entry := range entries {
		chunk, err := ParseFileName(entry.Name())
		if err != nil {
			continue
		}
		t, err := time.Parse(BatchTimestampLayout, chunk.BatchTimestamp)
		if err != nil {
			continue
		}
		if t.Before(cutoff) {
			chunk.Path = filepath.Join(dir, entry.Name())
			expired = append(expired, *chunk)
		}
	}
	return expired, nil
}

// Sweep deletes the chunk files in dir older than the retention window and
// returns how many were removed. A file that fails to delete is logged and
// left for the next sweep.
func Sweep(dir string, retention time.Duration, now time.Time) (int, error) {
	expired, err := ExpiredChunks(dir, retention, now)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, chunk := range expired {
		if err := os.Remove(chunk.Path); err != nil {
			logrus.Warnf("sweep: could not remove %s: %v", chunk.Path, err)
			continue
		}
		removed++
	}
	return removed, nil
}

// ZipChunks packs the given chunk files into a single zip archive at destZip.
func ZipChunks(chunks []ChunkFile, destZip string) error {
	zipFile, err := os.Create(destZip)
	if err != nil {
		return err
	}
	defer zipFile.Close()

	writer := zip.NewWriter(zipFile)
	defer writer.Close()

	for _, chunk := range chunks {
		entry, err := writer.Create(chunk.Name)
		if err != nil {
			return err
		}
		src, err := os.Open(chunk.Path)
		if err != nil {
			return err
		}
		if _, err := io.Copy(entry, src); err != nil {
			src.Close()
			return err
		}
		src.Close()
	}
	return nil
}

// UploadToS3 uploads a local file to the configured bucket.
func UploadToS3(ctx context.Context, filePath, bucketName, itemKey, accessKeyID, secretAccessKey, region string) error {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, "")),
	)
	if err != nil {
		return err
	}

	client := s3.NewFromConfig(cfg)

	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String(itemKey),
		Body:   file,
	})

	return err
}
