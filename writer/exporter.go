package writer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	appconfig "txoflow/config"
	"txoflow/logger"
	"txoflow/models"
)

// Exporter persists computed tables as parquet files, to a local output
// directory and optionally to S3. Both destinations are driven by
// configuration; either may be disabled independently.
type Exporter struct {
	config   *appconfig.Config
	s3Client *s3.Client
	log      *logger.Log
}

// NewExporter builds an Exporter. The S3 client is only constructed when
// S3 storage is enabled, so local-only runs need no AWS credentials.
func NewExporter(cfg *appconfig.Config) (*Exporter, error) {
	log := logger.GetLogger()

	e := &Exporter{
		config: cfg,
		log:    log,
	}

	if cfg.Storage.S3.Enabled {
		ctx := context.Background()

		loadOpts := []func(*awsconfig.LoadOptions) error{
			awsconfig.WithRegion(cfg.Storage.S3.Region),
		}
		if cfg.Storage.S3.AccessKeyID != "" && cfg.Storage.S3.SecretAccessKey != "" {
			loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(
					cfg.Storage.S3.AccessKeyID,
					cfg.Storage.S3.SecretAccessKey,
					"",
				),
			))
		}

		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
		if err != nil {
			log.WithComponent("exporter").WithError(err).Warn("failed to load AWS configuration")
			return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
		}

		creds, err := awsCfg.Credentials.Retrieve(ctx)
		if err != nil || !creds.HasKeys() {
			return nil, fmt.Errorf("aws credentials not found")
		}

		e.s3Client = s3.NewFromConfig(awsCfg)

		log.WithComponent("exporter").WithFields(logger.Fields{
			"bucket": cfg.Storage.S3.Bucket,
			"region": cfg.Storage.S3.Region,
			"prefix": cfg.Storage.S3.Prefix,
		}).Info("s3 export enabled")
	}

	return e, nil
}

// ExportAligned writes one contract's aligned table.
func (e *Exporter) ExportAligned(ctx context.Context, table *models.AlignedTable, contract string) error {
	data, err := EncodeAligned(table, e.config.Writer.Compression)
	if err != nil {
		return err
	}
	date := table.AsOfDate.Format("2006-01-02")
	return e.export(ctx, data, "aligned", date, contract, len(table.Rows))
}

// ExportGex writes one contract's dealer gamma exposure profile.
func (e *Exporter) ExportGex(ctx context.Context, points []models.GexPoint, asOf time.Time, contract string) error {
	date := asOf.Format("2006-01-02")
	data, err := EncodeGex(points, date, contract, e.config.Writer.Compression)
	if err != nil {
		return err
	}
	return e.export(ctx, data, "gex", date, contract, len(points))
}

func (e *Exporter) export(ctx context.Context, data []byte, table, date, contract string, records int) error {
	name := fmt.Sprintf("%s_%s_%s.parquet", table, time.Now().UTC().Format("20060102150405"), uuid.New().String())

	log := e.log.WithComponent("exporter").WithFields(logger.Fields{
		"table":     table,
		"date":      date,
		"contract":  contract,
		"records":   records,
		"file_size": len(data),
	})

	if dir := e.config.Writer.OutputDir; dir != "" {
		path := filepath.Join(dir, fmt.Sprintf("date=%s", date), fmt.Sprintf("contract=%s", contract), name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write parquet file: %w", err)
		}
		log.WithFields(logger.Fields{"path": path}).Info("wrote parquet file")
	}

	if e.s3Client != nil {
		key := filepath.ToSlash(filepath.Join(
			e.config.Storage.S3.Prefix,
			fmt.Sprintf("table=%s", table),
			fmt.Sprintf("date=%s", date),
			fmt.Sprintf("contract=%s", contract),
			name,
		))
		if err := e.uploadToS3(ctx, key, data); err != nil {
			log.WithError(err).WithFields(logger.Fields{
				"bucket": e.config.Storage.S3.Bucket,
				"s3_key": key,
			}).Error("failed to upload to S3")
			return err
		}
		log.WithFields(logger.Fields{"s3_key": key}).Info("uploaded parquet file to S3")
	}

	logger.IncrementExportsWritten()
	logger.LogDataFlowEntry(log, "analytics", "storage", records, table)
	return nil
}

func (e *Exporter) uploadToS3(ctx context.Context, key string, data []byte) error {
	input := &s3.PutObjectInput{
		Bucket:      aws.String(e.config.Storage.S3.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/octet-stream"),
		Metadata: map[string]string{
			"content-type":    "parquet",
			"compression":     e.config.Writer.Compression,
			"txoflow-version": e.config.Txoflow.Version,
		},
	}
	if _, err := e.s3Client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to upload to S3 bucket %s: %w", e.config.Storage.S3.Bucket, err)
	}
	return nil
}
