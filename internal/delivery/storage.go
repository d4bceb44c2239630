package delivery

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// DocumentStore keeps rendered invoice PDFs in object storage.
type DocumentStore interface {
	UploadInvoicePDF(ctx context.Context, invoiceID uuid.UUID, data []byte) error
	GetPresignedURL(ctx context.Context, invoiceID uuid.UUID, expiry time.Duration) (string, error)
	DeleteInvoicePDF(ctx context.Context, invoiceID uuid.UUID) error
	EnsureBucketExists(ctx context.Context) error
}

type minioStore struct {
	client *minio.Client
	bucket string
}

func NewMinioStore(endpoint, accessKey, secretKey string, useSSL bool, bucket string) (DocumentStore, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &minioStore{client: client, bucket: bucket}, nil
}

func objectName(invoiceID uuid.UUID) string {
	return fmt.Sprintf("invoices/%s.pdf", invoiceID.String())
}

func (m *minioStore) UploadInvoicePDF(ctx context.Context, invoiceID uuid.UUID, data []byte) error {
	_, err := m.client.PutObject(ctx, m.bucket, objectName(invoiceID), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/pdf",
	})
	return err
}

func (m *minioStore) GetPresignedURL(ctx context.Context, invoiceID uuid.UUID, expiry time.Duration) (string, error) {
	url, err := m.client.PresignedGetObject(ctx, m.bucket, objectName(invoiceID), expiry, nil)
	if err != nil {
		return "", err
	}
	return url.String(), nil
}

func (m *minioStore) DeleteInvoicePDF(ctx context.Context, invoiceID uuid.UUID) error {
	return m.client.RemoveObject(ctx, m.bucket, objectName(invoiceID), minio.RemoveObjectOptions{})
}

func (m *minioStore) EnsureBucketExists(ctx context.Context) error {
	found, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !found {
		return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{})
	}
	return nil
}
