package storage

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/Sampath5633/Medica-Backend/internal/infra/config"
)

type recordingPutter struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (r *recordingPutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	r.input = in
	r.body, _ = io.ReadAll(in.Body)
	if r.err != nil {
		return nil, r.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3Archive_Put(t *testing.T) {
	putter := &recordingPutter{}
	archive := &S3Archive{client: putter, bucket: "medica-prescriptions"}

	if err := archive.Put(context.Background(), "prescriptions/a.pdf", "application/pdf", []byte("%PDF-1.3")); err != nil {
		t.Fatalf("Put returned error: %v", err)
	}
	if aws.ToString(putter.input.Bucket) != "medica-prescriptions" || aws.ToString(putter.input.Key) != "prescriptions/a.pdf" {
		t.Fatalf("unexpected target %s/%s", aws.ToString(putter.input.Bucket), aws.ToString(putter.input.Key))
	}
	if aws.ToString(putter.input.ContentType) != "application/pdf" || aws.ToInt64(putter.input.ContentLength) != 8 {
		t.Fatalf("unexpected object metadata %+v", putter.input)
	}
	if string(putter.body) != "%PDF-1.3" {
		t.Fatalf("unexpected body %q", putter.body)
	}
}

func TestS3Archive_PutError(t *testing.T) {
	archive := &S3Archive{client: &recordingPutter{err: errors.New("access denied")}, bucket: "b"}
	if err := archive.Put(context.Background(), "k", "application/pdf", nil); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNewS3Archive(t *testing.T) {
	if _, err := NewS3Archive(context.Background(), config.PrescriptionSettings{}); err == nil {
		t.Fatalf("expected error without bucket")
	}

	archive, err := NewS3Archive(context.Background(), config.PrescriptionSettings{
		S3Bucket:          "b",
		S3Region:          "us-east-1",
		S3Endpoint:        "http://localhost:9000",
		S3AccessKeyID:     "minio",
		S3SecretAccessKey: "minio123",
	})
	if err != nil {
		t.Fatalf("NewS3Archive returned error: %v", err)
	}
	if archive.bucket != "b" {
		t.Fatalf("unexpected bucket %q", archive.bucket)
	}
}
