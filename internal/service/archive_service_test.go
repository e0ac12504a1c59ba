package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/gtd_backoffice/internal/config"
)

func TestArchiveService_UploadSignsRequest(t *testing.T) {
	var (
		gotPath, gotAuth, gotType string
		gotBody                   []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	svc, err := NewArchiveService(context.Background(), config.ArchiveConfig{
		Region:          "ap-south-1",
		Bucket:          "docs",
		Endpoint:        srv.URL,
		AccessKeyID:     "AKIDEXAMPLE",
		SecretAccessKey: "secret",
	})
	require.NoError(t, err)

	url, err := svc.Upload(context.Background(), "invoices/INV-1.pdf", []byte("%PDF-1.3"), "application/pdf")
	require.NoError(t, err)

	assert.Equal(t, srv.URL+"/docs/invoices/INV-1.pdf", url)
	assert.Equal(t, "/docs/invoices/INV-1.pdf", gotPath)
	assert.Equal(t, "application/pdf", gotType)
	assert.Equal(t, "%PDF-1.3", string(gotBody))
	assert.True(t, strings.HasPrefix(gotAuth, "AWS4-HMAC-SHA256 Credential=AKIDEXAMPLE/"), gotAuth)
	assert.Contains(t, gotAuth, "/ap-south-1/s3/aws4_request")
}

func TestArchiveService_UploadFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "AccessDenied", http.StatusForbidden)
	}))
	defer srv.Close()

	svc, err := NewArchiveService(context.Background(), config.ArchiveConfig{
		Region: "ap-south-1", Bucket: "docs", Endpoint: srv.URL,
		AccessKeyID: "AKIDEXAMPLE", SecretAccessKey: "secret",
	})
	require.NoError(t, err)

	_, err = svc.Upload(context.Background(), "invoices/INV-1.pdf", []byte("x"), "application/pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AccessDenied")
}

func TestArchiveService_SkipsWithoutCredentials(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer srv.Close()

	svc := &ArchiveService{
		bucket:   "docs",
		region:   "ap-south-1",
		endpoint: srv.URL,
		creds: aws.CredentialsProviderFunc(func(context.Context) (aws.Credentials, error) {
			return aws.Credentials{}, errors.New("no credentials")
		}),
		client: srv.Client(),
	}

	url, err := svc.Upload(context.Background(), "invoices/INV-2.pdf", []byte("x"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/docs/invoices/INV-2.pdf", url)
	assert.False(t, called)
}

func TestArchiveService_ObjectURL(t *testing.T) {
	svc := &ArchiveService{bucket: "docs", region: "ap-south-1"}
	assert.Equal(t, "https://docs.s3.ap-south-1.amazonaws.com/a/b.pdf", svc.ObjectURL("a/b.pdf"))
}
