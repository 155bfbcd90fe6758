package services

import (
	"testing"
	"time"

	"github.com/chachabrian/mooveit-admin/internal/config"
	"github.com/chachabrian/mooveit-admin/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveURLWithoutS3(t *testing.T) {
	d, err := NewDocumentStorage(config.StorageConfig{}, "https://admin.mooveit.app/", quietLogger())
	require.NoError(t, err)
	assert.False(t, d.IsUsingS3())

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"verifications/d1/identity.jpg", "https://admin.mooveit.app/uploads/verifications/d1/identity.jpg"},
		{"/verifications/../d1/x.jpg", "https://admin.mooveit.app/uploads/d1/x.jpg"},
		{"https://cdn.example.com/photo.jpg", "https://cdn.example.com/photo.jpg"},
	}
	for _, tt := range tests {
		got, err := d.ResolveURL(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestResolveURLPresignsBucketObjects(t *testing.T) {
	d, err := NewDocumentStorage(config.StorageConfig{
		Region:          "eu-west-3",
		AccessKeyID:     "AKIAEXAMPLE",
		SecretAccessKey: "secret",
		Bucket:          "mooveit-docs",
		PresignTTL:      5 * time.Minute,
	}, "", quietLogger())
	require.NoError(t, err)
	require.True(t, d.IsUsingS3())

	signed, err := d.ResolveURL("https://mooveit-docs.s3.eu-west-3.amazonaws.com/verifications/d1/driver.jpg")
	require.NoError(t, err)
	assert.Contains(t, signed, "verifications/d1/driver.jpg")
	assert.Contains(t, signed, "X-Amz-Signature=")
	assert.Contains(t, signed, "X-Amz-Expires=300")

	foreign, err := d.ResolveURL("https://other-bucket.s3.eu-west-3.amazonaws.com/x.jpg")
	require.NoError(t, err)
	assert.Equal(t, "https://other-bucket.s3.eu-west-3.amazonaws.com/x.jpg", foreign)
}

func TestResolveVerification(t *testing.T) {
	d, err := NewDocumentStorage(config.StorageConfig{}, "http://localhost:8080", quietLogger())
	require.NoError(t, err)

	v := d.ResolveVerification(models.DriverVerification{
		ID:               "v1",
		IdentityPhotoURL: "verifications/d1/identity.jpg",
		DriverPhotoURL:   "https://cdn.example.com/driver.jpg",
	})
	assert.Equal(t, "http://localhost:8080/uploads/verifications/d1/identity.jpg", v.IdentityPhotoURL)
	assert.Equal(t, "https://cdn.example.com/driver.jpg", v.DriverPhotoURL)
	assert.Empty(t, v.MotorcyclePhotoURL)
}
