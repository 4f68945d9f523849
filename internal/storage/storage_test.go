package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nikishkaa/docx-bot/internal/config"
)

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "Java/notes.txt", ObjectKey("Java", "", "notes.txt"))
	assert.Equal(t, "DevOps/Docker/compose.yml", ObjectKey("DevOps", "Docker", "compose.yml"))
}

func TestNewMinIO_Validation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.MinIOConfig
		wantErr string
	}{
		{"no endpoint", config.MinIOConfig{}, "endpoint is required"},
		{"no credentials", config.MinIOConfig{Endpoint: "localhost:9000", Bucket: "b"}, "credentials are required"},
		{"no bucket", config.MinIOConfig{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s"}, "bucket is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewMinIO(context.Background(), tt.cfg)
			assert.Nil(t, s)
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
