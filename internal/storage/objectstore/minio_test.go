package objectstore

import (
	"errors"
	"testing"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
)

func TestObjectName(t *testing.T) {
	assert.Equal(t, "kv/campuscast_shared_events.json", objectName("campuscast_shared_events"))
}

func TestIsNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"missing key", minio.ErrorResponse{Code: "NoSuchKey"}, true},
		{"missing object", minio.ErrorResponse{Code: "NoSuchObject"}, true},
		{"access denied", minio.ErrorResponse{Code: "AccessDenied"}, false},
		{"plain error", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isNotFound(tt.err))
		})
	}
}
