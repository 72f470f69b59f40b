package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMinDuration(t *testing.T) {
	assert.Equal(t, time.Second, MinDuration(time.Second, time.Minute))
	assert.Equal(t, time.Second, MinDuration(time.Minute, time.Second))
}

func TestAttachmentHeader(t *testing.T) {
	assert.Equal(t, `attachment; filename="resized-images.zip"`, AttachmentHeader("resized-images.zip"))
	assert.Equal(t, `attachment; filename="badname.png"`, AttachmentHeader("bad\"name\n.png"))
}

func TestHumanBytes(t *testing.T) {
	assert.Equal(t, "512 B", HumanBytes(512))
	assert.Equal(t, "1.5 KiB", HumanBytes(1536))
	assert.Equal(t, "2.0 MiB", HumanBytes(2*1024*1024))
}
