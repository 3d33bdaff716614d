package utils_test

import (
	"mime/multipart"
	"testing"

	"coin-miniapp-system/utils"

	"github.com/stretchr/testify/assert"
)

func TestSniffImageType(t *testing.T) {
	pngHeader := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}
	jpegHeader := []byte{0xff, 0xd8, 0xff, 0xe0, 0, 0, 0, 0}

	contentType, err := utils.SniffImageType(pngHeader)
	assert.NoError(t, err)
	assert.Equal(t, "image/png", contentType)

	contentType, err = utils.SniffImageType(jpegHeader)
	assert.NoError(t, err)
	assert.Equal(t, "image/jpeg", contentType)

	_, err = utils.SniffImageType([]byte("<html><body>not an image</body></html>"))
	assert.ErrorIs(t, err, utils.ErrMediaNotImage)

	_, err = utils.SniffImageType([]byte("MZ\x90\x00\x03"))
	assert.ErrorIs(t, err, utils.ErrMediaNotImage)
}

func TestUploadImageRejectsOversizedFile(t *testing.T) {
	header := &multipart.FileHeader{
		Filename: "emblem.png",
		Size:     3 << 20,
	}

	_, err := utils.UploadImage(header, "emblems/too-big.png", 2<<20)
	assert.ErrorIs(t, err, utils.ErrMediaTooLarge)
}
