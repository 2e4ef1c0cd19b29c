package attachments

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyImages(t *testing.T) {
	for _, mt := range []string{MimeJPEG, MimePNG, MimeGIF, MimeWebP} {
		assert.Equal(t, KindImage, Classify(mt, 1024), mt)
	}
}

func TestClassifyDocuments(t *testing.T) {
	for _, mt := range []string{MimePDF, MimeDOCX, MimeXLSX, MimeText} {
		assert.Equal(t, KindDocument, Classify(mt, 1024), mt)
	}
}

func TestClassifyRejectsUnknownTypes(t *testing.T) {
	assert.Equal(t, KindRejected, Classify("application/zip", 1024))
	assert.Equal(t, KindRejected, Classify("video/mp4", 1024))
	assert.Equal(t, KindRejected, Classify("", 1024))
}

func TestClassifySizeCeiling(t *testing.T) {
	assert.Equal(t, KindImage, Classify(MimePNG, MaxFileSize))
	assert.Equal(t, KindRejected, Classify(MimePNG, MaxFileSize+1))
	assert.Equal(t, KindRejected, Classify(MimePNG, 0))
}

func TestClassifyNormalizesMimeParameters(t *testing.T) {
	assert.Equal(t, KindDocument, Classify("text/plain; charset=utf-8", 10))
	assert.Equal(t, KindImage, Classify("Image/PNG", 10))
}
