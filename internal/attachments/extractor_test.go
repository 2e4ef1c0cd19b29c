package attachments

import (
	"archive/zip"
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExtractPlainText(t *testing.T) {
	text := ExtractText([]byte("привет, мир"), MimeText)
	assert.Equal(t, "привет, мир", text)
}

func TestExtractUnsupportedTypeReturnsPlaceholder(t *testing.T) {
	text := ExtractText([]byte{0x01, 0x02}, "application/octet-stream")
	assert.True(t, strings.HasPrefix(text, "["))
	assert.Contains(t, text, "application/octet-stream")
}

func TestExtractCorruptPDFReturnsErrorMarker(t *testing.T) {
	text := ExtractText([]byte("это не PDF"), MimePDF)
	assert.True(t, strings.HasPrefix(text, "[Ошибка извлечения текста:"), text)
}

func TestExtractCorruptDOCXReturnsErrorMarker(t *testing.T) {
	text := ExtractText([]byte("это не zip"), MimeDOCX)
	assert.True(t, strings.HasPrefix(text, "[Ошибка извлечения текста:"), text)
}

func TestExtractDOCXWithoutDocumentXML(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/styles.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte("<styles/>"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	text := ExtractText(buf.Bytes(), MimeDOCX)
	assert.Contains(t, text, "word/document.xml")
	assert.True(t, strings.HasPrefix(text, "[Ошибка извлечения текста:"), text)
}

func TestExtractDOCX(t *testing.T) {
	document := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Первый абзац.</w:t></w:r></w:p>
    <w:p><w:r><w:t>Второй </w:t></w:r><w:r><w:t>абзац.</w:t></w:r></w:p>
  </w:body>
</w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(document))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	text := ExtractText(buf.Bytes(), MimeDOCX)
	assert.Contains(t, text, "Первый абзац.")
	assert.Contains(t, text, "Второй абзац.")
}

func TestExtractXLSX(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "имя"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "количество"))
	require.NoError(t, f.SetCellValue("Sheet1", "A2", "яблоки"))
	require.NoError(t, f.SetCellValue("Sheet1", "B2", 3))

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	text := ExtractText(buf.Bytes(), MimeXLSX)
	assert.Contains(t, text, `Лист "Sheet1":`)
	assert.Contains(t, text, "имя,количество")
	assert.Contains(t, text, "яблоки,3")
}

func TestExtractCorruptXLSXReturnsErrorMarker(t *testing.T) {
	text := ExtractText([]byte("мусор"), MimeXLSX)
	assert.True(t, strings.HasPrefix(text, "[Ошибка извлечения текста:"), text)
}
