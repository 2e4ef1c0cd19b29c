package attachments

import (
	"strings"
)

// Kind — результат классификации загруженного файла.
type Kind int

const (
	// KindImage — файл уйдёт провайдеру как изображение.
	KindImage Kind = iota
	// KindDocument — из файла нужно извлечь текст.
	KindDocument
	// KindRejected — тип не в списке разрешённых или файл слишком большой.
	KindRejected
)

// MaxFileSize — потолок размера одного вложения (10 МиБ).
const MaxFileSize = 10 << 20

const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimeGIF  = "image/gif"
	MimeWebP = "image/webp"
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimeText = "text/plain"
)

var imageTypes = map[string]bool{
	MimeJPEG: true,
	MimePNG:  true,
	MimeGIF:  true,
	MimeWebP: true,
}

var documentTypes = map[string]bool{
	MimePDF:  true,
	MimeDOCX: true,
	MimeXLSX: true,
	MimeText: true,
}

// Classify решает судьбу файла по заявленному media type и размеру.
func Classify(mimetype string, size int64) Kind {
	if size <= 0 || size > MaxFileSize {
		return KindRejected
	}
	mt := NormalizeMime(mimetype)
	switch {
	case imageTypes[mt]:
		return KindImage
	case documentTypes[mt]:
		return KindDocument
	default:
		return KindRejected
	}
}

// NormalizeMime отбрасывает параметры вида "; charset=utf-8" и приводит тип
// к нижнему регистру.
func NormalizeMime(mimetype string) string {
	if idx := strings.Index(mimetype, ";"); idx >= 0 {
		mimetype = mimetype[:idx]
	}
	return strings.ToLower(strings.TrimSpace(mimetype))
}
