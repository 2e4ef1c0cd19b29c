package attachments

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/sirupsen/logrus"
	"github.com/xuri/excelize/v2"
)

// ExtractText извлекает текст документа по его media type. Ошибка разбора
// одного файла никогда не валит запрос целиком: вместо текста возвращается
// маркер ошибки, который попадёт в слот этого файла.
func ExtractText(data []byte, mimetype string) (text string) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("Паника при извлечении текста (%s): %v", mimetype, r)
			text = extractionErrorMarker(fmt.Errorf("%v", r))
		}
	}()

	var err error
	switch NormalizeMime(mimetype) {
	case MimePDF:
		text, err = extractPDF(data)
	case MimeDOCX:
		text, err = extractDOCX(data)
	case MimeXLSX:
		text, err = extractXLSX(data)
	case MimeText:
		return string(data)
	default:
		return fmt.Sprintf("[Файл типа %s: извлечение текста не поддерживается]", mimetype)
	}

	if err != nil {
		logrus.Errorf("Ошибка при извлечении текста (%s): %v", mimetype, err)
		return extractionErrorMarker(err)
	}
	return text
}

func extractionErrorMarker(err error) string {
	return fmt.Sprintf("[Ошибка извлечения текста: %v]", err)
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("не удалось открыть PDF: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("не удалось прочитать текст PDF: %w", err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("не удалось прочитать текст PDF: %w", err)
	}
	return buf.String(), nil
}

// extractDOCX читает word/document.xml внутри zip-контейнера и собирает
// содержимое текстовых узлов, без форматирования.
func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("не удалось открыть DOCX: %w", err)
	}

	var document *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			document = f
			break
		}
	}
	if document == nil {
		return "", errors.New("в DOCX нет word/document.xml")
	}

	rc, err := document.Open()
	if err != nil {
		return "", fmt.Errorf("не удалось прочитать word/document.xml: %w", err)
	}
	defer rc.Close()

	decoder := xml.NewDecoder(rc)
	var b strings.Builder
	inText := false
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("не удалось разобрать word/document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			if t.Name.Local == "t" {
				inText = false
			}
			if t.Name.Local == "p" {
				b.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				b.Write(t)
			}
		}
	}
	return strings.TrimSpace(b.String()), nil
}

// extractXLSX выводит для каждого листа строку-заголовок с его именем и
// строки ячеек через запятую, листы в порядке файла.
func extractXLSX(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("не удалось открыть XLSX: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("не удалось прочитать лист %q: %w", sheet, err)
		}
		fmt.Fprintf(&b, "Лист %q:\n", sheet)
		for _, row := range rows {
			b.WriteString(strings.Join(row, ","))
			b.WriteString("\n")
		}
	}
	return strings.TrimSpace(b.String()), nil
}
