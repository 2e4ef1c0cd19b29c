package attachments

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Store сохраняет загруженные файлы на диск на время обработки запроса.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("не удалось создать каталог загрузок %q: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Save кладёт файл под уникальным именем и возвращает путь.
func (s *Store) Save(filename string, data []byte) (string, error) {
	name := uuid.New().String() + filepath.Ext(filename)
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("не удалось сохранить файл %q: %w", filename, err)
	}
	return path, nil
}

// Remove удаляет файл по принципу best-effort: ошибка логируется, но не
// поднимается.
func (s *Store) Remove(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil {
		logrus.Warnf("Не удалось удалить временный файл %s: %v", path, err)
	}
}
