package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// MediaStore сохраняет байты готового результата и возвращает публичный URL.
// Load используется, когда ранее сгенерированный результат сеет новую
// генерацию (продление клипа, затравка цепочки).
type MediaStore interface {
	Save(ctx context.Context, key string, data []byte, mimeType string) (string, error)
	Load(ctx context.Context, key string) ([]byte, error)
}

// fsMediaStore пишет результаты на локальный диск. Раздачей занимается
// внешний веб-сервер, смонтированный на тот же каталог.
type fsMediaStore struct {
	dir     string
	baseURL string
	log     *zap.Logger
}

func NewFSMediaStore(dir, baseURL string, log *zap.Logger) MediaStore {
	return &fsMediaStore{
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		log:     log.With(zap.String("component", "media_store")),
	}
}

func (s *fsMediaStore) Save(_ context.Context, key string, data []byte, mimeType string) (string, error) {
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("media store: key %q escapes the storage dir", key)
	}
	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("media store: creating dir for %s: %w", key, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("media store: writing %s: %w", key, err)
	}

	url := s.baseURL + "/" + key
	s.log.Debug("media saved",
		zap.String("key", key),
		zap.String("mime_type", mimeType),
		zap.Int("size_bytes", len(data)))
	return url, nil
}

func (s *fsMediaStore) Load(_ context.Context, key string) ([]byte, error) {
	if strings.Contains(key, "..") {
		return nil, fmt.Errorf("media store: key %q escapes the storage dir", key)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, filepath.FromSlash(key)))
	if err != nil {
		return nil, fmt.Errorf("media store: reading %s: %w", key, err)
	}
	return data, nil
}

// ExtensionForMime возвращает расширение файла для известных типов медиа.
func ExtensionForMime(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	default:
		return ".bin"
	}
}
