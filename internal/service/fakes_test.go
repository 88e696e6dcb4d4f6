package service

import (
	"bytes"
	"errors"
	"io"

	"github.com/Tomlord1122/task-manager/internal/storage"
)

var errBoom = errors.New("boom")

// memAvatars mimics storage.AvatarStore without touching disk.
type memAvatars struct {
	saved   map[string][]byte
	removed []string
	n       int
}

func newMemAvatars() *memAvatars {
	return &memAvatars{saved: map[string][]byte{}}
}

func (m *memAvatars) Save(r io.Reader) (string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if !bytes.HasPrefix(b, []byte("\x89PNG")) {
		return "", storage.ErrNotAnImage
	}
	m.n++
	url := "/avatars/" + string(rune('a'+m.n-1)) + ".png"
	m.saved[url] = b
	return url, nil
}

func (m *memAvatars) Remove(url string) error {
	delete(m.saved, url)
	m.removed = append(m.removed, url)
	return nil
}
