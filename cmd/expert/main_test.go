package main

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/manthysbr/aiexpert/internal/core/domain"
)

func TestNewLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "warn")
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = newLogger(&buf, "loud")
	assert.Error(t, err)

	logger, err = newLogger(&buf, "")
	require.NoError(t, err)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.False(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestWriteImages(t *testing.T) {
	dir := t.TempDir()
	png := domain.Image{MIMEType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}
	jpeg := domain.Image{MIMEType: "image/jpeg", Data: []byte{0xff, 0xd8, 0xff}}

	var out bytes.Buffer
	require.NoError(t, writeImages(&out, dir, "image", []string{png.DataURI(), jpeg.DataURI()}))

	data, err := os.ReadFile(filepath.Join(dir, "image-1.png"))
	require.NoError(t, err)
	assert.Equal(t, png.Data, data)

	data, err = os.ReadFile(filepath.Join(dir, "image-2.jpg"))
	require.NoError(t, err)
	assert.Equal(t, jpeg.Data, data)
	assert.Contains(t, out.String(), "image-2.jpg")
}

func TestWriteImagesRejectsBadURI(t *testing.T) {
	err := writeImages(&bytes.Buffer{}, t.TempDir(), "image", []string{"not-a-uri"})
	assert.True(t, domain.IsKind(err, domain.KindInvalidRequest))
}

func TestReadImage(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pic")
	require.NoError(t, os.WriteFile(path, []byte("\x89PNG\r\n\x1a\n0000"), 0o644))

	img, err := readImage(path)
	require.NoError(t, err)
	assert.Equal(t, "image/png", img.MIMEType)

	text := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(text, []byte("hello"), 0o644))
	_, err = readImage(text)
	assert.Error(t, err)
}

func TestRootRegistersCommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"relay", "serve", "provider", "local", "chat", "enhance", "describe", "imagine", "edit", "refine"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, cmd.Name())
	}
}
