package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/manthysbr/aiexpert/internal/core/domain"
	"github.com/manthysbr/aiexpert/internal/core/ports"
)

// SplitLines appends chunk to buffer and returns every complete
// newline-terminated line plus the unterminated remainder. Lines have the
// trailing "\n" (and "\r") removed. Neither input is modified.
//
// Splitting on '\n' never cuts a multi-byte UTF-8 sequence, so each
// returned line is decodable on its own.
func SplitLines(buffer, chunk []byte) (lines [][]byte, rest []byte) {
	data := make([]byte, 0, len(buffer)+len(chunk))
	data = append(data, buffer...)
	data = append(data, chunk...)

	start := 0
	for {
		i := bytes.IndexByte(data[start:], '\n')
		if i < 0 {
			break
		}
		line := bytes.TrimSuffix(data[start:start+i], []byte{'\r'})
		lines = append(lines, line)
		start += i + 1
	}
	return lines, data[start:]
}

// FieldPath addresses a string inside a decoded JSON object, e.g.
// "message.content".
type FieldPath []string

// ParseFieldPath splits a dotted path.
func ParseFieldPath(dotted string) FieldPath {
	return FieldPath(strings.Split(strings.TrimSpace(dotted), "."))
}

func (p FieldPath) String() string { return strings.Join(p, ".") }

// Extract walks obj along the path and returns the string found there.
func (p FieldPath) Extract(obj map[string]any) (string, bool) {
	var cur any = obj
	for _, key := range p {
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		if cur, ok = m[key]; !ok {
			return "", false
		}
	}
	s, ok := cur.(string)
	return s, ok
}

// streamDecoder turns a newline-delimited JSON body into text increments.
type streamDecoder struct {
	logger  *slog.Logger
	path    FieldPath
	onChunk ports.ChunkFunc
}

// errStreamReported is wrapped when the model server emits an error object
// in the middle of a stream.
var errStreamReported = errors.New("model server reported an error mid-stream")

// decode reads r until EOF. Malformed lines are logged and skipped.
func (d *streamDecoder) decode(ctx context.Context, r io.Reader) error {
	buf := make([]byte, 4096)
	var pending []byte
	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			var lines [][]byte
			lines, pending = SplitLines(pending, buf[:n])
			for _, line := range lines {
				if err := d.handle(line); err != nil {
					return err
				}
			}
		}
		if errors.Is(readErr, io.EOF) {
			return d.handle(pending)
		}
		if readErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			return readErr
		}
	}
}

func (d *streamDecoder) handle(line []byte) error {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return nil
	}

	var obj map[string]any
	if err := json.Unmarshal(line, &obj); err != nil {
		d.logger.Warn("skipping malformed stream line", "error", err, "line", truncate(string(line), 200))
		return nil
	}

	if msg, ok := obj["error"].(string); ok && msg != "" {
		// The relay marks a stream it had to cut off with a kind.
		if kind, _ := obj["kind"].(string); domain.ErrorKind(kind) == domain.KindUpstreamUnreachable {
			return domain.NewError(domain.KindUpstreamUnreachable, "relay",
				"the relay lost your local model server mid-reply: "+msg, errStreamReported)
		}
		return domain.NewError(domain.KindUpstreamError, "local", "the model server reported an error: "+msg, errStreamReported)
	}

	if text, ok := d.path.Extract(obj); ok && text != "" {
		d.onChunk(text)
	}
	return nil
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
