package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// AspectRatio is one of the ratios the image models accept.
type AspectRatio string

const (
	AspectSquare    AspectRatio = "1:1"
	AspectWide      AspectRatio = "16:9"
	AspectTall      AspectRatio = "9:16"
	AspectLandscape AspectRatio = "4:3"
	AspectPortrait  AspectRatio = "3:4"
)

// MaxImageCount is the most images a single generation request may ask for.
const MaxImageCount = 4

// ParseAspectRatio validates raw; empty means square.
func ParseAspectRatio(raw string) (AspectRatio, error) {
	switch ar := AspectRatio(strings.TrimSpace(raw)); ar {
	case "":
		return AspectSquare, nil
	case AspectSquare, AspectWide, AspectTall, AspectLandscape, AspectPortrait:
		return ar, nil
	default:
		return "", NewError(KindInvalidRequest, "", fmt.Sprintf("unsupported aspect ratio %q (valid: 1:1, 16:9, 9:16, 4:3, 3:4)", raw), nil)
	}
}

// PromptSettings are the structured fields the generator form collects.
type PromptSettings struct {
	Idea           string `json:"idea"`
	Style          string `json:"style"`
	Lighting       string `json:"lighting"`
	Angle          string `json:"angle"`
	Mood           string `json:"mood"`
	NegativePrompt string `json:"negativePrompt"`
}

// Image is raw image bytes with their mime type.
type Image struct {
	MIMEType string
	Data     []byte
}

// DataURI encodes the image as data:<mime>;base64,<payload>.
func (i Image) DataURI() string {
	return "data:" + i.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(i.Data)
}

// ParseDataURI decodes a base64 data URI.
func ParseDataURI(uri string) (Image, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(uri), "data:")
	if !ok {
		return Image{}, NewError(KindInvalidRequest, "", "image must be a data URI", nil)
	}
	header, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return Image{}, NewError(KindInvalidRequest, "", "malformed data URI", nil)
	}
	mime, ok := strings.CutSuffix(header, ";base64")
	if !ok || mime == "" {
		return Image{}, NewError(KindInvalidRequest, "", "data URI must be base64 encoded with a mime type", nil)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, NewError(KindInvalidRequest, "", "data URI payload is not valid base64", err)
	}
	if len(data) == 0 {
		return Image{}, NewError(KindInvalidRequest, "", "data URI payload is empty", nil)
	}
	return Image{MIMEType: mime, Data: data}, nil
}
