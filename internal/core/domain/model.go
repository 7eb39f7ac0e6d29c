package domain

import (
	"encoding/base64"
	"fmt"
	"strings"
)

// MaxImageBytes is the largest upload accepted for upscaling.
const MaxImageBytes = 10 << 20

type MediaType string

const (
	PNG  MediaType = "image/png"
	JPEG MediaType = "image/jpeg"
	WEBP MediaType = "image/webp"
)

var allowedMediaTypes = map[MediaType]string{
	PNG:  "png",
	JPEG: "jpg",
	WEBP: "webp",
}

// ParseMediaType normalizes a Content-Type header value, dropping parameters.
func ParseMediaType(contentType string) (MediaType, error) {
	mt, _, _ := strings.Cut(contentType, ";")
	mt = strings.ToLower(strings.TrimSpace(mt))
	if mt == "image/jpg" {
		mt = string(JPEG)
	}

	m := MediaType(mt)
	if !m.Allowed() {
		return "", fmt.Errorf("%w: %s", ErrValidation, MsgUnsupportedType)
	}

	return m, nil
}

func (m MediaType) Allowed() bool {
	_, ok := allowedMediaTypes[m]
	return ok
}

// Extension returns the file extension without the leading dot.
func (m MediaType) Extension() string {
	return allowedMediaTypes[m]
}

type ImageAsset struct {
	Name      string
	MediaType MediaType
	Data      []byte
}

// NewImageAsset validates the upload invariants: known media type and 0 < size <= MaxImageBytes.
func NewImageAsset(name string, mediaType MediaType, data []byte) (ImageAsset, error) {
	asset := ImageAsset{Name: name, MediaType: mediaType, Data: data}
	if err := asset.Validate(); err != nil {
		return ImageAsset{}, err
	}

	return asset, nil
}

func (a ImageAsset) Size() int {
	return len(a.Data)
}

func (a ImageAsset) Validate() error {
	if len(a.Data) == 0 {
		return fmt.Errorf("%w: %w", ErrValidation, ErrNoImage)
	}

	if len(a.Data) > MaxImageBytes {
		return fmt.Errorf("%w: %s", ErrValidation, MsgFileTooLarge)
	}

	if !a.MediaType.Allowed() {
		return fmt.Errorf("%w: %s", ErrValidation, MsgUnsupportedType)
	}

	return nil
}

// DataURI renders the asset as a self-describing base64 data URI.
func (a ImageAsset) DataURI() string {
	return fmt.Sprintf("data:%s;base64,%s", a.MediaType, base64.StdEncoding.EncodeToString(a.Data))
}

type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (d Dimensions) Scale(factor ScaleFactor) Dimensions {
	return Dimensions{Width: d.Width * int(factor), Height: d.Height * int(factor)}
}

func (d Dimensions) Pixels() int64 {
	return int64(d.Width) * int64(d.Height)
}

func (d Dimensions) Valid() bool {
	return d.Width > 0 && d.Height > 0
}

type Source string

const (
	SourceRemote Source = "remote"
	SourceLocal  Source = "local"
)

// Rendition is an image produced by one of the upscale paths. Remote renditions only carry a
// Locator, local ones carry the encoded bytes until they are stored.
type Rendition struct {
	Locator    string
	Data       []byte
	MediaType  MediaType
	Dimensions Dimensions
	Source     Source
}

// UpscaleResult is either a success holding a Rendition or a failure holding its ErrorKind.
type UpscaleResult struct {
	Rendition Rendition
	Kind      ErrorKind
	Err       error
}

func Success(r Rendition) UpscaleResult {
	return UpscaleResult{Rendition: r}
}

func Failure(err error) UpscaleResult {
	return UpscaleResult{Kind: KindOf(err), Err: err}
}

func (r UpscaleResult) OK() bool {
	return r.Err == nil
}

type Action string

const (
	Typing          Action = "typing"
	SendingPhoto    Action = "sending_photo"
	SendingDocument Action = "sending_document"
)

type Message struct {
	ID       int
	ChatID   int64
	Username string
	Text     string
	ImageURL string
	FileName string
	MimeType string
}
