package domain

import (
	"errors"
	"strings"
)

var (
	ErrConfiguration = errors.New("configuration error")
	ErrValidation    = errors.New("validation error")
	ErrTransport     = errors.New("transport error")
	ErrService       = errors.New("service error")
	ErrDecode        = errors.New("decode error")
	ErrRender        = errors.New("render error")

	ErrNotFound      = errors.New("not found")
	ErrBusy          = errors.New("an upscale is already in progress")
	ErrStaleResult   = errors.New("result belongs to a reset session")
	ErrNoImage       = errors.New("no image selected")
	ErrUpscaleFailed = errors.New(UserFacingError)

	ErrSendingReplyFailed = errors.New("failed to send reply")
)

// UserFacingError is the only message shown when the whole fallback cascade fails.
const UserFacingError = "An error occurred while processing your image. Please try again."

const (
	MsgFileTooLarge    = "File size must be less than 10MB"
	MsgUnsupportedType = "Only PNG, JPG, JPEG, and WebP formats are supported"
	MsgUnreadableImage = "The file could not be read as an image"
	MsgNoImage         = "Please select an image first"
)

// UserMessage returns the text that may be shown to an end user for err. ok is false for errors whose
// detail must stay in the logs.
func UserMessage(err error) (msg string, ok bool) {
	switch {
	case err == nil:
		return "", false
	case errors.Is(err, ErrUpscaleFailed):
		return UserFacingError, true
	case errors.Is(err, ErrValidation) && errors.Is(err, ErrDecode):
		return MsgUnreadableImage, true
	case errors.Is(err, ErrValidation) && errors.Is(err, ErrNoImage):
		return MsgNoImage, true
	case errors.Is(err, ErrValidation):
		return strings.TrimPrefix(err.Error(), ErrValidation.Error()+": "), true
	case errors.Is(err, ErrBusy), errors.Is(err, ErrStaleResult), errors.Is(err, ErrNotFound):
		return err.Error(), true
	}

	return "", false
}

type ErrorKind string

const (
	KindNone          ErrorKind = ""
	KindConfiguration ErrorKind = "configuration"
	KindValidation    ErrorKind = "validation"
	KindTransport     ErrorKind = "transport"
	KindService       ErrorKind = "service"
	KindDecode        ErrorKind = "decode"
	KindRender        ErrorKind = "render"
	KindUnknown       ErrorKind = "unknown"
)

var kinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrConfiguration, KindConfiguration},
	{ErrValidation, KindValidation},
	{ErrTransport, KindTransport},
	{ErrService, KindService},
	{ErrDecode, KindDecode},
	{ErrRender, KindRender},
}

// KindOf classifies err into the error taxonomy. A nil error has no kind.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}

	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}

	return KindUnknown
}
