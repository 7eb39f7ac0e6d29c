package converter

import (
	"encoding/base64"
	"pixelperfect/internal/core/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspector_Inspect(t *testing.T) {
	webp, err := base64.StdEncoding.DecodeString(tinyWEBP)
	require.NoError(t, err)

	tests := []struct {
		name          string
		data          []byte
		wantDims      domain.Dimensions
		wantMediaType domain.MediaType
		wantErr       bool
	}{
		{
			name:          "png",
			data:          encodePNG(t, 500, 300),
			wantDims:      domain.Dimensions{Width: 500, Height: 300},
			wantMediaType: domain.PNG,
		},
		{
			name:          "jpeg",
			data:          encodeJPEG(t, 12, 7),
			wantDims:      domain.Dimensions{Width: 12, Height: 7},
			wantMediaType: domain.JPEG,
		},
		{
			name:          "webp",
			data:          webp,
			wantDims:      domain.Dimensions{Width: 1, Height: 1},
			wantMediaType: domain.WEBP,
		},
		{
			name:    "html error page",
			data:    []byte("<html>gateway timeout</html>"),
			wantErr: true,
		},
		{
			name:    "empty",
			data:    nil,
			wantErr: true,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dims, mediaType, err := NewInspector().Inspect(tc.data)
			if tc.wantErr {
				require.ErrorIs(t, err, domain.ErrDecode)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.wantDims, dims)
			assert.Equal(t, tc.wantMediaType, mediaType)
		})
	}
}
