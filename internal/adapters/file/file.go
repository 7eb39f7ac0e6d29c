package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"pixelperfect/internal/core/domain"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/rs/zerolog/log"
)

// Downloader fetches remote files with a size bound.
type Downloader struct {
	client   *http.Client
	maxBytes int64
}

func NewDownloader(client *http.Client, maxBytes int64) *Downloader {
	if client == nil {
		client = &http.Client{}
	}

	return &Downloader{client: client, maxBytes: maxBytes}
}

// Download returns the byte content of a file on a provided URL.
func (d *Downloader) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		err = fmt.Errorf("%w: error creating request: %w", domain.ErrTransport, err)
		log.Error().Err(err).Str("url", url).Send()
		return nil, err
	}

	res, err := d.client.Do(req)
	if err != nil {
		err = fmt.Errorf("%w: error executing request: %w", domain.ErrTransport, err)
		log.Error().Err(err).Str("url", url).Send()
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		err = fmt.Errorf("%w: unexpected status code on download: %d", domain.ErrService, res.StatusCode)
		log.Error().Err(err).Str("url", url).Send()
		return nil, err
	}

	if d.maxBytes > 0 && res.ContentLength > d.maxBytes {
		return nil, fmt.Errorf("%w: download of %d bytes exceeds limit of %d", domain.ErrService,
			res.ContentLength, d.maxBytes)
	}

	reader := io.Reader(res.Body)
	if d.maxBytes > 0 {
		reader = io.LimitReader(res.Body, d.maxBytes+1)
	}

	buf, err := io.ReadAll(reader)
	if err != nil {
		err = fmt.Errorf("%w: error reading response: %w", domain.ErrTransport, err)
		log.Error().Err(err).Str("url", url).Send()
		return nil, err
	}

	if d.maxBytes > 0 && int64(len(buf)) > d.maxBytes {
		return nil, fmt.Errorf("%w: download exceeds limit of %d bytes", domain.ErrService, d.maxBytes)
	}

	return buf, nil
}

// TempStore keeps produced images on disk under random ids until they are removed or expire.
type TempStore struct {
	dir   string
	owned bool
	ttl   time.Duration
	mutex *sync.Mutex
	files map[string]storedFile
	now   func() time.Time
}

type storedFile struct {
	path      string
	mediaType domain.MediaType
	created   time.Time
}

// NewTempStore creates a store in dir, or in a fresh directory below os.TempDir() when dir is empty.
func NewTempStore(dir string, ttl time.Duration) (*TempStore, error) {
	owned := dir == ""
	if owned {
		var err error
		dir, err = os.MkdirTemp("", "pixelperfect-")
		if err != nil {
			return nil, fmt.Errorf("error creating store directory: %w", err)
		}
	} else if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("error creating store directory: %w", err)
	}

	log.Debug().Str("dir", dir).Dur("ttl", ttl).Msg("result store ready")

	return &TempStore{
		dir:   dir,
		owned: owned,
		ttl:   ttl,
		mutex: &sync.Mutex{},
		files: make(map[string]storedFile),
		now:   time.Now,
	}, nil
}

func (s *TempStore) Dir() string {
	return s.dir
}

// Save writes data to a new file and returns its id.
func (s *TempStore) Save(_ context.Context, data []byte, mediaType domain.MediaType) (string, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return "", err
	}

	log.Debug().Int("bytes", len(data)).Str("mediaType", string(mediaType)).Msg("creating temp file")

	path := filepath.Join(s.dir, id.String()+"."+mediaType.Extension())
	if err := os.WriteFile(path, data, 0o600); err != nil {
		err = fmt.Errorf("error writing temp file: %w", err)
		log.Error().Err(err).Send()
		return "", err
	}

	s.mutex.Lock()
	s.files[id.String()] = storedFile{path: path, mediaType: mediaType, created: s.now()}
	s.mutex.Unlock()

	log.Debug().Str("path", path).Msg("created file")

	return id.String(), nil
}

// Load retrieves a stored file by the id returned from Save.
func (s *TempStore) Load(_ context.Context, id string) ([]byte, domain.MediaType, error) {
	s.mutex.Lock()
	f, ok := s.files[id]
	s.mutex.Unlock()

	if !ok {
		return nil, "", fmt.Errorf("result %s: %w", id, domain.ErrNotFound)
	}

	buf, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, "", fmt.Errorf("result %s: %w", id, domain.ErrNotFound)
		}
		err = fmt.Errorf("error reading temp file: %w", err)
		log.Error().Err(err).Send()
		return nil, "", err
	}

	return buf, f.mediaType, nil
}

// Remove deletes a stored file and logs success or failure.
func (s *TempStore) Remove(id string) {
	s.mutex.Lock()
	f, ok := s.files[id]
	delete(s.files, id)
	s.mutex.Unlock()

	if !ok {
		return
	}

	removeFile(f.path)
}

// ExpireStale removes files older than the ttl until ctx is done, then removes everything left.
func (s *TempStore) ExpireStale(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := s.sweep(); n > 0 {
				log.Debug().Int("files", n).Msg("expired stored results")
			}
		case <-ctx.Done():
			s.purge()
			return
		}
	}
}

func (s *TempStore) sweep() int {
	deadline := s.now().Add(-s.ttl)

	var expired []string
	s.mutex.Lock()
	for id, f := range s.files {
		if f.created.Before(deadline) {
			expired = append(expired, f.path)
			delete(s.files, id)
		}
	}
	s.mutex.Unlock()

	for _, path := range expired {
		removeFile(path)
	}

	return len(expired)
}

func (s *TempStore) purge() {
	s.mutex.Lock()
	paths := make([]string, 0, len(s.files))
	for id, f := range s.files {
		paths = append(paths, f.path)
		delete(s.files, id)
	}
	s.mutex.Unlock()

	for _, path := range paths {
		removeFile(path)
	}

	log.Debug().Int("files", len(paths)).Msg("purged result store")
}

// Close removes every stored file, and the directory when the store created it.
func (s *TempStore) Close() error {
	s.purge()

	if s.owned {
		if err := os.Remove(s.dir); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("error removing store directory: %w", err)
		}
	}

	return nil
}

func removeFile(path string) {
	if err := os.Remove(path); err != nil {
		log.Warn().Str("path", path).Err(err).Msg("could not clean up temp file")
		return
	}
	log.Debug().Str("path", path).Msg("cleaned up temp file")
}

// SniffMediaType guesses the media type of data from its leading bytes.
func SniffMediaType(data []byte) domain.MediaType {
	detected := http.DetectContentType(data)
	mediaType, err := domain.ParseMediaType(detected)
	if err != nil {
		return ""
	}
	return mediaType
}
