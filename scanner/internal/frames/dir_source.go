package frames

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true}

// DirSource replays the images of a directory in name order, one per call.
type DirSource struct {
	mu    sync.Mutex
	paths []string
	next  int
	seq   uint64
	loop  bool
}

// NewDirSource lists the images in dir. With loop set the sequence restarts
// after the last image instead of reporting io.EOF.
func NewDirSource(dir string, loop bool) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read frames dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no png or jpeg images in %s", dir)
	}
	sort.Strings(paths)
	return &DirSource{paths: paths, loop: loop}, nil
}

func (s *DirSource) Len() int { return len(s.paths) }

func (s *DirSource) Next(ctx context.Context) (*Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.next >= len(s.paths) {
		if !s.loop {
			s.mu.Unlock()
			return nil, io.EOF
		}
		s.next = 0
	}
	path := s.paths[s.next]
	s.next++
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read frame %s: %w", path, err)
	}
	return &Frame{
		Kind:      Image,
		Data:      data,
		Source:    filepath.Base(path),
		Seq:       seq,
		Timestamp: time.Now(),
	}, nil
}
