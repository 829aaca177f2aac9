// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/factor8/TagDeck/internal/models"
)

// GatewayCall records one write sent to a [MockGateway].
type GatewayCall struct {
	Op       string
	PID      string
	Playlist string
	Value    any
}

// MockGateway is a test double for [services.Gateway]
//
// Reads return the configured data or error. Writes are recorded and fail with WriteErr when set.
type MockGateway struct {
	mu sync.Mutex

	Changes    []models.Track
	Fields     []models.FieldSnapshot
	Playlists  []models.Playlist
	Library    []models.Track
	PlayCounts map[string]int

	ChangesErr   error
	FieldsErr    error
	PlaylistsErr error
	LibraryErr   error
	WriteErr     error

	Since []time.Time
	Calls []GatewayCall

	// Block, when set, is read from before ChangesSince returns.
	Block chan struct{}
}

func (m *MockGateway) Name() string { return "mock" }

func (m *MockGateway) ChangesSince(ctx context.Context, since time.Time) ([]models.Track, error) {
	if m.Block != nil {
		<-m.Block
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Since = append(m.Since, since)
	if m.ChangesErr != nil {
		return nil, m.ChangesErr
	}
	return slices.Clone(m.Changes), nil
}

func (m *MockGateway) SnapshotFields(ctx context.Context) ([]models.FieldSnapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FieldsErr != nil {
		return nil, m.FieldsErr
	}
	return slices.Clone(m.Fields), nil
}

func (m *MockGateway) PlaylistSnapshot(ctx context.Context) ([]models.Playlist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PlaylistsErr != nil {
		return nil, m.PlaylistsErr
	}
	out := make([]models.Playlist, len(m.Playlists))
	for i, p := range m.Playlists {
		p.TrackIDs = slices.Clone(p.TrackIDs)
		out[i] = p
	}
	return out, nil
}

func (m *MockGateway) LibraryTracks(ctx context.Context) ([]models.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LibraryErr != nil {
		return nil, m.LibraryErr
	}
	return slices.Clone(m.Library), nil
}

func (m *MockGateway) UpdateComment(ctx context.Context, pid, comment string) error {
	return m.record(GatewayCall{Op: "UpdateComment", PID: pid, Value: comment})
}

func (m *MockGateway) BatchUpdateComments(ctx context.Context, updates []models.CommentUpdate) error {
	return m.record(GatewayCall{Op: "BatchUpdateComments", Value: slices.Clone(updates)})
}

func (m *MockGateway) UpdateRating(ctx context.Context, pid string, rating int) error {
	return m.record(GatewayCall{Op: "UpdateRating", PID: pid, Value: rating})
}

func (m *MockGateway) UpdateTrackInfo(ctx context.Context, pid string, info models.TrackInfo) error {
	return m.record(GatewayCall{Op: "UpdateTrackInfo", PID: pid, Value: info})
}

func (m *MockGateway) AddTrackToPlaylist(ctx context.Context, trackPID, playlistPID string) error {
	return m.record(GatewayCall{Op: "AddTrackToPlaylist", PID: trackPID, Playlist: playlistPID})
}

func (m *MockGateway) RemoveTrackFromPlaylist(ctx context.Context, trackPID, playlistPID string) error {
	return m.record(GatewayCall{Op: "RemoveTrackFromPlaylist", PID: trackPID, Playlist: playlistPID})
}

func (m *MockGateway) ReorderPlaylist(ctx context.Context, playlistPID string, trackPIDs []string) error {
	return m.record(GatewayCall{Op: "ReorderPlaylist", Playlist: playlistPID, Value: slices.Clone(trackPIDs)})
}

func (m *MockGateway) PlayCount(ctx context.Context, pid string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.PlayCounts[pid], nil
}

func (m *MockGateway) SetPlayCount(ctx context.Context, pid string, count int) error {
	m.mu.Lock()
	if m.WriteErr == nil {
		if m.PlayCounts == nil {
			m.PlayCounts = make(map[string]int)
		}
		m.PlayCounts[pid] = count
	}
	m.mu.Unlock()
	return m.record(GatewayCall{Op: "SetPlayCount", PID: pid, Value: count})
}

func (m *MockGateway) record(c GatewayCall) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, c)
	return m.WriteErr
}

// CallsTo returns the recorded writes with the given op name.
func (m *MockGateway) CallsTo(op string) []GatewayCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []GatewayCall
	for _, c := range m.Calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// FakeTagFile is an in-memory [audiofile.TagFile]. Paths listed in Fail reject every write.
type FakeTagFile struct {
	mu       sync.Mutex
	Comments map[string]string
	Info     map[string][]models.TrackInfo
	Touched  []string
	Fail     map[string]bool
}

func NewFakeTagFile() *FakeTagFile {
	return &FakeTagFile{
		Comments: make(map[string]string),
		Info:     make(map[string][]models.TrackInfo),
		Fail:     make(map[string]bool),
	}
}

func (f *FakeTagFile) ReadComment(path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail[path] {
		return "", errors.New("read failed")
	}
	return f.Comments[path], nil
}

func (f *FakeTagFile) WriteComment(path, comment string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail[path] {
		return errors.New("write failed")
	}
	f.Comments[path] = comment
	return nil
}

func (f *FakeTagFile) WriteTrackInfo(path string, info models.TrackInfo) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Fail[path] {
		return errors.New("write failed")
	}
	f.Info[path] = append(f.Info[path], info)
	if info.Comment != nil {
		f.Comments[path] = *info.Comment
	}
	return nil
}

func (f *FakeTagFile) Touch(path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Touched = append(f.Touched, path)
	return nil
}

// SetFail toggles write failures for path.
func (f *FakeTagFile) SetFail(path string, fail bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Fail[path] = fail
}

// Comment returns the last comment written to path.
func (f *FakeTagFile) Comment(path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Comments[path]
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}
