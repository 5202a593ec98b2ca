package core

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/oneconcern/cachetransporter/internal/rand"
	"github.com/oneconcern/cachetransporter/pkg/archive"
	"github.com/oneconcern/cachetransporter/pkg/cafs"
	"github.com/oneconcern/cachetransporter/pkg/errors"
	"github.com/oneconcern/cachetransporter/pkg/model"
	"github.com/oneconcern/cachetransporter/pkg/server"
	"github.com/oneconcern/cachetransporter/pkg/storage/localfs"
	"github.com/oneconcern/cachetransporter/pkg/transport"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const testTemp = "/tmp/cache-transporter"

type remote struct {
	fs     afero.Fs
	client *transport.Client
}

// setupRemote starts a cache server backed by an in-memory file system
func setupRemote(t testing.TB) remote {
	t.Helper()
	fs := afero.NewMemMapFs()
	store, err := localfs.New(fs)
	require.NoError(t, err)
	ts := httptest.NewServer(server.New(store, server.WithLogger(zaptest.NewLogger(t))).Handler())
	t.Cleanup(ts.Close)

	client, err := transport.NewClient(ts.URL, transport.WithHTTPClient(ts.Client()))
	require.NoError(t, err)
	return remote{fs: fs, client: client}
}

// setupCache runs operations from wd, with local state kept in memory
func setupCache(t testing.TB, wd string, opts ...Option) (*Cache, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	return New(append([]Option{
		Fs(fs),
		TempDir(testTemp),
		WorkingDir(wd),
		Logger(zaptest.NewLogger(t)),
	}, opts...)...), fs
}

type tree map[string][]byte

// setupTree writes files below root and returns their content by slash separated relative name
func setupTree(t testing.TB, root string, names ...string) tree {
	t.Helper()
	content := make(tree, len(names))
	for _, name := range names {
		pth := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(pth), 0755))
		data := rand.LetterBytes(512)
		require.NoError(t, os.WriteFile(pth, data, 0644))
		content[name] = data
	}
	return content
}

func assertTree(t testing.TB, root string, expected tree) {
	t.Helper()
	for name, data := range expected {
		b, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(name)))
		require.NoError(t, err, name)
		assert.Equal(t, data, b, name)
	}
}

var buildFiles = []string{
	"dist/index.js",
	"dist/assets/app.css",
	"node_modules/left-pad/index.js",
	"node_modules/.bin/tool",
	"node_modules/.package-lock.json",
}

func TestSaveRestoreRoundTrip(t *testing.T) {
	repo := filepath.Join(t.TempDir(), "repo")
	expected := setupTree(t, repo, buildFiles...)
	c, fs := setupCache(t, repo)

	res, err := c.Save(context.Background(), "round-trip", []string{"dist", "node_modules"})
	require.NoError(t, err)
	assert.Equal(t, repo, res.Metadata.Base)
	assert.Equal(t, repo, res.Metadata.Cwd)
	assert.Equal(t, len(buildFiles)+5, res.Stats.Entries)

	key, err := cafs.KeyFromFile(fs, res.Paths.ArchiveFile)
	require.NoError(t, err)
	assert.Equal(t, key.String(), res.Metadata.Hash)

	md, err := model.ReadMetadata(fs, filepath.Join(testTemp, "round-trip.json"))
	require.NoError(t, err)
	assert.Equal(t, res.Metadata, md)

	require.NoError(t, os.RemoveAll(filepath.Join(repo, "dist")))
	require.NoError(t, os.RemoveAll(filepath.Join(repo, "node_modules")))

	restored, err := c.Restore(context.Background(), "round-trip")
	require.NoError(t, err)
	assert.Equal(t, repo, restored.Target)
	assert.Empty(t, restored.Warnings)
	assertTree(t, repo, expected)
}

func TestSaveDeterministic(t *testing.T) {
	repo := filepath.Join(t.TempDir(), "repo")
	setupTree(t, repo, buildFiles...)
	c, _ := setupCache(t, repo)

	first, err := c.Save(context.Background(), "again", []string{"dist"})
	require.NoError(t, err)
	second, err := c.Save(context.Background(), "again", []string{"dist"})
	require.NoError(t, err)
	assert.Equal(t, first.Metadata.Hash, second.Metadata.Hash)
}

func TestRestoreRelocated(t *testing.T) {
	root := t.TempDir()
	w1 := filepath.Join(root, "one", "work", "pkg")
	expected := setupTree(t, filepath.Join(root, "one", "work", "dist"), "index.js", "lib/util.js")
	require.NoError(t, os.MkdirAll(w1, 0755))

	c, fs := setupCache(t, w1)
	res, err := c.Save(context.Background(), "relocated", []string{"../dist"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "one", "work", "dist"), res.Metadata.Base)
	assert.Equal(t, w1, res.Metadata.Cwd)

	// restore from another checkout, sharing the local state
	w2 := filepath.Join(root, "two", "checkout", "pkg")
	require.NoError(t, os.MkdirAll(w2, 0755))
	relocated := New(Fs(fs), TempDir(testTemp), WorkingDir(w2), Logger(zaptest.NewLogger(t)))
	restored, err := relocated.Restore(context.Background(), "relocated")
	require.NoError(t, err)

	target := filepath.Join(root, "two", "checkout", "dist")
	assert.Equal(t, target, restored.Target)
	assertTree(t, target, expected)
	_, err = os.Stat(filepath.Join(root, "two", "checkout", "pkg", "index.js"))
	assert.True(t, os.IsNotExist(err))
}

func TestSaveSingleFile(t *testing.T) {
	repo := filepath.Join(t.TempDir(), "repo")
	expected := setupTree(t, repo, "out/report.txt")
	c, _ := setupCache(t, repo)

	res, err := c.Save(context.Background(), "single", []string{"out/report.txt"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(repo, "out"), res.Metadata.Base)
	assert.Equal(t, 1, res.Stats.Entries)

	require.NoError(t, os.RemoveAll(filepath.Join(repo, "out")))
	_, err = c.Restore(context.Background(), "single")
	require.NoError(t, err)
	assertTree(t, repo, expected)
}

func TestSaveSymlinkedDirectory(t *testing.T) {
	repo := filepath.Join(t.TempDir(), "repo")
	expected := setupTree(t, repo, "real/a.txt")
	require.NoError(t, os.Symlink("real", filepath.Join(repo, "link")))
	c, _ := setupCache(t, repo)

	// the link is archived as itself, relative to its parent
	res, err := c.Save(context.Background(), "symlinked", []string{"link"})
	require.NoError(t, err)
	assert.Equal(t, repo, res.Metadata.Base)
	assert.Equal(t, 1, res.Stats.Entries)

	require.NoError(t, os.Remove(filepath.Join(repo, "link")))
	restored, err := c.Restore(context.Background(), "symlinked")
	require.NoError(t, err)
	assert.Equal(t, repo, restored.Target)

	info, err := os.Lstat(filepath.Join(repo, "link"))
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&os.ModeSymlink)
	dest, err := os.Readlink(filepath.Join(repo, "link"))
	require.NoError(t, err)
	assert.Equal(t, "real", dest)
	assertTree(t, repo, expected)
}

func TestPushPullOsFs(t *testing.T) {
	repo := filepath.Join(t.TempDir(), "repo")
	expected := setupTree(t, repo, buildFiles...)
	r := setupRemote(t)
	c := New(
		TempDir(filepath.Join(t.TempDir(), "tmp")),
		WorkingDir(repo),
		Client(r.client),
		Logger(zaptest.NewLogger(t)),
	)

	res, err := c.Push(context.Background(), "on-disk", []string{"dist", "node_modules"})
	require.NoError(t, err)
	exists, err := afero.Exists(r.fs, "ac/"+cafs.IdentifierKey("on-disk").String())
	require.NoError(t, err)
	assert.True(t, exists, "metadata is published after the archive")

	fresh := filepath.Join(t.TempDir(), "checkout")
	require.NoError(t, os.MkdirAll(fresh, 0755))
	other := New(
		TempDir(filepath.Join(t.TempDir(), "tmp")),
		WorkingDir(fresh),
		Client(r.client),
	)
	restored, err := other.Pull(context.Background(), "on-disk")
	require.NoError(t, err)
	assert.Equal(t, fresh, restored.Target)
	assert.Equal(t, res.Stats.Entries, restored.Entries)
	assertTree(t, fresh, expected)
}

func TestSaveErrors(t *testing.T) {
	repo := filepath.Join(t.TempDir(), "repo")
	setupTree(t, repo, buildFiles...)
	c, fs := setupCache(t, repo)

	_, err := c.Save(context.Background(), "none", nil)
	assert.True(t, errors.Is(err, ErrNoPaths))

	_, err = c.Save(context.Background(), "../escape", []string{"dist"})
	assert.True(t, errors.Is(err, model.ErrInvalidCacheID))

	_, err = c.Save(context.Background(), "missing", []string{"not-there"})
	assert.True(t, errors.Is(err, ErrUnreadablePath))

	// a failed save leaves no archive behind, not even a stale one
	stale := filepath.Join(testTemp, "stale.tgz")
	require.NoError(t, fs.MkdirAll(testTemp, 0755))
	require.NoError(t, afero.WriteFile(fs, stale, []byte("stale"), 0644))
	_, err = c.Save(context.Background(), "stale", []string{"dist", "not-there"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnreadablePath))
	exists, err := afero.Exists(fs, stale)
	require.NoError(t, err)
	assert.False(t, exists)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = c.Save(ctx, "cancelled", []string{"dist"})
	assert.True(t, errors.Is(err, context.Canceled))
	exists, _ = afero.Exists(fs, filepath.Join(testTemp, "cancelled.tgz"))
	assert.False(t, exists)
}

func TestUploadPreconditions(t *testing.T) {
	repo := filepath.Join(t.TempDir(), "repo")
	setupTree(t, repo, buildFiles...)
	r := setupRemote(t)
	c, fs := setupCache(t, repo, Client(r.client))

	err := c.Upload(context.Background(), "never-saved")
	assert.True(t, errors.Is(err, ErrMissingArchive))
	assert.Contains(t, err.Error(), "never-saved.tgz")

	require.NoError(t, fs.MkdirAll(testTemp, 0755))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(testTemp, "half.tgz"), []byte("x"), 0644))
	err = c.Upload(context.Background(), "half")
	assert.True(t, errors.Is(err, ErrMissingMetadata))
	assert.Contains(t, err.Error(), "half.json")

	_, err = c.Save(context.Background(), "no-client", []string{"dist"})
	require.NoError(t, err)
	offline := New(Fs(fs), TempDir(testTemp), WorkingDir(repo))
	assert.True(t, errors.Is(offline.Upload(context.Background(), "no-client"), ErrNoTransport))
	_, err = offline.Download(context.Background(), "no-client")
	assert.True(t, errors.Is(err, ErrNoTransport))
}

func TestBuildScenario(t *testing.T) {
	repo := filepath.Join(t.TempDir(), "repo")
	expected := setupTree(t, repo, buildFiles...)
	r := setupRemote(t)
	c, _ := setupCache(t, repo, Client(r.client))

	res, err := c.Push(context.Background(), "build-42", []string{
		filepath.Join(repo, "dist"),
		filepath.Join(repo, "node_modules"),
	})
	require.NoError(t, err)
	assert.Equal(t, "build-42", res.Metadata.CacheID)
	assert.Equal(t, repo, res.Metadata.Cwd)
	assert.Equal(t, repo, res.Metadata.Base)
	assert.True(t, cafs.IsValidKey(res.Metadata.Hash))

	// the archive is stored under its hash, the metadata under the hash of the cache id
	exists, err := afero.Exists(r.fs, "cas/"+res.Metadata.Hash)
	require.NoError(t, err)
	assert.True(t, exists)
	raw, err := afero.ReadFile(r.fs, "ac/"+cafs.IdentifierKey("build-42").String())
	require.NoError(t, err)
	md, err := model.UnmarshalMetadata(raw)
	require.NoError(t, err)
	assert.Equal(t, res.Metadata, md)

	// a fresh machine
	fresh := filepath.Join(t.TempDir(), "checkout")
	require.NoError(t, os.MkdirAll(fresh, 0755))
	other, otherFs := setupCache(t, fresh, Client(r.client))

	restored, err := other.Pull(context.Background(), "build-42")
	require.NoError(t, err)
	assert.Equal(t, fresh, restored.Target)
	assertTree(t, fresh, expected)

	downloaded, err := afero.ReadFile(otherFs, filepath.Join(testTemp, "build-42.json"))
	require.NoError(t, err)
	assert.Equal(t, raw, downloaded)
}

func TestUploadIdempotent(t *testing.T) {
	repo := filepath.Join(t.TempDir(), "repo")
	setupTree(t, repo, buildFiles...)
	r := setupRemote(t)
	c, fs := setupCache(t, repo, Client(r.client))

	res, err := c.Save(context.Background(), "twice", []string{"dist"})
	require.NoError(t, err)
	require.NoError(t, c.Upload(context.Background(), "twice"))
	first, err := afero.ReadFile(r.fs, "cas/"+res.Metadata.Hash)
	require.NoError(t, err)

	require.NoError(t, c.Upload(context.Background(), "twice"))
	second, err := afero.ReadFile(r.fs, "cas/"+res.Metadata.Hash)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	local, err := afero.ReadFile(fs, res.Paths.ArchiveFile)
	require.NoError(t, err)
	assert.Equal(t, local, second)
}

func TestDownloadIntegrity(t *testing.T) {
	repo := filepath.Join(t.TempDir(), "repo")
	setupTree(t, repo, buildFiles...)
	r := setupRemote(t)
	c, _ := setupCache(t, repo, Client(r.client))

	res, err := c.Push(context.Background(), "tampered", []string{"dist"})
	require.NoError(t, err)

	// flip a single byte of the stored object, out of band
	name := "cas/" + res.Metadata.Hash
	stored, err := afero.ReadFile(r.fs, name)
	require.NoError(t, err)
	stored[len(stored)/2] ^= 0xff
	require.NoError(t, afero.WriteFile(r.fs, name, stored, 0600))

	other, otherFs := setupCache(t, t.TempDir(), Client(r.client))
	_, err = other.Download(context.Background(), "tampered")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrHashMismatch))

	exists, err := afero.Exists(otherFs, filepath.Join(testTemp, "tampered.tgz"))
	require.NoError(t, err)
	assert.False(t, exists, "a corrupt archive is never left for restore")
	_, err = other.Restore(context.Background(), "tampered")
	assert.True(t, errors.Is(err, ErrMissingArchive))
}

func TestRestoreVerifiesLocalArchive(t *testing.T) {
	repo := filepath.Join(t.TempDir(), "repo")
	setupTree(t, repo, buildFiles...)
	c, fs := setupCache(t, repo)

	res, err := c.Save(context.Background(), "local", []string{"dist"})
	require.NoError(t, err)
	data, err := afero.ReadFile(fs, res.Paths.ArchiveFile)
	require.NoError(t, err)
	data[10] ^= 0x01
	require.NoError(t, afero.WriteFile(fs, res.Paths.ArchiveFile, data, 0644))

	_, err = c.Restore(context.Background(), "local")
	assert.True(t, errors.Is(err, ErrHashMismatch))

	_, err = c.Restore(context.Background(), "never-saved")
	assert.True(t, errors.Is(err, ErrMissingMetadata))
}

func TestDownloadErrors(t *testing.T) {
	r := setupRemote(t)
	c, _ := setupCache(t, t.TempDir(), Client(r.client))

	_, err := c.Download(context.Background(), "unknown")
	require.Error(t, err)
	assert.True(t, transport.IsNotFound(err))
	var se *transport.StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)

	// a record stored under the key of another cache id is rejected
	raw, err := model.MarshalMetadata(model.Metadata{
		CacheID: "other",
		Cwd:     "/repo",
		Base:    "/repo",
		Hash:    cafs.KeyFromBytes([]byte("x")).String(),
	})
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(r.fs, "ac/"+cafs.IdentifierKey("mixed-up").String(), raw, 0600))
	_, err = c.Download(context.Background(), "mixed-up")
	assert.True(t, errors.Is(err, model.ErrInvalidMetadata))

	// metadata pointing to a missing archive
	raw, err = model.MarshalMetadata(model.Metadata{
		CacheID: "dangling",
		Cwd:     "/repo",
		Base:    "/repo",
		Hash:    cafs.KeyFromBytes([]byte("x")).String(),
	})
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(r.fs, "ac/"+cafs.IdentifierKey("dangling").String(), raw, 0600))
	_, err = c.Download(context.Background(), "dangling")
	assert.True(t, transport.IsNotFound(err))
}

func TestRestoreOverExisting(t *testing.T) {
	repo := filepath.Join(t.TempDir(), "repo")
	setupTree(t, repo, buildFiles...)
	c, _ := setupCache(t, repo)

	_, err := c.Save(context.Background(), "existing", []string{"dist"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(repo, "dist", "index.js"), []byte("modified"), 0644))

	var res archive.Result
	res, err = c.Restore(context.Background(), "existing")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(repo, "dist"), res.Target)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 4, res.Entries)
	b, err := os.ReadFile(filepath.Join(repo, "dist", "index.js"))
	require.NoError(t, err)
	assert.NotEqual(t, "modified", string(b))
}
