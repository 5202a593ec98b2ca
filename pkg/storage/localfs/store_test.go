// Copyright © 2018 One Concern

package localfs

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/oneconcern/cachetransporter/pkg/cafs"
	"github.com/oneconcern/cachetransporter/pkg/storage"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet(t *testing.T) {
	bs, _ := setupStore(t)

	rdr, err := bs.Get(context.Background(), "sixteentons")
	require.NoError(t, err)
	b, err := io.ReadAll(rdr)
	require.NoError(t, err)
	require.NoError(t, rdr.Close())
	assert.Equal(t, "this is the text", string(b))

	rdr, err = bs.Get(context.Background(), "nested/seventeentons")
	require.NoError(t, err)
	b, err = io.ReadAll(rdr)
	require.NoError(t, err)
	require.NoError(t, rdr.Close())
	assert.Equal(t, "this is the text for another thing", string(b))

	_, err = bs.Get(context.Background(), "fifteentons")
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrNotFound))

	_, err = bs.Get(context.Background(), "nested")
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrNotFound), "directories are not objects")
}

func TestPut(t *testing.T) {
	bs, fs := setupStore(t)

	content := bytes.NewBufferString("here we go once again")
	err := bs.Put(context.Background(), "cas/eighteentons", content)
	require.NoError(t, err)

	rdr, err := bs.Get(context.Background(), "cas/eighteentons")
	require.NoError(t, err)
	b, err := io.ReadAll(rdr)
	require.NoError(t, err)
	require.NoError(t, rdr.Close())
	assert.Equal(t, "here we go once again", string(b))

	// overwrite
	require.NoError(t, bs.Put(context.Background(), "cas/eighteentons", strings.NewReader("and again")))
	b, err = afero.ReadFile(fs, "cas/eighteentons")
	require.NoError(t, err)
	assert.Equal(t, "and again", string(b))

	assert.ElementsMatch(t, []string{"sixteentons", "nested/seventeentons", "cas/eighteentons"}, storedKeys(t, fs))
	assertStagingEmpty(t, fs)
}

func TestPutVerified(t *testing.T) {
	bs, fs := setupStore(t)
	content := []byte("verified content")
	key := cafs.KeyFromBytes(content)
	name := "cas/" + key.String()

	require.NoError(t, bs.Put(context.Background(), name, bytes.NewReader(content), storage.WithVerifier(storage.VerifyKey(key))))
	has, err := afero.Exists(fs, name)
	require.NoError(t, err)
	assert.True(t, has)

	// a rejected write never becomes visible and leaves the previous object untouched
	err = bs.Put(context.Background(), name, strings.NewReader("poisoned"), storage.WithVerifier(storage.VerifyKey(key)))
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrHashMismatch))

	b, err := afero.ReadFile(fs, name)
	require.NoError(t, err)
	assert.Equal(t, content, b)
	assertStagingEmpty(t, fs)

	other := "cas/" + cafs.KeyFromBytes([]byte("other")).String()
	err = bs.Put(context.Background(), other, strings.NewReader("not other"), storage.WithVerifier(storage.VerifyKey(cafs.KeyFromBytes([]byte("other")))))
	require.Error(t, err)
	has, err = afero.Exists(fs, other)
	require.NoError(t, err)
	assert.False(t, has)
	assertStagingEmpty(t, fs)
}

func TestPutConcurrentIdentical(t *testing.T) {
	bs, fs := setupStore(t)
	content := bytes.Repeat([]byte("abc"), 100000)
	key := cafs.KeyFromBytes(content)
	name := "cas/" + key.String()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = bs.Put(context.Background(), name, bytes.NewReader(content), storage.WithVerifier(storage.VerifyKey(key)))
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}
	b, err := afero.ReadFile(fs, name)
	require.NoError(t, err)
	assert.Equal(t, content, b)
	assertStagingEmpty(t, fs)
}

func TestPutCancelled(t *testing.T) {
	bs, fs := setupStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := bs.Put(ctx, "cas/cancelled", strings.NewReader("never written"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.NotContains(t, storedKeys(t, fs), "cas/cancelled")
	assertStagingEmpty(t, fs)
}

func TestInvalidKeys(t *testing.T) {
	bs, _ := setupStore(t)
	for _, key := range []string{"", "/abs", "../escape", "a/../../b", "a//b", ".put-stage/x", `a\b`, "."} {
		err := bs.Put(context.Background(), key, strings.NewReader("x"))
		require.Error(t, err, key)
		assert.True(t, errors.Is(err, storage.ErrInvalidResource), key)

		_, err = bs.Get(context.Background(), key)
		require.Error(t, err, key)
		assert.True(t, errors.Is(err, storage.ErrInvalidResource), key)
	}
}

func TestString(t *testing.T) {
	bs, _ := setupStore(t)
	assert.Equal(t, "localfs", bs.String())

	dir := t.TempDir()
	at, err := NewAt(dir)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(at.String(), "localfs@"))
}

func assertStagingEmpty(t testing.TB, fs afero.Fs) {
	t.Helper()
	entries, err := afero.ReadDir(fs, nestedPutStageName)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func setupStore(t testing.TB) (storage.Store, afero.Fs) {
	t.Helper()

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "sixteentons", []byte("this is the text"), 0600))
	require.NoError(t, fs.MkdirAll("nested", 0700))
	require.NoError(t, afero.WriteFile(fs, "nested/seventeentons", []byte("this is the text for another thing"), 0600))

	s, err := New(fs)
	require.NoError(t, err)
	return s, fs
}

// storedKeys lists the published objects, leaving out the staging area
func storedKeys(t testing.TB, fs afero.Fs) []string {
	t.Helper()
	var keys []string
	require.NoError(t, afero.Walk(fs, ".", func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if filepath.Base(p) == nestedPutStageName {
				return filepath.SkipDir
			}
			return nil
		}
		keys = append(keys, filepath.ToSlash(p))
		return nil
	}))
	return keys
}
