package assets

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveRoot(t *testing.T) {
	t.Run("override is made absolute", func(t *testing.T) {
		dir := t.TempDir()

		root, err := ResolveRoot(dir)
		require.NoError(t, err)
		assert.Equal(t, dir, root)
	})

	t.Run("default is the executable directory", func(t *testing.T) {
		exe, err := os.Executable()
		require.NoError(t, err)
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}

		root, err := ResolveRoot("")
		require.NoError(t, err)
		assert.Equal(t, filepath.Dir(exe), root)
	})
}

func TestEnsureDirs(t *testing.T) {
	t.Run("creates missing directories", func(t *testing.T) {
		root := t.TempDir()

		created, err := EnsureDirs(root, []string{"models", "js"})
		require.NoError(t, err)
		assert.Equal(t, []string{"models", "js"}, created)

		for _, dir := range []string{"models", "js"} {
			info, err := os.Stat(filepath.Join(root, dir))
			require.NoError(t, err)
			assert.True(t, info.IsDir())
		}
	})

	t.Run("is idempotent and keeps contents", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(root, "models"), 0o755))
		weights := filepath.Join(root, "models", "weights.bin")
		require.NoError(t, os.WriteFile(weights, []byte{0x01, 0x02, 0x03}, 0o644))

		created, err := EnsureDirs(root, []string{"models", "js"})
		require.NoError(t, err)
		assert.Equal(t, []string{"js"}, created)

		created, err = EnsureDirs(root, []string{"models", "js"})
		require.NoError(t, err)
		assert.Empty(t, created)

		data, err := os.ReadFile(weights)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x01, 0x02, 0x03}, data)
	})

	t.Run("nested directories", func(t *testing.T) {
		root := t.TempDir()

		_, err := EnsureDirs(root, []string{filepath.Join("models", "gltf")})
		require.NoError(t, err)
		assert.DirExists(t, filepath.Join(root, "models", "gltf"))
	})

	t.Run("file in the way", func(t *testing.T) {
		root := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(root, "js"), []byte("x"), 0o644))

		_, err := EnsureDirs(root, []string{"js"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a directory")
	})

	t.Run("permission denied", func(t *testing.T) {
		if runtime.GOOS == "windows" || os.Geteuid() == 0 {
			t.Skip("directory permissions are not enforced for this user")
		}
		root := t.TempDir()
		require.NoError(t, os.Chmod(root, 0o555))
		t.Cleanup(func() { _ = os.Chmod(root, 0o755) })

		_, err := EnsureDirs(root, []string{"models"})
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrPermission)
	})
}

func TestFileHandler(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "models"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "models", "weights.bin"), []byte{0x01, 0x02, 0x03}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<html>scene</html>"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "js"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "js", "main.js"), []byte("init();"), 0o644))

	handler := NewFileHandler(root)

	tests := []struct {
		name            string
		method          string
		path            string
		wantStatus      int
		wantBody        string
		wantContentType string
	}{
		{name: "binary file", method: http.MethodGet, path: "/models/weights.bin", wantStatus: http.StatusOK, wantBody: "\x01\x02\x03"},
		{name: "javascript", method: http.MethodGet, path: "/js/main.js", wantStatus: http.StatusOK, wantBody: "init();", wantContentType: "javascript"},
		{name: "index", method: http.MethodGet, path: "/", wantStatus: http.StatusOK, wantBody: "<html>scene</html>", wantContentType: "text/html"},
		{name: "listing", method: http.MethodGet, path: "/models/", wantStatus: http.StatusOK, wantBody: "weights.bin"},
		{name: "head", method: http.MethodHead, path: "/models/weights.bin", wantStatus: http.StatusOK},
		{name: "missing", method: http.MethodGet, path: "/models/missing.glb", wantStatus: http.StatusNotFound},
		{name: "post", method: http.MethodPost, path: "/models/weights.bin", wantStatus: http.StatusNotImplemented, wantBody: "Unsupported method"},
		{name: "options", method: http.MethodOptions, path: "/", wantStatus: http.StatusNotImplemented},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantBody != "" {
				assert.True(t, strings.Contains(rr.Body.String(), tt.wantBody), "body %q does not contain %q", rr.Body.String(), tt.wantBody)
			}
			if tt.wantContentType != "" {
				assert.Contains(t, rr.Header().Get("Content-Type"), tt.wantContentType)
			}
		})
	}

	t.Run("byte exact round trip", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/models/weights.bin", nil))

		assert.Equal(t, []byte{0x01, 0x02, 0x03}, rr.Body.Bytes())
	})

	t.Run("not implemented advertises allowed methods", func(t *testing.T) {
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/index.html", nil))

		assert.Equal(t, "GET, HEAD", rr.Header().Get("Allow"))
	})
}
