package ytdlp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/tgytdl/internal/extractor"
	"github.com/tanq16/tgytdl/internal/utils"
)

// fakeYtdlp answers -J with probeJSON and otherwise writes a payload to the
// -o path. Every invocation's arguments are appended to args.log.
const fakeYtdlp = `#!/bin/sh
echo "$@" >> "$(dirname "$0")/args.log"
out=""
probe=0
while [ $# -gt 0 ]; do
  case "$1" in
    -J) probe=1 ;;
    -o) shift; out="$1" ;;
  esac
  shift
done
if [ "$probe" = 1 ]; then
  printf '%s\n' "$PROBE_JSON"
  exit 0
fi
echo "[download] 100% of 10.00B"
printf 'videobytes' > "$out"
`

const failingYtdlp = `#!/bin/sh
echo "WARNING: something minor" >&2
echo "ERROR: [youtube] abc: Video unavailable" >&2
exit 1
`

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake requires a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "yt-dlp")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o755))
	return path
}

func bestMP4(t *testing.T) extractor.Selector {
	sel, err := extractor.LookupSelector("bestmp4")
	require.NoError(t, err)
	return sel
}

func TestProbeParsesMetadata(t *testing.T) {
	t.Setenv("PROBE_JSON", `{"id":"abc","title":"Clip","ext":"mp4","format_id":"18","filesize":1048576}`)
	bin := writeScript(t, fakeYtdlp)
	ext, err := New(Options{BinaryPath: bin, CookiesFromBrowser: "firefox"})
	require.NoError(t, err)

	res, err := ext.Probe(context.Background(), "https://youtu.be/abc", bestMP4(t))
	require.NoError(t, err)
	require.True(t, res.SizeKnown())
	assert.Equal(t, int64(1048576), *res.Size)
	assert.Equal(t, "mp4", res.Container)
	assert.Equal(t, "Clip", res.Title)
	assert.Equal(t, "18", res.FormatID)

	logged, err := os.ReadFile(filepath.Join(filepath.Dir(bin), "args.log"))
	require.NoError(t, err)
	assert.Contains(t, string(logged), "-f best[ext=mp4]")
	assert.Contains(t, string(logged), "--cookies-from-browser firefox")
	assert.Contains(t, string(logged), "--no-playlist")
}

func TestProbeWithoutFilesize(t *testing.T) {
	t.Setenv("PROBE_JSON", `{"id":"abc","title":"Live","ext":"mp4","filesize":null}`)
	ext, err := New(Options{BinaryPath: writeScript(t, fakeYtdlp)})
	require.NoError(t, err)

	res, err := ext.Probe(context.Background(), "https://youtu.be/abc", bestMP4(t))
	require.NoError(t, err)
	assert.False(t, res.SizeKnown())
}

func TestProbeFailureCarriesDiagnostic(t *testing.T) {
	ext, err := New(Options{BinaryPath: writeScript(t, failingYtdlp)})
	require.NoError(t, err)

	_, err = ext.Probe(context.Background(), "https://youtu.be/abc", bestMP4(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Video unavailable")
	assert.NotContains(t, err.Error(), "something minor")
}

func TestTransferWritesDestination(t *testing.T) {
	bin := writeScript(t, fakeYtdlp)
	ext, err := New(Options{BinaryPath: bin})
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "out.mp4")
	require.NoError(t, os.WriteFile(dest, nil, 0o600))
	require.NoError(t, ext.Transfer(context.Background(), "https://youtu.be/abc", bestMP4(t), dest))

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "videobytes", string(data))

	logged, err := os.ReadFile(filepath.Join(filepath.Dir(bin), "args.log"))
	require.NoError(t, err)
	assert.Contains(t, string(logged), "--force-overwrites")
	assert.Contains(t, string(logged), "-o "+dest)
}

func TestTransferFailure(t *testing.T) {
	ext, err := New(Options{BinaryPath: writeScript(t, failingYtdlp)})
	require.NoError(t, err)

	err = ext.Transfer(context.Background(), "https://youtu.be/abc", bestMP4(t), filepath.Join(t.TempDir(), "out.mp4"))
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "yt-dlp download failed: ERROR: [youtube] abc: Video unavailable"))
}

func TestReleaseAsset(t *testing.T) {
	asset, err := releaseAsset("linux", "amd64")
	require.NoError(t, err)
	assert.Equal(t, "yt-dlp_linux", asset)

	asset, err = releaseAsset("darwin", "arm64")
	require.NoError(t, err)
	assert.Equal(t, "yt-dlp_macos", asset)

	_, err = releaseAsset("plan9", "386")
	assert.Error(t, err)
}

func TestDownloadFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("binary"))
	}))
	defer srv.Close()
	client := utils.NewHTTPClient(utils.HTTPClientConfig{})
	dest := filepath.Join(t.TempDir(), "yt-dlp")

	require.NoError(t, downloadFile(client, srv.URL+"/ok", dest))
	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "binary", string(data))

	err = downloadFile(client, srv.URL+"/missing", dest+"2")
	require.Error(t, err)
	assert.NoFileExists(t, dest+"2")
}

func TestCommandError(t *testing.T) {
	base := assert.AnError
	assert.Equal(t, base, commandError(base, "  "))
	err := commandError(base, "a\nb\n")
	assert.ErrorIs(t, err, base)
	assert.True(t, strings.HasPrefix(err.Error(), "b: "))
}
