package ytdlp

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/tgytdl/internal/utils"
)

const releaseURL = "https://github.com/yt-dlp/yt-dlp/releases/latest/download/%s"

// EnsureYtdlp finds yt-dlp on PATH or next to the executable, and falls
// back to downloading the latest release into the user cache directory.
func EnsureYtdlp(client *utils.HTTPClient) (string, error) {
	path, err := exec.LookPath("yt-dlp")
	if err == nil {
		return path, nil
	}
	execPath, err := os.Executable()
	if err == nil {
		ytdlpPath := filepath.Join(filepath.Dir(execPath), binaryName())
		if _, err := os.Stat(ytdlpPath); err == nil {
			return ytdlpPath, nil
		}
	}
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = os.TempDir()
	}
	dir := filepath.Join(cacheDir, "tgytdl")
	cached := filepath.Join(dir, binaryName())
	if _, err := os.Stat(cached); err == nil {
		return cached, nil
	}
	if client == nil {
		client = utils.NewHTTPClient(utils.HTTPClientConfig{})
	}
	return downloadYtdlp(client, dir)
}

func binaryName() string {
	if runtime.GOOS == "windows" {
		return "yt-dlp.exe"
	}
	return "yt-dlp"
}

func releaseAsset(goos, goarch string) (string, error) {
	switch {
	case goos == "windows" && goarch == "amd64":
		return "yt-dlp.exe", nil
	case goos == "windows" && goarch == "arm64":
		return "yt-dlp_arm64.exe", nil
	case goos == "linux" && goarch == "amd64":
		return "yt-dlp_linux", nil
	case goos == "linux" && goarch == "arm64":
		return "yt-dlp_linux_aarch64", nil
	case goos == "darwin":
		return "yt-dlp_macos", nil
	default:
		return "", fmt.Errorf("unsupported OS/arch: %s/%s", goos, goarch)
	}
}

func downloadYtdlp(client *utils.HTTPClient, dir string) (string, error) {
	asset, err := releaseAsset(runtime.GOOS, runtime.GOARCH)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("error creating cache directory: %w", err)
	}
	filePath := filepath.Join(dir, binaryName())
	log.Info().Str("op", "ytdlp/helpers").Msgf("downloading %s to %s", asset, filePath)
	if err := downloadFile(client, fmt.Sprintf(releaseURL, asset), filePath); err != nil {
		return "", err
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(filePath, 0o755); err != nil {
			return "", fmt.Errorf("error setting permissions: %w", err)
		}
	}
	return filePath, nil
}

func downloadFile(client *utils.HTTPClient, url, dest string) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status: %s", resp.Status)
	}
	tmp := dest + ".download"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, resp.Body); err != nil {
		out.Close()
		os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, dest)
}
