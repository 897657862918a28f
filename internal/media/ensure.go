package media

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/mirofic/fetchr/internal/utils"
)

// EnsureYtdlp locates yt-dlp in PATH or next to the executable, downloading
// the release binary as a last resort.
func EnsureYtdlp() (string, error) {
	path, err := exec.LookPath("yt-dlp")
	if err == nil {
		return path, nil
	}
	execDir, err := os.Executable()
	if err == nil {
		ytdlpPath := filepath.Join(filepath.Dir(execDir), "yt-dlp")
		if runtime.GOOS == "windows" {
			ytdlpPath += ".exe"
		}
		if _, err := os.Stat(ytdlpPath); err == nil {
			return ytdlpPath, nil
		}
	}
	return downloadYtdlp()
}

// EnsureFFmpeg returns the ffmpeg path if one can be found. Missing ffmpeg is
// not fatal; yt-dlp then falls back to formats that need no muxing.
func EnsureFFmpeg() string {
	path, err := exec.LookPath("ffmpeg")
	if err == nil {
		return path
	}
	execDir, err := os.Executable()
	if err == nil {
		ffmpegPath := filepath.Join(filepath.Dir(execDir), "ffmpeg")
		if runtime.GOOS == "windows" {
			ffmpegPath += ".exe"
		}
		if _, err := os.Stat(ffmpegPath); err == nil {
			return ffmpegPath
		}
	}
	return ""
}

func downloadYtdlp() (string, error) {
	goos := runtime.GOOS
	goarch := runtime.GOARCH
	var filename string
	switch {
	case goos == "windows" && goarch == "amd64":
		filename = "yt-dlp.exe"
	case goos == "windows" && goarch == "arm64":
		filename = "yt-dlp_arm64.exe"
	case goos == "linux" && goarch == "amd64":
		filename = "yt-dlp_linux"
	case goos == "linux" && goarch == "arm64":
		filename = "yt-dlp_linux_aarch64"
	case goos == "darwin":
		filename = "yt-dlp_macos"
	default:
		return "", fmt.Errorf("unsupported OS/arch: %s/%s", goos, goarch)
	}

	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = "."
	}
	binDir := filepath.Join(cacheDir, "fetchr")
	if err := os.MkdirAll(binDir, 0755); err != nil {
		return "", fmt.Errorf("error creating cache directory: %v", err)
	}
	downloadURL := fmt.Sprintf("https://github.com/yt-dlp/yt-dlp/releases/latest/download/%s", filename)
	filePath := filepath.Join(binDir, "yt-dlp")
	if goos == "windows" {
		filePath += ".exe"
	}
	if err := downloadFile(downloadURL, filePath); err != nil {
		return "", err
	}
	if goos != "windows" {
		if err := os.Chmod(filePath, 0755); err != nil {
			return "", fmt.Errorf("error setting permissions: %v", err)
		}
	}
	return filePath, nil
}

func downloadFile(url, filepath string) error {
	client := utils.NewFetchrHTTPClient(utils.HTTPClientConfig{})
	req, err := http.NewRequest("GET", url, nil)
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
	out, err := os.Create(filepath)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, resp.Body)
	return err
}
