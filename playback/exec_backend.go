package playback

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// FilePlaceholder é substituído pelo caminho do arquivo baixado nos argumentos do player.
const FilePlaceholder = "{file}"

var DefaultPlayerCommand = []string{"ffplay", "-nodisp", "-autoexit", "-loglevel", "quiet", FilePlaceholder}

const DefaultMaxDownload int64 = 20 << 20

// ExecBackend baixa o áudio para um arquivo temporário e toca com um processo externo.
type ExecBackend struct {
	Client      *http.Client
	Command     []string
	MaxDownload int64
	TempDir     string
}

func NewExecBackend(client *http.Client, command []string) *ExecBackend {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if len(command) == 0 {
		command = DefaultPlayerCommand
	}
	return &ExecBackend{Client: client, Command: command, MaxDownload: DefaultMaxDownload}
}

func (b *ExecBackend) Prepare(ctx context.Context, locator string) (Track, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := b.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", locator, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: unexpected status %s", locator, resp.Status)
	}

	max := b.MaxDownload
	if max <= 0 {
		max = DefaultMaxDownload
	}

	f, err := os.CreateTemp(b.TempDir, "soundboard-*.mp3")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	n, err := io.Copy(f, io.LimitReader(resp.Body, max+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > max {
		err = fmt.Errorf("source larger than %s", humanize.Bytes(uint64(max)))
	}
	if err != nil {
		os.Remove(f.Name())
		return nil, fmt.Errorf("download %s: %w", locator, err)
	}

	log.Printf("PLAYBACK: downloaded %s (%s)", locator, humanize.Bytes(uint64(n)))
	return &fileTrack{path: f.Name(), argv: playerArgs(b.Command, f.Name())}, nil
}

func playerArgs(command []string, file string) []string {
	out := make([]string, len(command))
	replaced := false
	for i, a := range command {
		if strings.Contains(a, FilePlaceholder) {
			replaced = true
		}
		out[i] = strings.ReplaceAll(a, FilePlaceholder, file)
	}
	if !replaced {
		out = append(out, file)
	}
	return out
}

type fileTrack struct {
	path string
	argv []string
}

func (t *fileTrack) Play(ctx context.Context) error {
	if len(t.argv) == 0 {
		return errors.New("empty player command")
	}
	cmd := exec.CommandContext(ctx, t.argv[0], t.argv[1:]...)
	err := cmd.Run()
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("player %s: %w", t.argv[0], err)
	}
	return nil
}

func (t *fileTrack) Close() error {
	if err := os.Remove(t.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
