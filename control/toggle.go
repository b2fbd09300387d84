// Package control liga e desliga a cota por cliente em tempo de execução.
//
// O interruptor é um arquivo de texto ("on"/"off") observado com fsnotify.
// A interface do host (ou um operador) só precisa escrever no arquivo.
package control

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
)

var ErrInvalidToggle = errors.New("control: invalid toggle value")

// ParseToggle aceita on/off, true/false, 1/0, enabled/disabled, yes/no.
func ParseToggle(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "true", "1", "enabled", "yes":
		return true, nil
	case "off", "false", "0", "disabled", "no":
		return false, nil
	}
	return false, fmt.Errorf("%w: %q", ErrInvalidToggle, s)
}

// FileToggle observa um arquivo de interruptor.
type FileToggle struct {
	path    string
	def     bool
	apply   func(bool)
	watcher *fsnotify.Watcher

	closeOnce sync.Once
	done      chan struct{}
}

// WatchToggle aplica o estado atual do arquivo e passa a observar mudanças.
// Arquivo ausente (ou removido) aplica def. Conteúdo inválido é logado e ignorado.
// O diretório é observado, não o arquivo, para sobreviver a escritas por rename.
func WatchToggle(ctx context.Context, path string, def bool, apply func(bool)) (*FileToggle, error) {
	if apply == nil {
		return nil, errors.New("control: nil apply func")
	}
	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create toggle dir %s: %w", dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	t := &FileToggle{
		path:    path,
		def:     def,
		apply:   apply,
		watcher: watcher,
		done:    make(chan struct{}),
	}
	t.reload()
	go t.watchLoop(ctx)
	return t, nil
}

func (t *FileToggle) Path() string { return t.path }

// Close para o loop e libera o watcher.
func (t *FileToggle) Close() error {
	var err error
	t.closeOnce.Do(func() {
		err = t.watcher.Close()
		<-t.done
	})
	return err
}

func (t *FileToggle) watchLoop(ctx context.Context) {
	defer close(t.done)
	for {
		select {
		case <-ctx.Done():
			t.watcher.Close()
			return
		case event, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != t.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				t.reload()
			}
		case err, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("QUOTA: toggle watcher error: %v", err)
		}
	}
}

func (t *FileToggle) reload() {
	data, err := os.ReadFile(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			t.apply(t.def)
			return
		}
		log.Printf("QUOTA: read toggle %s: %v", t.path, err)
		return
	}
	// escrita em andamento (arquivo truncado); espera o próximo evento
	if len(strings.TrimSpace(string(data))) == 0 {
		return
	}
	on, err := ParseToggle(string(data))
	if err != nil {
		log.Printf("QUOTA: ignoring toggle %s: %v", t.path, err)
		return
	}
	t.apply(on)
}

// WriteToggle grava o estado no arquivo (usado pelo host para ligar/desligar).
func WriteToggle(path string, on bool) error {
	v := "off\n"
	if on {
		v = "on\n"
	}
	return os.WriteFile(path, []byte(v), 0644)
}
