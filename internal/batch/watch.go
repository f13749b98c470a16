package batch

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/sqllineage/analyzer/internal/syntax"
)

// ParseFunc turns raw script text into the syntax tree the walker
// consumes. Supplied by the host (the parser itself is out of scope
// here, spec §1), keyed by the script's file path for error reporting.
type ParseFunc func(path, sqlText string) (syntax.Fragment, error)

// ScriptWatcher watches a directory tree for created/modified `.sql`
// files and feeds each one through a Driver as it changes, driven by
// fsnotify events.
type ScriptWatcher struct {
	rootPath string
	watcher  *fsnotify.Watcher
	driver   *Driver
	parse    ParseFunc
	onResult func(Result)

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewScriptWatcher builds a watcher rooted at rootPath. onResult is
// invoked once per changed script after its walk completes (nil is
// allowed; results are simply dropped, which is rarely useful outside
// tests).
func NewScriptWatcher(rootPath string, driver *Driver, parse ParseFunc, onResult func(Result)) (*ScriptWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &ScriptWatcher{
		rootPath: rootPath,
		watcher:  watcher,
		driver:   driver,
		parse:    parse,
		onResult: onResult,
		stopChan: make(chan struct{}),
	}, nil
}

// Start walks rootPath adding every directory to the watch set, then
// begins processing events in the background. Start returns once the
// initial watch set is installed; events are handled asynchronously
// until Stop is called.
func (w *ScriptWatcher) Start(ctx context.Context) error {
	err := filepath.Walk(w.rootPath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") && info.Name() != "." {
				return filepath.SkipDir
			}
			return w.watcher.Add(path)
		}
		return nil
	})
	if err != nil {
		return err
	}

	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

// Stop closes the watcher and waits for the event loop to exit.
func (w *ScriptWatcher) Stop() error {
	close(w.stopChan)
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *ScriptWatcher) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("batch: watcher error: %v", err)
		}
	}
}

func (w *ScriptWatcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
		_ = w.watcher.Add(event.Name)
		return
	}
	if !strings.HasSuffix(strings.ToLower(event.Name), ".sql") {
		return
	}

	start := time.Now()
	result := w.analyzeFile(ctx, event.Name)
	log.Printf("batch: analyzed %s in %v (%d fragments)", event.Name, ElapsedSince(start), result.Report.FragmentsVisited)
	if w.onResult != nil {
		w.onResult(result)
	}
}

func (w *ScriptWatcher) analyzeFile(ctx context.Context, path string) Result {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{Script: Script{Name: path}, Err: err}
	}
	root, err := w.parse(path, string(data))
	if err != nil {
		return Result{Script: Script{Name: path, SQL: string(data)}, Err: err}
	}
	script := Script{Name: path, Root: root, SQL: string(data)}
	results := w.driver.Run(ctx, []Script{script})
	return results[0]
}
