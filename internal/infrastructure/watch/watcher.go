package watch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet window before a batch of changes is delivered.
const DefaultDebounce = 2 * time.Second

// Batch is one debounced set of changes to a design folder.
type Batch struct {
	Folder string
	Paths  []string
	At     time.Time
}

// Options configures a FolderWatcher.
type Options struct {
	Debounce time.Duration
	Filter   Filter
	Logger   *slog.Logger
}

// FolderWatcher watches the top level of a design folder. Subdirectories
// are not watched since the parser only reads top-level files.
type FolderWatcher struct {
	folder   string
	watcher  *fsnotify.Watcher
	debounce *Debouncer
	filter   Filter
	logger   *slog.Logger
	batches  chan Batch
}

// NewFolderWatcher starts watching folder. Batches are delivered on
// Batches() while Run is active.
func NewFolderWatcher(folder string, opts Options) (*FolderWatcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Filter.Include == nil && opts.Filter.Exclude == nil {
		opts.Filter = DesignFilter()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(folder); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", folder, err)
	}

	fw := &FolderWatcher{
		folder:  folder,
		watcher: w,
		filter:  opts.Filter,
		logger:  logger,
		batches: make(chan Batch, 1),
	}
	fw.debounce = NewDebouncer(opts.Debounce, fw.deliver)
	return fw, nil
}

// Batches returns the channel of debounced changes.
func (fw *FolderWatcher) Batches() <-chan Batch {
	return fw.batches
}

// deliver drops the batch if the consumer is still busy with the previous
// one; the next change produces a fresh batch.
func (fw *FolderWatcher) deliver(paths []string) {
	b := Batch{Folder: fw.folder, Paths: paths, At: time.Now()}
	select {
	case fw.batches <- b:
	default:
		fw.logger.Debug("watch batch dropped, consumer busy", "paths", len(paths))
	}
}

// Run processes filesystem events until ctx is cancelled.
func (fw *FolderWatcher) Run(ctx context.Context) error {
	defer fw.watcher.Close()
	defer fw.debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return nil
			}
			if !relevant(event.Op) || !fw.filter.Matches(event.Name) {
				continue
			}
			fw.logger.Debug("design change", "path", event.Name, "op", event.Op.String())
			fw.debounce.Trigger(event.Name)
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch %s: %w", fw.folder, err)
		}
	}
}

func relevant(op fsnotify.Op) bool {
	return op.Has(fsnotify.Create) || op.Has(fsnotify.Write) ||
		op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename)
}
