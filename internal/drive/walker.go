package drive

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
)

// Lister is the part of the source system the Walker needs.
type Lister interface {
	ListChildren(ctx context.Context, folderID string) ([]Item, []Folder, error)
	FolderName(ctx context.Context, folderID string) (string, error)
}

// VisitedSet records folder ids already listed. Safe for concurrent use.
type VisitedSet struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewVisitedSet() *VisitedSet {
	return &VisitedSet{seen: make(map[string]struct{})}
}

// Add marks id as visited and reports whether it was new.
func (v *VisitedSet) Add(id string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if _, ok := v.seen[id]; ok {
		return false
	}
	v.seen[id] = struct{}{}
	return true
}

func (v *VisitedSet) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.seen)
}

type Walker struct {
	lister            Lister
	includeSubfolders bool
	exclude           []string
}

type WalkerOption func(*Walker)

// WithSubfolders toggles recursion below the root folders.
func WithSubfolders(enabled bool) WalkerOption {
	return func(w *Walker) { w.includeSubfolders = enabled }
}

// WithExclude drops items whose path or name matches any doublestar pattern.
func WithExclude(patterns []string) WalkerOption {
	return func(w *Walker) { w.exclude = patterns }
}

func NewWalker(lister Lister, opts ...WalkerOption) *Walker {
	w := &Walker{lister: lister, includeSubfolders: true}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WalkResult is everything discovered under a set of root folders.
type WalkResult struct {
	Items         []Item
	Folders       int
	FailedFolders int
	Skipped       int
}

// WalkAll walks every root folder, sharing one visited set so overlapping
// roots are listed once. A root that cannot be listed is logged and skipped.
func (w *Walker) WalkAll(ctx context.Context, rootIDs []string) WalkResult {
	var res WalkResult
	visited := NewVisitedSet()
	seenFiles := make(map[string]struct{})

	for _, rootID := range rootIDs {
		if ctx.Err() != nil {
			break
		}
		slog.InfoContext(ctx, "fetching files from folder", "folder_id", rootID)

		items, stats, err := w.walkRoot(ctx, rootID, visited)
		res.FailedFolders += stats.FailedFolders
		res.Skipped += stats.Skipped
		if err != nil {
			slog.ErrorContext(ctx, "error fetching files from folder", "folder_id", rootID, "error", err)
			continue
		}

		for _, it := range items {
			if _, dup := seenFiles[it.ID]; dup {
				continue
			}
			seenFiles[it.ID] = struct{}{}
			res.Items = append(res.Items, it)
		}
		slog.InfoContext(ctx, "found files in folder", "folder_id", rootID, "count", len(items))
	}

	res.Folders = visited.Len()
	slog.InfoContext(ctx, "total files found across all folders", "count", len(res.Items), "folders", res.Folders)
	return res
}

// Walk returns the transitive closure of supported items under rootID.
func (w *Walker) Walk(ctx context.Context, rootID string) ([]Item, error) {
	items, _, err := w.walkRoot(ctx, rootID, NewVisitedSet())
	return items, err
}

func (w *Walker) walkRoot(ctx context.Context, rootID string, visited *VisitedSet) ([]Item, WalkResult, error) {
	var stats WalkResult
	name, err := w.lister.FolderName(ctx, rootID)
	if IsNotFound(err) {
		slog.ErrorContext(ctx, "root folder not found or not shared with the service account", "folder_id", rootID)
		stats.FailedFolders++
		return nil, stats, fmt.Errorf("%w: root folder %s: %w", ErrDiscovery, rootID, err)
	}
	if err != nil {
		slog.WarnContext(ctx, "failed to resolve folder name", "folder_id", rootID, "error", err)
		name = unknownFolder
	}

	root := Folder{ID: rootID, Name: name}
	items, err := w.walk(ctx, root, rootID, "", visited, &stats)
	if err != nil {
		stats.FailedFolders++
		return nil, stats, err
	}
	return items, stats, nil
}

func (w *Walker) walk(ctx context.Context, folder Folder, rootID, prefix string, visited *VisitedSet, stats *WalkResult) ([]Item, error) {
	if !visited.Add(folder.ID) {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	files, subfolders, err := w.lister.ListChildren(ctx, folder.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: folder %s: %w", ErrDiscovery, folder.ID, err)
	}

	var items []Item
	for _, it := range files {
		if !IsSupported(it.MimeType) {
			slog.WarnContext(ctx, "unsupported file type", "file", it.Name, "mime_type", it.MimeType)
			stats.Skipped++
			continue
		}
		it.Path = path.Join(prefix, it.Name)
		if w.excluded(it) {
			slog.InfoContext(ctx, "file excluded by pattern", "file", it.Path)
			stats.Skipped++
			continue
		}
		it.SourceFolderID = folder.ID
		it.SourceFolderName = folder.Name
		it.RootFolderID = rootID
		items = append(items, it)
	}
	if len(items) > 0 {
		slog.DebugContext(ctx, "listed folder", "folder", folder.Name, "folder_id", folder.ID, "files", len(items))
	}

	if !w.includeSubfolders {
		return items, nil
	}

	for _, sub := range subfolders {
		subItems, err := w.walk(ctx, sub, rootID, path.Join(prefix, sub.Name), visited, stats)
		if err != nil {
			if ctx.Err() != nil {
				return items, nil
			}
			slog.ErrorContext(ctx, "error processing folder", "folder_id", sub.ID, "error", err)
			stats.FailedFolders++
			continue
		}
		items = append(items, subItems...)
	}
	return items, nil
}

func (w *Walker) excluded(it Item) bool {
	for _, pattern := range w.exclude {
		if ok, _ := doublestar.Match(pattern, it.Path); ok {
			return true
		}
		if ok, _ := doublestar.Match(pattern, it.Name); ok {
			return true
		}
	}
	return false
}
