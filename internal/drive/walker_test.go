package drive

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

type fakeLister struct {
	mu      sync.Mutex
	files   map[string][]Item
	folders map[string][]Folder
	names   map[string]string
	fail    map[string]error
	nameErr map[string]error
	calls   map[string]int
}

func newFakeLister() *fakeLister {
	return &fakeLister{
		files:   map[string][]Item{},
		folders: map[string][]Folder{},
		names:   map[string]string{},
		fail:    map[string]error{},
		nameErr: map[string]error{},
		calls:   map[string]int{},
	}
}

func (f *fakeLister) ListChildren(_ context.Context, id string) ([]Item, []Folder, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[id]++
	if err := f.fail[id]; err != nil {
		return nil, nil, err
	}
	return f.files[id], f.folders[id], nil
}

func (f *fakeLister) FolderName(_ context.Context, id string) (string, error) {
	if err := f.nameErr[id]; err != nil {
		return "", err
	}
	if n, ok := f.names[id]; ok {
		return n, nil
	}
	return "", errors.New("not found")
}

func textFile(id, name string) Item {
	return Item{ID: id, Name: name, MimeType: MimeTypePlain}
}

func TestWalker_CycleVisitsEachFolderOnce(t *testing.T) {
	l := newFakeLister()
	l.names["A"] = "Alpha"
	l.folders["A"] = []Folder{{ID: "B", Name: "Beta"}}
	l.folders["B"] = []Folder{{ID: "A", Name: "Alpha"}}
	l.files["A"] = []Item{textFile("1", "a.txt")}
	l.files["B"] = []Item{textFile("2", "b.txt")}

	items, err := NewWalker(l).Walk(context.Background(), "A")
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 1, l.calls["A"])
	assert.Equal(t, 1, l.calls["B"])
}

func TestWalker_ProvenanceAndPath(t *testing.T) {
	l := newFakeLister()
	l.names["root"] = "Root"
	l.folders["root"] = []Folder{{ID: "sub", Name: "Reports"}}
	l.files["sub"] = []Item{textFile("1", "q1.txt")}

	items, err := NewWalker(l).Walk(context.Background(), "root")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "sub", items[0].SourceFolderID)
	assert.Equal(t, "Reports", items[0].SourceFolderName)
	assert.Equal(t, "root", items[0].RootFolderID)
	assert.Equal(t, "Reports/q1.txt", items[0].Path)
}

func TestWalker_SubtreeErrorDoesNotAbortSiblings(t *testing.T) {
	l := newFakeLister()
	l.folders["root"] = []Folder{{ID: "bad", Name: "Bad"}, {ID: "good", Name: "Good"}}
	l.fail["bad"] = errors.New("permission denied")
	l.files["good"] = []Item{textFile("1", "ok.txt")}

	items, err := NewWalker(l).Walk(context.Background(), "root")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "ok.txt", items[0].Name)
}

func TestWalker_RootErrorIsDiscoveryError(t *testing.T) {
	l := newFakeLister()
	l.fail["root"] = errors.New("boom")

	_, err := NewWalker(l).Walk(context.Background(), "root")
	assert.ErrorIs(t, err, ErrDiscovery)
}

func TestWalker_MissingRootIsNotListed(t *testing.T) {
	l := newFakeLister()
	l.nameErr["gone"] = &googleapi.Error{Code: http.StatusNotFound, Message: "File not found: gone."}
	l.names["r1"] = "One"
	l.files["r1"] = []Item{textFile("1", "a.txt")}

	_, err := NewWalker(l).Walk(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrDiscovery)
	assert.True(t, IsNotFound(err))
	assert.Zero(t, l.calls["gone"])

	res := NewWalker(l).WalkAll(context.Background(), []string{"gone", "r1"})
	assert.Equal(t, 1, res.FailedFolders)
	assert.Len(t, res.Items, 1)
}

func TestWalker_ListErrorKeepsCause(t *testing.T) {
	l := newFakeLister()
	l.fail["root"] = &googleapi.Error{Code: http.StatusNotFound}

	_, err := NewWalker(l).Walk(context.Background(), "root")
	assert.ErrorIs(t, err, ErrDiscovery)
	assert.True(t, IsNotFound(err))
}

func TestWalker_DropsUnsupportedTypes(t *testing.T) {
	l := newFakeLister()
	l.files["root"] = []Item{
		textFile("1", "a.txt"),
		{ID: "2", Name: "sheet", MimeType: "application/vnd.google-apps.spreadsheet"},
		{ID: "3", Name: "pic.png", MimeType: "image/png"},
	}

	items, err := NewWalker(l).Walk(context.Background(), "root")
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestWalker_NoSubfolders(t *testing.T) {
	l := newFakeLister()
	l.folders["root"] = []Folder{{ID: "sub", Name: "Sub"}}
	l.files["root"] = []Item{textFile("1", "a.txt")}
	l.files["sub"] = []Item{textFile("2", "b.txt")}

	items, err := NewWalker(l, WithSubfolders(false)).Walk(context.Background(), "root")
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Zero(t, l.calls["sub"])
}

func TestWalker_Exclude(t *testing.T) {
	l := newFakeLister()
	l.folders["root"] = []Folder{{ID: "drafts", Name: "drafts"}}
	l.files["root"] = []Item{textFile("1", "keep.txt"), textFile("2", "notes.tmp.txt")}
	l.files["drafts"] = []Item{textFile("3", "wip.txt")}

	w := NewWalker(l, WithExclude([]string{"drafts/**", "*.tmp.txt"}))
	items, err := w.Walk(context.Background(), "root")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "keep.txt", items[0].Name)
}

func TestWalker_WalkAll(t *testing.T) {
	l := newFakeLister()
	l.names["r1"] = "One"
	l.folders["r1"] = []Folder{{ID: "r2", Name: "Two"}}
	l.files["r1"] = []Item{textFile("1", "a.txt")}
	l.files["r2"] = []Item{textFile("2", "b.txt")}
	l.fail["broken"] = errors.New("gone")

	res := NewWalker(l).WalkAll(context.Background(), []string{"r1", "broken", "r2"})
	assert.Len(t, res.Items, 2)
	assert.Equal(t, 1, res.FailedFolders)
	assert.Equal(t, 1, l.calls["r2"])
	assert.Equal(t, "One", res.Items[0].SourceFolderName)
}

func TestWalker_CancelledContext(t *testing.T) {
	l := newFakeLister()
	l.files["root"] = []Item{textFile("1", "a.txt")}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewWalker(l).WalkAll(ctx, []string{"root"})
	assert.Empty(t, res.Items)
}

func TestVisitedSet_Concurrent(t *testing.T) {
	v := NewVisitedSet()
	var wg sync.WaitGroup
	var mu sync.Mutex
	added := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if v.Add("same") {
				mu.Lock()
				added++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, added)
	assert.Equal(t, 1, v.Len())
}

func TestItem_Metadata(t *testing.T) {
	it := Item{ID: "1", Name: "a.txt", MimeType: MimeTypePlain, Size: 12, Parents: []string{"p"},
		WebViewLink: "https://drive/1", SourceFolderID: "p", SourceFolderName: "Docs"}
	md := it.Metadata()
	assert.Equal(t, "https://drive/1", md["source"])
	assert.Equal(t, "a.txt", md["fileName"])
	assert.Equal(t, DriveContext, md["driveContext"])
	assert.Equal(t, []any{"p"}, md["parents"])
	assert.Equal(t, "Docs", md["source_folder_name"])
}

func TestIsSupported(t *testing.T) {
	assert.True(t, IsSupported(MimeTypeGoogleDoc))
	assert.True(t, IsSupported("image/webp"))
	assert.False(t, IsSupported(MimeTypeFolder))
	assert.False(t, IsSupported("video/mp4"))
}
