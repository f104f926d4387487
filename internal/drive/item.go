package drive

// Google Drive MIME types with special handling.
const (
	MimeTypeFolder    = "application/vnd.google-apps.folder"
	MimeTypeGoogleDoc = "application/vnd.google-apps.document"
	MimeTypeDocx      = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeTypePDF       = "application/pdf"
	MimeTypePlain     = "text/plain"
	MimeTypeHTML      = "text/html"
	MimeTypeJSON      = "application/json"
	MimeTypeMarkdown  = "text/markdown"
	MimeTypeXMarkdown = "text/x-markdown"
)

// DriveContext is stamped on every item's metadata.
const DriveContext = " (My Drive)"

const unknownFolder = "Unknown Folder"

var supportedMimeTypes = map[string]bool{
	MimeTypeGoogleDoc: true,
	MimeTypeDocx:      true,
	MimeTypePDF:       true,
	MimeTypePlain:     true,
	MimeTypeHTML:      true,
	MimeTypeJSON:      true,
	MimeTypeMarkdown:  true,
	MimeTypeXMarkdown: true,
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
	"image/gif":       true,
	"image/bmp":       true,
	"image/tiff":      true,
	"image/webp":      true,
}

// IsSupported reports whether files of this MIME type can be synced.
func IsSupported(mimeType string) bool {
	return supportedMimeTypes[mimeType]
}

// Item is one file discovered under a source folder.
type Item struct {
	ID           string
	Name         string
	MimeType     string
	Size         int64
	CreatedTime  string
	ModifiedTime string
	Parents      []string
	WebViewLink  string

	// Folder the item was listed from, and the configured root it was reached through.
	SourceFolderID   string
	SourceFolderName string
	RootFolderID     string
	// Path relative to the root folder, used for exclusion patterns.
	Path string
}

// Folder references a container discovered while listing.
type Folder struct {
	ID   string
	Name string
}

// Metadata returns the descriptive fields copied onto every chunk of the item.
func (i Item) Metadata() map[string]any {
	parents := make([]any, len(i.Parents))
	for n, p := range i.Parents {
		parents[n] = p
	}
	return map[string]any{
		"source":             i.WebViewLink,
		"fileId":             i.ID,
		"fileName":           i.Name,
		"mimeType":           i.MimeType,
		"size":               i.Size,
		"createdTime":        i.CreatedTime,
		"modifiedTime":       i.ModifiedTime,
		"parents":            parents,
		"driveContext":       DriveContext,
		"source_folder_id":   i.SourceFolderID,
		"source_folder_name": i.SourceFolderName,
		"root_folder_id":     i.RootFolderID,
	}
}
