package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/sagerock/google-drive-to-qdrant/internal/drive"
)

// MaxSearchableEntries caps the flattened path: value index.
const MaxSearchableEntries = 50

// JSON pretty prints valid documents and adds a flattened index of leaf values.
// Invalid documents are kept verbatim.
type JSON struct{}

func (JSON) Kind() Kind { return KindJSON }

func (JSON) MimeTypes() []string { return []string{drive.MimeTypeJSON} }

func (JSON) Extract(_ context.Context, item drive.Item, raw []byte) (string, error) {
	src := []byte(strings.ToValidUTF8(string(raw), ""))

	if !json.Valid(src) {
		return fmt.Sprintf("JSON FILE - %s (Invalid JSON, treating as text)\n\nRAW CONTENT:\n%s", item.Name, src), nil
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, bytes.TrimSpace(src), "", "  "); err != nil {
		return "", fmt.Errorf("format json: %w", err)
	}

	parts := []string{
		"JSON CONTENT - " + item.Name,
		"STRUCTURED DATA:\n" + pretty.String(),
	}

	leaves, err := FlattenJSON(src, MaxSearchableEntries)
	if err != nil {
		return "", err
	}
	if len(leaves) > 0 {
		parts = append(parts, "SEARCHABLE CONTENT:\n"+strings.Join(leaves, "\n"))
	}
	return strings.Join(parts, "\n\n"), nil
}

// FlattenJSON lists up to limit "path: value" entries for scalar leaves, in
// document order. Paths use dots for object keys and [i] for array indices;
// nulls and a scalar root produce no entry.
func FlattenJSON(src []byte, limit int) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(src))
	dec.UseNumber()

	var out []string
	if err := flattenValue(dec, "", &out, limit); err != nil && err != io.EOF {
		return nil, fmt.Errorf("flatten json: %w", err)
	}
	return out, nil
}

func flattenValue(dec *json.Decoder, path string, out *[]string, limit int) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return err
				}
				key, _ := keyTok.(string)
				child := key
				if path != "" {
					child = path + "." + key
				}
				if err := flattenValue(dec, child, out, limit); err != nil {
					return err
				}
			}
		case '[':
			for i := 0; dec.More(); i++ {
				if err := flattenValue(dec, path+"["+strconv.Itoa(i)+"]", out, limit); err != nil {
					return err
				}
			}
		}
		_, err := dec.Token() // closing delimiter
		return err
	case nil:
		return nil
	default:
		if path != "" && len(*out) < limit {
			*out = append(*out, fmt.Sprintf("%s: %v", path, v))
		}
		return nil
	}
}
