package field

import (
	"encoding/json"
	"fmt"
	"path"
	"slices"
	"strings"
)

// FileRef is the reference stored in form state once an upload completes.
// Raw bytes never travel through form state.
type FileRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	SizeInBytes int64  `json:"sizeInBytes"`
	PublicURL   string `json:"publicUrl,omitempty"`
	PrivateURL  string `json:"privateUrl,omitempty"`
}

// Extension returns the lower-cased extension of the file name without the
// leading dot.
func (r FileRef) Extension() string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(r.Name)), ".")
}

// ImageFormats is the default accepted set for image uploads.
var ImageFormats = []string{"png", "jpg", "jpeg", "gif", "webp"}

// Files is an upload item holding a list of file references.
type Files struct {
	Base
	// Path is the storage folder the collaborator writes into.
	Path string
	// MaxBytes limits the size of each file. Zero disables the check.
	MaxBytes int64
	// MaxFiles limits the number of references. Zero disables the check.
	MaxFiles int
	// Formats lists accepted extensions. Empty accepts anything.
	Formats []string
	// Images switches the item to the image gallery widget.
	Images bool
}

func (f Files) Kind() Kind {
	if f.Images {
		return KindImages
	}
	return KindFiles
}

func (f Files) Describe() Spec {
	component := ComponentFiles
	if f.Images {
		component = ComponentImages
	}
	spec := f.spec(f.Kind(), component)
	spec.Path = f.Path
	spec.MaxBytes = f.MaxBytes
	spec.MaxFiles = f.MaxFiles
	spec.Formats = f.AcceptedFormats()
	spec.Multiple = f.MaxFiles != 1
	return spec
}

func (f Files) Empty() any { return []FileRef{} }

// AcceptedFormats returns the effective extension allow list.
func (f Files) AcceptedFormats() []string {
	if len(f.Formats) > 0 {
		return slices.Clone(f.Formats)
	}
	if f.Images {
		return slices.Clone(ImageFormats)
	}
	return nil
}

func (f Files) Validate(value any) []string {
	refs, err := FileRefs(value)
	if err != nil {
		return []string{fmt.Sprintf("%s is invalid", f.displayName())}
	}
	if len(refs) == 0 {
		if f.IsRequired {
			return []string{f.requiredMessage()}
		}
		return nil
	}
	var out []string
	if f.MaxFiles > 0 && len(refs) > f.MaxFiles {
		out = append(out, fmt.Sprintf("%s accepts at most %d files", f.displayName(), f.MaxFiles))
	}
	for _, ref := range refs {
		out = append(out, f.CheckFile(ref.Name, ref.SizeInBytes)...)
	}
	return out
}

// CheckFile validates a single file against the format and size limits. The
// upload manager calls it before any bytes are transferred.
func (f Files) CheckFile(name string, size int64) []string {
	var out []string
	if strings.TrimSpace(name) == "" {
		return []string{fmt.Sprintf("%s has a file without a name", f.displayName())}
	}
	if formats := f.AcceptedFormats(); len(formats) > 0 {
		ext := FileRef{Name: name}.Extension()
		if !slices.Contains(formats, ext) {
			out = append(out, fmt.Sprintf("%s: %s is not an accepted format (%s)", f.displayName(), name, strings.Join(formats, ", ")))
		}
	}
	if f.MaxBytes > 0 && size > f.MaxBytes {
		out = append(out, fmt.Sprintf("%s: %s exceeds the %d bytes limit", f.displayName(), name, f.MaxBytes))
	}
	return out
}

func (f Files) Cast(value any) (any, error) {
	refs, err := FileRefs(value)
	if err != nil {
		return nil, fmt.Errorf("field %s: %w", f.FieldName, err)
	}
	if refs == nil {
		refs = []FileRef{}
	}
	return refs, nil
}

// FileRefs decodes file references from typed values, decoded JSON objects
// or JSON strings (one reference per hidden form input).
func FileRefs(value any) ([]FileRef, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []FileRef:
		return slices.Clone(v), nil
	case FileRef:
		return []FileRef{v}, nil
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		return decodeRefString(v)
	case []string:
		out := make([]FileRef, 0, len(v))
		for _, raw := range v {
			if strings.TrimSpace(raw) == "" {
				continue
			}
			refs, err := decodeRefString(raw)
			if err != nil {
				return nil, err
			}
			out = append(out, refs...)
		}
		return out, nil
	case map[string]any:
		ref, err := decodeRefMap(v)
		if err != nil {
			return nil, err
		}
		return []FileRef{ref}, nil
	case []any:
		out := make([]FileRef, 0, len(v))
		for _, item := range v {
			refs, err := FileRefs(item)
			if err != nil {
				return nil, err
			}
			out = append(out, refs...)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported file reference %T", value)
	}
}

func decodeRefString(raw string) ([]FileRef, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "[") {
		var refs []FileRef
		if err := json.Unmarshal([]byte(trimmed), &refs); err != nil {
			return nil, fmt.Errorf("decode file references: %w", err)
		}
		return refs, nil
	}
	var ref FileRef
	if err := json.Unmarshal([]byte(trimmed), &ref); err != nil {
		return nil, fmt.Errorf("decode file reference: %w", err)
	}
	if ref.ID == "" {
		return nil, fmt.Errorf("decode file reference: id is required")
	}
	return []FileRef{ref}, nil
}

func decodeRefMap(in map[string]any) (FileRef, error) {
	payload, err := json.Marshal(in)
	if err != nil {
		return FileRef{}, fmt.Errorf("encode file reference: %w", err)
	}
	var ref FileRef
	if err := json.Unmarshal(payload, &ref); err != nil {
		return FileRef{}, fmt.Errorf("decode file reference: %w", err)
	}
	if ref.ID == "" {
		return FileRef{}, fmt.Errorf("decode file reference: id is required")
	}
	return ref, nil
}
