package release

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/Jeffail/gabs"
	"github.com/tidwall/sjson"
)

const (
	DefaultVersionFile  = "package.json"
	DefaultVersionField = "version"
)

// VersionFile is the pipeline-managed JSON metadata file holding the deployed
// release tag. Field is a dot separated path into the document.
type VersionFile struct {
	Name  string
	Field string
}

func DefaultVersion() VersionFile {
	return VersionFile{Name: DefaultVersionFile, Field: DefaultVersionField}
}

func (vf VersionFile) Path(workingPath string) string {
	return filepath.Join(workingPath, vf.Name)
}

func (vf VersionFile) Exists(workingPath string) bool {
	_, err := os.Stat(vf.Path(workingPath))
	return err == nil
}

// Read returns the recorded tag. ok is false when the file or the field is absent.
func (vf VersionFile) Read(workingPath string) (tag string, ok bool, err error) {
	b, err := os.ReadFile(vf.Path(workingPath))
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	doc, err := gabs.ParseJSON(b)
	if err != nil {
		return "", false, fmt.Errorf("err parsing %s: %w", vf.Name, err)
	}
	if !doc.ExistsP(vf.Field) {
		return "", false, nil
	}
	tag, ok = doc.Path(vf.Field).Data().(string)
	return tag, ok, nil
}

// Write sets the field to tag. Every other byte of the file is kept as is. A
// missing file is skipped silently.
func (vf VersionFile) Write(workingPath, tag string) error {
	p := vf.Path(workingPath)
	info, err := os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return err
	}
	if _, err := gabs.ParseJSON(b); err != nil {
		return fmt.Errorf("err parsing %s: %w", vf.Name, err)
	}
	out, err := sjson.SetBytes(b, vf.Field, tag)
	if err != nil {
		return fmt.Errorf("err setting %s in %s: %w", vf.Field, vf.Name, err)
	}
	return os.WriteFile(p, out, info.Mode().Perm())
}
