package csvio

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
)

// Field is one labelled value of an exported object.
type Field struct {
	Key   string
	Value string
}

// Object is a flat, ordered set of fields. All objects in one export are
// expected to share the same keys in the same order.
type Object []Field

// Export writes objs as CSV. The header comes from the keys of the first
// object; later objects are written positionally. Fields holding a comma,
// quote or newline are quoted with embedded quotes doubled. Writing no
// objects writes nothing.
func Export(w io.Writer, objs []Object) error {
	if len(objs) == 0 {
		return nil
	}

	cw := csv.NewWriter(w)
	header := make([]string, len(objs[0]))
	for i, f := range objs[0] {
		header[i] = f.Key
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	row := make([]string, len(header))
	for n, obj := range objs {
		if len(obj) != len(header) {
			return fmt.Errorf("object %d has %d fields, header has %d", n+1, len(obj), len(header))
		}
		for i, f := range obj {
			row[i] = f.Value
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write object %d: %w", n+1, err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// ExportString is Export into a string.
func ExportString(objs []Object) (string, error) {
	var buf bytes.Buffer
	if err := Export(&buf, objs); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteFile exports objs to path, replacing any existing file.
func WriteFile(path string, objs []Object) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return Export(f, objs)
}
