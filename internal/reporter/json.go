package reporter

import (
	"encoding/json"
	"io"
)

// WriteJSON JSON export of the document
func WriteJSON(w io.Writer, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	_, err = w.Write(append(data, '\n'))
	return err
}
