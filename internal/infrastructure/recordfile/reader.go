// Package recordfile lee archivos de notas exportados por ERPs: una nota,
// un arreglo de notas o un lote {"notas": [...]}. Los ERPs antiguos exportan
// en ISO-8859-1; si el contenido no es UTF-8 válido se transcodifica.
package recordfile

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/nfe-fiscal/internal/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadFile abre path y delega en Read. "-" lee de stdin.
func ReadFile(path string) ([]json.RawMessage, error) {
	if path == "-" {
		return Read(os.Stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("abrir %s: %w", path, err)
	}
	defer f.Close()
	return Read(f)
}

// Read devuelve cada nota del documento como JSON crudo, sin decodificarla:
// la decodificación (y su error) es por nota.
func Read(r io.Reader) ([]json.RawMessage, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("leer notas: %w", err)
	}
	data, err = toUTF8(data)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(bytes.TrimPrefix(data, utf8BOM))
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: arquivo vazio", domain.ErrInvalidInput)
	}

	switch data[0] {
	case '[':
		var list []json.RawMessage
		if err := json.Unmarshal(data, &list); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		return list, nil
	case '{':
		var batch struct {
			Invoices []json.RawMessage `json:"notas"`
		}
		if err := json.Unmarshal(data, &batch); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
		}
		if batch.Invoices != nil {
			return batch.Invoices, nil
		}
		return []json.RawMessage{json.RawMessage(data)}, nil
	}
	return nil, fmt.Errorf("%w: esperado objeto ou arreglo JSON", domain.ErrInvalidInput)
}

func toUTF8(data []byte) ([]byte, error) {
	if utf8.Valid(data) {
		return data, nil
	}
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(data), charmap.ISO8859_1.NewDecoder()))
	if err != nil {
		return nil, fmt.Errorf("transcodificar ISO-8859-1: %w", err)
	}
	return out, nil
}
