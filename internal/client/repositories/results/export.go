package results

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/dmitrijs2005/automailpro/internal/client/models"
	"github.com/dmitrijs2005/automailpro/internal/filex"
)

// Write renders one "idx:ignored:email:status" line per result. The
// second field is reserved and always empty.
func Write(w io.Writer, results []models.Result) error {
	bw := bufio.NewWriter(w)
	for _, r := range results {
		if _, err := fmt.Fprintf(bw, "%d::%s:%s\n", r.Index, r.Email, r.Status); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ExportFile atomically replaces path with the rendered results.
func ExportFile(path string, results []models.Result) error {
	var buf bytes.Buffer
	if err := Write(&buf, results); err != nil {
		return err
	}
	return filex.WriteFileAtomic(path, buf.Bytes(), 0o644)
}
