// Package cli renders answers and index summaries for the tanya command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/internal/session"
	"github.com/hyperjump/tanya/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text" or "json".
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(s) {
	case OutputText, OutputJSON:
		return OutputFormat(s), nil
	}
	return "", fmt.Errorf("unknown output format %q (use text or json)", s)
}

// WriteResult writes an answer and its sources to w in the given format.
func WriteResult(w io.Writer, result *models.QueryResult, format OutputFormat, previewLen int) error {
	if format == OutputJSON {
		return writeJSON(w, result)
	}
	fmt.Fprintf(w, "\nAnswer (%s, %dms)\n\n%s\n\n", result.Model, result.TookMillis(), result.Answer)
	if len(result.Sources) == 0 {
		return nil
	}
	fmt.Fprintf(w, "Sources (%d)\n", len(result.Sources))
	for i, sc := range result.Sources {
		fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
		fmt.Fprintf(w, "%d. [%s] %s page %d | Score: %.4f\n", i+1, sc.Chunk.Label(), sc.Chunk.Source(), sc.Chunk.Page, sc.Score)
		fmt.Fprintf(w, "%s\n", utils.Truncate(utils.OneLine(sc.Chunk.Content), previewLen))
	}
	fmt.Fprintln(w)
	return nil
}

// WriteStatus writes an index summary to w in the given format.
func WriteStatus(w io.Writer, st session.Status, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, st)
	}
	if !st.Loaded {
		fmt.Fprintf(w, "No document loaded (%s)\n", st.Path)
		return nil
	}
	fmt.Fprintf(w, "Document:     %s\n", st.Document)
	fmt.Fprintf(w, "Fingerprint:  %s\n", st.Fingerprint)
	fmt.Fprintf(w, "Pages:        %d\n", st.Pages)
	fmt.Fprintf(w, "Chunks:       %d (size %d, overlap %d)\n", st.Chunks, st.ChunkSize, st.Overlap)
	fmt.Fprintf(w, "Embedding:    %s (memo %d hits, %d misses)\n", st.Embedding, st.CacheHits, st.CacheMisses)
	fmt.Fprintf(w, "Vector store: %s (keyword index: %v)\n", st.VectorStore, st.KeywordIndex)
	fmt.Fprintf(w, "Model:        %s\n", st.Model)
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
