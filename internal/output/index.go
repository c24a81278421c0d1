package output

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// DefaultIndexFile is the CSV index name inside the output directory.
const DefaultIndexFile = "articles_summary.csv"

// IndexHeader is the first row of the CSV index.
var IndexHeader = []string{"Article Title", "Content (HTML)", "Categories", "Tags", "Image", "Featured Image", "Excerpt"}

// IndexRow is one successfully processed topic in the CSV index.
type IndexRow struct {
	Title         string
	Content       string
	Categories    []string
	Tags          []string
	Image         string
	FeaturedImage string
	Excerpt       string
}

// Record flattens the row into CSV fields.
func (r IndexRow) Record() []string {
	return []string{
		r.Title,
		r.Content,
		strings.Join(r.Categories, ", "),
		strings.Join(r.Tags, ", "),
		r.Image,
		r.FeaturedImage,
		r.Excerpt,
	}
}

// InitIndex truncates path and writes the header row.
func InitIndex(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating index: %w", err)
	}
	if err := writeRecord(f, IndexHeader); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// AppendIndex appends one row to an existing index.
func AppendIndex(path string, row IndexRow) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening index: %w", err)
	}
	if err := writeRecord(f, row.Record()); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadIndex returns the data rows of an index, header excluded.
func ReadIndex(path string) ([]IndexRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening index: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(IndexHeader)

	var rows []IndexRow
	first := true
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading index: %w", err)
		}
		if first {
			first = false
			continue
		}
		rows = append(rows, IndexRow{
			Title:         rec[0],
			Content:       rec[1],
			Categories:    splitList(rec[2]),
			Tags:          splitList(rec[3]),
			Image:         rec[4],
			FeaturedImage: rec[5],
			Excerpt:       rec[6],
		})
	}
	return rows, nil
}

func writeRecord(w io.Writer, rec []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(rec); err != nil {
		return fmt.Errorf("writing index row: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("writing index row: %w", err)
	}
	return nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ", ")
}
