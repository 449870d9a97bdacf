package main

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"pdfdesk/pkg/config"
	"pdfdesk/pkg/kvstore"
	"pdfdesk/pkg/models"
	"pdfdesk/pkg/storage"
	"pdfdesk/pkg/utils"
)

// samplePDF builds a small PDF with one text line per page
func samplePDF(pages int) []byte {
	var buf bytes.Buffer
	var offsets []int
	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")
	kids := ""
	for i := 0; i < pages; i++ {
		kids += fmt.Sprintf("%d 0 R ", 4+i*2)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, pages))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")
	for i := 0; i < pages; i++ {
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents %d 0 R /Resources << /Font << /F1 3 0 R >> >> >>", 5+i*2))
		text := fmt.Sprintf("BT /F1 24 Tf 72 720 Td (Sample page %d of %d) Tj ET", i+1, pages)
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(text), text))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(offsets)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

func main() {
	flags := pflag.NewFlagSet("sample", pflag.ExitOnError)
	configPath := flags.String("config", "", "config file")
	name := flags.String("name", "sample.pdf", "document name")
	pages := flags.Int("pages", 3, "page count")
	flags.String("data_path", "", "directory holding the durable store")
	flags.String("storage.backend", "", "durable store backend")
	flags.Parse(os.Args[1:])

	cfg, err := config.Load(flags, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.EnsureDirs(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create data dir: %v\n", err)
		os.Exit(1)
	}

	store, err := kvstore.Open(cfg.Storage.Backend, cfg.DataPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	docs, err := storage.LoadDocuments(store, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load admin documents: %v\n", err)
		os.Exit(1)
	}

	data := samplePDF(*pages)
	doc := models.AdminDocument{
		ID:         utils.GenerateShortUUID(),
		Name:       *name,
		Size:       int64(len(data)),
		Data:       data,
		UploadedAt: time.Now(),
	}
	if err := docs.Insert(doc); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to insert document: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Inserted %s (%d pages) with ID: %s\n", doc.Name, *pages, doc.ID)
}
