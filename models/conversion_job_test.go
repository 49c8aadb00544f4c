package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDirectionForFile(t *testing.T) {
	tests := []struct {
		name   string
		file   string
		want   Direction
		wantOK bool
	}{
		{"docx", "report.docx", DocxToPDF, true},
		{"upper case pdf", "SCAN.PDF", PDFToDocx, true},
		{"legacy doc", "old.doc", "", false},
		{"no extension", "README", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DirectionForFile(tt.file)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDirectionAttributes(t *testing.T) {
	assert.Equal(t, "converted.pdf", DocxToPDF.DownloadName())
	assert.Equal(t, "converted.docx", PDFToDocx.DownloadName())
	assert.Equal(t, ContentTypePDF, DocxToPDF.ContentType())
	assert.Equal(t, ContentTypeDocx, PDFToDocx.ContentType())

	assert.True(t, DocxToPDF.Accepts("Letter.DOCX"))
	assert.False(t, PDFToDocx.Accepts("letter.docx"))
	assert.False(t, DocxToPDF.Accepts("letter.docx.exe"))
}

func TestParseDirection(t *testing.T) {
	d, ok := ParseDirection("PDF2DOCX")
	assert.True(t, ok)
	assert.Equal(t, PDFToDocx, d)

	_, ok = ParseDirection("docx2txt")
	assert.False(t, ok)
}
