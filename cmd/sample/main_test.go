package main

import (
	"testing"

	"github.com/gabriel-vasile/mimetype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pdfdesk/pkg/viewer"
)

func TestSamplePDF(t *testing.T) {
	data := samplePDF(4)
	assert.True(t, mimetype.Detect(data).Is("application/pdf"))

	pages, err := viewer.HeuristicCounter{}.CountPages(data)
	require.NoError(t, err)
	assert.Equal(t, 4, pages)
}
