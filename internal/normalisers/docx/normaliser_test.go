package docx

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// createTestDOCX creates a minimal DOCX archive in memory.
func createTestDOCX(t *testing.T, documentXML, coreXML string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	add := func(name, body string) {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(body))
		require.NoError(t, err)
	}

	add("[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
</Types>`)
	if documentXML != "" {
		add("word/document.xml", documentXML)
	}
	if coreXML != "" {
		add("docProps/core.xml", coreXML)
	}

	require.NoError(t, w.Close())
	return buf.Bytes()
}

const twoParagraphs = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>The supplier shall deliver </w:t></w:r><w:r><w:t>within 30 days.</w:t></w:r></w:p>
<w:p><w:r><w:t>Payment is due on receipt.</w:t></w:r></w:p>
</w:body>
</w:document>`

func TestFormatAndExtensions(t *testing.T) {
	n := New()
	assert.Equal(t, "docx", n.Format())
	assert.Equal(t, []string{".docx"}, n.Extensions())
}

func TestNormalise_Success(t *testing.T) {
	core := `<?xml version="1.0" encoding="UTF-8"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
 xmlns:dc="http://purl.org/dc/elements/1.1/"><dc:title>Supply Agreement</dc:title></cp:coreProperties>`

	res, err := New().Normalise("supply.docx", createTestDOCX(t, twoParagraphs, core))
	require.NoError(t, err)

	assert.Equal(t, "The supplier shall deliver within 30 days.\nPayment is due on receipt.", res.Content)
	assert.Equal(t, "Supply Agreement", res.Title)
	assert.Equal(t, "docx", res.Format)
}

func TestNormalise_TitleFallbackToFilename(t *testing.T) {
	res, err := New().Normalise("/contracts/supply_terms.docx", createTestDOCX(t, twoParagraphs, ""))
	require.NoError(t, err)
	assert.Equal(t, "supply terms", res.Title)
}

func TestNormalise_InvalidZip(t *testing.T) {
	_, err := New().Normalise("broken.docx", []byte("not a zip file"))
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNormalise_MissingDocumentPart(t *testing.T) {
	_, err := New().Normalise("empty.docx", createTestDOCX(t, "", ""))
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestParseDocumentXML_Malformed(t *testing.T) {
	assert.Empty(t, parseDocumentXML([]byte("<w:document><w:body>")))
}
