package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `<?xml version="1.0" encoding="UTF-8"?>
<?sc-transform-do-oxy-pi?>
<Item>
  <CourseCode>TM112</CourseCode>
  <CourseTitle>Introduction to computing&nbsp;and IT</CourseTitle>
  <ItemTitle>Block 1 <i>Part 2</i></ItemTitle>
  <Unit>
    <Session>
      <Title>1 Getting started</Title>
      <Paragraph>See <a href="https://www.open.ac.uk">the <b>OU</b> site</a>.</Paragraph>
      <Paragraph><a href="http://ieeexplore.ieee.org.libezproxy.open.ac.uk/xpl/articleDetails.jsp?arnumber=4376143">IEEE</a></Paragraph>
      <Paragraph><a>no href</a></Paragraph>
    </Session>
    <Session>
      <Title>2 Caf&#233;</Title>
      <Paragraph><a href="https://www.open.ac.uk">again</a></Paragraph>
    </Session>
  </Unit>
  <BackMatter>
    <References><a href="https://www.bbc.co.uk">BBC</a></References>
  </BackMatter>
</Item>`

func TestParse(t *testing.T) {
	doc, err := Parse(sampleDoc)
	require.NoError(t, err)

	assert.Equal(t, "TM112", doc.Metadata.CourseCode)
	assert.Equal(t, "Introduction to computing and IT", doc.Metadata.CourseTitle, "non-breaking space folds to a space")
	assert.Equal(t, "Block 1 Part 2", doc.Metadata.ItemTitle)

	require.Len(t, doc.Sections, 3)
	assert.Equal(t, "1 Getting started", doc.Sections[0].Title)
	assert.Equal(t, []Link{
		{Text: "the OU site", URL: "https://www.open.ac.uk"},
		{Text: "IEEE", URL: "http://ieeexplore.ieee.org/xpl/articleDetails.jsp?arnumber=4376143"},
	}, doc.Sections[0].Links)

	assert.Equal(t, "2 Cafe\u0301", doc.Sections[1].Title, "titles are NFKD-decomposed")
	assert.Equal(t, []Link{{Text: "again", URL: "https://www.open.ac.uk"}}, doc.Sections[1].Links)

	assert.Equal(t, BackMatter, doc.Sections[2].Title)
	assert.Equal(t, []Link{{Text: "BBC", URL: "https://www.bbc.co.uk"}}, doc.Sections[2].Links)
}

func TestParseWithoutBackMatter(t *testing.T) {
	doc, err := Parse(`<Item><CourseCode>X1</CourseCode></Item>`)
	require.NoError(t, err)
	require.Len(t, doc.Sections, 1)
	assert.Equal(t, BackMatter, doc.Sections[0].Title)
	assert.Empty(t, doc.Sections[0].Links)
	assert.Empty(t, doc.Metadata.ItemTitle)
}

func TestFilesAndParseAll(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.xml"), []byte(sampleDoc), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.xml"), []byte(`<Item><Session><Title>S</Title><a href="https://www.bbc.co.uk">x</a></Session></Item>`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.xml"), 0o755))

	files, err := Files(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.xml"), filepath.Join(dir, "b.xml")}, files)

	single, err := Files(files[1])
	require.NoError(t, err)
	assert.Equal(t, files[1:], single)

	docs, urls, err := ParseAll(files)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, files[0], docs[0].Metadata.File)
	assert.Equal(t, []string{
		"https://www.bbc.co.uk",
		"https://www.open.ac.uk",
		"http://ieeexplore.ieee.org/xpl/articleDetails.jsp?arnumber=4376143",
	}, urls)
}

func TestFilesMissingPath(t *testing.T) {
	_, err := Files(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
