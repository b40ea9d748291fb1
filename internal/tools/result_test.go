package tools

import (
	"strings"
	"testing"
)

func TestResponseXML_Success(t *testing.T) {
	resp := Success("replace").
		WithPath("/abs/path").
		WithSHA256("deadbeef").
		Note("Successfully modified file: /abs/path (1 replacement)").
		Note("Total lines: 2").
		WithContent("HELLO\nhello\n")

	xml := resp.XML()
	wants := []string{
		`<tool_response tool_name="replace">`,
		"<notes>Successfully modified file: /abs/path (1 replacement)\nTotal lines: 2</notes>",
		`<result status="SUCCESS" absolute_path="/abs/path" sha256_checksum="deadbeef"/>`,
		"<content_on_disk>HELLO\nhello\n</content_on_disk>",
		"</tool_response>",
	}
	for _, want := range wants {
		if !strings.Contains(xml, want) {
			t.Errorf("envelope missing %q:\n%s", want, xml)
		}
	}
	if strings.Contains(xml, "<error>") {
		t.Errorf("success envelope carries <error>:\n%s", xml)
	}
}

func TestResponseXML_Failed(t *testing.T) {
	xml := Failed("write_file", "OutOfRoot: /etc/passwd is outside the working root").XML()
	if !strings.Contains(xml, `<result status="FAILED"/>`) {
		t.Errorf("missing FAILED result:\n%s", xml)
	}
	if !strings.Contains(xml, "<error>OutOfRoot: /etc/passwd is outside the working root</error>") {
		t.Errorf("missing error element:\n%s", xml)
	}
	if strings.Contains(xml, "content_on_disk") {
		t.Errorf("failed envelope carries content:\n%s", xml)
	}
}

func TestResponseXML_EscapesContent(t *testing.T) {
	xml := Success("read_file").WithContent(`if a < b && b > c { /* <tag> */ }`).XML()
	if !strings.Contains(xml, "a &lt; b &amp;&amp; b &gt; c") {
		t.Errorf("content not escaped:\n%s", xml)
	}
	if strings.Contains(xml, "<tag>") {
		t.Errorf("raw markup leaked into envelope:\n%s", xml)
	}
}

func TestResponseXML_EmptyContentStillRendered(t *testing.T) {
	xml := Success("read_file").WithContent("").XML()
	if !strings.Contains(xml, "<content_on_disk></content_on_disk>") {
		t.Errorf("explicit empty content omitted:\n%s", xml)
	}
}
