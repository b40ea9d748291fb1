package tools

import (
	"fmt"
	"strings"
)

// Response is the uniform structured envelope every tool returns. It is
// rendered as a stable XML-like document consumed both by the model and by
// the renderer.
type Response struct {
	ToolName     string
	Status       string // "SUCCESS" or "FAILED"
	AbsolutePath string
	SHA256       string
	Notes        []string
	Content      string // content_on_disk block, empty = omitted
	HasContent   bool
	Error        string
}

const (
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// Success starts a SUCCESS envelope for a tool.
func Success(tool string) *Response {
	return &Response{ToolName: tool, Status: StatusSuccess}
}

// Failed builds a FAILED envelope with an error string.
func Failed(tool, format string, args ...any) *Response {
	return &Response{
		ToolName: tool,
		Status:   StatusFailed,
		Error:    fmt.Sprintf(format, args...),
	}
}

// FailedErr builds a FAILED envelope from an error value.
func FailedErr(tool string, err error) *Response {
	return Failed(tool, "%v", err)
}

// WithPath records the absolute path the tool operated on.
func (r *Response) WithPath(path string) *Response {
	r.AbsolutePath = path
	return r
}

// WithSHA256 records the content checksum.
func (r *Response) WithSHA256(sum string) *Response {
	r.SHA256 = sum
	return r
}

// Note appends a human-readable note line.
func (r *Response) Note(format string, args ...any) *Response {
	r.Notes = append(r.Notes, fmt.Sprintf(format, args...))
	return r
}

// WithContent sets the content_on_disk block.
func (r *Response) WithContent(content string) *Response {
	r.Content = content
	r.HasContent = true
	return r
}

// IsError reports whether the envelope carries a failure.
func (r *Response) IsError() bool { return r.Status == StatusFailed }

// XML renders the stable envelope document:
//
//	<tool_response tool_name="replace">
//	  <notes>...</notes>
//	  <result status="SUCCESS" absolute_path="/abs" sha256_checksum="hex"/>
//	  <content_on_disk>...</content_on_disk>
//	</tool_response>
//
// FAILED variants carry <result status="FAILED"/> and <error>...</error>.
func (r *Response) XML() string {
	var b strings.Builder
	fmt.Fprintf(&b, "<tool_response tool_name=%q>\n", r.ToolName)

	if len(r.Notes) > 0 {
		fmt.Fprintf(&b, "  <notes>%s</notes>\n", escapeXML(strings.Join(r.Notes, "\n")))
	}

	b.WriteString(`  <result status="` + r.Status + `"`)
	if r.AbsolutePath != "" {
		fmt.Fprintf(&b, " absolute_path=%q", r.AbsolutePath)
	}
	if r.SHA256 != "" {
		fmt.Fprintf(&b, " sha256_checksum=%q", r.SHA256)
	}
	b.WriteString("/>\n")

	if r.Error != "" {
		fmt.Fprintf(&b, "  <error>%s</error>\n", escapeXML(r.Error))
	}
	if r.HasContent {
		fmt.Fprintf(&b, "  <content_on_disk>%s</content_on_disk>\n", escapeXML(r.Content))
	}

	b.WriteString("</tool_response>")
	return b.String()
}

var xmlReplacer = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

func escapeXML(s string) string {
	return xmlReplacer.Replace(s)
}
