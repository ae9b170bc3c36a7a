package main

// Test markdown content constants
const (
	testMarkdownSimple = "# Test"
	testMarkdownHeader = "# Hello World\n\nThis is a **test**."

	// GFM features
	testMarkdownTable         = "| A | B |\n|---|---|\n| 1 | 2 |"
	testMarkdownCode          = "```go\nfunc main() {}\n```"
	testMarkdownStrikethrough = "~~deleted~~"
	testMarkdownTaskList      = "- [x] Done\n- [ ] Todo"
	testMarkdownAutolink      = "https://example.com"

	// Pages with front matter
	testPageInstall = "---\ntitle: Install Guide\ncategories: [setup, ops]\n---\n# Installing\n\nRun the binary."
	testPageBadYAML = "---\ntitle: [unclosed\n---\n# Still Rendered"

	// Security test paths
	testPathTraversal    = "../../../etc/passwd"
	testPathURLEncoded   = "/wiki/..%2f..%2fetc%2fpasswd"
	testPathNullByte     = "safe\x00/../../etc/passwd"
	testOriginForeign    = "http://evil.example"
	testOriginLocal      = "http://localhost:6420"
	testListenAddr       = "127.0.0.1:6420"
	testScriptLabel      = "<script>alert(1)</script>"
	testTextareaBreakout = "</textarea><script>alert(1)</script>"
)
