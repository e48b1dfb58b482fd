package static

import _ "embed"

// APIMd contains the embedded api.md usage doc served at /api.md.
//
//go:embed api.md
var APIMd string
