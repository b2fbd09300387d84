package server

import _ "embed"

//go:embed assets/index.html
var indexPage []byte

//go:embed assets/ui.html
var uiPage []byte
