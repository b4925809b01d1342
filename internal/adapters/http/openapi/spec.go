// Package openapi embeds the HTTP API contract used for request validation.
package openapi

import _ "embed"

//go:embed openapi.yaml
var Spec []byte
