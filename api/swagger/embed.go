// Package swagger holds the OpenAPI document served at /swagger/doc.json.
package swagger

import _ "embed"

//go:embed users.swagger.json
var Spec []byte
