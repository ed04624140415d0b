// Package docs registra la especificación OpenAPI de la API en swag.
// swagger.json se sirve además en /docs (gofiber/contrib/swagger).
package docs

import (
	_ "embed"

	"github.com/swaggo/swag"
)

//go:embed swagger.json
var docTemplate string

// SwaggerInfo información de la API exportada para ajustes en runtime (host, basePath).
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "NF-e Fiscal API",
	Description:      "Validación y cálculo fiscal determinista de NF-e.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
