// Package docs provides generated OpenAPI documentation.
//
// messiahx API
//
//	@title			messiahx API
//	@version		1.0
//	@description	Text analysis, summarization, classification, narrative detection, reformulation, research and persona chat backed by hosted language models.
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/messiahx/serve.go -o ./swagger --parseDependency --parseInternal
