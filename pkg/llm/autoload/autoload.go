// Package autoload registers every built-in model provider factory.
package autoload

import (
	_ "graddirector/pkg/llm/gemini"
	_ "graddirector/pkg/llm/ollama"
	_ "graddirector/pkg/llm/openailm"
)
