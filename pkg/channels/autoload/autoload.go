// Package autoload registers every built-in channel factory.
package autoload

import (
	_ "graddirector/pkg/channels/discord"
	_ "graddirector/pkg/channels/telegram"
	_ "graddirector/pkg/channels/terminal"
	_ "graddirector/pkg/channels/web"
)
