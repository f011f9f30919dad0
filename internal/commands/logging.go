package commands

import (
	"strings"

	"github.com/halim714/markpress/internal/logging"
	"github.com/halim714/markpress/pkg/interfaces"
)

const commandModuleRoot = "markpress.commands"

// CommandLogger returns a module-scoped logger for command handlers, enriching
// it with consistent structured fields across every execution.
func CommandLogger(provider interfaces.LoggerProvider, module string) interfaces.Logger {
	name := strings.TrimSpace(module)
	if name == "" {
		name = "core"
	}
	logger := logging.ModuleLogger(provider, commandModuleRoot+"."+name)
	return logging.WithFields(logger, map[string]any{
		"component":      "command",
		"command_module": name,
	})
}
