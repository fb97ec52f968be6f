package commands

import (
	"context"
	"fmt"
	"io"

	"supatodo/internal/config"
	"supatodo/internal/exitcode"
)

func init() {
	Register(&ConfigCmd{})
}

// ConfigCmd implements the config command: "show" prints the effective
// configuration with secrets masked, "path" prints the config file path.
type ConfigCmd struct{ noFlags }

func (c *ConfigCmd) Name() string       { return "config" }
func (c *ConfigCmd) Aliases() []string  { return nil }
func (c *ConfigCmd) Synopsis() string   { return "Show effective configuration" }
func (c *ConfigCmd) Usage() string      { return "supatodo config [show|path]" }
func (c *ConfigCmd) NeedsBackend() bool { return false }
func (c *ConfigCmd) NeedsAuth() bool    { return false }

func (c *ConfigCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	sub := "show"
	if len(args) > 0 {
		sub = args[0]
	}

	switch sub {
	case "show":
		data, err := cfg.YAML()
		if err != nil {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
		fmt.Fprint(out, string(data))
	case "path":
		fmt.Fprintln(out, cfg.ConfigFilePath())
	default:
		fmt.Fprintf(errOut, "error: unknown config subcommand: %s\n", sub)
		return exitcode.UserError
	}
	return exitcode.Success
}
