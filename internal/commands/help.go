package commands

import (
	"context"
	"fmt"
	"io"
	"strings"

	"supatodo/internal/config"
	"supatodo/internal/exitcode"
)

func init() {
	Register(&HelpCmd{registry: DefaultRegistry})
}

// HelpCmd implements the help command.
type HelpCmd struct {
	noFlags
	registry *Registry
}

func (c *HelpCmd) Name() string       { return "help" }
func (c *HelpCmd) Aliases() []string  { return nil }
func (c *HelpCmd) Synopsis() string   { return "Print usage" }
func (c *HelpCmd) Usage() string      { return "supatodo help" }
func (c *HelpCmd) NeedsBackend() bool { return false }
func (c *HelpCmd) NeedsAuth() bool    { return false }

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, env *Env, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, HelpText(c.registry))
	return exitcode.Success
}

// HelpText renders usage for every command in r.
func HelpText(r *Registry) string {
	var b strings.Builder
	b.WriteString("Usage:\n")
	fmt.Fprintf(&b, "  %-50s %s\n", "supatodo", "Serve the web client (same as: supatodo serve)")
	if r != nil {
		for _, cmd := range r.All() {
			fmt.Fprintf(&b, "  %-50s %s\n", cmd.Usage(), cmd.Synopsis())
		}
	}
	b.WriteString(commonFlags)
	return b.String()
}

const commonFlags = `
Tasks are numbered as printed by list, newest first.

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
