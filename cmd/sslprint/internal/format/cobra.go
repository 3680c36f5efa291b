package format

import (
	"github.com/spf13/cobra"
)

// FromCommand builds a Printer on the command's writers, honoring the
// --output, --quiet and --no-color flags when the command defines them.
func FromCommand(cmd *cobra.Command) *Printer {
	flags := cmd.Flags()

	mode := ModeTable
	if f := flags.Lookup("output"); f != nil {
		mode = ParseMode(f.Value.String())
	}
	quiet, _ := flags.GetBool("quiet")
	noColor, _ := flags.GetBool("no-color")

	return New(cmd.OutOrStdout(), cmd.ErrOrStderr(), mode, quiet, !noColor)
}
