package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"greycells/internal/config"
	"greycells/internal/sandbox"
)

func newProfilesCmd(c *cli) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "List the sandbox profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if file == "" {
				file = os.Getenv("PROFILE_FILE")
			}
			profiles, err := config.LoadProfiles(file)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(c.stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tLANGUAGE\tSOURCE\tTEST\tCOMMAND")
			for _, name := range sandbox.Names(profiles) {
				p := profiles[name]
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", name, p.Language, p.SourceFile, p.TestFile, p.Test)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "profiles YAML file (default PROFILE_FILE)")
	return cmd
}
