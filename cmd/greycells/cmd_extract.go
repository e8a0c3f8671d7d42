package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"greycells/internal/config"
	"greycells/internal/extract"
	"greycells/internal/roles"
	"greycells/internal/util/jsonutil"
)

type extractOutput struct {
	Role        string            `json:"role"`
	Record      extract.Record    `json:"record"`
	Sources     map[string]string `json:"sources"`
	Peeled      int               `json:"peeled,omitempty"`
	Missing     []string          `json:"missing,omitempty"`
	Diagnostics []string          `json:"diagnostics,omitempty"`
}

func newExtractCmd(c *cli) *cobra.Command {
	var role, schemaFile string
	cmd := &cobra.Command{
		Use:   "extract --role ROLE FILE",
		Short: "Run the response extractor on a saved model answer",
		Long: `Parses FILE ("-" for stdin) with the schema of ROLE and prints the record,
the tier that produced every field and the diagnostics. Exits 1 when a
required field is missing.

Roles: ` + strings.Join(roles.RoleNames(), ", ") + ".",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if schemaFile == "" {
				schemaFile = os.Getenv("ROLE_SCHEMA_FILE")
			}
			schemas, err := (&config.Config{RoleSchemaFile: schemaFile}).Schemas()
			if err != nil {
				return err
			}
			schema, ok := schemas.ForRole(role)
			if !ok {
				return fmt.Errorf("unknown role %q (have %s)", role, strings.Join(roles.RoleNames(), ", "))
			}
			text, err := readInput(c.stdin, args[0])
			if err != nil {
				return err
			}

			res := extract.Parse(text, schema)
			out := extractOutput{
				Role:    role,
				Record:  res.Record,
				Sources: make(map[string]string, len(res.Sources)),
				Peeled:  res.Peeled,
			}
			for name, tier := range res.Sources {
				out.Sources[name] = tier.String()
			}
			for _, d := range res.Diagnostics {
				out.Diagnostics = append(out.Diagnostics, d.String())
			}
			var pf *extract.ParseFailure
			if err := extract.CheckRequired(role, schema, res.Record); errors.As(err, &pf) {
				out.Missing = pf.Fields
			}

			b, err := jsonutil.MarshalNoEscapeIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(c.stdout, string(b))
			if len(out.Missing) > 0 {
				return &exitError{code: 1, msg: "missing required field(s): " + strings.Join(out.Missing, ", ")}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "role whose schema is used")
	cmd.Flags().StringVar(&schemaFile, "schema-file", "", "role schema overrides (default ROLE_SCHEMA_FILE)")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func readInput(stdin io.Reader, name string) (string, error) {
	var (
		b   []byte
		err error
	)
	if name == "-" {
		b, err = io.ReadAll(stdin)
	} else {
		b, err = os.ReadFile(name)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", name, err)
	}
	return string(b), nil
}
