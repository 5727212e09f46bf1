package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"docconvert/internal/client"
)

var convertCmd = &cobra.Command{
	Use:   "convert <file.docx>",
	Short: "Convert a .docx document to PDF",
	Long: `Convert uploads the document to the server and writes <name>.pdf next to
the input, or into --out when given. Only .docx files are accepted; anything
else is rejected before a request is made.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outDir, _ := cmd.Flags().GetString("out")
		return runConvert(cmd, newBackend(), args[0], outDir)
	},
}

func init() {
	convertCmd.Flags().StringP("out", "o", "", "output directory (default: the input's directory)")

	rootCmd.AddCommand(convertCmd)
}

// runConvert drives the client controller through one selection and one
// conversion, the way a user would in the browser.
func runConvert(cmd *cobra.Command, conv client.Converter, path, outDir string) error {
	if outDir == "" {
		outDir = filepath.Dir(path)
	}

	view := client.NewTerminalView(cmd.ErrOrStderr())
	controller := client.NewController(view, client.DirSaver{Dir: outDir}, conv)

	controller.OnFileSelected(client.LocalFile(path))
	if !view.ConvertEnabled() {
		return fmt.Errorf("%s: %s", path, client.StatusWrongType)
	}

	if err := controller.OnConvertRequested(cmd.Context()); err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), filepath.Join(outDir, client.DownloadName(filepath.Base(path))))
	return nil
}
