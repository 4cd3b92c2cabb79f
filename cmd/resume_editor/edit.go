package main

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/resume-editor/internal/document"
	"github.com/jonathan/resume-editor/internal/editor"
	"github.com/jonathan/resume-editor/internal/path"
)

var (
	newOut    string
	editIn    string
	editOut   string
	editPath  string
	editValue string
	editIndex int
	editFrom  int
	editTo    int
)

var newCmd = &cobra.Command{
	Use:   "new",
	Short: "Write a blank resume document",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return writeDocument(cmd, document.New(), "", newOut)
	},
}

var setCmd = &cobra.Command{
	Use:   "set",
	Short: "Set one field of a resume document",
	Long: "Writes --value at --path. The value is parsed as JSON when possible, so numbers, " +
		"booleans, null, lists and objects keep their type; other input is stored as text.",
	Example: `  resume_editor set --in cv.json --path personal.fullName --value "Ada Lovelace"
  resume_editor set --in cv.json --path experience.0.achievements --value '["Cut p99 by 40%"]'`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runEdit(cmd, func(ed *editor.Editor, p path.Path) error {
			return ed.SetField(p, parseValue(editValue))
		})
	},
}

var insertCmd = &cobra.Command{
	Use:   "insert",
	Short: "Append an entry to a list in a resume document",
	Example: `  resume_editor insert --in cv.json --path skills --value Go
  resume_editor insert --in cv.json --path experience --value '{"company":"Acme","position":"Engineer"}'`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runEdit(cmd, func(ed *editor.Editor, p path.Path) error {
			return ed.Insert(p, parseValue(editValue))
		})
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove an entry from a list in a resume document",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runEdit(cmd, func(ed *editor.Editor, p path.Path) error {
			return ed.Remove(p, editIndex)
		})
	},
}

var moveCmd = &cobra.Command{
	Use:   "move",
	Short: "Reorder an entry of a list in a resume document",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runEdit(cmd, func(ed *editor.Editor, p path.Path) error {
			return ed.Move(p, editFrom, editTo)
		})
	},
}

var getCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the value at a path of a resume document as JSON",
	RunE:  runGet,
}

func init() {
	newCmd.Flags().StringVarP(&newOut, "out", "o", stdoutPath, "Output file, or - for stdout")
	rootCmd.AddCommand(newCmd)

	for _, cmd := range []*cobra.Command{setCmd, insertCmd, removeCmd, moveCmd} {
		cmd.Flags().StringVarP(&editIn, "in", "i", "", "Path to resume JSON file (required)")
		cmd.Flags().StringVarP(&editOut, "out", "o", "", "Output file, - for stdout (default: overwrite --in)")
		cmd.Flags().StringVarP(&editPath, "path", "p", "", "Dot-separated field path, e.g. experience.0.position (required)")
		markRequired(cmd, "in", "path")
		rootCmd.AddCommand(cmd)
	}

	setCmd.Flags().StringVar(&editValue, "value", "", "Value to write (required)")
	markRequired(setCmd, "value")
	insertCmd.Flags().StringVar(&editValue, "value", "", "Entry to append (required)")
	markRequired(insertCmd, "value")
	removeCmd.Flags().IntVar(&editIndex, "index", 0, "Index of the entry to remove")
	moveCmd.Flags().IntVar(&editFrom, "from", 0, "Current index of the entry")
	moveCmd.Flags().IntVar(&editTo, "to", 0, "New index of the entry")
	markRequired(moveCmd, "from", "to")

	getCmd.Flags().StringVarP(&editIn, "in", "i", "", "Path to resume JSON file (required)")
	getCmd.Flags().StringVarP(&editPath, "path", "p", "", "Dot-separated field path (required)")
	markRequired(getCmd, "in", "path")
	rootCmd.AddCommand(getCmd)
}

// runEdit applies one edit to --in through an editor and writes the result.
func runEdit(cmd *cobra.Command, edit func(*editor.Editor, path.Path) error) error {
	p, err := path.Parse(editPath)
	if err != nil {
		return err
	}
	doc, err := readDocument(editIn)
	if err != nil {
		return err
	}

	ed := editor.New(doc, editor.WithLogger(logger))
	defer ed.Close()
	if err := edit(ed, p); err != nil {
		return fmt.Errorf("%s failed: %w", cmd.Name(), err)
	}

	logger.Debug("document edited",
		zap.String("command", cmd.Name()),
		zap.String("path", p.String()),
	)
	return writeDocument(cmd, ed.Document(), editIn, editOut)
}

func runGet(cmd *cobra.Command, _ []string) error {
	p, err := path.Parse(editPath)
	if err != nil {
		return err
	}
	doc, err := readDocument(editIn)
	if err != nil {
		return err
	}
	value, err := path.Resolve(doc, p)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
