package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/algopy/algopy/internal/docs"
)

func newDocsCmd() *cobra.Command {
	docsCmd := &cobra.Command{
		Use:   "docs",
		Short: "Documentation conformance checks",
	}

	checkCmd := &cobra.Command{
		Use:   "check [readme]",
		Short: "Verify the README has every required section filled in",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runDocsCheck,
	}
	checkCmd.Flags().Bool("strict", false, "Exit nonzero when sections are missing or placeholder")

	docsCmd.AddCommand(checkCmd)
	return docsCmd
}

func runDocsCheck(cmd *cobra.Command, args []string) error {
	path := "README.md"
	if len(args) == 1 {
		path = args[0]
	}

	report, err := docs.CheckFile(path)
	if err != nil {
		return err
	}

	if report.Conformant() {
		printf("%s: all %d required sections present with real content", path, len(report.Sections))
		return nil
	}

	for _, p := range report.Problems() {
		printf("  %s", p)
	}
	if strict, _ := cmd.Flags().GetBool("strict"); strict {
		return fmt.Errorf("%s fails documentation conformance", path)
	}
	printf("%s has conformance problems", path)
	return nil
}
