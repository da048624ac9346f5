// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/learnsite/internal/pipeline"
	"github.com/pdiddy/learnsite/internal/textract"
	"github.com/pdiddy/learnsite/pkg/types"
)

var extractCmd = &cobra.Command{
	Use:   "extract [pdfs...]",
	Short: "Print the text statistics and topic outline of PDF chapters",
	Long: `Extract reads each PDF, cleans its text, and identifies the topic
outline, then prints the result as YAML together with the page path and
title the chapter would get. Use --no-llm to see the heading heuristic
alone.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().String("backend", "native", "PDF text backend: native or pdftotext")
	extractCmd.Flags().String("provider", "azure", "LLM provider: azure, anthropic, or gemini")
	extractCmd.Flags().Bool("no-llm", false, "build the outline from headings only")
	extractCmd.Flags().Bool("text", false, "include the cleaned text in the output")

	rootCmd.AddCommand(extractCmd)
}

// extractReport is the YAML document printed per input.
type extractReport struct {
	Source  string             `yaml:"source"`
	Title   string             `yaml:"title"`
	Page    string             `yaml:"page"`
	Pages   int                `yaml:"pages"`
	Chars   int                `yaml:"chars"`
	Outline types.TopicOutline `yaml:"outline"`
	Text    string             `yaml:"text,omitempty"`
}

func runExtract(cmd *cobra.Command, args []string) error {
	v := viper.GetViper()
	if err := bindFlags(v, cmd, map[string]string{
		"backend":  keyBackend,
		"provider": keyProvider,
	}); err != nil {
		return err
	}

	reader, err := newReader(v.GetString(keyBackend))
	if err != nil {
		return err
	}

	var outliner textract.Outliner
	if noLLM, _ := cmd.Flags().GetBool("no-llm"); !noLLM {
		syn, release, err := newSynthesizer(cmd.Context(), v)
		if err != nil {
			return err
		}
		defer release()
		outliner = syn
	}
	ex := textract.New(reader, outliner)
	withText, _ := cmd.Flags().GetBool("text")

	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	defer enc.Close()

	failed := 0
	for _, path := range args {
		result, err := ex.Extract(cmd.Context(), path)
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "failed:  %s (%v)\n", filepath.Base(path), err)
			failed++
			continue
		}
		r := extractReport{
			Source:  filepath.Base(path),
			Title:   pipeline.SubjectTitle(path, v.GetString(keyTitlePrefix)),
			Page:    pipeline.OutputPath(path),
			Pages:   result.Pages,
			Chars:   len([]rune(result.Text)),
			Outline: result.Outline,
		}
		if withText {
			r.Text = result.Text
		}
		if err := enc.Encode(r); err != nil {
			return fmt.Errorf("writing YAML: %w", err)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d file(s) failed extraction", failed)
	}
	return nil
}
