// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/learnsite/internal/pipeline"
	"github.com/pdiddy/learnsite/internal/publish"
)

var publishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Push the current output directory to the pages branch",
	Long: `Publish stages every HTML page in the output directory, the README,
and a .nojekyll marker into a fresh repository and force-pushes it as a
single commit to the configured branch. Use it to redeploy a site without
regenerating it.`,
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().String("output-dir", "site", "directory holding the generated site")
	publishCmd.Flags().String("remote", "", "remote repository URL or path")
	publishCmd.Flags().String("branch", "main", "branch to push")
	publishCmd.Flags().Bool("prompt-token", false, "prompt for a push token when none is configured")

	rootCmd.AddCommand(publishCmd)
}

func runPublish(cmd *cobra.Command, args []string) error {
	v := viper.GetViper()
	if err := bindFlags(v, cmd, map[string]string{
		"output-dir": keyOutputDir,
		"remote":     keyRemote,
		"branch":     keyBranch,
	}); err != nil {
		return err
	}

	siteDir := v.GetString(keyOutputDir)
	if _, err := os.Stat(filepath.Join(siteDir, pipeline.IndexFile)); err != nil {
		return fmt.Errorf("no generated site in %s: run learnsite run first", siteDir)
	}

	cfg := publishConfig(v)
	prompt, _ := cmd.Flags().GetBool("prompt-token")
	cfg.Token = resolveToken(loadedSecrets, prompt, cmd.InOrStdin(), cmd.ErrOrStderr())

	if err := publish.NewGitPublisher(cfg).Publish(cmd.Context(), siteDir); err != nil {
		return fmt.Errorf("%w: %w", pipeline.ErrPublish, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Published %s to %s\n", siteDir, cfg.Branch)
	return nil
}
