package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/finfluencer-cli/internal/metadata"
)

var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Derive the profile store from scraped videos",
	Long:  "Rebuilds the profile store of --mode from its video store. With --top N, the N keyword-search profiles with the most followers are written to the project's profile list.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("profiles"); err != nil {
			return err
		}
		modeFlag, _ := cmd.Flags().GetString("mode")
		mode, err := metadata.ParseSearchMode(modeFlag)
		if err != nil {
			return err
		}
		top, _ := cmd.Flags().GetInt("top")

		paths := projectPaths()
		return withProjectLock(paths, func() error {
			profiles, err := metadata.UpdateProfiles(paths.Videos(mode), paths.Profiles(mode))
			if err != nil {
				return err
			}
			zap.L().Info("profiles: store updated",
				zap.String("file", paths.Profiles(mode)),
				zap.Int("profiles", profiles.Len()),
			)

			if top <= 0 {
				return nil
			}
			if mode != metadata.SearchKeyword {
				// Ranking always reads the keyword-search profiles.
				if profiles, err = metadata.UpdateProfiles(paths.Videos(metadata.SearchKeyword), paths.Profiles(metadata.SearchKeyword)); err != nil {
					return err
				}
			}
			handles, err := metadata.RankAndExportTopProfiles(profiles, top, paths.ProfileList())
			if err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "Wrote %d profiles to %s\n", len(handles), paths.ProfileList())
			return nil
		})
	},
}

func init() {
	profilesCmd.Flags().String("mode", string(metadata.SearchKeyword), "search mode: profile or keyword")
	profilesCmd.Flags().Int("top", 0, "export the N profiles with the most followers to the profile list")
	rootCmd.AddCommand(profilesCmd)
}
