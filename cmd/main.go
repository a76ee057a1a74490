package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"talenest/internal/cli/scheme/colours"
	"talenest/internal/config"
	"talenest/internal/story/nest"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {

	config.SetDefaults()

	var (
		app     *nest.TaleNest
		cfgFile string
		verbose bool
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		// Cancelling stops narration; Close below shuts the engine down.
		cancel()
		fmt.Println("\n" + colours.Warning.Sprint("👋 Goodbye! Sweet dreams! 🌙"))
	}()

	rootCmd := &cobra.Command{
		Use:   "talenest",
		Short: "🏠 A cozy home for bedtime tales",
		Long: `
┌─────────────────────────────────────┐
│  📚 Welcome to TaleNest! 🏠        │
│  Tales woven from your own words    │
│  Read aloud for kids 👶✨          │
└─────────────────────────────────────┘

TaleNest writes a brand new children's tale from a few words you pick,
keeps the ones you love, and reads them aloud at bedtime. 🌙
		`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.Init(cfgFile); err != nil {
				return err
			}
			settings, err := config.Load()
			if err != nil {
				return err
			}

			logrus.SetLevel(settings.LogLevel)
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}

			app, err = nest.NewTaleNest(settings)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			app.ShowWelcome()
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is talenest.yaml in the user config dir)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	// Weave command
	weaveCmd := &cobra.Command{
		Use:   "weave <word> [word...]",
		Short: "🪄 Weave a new tale",
		Long:  "Generate a children's tale around the given words (separate them with spaces or commas)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.WeaveTale(cmd, args)
		},
	}

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "📋 List saved tales",
		Long:  "Display all saved tales, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.ListStories(cmd, args)
		},
	}

	showCmd := &cobra.Command{
		Use:   "show <tale-id>",
		Short: "📖 Show a saved tale",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.ShowStory(cmd, args)
		},
	}

	// Read command
	readCmd := &cobra.Command{
		Use:   "read <tale-id>",
		Short: "🎧 Read a saved tale aloud",
		Long:  "Read a saved tale aloud paragraph by paragraph. Press Ctrl+C to stop.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.ReadStory(cmd, args)
		},
	}

	deleteCmd := &cobra.Command{
		Use:   "delete [tale-id]",
		Short: "🗑️ Delete a saved tale",
		Long:  "Delete one saved tale, or every saved tale with --all",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.DeleteStory(cmd, args)
		},
	}

	shareCmd := &cobra.Command{
		Use:   "share <tale-id>",
		Short: "📤 Share a saved tale",
		Long:  "Copy a saved tale to the clipboard, or print it when share.target is stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.ShareStory(cmd, args)
		},
	}

	// Settings command
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "⚙️ Show settings",
		Long:  "Show voice, storage and generator settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.ConfigureSettings(cmd, args)
		},
	}

	voicesCmd := &cobra.Command{
		Use:   "voices",
		Short: "🗣️ List available voices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.ListVoices(cmd, args)
		},
	}

	// Add flags
	weaveCmd.Flags().BoolP("save", "s", false, "Save the tale to your collection")
	weaveCmd.Flags().BoolP("read", "r", false, "Read the tale aloud once it is ready")
	voicesCmd.Flags().StringP("locale", "l", "", "Only show voices for this language, e.g. tr or en-US")
	deleteCmd.Flags().Bool("all", false, "Delete every saved tale")
	for _, c := range []*cobra.Command{weaveCmd, readCmd} {
		c.Flags().Float64("rate", 1.0, "Speech speed for this reading (0.1-2.0, 1.0 is normal)")
		c.Flags().Float64("pitch", 1.0, "Voice pitch for this reading (0.5-2.0, 1.0 is normal)")
		c.Flags().StringP("locale", "l", "", "Language to read in, e.g. tr-TR or en-US")
	}

	rootCmd.AddCommand(weaveCmd, listCmd, showCmd, readCmd, deleteCmd, shareCmd, settingsCmd, voicesCmd)

	err := rootCmd.ExecuteContext(ctx)

	if app != nil {
		if cerr := app.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("Failed to shut down cleanly")
		}
	}

	if err != nil {
		colours.Error.Printf("❌ Error: %v\n", err)
		os.Exit(1)
	}
}
