package cmd

import (
	"fmt"
	"log"
	"strconv"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/Rorical/RoriLens/internal/app"
	"github.com/Rorical/RoriLens/internal/config"
	"github.com/Rorical/RoriLens/internal/models"
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Manage classifier profiles",
	Long:  `Manage classifier profiles for different backends, models and input modes.`,
}

var listProfilesCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		fmt.Printf("Active Profile: %s\n\n", cfg.ActiveProfile)
		fmt.Println("Available Profiles:")
		for _, name := range cfg.ProfileNames() {
			profile := cfg.Profiles[name]
			marker := ""
			if name == cfg.ActiveProfile {
				marker = " (active)"
			}
			fmt.Printf("  %s%s\n", name, marker)
			fmt.Printf("    Backend: %s\n", profile.Backend)
			switch profile.Backend {
			case "onnx":
				fmt.Printf("    Model Path: %s\n", profile.ModelPath)
			default:
				fmt.Printf("    Model: %s\n", profile.Model)
			}
			if profile.InputMode != "" {
				fmt.Printf("    Input Mode: %s\n", profile.InputMode)
			}
			fmt.Println()
		}
	},
}

var showProfileCmd = &cobra.Command{
	Use:   "show [profile-name]",
	Short: "Show profile details",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		profileName := args[0]
		profile, exists := cfg.Profiles[profileName]
		if !exists {
			log.Fatalf("Profile '%s' does not exist", profileName)
		}

		fmt.Printf("Profile: %s\n", profileName)
		fmt.Printf("Backend: %s\n", profile.Backend)
		fmt.Printf("Input Mode: %s\n", profile.InputMode)
		fmt.Printf("Top K: %d\n", profile.TopK)
		fmt.Printf("Timeout: %ds\n", profile.TimeoutSeconds)
		switch profile.Backend {
		case "onnx":
			fmt.Printf("Model Path: %s\n", profile.ModelPath)
			fmt.Printf("Metadata Path: %s\n", profile.MetadataPath)
			fmt.Printf("Labels Path: %s\n", profile.LabelsPath)
			fmt.Printf("Library Path: %s\n", profile.LibraryPath)
		default:
			fmt.Printf("Model: %s\n", profile.Model)
			fmt.Printf("Base URL: %s\n", profile.BaseURL)
			hasKey := "Not set"
			if profile.APIKey != "" {
				hasKey = "Set (hidden for security)"
			}
			fmt.Printf("API Key: %s\n", hasKey)
		}
		if path, err := config.Path(); err == nil {
			fmt.Printf("\nConfig file: %s\n", path)
		}
	},
}

var addProfileCmd = &cobra.Command{
	Use:   "add [profile-name]",
	Short: "Add a new profile",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		var profileName string
		if len(args) > 0 {
			profileName = args[0]
		} else {
			prompt := promptui.Prompt{
				Label: "Profile name",
			}
			profileName, err = prompt.Run()
			if err != nil {
				log.Fatalf("Prompt failed: %v", err)
			}
		}

		if _, exists := cfg.Profiles[profileName]; exists {
			log.Fatalf("Profile '%s' already exists", profileName)
		}

		profile, err := promptProfile(config.Profile{
			Backend:   config.DefaultBackend,
			Model:     config.DefaultModel,
			InputMode: string(models.ModeURL),
		})
		if err != nil {
			log.Fatalf("Prompt failed: %v", err)
		}

		// Add profile to config
		cfg.Profiles[profileName] = profile

		// Save config
		if err := cfg.Save(); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}

		fmt.Printf("Profile '%s' added successfully!\n", profileName)
	},
}

var editProfileCmd = &cobra.Command{
	Use:   "edit [profile-name]",
	Short: "Edit an existing profile",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		var profileName string
		if len(args) > 0 {
			profileName = args[0]
		} else {
			profileName = selectProfile(cfg, "Select profile to edit", "")
		}

		profile, exists := cfg.Profiles[profileName]
		if !exists {
			log.Fatalf("Profile '%s' does not exist", profileName)
		}

		profile, err = promptProfile(profile)
		if err != nil {
			log.Fatalf("Prompt failed: %v", err)
		}

		// Update profile in config
		cfg.Profiles[profileName] = profile

		// Save config
		if err := cfg.Save(); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}

		fmt.Printf("Profile '%s' updated successfully!\n", profileName)
	},
}

var deleteProfileCmd = &cobra.Command{
	Use:   "delete [profile-name]",
	Short: "Delete a profile",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		var profileName string
		if len(args) > 0 {
			profileName = args[0]
		} else {
			profileName = selectProfile(cfg, "Select profile to delete", "")
		}

		if _, exists := cfg.Profiles[profileName]; !exists {
			log.Fatalf("Profile '%s' does not exist", profileName)
		}

		// Confirm deletion
		confirmPrompt := promptui.Prompt{
			Label:     fmt.Sprintf("Delete profile '%s'? (y/N)", profileName),
			IsConfirm: true,
		}
		_, err = confirmPrompt.Run()
		if err != nil {
			fmt.Println("Deletion cancelled")
			return
		}

		if err := cfg.DeleteProfile(profileName); err != nil {
			log.Fatalf("Failed to delete profile: %v", err)
		}

		// Save config
		if err := cfg.Save(); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}

		fmt.Printf("Profile '%s' deleted successfully!\n", profileName)
	},
}

var switchProfileCmd = &cobra.Command{
	Use:   "switch [profile-name]",
	Short: "Switch to a different profile",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig()
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		var profileName string
		if len(args) > 0 {
			profileName = args[0]
		} else {
			if len(cfg.Profiles) < 2 {
				fmt.Println("No other profiles available to switch to")
				return
			}
			profileName = selectProfile(cfg, "Select profile to switch to", cfg.ActiveProfile)
		}

		if _, exists := cfg.Profiles[profileName]; !exists {
			log.Fatalf("Profile '%s' does not exist", profileName)
		}

		cfg.ActiveProfile = profileName

		// Save config
		if err := cfg.Save(); err != nil {
			log.Fatalf("Failed to save config: %v", err)
		}

		fmt.Printf("Switched to profile '%s'\n", profileName)
	},
}

// selectProfile lets the user pick a profile, leaving out skip
func selectProfile(cfg *config.Config, label, skip string) string {
	profileNames := make([]string, 0, len(cfg.Profiles))
	for _, name := range cfg.ProfileNames() {
		if name != skip {
			profileNames = append(profileNames, name)
		}
	}

	if len(profileNames) == 0 {
		log.Fatalf("No profiles available")
	}

	prompt := promptui.Select{
		Label: label,
		Items: profileNames,
	}
	_, profileName, err := prompt.Run()
	if err != nil {
		log.Fatalf("Selection failed: %v", err)
	}
	return profileName
}

// promptProfile walks through every field, offering current values as
// defaults. Backend-specific fields are only asked for the chosen backend.
func promptProfile(profile config.Profile) (config.Profile, error) {
	var err error

	backends := app.NewRegistry().List()
	backendPrompt := promptui.Select{
		Label:     "Backend",
		Items:     backends,
		CursorPos: indexOf(backends, profile.Backend),
	}
	if _, profile.Backend, err = backendPrompt.Run(); err != nil {
		return profile, err
	}

	modes := []string{string(models.ModeURL), string(models.ModeFile)}
	modePrompt := promptui.Select{
		Label:     "Input mode",
		Items:     modes,
		CursorPos: indexOf(modes, profile.InputMode),
	}
	if _, profile.InputMode, err = modePrompt.Run(); err != nil {
		return profile, err
	}

	if profile.TopK, err = promptInt("Top predictions", profile.TopK, 3); err != nil {
		return profile, err
	}
	if profile.TimeoutSeconds, err = promptInt("Timeout in seconds", profile.TimeoutSeconds, config.DefaultTimeout); err != nil {
		return profile, err
	}

	switch profile.Backend {
	case "onnx":
		fields := []struct {
			label string
			value *string
		}{
			{"Model path (.onnx)", &profile.ModelPath},
			{"Metadata path (.yaml or .json)", &profile.MetadataPath},
			{"Labels path (optional)", &profile.LabelsPath},
			{"onnxruntime library path (optional)", &profile.LibraryPath},
		}
		for _, field := range fields {
			prompt := promptui.Prompt{
				Label:   field.label,
				Default: *field.value,
			}
			if *field.value, err = prompt.Run(); err != nil {
				return profile, err
			}
		}
	default:
		// Prompt for API Key
		apiKeyPrompt := promptui.Prompt{
			Label:   "API Key",
			Default: profile.APIKey,
			Mask:    '*',
		}
		if profile.APIKey, err = apiKeyPrompt.Run(); err != nil {
			return profile, err
		}

		modelPrompt := promptui.Prompt{
			Label:   "Vision model",
			Default: profile.Model,
		}
		if profile.Model, err = modelPrompt.Run(); err != nil {
			return profile, err
		}

		baseURLPrompt := promptui.Prompt{
			Label:   "Base URL (optional)",
			Default: profile.BaseURL,
		}
		if profile.BaseURL, err = baseURLPrompt.Run(); err != nil {
			return profile, err
		}
	}

	return profile, profile.Validate()
}

func promptInt(label string, current, fallback int) (int, error) {
	if current <= 0 {
		current = fallback
	}
	prompt := promptui.Prompt{
		Label:   label,
		Default: strconv.Itoa(current),
		Validate: func(input string) error {
			n, err := strconv.Atoi(input)
			if err != nil || n <= 0 {
				return fmt.Errorf("enter a positive number")
			}
			return nil
		},
	}
	result, err := prompt.Run()
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(result)
}

func indexOf(items []string, value string) int {
	for i, item := range items {
		if item == value {
			return i
		}
	}
	return 0
}

func init() {
	// Add subcommands to profile
	profileCmd.AddCommand(listProfilesCmd)
	profileCmd.AddCommand(showProfileCmd)
	profileCmd.AddCommand(addProfileCmd)
	profileCmd.AddCommand(editProfileCmd)
	profileCmd.AddCommand(deleteProfileCmd)
	profileCmd.AddCommand(switchProfileCmd)
}
