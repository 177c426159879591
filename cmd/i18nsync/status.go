package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/gpml/i18nsync/internal/record"
	"github.com/gpml/i18nsync/internal/store"
	"github.com/gpml/i18nsync/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "inspect",
	Short:   "Show record store status and translation coverage",
	Long: `Display the current status of the record store.

Shows:
  - Store location and size
  - Record counts by kind and by language
  - Translation coverage for every configured language`,
	Run: func(cmd *cobra.Command, args []string) {
		showMissing, _ := cmd.Flags().GetBool("missing")
		cfg := loadConfig()

		info, err := os.Stat(cfg.Database)
		if os.IsNotExist(err) {
			fmt.Printf("\n%s Record store not initialized\n", ui.RenderWarn("⚠"))
			fmt.Printf("   Run 'i18nsync sync' to create it\n\n")
			return
		}
		if err != nil {
			exitf("checking record store: %v", err)
		}

		database, err := store.Open(cfg.Database)
		if err != nil {
			exitf("opening record store: %v", err)
		}
		defer database.Close()

		ctx := context.Background()
		byKind, err := database.CountByKind(ctx)
		if err != nil {
			exitf("counting records: %v", err)
		}
		byLang, err := database.CountByLanguage(ctx)
		if err != nil {
			exitf("counting translations: %v", err)
		}

		fmt.Printf("\n%s\n\n", ui.RenderHeader("Record Store Status"))
		fmt.Printf("Location: %s\n", cfg.Database)
		fmt.Printf("Size: %s\n", formatSize(info.Size()))
		fmt.Printf("Modified: %s\n", info.ModTime().Format("2006-01-02 15:04:05"))
		fmt.Printf("Messages: %d\n", byKind[record.KindMessage])
		fmt.Printf("Translations: %d\n", byKind[record.KindTranslation])

		if len(byLang) > 0 {
			fmt.Printf("\nBy language:\n")
			for _, lang := range sortedKeys(byLang) {
				fmt.Printf("   %-8s %d\n", lang, byLang[lang])
			}
		}

		messages := byKind[record.KindMessage]
		if messages == 0 || len(cfg.Languages.Available) == 0 {
			fmt.Println()
			return
		}

		fmt.Printf("\nCoverage:\n")
		for _, lang := range cfg.Languages.Available {
			missing, err := database.MissingTranslations(ctx, lang)
			if err != nil {
				exitf("computing coverage for %s: %v", lang, err)
			}
			done := messages - len(missing)
			pct := float64(done) * 100 / float64(messages)
			fmt.Printf("   %-8s %s %d/%d\n", lang, renderCoverage(pct), done, messages)
			if showMissing {
				for _, key := range missing {
					fmt.Printf("      %s\n", ui.RenderMuted(key))
				}
			}
		}
		fmt.Println()
	},
}

func renderCoverage(pct float64) string {
	s := fmt.Sprintf("%5.1f%%", pct)
	switch {
	case pct >= 100:
		return ui.RenderPass(s)
	case pct >= 50:
		return ui.RenderWarn(s)
	default:
		return ui.RenderFail(s)
	}
}

func formatSize(size int64) string {
	switch {
	case size > 1024*1024:
		return fmt.Sprintf("%.1f MB", float64(size)/(1024*1024))
	case size > 1024:
		return fmt.Sprintf("%.1f KB", float64(size)/1024)
	default:
		return fmt.Sprintf("%d bytes", size)
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func init() {
	statusCmd.Flags().Bool("missing", false, "list message keys missing a translation")
	rootCmd.AddCommand(statusCmd)
}
