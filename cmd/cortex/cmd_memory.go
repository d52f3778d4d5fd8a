package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

var patternMinConfidence float64

var memoryCmd = &cobra.Command{
	Use:   "memory",
	Short: "Inspect learned interaction patterns and suggestions",
}

var memoryStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show context memory statistics",
	RunE:  runMemoryStats,
}

var memorySuggestCmd = &cobra.Command{
	Use:   "suggestions",
	Short: "Generate and list active suggestions",
	RunE:  runMemorySuggestions,
}

var memoryPatternsCmd = &cobra.Command{
	Use:   "patterns",
	Short: "List learned behavioral patterns",
	RunE:  runMemoryPatterns,
}

var memoryExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write a learning-history snapshot to ~/.cortex/learning_history.json",
	RunE:  runMemoryExport,
}

func init() {
	memoryPatternsCmd.Flags().Float64Var(&patternMinConfidence, "min-confidence", 0.0, "Minimum pattern confidence to include")
}

func runMemoryStats(cmd *cobra.Command, args []string) error {
	stats, err := app.Memory.GetStatistics()
	if err != nil {
		return fmt.Errorf("get statistics: %w", err)
	}
	fmt.Printf("Total entries:      %d\n", stats.TotalEntries)
	fmt.Printf("Success rate:       %.1f%%\n", stats.SuccessRate)
	fmt.Printf("Patterns learned:   %d\n", stats.TotalPatterns)
	fmt.Printf("Active suggestions: %d\n", stats.ActiveSuggestions)
	fmt.Printf("Recent activity:    %d\n", stats.RecentActivity)
	for cat, n := range stats.ByCategory {
		fmt.Printf("  %-12s %d\n", cat, n)
	}
	return nil
}

func runMemorySuggestions(cmd *cobra.Command, args []string) error {
	if _, err := app.Memory.GenerateSuggestions(); err != nil {
		return fmt.Errorf("generate suggestions: %w", err)
	}
	active, err := app.Memory.GetActiveSuggestions(20)
	if err != nil {
		return fmt.Errorf("list suggestions: %w", err)
	}
	for _, s := range active {
		fmt.Printf("[%s] %s (confidence %.2f)\n  %s\n", s.Type, s.Title, s.Confidence, s.Description)
	}
	return nil
}

func runMemoryExport(cmd *cobra.Command, args []string) error {
	path := filepath.Join(app.Config.Home, "learning_history.json")
	if err := app.Memory.ExportLearningHistory(path); err != nil {
		return fmt.Errorf("export learning history: %w", err)
	}
	fmt.Printf("Exported to %s\n", path)
	return nil
}

func runMemoryPatterns(cmd *cobra.Command, args []string) error {
	patterns, err := app.Memory.GetPatterns("", patternMinConfidence)
	if err != nil {
		return fmt.Errorf("get patterns: %w", err)
	}
	for _, p := range patterns {
		fmt.Printf("%-20s freq=%-4d confidence=%.2f  %s\n", p.PatternID, p.Frequency, p.Confidence, p.Description)
	}
	return nil
}
