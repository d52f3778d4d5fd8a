package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var impactPurge bool

var impactCmd = &cobra.Command{
	Use:   "impact <package>",
	Short: "Analyze the blast radius of removing a package",
	Args:  cobra.ExactArgs(1),
	RunE:  runImpact,
}

func init() {
	impactCmd.Flags().BoolVar(&impactPurge, "purge", false, "Also show the purge removal plan (drops config files)")
}

func runImpact(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	pkg := args[0]

	app.DepGraph.Initialize(ctx, false)
	result := app.Impact.Analyze(ctx, pkg)

	fmt.Printf("Impact of removing %s: severity=%s safe=%v affected=%d\n",
		result.TargetPackage, result.Severity, result.SafeToRemove, result.TotalAffected)
	if len(result.DirectDependents) > 0 {
		fmt.Printf("Direct dependents: %v\n", result.DirectDependents)
	}
	if len(result.AffectedServices) > 0 {
		fmt.Println("Affected services:")
		for _, svc := range result.AffectedServices {
			fmt.Printf("  %s (%s)%s\n", svc.Name, svc.Status, criticalSuffix(svc.Critical))
		}
	}
	for _, w := range result.Warnings {
		fmt.Printf("Warning: %s\n", w)
	}
	for _, r := range result.Recommendations {
		fmt.Printf("Recommendation: %s\n", r)
	}

	plan := app.Impact.GenerateRemovalPlan(ctx, pkg, impactPurge)
	fmt.Println("Removal plan:")
	for _, c := range plan.Commands {
		fmt.Printf("  %s\n", c)
	}
	fmt.Printf("Estimated freed space: %s\n", plan.EstimatedFreedSpace)
	return nil
}

func criticalSuffix(critical bool) string {
	if critical {
		return " [critical]"
	}
	return ""
}
