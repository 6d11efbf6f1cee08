package main

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	runGoal     string
	runProspect []string
	runUseLLM   bool
	runTraceID  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Plan and execute a sales goal",
	Long: `Run creates a plan for the goal and executes it step by step.

The plan honors the profile's budget ceiling, routes side-effecting steps
through the approval gate, and reports a complete result even when some
steps fail. The exit code is non-zero when any step did not succeed.`,
	Example: `  cadence run --goal "Qualify and draft outreach for Acme Corp" \
      --prospect company="Acme Corp" --prospect industry=Technology \
      --prospect employee_count=500 --prospect first_name=Jo`,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	rt, err := buildRuntime(cfg)
	if err != nil {
		return err
	}
	defer rt.close()

	prospect, err := parseProspect(runProspect)
	if err != nil {
		return err
	}
	// Flat --prospect fields double as the message-template data unless the
	// caller supplied prospect_data explicitly.
	if prospect != nil {
		if _, ok := prospect["prospect_data"]; !ok {
			data := make(map[string]any, len(prospect))
			for k, v := range prospect {
				data[k] = v
			}
			prospect["prospect_data"] = data
		}
	}

	traceID := runTraceID
	if traceID == "" {
		traceID = uuid.NewString()
	}

	useLLM := cfg.Planner.UseLLM || runUseLLM

	p, err := rt.planner.CreatePlan(ctx, runGoal, traceID, prospect, useLLM)
	if err != nil {
		return err
	}

	result, err := rt.coordinator.Execute(ctx, p)
	if err != nil {
		return err
	}
	rt.metrics.RecordResult(result, cfg.Core.Profile)

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(encoded))

	if !result.Success {
		return fmt.Errorf("plan finished with %d failed step(s)", len(result.FailedSteps()))
	}
	return nil
}

func init() {
	runCmd.Flags().StringVarP(&runGoal, "goal", "g", "", "Goal to plan and execute (required)")
	runCmd.Flags().StringArrayVarP(&runProspect, "prospect", "p", nil, "Prospect field as key=value (repeatable)")
	runCmd.Flags().BoolVar(&runUseLLM, "use-llm", false, "Attempt LLM plan generation before the rule-based fallback")
	runCmd.Flags().StringVar(&runTraceID, "trace-id", "", "Trace id for the execution (generated when empty)")
	_ = runCmd.MarkFlagRequired("goal")
}
