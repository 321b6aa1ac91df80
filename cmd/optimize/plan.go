package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alchemorsel/nutriplan/internal/infrastructure/http/handlers"
	"github.com/alchemorsel/nutriplan/internal/ports/inbound"
)

// nutrientFlags collects nutrient amounts from shorthand flags and
// repeated name=amount pairs
type nutrientFlags struct {
	protein, fat, carbs, calories float64
	pairs                         []string
}

func (n *nutrientFlags) register(cmd *cobra.Command, pairsFlag, usage string) {
	cmd.Flags().Float64Var(&n.protein, "protein", 0, "protein target (g)")
	cmd.Flags().Float64Var(&n.fat, "fat", 0, "fat target (g)")
	cmd.Flags().Float64Var(&n.carbs, "carbs", 0, "carbohydrate target (g)")
	cmd.Flags().Float64Var(&n.calories, "calories", 0, "energy target (kcal)")
	cmd.Flags().StringSliceVar(&n.pairs, pairsFlag, nil, usage)
}

// targets merges the shorthand flags that were set with the pairs
func (n *nutrientFlags) targets(cmd *cobra.Command) (map[string]float64, error) {
	out, err := parsePairs(n.pairs)
	if err != nil {
		return nil, err
	}
	for flag, value := range map[string]float64{
		"protein":  n.protein,
		"fat":      n.fat,
		"carbs":    n.carbs,
		"calories": n.calories,
	} {
		if cmd.Flags().Changed(flag) {
			out[flag] = value
		}
	}
	return out, nil
}

func parsePairs(pairs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("expected nutrient=amount, got %q", pair)
		}
		amount, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		out[strings.TrimSpace(name)] = amount
	}
	return out, nil
}

func newPlanCommand(opts *globalOptions) *cobra.Command {
	var (
		targets    nutrientFlags
		intake     []string
		priority   string
		maxSodium  float64
		minRecipes int
	)

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Optimize recipe quantities for the remaining targets",
		Example: `  nutriplan-optimize plan --catalog recipes.json --protein 35 --calories 600
  nutriplan-optimize plan --target fiber=30 --intake protein=40 --priority protein_first`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := handlers.OptimizeRequest{Priority: priority}
			var err error
			if req.Targets, err = targets.targets(cmd); err != nil {
				return err
			}
			if req.CurrentIntake, err = parsePairs(intake); err != nil {
				return err
			}
			if cmd.Flags().Changed("max-sodium") || minRecipes > 0 {
				req.Constraints = &handlers.ConstraintsRequest{MinDistinctRecipes: minRecipes}
				if cmd.Flags().Changed("max-sodium") {
					req.Constraints.MaxSodium = &maxSodium
				}
			}
			if err := handlers.NewValidator().Struct(req); err != nil {
				return err
			}
			command, err := req.ToCommand()
			if err != nil {
				return err
			}

			ctx, cancel := opts.context(cmd.Context())
			defer cancel()
			s, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			result, message, err := s.mealPlans.Optimize(ctx, command)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), handlers.PlanResponse{
				Plan:    inbound.NewPlanDTO(result),
				Message: message,
			})
		},
	}

	targets.register(cmd, "target", "additional targets as nutrient=amount")
	cmd.Flags().StringSliceVar(&intake, "intake", nil, "nutrients already consumed as nutrient=amount")
	cmd.Flags().StringVar(&priority, "priority", "", "balance, protein_first, low_calorie or energy_up")
	cmd.Flags().Float64Var(&maxSodium, "max-sodium", 0, "sodium ceiling (mg)")
	cmd.Flags().IntVar(&minRecipes, "min-recipes", 0, "warn when fewer distinct recipes are selected")
	return cmd
}

func newSuggestCommand(opts *globalOptions) *cobra.Command {
	var (
		targets nutrientFlags
		intake  []string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "suggest",
		Short: "Suggest single recipes for the protein deficit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := handlers.SuggestRequest{Limit: limit}
			var err error
			if req.Targets, err = targets.targets(cmd); err != nil {
				return err
			}
			if req.CurrentIntake, err = parsePairs(intake); err != nil {
				return err
			}
			if err := handlers.NewValidator().Struct(req); err != nil {
				return err
			}
			query, err := req.ToQuery()
			if err != nil {
				return err
			}

			ctx, cancel := opts.context(cmd.Context())
			defer cancel()
			s, err := opts.open(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			suggestions, err := s.mealPlans.SuggestRecipes(ctx, query)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), inbound.NewSuggestionDTOs(suggestions))
		},
	}

	targets.register(cmd, "target", "additional targets as nutrient=amount")
	cmd.Flags().StringSliceVar(&intake, "intake", nil, "nutrients already consumed as nutrient=amount")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of suggestions (1-20)")
	return cmd
}
