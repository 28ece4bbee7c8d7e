package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/gigmatch/internal/domain"
	"github.com/spigell/gigmatch/internal/logger"
	"github.com/spigell/gigmatch/internal/matching"
)

const (
	PromptExit         = "Exit"
	PromptBack         = "back"
	PromptInspectMatch = "Inspect a match"
	PromptDumpToFile   = "Dump matches to file"
	PromptFilters      = "Show filters"
)

var errExit = errors.New("exit requested")

var matchPrompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptInspectMatch, PromptDumpToFile, PromptFilters, PromptExit},
}

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank freelancers for an ad-hoc job description or a stored job",
	Run: func(cmd *cobra.Command, _ []string) {
		runMatch(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)
	addMatchFlags(matchCmd)
}

func addMatchFlags(cmd *cobra.Command) {
	cmd.Flags().String("description", "", "job description")
	cmd.Flags().StringSlice("skill", nil, "required skill (repeatable)")
	cmd.Flags().String("date", "", "requested date, YYYY-MM-DD")
	cmd.Flags().String("day", "", "requested weekday when no date is known")
	cmd.Flags().String("time-of-day", "", "morning, afternoon or evening")
	cmd.Flags().String("time", "", "free-text time, e.g. 10:00")
	cmd.Flags().String("postcode", "", "job postcode")
	cmd.Flags().Int("limit", 0, "number of matches (default matching.default-limit)")
	cmd.Flags().Float64("threshold", 0, "minimum similarity (default matching.threshold)")
	cmd.Flags().String("job", "", "match a stored job by id instead of the flags above")
	cmd.Flags().BoolP("yes", "y", false, "print matches and exit without the interactive menu")
}

func runMatch(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := newLogger()

	config, err := getConfig()
	if err != nil {
		log.Fatal("getting a config", zap.Error(err))
	}

	log.Info("starting the matcher", zap.String("version", version))

	limit, threshold := matchBounds(cmd, config.Matching)

	jobID, _ := cmd.Flags().GetString("job")
	query, err := queryFromFlags(cmd)
	if jobID == "" && err != nil {
		log.Fatal("building a job query", zap.Error(err), zap.String("hint", "pass --description or --job"))
	}

	deps, err := buildComponents(ctx, config, log)
	if err != nil {
		log.Fatal("building components", zap.Error(err))
	}
	defer deps.close()

	var results []domain.MatchResult
	if jobID != "" {
		log.Info("matching a stored job", zap.String("job_id", jobID))
		results, err = deps.ranker.MatchJob(ctx, jobID, limit, threshold)
	} else {
		log.Info("matching an ad-hoc query", logger.QueryFields(query, config.AI.Gemini.MaxLogLength)...)
		results, err = deps.ranker.Match(ctx, query, limit, threshold)
	}
	if err != nil {
		log.Fatal("matching failed", zap.Error(err))
	}

	if len(results) == 0 {
		log.Info("exiting", zap.String("reason", "no matches found"))
		return
	}

	printMatches(log, results)

	if auto, _ := cmd.Flags().GetBool("yes"); auto {
		return
	}

	for {
		_, action, err := matchPrompt.Run()
		if err != nil {
			log.Fatal("exiting", zap.Error(err))
		}

		if err := handleAction(action, log, deps.ranker, &query, threshold, results); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			log.Fatal("exiting", zap.Error(err))
		}
	}
}

func handleAction(action string, logger *zap.Logger, ranker *matching.Ranker, query *domain.JobQuery, threshold float64, results []domain.MatchResult) error {
	switch action {
	case PromptExit:
		logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	case PromptInspectMatch:
		return inspect(logger, results)
	case PromptFilters:
		pretty, _ := json.MarshalIndent(matching.Describe(ranker.Filters(query, threshold)), "", "  ")
		logger.Info(string(pretty))
		return nil
	case PromptDumpToFile:
		filename, err := dumpToTmpFile(results)
		if err != nil {
			return fmt.Errorf("dump matches to file: %w", err)
		}
		logger.Info("dumping matches to file", zap.String("filename", filename))
		return nil
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func inspect(logger *zap.Logger, results []domain.MatchResult) error {
	items := make([]string, 0, len(results)+1)
	for i, r := range results {
		items = append(items, matchLabel(i, r))
	}

	selectPrompt := promptui.Select{
		Label: "Choose a match and press ENTER",
		Items: append(items, PromptBack),
		Size:  10,
	}

	idx, selected, err := selectPrompt.Run()
	if err != nil {
		return err
	}
	if selected == PromptBack {
		return nil
	}

	pretty, _ := json.MarshalIndent(results[idx], "", "  ")
	logger.Info(string(pretty))
	return nil
}

func printMatches(logger *zap.Logger, results []domain.MatchResult) {
	logger.Info("found matches", zap.Int("count", len(results)))
	for i, r := range results {
		logger.Info(matchLabel(i, r),
			zap.Float64("relevance", r.Relevance),
			zap.Float64("similarity", r.Similarity),
			zap.Bool("availability_match", r.AvailabilityMatch),
			zap.Bool("location_match", r.LocationMatch),
		)
	}
}

func matchLabel(i int, r domain.MatchResult) string {
	name := r.FullName
	if name == "" {
		name = r.Headline
	}
	return fmt.Sprintf("%d. %s / %s / %.3f", i+1, r.FreelancerID, name, r.Relevance)
}

func dumpToTmpFile(results []domain.MatchResult) (string, error) {
	f, err := os.CreateTemp("", app+"-matches-*.json")
	if err != nil {
		return "", err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(results); err != nil {
		return "", err
	}
	return f.Name(), nil
}

// matchBounds applies flag overrides over the configured limit and threshold.
func matchBounds(cmd *cobra.Command, cfg *MatchingConfig) (int, float64) {
	limit, threshold := cfg.DefaultLimit, cfg.Threshold
	if cmd.Flags().Changed("limit") {
		limit, _ = cmd.Flags().GetInt("limit")
	}
	if cmd.Flags().Changed("threshold") {
		threshold, _ = cmd.Flags().GetFloat64("threshold")
	}
	return limit, threshold
}

func queryFromFlags(cmd *cobra.Command) (domain.JobQuery, error) {
	flags := cmd.Flags()
	description, _ := flags.GetString("description")
	skills, _ := flags.GetStringSlice("skill")
	date, _ := flags.GetString("date")
	day, _ := flags.GetString("day")
	slot, _ := flags.GetString("time-of-day")
	at, _ := flags.GetString("time")
	postcode, _ := flags.GetString("postcode")

	q := domain.JobQuery{
		Description: strings.TrimSpace(description),
		Skills:      skills,
	}
	if q.Description == "" {
		return q, errors.New("description is required")
	}

	if date != "" || day != "" || slot != "" || at != "" {
		tod := domain.TimeOfDay("")
		if slot != "" {
			parsed, ok := domain.ParseTimeOfDay(slot)
			if !ok {
				return q, fmt.Errorf("unknown time of day %q", slot)
			}
			tod = parsed
		}
		q.Window = &domain.TimeWindow{Date: date, Day: day, TimeOfDay: tod, Time: at}
	}
	if postcode = strings.TrimSpace(postcode); postcode != "" {
		q.Location = &domain.JobLocation{Postcode: postcode}
	}

	return q, nil
}
