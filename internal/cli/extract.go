package cli

import (
	"fmt"
	"os"

	"cvstudio/internal/ai"
	"cvstudio/internal/common"
	"cvstudio/internal/config"
	"cvstudio/internal/conversation"
	"cvstudio/internal/ingest"
	"cvstudio/internal/prompt"
	"cvstudio/internal/types"

	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file...]",
	Short: "Extract structured resume or cover letter data from files",
	Long: `Extract structured information from one or more input files using AI.
Text files are read as conversation input; PDFs and images are sent to the
model as attachments. Each file runs as its own extraction turn and the
results accumulate into a single document. A failed file does not stop the
files after it.`,
	Args: cobra.MinimumNArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		// Apply default format if not specified
		if extractConfig.OutputFormat == "" {
			extractConfig.OutputFormat = cfg.App.DefaultFormat
		}
		if !types.DocumentKind(extractKind).Valid() {
			return fmt.Errorf("invalid kind %q: must be 'resume' or 'coverLetter'", extractKind)
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(extractConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runExtract,
}

var (
	extractConfig  common.CommandConfig
	extractKind    string
	extractJobFile string
)

func init() {
	extractCmd.Flags().StringVarP(&extractConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	extractCmd.Flags().StringVar(&extractConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
	extractCmd.Flags().StringVar(&extractKind, "kind", "resume", "Document kind: resume or coverLetter")
	extractCmd.Flags().StringVar(&extractJobFile, "job-file", "", "Job description file (cover letters only)")

	// Add completion for format flag
	_ = extractCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())
	kind := types.DocumentKind(extractKind)

	jobDescription := ""
	if extractJobFile != "" {
		fileProcessor := common.NewFileProcessor(logger)
		content, err := fileProcessor.ReadFile(extractJobFile)
		if err != nil {
			return err
		}
		jobDescription = content
	}

	// Files are read as raw bytes so binary attachments survive intact
	files := make([]ingest.File, 0, len(args))
	for _, name := range args {
		data, err := os.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}
		files = append(files, ingest.File{Name: name, Data: data})
	}

	inputs, err := ingest.ClassifyAll(files)
	if err != nil {
		return err
	}

	var modelConfig config.ModelConfig
	operation := "resume"
	if kind == types.KindCoverLetter {
		modelConfig = cfg.GetCoverLetterConfig()
		operation = "coverLetter"
	} else {
		modelConfig = cfg.GetResumeConfig()
	}

	aiService, err := ai.NewService(&modelConfig, operation, logger)
	if err != nil {
		return fmt.Errorf("failed to create AI service: %w", err)
	}

	// No saver: the CLI path writes its result explicitly at the end
	controller := conversation.NewController(aiService, builderFromConfig(cfg), nil, logger, conversation.Options{
		TurnTimeout:      cfg.Conversation.TurnTimeout,
		AutoSaveDebounce: cfg.Conversation.AutoSaveDebounce,
	})
	sess := conversation.NewSession("local", kind, jobDescription)

	logger.Info("Starting extraction",
		"kind", kind,
		"file_count", len(inputs),
		"output_format", extractConfig.OutputFormat)

	results := controller.HandleFiles(cmd.Context(), sess, inputs)

	result := types.ExtractionResult{ExtractedFields: sess.Document()}
	succeeded := 0
	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %s failed: %v\n", res.Name, res.Err)
			continue
		}
		succeeded++
		// The last turn's follow-ups describe what is still missing overall
		result.MissingInfo = res.Result.MissingInfo
		result.Questions = res.Result.Questions
		result.Confidence = res.Result.Confidence
		if res.Result.Usage != nil {
			logger.Info("AI token usage",
				"file", res.Name,
				"input_tokens", res.Result.Usage.InputTokens,
				"output_tokens", res.Result.Usage.OutputTokens,
				"total_tokens", res.Result.Usage.TotalTokens)
		}
	}

	if succeeded == 0 {
		return fmt.Errorf("extraction failed for all %d file(s)", len(results))
	}

	outputHandler := common.NewOutputHandler(logger)
	if err := outputHandler.HandleOutput(result, extractConfig); err != nil {
		return err
	}

	logger.Info("Extraction completed",
		"files_succeeded", succeeded,
		"files_failed", len(results)-succeeded)
	return nil
}

// builderFromConfig maps the resolved config prompts onto the builder's
// template set. Empty fields fall back to the built-in defaults.
func builderFromConfig(cfg *config.Config) *prompt.Builder {
	custom := cfg.AI.CustomPrompts
	return prompt.NewBuilderWithPrompts(
		prompt.SystemPrompts{
			ExtractResume:      custom.SystemPrompts.ExtractResume,
			ExtractCoverLetter: custom.SystemPrompts.ExtractCoverLetter,
			Generate:           custom.SystemPrompts.Generate,
		},
		prompt.UserPrompts{
			ExtractResume:       custom.UserPrompts.ExtractResume,
			ExtractCoverLetter:  custom.UserPrompts.ExtractCoverLetter,
			GenerateResume:      custom.UserPrompts.GenerateResume,
			GenerateCoverLetter: custom.UserPrompts.GenerateCoverLetter,
		},
	)
}
