package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"cvstudio/internal/ai"
	"cvstudio/internal/common"
	"cvstudio/internal/merge"
	"cvstudio/internal/reply"
	"cvstudio/internal/types"

	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate [document-file] [job-description-file]",
	Short: "Generate polished content for an extracted document",
	Long: `Generate polished, professional content for a document produced by the
extract command. The document file is the JSON document; for cover letters an
optional second argument supplies the target job description. The polished
sections are merged over the input document, so nothing you entered is lost.`,
	Args: cobra.RangeArgs(1, 2),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		// Apply default format if not specified
		if generateConfig.OutputFormat == "" {
			generateConfig.OutputFormat = cfg.App.DefaultFormat
		}
		if !types.DocumentKind(generateKind).Valid() {
			return fmt.Errorf("invalid kind %q: must be 'resume' or 'coverLetter'", generateKind)
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(generateConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runGenerate,
}

var (
	generateConfig   common.CommandConfig
	generateKind     string
	generateTemplate string
)

func init() {
	generateCmd.Flags().StringVarP(&generateConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	generateCmd.Flags().StringVar(&generateConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
	generateCmd.Flags().StringVar(&generateKind, "kind", "resume", "Document kind: resume or coverLetter")
	generateCmd.Flags().StringVar(&generateTemplate, "template", "professional", "Template style: professional, modern, creative, or minimal")

	// Add completion for format flag
	_ = generateCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg := getConfigFromContext(cmd.Context())
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())
	kind := types.DocumentKind(generateKind)

	modelConfig := cfg.GetGenerateConfig()
	aiService, err := ai.NewService(&modelConfig, "generate", logger)
	if err != nil {
		return fmt.Errorf("failed to create AI service: %w", err)
	}

	builder := builderFromConfig(cfg)

	createInput := func(contents []string) (types.GenerateInput, error) {
		var doc types.Document
		if err := json.Unmarshal([]byte(contents[0]), &doc); err != nil {
			return types.GenerateInput{}, fmt.Errorf("document file is not valid document JSON: %w", err)
		}
		input := types.GenerateInput{
			Kind:     kind,
			Document: doc,
			Template: generateTemplate,
		}
		if len(contents) > 1 {
			input.JobDescription = contents[1]
		}
		return input, nil
	}

	logDetails := func(input types.GenerateInput, cmdCfg common.CommandConfig) {
		logger.Info("Starting document generation",
			"kind", input.Kind,
			"template", input.Template,
			"output_format", cmdCfg.OutputFormat)
	}

	generateOperation := func(ctx context.Context, input types.GenerateInput) (types.Document, *ai.TokenUsage, error) {
		generatePrompt, err := builder.BuildGenerate(input)
		if err != nil {
			return types.Document{}, nil, err
		}

		rawReply, usage, err := aiService.Generate(ctx, ai.GenerateRequest{
			Prompt:       generatePrompt,
			SystemPrompt: builder.GenerateSystem(),
		})
		if err != nil {
			return types.Document{}, usage, err
		}

		parsed, err := reply.Parse(rawReply)
		if err != nil {
			return types.Document{}, usage, err
		}

		return merge.Documents(input.Document, parsed.ExtractedFields), usage, nil
	}

	err = common.RunAICommand(
		cmd.Context(),
		logger,
		generateConfig,
		args,
		createInput,
		generateOperation,
		logDetails,
	)

	if err != nil {
		return fmt.Errorf("failed to generate document content: %w", err)
	}
	logger.Info("Document generation completed successfully")
	return nil
}
