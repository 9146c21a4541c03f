package ocrtool

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"sync"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/sammcj/pdf-toolbox/internal/ocr"
	"github.com/sammcj/pdf-toolbox/internal/ocr/tesseract"
	"github.com/sammcj/pdf-toolbox/internal/output"
	"github.com/sammcj/pdf-toolbox/internal/pipeline"
	"github.com/sammcj/pdf-toolbox/internal/raster"
	"github.com/sammcj/pdf-toolbox/internal/registry"
	"github.com/sammcj/pdf-toolbox/internal/tools"
	"github.com/sammcj/pdf-toolbox/internal/tools/pdftool"
	"github.com/sirupsen/logrus"
)

// OCRTool renders pages losslessly and recognises their text
type OCRTool struct {
	// Engine overrides the Tesseract engine, mainly for tests
	Engine ocr.Recognizer
}

func init() {
	registry.Register(&OCRTool{})
}

// Definition returns the tool's definition for MCP registration
func (t *OCRTool) Definition() mcp.Tool {
	return mcp.NewTool(
		"ocr",
		mcp.WithDescription(`Recognise text in scanned PDFs with Tesseract. Writes <name>_ocr.txt with the text of every page under a page heading. Requires Tesseract and its language data to be installed.`),
		mcp.WithString("file_path",
			mcp.Description("Absolute path to the PDF to recognise"),
		),
		mcp.WithArray("file_paths",
			mcp.Description("Absolute paths of several PDFs to recognise in one batch"),
			mcp.WithStringItems(),
		),
		mcp.WithArray("languages",
			mcp.Description("Recognition languages, e.g. [\"eng\", \"deu\"] (default: eng)"),
			mcp.WithStringItems(mcp.Enum(ocr.LanguageCodes()...)),
		),
		mcp.WithString("output_dir",
			mcp.Description("Directory for results (defaults to the directory of the first input)"),
		),
		mcp.WithNumber("workers",
			mcp.Description("Pages rendered in parallel per document (0 or 1 renders sequentially)"),
			mcp.Min(0),
			mcp.Max(pipeline.MaxWorkers),
		),
		mcp.WithBoolean("overwrite",
			mcp.Description("Replace existing output files instead of picking a numbered name"),
			mcp.DefaultBool(false),
		),
		mcp.WithBoolean("list_languages",
			mcp.Description("Only list supported languages and which are installed"),
			mcp.DefaultBool(false),
		),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)
}

// Execute recognises the requested documents
func (t *OCRTool) Execute(ctx context.Context, logger *logrus.Logger, _ *sync.Map, args map[string]any) (*mcp.CallToolResult, error) {
	if !tools.IsToolEnabled("ocr") {
		return nil, fmt.Errorf("ocr tool is not enabled. Set ENABLE_ADDITIONAL_TOOLS environment variable to include 'ocr'")
	}

	logger.Debug("Executing ocr tool")

	if tools.BoolArg(args, "list_languages", false) {
		return tools.NewToolResultJSON(t.languageReport(logger))
	}

	env := pdftool.NewEnvironment(logger)

	requested, err := tools.StringSliceArg(args, "languages")
	if err != nil {
		return nil, pipeline.UserInputError("%v", err)
	}
	if len(requested) == 0 {
		requested = env.Config.OCRLanguages
	}
	languages, err := ocr.ParseLanguages(requested...)
	if err != nil {
		return nil, pipeline.UserInputError("%v", err)
	}

	engine := t.engine()
	logger.WithFields(logrus.Fields{
		"engine":    engine.Name(),
		"languages": strings.Join(languages, "+"),
	}).Debug("OCR configured")

	report, err := env.RunRaster(ctx, args, pdftool.RasterJob{
		Tool:   "ocr",
		Preset: raster.PresetOCR,
		NewSink: func(string) (pipeline.PageSink, error) {
			return ocr.NewCollector(engine, languages), nil
		},
		OutputName: output.OCRName,
	})
	if err != nil {
		return nil, fmt.Errorf("ocr: %w", err)
	}
	return tools.NewToolResultJSON(report)
}

func (t *OCRTool) engine() ocr.Recognizer {
	if t.Engine != nil {
		return t.Engine
	}
	settings, _ := raster.PresetOCR.Settings()
	return tesseract.New(int(math.Round(72 * settings.Scale)))
}

type languageEntry struct {
	ocr.Language
	Installed bool `json:"installed"`
}

func (t *OCRTool) languageReport(logger *logrus.Logger) map[string]any {
	installed, err := tesseract.AvailableLanguages()
	if err != nil {
		logger.WithError(err).Warn("Failed to list installed Tesseract languages")
	}

	entries := make([]languageEntry, 0, len(ocr.Languages()))
	for _, l := range ocr.Languages() {
		entries = append(entries, languageEntry{Language: l, Installed: slices.Contains(installed, l.Code)})
	}

	report := map[string]any{"languages": entries}
	if err != nil {
		report["error"] = err.Error()
	}
	return report
}

// ProvideExtendedInfo provides detailed usage information for the ocr tool
func (t *OCRTool) ProvideExtendedInfo() *tools.ExtendedHelp {
	return &tools.ExtendedHelp{
		Examples: []tools.ToolExample{
			{
				Description: "Recognise an English scan",
				Arguments: map[string]any{
					"file_path": "/Users/username/scans/letter.pdf",
				},
				ExpectedResult: "Writes letter_ocr.txt next to the PDF with a '--- Page N ---' heading before each page's text",
			},
			{
				Description: "Recognise a bilingual document",
				Arguments: map[string]any{
					"file_path": "/Users/username/scans/contract.pdf",
					"languages": []string{"eng", "fra"},
				},
				ExpectedResult: "Runs Tesseract with eng+fra on every page",
			},
		},
		Troubleshooting: []tools.TroubleshootingTip{
			{
				Problem:  "Error loading language data",
				Solution: "Install the Tesseract traineddata for that language, or call with list_languages=true to see what is installed.",
			},
			{
				Problem:  "A page shows [no text recognised]",
				Solution: "The page is blank or the scan is too faint; pages are rendered at 144 DPI which suits most scans.",
			},
		},
		ParameterDetails: map[string]string{
			"languages": "Codes from the fixed catalogue: " + strings.Join(ocr.LanguageCodes(), ", "),
		},
		WhenToUse:    "Use to extract text from scanned PDFs with no text layer.",
		WhenNotToUse: "Do not use on PDFs that already contain selectable text.",
	}
}
