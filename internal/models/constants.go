package models

const (
	SummaryQuery    = "Generate a comprehensive summary of these documents."
	KeyPointsQuery  = "Extract and organize the key points from these documents."
	ComparisonQuery = "Compare and contrast the main ideas and information across these documents."

	ImagePlaceholderFormat = "[Image file: %s]"
	PageLocatorFormat      = "Page %d"
	SlideLocatorFormat     = "Slide %d"
	SourceSeparator        = ", "
)

var (
	PromptHeaderTemplate = "Provide a detailed response in %s based on the following document excerpts:\n\n"

	ModeInstructions = map[AnalysisMode]string{
		ModeQA:         "Answer the following question based on the documents: %s",
		ModeSummary:    "Generate a detailed and structured summary of these documents.",
		ModeKeyPoints:  "Extract and organize the key points from these documents.",
		ModeComparison: "Compare and contrast the main ideas across these documents.",
	}

	LanguageDirectiveTemplate = "Respond in %s."

	Languages = []string{"English", "Spanish", "French", "German", "Chinese", "Japanese"}
)
