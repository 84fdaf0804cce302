package followup

// Stage keys used by the escalation policy. The scheduler itself accepts any key.
const (
	StageAdvisor           = "advisor-followup"
	StageProblem           = "problem-followup"
	StageOrder             = "order-followup"
	StageCatalog           = "catalog-followup"
	StageKeyword           = "keyword-followup"
	StageFinalConfirmation = "final-confirmation"
)

var knownStages = map[string]bool{
	StageAdvisor:           true,
	StageProblem:           true,
	StageOrder:             true,
	StageCatalog:           true,
	StageKeyword:           true,
	StageFinalConfirmation: true,
}

func IsKnownStage(stage string) bool {
	return knownStages[stage]
}
