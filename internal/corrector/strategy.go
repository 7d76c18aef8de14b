package corrector

import (
	"vibeforge/internal/gemini"
	"vibeforge/internal/report"
)

// Strategy is a correction approach, ordered roughly by how invasive it is.
type Strategy string

const (
	StrategyConservative  Strategy = "conservative"   // minimal changes
	StrategyStandard      Strategy = "standard"       // normal fixes
	StrategyAggressive    Strategy = "aggressive"     // major improvements
	StrategyRewrite       Strategy = "rewrite"        // complete rewrite
	StrategyHybrid        Strategy = "hybrid"         // conservative then aggressive
	StrategyPersonaSwitch Strategy = "persona_switch" // same fix, different specialist
)

// strategyProgression maps a failure classification to the escalation ladder
// walked across attempts. Security failures skip straight to invasive fixes.
var strategyProgression = map[report.Classification][]Strategy{
	report.SyntaxError: {
		StrategyConservative,
		StrategyStandard,
		StrategyAggressive,
		StrategyRewrite,
	},
	report.RuntimeError: {
		StrategyStandard,
		StrategyAggressive,
		StrategyPersonaSwitch,
		StrategyRewrite,
	},
	report.SecurityError: {
		StrategyAggressive,
		StrategyRewrite,
	},
	report.Timeout: {
		StrategyAggressive,
		StrategyPersonaSwitch,
		StrategyRewrite,
	},
}

var defaultProgression = []Strategy{
	StrategyStandard,
	StrategyAggressive,
	StrategyRewrite,
}

// personaCycle is walked round-robin by the persona-switch strategy.
var personaCycle = []gemini.Persona{
	gemini.PersonaDebugger,
	gemini.PersonaSeniorDeveloper,
	gemini.PersonaOptimizer,
	gemini.PersonaArchitect,
	gemini.PersonaSecurityExpert,
}

// personaForClassification picks the specialist best suited to a failure mode.
var personaForClassification = map[report.Classification]gemini.Persona{
	report.SyntaxError:   gemini.PersonaDebugger,
	report.RuntimeError:  gemini.PersonaDebugger,
	report.SecurityError: gemini.PersonaSecurityExpert,
	report.Timeout:       gemini.PersonaOptimizer,
	report.MemoryError:   gemini.PersonaOptimizer,
}

// selectStrategy walks the progression for the current failure type, then
// escalates by attempt position once the ladder runs out.
func selectStrategy(rep *report.TestReport, attempt, maxAttempts int) Strategy {
	strategies, ok := strategyProgression[rep.Classification]
	if !ok {
		strategies = defaultProgression
	}

	if attempt <= len(strategies) {
		return strategies[attempt-1]
	}

	switch {
	case float64(attempt) > float64(maxAttempts)*0.7:
		return StrategyRewrite
	case float64(attempt) > float64(maxAttempts)*0.5:
		return StrategyPersonaSwitch
	default:
		return StrategyAggressive
	}
}

// selectPersona picks the persona for an attempt. Persona-switch cycles
// through the roster; everything else keys off the failure classification.
func selectPersona(strategy Strategy, attempt int, classification report.Classification) gemini.Persona {
	if strategy == StrategyPersonaSwitch {
		return personaCycle[(attempt-1)%len(personaCycle)]
	}
	if p, ok := personaForClassification[classification]; ok {
		return p
	}
	return gemini.PersonaSeniorDeveloper
}
