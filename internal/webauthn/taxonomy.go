package webauthn

import (
	"errors"
	"log/slog"
)

// The taxonomy maps platform exception names into the closed Outcome set.
// Registration and assertion ceremonies raise disjoint exception families, so
// the same name can map differently per ceremony (InvalidStateError means
// "already registered" during registration but "unrecognized credential"
// during assertion).
//
// Both mappings are total: a name neither table knows maps to OutcomeUnknown
// and is logged for diagnosis, never silently dropped.

var registrationOutcomes = map[string]Outcome{
	"SyntaxError":       OutcomeSyntax,
	"TypeError":         OutcomeSyntax,
	"NotSupportedError": OutcomeUnsupportedConfiguration,
	"InvalidStateError": OutcomeAlreadyRegistered,
	"NotAllowedError":   OutcomeUserCancelled,
	"AbortError":        OutcomeUserCancelled,
	"ConstraintError":   OutcomeVerificationUnsupported,
}

var assertionOutcomes = map[string]Outcome{
	"SyntaxError":       OutcomeSyntax,
	"TypeError":         OutcomeSyntax,
	"InvalidStateError": OutcomeUnrecognizedCredential,
	"NotAllowedError":   OutcomeUserCancelled,
	"AbortError":        OutcomeUserCancelled,
	"SecurityError":     OutcomeOriginMismatch,
	"UnknownError":      OutcomeUnknownSecurity,
}

// MapRegistrationException maps a registration-ceremony failure to its
// outcome code.
func MapRegistrationException(err error, logger *slog.Logger) Outcome {
	return mapException(err, registrationOutcomes, "registration", logger)
}

// MapAssertionException maps an assertion-ceremony failure to its outcome
// code.
func MapAssertionException(err error, logger *slog.Logger) Outcome {
	return mapException(err, assertionOutcomes, "assertion", logger)
}

func mapException(err error, table map[string]Outcome, ceremony string, logger *slog.Logger) Outcome {
	var exc *CeremonyException
	if !errors.As(err, &exc) {
		if logger != nil {
			logger.Warn("unnamed platform ceremony failure",
				"ceremony", ceremony,
				"error", err,
			)
		}
		return OutcomeUnknown
	}
	if outcome, ok := table[exc.Name]; ok {
		return outcome
	}
	if logger != nil {
		logger.Warn("unmapped platform exception",
			"ceremony", ceremony,
			"exception", exc.Name,
			"detail", exc.Detail,
		)
	}
	return OutcomeUnknown
}
